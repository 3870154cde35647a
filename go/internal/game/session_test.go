package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/clickrush/go/internal/models"
)

type recordingEmitter struct {
	ch chan Notification
}

func (e *recordingEmitter) Emit(n Notification) {
	e.ch <- n
}

type sinkCall struct {
	userID uuid.UUID
	score  int
}

type fakeSink struct {
	err error
	// release, when set, blocks CreateScore until closed, simulating a
	// slow store call during settlement.
	release chan struct{}
	calls   chan sinkCall
}

func (s *fakeSink) CreateScore(ctx context.Context, userID uuid.UUID, score int) (*models.LeaderboardEntry, error) {
	s.calls <- sinkCall{userID: userID, score: score}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.LeaderboardEntry{
		UserID:      userID,
		DisplayName: "player",
		Score:       score,
		SettledAt:   time.Unix(1700000000, 0),
	}, nil
}

type fakePublisher struct {
	entries chan *models.LeaderboardEntry
}

func (p *fakePublisher) Publish(ctx context.Context, entry *models.LeaderboardEntry) error {
	p.entries <- entry
	return nil
}

type sessionFixture struct {
	session  *Session
	clock    *clockwork.FakeClock
	emitter  *recordingEmitter
	sink     *fakeSink
	pub      *fakePublisher
	userID   uuid.UUID
	loopDone chan struct{}
}

func newSessionFixture(t *testing.T, cfg Config) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		clock:    clockwork.NewFakeClock(),
		emitter:  &recordingEmitter{ch: make(chan Notification, 64)},
		sink:     &fakeSink{calls: make(chan sinkCall, 4)},
		pub:      &fakePublisher{entries: make(chan *models.LeaderboardEntry, 4)},
		userID:   uuid.New(),
		loopDone: make(chan struct{}),
	}
	f.session = NewSession(f.userID, cfg, f.clock, nil, f.emitter, f.sink, f.pub)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		f.session.Run(ctx)
		close(f.loopDone)
	}()
	t.Cleanup(f.session.Close)

	return f
}

func expectNotification[N Notification](t *testing.T, ch chan Notification) N {
	t.Helper()
	select {
	case n := <-ch:
		got, ok := n.(N)
		if !ok {
			t.Fatalf("notification = %#v, want %T", n, got)
		}
		return got
	case <-time.After(2 * time.Second):
		var zero N
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

func expectNoNotification(t *testing.T, ch chan Notification) {
	t.Helper()
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %#v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

// runCountdown advances the fake clock through every countdown tick and
// asserts the tick values descend to zero.
func (f *sessionFixture) runCountdown(t *testing.T, ticks int) {
	t.Helper()
	for k := ticks - 1; k >= 0; k-- {
		f.clock.BlockUntil(1)
		f.clock.Advance(time.Second)
		cd := expectNotification[Countdown](t, f.emitter.ch)
		if cd.Remaining != k {
			t.Fatalf("countdown = %d, want %d", cd.Remaining, k)
		}
	}
}

func TestFullRound(t *testing.T) {
	cfg := Config{CountdownTicks: 3, ActiveWindow: 5 * time.Second}
	f := newSessionFixture(t, cfg)

	f.session.HandleStart()
	started := expectNotification[Started](t, f.emitter.ch)
	if started.RoundID == uuid.Nil {
		t.Fatal("started without a round id")
	}

	f.runCountdown(t, cfg.CountdownTicks)

	activated := expectNotification[Activated](t, f.emitter.ch)
	if activated.RoundID != started.RoundID {
		t.Errorf("activated round %s, want %s", activated.RoundID, started.RoundID)
	}

	for want := 1; want <= 4; want++ {
		f.session.HandleClick()
		score := expectNotification[Score](t, f.emitter.ch)
		if score.Value != want {
			t.Fatalf("score = %d, want %d", score.Value, want)
		}
	}

	f.clock.BlockUntil(1)
	f.clock.Advance(cfg.ActiveWindow)
	ended := expectNotification[Ended](t, f.emitter.ch)
	if ended.RoundID != started.RoundID || ended.Value != 4 {
		t.Errorf("ended = %+v, want round %s value 4", ended, started.RoundID)
	}

	select {
	case call := <-f.sink.calls:
		if call.userID != f.userID || call.score != 4 {
			t.Errorf("sink call = %+v, want user %s score 4", call, f.userID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never called")
	}

	select {
	case entry := <-f.pub.entries:
		if entry.Score != 4 {
			t.Errorf("published score = %d, want 4", entry.Score)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leaderboard entry was never published")
	}
}

func TestClickDuringCountdownDoesNotScore(t *testing.T) {
	cfg := Config{CountdownTicks: 2, ActiveWindow: time.Second}
	f := newSessionFixture(t, cfg)

	f.session.HandleStart()
	expectNotification[Started](t, f.emitter.ch)

	f.session.HandleClick()
	expectNoNotification(t, f.emitter.ch)

	f.runCountdown(t, cfg.CountdownTicks)
	expectNotification[Activated](t, f.emitter.ch)

	f.clock.BlockUntil(1)
	f.clock.Advance(cfg.ActiveWindow)
	ended := expectNotification[Ended](t, f.emitter.ch)
	if ended.Value != 0 {
		t.Errorf("final score = %d, want 0", ended.Value)
	}
}

func TestBackToBackStartsYieldOneRound(t *testing.T) {
	cfg := Config{CountdownTicks: 2, ActiveWindow: time.Second}
	f := newSessionFixture(t, cfg)

	f.session.HandleStart()
	f.session.HandleStart()

	expectNotification[Started](t, f.emitter.ch)
	// The second start is a no-op: the next notification is the first
	// countdown tick, not another started.
	f.clock.BlockUntil(1)
	f.clock.Advance(time.Second)
	cd := expectNotification[Countdown](t, f.emitter.ch)
	if cd.Remaining != cfg.CountdownTicks-1 {
		t.Errorf("countdown = %d, want %d", cd.Remaining, cfg.CountdownTicks-1)
	}
}

func TestCloseDuringCountdownCancelsRound(t *testing.T) {
	cfg := Config{CountdownTicks: 3, ActiveWindow: 5 * time.Second}
	f := newSessionFixture(t, cfg)

	f.session.HandleStart()
	expectNotification[Started](t, f.emitter.ch)
	f.clock.BlockUntil(1)

	f.session.Close()
	<-f.loopDone

	f.clock.Advance(time.Minute)
	expectNoNotification(t, f.emitter.ch)

	select {
	case <-f.sink.calls:
		t.Fatal("sink called for an abandoned round")
	default:
	}
}

func TestCloseDuringActiveWindowCancelsRound(t *testing.T) {
	cfg := Config{CountdownTicks: 1, ActiveWindow: 5 * time.Second}
	f := newSessionFixture(t, cfg)

	f.session.HandleStart()
	expectNotification[Started](t, f.emitter.ch)
	f.runCountdown(t, cfg.CountdownTicks)
	expectNotification[Activated](t, f.emitter.ch)

	f.session.HandleClick()
	expectNotification[Score](t, f.emitter.ch)

	f.session.Close()
	<-f.loopDone

	f.clock.Advance(time.Minute)
	expectNoNotification(t, f.emitter.ch)

	select {
	case <-f.sink.calls:
		t.Fatal("sink called for an abandoned round")
	default:
	}
}

func TestSinkFailureClosesRoundWithoutPublish(t *testing.T) {
	cfg := Config{CountdownTicks: 1, ActiveWindow: time.Second}
	f := newSessionFixture(t, cfg)
	f.sink.err = errors.New("store unavailable")

	f.session.HandleStart()
	expectNotification[Started](t, f.emitter.ch)
	f.runCountdown(t, cfg.CountdownTicks)
	expectNotification[Activated](t, f.emitter.ch)

	f.session.HandleClick()
	expectNotification[Score](t, f.emitter.ch)

	f.clock.BlockUntil(1)
	f.clock.Advance(cfg.ActiveWindow)
	ended := expectNotification[Ended](t, f.emitter.ch)
	if ended.Value != 1 {
		t.Errorf("final score = %d, want 1", ended.Value)
	}

	select {
	case <-f.sink.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never called")
	}

	select {
	case entry := <-f.pub.entries:
		t.Fatalf("published %+v despite sink failure", entry)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseDuringSettlementDropsPublish(t *testing.T) {
	cfg := Config{CountdownTicks: 1, ActiveWindow: time.Second}
	f := newSessionFixture(t, cfg)
	f.sink.release = make(chan struct{})

	f.session.HandleStart()
	expectNotification[Started](t, f.emitter.ch)
	f.runCountdown(t, cfg.CountdownTicks)
	expectNotification[Activated](t, f.emitter.ch)

	f.session.HandleClick()
	expectNotification[Score](t, f.emitter.ch)

	f.clock.BlockUntil(1)
	f.clock.Advance(cfg.ActiveWindow)
	expectNotification[Ended](t, f.emitter.ch)

	// Settlement is now blocked inside the store call. Tear the session
	// down before it completes: the stored entry belongs to a dead
	// connection and must not reach the leaderboard.
	select {
	case <-f.sink.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never called")
	}
	f.session.Close()
	close(f.sink.release)
	<-f.loopDone

	select {
	case entry := <-f.pub.entries:
		t.Fatalf("published %+v for a closed connection", entry)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConsecutiveRoundsGetFreshRoundIDs(t *testing.T) {
	cfg := Config{CountdownTicks: 1, ActiveWindow: time.Second}
	f := newSessionFixture(t, cfg)

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		f.session.HandleStart()
		started := expectNotification[Started](t, f.emitter.ch)
		if seen[started.RoundID] {
			t.Fatalf("round id %s repeated", started.RoundID)
		}
		seen[started.RoundID] = true

		f.runCountdown(t, cfg.CountdownTicks)
		expectNotification[Activated](t, f.emitter.ch)
		f.clock.BlockUntil(1)
		f.clock.Advance(cfg.ActiveWindow)
		expectNotification[Ended](t, f.emitter.ch)
		<-f.pub.entries
		<-f.sink.calls
	}
}
