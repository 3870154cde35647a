package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/models"
)

// Config holds the round timing constants.
type Config struct {
	// CountdownTicks is the number of pre-game countdown ticks.
	CountdownTicks int
	// ActiveWindow is how long the scoring window stays open.
	ActiveWindow time.Duration
}

// DefaultConfig returns the standard round timing.
func DefaultConfig() Config {
	return Config{
		CountdownTicks: 3,
		ActiveWindow:   5 * time.Second,
	}
}

// Emitter forwards notifications back to the owning connection,
// preserving emission order.
type Emitter interface {
	Emit(n Notification)
}

// Sink durably records a settled (user, score) pair and returns the
// stored entry with any server-assigned fields resolved.
type Sink interface {
	CreateScore(ctx context.Context, userID uuid.UUID, score int) (*models.LeaderboardEntry, error)
}

// Publisher fans a settled entry out to every live connection.
type Publisher interface {
	Publish(ctx context.Context, entry *models.LeaderboardEntry) error
}

// Session owns one connection's game state and processes every event
// for it on a single goroutine, so no locking is needed for the state
// itself. Inbound client actions and scheduler-driven ticks share one
// event channel and are applied in arrival order.
type Session struct {
	cfg       Config
	clock     clockwork.Clock
	machine   *Machine
	emitter   Emitter
	sink      Sink
	publisher Publisher

	state  State
	events chan Event

	done      chan struct{}
	closeOnce sync.Once

	// roundCancel is owned by the loop goroutine; closed to stop the
	// current round's timers.
	roundCancel chan struct{}
}

// NewSession creates a session for a verified user. Run must be called
// before any events are handled.
func NewSession(userID uuid.UUID, cfg Config, clock clockwork.Clock, machine *Machine, emitter Emitter, sink Sink, publisher Publisher) *Session {
	if machine == nil {
		machine = NewMachine()
	}
	return &Session{
		cfg:       cfg,
		clock:     clock,
		machine:   machine,
		emitter:   emitter,
		sink:      sink,
		publisher: publisher,
		state:     NewState(userID),
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
	}
}

// State returns a snapshot of the session state. Intended for tests
// and stats; the loop goroutine remains the only writer.
func (s *Session) State() State {
	return s.state
}

// HandleStart enqueues a start request from the client.
func (s *Session) HandleStart() {
	s.enqueue(StartEvent{})
}

// HandleClick enqueues a click from the client.
func (s *Session) HandleClick() {
	s.enqueue(ClickEvent{})
}

func (s *Session) enqueue(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Close tears the session down: the loop exits after the current event
// and all pending round timers are cancelled. Safe to call more than
// once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Run processes events until the session is closed or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.teardown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev := <-s.events:
			s.step(ctx, ev)
		}
	}
}

// step applies one event, emits the resulting notifications in order,
// and runs the transition side effects (round timers, settlement).
func (s *Session) step(ctx context.Context, ev Event) {
	next, notes := s.machine.Apply(s.state, ev)
	s.state = next

	for _, n := range notes {
		s.emitter.Emit(n)

		switch n := n.(type) {
		case Started:
			s.beginRound(n.RoundID)
		case Ended:
			s.settle(ctx, n)
		}
	}
}

// beginRound arms the countdown and expiry timers for a new round.
func (s *Session) beginRound(roundID uuid.UUID) {
	cancel := make(chan struct{})
	s.roundCancel = cancel
	go s.runRoundTimers(cancel)

	log.Debug().
		Str("user_id", s.state.UserID.String()).
		Str("round_id", roundID.String()).
		Int("countdown_ticks", s.cfg.CountdownTicks).
		Dur("active_window", s.cfg.ActiveWindow).
		Msg("round started")
}

// settle records the final score and, on success, publishes the stored
// entry to the broadcast group. The ended notification has already been
// emitted, so a sink failure closes the round client-side without a
// leaderboard update.
func (s *Session) settle(ctx context.Context, end Ended) {
	// The round's timer goroutine has delivered its last event.
	s.roundCancel = nil

	entry, err := s.sink.CreateScore(ctx, s.state.UserID, end.Value)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", s.state.UserID.String()).
			Str("round_id", end.RoundID.String()).
			Int("score", end.Value).
			Msg("score sink failed; round closed without leaderboard update")
		return
	}

	// Teardown may have invalidated the round while the sink call was
	// in flight; a dead connection's round is not published.
	select {
	case <-s.done:
		log.Debug().
			Str("round_id", end.RoundID.String()).
			Msg("connection closed during settlement; dropping leaderboard entry")
		return
	default:
	}

	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Error().
			Err(err).
			Str("user_id", entry.UserID.String()).
			Int("score", entry.Score).
			Msg("failed to publish leaderboard entry")
		return
	}

	log.Info().
		Str("user_id", entry.UserID.String()).
		Str("round_id", end.RoundID.String()).
		Int("score", entry.Score).
		Msg("round settled")
}

// teardown cancels any outstanding round timers. Runs on the loop
// goroutine as Run returns, so no further notifications are emitted.
func (s *Session) teardown() {
	s.Close()
	if s.roundCancel != nil {
		close(s.roundCancel)
		s.roundCancel = nil
	}
	s.state.Status = Inactive
	s.state.RoundID = uuid.Nil
	s.state.Score = 0
}
