package game

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// runRoundTimers drives the passage of time for one round: countdown
// ticks k = N-1 .. 0 at one-second intervals, activation immediately
// after the final tick, then a single expiry after the active window.
// Closing cancel stops every outstanding timer; once cancelled, no
// further event for this round reaches the session loop.
func (s *Session) runRoundTimers(cancel <-chan struct{}) {
	for k := s.cfg.CountdownTicks - 1; k >= 0; k-- {
		if !s.waitAndDeliver(time.Second, TickEvent{Remaining: k}, cancel) {
			return
		}
	}
	if !s.deliver(ActivateEvent{}, cancel) {
		return
	}
	s.waitAndDeliver(s.cfg.ActiveWindow, ExpireEvent{}, cancel)
}

// waitAndDeliver sleeps for d on the session clock, then feeds ev into
// the session loop. Returns false if the round was cancelled first.
func (s *Session) waitAndDeliver(d time.Duration, ev Event, cancel <-chan struct{}) bool {
	timer := s.clock.NewTimer(d)
	select {
	case <-timer.Chan():
		return s.deliver(ev, cancel)
	case <-cancel:
		stopAndDrainTimer(timer)
		return false
	}
}

// deliver enqueues a scheduler event for the session loop, giving up
// if the round is cancelled while the loop is busy.
func (s *Session) deliver(ev Event, cancel <-chan struct{}) bool {
	select {
	case s.events <- ev:
		return true
	case <-cancel:
		return false
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel.
// This follows the pattern recommended in the time.Timer.Stop() documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
