package game

import (
	"github.com/google/uuid"
)

// Event is an input to the state machine: either a client action or a
// scheduler-driven transition.
type Event interface {
	isEvent()
}

// StartEvent requests a new round. Ignored unless the session is Inactive.
type StartEvent struct{}

// ClickEvent is one click during the scoring window. Ignored outside it.
type ClickEvent struct{}

// TickEvent is a countdown tick carrying the remaining whole seconds.
type TickEvent struct {
	Remaining int
}

// ActivateEvent opens the scoring window after the final countdown tick.
type ActivateEvent struct{}

// ExpireEvent closes the scoring window and settles the round.
type ExpireEvent struct{}

func (StartEvent) isEvent()    {}
func (ClickEvent) isEvent()    {}
func (TickEvent) isEvent()     {}
func (ActivateEvent) isEvent() {}
func (ExpireEvent) isEvent()   {}

// Notification is an outbound message produced by a transition, to be
// forwarded to the owning connection in emission order.
type Notification interface {
	isNotification()
}

// Started confirms a round was accepted and the countdown begins.
type Started struct {
	RoundID uuid.UUID
}

// Countdown carries the remaining whole seconds before activation.
type Countdown struct {
	Remaining int
}

// Activated announces the scoring window is open.
type Activated struct {
	RoundID uuid.UUID
}

// Score carries the running total after an in-window click.
type Score struct {
	Value int
}

// Ended announces the round's final score. Emitted exactly once per round.
type Ended struct {
	RoundID uuid.UUID
	Value   int
}

func (Started) isNotification()   {}
func (Countdown) isNotification() {}
func (Activated) isNotification() {}
func (Score) isNotification()     {}
func (Ended) isNotification()     {}

// Machine computes round transitions. Apply performs no I/O; its only
// side effect is drawing a fresh round id when a start is accepted.
type Machine struct {
	// NewRoundID generates round identifiers. Defaults to uuid.New;
	// overridable so tests can observe the generated ids.
	NewRoundID func() uuid.UUID
}

// NewMachine returns a Machine with the default round id generator.
func NewMachine() *Machine {
	return &Machine{NewRoundID: uuid.New}
}

// Apply evaluates one event against the current state and returns the
// next state plus the notifications to emit. Events that do not apply
// to the current status leave the state unchanged and emit nothing:
// a slow or duplicate client action is expected, not exceptional.
func (m *Machine) Apply(s State, ev Event) (State, []Notification) {
	switch ev := ev.(type) {
	case StartEvent:
		// At most one round in flight per connection. A start while a
		// round is pending or active is a no-op, never queued.
		if s.Status != Inactive {
			return s, nil
		}
		s.Status = Pending
		s.RoundID = m.NewRoundID()
		s.Score = 0
		return s, []Notification{Started{RoundID: s.RoundID}}

	case TickEvent:
		if s.Status != Pending {
			return s, nil
		}
		return s, []Notification{Countdown{Remaining: ev.Remaining}}

	case ActivateEvent:
		if s.Status != Pending {
			return s, nil
		}
		s.Status = Active
		return s, []Notification{Activated{RoundID: s.RoundID}}

	case ClickEvent:
		if s.Status != Active {
			return s, nil
		}
		s.Score++
		return s, []Notification{Score{Value: s.Score}}

	case ExpireEvent:
		if s.Status != Active {
			return s, nil
		}
		ended := Ended{RoundID: s.RoundID, Value: s.Score}
		s.Status = Inactive
		s.RoundID = uuid.Nil
		s.Score = 0
		return s, []Notification{ended}
	}

	return s, nil
}
