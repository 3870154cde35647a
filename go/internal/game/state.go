package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Status is the lifecycle phase of a session's current round.
type Status int

const (
	// Inactive means no round is in flight. Initial and terminal state
	// of every round.
	Inactive Status = iota
	// Pending means the countdown is running; clicks do not score yet.
	Pending
	// Active means the scoring window is open.
	Active
)

var statusNames = map[Status]string{
	Inactive: "inactive",
	Pending:  "pending",
	Active:   "active",
}

var statusFromName = map[string]Status{
	"inactive": Inactive,
	"pending":  Pending,
	"active":   Active,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
	}
	return nil
}

// State is the authoritative record of one player's current round.
// It is owned exclusively by the session loop that created it and is
// never shared across connections.
type State struct {
	UserID  uuid.UUID
	RoundID uuid.UUID // zero while Inactive
	Score   int
	Status  Status
}

// NewState returns the initial state for a freshly authorized connection.
func NewState(userID uuid.UUID) State {
	return State{UserID: userID, Status: Inactive}
}
