package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/clickrush/go/internal/game"
	"github.com/mcdev12/clickrush/go/internal/models"
)

// GameEvent is the wire envelope for every frame sent to a client
type GameEvent struct {
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of game event
type EventType string

const (
	EventTypeStarted             EventType = "started"
	EventTypeCountdown           EventType = "countdown"
	EventTypeActivated           EventType = "activated"
	EventTypeScore               EventType = "score"
	EventTypeEnded               EventType = "ended"
	EventTypeLeaderboardUpdate   EventType = "leaderboard_update"
	EventTypeLeaderboardSnapshot EventType = "leaderboard_snapshot"
)

// StartedPayload confirms a round was accepted
type StartedPayload struct {
	RoundID string `json:"round_id"`
}

// CountdownPayload carries one pre-game tick
type CountdownPayload struct {
	Countdown int `json:"countdown"`
}

// ActivatedPayload announces the scoring window opened
type ActivatedPayload struct {
	RoundID string `json:"round_id"`
}

// ScorePayload carries the running click total
type ScorePayload struct {
	Value int `json:"value"`
}

// EndedPayload carries a round's final score
type EndedPayload struct {
	RoundID string `json:"round_id"`
	Value   int    `json:"value"`
}

// LeaderboardSnapshotPayload carries the current top scores, sent once
// on connect
type LeaderboardSnapshotPayload struct {
	Entries []models.LeaderboardEntry `json:"entries"`
}

// NewGameEvent wraps a payload in the wire envelope.
func NewGameEvent(eventType EventType, payload any, now time.Time) (*GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &GameEvent{
		Type:      eventType,
		Timestamp: now,
		Data:      data,
	}, nil
}

// FromNotification converts a state machine notification to its wire event.
func FromNotification(n game.Notification, now time.Time) (*GameEvent, error) {
	switch n := n.(type) {
	case game.Started:
		return NewGameEvent(EventTypeStarted, StartedPayload{RoundID: n.RoundID.String()}, now)
	case game.Countdown:
		return NewGameEvent(EventTypeCountdown, CountdownPayload{Countdown: n.Remaining}, now)
	case game.Activated:
		return NewGameEvent(EventTypeActivated, ActivatedPayload{RoundID: n.RoundID.String()}, now)
	case game.Score:
		return NewGameEvent(EventTypeScore, ScorePayload{Value: n.Value}, now)
	case game.Ended:
		return NewGameEvent(EventTypeEnded, EndedPayload{RoundID: n.RoundID.String(), Value: n.Value}, now)
	default:
		return nil, fmt.Errorf("unknown notification type: %T", n)
	}
}

// ClientMessageType represents the type of an inbound client frame
type ClientMessageType string

const (
	ClientMessageStart ClientMessageType = "start"
	ClientMessageClick ClientMessageType = "click"
)

// ClientMessage is an inbound frame from a client. Unknown types are
// ignored, not errors.
type ClientMessage struct {
	Type ClientMessageType `json:"type"`
}
