package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is a settled score as stored by the score service,
// with the player's display name resolved for broadcast.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	SettledAt   time.Time `json:"settled_at"`
}
