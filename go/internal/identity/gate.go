package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned for any credential that fails
// verification. The connection is closed without creating game state.
var ErrUnauthorized = errors.New("identity: unauthorized")

// Identity is a verified user attached to a connection for its lifetime.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Gate validates a connection-time credential and yields the verified
// user. Must complete before any session state is created.
type Gate interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
