package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/clickrush/go/internal/models"
)

const (
	ensureUserQuery = `
		INSERT INTO users (id, username, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`

	getUserQuery = `
		SELECT id, username, created_at
		FROM users
		WHERE id = $1`
)

// Pool defines what the repository needs from the database layer.
// *pgxpool.Pool satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements user data access operations. The account
// service owns the users table; this repository only reconciles rows
// for identities it has already verified.
type Repository struct {
	pool  Pool
	clock clockwork.Clock
}

// NewRepository creates a new users repository
func NewRepository(pool Pool, clock clockwork.Clock) *Repository {
	return &Repository{
		pool:  pool,
		clock: clock,
	}
}

// EnsureUser upserts the row for a verified identity so that score
// settlement can always resolve a display name.
func (r *Repository) EnsureUser(ctx context.Context, id uuid.UUID, username string) error {
	if _, err := r.pool.Exec(ctx, ensureUserQuery, id, username, r.clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, getUserQuery, id).Scan(&user.ID, &user.Username, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = createdAt
	return &user, nil
}
