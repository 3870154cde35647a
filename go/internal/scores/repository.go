package scores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/clickrush/go/internal/models"
	"github.com/mcdev12/clickrush/go/internal/sqlutil"
)

// Pool is what the repository needs from the database layer. Satisfied
// by *pgxpool.Pool.
type Pool interface {
	sqlutil.DB
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository implements score data access operations. It is the score
// sink for settled rounds and the source of leaderboard snapshots.
type Repository struct {
	pool  Pool
	clock clockwork.Clock
}

// NewRepository creates a new scores repository
func NewRepository(pool Pool, clock clockwork.Clock) *Repository {
	return &Repository{
		pool:  pool,
		clock: clock,
	}
}

const insertScoreQuery = `
INSERT INTO scores (id, user_id, score, created_at)
VALUES ($1, $2, $3, $4)`

const getEntryQuery = `
SELECT s.user_id, u.username, s.score, s.created_at
FROM scores s
JOIN users u ON u.id = s.user_id
WHERE s.id = $1`

const topScoresQuery = `
SELECT s.user_id, u.username, s.score, s.created_at
FROM scores s
JOIN users u ON u.id = s.user_id
ORDER BY s.score DESC, s.created_at ASC
LIMIT $1`

// CreateScore records a settled round and returns the stored entry with
// the player's display name resolved.
func (r *Repository) CreateScore(ctx context.Context, userID uuid.UUID, score int) (*models.LeaderboardEntry, error) {
	if score < 0 {
		return nil, fmt.Errorf("score must be non-negative")
	}

	id := uuid.New()
	var entry models.LeaderboardEntry
	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertScoreQuery, id, userID, score, r.clock.Now().UTC()); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		row := tx.QueryRow(ctx, getEntryQuery, id)
		if err := row.Scan(&entry.UserID, &entry.DisplayName, &entry.Score, &entry.SettledAt); err != nil {
			return fmt.Errorf("load settled score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create score: %w", err)
	}

	return &entry, nil
}

// TopScores returns the highest settled scores, descending, ties broken
// by earlier settlement.
func (r *Repository) TopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, topScoresQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.Score, &entry.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read score rows: %w", err)
	}

	return entries, nil
}
