package leaderboard

import (
	"sort"
	"sync"

	"github.com/mcdev12/clickrush/go/internal/models"
)

// DefaultDepth is the default number of entries a board retains.
const DefaultDepth = 10

// Board retains a bounded top-N view of settled scores: descending
// score, ties broken by the earlier settlement. Retention is a
// receiver-side policy; the game core publishes every settled entry.
type Board struct {
	mu      sync.RWMutex
	depth   int
	entries []models.LeaderboardEntry
}

// NewBoard creates a board retaining the top depth entries.
func NewBoard(depth int) *Board {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Board{depth: depth}
}

// Seed replaces the board's contents, e.g. from a store query at startup.
func (b *Board) Seed(entries []models.LeaderboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make([]models.LeaderboardEntry, len(entries))
	copy(b.entries, entries)
	b.sortAndTrim()
}

// Add folds one settled entry into the board.
func (b *Board) Add(entry models.LeaderboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	b.sortAndTrim()
}

// Entries returns a copy of the current standings, best first.
func (b *Board) Entries() []models.LeaderboardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.LeaderboardEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Board) sortAndTrim() {
	sort.SliceStable(b.entries, func(i, j int) bool {
		if b.entries[i].Score != b.entries[j].Score {
			return b.entries[i].Score > b.entries[j].Score
		}
		return b.entries[i].SettledAt.Before(b.entries[j].SettledAt)
	})
	if len(b.entries) > b.depth {
		b.entries = b.entries[:b.depth]
	}
}
