package cache

import (
	"context"
	"time"

	"sustainly-backend/internal/history/domain"
)

// Entry is a user's last fully settled history list.
type Entry struct {
	Items     []domain.HistoryItem `json:"items"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Cache stores one Entry per user. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, userID string) (Entry, bool, error)
	Set(ctx context.Context, userID string, entry Entry) error
	Invalidate(ctx context.Context, userID string) error
}
