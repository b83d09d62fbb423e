package repository

import (
	"context"

	"sustainly-backend/internal/history/domain"
)

// HistoryRepository defines the interface for the user_history table
type HistoryRepository interface {
	// ListByUser returns the user's records, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]domain.HistoryRecord, error)

	// FindByID returns one of the user's records, or nil when absent
	FindByID(ctx context.Context, userID, id string) (*domain.HistoryRecord, error)

	// DeleteByUser removes all of the user's records in one transaction
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// Touch records a lookup, refreshing updated_at if the URL is already present
	Touch(ctx context.Context, userID, productID, productURL string) (*domain.HistoryRecord, error)
}
