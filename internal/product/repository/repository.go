package repository

import (
	"context"
	"time"

	"sustainly-backend/internal/product/domain"
)

// ProductScoreRepository stores analysis results so repeated lookups of the
// same URL do not hit the analyzer again.
type ProductScoreRepository interface {
	// FindByURL returns the stored score for a URL, or nil when absent
	FindByURL(ctx context.Context, productURL string) (*domain.ProductScore, error)

	// FindByIDs returns stored scores by row id
	FindByIDs(ctx context.Context, ids []string) ([]*domain.ProductScore, error)

	// Save inserts or replaces the score for data's URL
	Save(ctx context.Context, productURL string, data *domain.ProductData) (*domain.ProductScore, error)

	// DeleteScoredBefore removes scores older than cutoff and returns their ids
	DeleteScoredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ScoreSource is a remote analyzer speaking the product-score HTTP contract.
type ScoreSource interface {
	FetchScore(ctx context.Context, productURL, accessToken string) (*domain.ProductData, error)
}
