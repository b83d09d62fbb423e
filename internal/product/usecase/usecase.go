package usecase

import (
	"context"

	"sustainly-backend/internal/product/domain"
	"sustainly-backend/pkg/chroma"
)

// ProductUsecase defines the interface for product scoring
type ProductUsecase interface {
	// ScoreProduct scores a submitted URL. When userID is set the lookup is
	// recorded in that user's history.
	ScoreProduct(ctx context.Context, productURL, userID, accessToken string) (*domain.ProductData, error)

	// ResolveProduct returns the score for a URL without recording a lookup
	ResolveProduct(ctx context.Context, productURL string) (*domain.ProductData, error)

	// SetSimilarityIndex enables alternatives (optional)
	SetSimilarityIndex(idx SimilarityIndex)

	// SetHistoryRecorder sets the hook that records signed-in lookups
	SetHistoryRecorder(rec HistoryRecorder)
}

// Analyzer produces a raw score for a product URL.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, productURL, accessToken string) (*domain.ProductData, error)
}

// SimilarityIndex finds stored products similar to a query text.
type SimilarityIndex interface {
	IndexProduct(ctx context.Context, doc chroma.ProductDocument) error
	SimilarProducts(ctx context.Context, query string, limit int) ([]string, error)
}

// HistoryRecorder is notified of each signed-in lookup.
type HistoryRecorder interface {
	RecordLookup(ctx context.Context, userID, productID, productURL string) error
}
