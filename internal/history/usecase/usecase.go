package usecase

import (
	"context"

	"sustainly-backend/internal/history/domain"
	productdomain "sustainly-backend/internal/product/domain"
)

// HistoryUsecase defines the interface for history retrieval and enrichment
type HistoryUsecase interface {
	// LoadHistory returns the user's history with each item resolved or
	// marked failed. Only a failed list fetch is an error.
	LoadHistory(ctx context.Context, userID string) ([]domain.HistoryItem, error)

	// LoadHistoryAsync returns the seeded list right away and keeps enriching
	// in the background. pending is false when the list came from the cache.
	LoadHistoryAsync(ctx context.Context, userID string) (items []domain.HistoryItem, pending bool, err error)

	// ClearHistory deletes the user's history. cleared is false when there
	// was nothing to clear.
	ClearHistory(ctx context.Context, userID string) (cleared bool, err error)

	// ResolveItem returns the item's product, fetching it once if missing
	ResolveItem(ctx context.Context, userID string, item domain.HistoryItem) (*productdomain.ProductData, error)

	// ResolveByID resolves one of the user's history items by id
	ResolveByID(ctx context.Context, userID, id string) (*productdomain.ProductData, error)

	// SearchHistory filters resolved items by a fuzzy query, best match first
	SearchHistory(items []domain.HistoryItem, query string) []domain.HistoryItem

	// RecordLookup stores a signed-in lookup and drops the user's cached list
	RecordLookup(ctx context.Context, userID, productID, productURL string) error

	// SetPublisher sets where incremental updates are pushed
	SetPublisher(p Publisher)
}

// ProductResolver loads the product behind a history record.
type ProductResolver interface {
	ResolveProduct(ctx context.Context, productURL string) (*productdomain.ProductData, error)
}

// Publisher pushes list updates to the user's open views.
type Publisher interface {
	PublishSnapshot(userID string, items []domain.HistoryItem)
	PublishItem(userID string, index int, item domain.HistoryItem)
}
