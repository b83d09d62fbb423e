package domain

import (
	"errors"
	"time"

	productdomain "sustainly-backend/internal/product/domain"
)

var (
	ErrListFetch       = errors.New("failed to load history")
	ErrDelete          = errors.New("failed to clear history")
	ErrRetryResolution = errors.New("unable to resolve product details")
	ErrNotFound        = errors.New("history item not found")
)

// HistoryRecord is one prior lookup by a user. A user has at most one row
// per product URL; looking the product up again refreshes UpdatedAt.
type HistoryRecord struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_history_user_url;index:idx_user_history_updated,priority:1"`
	ProductID  string    `json:"product_id"`
	ProductURL string    `json:"product_url" gorm:"not null;uniqueIndex:idx_user_history_user_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index:idx_user_history_updated,priority:2"`
}

// TableName specifies the table name for GORM
func (HistoryRecord) TableName() string {
	return "user_history"
}

// ItemState is where a history item is in its enrichment.
type ItemState string

const (
	StateLoading  ItemState = "loading"
	StateResolved ItemState = "resolved"
	StateFailed   ItemState = "failed"
)

// HistoryItem pairs a record with its resolved product. ProductData stays
// nil while loading and after a failed enrichment.
type HistoryItem struct {
	HistoryRecord
	ProductData *productdomain.ProductData `json:"productData"`
	IsLoading   bool                       `json:"isLoading"`
}

// NewLoadingItem seeds an item for a record whose product is not resolved yet.
func NewLoadingItem(r HistoryRecord) HistoryItem {
	return HistoryItem{HistoryRecord: r, IsLoading: true}
}

func (i HistoryItem) State() ItemState {
	switch {
	case i.IsLoading:
		return StateLoading
	case i.ProductData != nil:
		return StateResolved
	default:
		return StateFailed
	}
}

// Resolved returns a copy of the item with its product attached.
func (i HistoryItem) Resolved(p *productdomain.ProductData) HistoryItem {
	i.ProductData = p
	i.IsLoading = false
	return i
}

// Failed returns a copy of the item marked as failed.
func (i HistoryItem) Failed() HistoryItem {
	i.ProductData = nil
	i.IsLoading = false
	return i
}

// CloneItems copies the slice so the copy can be modified independently.
// Product records are shared; they are never mutated after resolution.
func CloneItems(items []HistoryItem) []HistoryItem {
	if items == nil {
		return nil
	}
	out := make([]HistoryItem, len(items))
	copy(out, items)
	return out
}
