package repository

import (
	"context"
	"errors"
	"time"

	"sustainly-backend/internal/history/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// historyRepository implements HistoryRepository with GORM
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new instance of historyRepository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) ListByUser(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	records := []domain.HistoryRecord{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id").
		Find(&records).Error
	return records, err
}

func (r *historyRepository) FindByID(ctx context.Context, userID, id string) (*domain.HistoryRecord, error) {
	var record domain.HistoryRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *historyRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ?", userID).Delete(&domain.HistoryRecord{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *historyRepository) Touch(ctx context.Context, userID, productID, productURL string) (*domain.HistoryRecord, error) {
	now := time.Now()
	var record domain.HistoryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND product_url = ?", userID, productURL).First(&record).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = domain.HistoryRecord{
				ID:         uuid.New().String(),
				UserID:     userID,
				ProductID:  productID,
				ProductURL: productURL,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			return tx.Create(&record).Error
		}
		if productID != "" {
			record.ProductID = productID
		}
		record.UpdatedAt = now
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
