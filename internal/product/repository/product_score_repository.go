package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sustainly-backend/internal/product/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// productScoreRepository implements ProductScoreRepository with GORM
type productScoreRepository struct {
	db *gorm.DB
}

// NewProductScoreRepository creates a new instance of productScoreRepository
func NewProductScoreRepository(db *gorm.DB) ProductScoreRepository {
	return &productScoreRepository{db: db}
}

func (r *productScoreRepository) FindByURL(ctx context.Context, productURL string) (*domain.ProductScore, error) {
	var score domain.ProductScore
	err := r.db.WithContext(ctx).Where("product_url = ?", productURL).First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &score, nil
}

func (r *productScoreRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.ProductScore, error) {
	if len(ids) == 0 {
		return []*domain.ProductScore{}, nil
	}
	var scores []*domain.ProductScore
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&scores).Error
	return scores, err
}

func (r *productScoreRepository) Save(ctx context.Context, productURL string, data *domain.ProductData) (*domain.ProductScore, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode product data: %w", err)
	}

	now := time.Now()
	var saved domain.ProductScore
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("product_url = ?", productURL).First(&saved).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if isNew {
			saved = domain.ProductScore{
				ID:         uuid.New().String(),
				ProductURL: productURL,
				CreatedAt:  now,
			}
		}
		saved.ProductID = data.ProductID
		saved.Title = data.Title
		saved.Brand = data.Brand
		saved.Score = data.SustainabilityScore
		saved.Data = datatypes.JSON(raw)
		saved.ScoredAt = now
		saved.UpdatedAt = now
		if isNew {
			return tx.Create(&saved).Error
		}
		return tx.Save(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *productScoreRepository) DeleteScoredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ProductScore{}).Where("scored_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&domain.ProductScore{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DecodeProductData unpacks the stored JSON of a score row.
func DecodeProductData(s *domain.ProductScore) (*domain.ProductData, error) {
	var data domain.ProductData
	if err := json.Unmarshal(s.Data, &data); err != nil {
		return nil, fmt.Errorf("decode product score %s: %w", s.ID, err)
	}
	return &data, nil
}
