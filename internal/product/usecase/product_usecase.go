package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sustainly-backend/internal/product/domain"
	"sustainly-backend/internal/product/repository"
	"sustainly-backend/pkg/chroma"
	"sustainly-backend/pkg/logger"
	"sustainly-backend/pkg/metrics"
)

const alternativeCandidates = 8

// Options tune lookups; zero values fall back to defaults.
type Options struct {
	AllowedHosts []string
	ScoreTTL     time.Duration
}

// productUsecase implements ProductUsecase
type productUsecase struct {
	scores     repository.ProductScoreRepository
	analyzer   Analyzer
	similarity SimilarityIndex
	history    HistoryRecorder
	opts       Options
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

// NewProductUsecase creates a new instance of productUsecase
func NewProductUsecase(scores repository.ProductScoreRepository, analyzer Analyzer, opts Options, m *metrics.Metrics, log *logger.Logger) ProductUsecase {
	if opts.ScoreTTL <= 0 {
		opts.ScoreTTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &productUsecase{
		scores:   scores,
		analyzer: analyzer,
		opts:     opts,
		metrics:  m,
		log:      log.With("component", "product"),
		now:      time.Now,
	}
}

func (u *productUsecase) SetSimilarityIndex(idx SimilarityIndex) {
	u.similarity = idx
}

func (u *productUsecase) SetHistoryRecorder(rec HistoryRecorder) {
	u.history = rec
}

func (u *productUsecase) ScoreProduct(ctx context.Context, productURL, userID, accessToken string) (*domain.ProductData, error) {
	data, canonical, err := u.lookup(ctx, productURL, accessToken)
	if err != nil {
		return nil, err
	}
	if userID != "" && u.history != nil {
		if err := u.history.RecordLookup(ctx, userID, data.ProductID, canonical); err != nil {
			// The score is still valid; only the history entry is missing.
			u.log.Warn("Failed to record lookup in history", "userID", userID, "url", canonical, "error", err)
		}
	}
	return data, nil
}

func (u *productUsecase) ResolveProduct(ctx context.Context, productURL string) (*domain.ProductData, error) {
	data, _, err := u.lookup(ctx, productURL, "")
	return data, err
}

func (u *productUsecase) lookup(ctx context.Context, rawURL, accessToken string) (*domain.ProductData, string, error) {
	parsed, err := domain.ValidateProductURL(rawURL, u.opts.AllowedHosts)
	if err != nil {
		return nil, "", err
	}
	productURL := parsed.String()

	if data := u.storedScore(ctx, productURL); data != nil {
		u.metrics.ProductLookup("hit")
		return data, productURL, nil
	}

	start := u.now()
	data, err := u.analyzer.Analyze(ctx, productURL, accessToken)
	u.metrics.ObserveAnalysis(u.analyzer.Name(), u.now().Sub(start))
	if err != nil {
		u.metrics.ProductLookup("failed")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		u.log.Warn("Product analysis failed", "url", productURL, "analyzer", u.analyzer.Name(), "error", err)
		return nil, "", fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}
	if data == nil {
		u.metrics.ProductLookup("failed")
		return nil, "", fmt.Errorf("%w: empty result", domain.ErrAnalysisFailed)
	}

	data.Normalize(productURL)
	if err := data.Validate(); err != nil {
		u.metrics.ProductLookup("failed")
		return nil, "", err
	}

	if len(data.Alternatives) == 0 {
		data.Alternatives = u.findAlternatives(ctx, productURL, data)
	} else {
		data.Alternatives = domain.BetterAlternatives(data.SustainabilityScore, data.Alternatives)
	}

	saved, err := u.scores.Save(ctx, productURL, data)
	if err != nil {
		// Serve the fresh result even if it could not be stored.
		u.log.Error("Failed to store product score", "url", productURL, "error", err)
	} else {
		u.index(ctx, saved.ID, data)
	}

	u.metrics.ProductLookup("analyzed")
	return data, productURL, nil
}

// storedScore returns a cached analysis younger than the TTL, or nil.
func (u *productUsecase) storedScore(ctx context.Context, productURL string) *domain.ProductData {
	stored, err := u.scores.FindByURL(ctx, productURL)
	if err != nil {
		u.log.Warn("Failed to read stored score", "url", productURL, "error", err)
		return nil
	}
	if stored == nil || u.now().Sub(stored.ScoredAt) >= u.opts.ScoreTTL {
		return nil
	}
	data, err := repository.DecodeProductData(stored)
	if err != nil {
		u.log.Warn("Discarding unreadable stored score", "url", productURL, "error", err)
		return nil
	}
	return data
}

func (u *productUsecase) findAlternatives(ctx context.Context, productURL string, data *domain.ProductData) []domain.AlternativeProduct {
	if u.similarity == nil {
		return nil
	}
	query := chroma.DocumentText(toDocument("", data))
	ids, err := u.similarity.SimilarProducts(ctx, query, alternativeCandidates)
	if err != nil {
		u.log.Warn("Similarity search failed", "url", productURL, "error", err)
		return nil
	}
	rows, err := u.scores.FindByIDs(ctx, ids)
	if err != nil {
		u.log.Warn("Failed to load similar products", "url", productURL, "error", err)
		return nil
	}

	candidates := make([]domain.AlternativeProduct, 0, len(rows))
	for _, row := range rows {
		if row.ProductURL == productURL {
			continue
		}
		alt := domain.AlternativeProduct{
			ID:    row.ProductID,
			Name:  row.Title,
			Brand: row.Brand,
			Score: row.Score,
		}
		if alt.ID == "" {
			alt.ID = row.ID
		}
		if stored, err := repository.DecodeProductData(row); err == nil {
			alt.ImageSrc = stored.MainImage
		}
		candidates = append(candidates, alt)
	}
	return domain.BetterAlternatives(data.SustainabilityScore, candidates)
}

func (u *productUsecase) index(ctx context.Context, scoreID string, data *domain.ProductData) {
	if u.similarity == nil {
		return
	}
	if err := u.similarity.IndexProduct(ctx, toDocument(scoreID, data)); err != nil {
		u.log.Warn("Failed to index product", "scoreID", scoreID, "error", err)
	}
}

func toDocument(scoreID string, data *domain.ProductData) chroma.ProductDocument {
	return chroma.ProductDocument{
		ScoreID:    scoreID,
		ProductID:  data.ProductID,
		Title:      data.Title,
		Brand:      data.Brand,
		Categories: data.Categories,
		Score:      data.SustainabilityScore,
	}
}
