package scheduler

import (
	"context"
	"sync"
	"time"

	"sustainly-backend/internal/product/repository"
	"sustainly-backend/pkg/logger"
)

// DocumentRemover drops index entries for purged scores.
type DocumentRemover interface {
	DeleteProducts(ctx context.Context, scoreIDs []string) error
}

// ScorePurgeScheduler periodically removes stored scores older than the TTL
type ScorePurgeScheduler struct {
	scores   repository.ProductScoreRepository
	index    DocumentRemover
	ttl      time.Duration
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	log      *logger.Logger
	now      func() time.Time
}

// NewScorePurgeScheduler creates a new scheduler. index may be nil.
func NewScorePurgeScheduler(
	scores repository.ProductScoreRepository,
	index DocumentRemover,
	ttl time.Duration,
	log *logger.Logger,
) *ScorePurgeScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &ScorePurgeScheduler{
		scores:   scores,
		index:    index,
		ttl:      ttl,
		interval: time.Hour,
		stopChan: make(chan struct{}),
		log:      log.With("component", "ScorePurgeScheduler"),
		now:      time.Now,
	}
}

// Start begins the scheduler loop
func (s *ScorePurgeScheduler) Start() {
	s.log.Info("Starting score purge scheduler", "interval", s.interval, "ttl", s.ttl)

	go func() {
		// Run immediately on start
		s.PurgeExpired(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.PurgeExpired(context.Background())
			case <-s.stopChan:
				s.log.Info("Score purge scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ScorePurgeScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// PurgeExpired deletes scores past the TTL and returns how many were removed.
func (s *ScorePurgeScheduler) PurgeExpired(ctx context.Context) int {
	ids, err := s.scores.DeleteScoredBefore(ctx, s.now().Add(-s.ttl))
	if err != nil {
		s.log.Error("Error purging expired scores", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	s.log.Info("Purged expired product scores", "count", len(ids))

	if s.index != nil {
		if err := s.index.DeleteProducts(ctx, ids); err != nil {
			s.log.Warn("Failed to remove purged products from index", "count", len(ids), "error", err)
		}
	}
	return len(ids)
}
