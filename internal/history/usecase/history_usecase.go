package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sustainly-backend/internal/history/cache"
	"sustainly-backend/internal/history/domain"
	"sustainly-backend/internal/history/repository"
	productdomain "sustainly-backend/internal/product/domain"
	"sustainly-backend/pkg/fuzzy"
	"sustainly-backend/pkg/logger"
	"sustainly-backend/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// Options tune the usecase; zero values fall back to defaults.
type Options struct {
	CacheTTL     time.Duration
	FanoutLimit  int
	AsyncTimeout time.Duration
}

// historyUsecase implements HistoryUsecase
type historyUsecase struct {
	store     repository.HistoryRepository
	resolver  ProductResolver
	cache     cache.Cache
	publisher Publisher
	opts      Options
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time

	// serializes cache writes in this process
	cacheMu sync.Mutex
	genMu   sync.Mutex
	// per-user generation, bumped when a clear or a new lookup changes the
	// stored list; a load that started under an older generation must not
	// cache its result
	generations map[string]uint64
}

// NewHistoryUsecase creates a new instance of historyUsecase
func NewHistoryUsecase(
	store repository.HistoryRepository,
	resolver ProductResolver,
	c cache.Cache,
	opts Options,
	m *metrics.Metrics,
	log *logger.Logger,
) HistoryUsecase {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = 8
	}
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = 2 * time.Minute
	}
	if c == nil {
		c = cache.NewMemoryCache(opts.CacheTTL)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &historyUsecase{
		store:    store,
		resolver: resolver,
		cache:    c,
		opts:     opts,
		metrics:  m,
		log:      log.With("component", "history"),
		now:      time.Now,

		generations: make(map[string]uint64),
	}
}

func (u *historyUsecase) SetPublisher(p Publisher) {
	u.publisher = p
}

func (u *historyUsecase) LoadHistory(ctx context.Context, userID string) ([]domain.HistoryItem, error) {
	if entry, ok := u.freshEntry(ctx, userID); ok {
		u.metrics.HistoryLoad("cache")
		return entry.Items, nil
	}

	gen := u.generation(userID)
	seeded, err := u.fetchAndSeed(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.enrich(ctx, userID, seeded, gen), nil
}

func (u *historyUsecase) LoadHistoryAsync(ctx context.Context, userID string) ([]domain.HistoryItem, bool, error) {
	if entry, ok := u.freshEntry(ctx, userID); ok {
		u.metrics.HistoryLoad("cache")
		return entry.Items, false, nil
	}

	gen := u.generation(userID)
	seeded, err := u.fetchAndSeed(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(seeded) == 0 {
		return u.enrich(ctx, userID, seeded, gen), false, nil
	}

	// The request returns now; enrichment outlives it and reports over the
	// publisher.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.opts.AsyncTimeout)
	go func(items []domain.HistoryItem) {
		defer cancel()
		u.enrich(bg, userID, items, gen)
	}(domain.CloneItems(seeded))

	return seeded, true, nil
}

// fetchAndSeed lists the user's records and publishes them as loading items.
func (u *historyUsecase) fetchAndSeed(ctx context.Context, userID string) ([]domain.HistoryItem, error) {
	records, err := u.store.ListByUser(ctx, userID)
	if err != nil {
		u.metrics.HistoryLoad("error")
		u.log.Error("Failed to list history", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrListFetch, err)
	}
	u.metrics.HistoryLoad("store")

	seeded := make([]domain.HistoryItem, len(records))
	for i, r := range records {
		seeded[i] = domain.NewLoadingItem(r)
	}
	u.publishSnapshot(userID, seeded)
	return seeded, nil
}

// enrich resolves every item concurrently, waiting for all outcomes. A
// failed item only affects its own slot. The settled list is cached once,
// unless the user's history changed since gen was read.
func (u *historyUsecase) enrich(ctx context.Context, userID string, items []domain.HistoryItem, gen uint64) []domain.HistoryItem {
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(u.opts.FanoutLimit)

	for i := range items {
		mu.Lock()
		productURL := items[i].ProductURL
		mu.Unlock()

		g.Go(func() error {
			product, err := u.resolver.ResolveProduct(ctx, productURL)

			mu.Lock()
			if err != nil || product == nil {
				items[i] = items[i].Failed()
			} else {
				items[i] = items[i].Resolved(product)
			}
			settled := items[i]
			mu.Unlock()

			if err != nil || product == nil {
				u.metrics.HistoryEnrichment("failed")
				u.log.Warn("History item enrichment failed", "userID", userID, "itemID", settled.ID, "url", productURL, "error", err)
			} else {
				u.metrics.HistoryEnrichment("resolved")
			}
			u.publishItem(userID, i, settled)
			return nil
		})
	}
	_ = g.Wait()

	final := domain.CloneItems(items)

	u.cacheMu.Lock()
	defer u.cacheMu.Unlock()
	if u.generation(userID) != gen {
		u.log.Debug("History changed during load, not caching", "userID", userID)
		return final
	}
	if err := u.cache.Set(ctx, userID, cache.Entry{Items: final, FetchedAt: u.now()}); err != nil {
		u.log.Warn("Failed to cache history", "userID", userID, "error", err)
	}
	return final
}

func (u *historyUsecase) ClearHistory(ctx context.Context, userID string) (bool, error) {
	if entry, ok := u.freshEntry(ctx, userID); ok && len(entry.Items) == 0 {
		u.metrics.HistoryClear("noop")
		return false, nil
	}

	deleted, err := u.store.DeleteByUser(ctx, userID)
	if err != nil {
		u.metrics.HistoryClear("failed")
		u.log.Error("Failed to clear history", "userID", userID, "error", err)
		return false, fmt.Errorf("%w: %v", domain.ErrDelete, err)
	}

	empty := []domain.HistoryItem{}
	u.cacheMu.Lock()
	u.bumpGeneration(userID)
	if err := u.cache.Set(ctx, userID, cache.Entry{Items: empty, FetchedAt: u.now()}); err != nil {
		u.log.Warn("Failed to reset history cache", "userID", userID, "error", err)
	}
	u.cacheMu.Unlock()
	u.publishSnapshot(userID, empty)
	u.metrics.HistoryClear("ok")
	u.log.Info("History cleared", "userID", userID, "deleted", deleted)
	return true, nil
}

func (u *historyUsecase) ResolveItem(ctx context.Context, userID string, item domain.HistoryItem) (*productdomain.ProductData, error) {
	if item.ProductData != nil {
		u.metrics.HistoryResolve("cached")
		return item.ProductData, nil
	}

	product, err := u.resolver.ResolveProduct(ctx, item.ProductURL)
	if err == nil && product == nil {
		err = errors.New("empty product")
	}
	if err != nil {
		u.metrics.HistoryResolve("failed")
		u.log.Warn("History item resolution failed", "userID", userID, "itemID", item.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRetryResolution, err)
	}

	u.metrics.HistoryResolve("fetched")
	u.writeBack(ctx, userID, item.ID, product)
	return product, nil
}

func (u *historyUsecase) ResolveByID(ctx context.Context, userID, id string) (*productdomain.ProductData, error) {
	if entry, ok := u.freshEntry(ctx, userID); ok {
		for _, item := range entry.Items {
			if item.ID == id {
				return u.ResolveItem(ctx, userID, item)
			}
		}
	}

	record, err := u.store.FindByID(ctx, userID, id)
	if err != nil {
		u.log.Error("Failed to load history item", "userID", userID, "itemID", id, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRetryResolution, err)
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return u.ResolveItem(ctx, userID, domain.HistoryItem{HistoryRecord: *record})
}

// writeBack stores a resolved product into the cached list in place of that
// one item. The entry keeps its original fetch time.
func (u *historyUsecase) writeBack(ctx context.Context, userID, itemID string, product *productdomain.ProductData) {
	u.cacheMu.Lock()
	defer u.cacheMu.Unlock()

	entry, ok := u.freshEntry(ctx, userID)
	if !ok {
		return
	}
	for i, item := range entry.Items {
		if item.ID != itemID {
			continue
		}
		items := domain.CloneItems(entry.Items)
		items[i] = item.Resolved(product)
		if err := u.cache.Set(ctx, userID, cache.Entry{Items: items, FetchedAt: entry.FetchedAt}); err != nil {
			u.log.Warn("Failed to write resolved item back to cache", "userID", userID, "itemID", itemID, "error", err)
			return
		}
		u.publishItem(userID, i, items[i])
		return
	}
}

func (u *historyUsecase) SearchHistory(items []domain.HistoryItem, query string) []domain.HistoryItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	type scored struct {
		item  domain.HistoryItem
		score float64
	}
	var matches []scored
	for _, item := range items {
		p := item.ProductData
		if p == nil || !fuzzy.MatchProduct(query, p.Title, p.Brand, p.Categories) {
			continue
		}
		matches = append(matches, scored{item, fuzzy.RelevanceScore(query, p.Title, p.Brand, p.Categories)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]domain.HistoryItem, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}

func (u *historyUsecase) RecordLookup(ctx context.Context, userID, productID, productURL string) error {
	if _, err := u.store.Touch(ctx, userID, productID, productURL); err != nil {
		return err
	}

	u.cacheMu.Lock()
	defer u.cacheMu.Unlock()
	u.bumpGeneration(userID)
	if err := u.cache.Invalidate(ctx, userID); err != nil {
		u.log.Warn("Failed to invalidate history cache", "userID", userID, "error", err)
	}
	return nil
}

func (u *historyUsecase) generation(userID string) uint64 {
	u.genMu.Lock()
	defer u.genMu.Unlock()
	return u.generations[userID]
}

func (u *historyUsecase) bumpGeneration(userID string) {
	u.genMu.Lock()
	defer u.genMu.Unlock()
	u.generations[userID]++
}

// freshEntry returns the user's cached list if it is younger than the TTL.
// Cache errors count as a miss.
func (u *historyUsecase) freshEntry(ctx context.Context, userID string) (cache.Entry, bool) {
	entry, ok, err := u.cache.Get(ctx, userID)
	if err != nil {
		u.log.Warn("History cache read failed", "userID", userID, "error", err)
		return cache.Entry{}, false
	}
	if !ok || !entry.Fresh(u.now(), u.opts.CacheTTL) {
		return cache.Entry{}, false
	}
	return entry, true
}

func (u *historyUsecase) publishSnapshot(userID string, items []domain.HistoryItem) {
	if u.publisher == nil {
		return
	}
	u.publisher.PublishSnapshot(userID, domain.CloneItems(items))
}

func (u *historyUsecase) publishItem(userID string, index int, item domain.HistoryItem) {
	if u.publisher == nil {
		return
	}
	u.publisher.PublishItem(userID, index, item)
}
