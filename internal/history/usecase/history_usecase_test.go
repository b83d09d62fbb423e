package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sustainly-backend/internal/history/cache"
	"sustainly-backend/internal/history/domain"
	productdomain "sustainly-backend/internal/product/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	records     []domain.HistoryRecord
	listErr     error
	deleteErr   error
	listCalls   int
	deleteCalls int
	touched     []string
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.HistoryRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByID(_ context.Context, userID, id string) (*domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id && r.UserID == userID {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.records[:0]
	var n int64
	for _, r := range f.records {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return n, nil
}

func (f *fakeStore) Touch(_ context.Context, userID, productID, productURL string) (*domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, userID+" "+productURL)
	rec := domain.HistoryRecord{ID: "new", UserID: userID, ProductID: productID, ProductURL: productURL}
	f.records = append([]domain.HistoryRecord{rec}, f.records...)
	return &rec, nil
}

func (f *fakeStore) counts() (list, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.deleteCalls
}

type fakeResolver struct {
	mu       sync.Mutex
	products map[string]*productdomain.ProductData
	calls    map[string]int
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func newResolver() *fakeResolver {
	return &fakeResolver{
		products: map[string]*productdomain.ProductData{},
		calls:    map[string]int{},
	}
}

func (f *fakeResolver) ResolveProduct(ctx context.Context, productURL string) (*productdomain.ProductData, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[productURL]++
	if p, ok := f.products[productURL]; ok {
		return p, nil
	}
	return nil, errors.New("upstream returned 500")
}

func (f *fakeResolver) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeResolver) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type event struct {
	kind  string
	index int
	items []domain.HistoryItem
	item  domain.HistoryItem
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) PublishSnapshot(_ string, items []domain.HistoryItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{kind: "snapshot", items: items})
}

func (p *recordingPublisher) PublishItem(_ string, index int, item domain.HistoryItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{kind: "item", index: index, item: item})
}

func (p *recordingPublisher) all() []event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event(nil), p.events...)
}

func urlFor(n int) string {
	return fmt.Sprintf("https://www.amazon.com/dp/B00000000%d", n)
}

// fixture builds a user with n history records; every product resolves
// except the ones listed in failing.
func fixture(n int, failing ...int) (*fakeStore, *fakeResolver) {
	store := &fakeStore{}
	resolver := newResolver()
	fail := map[int]bool{}
	for _, i := range failing {
		fail[i] = true
	}
	for i := 1; i <= n; i++ {
		store.records = append(store.records, domain.HistoryRecord{
			ID:         fmt.Sprintf("h%d", i),
			UserID:     "u1",
			ProductURL: urlFor(i),
			UpdatedAt:  time.Now().Add(-time.Duration(i) * time.Minute),
		})
		if !fail[i] {
			resolver.products[urlFor(i)] = &productdomain.ProductData{
				ProductID: fmt.Sprintf("B00000000%d", i),
				Title:     fmt.Sprintf("Product %d", i),
			}
		}
	}
	return store, resolver
}

func newUsecase(store *fakeStore, resolver *fakeResolver, c cache.Cache) *historyUsecase {
	if c == nil {
		c = cache.NewMemoryCache(0)
	}
	return NewHistoryUsecase(store, resolver, c, Options{CacheTTL: 5 * time.Minute, FanoutLimit: 4}, nil, nil).(*historyUsecase)
}

func TestLoadHistoryTwiceWithinTTLFetchesListOnce(t *testing.T) {
	store, resolver := fixture(2)
	uc := newUsecase(store, resolver, nil)
	ctx := context.Background()

	first, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	second, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	list, _ := store.counts()
	assert.Equal(t, 1, list)
	assert.Equal(t, 2, resolver.totalCalls())
	assert.Equal(t, first, second)
}

func TestLoadHistoryRefetchesAfterTTL(t *testing.T) {
	store, resolver := fixture(1)
	uc := newUsecase(store, resolver, nil)
	now := time.Now()
	uc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	_, err = uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	list, _ := store.counts()
	assert.Equal(t, 2, list)
}

func TestSeededListPublishedBeforeEnrichment(t *testing.T) {
	store, resolver := fixture(3)
	uc := newUsecase(store, resolver, nil)
	pub := &recordingPublisher{}
	uc.SetPublisher(pub)

	_, err := uc.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)

	events := pub.all()
	require.Len(t, events, 4)
	assert.Equal(t, "snapshot", events[0].kind)
	require.Len(t, events[0].items, 3)
	for _, it := range events[0].items {
		assert.True(t, it.IsLoading)
		assert.Nil(t, it.ProductData)
	}

	seen := map[int]bool{}
	for _, ev := range events[1:] {
		assert.Equal(t, "item", ev.kind)
		assert.False(t, ev.item.IsLoading)
		assert.Equal(t, fmt.Sprintf("h%d", ev.index+1), ev.item.ID, "item published at its own index")
		seen[ev.index] = true
	}
	assert.Len(t, seen, 3)
}

func TestLoadHistoryMixedOutcomes(t *testing.T) {
	store, resolver := fixture(3, 2)
	uc := newUsecase(store, resolver, nil)

	items, err := uc.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, items, 3)
	for _, it := range items {
		assert.False(t, it.IsLoading)
	}
	assert.Equal(t, "Product 1", items[0].ProductData.Title)
	assert.Nil(t, items[1].ProductData)
	assert.Equal(t, domain.StateFailed, items[1].State())
	assert.Equal(t, "Product 3", items[2].ProductData.Title)

	assert.Equal(t, []string{"h1", "h2", "h3"}, []string{items[0].ID, items[1].ID, items[2].ID}, "store order kept")
}

func TestLoadHistoryCachesOnlySettledList(t *testing.T) {
	store, resolver := fixture(3, 3)
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)

	_, err := uc.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)

	entry, ok, err := c.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Items, 3)
	for _, it := range entry.Items {
		assert.False(t, it.IsLoading)
	}
}

func TestLoadHistoryListFailureLeavesCacheUntouched(t *testing.T) {
	store, resolver := fixture(1)
	store.listErr = errors.New("connection refused")
	c := cache.NewMemoryCache(0)
	stale := cache.Entry{
		Items:     []domain.HistoryItem{domain.NewLoadingItem(domain.HistoryRecord{ID: "old"}).Failed()},
		FetchedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, c.Set(context.Background(), "u1", stale))
	uc := newUsecase(store, resolver, c)
	pub := &recordingPublisher{}
	uc.SetPublisher(pub)

	items, err := uc.LoadHistory(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrListFetch)
	assert.Nil(t, items)
	assert.Empty(t, pub.all())
	assert.Zero(t, resolver.totalCalls())

	entry, ok, _ := c.Get(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, "old", entry.Items[0].ID)
}

func TestLoadHistoryEmptyList(t *testing.T) {
	store, resolver := fixture(0)
	uc := newUsecase(store, resolver, nil)

	items, err := uc.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLoadHistoryRespectsFanoutLimit(t *testing.T) {
	store, resolver := fixture(10)
	resolver.delay = 20 * time.Millisecond
	uc := NewHistoryUsecase(store, resolver, cache.NewMemoryCache(0), Options{FanoutLimit: 3}, nil, nil)

	items, err := uc.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&resolver.maxInFlight), int32(3))
	assert.Greater(t, atomic.LoadInt32(&resolver.maxInFlight), int32(1), "items resolve concurrently")
}

func TestLoadHistoryIsolatesUsers(t *testing.T) {
	store, resolver := fixture(2)
	store.records = append(store.records, domain.HistoryRecord{ID: "x1", UserID: "u2", ProductURL: urlFor(9)})
	uc := newUsecase(store, resolver, nil)

	items, err := uc.LoadHistory(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "x1", items[0].ID)
}

func TestLoadHistoryAsyncContinuesAfterRequestEnds(t *testing.T) {
	store, resolver := fixture(2)
	resolver.delay = 10 * time.Millisecond
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)
	pub := &recordingPublisher{}
	uc.SetPublisher(pub)

	ctx, cancel := context.WithCancel(context.Background())
	seeded, pending, err := uc.LoadHistoryAsync(ctx, "u1")
	cancel()
	require.NoError(t, err)
	assert.True(t, pending)
	require.Len(t, seeded, 2)
	assert.True(t, seeded[0].IsLoading)

	require.Eventually(t, func() bool {
		entry, ok, _ := c.Get(context.Background(), "u1")
		return ok && len(entry.Items) == 2 && entry.Items[0].ProductData != nil && entry.Items[1].ProductData != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, seeded[0].IsLoading, "returned list is not mutated by the background run")

	items, pending, err := uc.LoadHistoryAsync(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, pending)
	assert.NotNil(t, items[0].ProductData)
}

func TestClearDuringAsyncLoadIsNotUndone(t *testing.T) {
	store, resolver := fixture(1)
	resolver.delay = 100 * time.Millisecond
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)
	ctx := context.Background()

	_, pending, err := uc.LoadHistoryAsync(ctx, "u1")
	require.NoError(t, err)
	require.True(t, pending)

	cleared, err := uc.ClearHistory(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cleared)

	// Wait for the background enrichment to finish
	require.Eventually(t, func() bool { return resolver.callCount(urlFor(1)) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	items, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	list, _ := store.counts()
	assert.Equal(t, 1, list, "empty list is served from the cache")
}

func TestLookupDuringLoadShowsOnNextLoad(t *testing.T) {
	store, resolver := fixture(1)
	resolver.delay = 100 * time.Millisecond
	resolver.products[urlFor(7)] = &productdomain.ProductData{Title: "Product 7"}
	uc := newUsecase(store, resolver, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = uc.LoadHistory(ctx, "u1")
	}()

	// Let the load list the single record before the lookup lands
	require.Eventually(t, func() bool {
		list, _ := store.counts()
		return list == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, uc.RecordLookup(ctx, "u1", "B000000007", urlFor(7)))
	<-done

	items, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].ID)
}

func TestResolveItemWithProductSkipsNetwork(t *testing.T) {
	store, resolver := fixture(1)
	uc := newUsecase(store, resolver, nil)
	p := &productdomain.ProductData{Title: "Known"}
	item := domain.NewLoadingItem(domain.HistoryRecord{ID: "h1", ProductURL: urlFor(1)}).Resolved(p)

	got, err := uc.ResolveItem(context.Background(), "u1", item)
	require.NoError(t, err)
	assert.Same(t, p, got)
	assert.Zero(t, resolver.totalCalls())
}

func TestResolveByIDIsIdempotent(t *testing.T) {
	store, resolver := fixture(2, 2)
	uc := newUsecase(store, resolver, nil)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.callCount(urlFor(2)))

	// The product becomes available; the retry fetches it exactly once.
	resolver.mu.Lock()
	resolver.products[urlFor(2)] = &productdomain.ProductData{Title: "Product 2"}
	resolver.mu.Unlock()

	first, err := uc.ResolveByID(ctx, "u1", "h2")
	require.NoError(t, err)
	second, err := uc.ResolveByID(ctx, "u1", "h2")
	require.NoError(t, err)

	assert.Equal(t, "Product 2", first.Title)
	assert.Same(t, first, second)
	assert.Equal(t, 2, resolver.callCount(urlFor(2)))
}

func TestResolveWritesBackOnlyThatEntry(t *testing.T) {
	store, resolver := fixture(3, 2, 3)
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)
	pub := &recordingPublisher{}
	uc.SetPublisher(pub)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	before, _, _ := c.Get(ctx, "u1")

	resolver.mu.Lock()
	resolver.products[urlFor(2)] = &productdomain.ProductData{Title: "Product 2"}
	resolver.mu.Unlock()

	_, err = uc.ResolveByID(ctx, "u1", "h2")
	require.NoError(t, err)

	after, ok, _ := c.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, before.Items[0], after.Items[0])
	assert.Equal(t, "Product 2", after.Items[1].ProductData.Title)
	assert.Equal(t, domain.StateFailed, after.Items[2].State())
	assert.True(t, before.FetchedAt.Equal(after.FetchedAt), "write-back keeps the fetch time")

	events := pub.all()
	last := events[len(events)-1]
	assert.Equal(t, "item", last.kind)
	assert.Equal(t, 1, last.index)
}

func TestResolveFailureReportsRetryError(t *testing.T) {
	store, resolver := fixture(1, 1)
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	_, err = uc.ResolveByID(ctx, "u1", "h1")
	assert.ErrorIs(t, err, domain.ErrRetryResolution)
	assert.Equal(t, 2, resolver.callCount(urlFor(1)), "exactly one retry fetch")

	entry, _, _ := c.Get(ctx, "u1")
	assert.Equal(t, domain.StateFailed, entry.Items[0].State())
}

func TestResolveByIDFallsBackToStore(t *testing.T) {
	store, resolver := fixture(1)
	uc := newUsecase(store, resolver, nil)

	got, err := uc.ResolveByID(context.Background(), "u1", "h1")
	require.NoError(t, err)
	assert.Equal(t, "Product 1", got.Title)

	_, err = uc.ResolveByID(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.ResolveByID(context.Background(), "u2", "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users' items are not visible")
}

func TestClearHistoryFailureLeavesListUnchanged(t *testing.T) {
	store, resolver := fixture(2)
	store.deleteErr = errors.New("deadlock detected")
	c := cache.NewMemoryCache(0)
	uc := newUsecase(store, resolver, c)
	ctx := context.Background()

	loaded, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	cleared, err := uc.ClearHistory(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrDelete)
	assert.False(t, cleared)

	entry, ok, _ := c.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, loaded, entry.Items)
	assert.Len(t, store.records, 2)
}

func TestClearHistorySuccessEmptiesListAndCache(t *testing.T) {
	store, resolver := fixture(2)
	uc := newUsecase(store, resolver, nil)
	pub := &recordingPublisher{}
	uc.SetPublisher(pub)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	cleared, err := uc.ClearHistory(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cleared)

	events := pub.all()
	last := events[len(events)-1]
	assert.Equal(t, "snapshot", last.kind)
	assert.Empty(t, last.items)

	items, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	list, _ := store.counts()
	assert.Equal(t, 1, list, "fresh empty cache is served without a fetch")
}

func TestClearHistoryWithNoRecordsIsNoop(t *testing.T) {
	store, resolver := fixture(0)
	uc := newUsecase(store, resolver, nil)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	cleared, err := uc.ClearHistory(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, cleared)
	_, del := store.counts()
	assert.Zero(t, del)
}

func TestRecordLookupInvalidatesCache(t *testing.T) {
	store, resolver := fixture(1)
	uc := newUsecase(store, resolver, nil)
	ctx := context.Background()

	_, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)

	resolver.products[urlFor(7)] = &productdomain.ProductData{Title: "Product 7"}
	require.NoError(t, uc.RecordLookup(ctx, "u1", "B000000007", urlFor(7)))

	items, err := uc.LoadHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Product 7", items[0].ProductData.Title)
}

func TestSearchHistory(t *testing.T) {
	uc := newUsecase(&fakeStore{}, newResolver(), nil)
	items := []domain.HistoryItem{
		domain.NewLoadingItem(domain.HistoryRecord{ID: "a"}).Resolved(&productdomain.ProductData{Title: "Steel Kettle", Brand: "Acme"}),
		domain.NewLoadingItem(domain.HistoryRecord{ID: "b"}).Failed(),
		domain.NewLoadingItem(domain.HistoryRecord{ID: "c"}).Resolved(&productdomain.ProductData{Title: "Bamboo Toothbrush", Brand: "Kettle & Co"}),
	}

	got := uc.SearchHistory(items, "kettle")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "title match ranks first")
	assert.Equal(t, "c", got[1].ID)

	assert.Equal(t, items, uc.SearchHistory(items, "  "))
	assert.Empty(t, uc.SearchHistory(items, "laptop"))
}
