package news

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts fetch attempts and serves scripted results.
type fakeSource struct {
	mu       sync.Mutex
	attempts int
	articles []Article
	err      error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func (f *fakeSource) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func newTestService(source Source) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, source, DefaultServiceConfig(), nil)
	return svc, store
}

func TestFetch_CachesFor24Hours(t *testing.T) {
	source := &fakeSource{articles: []Article{
		{Title: "one", Source: "a"},
		{Title: "two", Source: "b"},
	}}
	svc, _ := newTestService(source)
	ctx := context.Background()

	first := svc.Fetch(ctx)
	require.Len(t, first, 2)
	assert.Equal(t, 1, source.attemptCount())

	// Repeated calls inside the freshness window never touch the network.
	for i := 0; i < 5; i++ {
		items := svc.Fetch(ctx)
		assert.Equal(t, first, items)
	}
	assert.Equal(t, 1, source.attemptCount())
}

func TestFetch_PreservesFeedOrder(t *testing.T) {
	source := &fakeSource{articles: []Article{
		{Title: "first"}, {Title: "second"}, {Title: "third"},
		{Title: "fourth"}, {Title: "fifth"},
	}}
	svc, _ := newTestService(source)

	items := svc.Fetch(context.Background())
	require.Len(t, items, 5)
	for i, want := range []string{"first", "second", "third", "fourth", "fifth"} {
		assert.Equal(t, want, items[i].Title)
	}
}

func TestFetch_NormalizesMissingFields(t *testing.T) {
	source := &fakeSource{articles: []Article{
		{Title: "untagged"},
		{Title: "tagged", Category: "Crypto", Sentiment: "bullish"},
		{Title: "junk tags", Category: "Astrology", Sentiment: "confused"},
	}}
	svc, _ := newTestService(source)

	items := svc.Fetch(context.Background())
	require.Len(t, items, 3)

	assert.Equal(t, CategoryMarkets, items[0].Category)
	assert.Equal(t, SentimentNeutral, items[0].Sentiment)
	assert.NotEmpty(t, items[0].PublishedLabel)

	assert.Equal(t, CategoryCrypto, items[1].Category)
	assert.Equal(t, SentimentBullish, items[1].Sentiment)

	assert.Equal(t, CategoryMarkets, items[2].Category)
	assert.Equal(t, SentimentNeutral, items[2].Sentiment)
}

func TestFetch_FallbackOnFeedFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	svc, _ := newTestService(source)

	items := svc.Fetch(context.Background())
	require.Len(t, items, 3)
	for _, item := range items {
		assert.NotEmpty(t, item.Title)
		assert.NotEmpty(t, item.PublishedLabel)
	}
	assert.Equal(t, 1, source.attemptCount())
}

func TestFetch_DegradedEntryRetriesSooner(t *testing.T) {
	source := &fakeSource{err: errors.New("timeout")}
	svc, _ := newTestService(source)
	ctx := context.Background()

	now := time.Now()
	svc.clock = func() time.Time { return now }

	svc.Fetch(ctx)
	require.Equal(t, 1, source.attemptCount())

	// Inside the degraded window the fallback entry is still served.
	svc.Fetch(ctx)
	assert.Equal(t, 1, source.attemptCount())

	// One hour later a 24h entry would still be fresh, but the degraded
	// window has lapsed and the feed is retried.
	now = now.Add(time.Hour)
	svc.Fetch(ctx)
	assert.Equal(t, 2, source.attemptCount())
}

func TestClearCache_ForcesNetworkAttempt(t *testing.T) {
	source := &fakeSource{articles: []Article{{Title: "one"}}}
	svc, _ := newTestService(source)
	ctx := context.Background()

	svc.Fetch(ctx)
	svc.Fetch(ctx)
	require.Equal(t, 1, source.attemptCount())

	require.NoError(t, svc.ClearCache(ctx))
	svc.Fetch(ctx)
	assert.Equal(t, 2, source.attemptCount())
}

func TestFallbackAfterSuccessOverwritesWholesale(t *testing.T) {
	source := &fakeSource{articles: []Article{{Title: "live"}}}
	svc, store := newTestService(source)
	ctx := context.Background()

	now := time.Now()
	svc.clock = func() time.Time { return now }

	svc.Fetch(ctx)

	// Feed dies; once the entry goes stale the fallback replaces it
	// entirely rather than merging.
	source.mu.Lock()
	source.err = errors.New("feed down")
	source.mu.Unlock()

	now = now.Add(25 * time.Hour)
	items := svc.Fetch(ctx)
	require.Len(t, items, 3)

	entry, ok := store.Get(ctx)
	require.True(t, ok)
	assert.True(t, entry.Degraded)
	assert.Len(t, entry.Items, 3)
}
