package news

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketmood/marketmood/internal/metrics"
)

// ServiceConfig controls the freshness windows of the news service.
type ServiceConfig struct {
	// TTL is the freshness window for genuine feed data.
	TTL time.Duration
	// DegradedTTL is the shortened window applied after a failed fetch, so
	// the next caller retries the feed sooner. Must be shorter than TTL.
	DegradedTTL time.Duration
	// StoreLabel tags cache metrics with the backing store kind.
	StoreLabel string
}

// DefaultServiceConfig returns the production freshness windows: 24 hours for
// live data, 30 minutes for fallback content.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		TTL:         24 * time.Hour,
		DegradedTTL: 30 * time.Minute,
		StoreLabel:  "memory",
	}
}

// Service serves news content through a time-boxed cache. Reads never fail:
// a fresh cache hit returns immediately with no network call, a stale or
// empty cache triggers exactly one feed attempt, and feed failures degrade
// to built-in sample content cached under the shortened window.
type Service struct {
	store   Store
	source  Source
	config  ServiceConfig
	metrics *metrics.Registry

	// generation is a monotonic fetch counter; entries carry it so the store
	// can reject a slow stale fetch that resolves after a newer write.
	generation atomic.Uint64

	clock func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a news service over the given store and feed source.
// reg may be nil to disable metrics.
func NewService(store Store, source Source, config ServiceConfig, reg *metrics.Registry) *Service {
	return &Service{
		store:   store,
		source:  source,
		config:  config,
		metrics: reg,
		clock:   time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch returns the current news items. It consults the cache first and only
// touches the network when the cache is stale or empty. It never returns an
// error: feed failures are absorbed into the fallback path.
func (s *Service) Fetch(ctx context.Context) []Item {
	now := s.clock()

	if entry, ok := s.store.Get(ctx); ok {
		ttl := s.config.TTL
		if entry.Degraded {
			ttl = s.config.DegradedTTL
		}
		if entry.Fresh(ttl, now) {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(s.config.StoreLabel)
			}
			return entry.Items
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.config.StoreLabel)
	}

	generation := s.generation.Add(1)

	articles, err := s.source.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("news feed unavailable, serving sample content")
		return s.serveFallback(ctx, generation)
	}

	now = s.clock()
	items := make([]Item, 0, len(articles))
	for _, a := range articles {
		published := a.PublishedAt
		if published.IsZero() {
			published = now
		}
		items = append(items, Item{
			Title:          a.Title,
			Source:         a.Source,
			PublishedLabel: RelativeLabel(published, now),
			Category:       normalizeCategory(a.Category),
			Sentiment:      normalizeSentiment(a.Sentiment),
			Summary:        a.Summary,
		})
	}

	entry := &Entry{Items: items, WrittenAt: now, Generation: generation}
	if !s.store.Set(ctx, entry, s.config.TTL) {
		if s.metrics != nil {
			s.metrics.StaleWrites.Inc()
		}
		log.Debug().Uint64("generation", generation).Msg("news cache write lost to a newer fetch")
	}
	return items
}

func (s *Service) serveFallback(ctx context.Context, generation uint64) []Item {
	if s.metrics != nil {
		s.metrics.Fallbacks.Inc()
	}

	s.rngMu.Lock()
	items := fallbackItems(s.rng)
	s.rngMu.Unlock()

	entry := &Entry{
		Items:      items,
		WrittenAt:  s.clock(),
		Generation: generation,
		Degraded:   true,
	}
	if !s.store.Set(ctx, entry, s.config.DegradedTTL) {
		if s.metrics != nil {
			s.metrics.StaleWrites.Inc()
		}
	}
	return items
}

// ClearCache removes the cached entry; the next Fetch is guaranteed to
// attempt the feed.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}
