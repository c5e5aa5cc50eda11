package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Source fetches raw articles from the remote news feed. Implementations must
// bound their own latency; the service treats any error as a full miss and
// falls back to sample content.
type Source interface {
	Fetch(ctx context.Context) ([]Article, error)
}

// Article is the wire shape of one feed entry. Category and sentiment are
// optional; absent values are normalized at transform time.
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Category    string    `json:"category"`
	Sentiment   string    `json:"sentiment"`
	Summary     string    `json:"summary"`
}

// HTTPSourceConfig configures the feed client.
type HTTPSourceConfig struct {
	URL            string
	RequestTimeout time.Duration
	RatePerSecond  float64
	Burst          int
}

// DefaultHTTPSourceConfig returns conservative feed client defaults.
func DefaultHTTPSourceConfig(url string) HTTPSourceConfig {
	return HTTPSourceConfig{
		URL:            url,
		RequestTimeout: 10 * time.Second,
		RatePerSecond:  1.0,
		Burst:          2,
	}
}

// HTTPSource fetches the feed over HTTP with a bounded timeout, a per-source
// rate limit, and a circuit breaker so a dead feed fails fast instead of
// eating the timeout on every call.
type HTTPSource struct {
	config  HTTPSourceConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPSource creates a feed client. httpClient may be nil, in which case a
// client with the configured request timeout is used.
func NewHTTPSource(config HTTPSourceConfig, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}

	settings := gobreaker.Settings{
		Name:    "news-feed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("news feed breaker state change")
		},
	}

	return &HTTPSource{
		config:  config,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Article, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("news feed rate limit: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Article), nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	var payload struct {
		Articles []Article `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode news feed: %w", err)
	}
	if len(payload.Articles) == 0 {
		return nil, fmt.Errorf("news feed returned no articles")
	}
	return payload.Articles, nil
}
