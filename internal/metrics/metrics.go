package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Registry holds all Prometheus metrics for the marketmood client core.
type Registry struct {
	// News cache performance
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheHitRatio prometheus.Gauge
	Fallbacks     prometheus.Counter
	StaleWrites   prometheus.Counter

	// Realtime transport
	WSEvents     *prometheus.CounterVec
	WSSendErrors prometheus.Counter
	FanoutCalls  prometheus.Counter
	ActiveRooms  prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates and registers all marketmood metrics.
func NewRegistry() *Registry {
	r := &Registry{
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmood_news_cache_hits_total",
				Help: "Total news cache hits by store type",
			},
			[]string{"store"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmood_news_cache_misses_total",
				Help: "Total news cache misses by store type",
			},
			[]string{"store"},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketmood_news_cache_hit_ratio",
				Help: "Current news cache hit ratio (0.0 to 1.0)",
			},
		),
		Fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketmood_news_fallbacks_total",
				Help: "Total times the news service served built-in sample content",
			},
		),
		StaleWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketmood_news_stale_writes_rejected_total",
				Help: "Total out-of-order news cache writes rejected by the generation guard",
			},
		),
		WSEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmood_ws_events_total",
				Help: "Total realtime events received by event name",
			},
			[]string{"event"},
		),
		WSSendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketmood_ws_send_errors_total",
				Help: "Total realtime emit failures",
			},
		),
		FanoutCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketmood_fanout_callbacks_total",
				Help: "Total widget refresh callbacks invoked by asset sync fan-out",
			},
		),
		ActiveRooms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketmood_active_rooms",
				Help: "Number of asset rooms currently joined",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(
		r.CacheHits, r.CacheMisses, r.CacheHitRatio, r.Fallbacks, r.StaleWrites,
		r.WSEvents, r.WSSendErrors, r.FanoutCalls, r.ActiveRooms,
	)
	return r
}

// RecordCacheHit increments the hit counter and refreshes the hit ratio gauge.
func (r *Registry) RecordCacheHit(store string) {
	r.CacheHits.WithLabelValues(store).Inc()
	r.updateCacheHitRatio()
}

// RecordCacheMiss increments the miss counter and refreshes the hit ratio gauge.
func (r *Registry) RecordCacheMiss(store string) {
	r.CacheMisses.WithLabelValues(store).Inc()
	r.updateCacheHitRatio()
}

// updateCacheHitRatio recomputes the ratio gauge from the raw counters.
func (r *Registry) updateCacheHitRatio() {
	hitMetric := &io_prometheus_client.Metric{}
	missMetric := &io_prometheus_client.Metric{}

	totalHits := 0.0
	totalMisses := 0.0

	for _, store := range []string{"memory", "redis"} {
		if hit, err := r.CacheHits.GetMetricWithLabelValues(store); err == nil {
			if err := hit.Write(hitMetric); err == nil {
				totalHits += hitMetric.GetCounter().GetValue()
			}
		}
		if miss, err := r.CacheMisses.GetMetricWithLabelValues(store); err == nil {
			if err := miss.Write(missMetric); err == nil {
				totalMisses += missMetric.GetCounter().GetValue()
			}
		}
	}

	total := totalHits + totalMisses
	if total == 0 {
		return
	}
	r.CacheHitRatio.Set(totalHits / total)
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog: promLogger{},
	})
}

type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log.Error().Interface("args", v).Msg("prometheus handler error")
}
