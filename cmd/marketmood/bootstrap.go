package main

import (
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketmood/marketmood/internal/config"
	"github.com/marketmood/marketmood/internal/localstore"
	"github.com/marketmood/marketmood/internal/metrics"
	"github.com/marketmood/marketmood/internal/news"
)

// deps is everything the commands share: config, stores, and the news
// service, wired once per invocation.
type deps struct {
	config  *config.Config
	metrics *metrics.Registry
	local   localstore.Store
	news    *news.Service
	redis   *redis.Client
}

func buildDeps(cmd *cobra.Command) (*deps, error) {
	applyVerbosity(cmd)

	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	reg := metrics.NewRegistry()

	redisAddr, _ := cmd.Flags().GetString("redis")
	if redisAddr == "" {
		redisAddr = cfg.Redis.Addr
	}

	d := &deps{config: cfg, metrics: reg}

	var newsStore news.Store
	storeLabel := "memory"
	if redisAddr != "" {
		d.redis = redis.NewClient(&redis.Options{Addr: redisAddr, DB: cfg.Redis.DB})
		d.local = localstore.NewRedisStore(d.redis)
		newsStore = news.NewRedisStore(d.redis)
		storeLabel = "redis"
		log.Info().Str("addr", redisAddr).Msg("using redis-backed client state")
	} else {
		d.local = localstore.NewMemoryStore()
		newsStore = news.NewMemoryStore()
	}

	sourceCfg := news.DefaultHTTPSourceConfig(cfg.News.FeedURL)
	source := news.NewHTTPSource(sourceCfg, nil)

	serviceCfg := news.ServiceConfig{
		TTL:         cfg.NewsTTL(),
		DegradedTTL: cfg.DegradedTTL(),
		StoreLabel:  storeLabel,
	}
	d.news = news.NewService(newsStore, source, serviceCfg, reg)

	return d, nil
}

func (d *deps) close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Debug().Err(err).Msg("redis close failed")
		}
	}
}
