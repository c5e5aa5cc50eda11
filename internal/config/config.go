// Package config loads the marketmood client configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	API struct {
		BaseURL        string  `yaml:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
	} `yaml:"api"`

	Realtime struct {
		URL                 string `yaml:"url"`
		PingIntervalSeconds int    `yaml:"ping_interval_seconds"`
	} `yaml:"realtime"`

	News struct {
		FeedURL            string `yaml:"feed_url"`
		TTLHours           int    `yaml:"ttl_hours"`
		DegradedTTLMinutes int    `yaml:"degraded_ttl_minutes"`
	} `yaml:"news"`

	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	Widgets struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	} `yaml:"widgets"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.API.BaseURL = "http://localhost:4000"
	c.Realtime.URL = "ws://localhost:4000/ws"
	c.News.FeedURL = "http://localhost:4000/api/news"
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.API.RatePerSecond == 0 {
		c.API.RatePerSecond = 5.0
	}
	if c.API.Burst == 0 {
		c.API.Burst = 10
	}
	if c.Realtime.PingIntervalSeconds == 0 {
		c.Realtime.PingIntervalSeconds = 30
	}
	if c.News.TTLHours == 0 {
		c.News.TTLHours = 24
	}
	if c.News.DegradedTTLMinutes == 0 {
		c.News.DegradedTTLMinutes = 30
	}
	if c.Widgets.PollIntervalSeconds == 0 {
		c.Widgets.PollIntervalSeconds = 15
	}
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.News.FeedURL == "" {
		return fmt.Errorf("news.feed_url is required")
	}
	if time.Duration(c.News.DegradedTTLMinutes)*time.Minute >= time.Duration(c.News.TTLHours)*time.Hour {
		return fmt.Errorf("news.degraded_ttl_minutes must be shorter than news.ttl_hours")
	}
	return nil
}

// NewsTTL returns the freshness window for live feed data.
func (c *Config) NewsTTL() time.Duration {
	return time.Duration(c.News.TTLHours) * time.Hour
}

// DegradedTTL returns the shortened window for fallback content.
func (c *Config) DegradedTTL() time.Duration {
	return time.Duration(c.News.DegradedTTLMinutes) * time.Minute
}

// APITimeout returns the backend request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PingInterval returns the realtime keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Realtime.PingIntervalSeconds) * time.Second
}

// PollInterval returns the widget polling backstop interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Widgets.PollIntervalSeconds) * time.Second
}
