// Package config holds the campus client settings: portal API access, news
// scraping, the local cache, logging and the local HTTP server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/scraper"
)

// Default endpoints.
const (
	DefaultAPIBaseURL    = "http://localhost:1337"
	DefaultScrapeBaseURL = "https://www.agh.edu.pl"
	DefaultCacheFile     = "cache.db"
	DefaultServerAddr    = "127.0.0.1:8080"
)

// APIConfig configures portal REST access.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

// ScrapeConfig configures news retrieval.
type ScrapeConfig struct {
	BaseURL     string            `yaml:"base_url"`
	FeedURL     string            `yaml:"feed_url"`
	Pages       int               `yaml:"pages"`
	Concurrency int               `yaml:"concurrency"`
	Selectors   scraper.Selectors `yaml:"selectors"`
}

// CacheConfig configures the local cache.
type CacheConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config represents the structure of ~/.campus/config.yaml.
type Config struct {
	API    APIConfig     `yaml:"api"`
	Scrape ScrapeConfig  `yaml:"scrape"`
	Cache  CacheConfig   `yaml:"cache"`
	Log    logger.Config `yaml:"log"`
	Server ServerConfig  `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:  DefaultAPIBaseURL,
			Timeout:  fetcher.DefaultTimeout,
			PageSize: paging.DefaultPageSize,
		},
		Scrape: ScrapeConfig{
			BaseURL:     DefaultScrapeBaseURL,
			Pages:       newsfeed.DefaultPages,
			Concurrency: scraper.DefaultConcurrency,
			Selectors:   scraper.DefaultSelectors(),
		},
		Cache:  CacheConfig{DSN: defaultCacheDSN()},
		Log:    logger.Config{Level: logger.DefaultLevel},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// defaultCacheDSN places the cache next to the config file in ~/.campus,
// falling back to the working directory when there is no home directory.
func defaultCacheDSN() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultCacheFile
	}
	return filepath.Join(homeDir, DirName, DefaultCacheFile)
}

// Validate checks values that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"api.base_url": c.API.BaseURL, "scrape.base_url": c.Scrape.BaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout: must be positive")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("invalid api.page_size: must be positive")
	}
	if c.Scrape.Pages < scraper.MinPages || c.Scrape.Pages > scraper.MaxPages {
		return fmt.Errorf("invalid scrape.pages: must be between %d and %d", scraper.MinPages, scraper.MaxPages)
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("invalid scrape.concurrency: must be positive")
	}
	if c.Cache.DSN == "" {
		return fmt.Errorf("invalid cache.dsn: must not be empty")
	}
	return nil
}
