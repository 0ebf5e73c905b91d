package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding the config file and cache.
const DirName = ".campus"

// Path returns the location of ~/.campus/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.yaml"), nil
}

// LoadConfigFile loads configuration from path on top of base. The base is
// returned unchanged if the file doesn't exist (not an error). Returns error
// if the file exists but cannot be parsed.
func LoadConfigFile(path string, base Config) (Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys absent from the file keep their base values.
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the config file
// at path (Path() when empty), then CAMPUS_* environment variables.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg, err := LoadConfigFile(path, Default())
	if err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from CAMPUS_* environment variables.
func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("CAMPUS_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("CAMPUS_API_TIMEOUT", cfg.API.Timeout)
	cfg.API.PageSize = getEnvInt("CAMPUS_API_PAGE_SIZE", cfg.API.PageSize)
	cfg.Scrape.BaseURL = getEnv("CAMPUS_SCRAPE_BASE_URL", cfg.Scrape.BaseURL)
	cfg.Scrape.FeedURL = getEnv("CAMPUS_SCRAPE_FEED_URL", cfg.Scrape.FeedURL)
	cfg.Scrape.Pages = getEnvInt("CAMPUS_SCRAPE_PAGES", cfg.Scrape.Pages)
	cfg.Scrape.Concurrency = getEnvInt("CAMPUS_SCRAPE_CONCURRENCY", cfg.Scrape.Concurrency)
	cfg.Cache.DSN = getEnv("CAMPUS_CACHE_DSN", cfg.Cache.DSN)
	cfg.Log.Level = getEnv("CAMPUS_LOG_LEVEL", cfg.Log.Level)
	cfg.Server.Addr = getEnv("CAMPUS_SERVER_ADDR", cfg.Server.Addr)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
