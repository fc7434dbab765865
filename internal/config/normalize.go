package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeGateway()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProviders() {
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.CacheTTLHours <= 0 {
		c.TMDB.CacheTTLHours = defaultTMDBCacheHours
	}

	c.OMDB.APIKey = strings.TrimSpace(c.OMDB.APIKey)
	if c.OMDB.APIKey == "" {
		if value, ok := os.LookupEnv("OMDB_API_KEY"); ok {
			c.OMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.OMDB.BaseURL = strings.TrimSpace(c.OMDB.BaseURL)
	if c.OMDB.BaseURL == "" {
		c.OMDB.BaseURL = defaultOMDBBaseURL
	}
	if c.OMDB.CacheTTLHours <= 0 {
		c.OMDB.CacheTTLHours = defaultOMDBCacheHours
	}

	c.Kinopoisk.APIKey = strings.TrimSpace(c.Kinopoisk.APIKey)
	if c.Kinopoisk.APIKey == "" {
		if value, ok := os.LookupEnv("KINOPOISK_API_KEY"); ok {
			c.Kinopoisk.APIKey = strings.TrimSpace(value)
		}
	}
	c.Kinopoisk.BaseURL = strings.TrimSpace(c.Kinopoisk.BaseURL)
	if c.Kinopoisk.BaseURL == "" {
		c.Kinopoisk.BaseURL = defaultKinopoiskBaseURL
	}
	if c.Kinopoisk.CacheTTLHours <= 0 {
		c.Kinopoisk.CacheTTLHours = defaultKinopoiskHours
	}
}

func (c *Config) normalizeGateway() {
	if c.Gateway.RequestTimeout <= 0 {
		c.Gateway.RequestTimeout = defaultRequestTimeout
	}
	if c.Gateway.MaxRetries <= 0 {
		c.Gateway.MaxRetries = defaultMaxRetries
	}
	if c.Gateway.BackoffMillis <= 0 {
		c.Gateway.BackoffMillis = defaultBackoffMillis
	}
	if c.Gateway.RateLimitPerSecond <= 0 {
		c.Gateway.RateLimitPerSecond = defaultRatePerSecond
	}
	if c.Gateway.RateBurst <= 0 {
		c.Gateway.RateBurst = defaultRateBurst
	}
	if c.Gateway.BreakerFailures <= 0 {
		c.Gateway.BreakerFailures = defaultBreakerFailures
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.DefaultTTLHours <= 0 {
		c.Cache.DefaultTTLHours = defaultCacheTTLHours
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.RefreshSpec = strings.TrimSpace(c.Scheduler.RefreshSpec)
	c.Scheduler.TrendingSpec = strings.TrimSpace(c.Scheduler.TrendingSpec)
	c.Scheduler.HealthLogSpec = strings.TrimSpace(c.Scheduler.HealthLogSpec)
	if c.Scheduler.RefreshMaxAgeHours <= 0 {
		c.Scheduler.RefreshMaxAgeHours = defaultRefreshMaxAge
	}
	if c.Scheduler.RefreshBatchSize <= 0 {
		c.Scheduler.RefreshBatchSize = defaultRefreshBatch
	}
	if c.Scheduler.TrendingPages <= 0 {
		c.Scheduler.TrendingPages = defaultTrendingPages
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CINEFUSE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
