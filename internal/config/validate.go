package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateComposite(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateProviders() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cinefuse/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'cinefuse config init')", defaultPath)
	}
	if c.OMDB.Enabled && c.OMDB.APIKey == "" {
		return errors.New("omdb.api_key must be set when omdb.enabled is true (or set OMDB_API_KEY)")
	}
	if c.Kinopoisk.Enabled && c.Kinopoisk.APIKey == "" {
		return errors.New("kinopoisk.api_key must be set when kinopoisk.enabled is true (or set KINOPOISK_API_KEY)")
	}
	return nil
}

func (c *Config) validateGateway() error {
	return ensurePositiveMap(map[string]int{
		"gateway.request_timeout":  c.Gateway.RequestTimeout,
		"gateway.max_retries":      c.Gateway.MaxRetries,
		"gateway.backoff_millis":   c.Gateway.BackoffMillis,
		"gateway.rate_burst":       c.Gateway.RateBurst,
		"gateway.breaker_failures": c.Gateway.BreakerFailures,
	})
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"badger\", got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "badger" && strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set when cache.backend is \"badger\"")
	}
	return nil
}

func (c *Config) validateComposite() error {
	for source, weight := range c.Composite.Weights {
		if strings.TrimSpace(source) == "" {
			return errors.New("composite.weights contains an empty source tag")
		}
		if weight < 0 {
			return fmt.Errorf("composite.weights.%s must be >= 0", source)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	return ensurePositiveMap(map[string]int{
		"scheduler.refresh_max_age_hours": c.Scheduler.RefreshMaxAgeHours,
		"scheduler.refresh_batch_size":    c.Scheduler.RefreshBatchSize,
		"scheduler.trending_pages":        c.Scheduler.TrendingPages,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
