package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// TMDB configures the primary catalog provider.
type TMDB struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Language      string `toml:"language"`
	CacheTTLHours int    `toml:"cache_ttl_hours"`
}

// OMDB configures the ratings-aggregator provider.
type OMDB struct {
	Enabled       bool   `toml:"enabled"`
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	CacheTTLHours int    `toml:"cache_ttl_hours"`
}

// Kinopoisk configures the regional catalog provider.
type Kinopoisk struct {
	Enabled       bool   `toml:"enabled"`
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	CacheTTLHours int    `toml:"cache_ttl_hours"`
}

// Gateway configures the outbound HTTP request layer shared by all providers.
type Gateway struct {
	RequestTimeout     int     `toml:"request_timeout"`
	MaxRetries         int     `toml:"max_retries"`
	BackoffMillis      int     `toml:"backoff_millis"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
	RateBurst          int     `toml:"rate_burst"`
	BreakerFailures    int     `toml:"breaker_failures"`
}

// Cache configures the gateway response cache.
type Cache struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	DefaultTTLHours int    `toml:"default_ttl_hours"`
}

// Composite configures weighted scoring. Sources absent from the weight map
// are excluded from the weighted composite entirely.
type Composite struct {
	Weights map[string]float64 `toml:"weights"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Scheduler configures periodic jobs. An empty cron spec disables that job.
type Scheduler struct {
	RefreshSpec        string `toml:"refresh_spec"`
	RefreshMaxAgeHours int    `toml:"refresh_max_age_hours"`
	RefreshBatchSize   int    `toml:"refresh_batch_size"`
	TrendingSpec       string `toml:"trending_spec"`
	TrendingPages      int    `toml:"trending_pages"`
	HealthLogSpec      string `toml:"health_log_spec"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Completion     bool   `toml:"completion"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// API configures the local HTTP status endpoint.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cinefuse.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - TMDB / OMDB / Kinopoisk: provider endpoints, credentials, cache TTLs
//   - Gateway: outbound request timeout, retry budget, backoff, rate limits
//   - Cache: gateway response cache backend
//   - Composite: weighted scoring policy
//   - Workflow: daemon polling intervals and heartbeats
//   - Scheduler: periodic refresh/import job specs
//   - Notifications: ntfy push notification settings
//   - API: HTTP status endpoint bind and token
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	OMDB          OMDB          `toml:"omdb"`
	Kinopoisk     Kinopoisk     `toml:"kinopoisk"`
	Gateway       Gateway       `toml:"gateway"`
	Cache         Cache         `toml:"cache"`
	Composite     Composite     `toml:"composite"`
	Workflow      Workflow      `toml:"workflow"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinefuse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cinefuse.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Backend == "badger" && strings.TrimSpace(c.Cache.Dir) != "" {
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the location of the queue database file.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// CatalogDatabasePath returns the location of the film catalog database file.
func (c *Config) CatalogDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
