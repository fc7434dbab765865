package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDataDir          = "~/.local/share/cinefuse"
	defaultLogDir           = "~/.local/share/cinefuse/logs"
	defaultLogRetentionDays = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	defaultTMDBLanguage     = "en-US"
	defaultTMDBCacheHours   = 24
	defaultOMDBBaseURL      = "https://www.omdbapi.com"
	defaultOMDBCacheHours   = 12
	defaultKinopoiskBaseURL = "https://kinopoiskapiunofficial.tech/api"
	defaultKinopoiskHours   = 6

	defaultRequestTimeout   = 10
	defaultMaxRetries       = 3
	defaultBackoffMillis    = 1000
	defaultRatePerSecond    = 4.0
	defaultRateBurst        = 2
	defaultBreakerFailures  = 5
	defaultCacheTTLHours    = 12
	defaultAPIBind          = "127.0.0.1:7463"
	defaultNotifyTimeout    = 10
	defaultHeartbeatSeconds = 15
	defaultHeartbeatExpiry  = 120

	defaultRefreshSpec     = "0 */6 * * *"
	defaultRefreshMaxAge   = 168
	defaultRefreshBatch    = 20
	defaultTrendingSpec    = "30 5 * * *"
	defaultTrendingPages   = 1
	defaultHealthLogSpec   = "@hourly"
	defaultCompositeWeight = 0.25
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:       defaultTMDBBaseURL,
			Language:      defaultTMDBLanguage,
			CacheTTLHours: defaultTMDBCacheHours,
		},
		OMDB: OMDB{
			BaseURL:       defaultOMDBBaseURL,
			CacheTTLHours: defaultOMDBCacheHours,
		},
		Kinopoisk: Kinopoisk{
			BaseURL:       defaultKinopoiskBaseURL,
			CacheTTLHours: defaultKinopoiskHours,
		},
		Gateway: Gateway{
			RequestTimeout:     defaultRequestTimeout,
			MaxRetries:         defaultMaxRetries,
			BackoffMillis:      defaultBackoffMillis,
			RateLimitPerSecond: defaultRatePerSecond,
			RateBurst:          defaultRateBurst,
			BreakerFailures:    defaultBreakerFailures,
		},
		Cache: Cache{
			Backend:         "memory",
			Dir:             defaultCacheDir(),
			DefaultTTLHours: defaultCacheTTLHours,
		},
		Composite: Composite{
			Weights: map[string]float64{
				"tmdb":      defaultCompositeWeight,
				"imdb":      defaultCompositeWeight,
				"metascore": defaultCompositeWeight,
				"kinopoisk": defaultCompositeWeight,
			},
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatSeconds,
			HeartbeatTimeout:   defaultHeartbeatExpiry,
		},
		Scheduler: Scheduler{
			RefreshSpec:        defaultRefreshSpec,
			RefreshMaxAgeHours: defaultRefreshMaxAge,
			RefreshBatchSize:   defaultRefreshBatch,
			TrendingSpec:       defaultTrendingSpec,
			TrendingPages:      defaultTrendingPages,
			HealthLogSpec:      defaultHealthLogSpec,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Queue:          true,
			Completion:     true,
			Review:         true,
			Errors:         true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "cinefuse", "http")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/cinefuse/http"
	}
	return filepath.Join(home, ".cache", "cinefuse", "http")
}
