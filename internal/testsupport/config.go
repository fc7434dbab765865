package testsupport

import (
	"path/filepath"
	"testing"

	"cinefuse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Backend = "memory"
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithOMDB enables the OMDB provider with the given key.
func WithOMDB(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OMDB.Enabled = true
		b.cfg.OMDB.APIKey = key
	}
}

// WithKinopoisk enables the Kinopoisk provider with the given key.
func WithKinopoisk(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Kinopoisk.Enabled = true
		b.cfg.Kinopoisk.APIKey = key
	}
}

// WithCacheBackend overrides the gateway cache backend on the test config.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithWeights replaces the composite weight table on the test config.
func WithWeights(weights map[string]float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Composite.Weights = weights
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
