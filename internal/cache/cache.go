package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cinefuse/internal/config"
)

// Store is the gateway response cache. Implementations are safe for
// concurrent use; key races resolve last-write-wins.
type Store interface {
	// Get returns the cached value for key. The second return reports
	// whether a fresh entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for the given TTL. A non-positive TTL
	// falls back to the implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// New constructs the cache backend selected by configuration.
func New(cfg *config.Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	defaultTTL := time.Duration(cfg.Cache.DefaultTTLHours) * time.Hour
	switch backend {
	case "", "memory":
		return NewMemory(defaultTTL), nil
	case "badger":
		return NewBadger(cfg.Cache.Dir, defaultTTL)
	default:
		return nil, fmt.Errorf("cache backend: unsupported value %q", cfg.Cache.Backend)
	}
}

// Key derives the deterministic cache key for a request. Params are
// canonicalized by sorted encoding, so equivalent requests share a key
// regardless of parameter order.
func Key(method, baseURL, endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(method)))
	b.WriteByte('\n')
	b.WriteString(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(endpoint))
	b.WriteByte('\n')
	if len(params) > 0 {
		b.WriteString(params.Encode())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "gw:" + hex.EncodeToString(sum[:])
}
