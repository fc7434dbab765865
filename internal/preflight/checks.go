package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"cinefuse/internal/cache"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/providers"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCacheBackend verifies the configured response cache opens. The badger
// backend needs a writable directory; memory always succeeds.
func CheckCacheBackend(cfg *config.Config) Result {
	const name = "Response cache"
	store, err := cache.New(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	_ = store.Close()
	backend := cfg.Cache.Backend
	if backend == "" {
		backend = "memory"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s backend ok", backend)}
}

// CheckProviders builds throwaway provider clients and probes each enabled
// one with a live request. Construction failures (missing keys) surface as a
// failed result so the daemon reports the misconfiguration instead of
// crashing into it later.
func CheckProviders(ctx context.Context, cfg *config.Config) []Result {
	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		return []Result{{Name: "Providers", Detail: err.Error()}}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var results []Result
	for _, status := range set.Health(checkCtx) {
		if !status.Enabled {
			continue
		}
		name := providerLabel(status.Provider)
		if status.Healthy {
			results = append(results, Result{Name: name, Passed: true, Detail: "API reachable"})
			continue
		}
		results = append(results, Result{Name: name, Detail: summarizeProbeError(status.Detail)})
	}
	return results
}

// ProviderStatuses reports all three provider rows, disabled ones included,
// for status displays that always show the full provider table.
func ProviderStatuses(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		return []Result{{Name: "Providers", Detail: err.Error()}}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var results []Result
	for _, status := range set.Health(checkCtx) {
		name := providerLabel(status.Provider)
		switch {
		case !status.Enabled:
			results = append(results, Result{Name: name, Passed: true, Detail: "Disabled"})
		case status.Healthy:
			results = append(results, Result{Name: name, Passed: true, Detail: "API reachable"})
		default:
			results = append(results, Result{Name: name, Detail: summarizeProbeError(status.Detail)})
		}
	}
	return results
}

func providerLabel(provider film.Provider) string {
	switch provider {
	case film.ProviderTMDB:
		return "TMDB"
	case film.ProviderOMDB:
		return "OMDB"
	case film.ProviderKinopoisk:
		return "Kinopoisk"
	default:
		return provider.String()
	}
}

func summarizeProbeError(detail string) string {
	if detail == "" {
		return "probe failed"
	}
	return detail
}
