package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/providers"
	"cinefuse/internal/testsupport"
)

func newHealthyServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Response":"True","imdbID":"tt0111161"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func pointAtServer(cfg *config.Config, url string) {
	cfg.TMDB.BaseURL = url
	cfg.OMDB.BaseURL = url
	cfg.Kinopoisk.BaseURL = url
	cfg.Gateway.BackoffMillis = 1
	cfg.Gateway.RateLimitPerSecond = 1000
}

func TestNewRequiresPrimary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TMDB.APIKey = ""
	if _, err := providers.New(cfg, nil, nil); err == nil {
		t.Fatal("expected error when the primary provider has no key")
	}
}

func TestNewSkipsDisabledProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if set.TMDB == nil {
		t.Fatal("expected the primary client to be constructed")
	}
	if set.OMDB != nil || set.Kinopoisk != nil {
		t.Fatal("expected disabled providers to stay nil")
	}
	if got := len(set.Enabled()); got != 1 {
		t.Fatalf("expected one enabled adapter, got %d", got)
	}
}

func TestNewConstructsEnabledProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithOMDB("omdb-key"),
		testsupport.WithKinopoisk("kp-key"),
	)
	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	adapters := set.Enabled()
	if len(adapters) != 3 {
		t.Fatalf("expected three enabled adapters, got %d", len(adapters))
	}
	want := []film.Provider{film.ProviderTMDB, film.ProviderOMDB, film.ProviderKinopoisk}
	for i, adapter := range adapters {
		if adapter.Tag() != want[i] {
			t.Fatalf("adapter %d: expected %s, got %s", i, want[i], adapter.Tag())
		}
	}
}

func TestHealthReportsDisabledProviders(t *testing.T) {
	server := newHealthyServer(t)
	cfg := testsupport.NewConfig(t)
	pointAtServer(cfg, server.URL)

	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	statuses := set.Health(context.Background())
	if len(statuses) != 3 {
		t.Fatalf("expected three statuses, got %d", len(statuses))
	}
	if !statuses[0].Enabled || !statuses[0].Healthy {
		t.Fatalf("expected a healthy primary, got %#v", statuses[0])
	}
	for _, status := range statuses[1:] {
		if status.Enabled || status.Healthy || status.Detail != "disabled" {
			t.Fatalf("expected a disabled status, got %#v", status)
		}
	}
}

func TestHealthReportsProbeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	pointAtServer(cfg, server.URL)

	set, err := providers.New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	statuses := set.Health(context.Background())
	if statuses[0].Healthy {
		t.Fatal("expected the probe failure to surface")
	}
	if statuses[0].Detail == "" {
		t.Fatal("expected a failure detail")
	}
}
