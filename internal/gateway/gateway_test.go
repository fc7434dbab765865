package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"cinefuse/internal/cache"
	"cinefuse/internal/gateway"
	"cinefuse/internal/services"
)

func newGateway(t *testing.T, opts gateway.Options) *gateway.Gateway {
	t.Helper()
	if opts.Provider == "" {
		opts.Provider = "tmdb"
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	gw, err := gateway.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return gw
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := gateway.New(gateway.Options{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected error when provider missing")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := gateway.New(gateway.Options{Provider: "tmdb"}); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestDoReturnsBody(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("query") != "Heat" {
			t.Errorf("unexpected query params %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":949,"title":"Heat"}]}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL})
	params := url.Values{}
	params.Set("query", "Heat")
	body, err := gw.Do(context.Background(), gateway.Request{Endpoint: "search/movie", Params: params})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if !bytes.Contains(body, []byte(`"title":"Heat"`)) {
		t.Fatalf("unexpected body: %s", body)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 request, server saw %d", got)
	}
}

func TestDoAppliesAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("expected bearer auth header, got %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{
		BaseURL: server.URL,
		Auth: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer key")
		},
	})
	if _, err := gw.Do(context.Background(), gateway.Request{Endpoint: "movie/949"}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status_message":"throttled"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":949}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 3})
	body, err := gw.Do(context.Background(), gateway.Request{Endpoint: "movie/949"})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if !bytes.Equal(body, []byte(`{"id":949}`)) {
		t.Fatalf("unexpected body: %s", body)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected recovery on attempt 2, server saw %d requests", got)
	}
}

func TestDoServerErrorRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 3})
	if _, err := gw.Do(context.Background(), gateway.Request{Endpoint: "status"}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected success on attempt 3, server saw %d requests", got)
	}
}

func TestDoClientErrorConsumesBudget(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message":"not found"}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 3})
	_, err := gw.Do(context.Background(), gateway.Request{Endpoint: "movie/0"})
	if err == nil {
		t.Fatal("expected error for http 404")
	}
	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Kind != gateway.KindClientError {
		t.Fatalf("expected client_error kind, got %s", reqErr.Kind)
	}
	if reqErr.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", reqErr.Attempts)
	}
	if !errors.Is(err, services.ErrClient) {
		t.Fatalf("expected services.ErrClient in chain, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 requests, server saw %d", got)
	}
}

func TestDoParseErrorOnNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 2})
	_, err := gw.Do(context.Background(), gateway.Request{Endpoint: "movie/949"})
	if err == nil {
		t.Fatal("expected error for non-json body")
	}
	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Kind != gateway.KindParse {
		t.Fatalf("expected parse_error kind, got %s", reqErr.Kind)
	}
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected services.ErrParse in chain, got %v", err)
	}
}

func TestDoPerRequestRetryOverride(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 5})
	_, err := gw.Do(context.Background(), gateway.Request{Endpoint: "status", MaxRetries: 2})
	if err == nil {
		t.Fatal("expected error for persistent http 500")
	}
	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", reqErr.Attempts)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 requests, server saw %d", got)
	}
}

func TestDoCacheRoundTripIsByteIdentical(t *testing.T) {
	var calls atomic.Int64
	payload := []byte(`{"id":949,"title":"Heat","vote_average":7.919}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	store := cache.NewMemory(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, Cache: store})
	req := gateway.Request{Endpoint: "movie/949", UseCache: true, CacheTTL: time.Hour}

	first, err := gw.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("first Do returned error: %v", err)
	}
	second, err := gw.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("second Do returned error: %v", err)
	}
	if !bytes.Equal(first, payload) {
		t.Fatalf("first body mismatch: %s", first)
	}
	if !bytes.Equal(second, first) {
		t.Fatalf("cached body differs from original: %s vs %s", second, first)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected cache to absorb second call, server saw %d requests", got)
	}
}

func TestDoSkipsCacheForNonGET(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	store := cache.NewMemory(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, Cache: store})
	req := gateway.Request{Method: http.MethodPost, Endpoint: "session", UseCache: true}
	for i := 0; i < 2; i++ {
		if _, err := gw.Do(context.Background(), req); err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected POST to bypass cache, server saw %d requests", got)
	}
}

func TestDoContextDeadlineInterruptsBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 3, Backoff: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.Do(ctx, gateway.Request{Endpoint: "movie/949"})
	if err == nil {
		t.Fatal("expected error when deadline expires during backoff")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deadline did not interrupt backoff, took %v", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded in chain, got %v", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected services.ErrTimeout in chain, got %v", err)
	}
}

func TestDoBudgetExhaustionIsNotDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	gw := newGateway(t, gateway.Options{BaseURL: server.URL, MaxRetries: 2})
	_, err := gw.Do(context.Background(), gateway.Request{Endpoint: "status"})
	if err == nil {
		t.Fatal("expected error for persistent http 500")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("budget exhaustion must not look like a deadline: %v", err)
	}
	if !errors.Is(err, services.ErrServer) {
		t.Fatalf("expected services.ErrServer in chain, got %v", err)
	}
}

func TestDoBreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gw := newGateway(t, gateway.Options{
		BaseURL:         server.URL,
		MaxRetries:      4,
		BreakerFailures: 2,
	})
	_, err := gw.Do(context.Background(), gateway.Request{Endpoint: "status"})
	if err == nil {
		t.Fatal("expected error when provider is unreachable")
	}
	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Kind != gateway.KindTransport {
		t.Fatalf("expected transport_error kind, got %s", reqErr.Kind)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected breaker to open after consecutive failures, got %v", err)
	}
}

func TestDoRequiresEndpoint(t *testing.T) {
	gw := newGateway(t, gateway.Options{BaseURL: "https://example.com"})
	if _, err := gw.Do(context.Background(), gateway.Request{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
