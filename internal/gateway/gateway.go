package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"cinefuse/internal/cache"
	"cinefuse/internal/config"
	"cinefuse/internal/logging"
	"cinefuse/internal/metrics"
	"cinefuse/internal/services"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
	defaultBackoff     = time.Second
	defaultBreakerTrip = 5
)

// Options configures a Gateway. Provider and BaseURL are required; everything
// else falls back to conservative defaults.
type Options struct {
	// Provider names the upstream service in logs, metrics, and errors.
	Provider string
	// BaseURL is the provider API root that every endpoint is joined onto.
	BaseURL string
	// Auth decorates each outgoing request with credentials. It runs after
	// the cache key is derived, so credentials never reach the cache.
	Auth func(*http.Request)
	// Cache stores successful GET bodies when a request opts in. Nil disables
	// caching entirely.
	Cache cache.Store
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxRetries is the total attempt budget per call.
	MaxRetries int
	// Backoff is the base wait between attempts. Attempt N waits Backoff x N,
	// doubled again after a rate-limit response.
	Backoff time.Duration
	// RateLimit caps outbound requests per second; zero disables the limiter.
	RateLimit float64
	RateBurst int
	// BreakerFailures is the consecutive transport-failure count that opens
	// the circuit.
	BreakerFailures int
	Logger          *slog.Logger
}

// Gateway issues classified, retried, cached HTTP requests against a single
// provider.
type Gateway struct {
	provider   string
	baseURL    *url.URL
	auth       func(*http.Request)
	cache      cache.Store
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
}

// New validates opts and constructs a Gateway.
func New(opts Options) (*Gateway, error) {
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		return nil, errors.New("gateway: provider name required")
	}
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("gateway: %s: base url required", provider)
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: parse base url: %w", provider, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	trip := opts.BreakerFailures
	if trip <= 0 {
		trip = defaultBreakerTrip
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(trip)
		},
	})

	return &Gateway{
		provider:   provider,
		baseURL:    baseURL,
		auth:       opts.Auth,
		cache:      opts.Cache,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		limiter:    limiter,
		breaker:    breaker,
		logger:     logger.With(logging.String(logging.FieldProvider, provider)),
	}, nil
}

// FromConfig fills the shared tuning fields from the [gateway] configuration
// section, then constructs the Gateway. Values already set in opts win.
func FromConfig(cfg *config.Config, opts Options) (*Gateway, error) {
	if cfg != nil {
		if opts.Timeout <= 0 {
			opts.Timeout = time.Duration(cfg.Gateway.RequestTimeout) * time.Second
		}
		if opts.MaxRetries <= 0 {
			opts.MaxRetries = cfg.Gateway.MaxRetries
		}
		if opts.Backoff <= 0 {
			opts.Backoff = time.Duration(cfg.Gateway.BackoffMillis) * time.Millisecond
		}
		if opts.RateLimit <= 0 {
			opts.RateLimit = cfg.Gateway.RateLimitPerSecond
		}
		if opts.RateBurst <= 0 {
			opts.RateBurst = cfg.Gateway.RateBurst
		}
		if opts.BreakerFailures <= 0 {
			opts.BreakerFailures = cfg.Gateway.BreakerFailures
		}
	}
	return New(opts)
}

// Request describes one outbound call. Params are canonicalized before cache
// key derivation, so callers do not need to sort anything.
type Request struct {
	Method   string
	Endpoint string
	Params   url.Values
	// UseCache opts a GET into the response cache.
	UseCache bool
	// CacheTTL bounds the cached entry lifetime; zero uses the store default.
	CacheTTL time.Duration
	// MaxRetries overrides the gateway attempt budget for this call only.
	MaxRetries int
}

// Do executes req against the provider and returns the raw JSON body.
//
// Each attempt is classified as one of the Kind values. A rate-limited
// attempt waits backoff x attempt x 2 before the next try; every other
// failure waits backoff x attempt. All failure kinds share one attempt
// budget. When the budget is spent, the returned error is a *RequestError
// wrapping the last attempt's cause. When the caller's context expires first,
// the error wraps the context error instead, so
// errors.Is(err, context.DeadlineExceeded) distinguishes deadlines from
// budget exhaustion.
func (g *Gateway) Do(ctx context.Context, req Request) ([]byte, error) {
	if g == nil {
		return nil, errors.New("gateway: nil gateway")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("gateway: %s: endpoint required", g.provider)
	}

	target := g.baseURL.JoinPath(endpoint)
	if len(req.Params) > 0 {
		target.RawQuery = req.Params.Encode()
	}

	cacheable := req.UseCache && method == http.MethodGet && g.cache != nil
	var key string
	if cacheable {
		key = cache.Key(method, g.baseURL.String(), endpoint, req.Params)
		body, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn("gateway cache read failed",
				logging.String("endpoint", endpoint),
				logging.Error(err))
		} else if ok {
			metrics.CacheHitsTotal.WithLabelValues(g.provider).Inc()
			g.logger.Debug("gateway cache hit",
				logging.String("endpoint", endpoint),
				logging.String("cache_decision", "hit"))
			return body, nil
		}
		metrics.CacheMissesTotal.WithLabelValues(g.provider).Inc()
	}

	attempts := g.maxRetries
	if req.MaxRetries > 0 {
		attempts = req.MaxRetries
	}

	var lastErr error
	lastKind := KindTransport
	lastStatus := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := g.waitTurn(ctx); err != nil {
			return nil, g.terminal(method, endpoint, KindTimeout, attempt-1, 0, err)
		}

		start := time.Now()
		body, kind, status, err := g.sendOnce(ctx, method, target)
		metrics.RequestDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(g.provider, string(kind)).Inc()

		if err == nil {
			if cacheable {
				if err := g.cache.Set(ctx, key, body, req.CacheTTL); err != nil {
					g.logger.Warn("gateway cache write failed",
						logging.String("endpoint", endpoint),
						logging.Error(err))
				}
			}
			if attempt > 1 {
				g.logger.Debug("gateway recovered",
					logging.String("endpoint", endpoint),
					logging.Int("attempt", attempt))
			}
			return body, nil
		}
		lastErr, lastKind, lastStatus = err, kind, status

		if ctx.Err() != nil {
			return nil, g.terminal(method, endpoint, KindTimeout, attempt, status,
				fmt.Errorf("%w: %w", services.ErrTimeout, ctx.Err()))
		}
		if attempt == attempts {
			break
		}

		wait := g.retryWait(kind, attempt)
		metrics.RetriesTotal.WithLabelValues(g.provider).Inc()
		g.logger.Debug("gateway retrying",
			logging.String("endpoint", endpoint),
			logging.Int("attempt", attempt),
			logging.String("outcome", string(kind)),
			logging.Duration("backoff", wait),
			logging.Error(err))
		if err := sleepContext(ctx, wait); err != nil {
			return nil, g.terminal(method, endpoint, KindTimeout, attempt, status,
				fmt.Errorf("%w: %w", services.ErrTimeout, err))
		}
	}

	g.logger.Warn("gateway request failed",
		logging.String("endpoint", endpoint),
		logging.String("method", method),
		logging.Int("attempt", attempts),
		logging.String("outcome", string(lastKind)),
		logging.Error(lastErr))
	return nil, g.terminal(method, endpoint, lastKind, attempts, lastStatus, lastErr)
}

// sendOnce performs a single attempt and classifies the result. The circuit
// breaker wraps only the transport exchange; HTTP status codes never trip it.
func (g *Gateway) sendOnce(ctx context.Context, method string, target *url.URL) ([]byte, Kind, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, KindTransport, 0, fmt.Errorf("%w: build request: %w", services.ErrTransport, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if g.auth != nil {
		g.auth(httpReq)
	}

	resp, err := g.breaker.Execute(func() (*http.Response, error) {
		return g.httpClient.Do(httpReq)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.BreakerOpenTotal.WithLabelValues(g.provider).Inc()
			return nil, KindTransport, 0, fmt.Errorf("%w: circuit open: %w", services.ErrTransport, err)
		}
		return nil, KindTransport, 0, fmt.Errorf("%w: execute request: %w", services.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, KindTransport, resp.StatusCode, fmt.Errorf("%w: read body: %w", services.ErrTransport, err)
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusTooManyRequests:
		return nil, KindRateLimited, status, fmt.Errorf("%w: http 429: %s", services.ErrRateLimited, bodySnippet(body))
	case status >= http.StatusInternalServerError:
		return nil, KindServerError, status, fmt.Errorf("%w: http %d: %s", services.ErrServer, status, bodySnippet(body))
	case status >= http.StatusBadRequest:
		return nil, KindClientError, status, fmt.Errorf("%w: http %d: %s", services.ErrClient, status, bodySnippet(body))
	case status >= http.StatusMultipleChoices:
		return nil, KindClientError, status, fmt.Errorf("%w: http %d: unexpected redirect", services.ErrClient, status)
	}

	if !json.Valid(body) {
		return nil, KindParse, status, fmt.Errorf("%w: http %d: response body is not json", services.ErrParse, status)
	}
	return body, KindSuccess, status, nil
}

func (g *Gateway) waitTurn(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", services.ErrTimeout, err)
	}
	return nil
}

// retryWait scales the base backoff linearly with the attempt counter. A 429
// doubles the wait again so a throttling provider gets extra headroom.
func (g *Gateway) retryWait(kind Kind, attempt int) time.Duration {
	wait := g.backoff * time.Duration(attempt)
	if kind == KindRateLimited {
		wait *= 2
	}
	return wait
}

func (g *Gateway) terminal(method, endpoint string, kind Kind, attempts, status int, err error) error {
	return &RequestError{
		Provider: g.provider,
		Method:   method,
		Endpoint: endpoint,
		Kind:     kind,
		Status:   status,
		Attempts: attempts,
		Err:      err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
