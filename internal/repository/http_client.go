package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/race-odds/internal/models"
)

// ErrCircuitOpen is returned while the remote is considered unavailable. It
// wraps models.ErrHistoryUnavailable.
var ErrCircuitOpen = fmt.Errorf("circuit breaker open: %w", models.ErrHistoryUnavailable)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryWaitMin   time.Duration
	RetryWaitMax   time.Duration
	RateLimit      float64 // requests per second; 0 disables limiting
	Burst          int
	MaxFailures    int // consecutive failures before the circuit opens
	CooldownPeriod time.Duration
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		RetryWaitMin:   100 * time.Millisecond,
		RetryWaitMax:   2 * time.Second,
		RateLimit:      5.0,
		Burst:          5,
		MaxFailures:    5,
		CooldownPeriod: 30 * time.Second,
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a circuit breaker
type RateLimitedHTTPClient struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithField("component", "history_client")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{entry}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &RateLimitedHTTPClient{
		client:  retryClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:    cfg.MaxFailures,
			CooldownPeriod: cfg.CooldownPeriod,
		}, entry),
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker. A 5xx
// response after retries counts as a failure.
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ok, lastErr := c.breaker.Allow(); !ok {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, lastErr)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(retryReq)
	if err != nil {
		c.breaker.RecordFailure(err)
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure(fmt.Errorf("server returned %d", resp.StatusCode))
	} else {
		c.breaker.RecordSuccess()
	}

	return resp, nil
}

// State returns the circuit breaker state
func (c *RateLimitedHTTPClient) State() CircuitState {
	return c.breaker.GetState()
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Retry on network errors
			return true, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// retryLogger adapts logrus to retryablehttp.LeveledLogger.
type retryLogger struct {
	entry *logrus.Entry
}

func (l retryLogger) fields(kv []interface{}) *logrus.Entry {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.entry.WithFields(f)
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }
