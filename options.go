package logdex

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL string
	account string
	secret  SecretResolver

	httpClient *http.Client
	logger     *zap.Logger
	reporter   Reporter

	pollInterval time.Duration
	pollTimeout  time.Duration
	retryBudget  int

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
}

// WithService sets the Logpoint base URL. Required.
// A trailing slash is stripped.
func WithService(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
	})
}

// WithCredentials sets the account name and the secret key resolver.
// Required. The secret is resolved exactly once, during New.
func WithCredentials(account string, secret SecretResolver) Option {
	return optionFunc(func(c *clientConfig) {
		c.account = account
		c.secret = secret
	})
}

// WithHTTPClient overrides the HTTP client used for service calls.
// Defaults to a client with a 100s per-call timeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging for SDK operations.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithReporter sets the execution-report sink that receives row counts,
// page counts, and soft-miss warnings after each retrieval.
func WithReporter(r Reporter) Option {
	return optionFunc(func(c *clientConfig) {
		c.reporter = r
	})
}

// WithPolling overrides the poll interval and the total retrieval deadline.
// Defaults: 1s interval, 5m deadline.
func WithPolling(interval, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	})
}

// WithRetryBudget sets how many transient network failures are retried per
// call before surfacing. Default: 3. HTTP-level errors are never retried.
func WithRetryBudget(budget int) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryBudget = budget
	})
}

// WithCache enables the Redis/Valkey-backed cache for the repository
// listing. Optional; the client works without it.
func WithCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithCacheTTL bounds staleness of the cached repository listing.
// Default: 5m.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}
