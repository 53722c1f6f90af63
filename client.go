// Package logdex is an SDK for retrieving logs from a Logpoint service:
// it submits a search, polls until the service marks it final, and
// materializes the rows as records under a fixed or inferred schema.
package logdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logdex/internal/db"
	dbredis "github.com/kailas-cloud/logdex/internal/db/redis"
	"github.com/kailas-cloud/logdex/internal/metrics"
	"github.com/kailas-cloud/logdex/internal/repository/repocache"
	"github.com/kailas-cloud/logdex/internal/transport/logpoint"
	materializeuc "github.com/kailas-cloud/logdex/internal/usecase/materialize"
	searchuc "github.com/kailas-cloud/logdex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the logdex SDK entry point. It holds no per-search state and is
// safe for concurrent use across distinct searches.
type Client struct {
	store     db.Store
	searchSvc *searchuc.Service
	matSvc    *materializeuc.Service
	reporter  Reporter
	logger    *zap.Logger
}

// New creates a logdex Client. The service URL and credentials are required;
// the secret key is resolved exactly once, here.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		pollInterval: searchuc.DefaultPollInterval,
		pollTimeout:  searchuc.DefaultPollTimeout,
		retryBudget:  searchuc.DefaultRetryBudget,
		cacheTTL:     repocache.DefaultTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("logdex: service URL required (use WithService)")
	}
	if cfg.account == "" || cfg.secret == nil {
		return nil, errors.New("logdex: credentials required (use WithCredentials)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	secret, err := cfg.secret.Resolve(context.Background())
	if err != nil {
		return nil, fmt.Errorf("logdex: resolve secret: %w", err)
	}

	wire := logpoint.New(&logpoint.Config{
		BaseURL:    cfg.baseURL,
		Account:    cfg.account,
		SecretKey:  secret,
		HTTPClient: cfg.httpClient,
		Logger:     logger,
	})

	var store db.Store
	var repos searchuc.RepoLister = wire
	if len(cfg.cacheAddrs) > 0 {
		store, err = dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("logdex: create cache store: %w", err)
		}
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("logdex: cache store not ready: %w", err)
		}
		repos = repocache.New(wire, store, cfg.account, cfg.cacheTTL, metrics.RepoCacheTotal, logger)
	}

	searchSvc := searchuc.New(wire, repos, logger).
		WithPolling(cfg.pollInterval, cfg.pollTimeout).
		WithRetryBudget(cfg.retryBudget)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		matSvc:    materializeuc.New(logger),
		reporter:  cfg.reporter,
		logger:    logger,
	}, nil
}

// Close releases the cache store, if configured.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}
