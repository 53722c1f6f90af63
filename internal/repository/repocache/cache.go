// Package repocache caches the allowed-repositories listing in a key-value
// store. Cache failures degrade to the inner lister, never to the caller.
package repocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/logdex/internal/db"
)

const keyPrefix = "logdex:repos:"

// DefaultTTL bounds staleness of the cached listing. Repository grants
// change rarely; previews tolerate a few minutes of lag.
const DefaultTTL = 5 * time.Minute

// lister is the consumer interface for the repository listing.
type lister interface {
	ListRepositories(ctx context.Context) ([]string, error)
}

// store is the narrow cache-store slice of db.Store.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedLister decorates a repository lister with a TTL cache keyed per account.
type CachedLister struct {
	inner      lister
	store      store
	key        string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. The cache key is derived from the account
// so two credentials against the same store never share a listing.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner lister,
	s store,
	account string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedLister {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := sha256.Sum256([]byte(account))
	return &CachedLister{
		inner:      inner,
		store:      s,
		key:        keyPrefix + hex.EncodeToString(h[:]),
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// ListRepositories returns the cached listing or falls through to the inner
// lister and fills the cache.
func (c *CachedLister) ListRepositories(ctx context.Context) ([]string, error) {
	if repos, ok := c.getFromCache(ctx); ok {
		c.incCache("hit")
		return repos, nil
	}
	c.incCache("miss")

	repos, err := c.inner.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	c.putToCache(ctx, repos)
	return repos, nil
}

func (c *CachedLister) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedLister) getFromCache(ctx context.Context) ([]string, bool) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("failed to read cached repositories", zap.Error(err))
		}
		return nil, false
	}

	var repos []string
	if err := json.Unmarshal(data, &repos); err != nil {
		c.logger.Warn("failed to parse cached repositories", zap.Error(err))
		return nil, false
	}
	return repos, true
}

func (c *CachedLister) putToCache(ctx context.Context, repos []string) {
	data, err := json.Marshal(repos)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, c.key, data, c.ttl); err != nil {
		c.logger.Warn("failed to cache repositories", zap.Error(err))
	}
}
