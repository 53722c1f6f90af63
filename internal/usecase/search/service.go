package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logdex/internal/domain"
	"github.com/kailas-cloud/logdex/internal/metrics"
)

// Polling defaults. The wire protocol gives no completion bound of its own;
// the service is trusted to terminate, so the client enforces one.
const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 5 * time.Minute
	DefaultRetryBudget  = 3
)

// Service runs the search lifecycle: submit, poll until final, accumulate.
type Service struct {
	wire  Wire
	repos RepoLister

	pollInterval time.Duration
	pollTimeout  time.Duration
	retryBudget  int
	logger       *zap.Logger
}

// New creates a search service with default polling bounds.
func New(wire Wire, repos RepoLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		wire:         wire,
		repos:        repos,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		retryBudget:  DefaultRetryBudget,
		logger:       logger,
	}
}

// WithPolling overrides the poll interval and the total retrieval deadline.
// Non-positive values keep the current setting.
func (s *Service) WithPolling(interval, timeout time.Duration) *Service {
	if interval > 0 {
		s.pollInterval = interval
	}
	if timeout > 0 {
		s.pollTimeout = timeout
	}
	return s
}

// WithRetryBudget sets how many times a transient network failure is retried
// before it surfaces. HTTP-level errors are never retried.
func (s *Service) WithRetryBudget(budget int) *Service {
	if budget >= 0 {
		s.retryBudget = budget
	}
	return s
}

// Run submits the search and polls until the service marks it final.
// Returns the accumulated rows in page order plus the page count. On any
// hard failure (rejection, transport, timeout) no rows are returned.
func (s *Service) Run(ctx context.Context, req domain.Request) ([]domain.Row, int, error) {
	start := time.Now()

	rows, pages, err := s.run(ctx, req)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, 0, err
	}

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchRowsTotal.Add(float64(len(rows)))

	s.logger.Info("search finished",
		zap.Int("rows", len(rows)),
		zap.Int("pages", pages),
		zap.Duration("took", time.Since(start)),
	)
	return rows, pages, nil
}

func (s *Service) run(ctx context.Context, req domain.Request) ([]domain.Row, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	searchID, err := s.startWithRetry(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	var rows []domain.Row
	pages := 0
	for {
		page, err := s.fetchWithRetry(ctx, searchID)
		if err != nil {
			return nil, 0, err
		}

		rows = append(rows, page.Rows...)
		pages++
		metrics.PollPagesTotal.Inc()
		s.logger.Debug("poll page consumed",
			zap.String("search_id", searchID),
			zap.Int("rows", len(page.Rows)),
			zap.Bool("final", page.Final),
		)

		if page.Final {
			return rows, pages, nil
		}
		if err := s.wait(ctx, s.pollInterval); err != nil {
			return nil, 0, err
		}
	}
}

// Repositories lists the repositories the credential may search.
func (s *Service) Repositories(ctx context.Context) ([]string, error) {
	repos, err := s.repos.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}

func (s *Service) startWithRetry(ctx context.Context, req domain.Request) (string, error) {
	var searchID string
	err := s.withRetry(ctx, "start search", func() error {
		var err error
		searchID, err = s.wire.StartSearch(ctx, req)
		return err
	})
	return searchID, err
}

func (s *Service) fetchWithRetry(ctx context.Context, searchID string) (domain.Page, error) {
	var page domain.Page
	err := s.withRetry(ctx, "fetch page", func() error {
		var err error
		page, err = s.wire.FetchPage(ctx, searchID)
		return err
	})
	if err != nil {
		return domain.Page{}, err
	}
	return page, nil
}

// withRetry runs op, retrying only transient network failures with
// exponential backoff up to the retry budget. Non-2xx statuses surface
// immediately: the service answered, repeating the question won't help.
func (s *Service) withRetry(ctx context.Context, what string, op func() error) error {
	backoff := s.pollInterval
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return s.timeoutErr()
		}
		if !errors.Is(err, domain.ErrUnavailable) || attempt >= s.retryBudget {
			return err
		}
		s.logger.Warn("transient failure, retrying",
			zap.String("op", what),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if werr := s.wait(ctx, backoff); werr != nil {
			return werr
		}
		backoff *= 2
	}
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return s.timeoutErr()
	case <-t.C:
		return nil
	}
}

func (s *Service) timeoutErr() error {
	return fmt.Errorf("%w: no final page within %s", domain.ErrPollTimeout, s.pollTimeout)
}
