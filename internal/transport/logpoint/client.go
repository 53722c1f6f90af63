// Package logpoint implements the Logpoint Director search wire protocol:
// form-encoded POSTs to a single endpoint, disambiguated by which keys the
// requestData JSON carries.
package logpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logdex/internal/domain"
	"github.com/kailas-cloud/logdex/internal/metrics"
)

// waiterID identifies this client in poll requests. The service keys hidden
// per-search state on it; it must stay constant across polls of one handle.
const waiterID = "logdex"

const (
	endpointSearchLogs  = "/getsearchlogs"
	endpointAllowedData = "/getalloweddata"
)

// Client drives the two-call search protocol. It holds no per-search state;
// each call is independent and safe to run concurrently across handles.
type Client struct {
	baseURL string
	account string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds the wire client settings. The secret is expected to be
// resolved already; resolution happens once, at SDK construction.
type Config struct {
	BaseURL    string
	Account    string
	SecretKey  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates a Logpoint wire client.
func New(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 100 * time.Second}
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		account: cfg.Account,
		secret:  cfg.SecretKey,
		http:    hc,
		logger:  l,
	}
}

type startRequest struct {
	Repos     []string `json:"repos"`
	Limit     int      `json:"limit"`
	TimeRange string   `json:"time_range"`
	Query     string   `json:"query"`
}

type pollRequest struct {
	SearchID    string `json:"search_id"`
	WaiterID    string `json:"waiter_id"`
	SeenVersion *int   `json:"seen_version"`
}

// StartSearch submits a search and returns the service-assigned handle.
// A response without a search id means the query or the repositories were
// not accepted and surfaces as domain.ErrSearchRejected.
func (c *Client) StartSearch(ctx context.Context, req domain.Request) (string, error) {
	repos := req.Repos()
	if repos == nil {
		repos = []string{} // the service wants an explicit empty list
	}
	body, err := c.post(ctx, endpointSearchLogs, startRequest{
		Repos:     repos,
		Limit:     req.Limit(),
		TimeRange: req.TimeRange(),
		Query:     req.Query(),
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		SearchID string `json:"search_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode start response: %s: %w", err, domain.ErrTransport)
	}
	if resp.SearchID == "" {
		return "", fmt.Errorf("%w: no search id assigned for query %q", domain.ErrSearchRejected, req.Query())
	}

	c.logger.Debug("search started",
		zap.String("search_id", resp.SearchID),
		zap.Int("limit", req.Limit()),
	)
	return resp.SearchID, nil
}

// FetchPage retrieves one poll response for the given handle. The request
// body is identical on every poll; the service advances state server-side
// and asserts completion through the final flag.
func (c *Client) FetchPage(ctx context.Context, searchID string) (domain.Page, error) {
	body, err := c.post(ctx, endpointSearchLogs, pollRequest{
		SearchID:    searchID,
		WaiterID:    waiterID,
		SeenVersion: nil,
	})
	if err != nil {
		return domain.Page{}, err
	}

	var resp struct {
		Rows       []domain.Row `json:"rows"`
		Final      bool         `json:"final"`
		TotalPages int          `json:"total_pages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Page{}, fmt.Errorf("decode poll response: %s: %w", err, domain.ErrTransport)
	}
	return domain.Page{Rows: resp.Rows, Final: resp.Final, TotalPages: resp.TotalPages}, nil
}

// ListRepositories fetches the repositories the credential may search,
// in service order.
func (c *Client) ListRepositories(ctx context.Context) ([]string, error) {
	form := url.Values{
		"username":   {c.account},
		"secret_key": {c.secret},
		"type":       {"logpoint_repos"},
	}
	body, err := c.postForm(ctx, endpointAllowedData, form)
	if err != nil {
		return nil, err
	}

	var resp struct {
		AllowedRepos []struct {
			Repo string `json:"repo"`
		} `json:"allowed_repos"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode repository response: %s: %w", err, domain.ErrTransport)
	}

	names := make([]string, 0, len(resp.AllowedRepos))
	for _, r := range resp.AllowedRepos {
		names = append(names, r.Repo)
	}
	return names, nil
}

// post sends requestData as JSON inside the standard form envelope.
func (c *Client) post(ctx context.Context, endpoint string, requestData any) ([]byte, error) {
	data, err := json.Marshal(requestData)
	if err != nil {
		return nil, fmt.Errorf("encode requestData: %w", err)
	}
	form := url.Values{
		"username":    {c.account},
		"secret_key":  {c.secret},
		"requestData": {string(data)},
	}
	return c.postForm(ctx, endpoint, form)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.WireRequestsTotal.WithLabelValues(endpoint, "unavailable").Inc()
		if ctx.Err() != nil {
			// Caller cancellation or deadline, not a service fault.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("post %s: %s: %w", endpoint, err, domain.ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.WireRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.WireRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("logpoint request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, domain.NewStatusError(endpoint, resp.StatusCode)
	}
	metrics.WireRequestsTotal.WithLabelValues(endpoint, "success").Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %s: %w", err, domain.ErrUnavailable)
	}
	return body, nil
}
