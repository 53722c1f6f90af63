package logdex

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/logdex/internal/domain"
	materializeuc "github.com/kailas-cloud/logdex/internal/usecase/materialize"
)

// DefaultTimeRange is used when a search does not name one.
const DefaultTimeRange = "Last 1 hour"

// Execute runs the full retrieval: submit, poll until final, materialize.
// Records come back in row order; under a fixed schema each record's value
// lists follow the path order exactly, with empty placeholders (and
// Result.Warning) for paths absent from a row.
func (c *Client) Execute(ctx context.Context, s Search) (*Result, error) {
	req, err := domain.NewRequest(s.Query, timeRangeOrDefault(s.TimeRange), s.Limit, s.Repos)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	rows, pages, err := c.searchSvc.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	batch := c.matSvc.Materialize(rows, domain.FixedSchema(s.Paths))
	c.report(batch, pages)

	return &Result{
		Records: fromRecords(batch.Records),
		Fields:  batch.Fields,
		Warning: batch.Warning,
	}, nil
}

// PreviewPaths runs a limit-1 retrieval and returns the sorted key set of
// the first row. Zero rows yield an empty preview, not an error.
func (c *Client) PreviewPaths(ctx context.Context, query, timeRange string, repos []string) ([]string, error) {
	req, err := domain.NewRequest(query, timeRangeOrDefault(timeRange), 1, repos)
	if err != nil {
		return nil, fmt.Errorf("preview paths: %w", err)
	}

	rows, _, err := c.searchSvc.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("preview paths: %w", err)
	}
	if len(rows) == 0 {
		return []string{}, nil
	}

	paths := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths, nil
}

// PreviewRepositories returns the repositories the credential may search.
func (c *Client) PreviewRepositories(ctx context.Context) ([]string, error) {
	repos, err := c.searchSvc.Repositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("preview repositories: %w", err)
	}
	return repos, nil
}

func (c *Client) report(batch materializeuc.Result, pages int) {
	if c.reporter == nil {
		return
	}
	rep := Report{
		Operation: "retrieve logs",
		Rows:      len(batch.Records),
		Pages:     pages,
	}
	if batch.Warning {
		rep.Warnings = append(rep.Warnings, Warning{
			Category: "KeyError",
			Message: fmt.Sprintf(
				"%d field lookups failed across %d records; empty values were substituted",
				len(batch.Misses), len(batch.Records),
			),
		})
	}
	c.reporter.Report(rep)
}

func timeRangeOrDefault(tr string) string {
	if tr == "" {
		return DefaultTimeRange
	}
	return tr
}

func fromRecords(records []domain.Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{ID: r.ID, Values: r.Values}
	}
	return out
}
