package domain

// Row is one raw result record as returned by the service. The service
// imposes no fixed schema: key sets vary row to row and values may nest.
type Row map[string]any

// Page is one poll response. Pages are consumed immediately and discarded
// after their rows are accumulated.
type Page struct {
	Rows       []Row
	Final      bool
	TotalPages int // 0 when the service omits the counter
}

// Request is a validated search submission.
type Request struct {
	query     string
	timeRange string
	limit     int
	repos     []string
}

// NewRequest validates search parameters. An empty repos list means all
// repositories the credential may access. Limit must be at least 1; a
// violation is a configuration error and no network call is made.
func NewRequest(query, timeRange string, limit int, repos []string) (Request, error) {
	if limit < 1 {
		return Request{}, ErrInvalidLimit
	}
	return Request{
		query:     query,
		timeRange: timeRange,
		limit:     limit,
		repos:     repos,
	}, nil
}

// Query returns the search query expression.
func (r Request) Query() string { return r.query }

// TimeRange returns the relative time range expression (e.g. "Last 1 hour").
func (r Request) TimeRange() string { return r.timeRange }

// Limit returns the maximum number of rows to retrieve.
func (r Request) Limit() int { return r.limit }

// Repos returns the target repository names in submission order.
func (r Request) Repos() []string { return r.repos }
