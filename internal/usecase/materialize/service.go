// Package materialize turns accumulated raw rows into uniquely-identified
// records under a fixed or inferred output schema.
package materialize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/logdex/internal/domain"
	"github.com/kailas-cloud/logdex/internal/metrics"
)

// Miss records a fixed-schema path absent from one row. A miss is soft:
// the cell gets an empty placeholder and the batch completes normally.
type Miss struct {
	Row  int
	Path string
}

// Result is one materialized batch.
type Result struct {
	Records []domain.Record
	Fields  []string
	Warning bool
	Misses  []Miss
}

// Service materializes rows into records.
type Service struct {
	logger *zap.Logger
}

// New creates a materializer.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Materialize produces one record per row, in row order. Under a fixed
// schema each record carries one value list per path, in path order; a
// missing path yields an empty placeholder and flips the batch warning,
// never an abort. Record ids are minted fresh on every call.
func (s *Service) Materialize(rows []domain.Row, schema domain.Schema) Result {
	if schema.Inferred() {
		return s.infer(rows)
	}

	paths := schema.Paths()
	res := Result{
		Fields:  paths,
		Records: make([]domain.Record, 0, len(rows)),
	}
	for i, row := range rows {
		values := make([][]string, len(paths))
		for j, path := range paths {
			v, ok := row[path]
			if !ok {
				values[j] = []string{""}
				res.Warning = true
				res.Misses = append(res.Misses, Miss{Row: i, Path: path})
				metrics.FieldMissesTotal.Inc()
				continue
			}
			values[j] = []string{coerce(v)}
		}
		res.Records = append(res.Records, domain.Record{ID: uuid.NewString(), Values: values})
	}

	if res.Warning {
		s.logger.Warn("fixed-schema paths missing from some rows",
			zap.Int("misses", len(res.Misses)),
			zap.Int("rows", len(rows)),
		)
	}
	return res
}

// infer derives the schema from the rows themselves: the sorted union of
// all keys seen. Rows lacking a key get an empty cell without raising the
// batch warning; ragged rows are the normal case for schema-less sources.
func (s *Service) infer(rows []domain.Row) Result {
	keys := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			keys[k] = struct{}{}
		}
	}
	fields := make([]string, 0, len(keys))
	for k := range keys {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	res := Result{
		Fields:  fields,
		Records: make([]domain.Record, 0, len(rows)),
	}
	for _, row := range rows {
		values := make([][]string, len(fields))
		for j, k := range fields {
			if v, ok := row[k]; ok {
				values[j] = []string{coerce(v)}
			} else {
				values[j] = []string{""}
			}
		}
		res.Records = append(res.Records, domain.Record{ID: uuid.NewString(), Values: values})
	}
	return res
}

// coerce renders a raw JSON value as a string cell. Nested values are
// re-encoded as compact JSON rather than Go's fmt notation.
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
