package domain

import "strings"

// Record is one materialized result. Values holds one value list per output
// field, in schema order. Records are created fresh per retrieval and never
// mutated afterwards.
type Record struct {
	ID     string
	Values [][]string
}

// Schema describes the requested output shape: either a caller-supplied
// ordered path list (fixed) or derivation from the rows themselves
// (inferred).
type Schema struct {
	paths []string
}

// InferredSchema requests schema derivation from whatever keys the rows carry.
func InferredSchema() Schema { return Schema{} }

// FixedSchema builds a schema from an ordered path list. Blank paths are
// dropped; a list that is empty or all-blank means no fixed schema was
// requested and collapses to the inferred mode.
func FixedSchema(paths []string) Schema {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return Schema{paths: kept}
}

// Inferred reports whether the schema must be derived from the rows.
func (s Schema) Inferred() bool { return len(s.paths) == 0 }

// Paths returns the fixed field paths in output order.
func (s Schema) Paths() []string { return s.paths }
