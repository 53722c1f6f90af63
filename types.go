package logdex

import (
	"context"
	"errors"
	"os"
)

// Search describes one log retrieval.
type Search struct {
	// Query is the Logpoint search expression. Empty matches everything
	// within the time range.
	Query string
	// TimeRange is a service-defined relative range expression.
	// Defaults to "Last 1 hour".
	TimeRange string
	// Limit caps the number of rows. Must be at least 1.
	Limit int
	// Repos restricts the search to the named repositories, in order.
	// Empty means all repositories the credential may access.
	Repos []string
	// Paths fixes the output schema to the given field paths, in column
	// order. Empty or all-blank requests schema inference from the rows.
	Paths []string
}

// Record is one materialized result: a fresh unique id plus one value list
// per output field.
type Record struct {
	ID     string
	Values [][]string
}

// Result is one completed retrieval.
type Result struct {
	Records []Record
	Fields  []string
	// Warning is true when at least one fixed-schema path was absent from
	// a row and an empty value was substituted.
	Warning bool
}

// Warning is one categorized execution warning.
type Warning struct {
	Category string
	Message  string
}

// Report summarizes one retrieval for an external progress sink.
type Report struct {
	Operation string
	Rows      int
	Pages     int
	Warnings  []Warning
}

// Reporter receives execution reports. Implementations must be safe for
// concurrent use if the client is shared.
type Reporter interface {
	Report(Report)
}

// SecretResolver yields the service secret key. Resolution happens once,
// at client construction.
type SecretResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type staticSecret string

func (s staticSecret) Resolve(context.Context) (string, error) { return string(s), nil }

// StaticSecret wraps an already-known secret key.
func StaticSecret(key string) SecretResolver { return staticSecret(key) }

type envSecret string

func (e envSecret) Resolve(context.Context) (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", errors.New("secret environment variable " + string(e) + " is empty")
	}
	return v, nil
}

// EnvSecret resolves the secret key from the named environment variable.
func EnvSecret(name string) SecretResolver { return envSecret(name) }
