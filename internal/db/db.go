// Package db defines the key-value store contract used for caching.
package db

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound signals a cache miss.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names for error context.
const (
	OpGet  = "GET"
	OpSet  = "SET"
	OpPing = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Store is a minimal key-value facade backed by Redis/Valkey.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
