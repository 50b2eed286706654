// Package storage defines the relational store contract used by the loader and
// a small factory so callers can obtain a backend by kind without importing it.
// Backends register themselves from init; import storage/all to link them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"itvetl/internal/domain"
)

// ErrUnknownKind is returned by New when no backend registered the kind.
var ErrUnknownKind = errors.New("unsupported storage kind")

// Config selects and addresses a backend.
type Config struct {
	Kind string
	DSN  string
}

// Store is one relational database holding the province, locality and
// station tables.
type Store interface {
	// Location identifies the physical database. Loads into the same
	// location are serialized.
	Location() string
	// Rebuild drops every existing table and recreates the schema empty.
	Rebuild(ctx context.Context) error
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Tx inserts rows and returns the generated primary keys.
type Tx interface {
	InsertProvince(ctx context.Context, name string) (int64, error)
	InsertLocality(ctx context.Context, name string, province int64) (int64, error)
	// InsertStation writes st. A nil locality is stored as NULL.
	InsertStation(ctx context.Context, st domain.Station, locality *int64) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Store using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
