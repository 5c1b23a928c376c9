// Package sqlite provides the public API for the SQLite availability store.
// This package exposes the factory function while keeping implementation
// details internal.
package sqlite

import (
	"github.com/mesh-intelligence/staybook/internal/sqlite"
)

// Backend is the SQLite availability store.
type Backend = sqlite.Backend

// Option configures a Backend.
type Option = sqlite.Option

// WithLogger sets the store's logger.
var WithLogger = sqlite.WithLogger

// NewBackend creates a new SQLite availability store.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".staybook-db",
//	})
//	defer backend.Detach()
//	src, err := backend.Resolve(ctx, "PROP-1")
func NewBackend(opts ...Option) *Backend {
	return sqlite.NewBackend(opts...)
}
