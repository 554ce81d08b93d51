package state

import (
	"context"
	"io"
)

// RunStore handles run ledger persistence.
type RunStore interface {
	RecordRun(ctx context.Context, r *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Ledger is the full state backend.
type Ledger interface {
	io.Closer
	Migrator
	RunStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Ledger = (*DB)(nil)
	_ Migrator = (*DB)(nil)
	_ RunStore = (*DB)(nil)
)
