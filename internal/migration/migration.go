package migration

import (
	"context"

	"govote/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the result ledger schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every step is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.steps() {
		if _, err := db.ExecContext(ctx, step.sql); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to %s", step.name))
		}
	}
	return nil
}

type step struct {
	name string
	sql  string
}

func (r *MigrationRunner) steps() []step {
	return []step{
		{"create evaluation_runs table", `
			CREATE TABLE IF NOT EXISTS evaluation_runs (
				run_id UUID PRIMARY KEY,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)
		`},
		{"create evaluation_results table", `
			CREATE TABLE IF NOT EXISTS evaluation_results (
				run_id UUID NOT NULL REFERENCES evaluation_runs(run_id) ON DELETE CASCADE,
				fold INTEGER NOT NULL,
				objective DOUBLE PRECISION,
				accuracy DOUBLE PRECISION,
				result JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				PRIMARY KEY (run_id, fold)
			)
		`},
		{"create indexes", `
			CREATE INDEX IF NOT EXISTS idx_evaluation_runs_created_at ON evaluation_runs(created_at DESC)
		`},
	}
}
