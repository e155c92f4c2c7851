package storage

import (
	"context"

	"github.com/certen/rollup-submitter/internal/orchestrator"
)

// BackendStore is what cmd/submitter wires into the orchestrator: the
// narrow Storage port plus a Close for graceful shutdown.
type BackendStore interface {
	orchestrator.Storage
	Close() error
}

// Open selects a backend from dsn: a postgres://... URL opens
// PostgresStore, anything else (including an empty string, defaulting
// to "submitter.db") opens SQLiteStore, matching startup.rs's
// DATABASE_URL-prefix sniff.
func Open(ctx context.Context, dsn string) (BackendStore, error) {
	if resolveDSNKind(dsn) == "postgres" {
		return NewPostgresStore(ctx, dsn)
	}
	return NewSQLiteStore(ctx, dsn)
}
