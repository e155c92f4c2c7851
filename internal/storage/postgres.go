// Package storage provides the two persistence backends (Postgres and
// SQLite) that satisfy orchestrator.Storage, grounded on the teacher's
// pkg/database client/repository split and on the original Rust
// submitter's storage_postgres.rs / storage_sqlite.rs upsert and
// defensive-decode semantics.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Option configures a Store via functional options, matching the
// teacher's ClientOption convention.
type Option func(*PostgresStore)

// WithLogger overrides the store's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *PostgresStore) { s.logger = logger }
}

// WithMaxOpenConns overrides the pool's max open connections.
func WithMaxOpenConns(n int) Option {
	return func(s *PostgresStore) { s.maxOpenConns = n }
}

// PostgresStore is the orchestrator.Storage implementation backed by
// Postgres via lib/pq.
type PostgresStore struct {
	db           *sql.DB
	logger       *log.Logger
	maxOpenConns int
}

// NewPostgresStore opens a connection pool against dsn and runs
// migrations.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, domainerr.Config("database DSN is empty")
	}

	s := &PostgresStore{
		logger:       log.New(os.Stdout, "[Storage] ", log.LstdFlags),
		maxOpenConns: 5,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, domainerr.StorageWrap(err, "open postgres connection")
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, domainerr.StorageWrap(err, "ping postgres")
	}
	s.db = db

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate(ctx context.Context) error {
	statements, err := loadMigrationStatements("postgres")
	if err != nil {
		return domainerr.StorageWrap(err, "load migrations")
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if isHarmlessMigrationError(err) {
				s.logger.Printf("migration statement skipped: %v", err)
				continue
			}
			return domainerr.StorageWrap(err, "apply migration")
		}
	}
	return nil
}

// loadMigrationStatements reads every embedded migrations/<backend>/*.sql
// file in filename order and splits each on ";" so a swallowed ALTER
// failure in one statement doesn't abort the table-creation statement
// before it. Postgres and SQLite get separate migration sets because
// their ALTER TABLE ADD COLUMN grammars diverge (SQLite rejects
// "IF NOT EXISTS" on ADD COLUMN), matching storage_postgres.rs/
// storage_sqlite.rs's own per-backend migrate() bodies.
func loadMigrationStatements(backend string) ([]string, error) {
	root := "migrations/" + backend
	var files []string
	err := fs.WalkDir(migrationsFS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var statements []string
	for _, f := range files {
		content, err := migrationsFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt != "" {
				statements = append(statements, stmt)
			}
		}
	}
	return statements, nil
}

// isHarmlessMigrationError swallows "already exists" class errors the
// same way the original's migrate() ignores a duplicate ADD COLUMN,
// so migrations stay idempotent across restarts.
func isHarmlessMigrationError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column")
}

// SaveBatch upserts a batch row, matching storage_postgres.rs's
// ON CONFLICT (id) DO UPDATE semantics exactly.
func (s *PostgresStore) SaveBatch(ctx context.Context, batch *domain.Batch) error {
	const q = `
		INSERT INTO batches (id, data_file, new_root, status, da_mode, proof, tx_hash,
			attempts, created_at, updated_at, superseded_tx_hash, blob_versioned_hash, blob_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			proof = excluded.proof,
			tx_hash = excluded.tx_hash,
			attempts = excluded.attempts,
			updated_at = excluded.updated_at,
			superseded_tx_hash = excluded.superseded_tx_hash`

	_, err := s.db.ExecContext(ctx, q,
		batch.ID.String(), batch.DataFile, batch.NewRoot, string(batch.Status), string(batch.DaMode),
		batch.Proof, batch.TxHash, batch.Attempts, batch.CreatedAt, batch.UpdatedAt,
		batch.SupersededTxHash, batch.BlobVersionedHash, batch.BlobIndex,
	)
	if err != nil {
		return domainerr.StorageWrap(err, "save batch %s", batch.ID)
	}
	return nil
}

// GetBatch returns a single batch by id, or ErrBatchNotFound.
func (s *PostgresStore) GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	const q = `
		SELECT id, data_file, new_root, status, da_mode, proof, tx_hash, attempts,
			created_at, updated_at, superseded_tx_hash, blob_versioned_hash, blob_index
		FROM batches WHERE id = $1`

	row := s.db.QueryRowContext(ctx, q, id.String())
	batch, status, err := scanBatchRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domainerr.ErrBatchNotFound
	}
	if err != nil {
		return nil, domainerr.StorageWrap(err, "get batch %s", id)
	}
	if !status.IsValid() {
		return nil, domainerr.Storage("unknown status %q for batch %s", status, id)
	}
	return batch, nil
}

// ListPending returns every batch not in a terminal state. Rows that
// fail to decode are logged and skipped rather than aborting the whole
// list, matching get_pending_batches' per-row defensive-skip behavior.
func (s *PostgresStore) ListPending(ctx context.Context) ([]*domain.Batch, error) {
	const q = `
		SELECT id, data_file, new_root, status, da_mode, proof, tx_hash, attempts,
			created_at, updated_at, superseded_tx_hash, blob_versioned_hash, blob_index
		FROM batches WHERE status != 'Confirmed' AND status != 'Failed'`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domainerr.StorageWrap(err, "list pending batches")
	}
	defer rows.Close()

	var out []*domain.Batch
	for rows.Next() {
		batch, status, err := scanBatchRow(rows.Scan)
		if err != nil {
			s.logger.Printf("skipping malformed batch row: %v", err)
			continue
		}
		if !status.IsValid() {
			s.logger.Printf("skipping batch %s: unknown status %q", batch.ID, status)
			continue
		}
		out = append(out, batch)
	}
	return out, rows.Err()
}
