package storage

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

// SQLiteStore is the orchestrator.Storage implementation backed by
// SQLite via mattn/go-sqlite3, the default backend for single-node
// deployments that don't set DATABASE_URL to a postgres:// DSN.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteStore opens (creating if absent) the database file at path
// and runs migrations. A bare filename like "submitter.db" is turned
// into a DSN with foreign keys and a busy timeout enabled, since the
// orchestrator and any concurrent CLI invocation share one file.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "submitter.db"
	}
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, domainerr.StorageWrap(err, "open sqlite database")
	}
	// SQLite only safely supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, domainerr.StorageWrap(err, "ping sqlite")
	}

	s := &SQLiteStore{db: db, logger: log.New(os.Stdout, "[Storage] ", log.LstdFlags)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements, err := loadMigrationStatements("sqlite")
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

// SaveBatch upserts via SQLite's "ON CONFLICT (id) DO UPDATE" clause,
// supported since SQLite 3.24 and wired into go-sqlite3's bundled
// library version.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batch *domain.Batch) error {
	const q = `
		INSERT INTO batches (id, data_file, new_root, status, da_mode, proof, tx_hash,
			attempts, created_at, updated_at, superseded_tx_hash, blob_versioned_hash, blob_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (s *SQLiteStore) GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	const q = `
		SELECT id, data_file, new_root, status, da_mode, proof, tx_hash, attempts,
			created_at, updated_at, superseded_tx_hash, blob_versioned_hash, blob_index
		FROM batches WHERE id = ?`

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

func (s *SQLiteStore) ListPending(ctx context.Context) ([]*domain.Batch, error) {
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

// resolveDSNKind reports whether dsn should be treated as a Postgres
// connection string, matching startup.rs's "postgres"-prefix sniff.
func resolveDSNKind(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}
