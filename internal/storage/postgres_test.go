package storage

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

func newMockedStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{
		db:           db,
		logger:       log.New(os.Stdout, "[Storage] ", log.LstdFlags),
		maxOpenConns: 1,
	}, mock
}

func sampleBatch() *domain.Batch {
	return &domain.Batch{
		ID:        uuid.New(),
		DataFile:  "batch.bin",
		NewRoot:   "0xroot",
		Status:    domain.StatusProving,
		DaMode:    domain.DaModeCalldata,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestSaveBatchUpsert(t *testing.T) {
	store, mock := newMockedStore(t)
	batch := sampleBatch()

	mock.ExpectExec("INSERT INTO batches").
		WithArgs(batch.ID.String(), batch.DataFile, batch.NewRoot, string(batch.Status), string(batch.DaMode),
			batch.Proof, batch.TxHash, batch.Attempts, batch.CreatedAt, batch.UpdatedAt,
			batch.SupersededTxHash, batch.BlobVersionedHash, batch.BlobIndex).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SaveBatch(t.Context(), batch); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func batchRowColumns() []string {
	return []string{
		"id", "data_file", "new_root", "status", "da_mode", "proof", "tx_hash",
		"attempts", "created_at", "updated_at", "superseded_tx_hash", "blob_versioned_hash", "blob_index",
	}
}

func TestGetBatchNotFound(t *testing.T) {
	store, mock := newMockedStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.|\n)* FROM batches WHERE id = ").
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(batchRowColumns()))

	_, err := store.GetBatch(t.Context(), id)
	if err != domainerr.ErrBatchNotFound {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestGetBatchDecodesRow(t *testing.T) {
	store, mock := newMockedStore(t)
	batch := sampleBatch()

	rows := sqlmock.NewRows(batchRowColumns()).AddRow(
		batch.ID.String(), batch.DataFile, batch.NewRoot, string(batch.Status), string(batch.DaMode),
		batch.Proof, batch.TxHash, batch.Attempts, batch.CreatedAt, batch.UpdatedAt,
		batch.SupersededTxHash, batch.BlobVersionedHash, batch.BlobIndex,
	)
	mock.ExpectQuery("SELECT (.|\n)* FROM batches WHERE id = ").
		WithArgs(batch.ID.String()).
		WillReturnRows(rows)

	got, err := store.GetBatch(t.Context(), batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.ID != batch.ID || got.Status != batch.Status {
		t.Fatalf("decoded batch mismatch: %+v", got)
	}
}

func TestListPendingSkipsMalformedRows(t *testing.T) {
	store, mock := newMockedStore(t)
	good := sampleBatch()

	rows := sqlmock.NewRows(batchRowColumns()).
		AddRow("not-a-uuid", good.DataFile, good.NewRoot, string(good.Status), string(good.DaMode),
			good.Proof, good.TxHash, good.Attempts, good.CreatedAt, good.UpdatedAt,
			good.SupersededTxHash, good.BlobVersionedHash, good.BlobIndex).
		AddRow(good.ID.String(), good.DataFile, good.NewRoot, string(good.Status), string(good.DaMode),
			good.Proof, good.TxHash, good.Attempts, good.CreatedAt, good.UpdatedAt,
			good.SupersededTxHash, good.BlobVersionedHash, good.BlobIndex)

	mock.ExpectQuery("SELECT (.|\n)* FROM batches WHERE status").WillReturnRows(rows)

	batches, err := store.ListPending(t.Context())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected the malformed row to be skipped, got %d batches", len(batches))
	}
	if batches[0].ID != good.ID {
		t.Fatalf("expected the well-formed row to survive, got %s", batches[0].ID)
	}
}
