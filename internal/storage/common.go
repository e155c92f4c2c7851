package storage

import (
	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
)

// rowScanner matches both *sql.Row.Scan and *sql.Rows.Scan so
// scanBatchRow can serve both GetBatch and ListPending.
type rowScanner func(dest ...interface{}) error

// scanBatchRow decodes one batches row into a domain.Batch, returning
// the raw status string separately so callers can apply their own
// validity/skip policy instead of baking it into the scan itself.
func scanBatchRow(scan rowScanner) (*domain.Batch, domain.Status, error) {
	var (
		idStr      string
		statusStr  string
		daModeStr  string
		b          domain.Batch
	)

	err := scan(
		&idStr, &b.DataFile, &b.NewRoot, &statusStr, &daModeStr, &b.Proof, &b.TxHash,
		&b.Attempts, &b.CreatedAt, &b.UpdatedAt, &b.SupersededTxHash, &b.BlobVersionedHash, &b.BlobIndex,
	)
	if err != nil {
		return nil, "", err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, "", err
	}
	b.ID = id
	b.Status = domain.Status(statusStr)
	b.DaMode = domain.DaMode(daModeStr)
	return &b, b.Status, nil
}
