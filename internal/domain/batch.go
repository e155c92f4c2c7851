// Package domain holds the durable Batch entity shared by every
// component of the submitter: orchestrator, storage, da, and prover.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Batch.
type Status string

const (
	StatusDiscovered Status = "Discovered"
	StatusProving    Status = "Proving"
	StatusProved     Status = "Proved"
	StatusSubmitting Status = "Submitting"
	StatusSubmitted  Status = "Submitted"
	StatusConfirmed  Status = "Confirmed"
	StatusFailed     Status = "Failed"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusDiscovered, StatusProving, StatusProved, StatusSubmitting,
		StatusSubmitted, StatusConfirmed, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is an absorbing state.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// DaMode tags which DaStrategy variant a batch was created under.
type DaMode string

const (
	DaModeCalldata DaMode = "calldata"
	DaModeBlob     DaMode = "blob"
)

func (m DaMode) String() string { return string(m) }

// batchIDNamespace domain-separates batch identity UUIDs from any other
// UUID-v5 usage in this codebase.
var batchIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeriveBatchID computes the deterministic idempotency key for a batch:
// UUID-v5 over chain_id | bridge_address | sha1(payload) | new_root | da_mode.
func DeriveBatchID(chainID int64, bridgeAddress, payloadSHA1Hex, newRoot string, mode DaMode) uuid.UUID {
	input := fmt.Sprintf("%d|%s|%s|%s|%s", chainID, bridgeAddress, payloadSHA1Hex, newRoot, mode)
	return uuid.NewSHA1(batchIDNamespace, []byte(input))
}

// Batch is the single durable entity the submitter operates on.
type Batch struct {
	ID        uuid.UUID
	DataFile  string
	NewRoot   string // hex, 32 bytes
	Status    Status
	DaMode    DaMode
	Proof     *string // hex proof bytes once produced
	TxHash    *string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time

	// SupersededTxHash is a persisted audit column for a tx hash
	// replaced by a resubmission. The orchestrator never sets it: its
	// Submitted -> Submitting recovery edge fires only when TxHash is
	// nil, so no hash is orphaned there.
	SupersededTxHash *string

	// Blob-mode only fields.
	BlobVersionedHash *string
	BlobIndex         *uint8
}

// NewBatch constructs a freshly discovered batch, deriving its id and
// setting created_at/updated_at together, matching batch.rs's Batch::new.
func NewBatch(chainID int64, bridgeAddress, dataFile, payloadSHA1Hex, newRoot string, mode DaMode) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:        DeriveBatchID(chainID, bridgeAddress, payloadSHA1Hex, newRoot, mode),
		DataFile:  dataFile,
		NewRoot:   newRoot,
		Status:    StatusDiscovered,
		DaMode:    mode,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo is the single mutator for status; it keeps status and
// updated_at changing together, matching the invariant that every
// persisted transition advances both fields atomically.
func (b *Batch) TransitionTo(status Status) {
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
}

// IsPending reports whether the batch is not in a terminal state.
func (b *Batch) IsPending() bool {
	return !b.Status.IsTerminal()
}
