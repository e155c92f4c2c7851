package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
)

// Storage is the persistence capability the orchestrator depends on.
// Keeping it narrow (rather than importing the concrete storage
// package) is what lets internal/storage depend on internal/domain
// without the orchestrator depending on a specific backend.
type Storage interface {
	SaveBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	ListPending(ctx context.Context) ([]*domain.Batch, error)
}

// ProofProducer requests a succinct proof over a batch's sanitized
// public inputs.
type ProofProducer interface {
	GetProof(ctx context.Context, batchID uuid.UUID, publicInputs []byte) ([]byte, error)
}

// DaStrategy is the polymorphic capability set a DA variant (Calldata,
// Blob) must implement. The orchestrator never branches on da_mode
// itself; it only calls through this interface.
type DaStrategy interface {
	DaID() uint8
	ComputeCommitment(ctx context.Context, batch *domain.Batch) (common.Hash, error)
	EncodeDaMeta(ctx context.Context, batch *domain.Batch) ([]byte, error)
	Submit(ctx context.Context, batch *domain.Batch, proof []byte) (string, error)
	CheckConfirmation(ctx context.Context, txHash string) (bool, error)
}

// BridgeReader is the read-only L1 accessor. Kept separate from any
// broader chain client interface so the orchestrator's dependency
// graph stays acyclic: DA strategies may depend on a full chain
// client, but the orchestrator only ever needs this.
type BridgeReader interface {
	StateRoot(ctx context.Context) (common.Hash, error)
}

// StrategyResolver maps a batch's DaMode to the strategy responsible
// for it. Most deployments only ever register Calldata and Blob.
type StrategyResolver interface {
	Resolve(mode domain.DaMode) (DaStrategy, error)
}
