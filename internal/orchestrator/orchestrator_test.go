package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

// ============================================================================
// Mock ports
// ============================================================================

type mockStorage struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*domain.Batch
}

func newMockStorage(batch *domain.Batch) *mockStorage {
	return &mockStorage{batches: map[uuid.UUID]*domain.Batch{batch.ID: batch}}
}

func (m *mockStorage) SaveBatch(ctx context.Context, batch *domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *mockStorage) GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domainerr.ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockStorage) ListPending(ctx context.Context) ([]*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Batch
	for _, b := range m.batches {
		if b.IsPending() {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockProver struct {
	shouldFail bool
}

func (p *mockProver) GetProof(ctx context.Context, batchID uuid.UUID, publicInputs []byte) ([]byte, error) {
	if p.shouldFail {
		return nil, domainerr.Prover("mock prover failure")
	}
	return []byte{0xAB, 0xCD}, nil
}

type mockDaStrategy struct {
	shouldFailSubmit  bool
	shouldFailConfirm bool
	confirmResult     bool
}

func (d *mockDaStrategy) DaID() uint8 { return 0 }

func (d *mockDaStrategy) ComputeCommitment(ctx context.Context, batch *domain.Batch) (common.Hash, error) {
	return common.Hash{}, nil
}

func (d *mockDaStrategy) EncodeDaMeta(ctx context.Context, batch *domain.Batch) ([]byte, error) {
	return []byte{}, nil
}

func (d *mockDaStrategy) Submit(ctx context.Context, batch *domain.Batch, proof []byte) (string, error) {
	if d.shouldFailSubmit {
		return "", domainerr.Da("fail")
	}
	return "0xhash", nil
}

func (d *mockDaStrategy) CheckConfirmation(ctx context.Context, txHash string) (bool, error) {
	if d.shouldFailConfirm {
		return false, domainerr.ErrReverted
	}
	return d.confirmResult, nil
}

type mockResolver struct {
	strategy DaStrategy
}

func (r *mockResolver) Resolve(mode domain.DaMode) (DaStrategy, error) {
	return r.strategy, nil
}

type mockBridgeReader struct{}

func (mockBridgeReader) StateRoot(ctx context.Context) (common.Hash, error) {
	return common.Hash{}, nil
}

const validHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

func newTestBatch() *domain.Batch {
	id := domain.DeriveBatchID(1, "0xbridge", "deadbeef", validHash, domain.DaModeCalldata)
	return &domain.Batch{
		ID:       id,
		DataFile: "f",
		NewRoot:  validHash,
		Status:   domain.StatusDiscovered,
		DaMode:   domain.DaModeCalldata,
	}
}

func newTestOrchestrator(batch *domain.Batch, proverFail, daFail, daConfirmFail bool) (*Orchestrator, *mockStorage) {
	store := newMockStorage(batch)
	prover := &mockProver{shouldFail: proverFail}
	da := &mockDaStrategy{shouldFailSubmit: daFail, shouldFailConfirm: daConfirmFail, confirmResult: true}
	orc := New(store, prover, &mockResolver{strategy: da}, mockBridgeReader{}, Config{MaxAttempts: 5})
	return orc, store
}

// ============================================================================
// Lifecycle tests
// ============================================================================

func TestProvingSuccess(t *testing.T) {
	batch := newTestBatch()
	orc, store := newTestOrchestrator(batch, false, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil { // Discovered -> Proving
		t.Fatalf("first tick: %v", err)
	}
	if err := orc.ProcessPending(ctx); err != nil { // Proving -> Proved
		t.Fatalf("second tick: %v", err)
	}

	updated, err := store.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if updated.Status != domain.StatusProved {
		t.Fatalf("expected Proved, got %s", updated.Status)
	}
	if updated.Proof == nil {
		t.Fatal("expected proof to be set")
	}
}

func TestProvingRetry(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusProving
	orc, store := newTestOrchestrator(batch, true, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Status != domain.StatusProving {
		t.Fatalf("expected still Proving, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", updated.Attempts)
	}
}

func TestProvingDeadLetter(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusProving
	batch.Attempts = 4 // one short of MaxAttempts=5
	orc, store := newTestOrchestrator(batch, true, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Status != domain.StatusFailed {
		t.Fatalf("expected Failed, got %s", updated.Status)
	}
}

func TestSubmittingMissingProof(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusSubmitting
	batch.Proof = nil
	orc, store := newTestOrchestrator(batch, false, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Status != domain.StatusFailed {
		t.Fatalf("expected Failed, got %s", updated.Status)
	}
}

func TestSubmittedRevert(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusSubmitted
	txHash := "0x123"
	batch.TxHash = &txHash
	orc, store := newTestOrchestrator(batch, false, false, true)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded on revert, got %d", updated.Attempts)
	}
}

// TestSubmittedRecoversMissingTxHash covers the crash-recovery edge: a
// batch observed in Submitted with no persisted tx hash regresses to
// Submitting so the next tick resubmits, rather than getting stuck.
func TestSubmittedRecoversMissingTxHash(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusSubmitted
	batch.TxHash = nil
	orc, store := newTestOrchestrator(batch, false, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Status != domain.StatusSubmitting {
		t.Fatalf("expected recovery to Submitting, got %s", updated.Status)
	}
}

func TestSubmittedConfirms(t *testing.T) {
	batch := newTestBatch()
	batch.Status = domain.StatusSubmitted
	txHash := "0x123"
	batch.TxHash = &txHash
	orc, store := newTestOrchestrator(batch, false, false, false)
	ctx := context.Background()

	if err := orc.ProcessPending(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	updated, _ := store.GetBatch(ctx, batch.ID)
	if updated.Status != domain.StatusConfirmed {
		t.Fatalf("expected Confirmed, got %s", updated.Status)
	}
}
