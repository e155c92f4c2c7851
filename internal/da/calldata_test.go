package da

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/rollup-submitter/internal/domain"
)

type fakeBridgeClient struct {
	sentParams      CommitBatchParams
	sendErr         error
	confirmed       bool
	confirmErr      error
}

func (f *fakeBridgeClient) SendCommitBatch(ctx context.Context, p CommitBatchParams) (common.Hash, error) {
	f.sentParams = p
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	return common.HexToHash("0xabc"), nil
}

func (f *fakeBridgeClient) CheckConfirmation(ctx context.Context, txHash common.Hash) (bool, error) {
	return f.confirmed, f.confirmErr
}

func writeTempBatchFile(t *testing.T, contents []byte) *domain.Batch {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.bin")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write temp batch file: %v", err)
	}
	return &domain.Batch{
		DataFile: path,
		NewRoot:  "0x" + "11", // not 32 bytes; callers set a full root
	}
}

func TestCalldataComputeCommitmentMatchesSubmittedPayload(t *testing.T) {
	payload := []byte("batch-payload")
	batch := writeTempBatchFile(t, payload)
	batch.NewRoot = common.BigToHash(common.Big1).Hex()

	bridge := &fakeBridgeClient{confirmed: true}
	strategy := NewCalldataStrategy(bridge, false)

	commitment, err := strategy.ComputeCommitment(context.Background(), batch)
	if err != nil {
		t.Fatalf("compute commitment: %v", err)
	}
	if commitment != crypto.Keccak256Hash(payload) {
		t.Fatal("commitment does not match keccak256 of the uncompressed payload")
	}

	if _, err := strategy.Submit(context.Background(), batch, EncodeGroth16Proof(sampleProof())); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(bridge.sentParams.Data) != string(payload) {
		t.Fatal("expected the same payload bytes used for the commitment to be submitted as calldata")
	}
	if bridge.sentParams.DaID != 0 {
		t.Fatalf("expected da_id 0 for calldata mode, got %d", bridge.sentParams.DaID)
	}
}

func TestCalldataCompressionChangesCommitment(t *testing.T) {
	payload := []byte("repeated-repeated-repeated-repeated-repeated")
	batch := writeTempBatchFile(t, payload)
	batch.NewRoot = common.BigToHash(common.Big1).Hex()

	plain := NewCalldataStrategy(&fakeBridgeClient{}, false)
	compressed := NewCalldataStrategy(&fakeBridgeClient{}, true)

	plainCommitment, err := plain.ComputeCommitment(context.Background(), batch)
	if err != nil {
		t.Fatalf("plain commitment: %v", err)
	}
	compressedCommitment, err := compressed.ComputeCommitment(context.Background(), batch)
	if err != nil {
		t.Fatalf("compressed commitment: %v", err)
	}
	if plainCommitment == compressedCommitment {
		t.Fatal("expected compression to change the computed commitment")
	}
}

func TestCalldataCheckConfirmationDelegatesToBridge(t *testing.T) {
	bridge := &fakeBridgeClient{confirmed: true}
	strategy := NewCalldataStrategy(bridge, false)

	ok, err := strategy.CheckConfirmation(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("check confirmation: %v", err)
	}
	if !ok {
		t.Fatal("expected confirmation to be true")
	}
}
