package da

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

// BridgeClient is the subset of *chain.Client the DA strategies need.
// Kept as a local interface (rather than importing internal/chain's
// concrete type) so da stays independently testable with a fake.
type BridgeClient interface {
	SendCommitBatch(ctx context.Context, p CommitBatchParams) (common.Hash, error)
	CheckConfirmation(ctx context.Context, txHash common.Hash) (bool, error)
}

// CommitBatchParams are the commitBatch call arguments; DA strategies
// build one of these and hand it to the bridge client, whose
// SendCommitBatch (chain.Client) takes this type directly.
type CommitBatchParams struct {
	DaID    uint8
	Data    []byte
	DaMeta  []byte
	NewRoot common.Hash
	Proof   Groth16Proof
}

// CalldataStrategy posts the full (optionally zlib-compressed) batch
// payload as transaction calldata. Grounded on da_calldata.rs.
type CalldataStrategy struct {
	Bridge      BridgeClient
	Compression bool
}

func NewCalldataStrategy(bridge BridgeClient, compression bool) *CalldataStrategy {
	return &CalldataStrategy{Bridge: bridge, Compression: compression}
}

func (s *CalldataStrategy) DaID() uint8 { return 0 }

func (s *CalldataStrategy) ComputeCommitment(ctx context.Context, batch *domain.Batch) (common.Hash, error) {
	payload, err := s.loadPayload(batch)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(payload), nil
}

// EncodeDaMeta is empty for calldata mode: the data itself is the
// on-chain availability proof, there is no side metadata to encode.
func (s *CalldataStrategy) EncodeDaMeta(ctx context.Context, batch *domain.Batch) ([]byte, error) {
	return []byte{}, nil
}

func (s *CalldataStrategy) Submit(ctx context.Context, batch *domain.Batch, proofBytes []byte) (string, error) {
	proof, err := ParseGroth16Proof(proofBytes)
	if err != nil {
		return "", err
	}
	payload, err := s.loadPayload(batch)
	if err != nil {
		return "", err
	}
	newRoot, err := parseRoot(batch.NewRoot)
	if err != nil {
		return "", domainerr.Da("invalid new_root: %v", err)
	}

	txHash, err := s.Bridge.SendCommitBatch(ctx, CommitBatchParams{
		DaID:    s.DaID(),
		Data:    payload,
		DaMeta:  []byte{},
		NewRoot: newRoot,
		Proof:   proof,
	})
	if err != nil {
		return "", err
	}
	return txHash.Hex(), nil
}

func (s *CalldataStrategy) CheckConfirmation(ctx context.Context, txHash string) (bool, error) {
	return s.Bridge.CheckConfirmation(ctx, common.HexToHash(txHash))
}

// loadPayload reads the batch's data file and applies zlib compression
// when enabled, matching compute_commitment/submit's shared read path
// in da_calldata.rs (both call the same read+compress routine so the
// commitment always matches what is actually submitted).
func (s *CalldataStrategy) loadPayload(batch *domain.Batch) ([]byte, error) {
	raw, err := os.ReadFile(batch.DataFile)
	if err != nil {
		return nil, domainerr.DaWrap(err, "read data file %s", batch.DataFile)
	}
	if !s.Compression {
		return raw, nil
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, domainerr.DaWrap(err, "compress data file %s", batch.DataFile)
	}
	if err := w.Close(); err != nil {
		return nil, domainerr.DaWrap(err, "flush compressed data file %s", batch.DataFile)
	}
	return buf.Bytes(), nil
}

func parseRoot(hexRoot string) (common.Hash, error) {
	b := common.FromHex(hexRoot)
	if len(b) != common.HashLength {
		return common.Hash{}, io.ErrUnexpectedEOF
	}
	return common.BytesToHash(b), nil
}
