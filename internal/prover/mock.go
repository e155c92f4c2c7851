package prover

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockProver is a local stand-in for the HTTP prover, used when no
// prover endpoint is configured and in tests, grounded on the
// original's MockProofProvider.
type MockProver struct {
	Delay time.Duration
}

// NewMockProver constructs a mock prover with a small simulated delay.
func NewMockProver() *MockProver {
	return &MockProver{Delay: 50 * time.Millisecond}
}

// GetProof returns a well-formed but meaningless 256-byte Groth16
// proof (a[2], b[2][2], c[2] of 32-byte words), with the public inputs
// folded into the first word so distinct batches get distinct output.
func (m *MockProver) GetProof(ctx context.Context, batchID uuid.UUID, publicInputs []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.Delay):
	}

	proof := make([]byte, 256)
	if len(publicInputs) > 0 {
		copy(proof[:32], publicInputs[:min(32, len(publicInputs))])
	}
	proof[32+31] = 1 // a[1] = 1
	proof[64+31] = 1 // b[0][0] = 1
	proof[224+31] = 1 // c[1] = 1
	return proof, nil
}
