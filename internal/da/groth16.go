// Package da implements the two DA strategies (Calldata, Blob) behind
// the orchestrator.DaStrategy port, grounded on da_calldata.rs and
// da_blob.rs.
package da

import (
	"math/big"

	"github.com/certen/rollup-submitter/internal/domainerr"
)

// Groth16Proof is the on-chain proof tuple shape: a[2], b[2][2], c[2],
// each a 32-byte big-endian field element. This matches both
// contracts.rs's abigen ABI and the teacher's BLSZKProof layout.
type Groth16Proof struct {
	A [2]*big.Int
	B [2][2]*big.Int
	C [2]*big.Int
}

const groth16ProofByteLen = 256

// ParseGroth16Proof decodes a flat 256-byte proof (a0,a1,b00,b01,b10,b11,c0,c1,
// each 32 bytes) into its tuple form.
func ParseGroth16Proof(raw []byte) (Groth16Proof, error) {
	if len(raw) != groth16ProofByteLen {
		return Groth16Proof{}, domainerr.Da("groth16 proof must be %d bytes, got %d", groth16ProofByteLen, len(raw))
	}

	word := func(i int) *big.Int {
		return new(big.Int).SetBytes(raw[i*32 : (i+1)*32])
	}

	return Groth16Proof{
		A: [2]*big.Int{word(0), word(1)},
		B: [2][2]*big.Int{{word(2), word(3)}, {word(4), word(5)}},
		C: [2]*big.Int{word(6), word(7)},
	}, nil
}

// EncodeGroth16Proof is the inverse of ParseGroth16Proof.
func EncodeGroth16Proof(p Groth16Proof) []byte {
	out := make([]byte, 0, groth16ProofByteLen)
	words := []*big.Int{p.A[0], p.A[1], p.B[0][0], p.B[0][1], p.B[1][0], p.B[1][1], p.C[0], p.C[1]}
	for _, w := range words {
		var buf [32]byte
		w.FillBytes(buf[:])
		out = append(out, buf[:]...)
	}
	return out
}
