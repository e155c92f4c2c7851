package orchestrator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// snarkScalarField is the BN254 scalar field modulus:
// 21888242871839275222246405745257275088548364400416034343698204186575808495617
var snarkScalarField, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// sanitize interprets a 32-byte big-endian value as an unsigned 256-bit
// integer and reduces it modulo the BN254 scalar field. Reduction is
// mandatory: raw 32-byte hashes routinely exceed the field modulus and
// would otherwise produce a proof the on-chain verifier rejects.
func sanitize(x common.Hash) [32]byte {
	v := new(big.Int).SetBytes(x[:])
	v.Mod(v, snarkScalarField)

	var out [32]byte
	v.FillBytes(out[:])
	return out
}

// buildPublicInputs concatenates the sanitized (commitment, old_root,
// new_root) triple into the 96-byte buffer sent to the prover, in that
// fixed order.
func buildPublicInputs(commitment, oldRoot, newRoot common.Hash) []byte {
	buf := make([]byte, 0, 96)
	a := sanitize(commitment)
	b := sanitize(oldRoot)
	c := sanitize(newRoot)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	buf = append(buf, c[:]...)
	return buf
}
