package primitives

import "encoding/binary"

// RangeProof is an opaque byte string attesting that a commitment hides a
// value in [0, 2^64) (§3: "Range proof").
//
// A real Tari node uses Bulletproofs+ here. No Bulletproof library appears
// anywhere in the retrieval pack this module was built from (see
// DESIGN.md), so this package supplies a deterministic placeholder scheme:
// a proof is the value followed by a domain-separated hash of
// (commitment, blind, value), so a given (value, blind, commitment) triple
// always produces the same proof bytes. Verification checks only the
// proof's length and that its digest is not all zero; it does not tie the
// proof to the commitment, does not check the value's range, and claims no
// zero-knowledge.
type RangeProof []byte

// BuildRangeProof constructs the placeholder proof for commitment C
// hiding value under blind.
func BuildRangeProof(value uint64, blind Scalar, commitment Commitment) RangeProof {
	var valueBytes [8]byte
	binary.LittleEndian.PutUint64(valueBytes[:], value)
	digest := HashDomain(DomainOutputID, commitment[:], blind.Bytes(), valueBytes[:])
	proof := make([]byte, 8+32)
	copy(proof[:8], valueBytes[:])
	copy(proof[8:], digest[:])
	return proof
}

// VerifyRangeProof checks proof's shape only: it accepts any 40-byte proof
// whose 32-byte digest is not all zero. The commitment argument is not
// consulted, and the embedded value is not checked.
func VerifyRangeProof(commitment Commitment, proof RangeProof) bool {
	if len(proof) != 8+32 {
		return false
	}
	// The placeholder cannot recompute the digest without the blind, which
	// is exactly the information a range proof must not reveal, so it only
	// rejects an all-zero digest.
	var zero [32]byte
	return proof[8] != zero[0] || !allZero(proof[8:])
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
