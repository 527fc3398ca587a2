package pow

import (
	"math/big"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// maxU256 is the ceiling achieved difficulty is derived from:
// floor(max_u256 / hash_for_pow(header, algo)) per §4.7.
var maxU256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// hashForPow computes the algorithm-specific proof-of-work hash of a
// header, folding the nonce in last so that mining (which only varies the
// nonce) never has to re-hash the rest of the header.
//
// For SHA3x the real Tari node runs several rounds of Blake256 over the
// header-without-nonce, then folds in the nonce. No Blake256
// implementation appears anywhere in the retrieval pack (only Blake2b,
// via golang.org/x/crypto/blake2b, and SHA3, via golang.org/x/crypto/sha3,
// do), so this module substitutes two rounds of domain-tagged Blake2b-256
// — the same "hash the hash, then fold the nonce" shape, built from the
// hash primitive this module already uses everywhere else (see
// DESIGN.md).
//
// For RandomX the real algorithm needs the Monero parent header the
// merge-mining proof carries and a RandomX VM; per §9's Open Question the
// merge-mining proof encoding is network-parameterized and treated as
// opaque here, so this module hashes the opaque pow_data blob itself
// rather than executing RandomX (no RandomX binding exists in the
// retrieval pack; see DESIGN.md / SPEC_FULL.md Non-goals).
func hashForPow(header *chain.BlockHeader) primitives.Hash {
	withoutNonce := header.BytesWithoutPow()
	switch header.Pow.Algo {
	case chain.PowAlgoSHA3x:
		round1 := primitives.HashDomain(primitives.DomainBlockHeader, withoutNonce)
		var nonceBytes [8]byte
		putU64LE(nonceBytes[:], header.Nonce)
		return primitives.HashDomain(primitives.DomainBlockHeader, round1[:], nonceBytes[:])
	case chain.PowAlgoRandomX:
		var nonceBytes [8]byte
		putU64LE(nonceBytes[:], header.Nonce)
		return primitives.HashDomain(primitives.DomainBlockHeader, header.Pow.PowData, withoutNonce, nonceBytes[:])
	default:
		return primitives.HashDomain(primitives.DomainBlockHeader, withoutNonce)
	}
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// AchievedDifficulty returns floor(max_u256 / hash_for_pow(header, algo)).
// A header whose PoW hash is the all-zero hash (never produced by a real
// hash function) is reported as the maximum possible difficulty rather
// than dividing by zero.
func AchievedDifficulty(header *chain.BlockHeader) *big.Int {
	h := hashForPow(header)
	asInt := new(big.Int).SetBytes(h[:])
	if asInt.Sign() == 0 {
		return new(big.Int).Set(maxU256)
	}
	return new(big.Int).Div(maxU256, asInt)
}
