// Package primitives implements the fixed-size hashes, curve points and
// scalars, Pedersen commitments, range proofs, Schnorr signatures, and the
// canonical little-endian codec shared by every other package in this
// module.
package primitives

import (
	"golang.org/x/crypto/blake2b"
)

// Hash is a 32-byte Blake2b-256 digest. All chain identifiers are hashes.
type Hash [32]byte

// ZeroHash is the all-zero hash, used as the previous-hash of the genesis
// header and as the coinbase input's null outpoint.
var ZeroHash Hash

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// Bytes returns a copy of h's bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, h[:])
	return out
}

// DomainTag is a one-byte personalization tag prepended to a message before
// hashing, so that hashes of semantically distinct message kinds can never
// collide even if their raw byte encodings happen to match.
//
// The exact tag values are implementation-fixed per the Open Question in
// spec §9 ("implementers must fix them and publish a test vector per type").
type DomainTag byte

const (
	DomainKernelSignature  DomainTag = 0x01
	DomainOutputID         DomainTag = 0x02
	DomainMMRLeaf          DomainTag = 0x03
	DomainMMRNode          DomainTag = 0x04
	DomainOutputMerkleRoot DomainTag = 0x05
	DomainBlockHeader      DomainTag = 0x06
	DomainWitnessBitmap    DomainTag = 0x07
	DomainScriptSignature  DomainTag = 0x08
	DomainPedersenH        DomainTag = 0x09
)

// HashDomain computes Blake2b-256(tag || data...), concatenating every data
// slice after the single domain-tag byte.
func HashDomain(tag DomainTag, data ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for bad key lengths; we never pass a key.
		panic("primitives: blake2b init: " + err.Error())
	}
	h.Write([]byte{byte(tag)})
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashRaw computes Blake2b-256(data...) with no domain tag. Used only for
// the roaring-bitmap sidecar hash, which is combined with a tagged hash at
// the call site (see mmr.OutputMerkleRoot).
func HashRaw(data ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("primitives: blake2b init: " + err.Error())
	}
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
