package mmr

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tari-project/basenode/primitives"
)

// Witness tracks, for a single output MMR, which leaf indices are still
// unspent. A roaring bitmap gives compact storage and fast set operations
// over what is in practice a long append-only, sparsely-punctured range —
// the same shape a compact UTXO-set bitmap has in any UTXO chain.
type Witness struct {
	bitmap *roaring.Bitmap
}

func NewWitness() *Witness {
	return &Witness{bitmap: roaring.New()}
}

// MarkUnspent records leaf index i as unspent (called when an output is
// added to the MMR).
func (w *Witness) MarkUnspent(i uint64) { w.bitmap.Add(uint32(i)) }

// MarkSpent clears leaf index i, called when the output it represents is
// consumed as a transaction input.
func (w *Witness) MarkSpent(i uint64) { w.bitmap.Remove(uint32(i)) }

func (w *Witness) IsUnspent(i uint64) bool { return w.bitmap.Contains(uint32(i)) }

func (w *Witness) Clone() *Witness { return &Witness{bitmap: w.bitmap.Clone()} }

// TruncateTo clears every witness bit at a leaf index >= leafCount, the
// witness half of the MMR's deterministic truncate_to rollback (§4.2:
// "witness bits at positions >= size are cleared").
func (w *Witness) TruncateTo(leafCount uint64) {
	w.bitmap.RemoveRange(leafCount, uint64(1)<<32)
}

// Bytes serializes a run-optimized copy of the bitmap for persistence in
// the chain state store; the live bitmap is left unchanged.
func (w *Witness) Bytes() ([]byte, error) {
	bm := w.bitmap.Clone()
	bm.RunOptimize()
	return bm.ToBytes()
}

// WitnessFromBytes reconstructs a Witness from its serialized form.
func WitnessFromBytes(b []byte) (*Witness, error) {
	bm := roaring.New()
	if _, err := bm.FromBuffer(b); err != nil {
		return nil, err
	}
	return &Witness{bitmap: bm}, nil
}

// Hash returns a domain-tagged digest of the witness bitmap's serialized
// bytes, the sidecar half of OutputMerkleRoot.
func (w *Witness) Hash() (primitives.Hash, error) {
	b, err := w.Bytes()
	if err != nil {
		return primitives.Hash{}, err
	}
	return primitives.HashDomain(primitives.DomainWitnessBitmap, b), nil
}

// OutputMerkleRoot combines the output MMR's root with the spent/unspent
// witness bitmap's hash, per §4.2: "output_merkle_root =
// Hash(mmr_root || bitmap_hash)". Using HashRaw (untagged) at the
// combination step matches the one case HashRaw is meant for
// (primitives.HashRaw's doc comment); the two inputs are already
// individually domain-tagged.
func OutputMerkleRoot(mmrRoot primitives.Hash, witness *Witness) (primitives.Hash, error) {
	bitmapHash, err := witness.Hash()
	if err != nil {
		return primitives.Hash{}, err
	}
	return primitives.HashRaw(mmrRoot[:], bitmapHash[:]), nil
}
