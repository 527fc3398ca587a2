package mmr

import "github.com/tari-project/basenode/primitives"

// nodeHash combines two child node hashes into their parent, committing to
// the parent's own one-based position to prevent proof equivocation across
// positions, exactly as AddHashedLeaf in the reference implementation does.
func nodeHash(tag primitives.DomainTag, parentPos uint64, left, right [32]byte) [32]byte {
	var posBytes [8]byte
	for i := 0; i < 8; i++ {
		posBytes[i] = byte(parentPos >> (8 * i))
	}
	h := primitives.HashDomain(tag, posBytes[:], left[:], right[:])
	return [32]byte(h)
}

func leafHash(tag primitives.DomainTag, leaf []byte) [32]byte {
	return [32]byte(primitives.HashDomain(tag, leaf))
}

// AppendLeaf adds a hashed leaf to store and backfills any interior nodes
// that become complete as a result, returning the MMR size after the
// append (which is also the index the next leaf will occupy).
func AppendLeaf(store NodeStore, tag primitives.DomainTag, leaf []byte) (uint64, error) {
	i, err := store.Append(leafHash(tag, leaf))
	if err != nil {
		return 0, err
	}

	height := uint64(0)
	for IndexHeight(i) > height {
		iLeft := i - (2 << height)
		iRight := i - 1

		left, err := store.Get(iLeft)
		if err != nil {
			return 0, err
		}
		right, err := store.Get(iRight)
		if err != nil {
			return 0, err
		}

		parent := nodeHash(primitives.DomainMMRNode, i+2, left, right)
		i, err = store.Append(parent)
		if err != nil {
			return 0, err
		}
		height++
	}
	return store.Size(), nil
}

// PeakHashes resolves the one-based peak positions of an MMR of the given
// size into their node hashes.
func PeakHashes(store NodeStore, size uint64) ([][32]byte, error) {
	positions := Peaks(size)
	out := make([][32]byte, len(positions))
	for idx, pos := range positions {
		h, err := store.Get(pos - 1)
		if err != nil {
			return nil, err
		}
		out[idx] = h
	}
	return out, nil
}

// Root bags the peaks of an MMR of the given size into a single root,
// folding right to left so the right-most (smallest) peak is innermost and
// the tallest (left-most) peak is hashed in last, matching the teacher's tagged-merkle-root convention of never leaving an
// odd node unpromoted (consensus/merkle.go's bagging rule, generalized to
// an arbitrary peak count instead of a power-of-two leaf count).
func Root(store NodeStore, size uint64) (primitives.Hash, error) {
	if size == 0 {
		return primitives.Hash{}, errEmptyMMR
	}
	peaks, err := PeakHashes(store, size)
	if err != nil {
		return primitives.Hash{}, err
	}
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = [32]byte(primitives.HashDomain(primitives.DomainMMRNode, peaks[i][:], acc[:]))
	}
	return primitives.Hash(acc), nil
}

// LeafCount returns the number of leaves recorded in an MMR of the given
// size.
func LeafCount(size uint64) uint64 { return leafCount(size) }

// TruncateTo rolls store back to the node count it had when its size was
// exactly newSize, and — for the output MMR, which carries a spent/unspent
// witness alongside its nodes — clears every witness bit whose leaf index
// is no longer covered by that prefix. §4.2 requires this to be byte-
// deterministic: Root(store, newSize) and Size() after TruncateTo must be
// identical to the values observed when the MMR was last at that size, and
// a kernel MMR (witness == nil) only ever needs the node truncation.
func TruncateTo(store TruncatableStore, witness *Witness, newSize uint64) {
	store.Truncate(newSize)
	if witness != nil {
		witness.TruncateTo(LeafCount(newSize))
	}
}
