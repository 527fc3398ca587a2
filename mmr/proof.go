package mmr

import "github.com/tari-project/basenode/primitives"

// InclusionProof collects the sibling hashes needed to walk from leaf index
// i up to its containing accumulator peak, following the same sibling-walk
// used by the reference implementation's InclusionProof.
func InclusionProof(store NodeStore, lastIndex uint64, i uint64) ([][32]byte, error) {
	if i > lastIndex {
		return nil, errIndexRange
	}

	var proof [][32]byte
	g := IndexHeight(i)
	for {
		siblingOff := uint64(2) << g
		var iSibling uint64
		if IndexHeight(i+1) > g {
			iSibling = i - siblingOff + 1
			i++
		} else {
			iSibling = i + siblingOff - 1
			i += siblingOff
		}
		if iSibling > lastIndex {
			return proof, nil
		}
		h, err := store.Get(iSibling)
		if err != nil {
			return nil, err
		}
		proof = append(proof, h)
		g++
	}
}

// VerifyInclusion checks that leaf, combined with proof, reduces to the
// peak hash recorded in peakHashes (as returned by PeakHashes) for an MMR
// of the given size.
func VerifyInclusion(size uint64, leaf []byte, i uint64, proof [][32]byte, peakHashes [][32]byte, tag primitives.DomainTag) bool {
	acc := leafHash(tag, leaf)
	pos := i + 1
	height := posHeight(pos)

	for _, sibling := range proof {
		if posHeight(pos+1) > height {
			pos++
			acc = nodeHash(primitives.DomainMMRNode, pos, sibling, acc)
		} else {
			pos += 2 << height
			acc = nodeHash(primitives.DomainMMRNode, pos, acc, sibling)
		}
		height++
	}

	peaks := Peaks(size)
	for idx, p := range peaks {
		if p == pos {
			return idx < len(peakHashes) && peakHashes[idx] == acc
		}
	}
	return false
}
