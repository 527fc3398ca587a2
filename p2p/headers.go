package p2p

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

const (
	MaxLocatorHashes = 64
	MaxHeadersPerMsg = 2_000
)

// GetHeadersPayload requests up to Count headers following the first
// locator hash the remote peer recognizes (§4.8: "request headers using a
// locator").
type GetHeadersPayload struct {
	FromHashes []primitives.Hash
	Count      uint32
}

func EncodeGetHeadersPayload(p GetHeadersPayload) ([]byte, error) {
	if len(p.FromHashes) == 0 || len(p.FromHashes) > MaxLocatorHashes {
		return nil, fmt.Errorf("p2p: getheaders: invalid locator length")
	}
	w := primitives.NewWriter(4 + len(p.FromHashes)*32)
	w.PutCompactSize(uint64(len(p.FromHashes)))
	for _, h := range p.FromHashes {
		w.PutHash(h)
	}
	w.PutU32(p.Count)
	return w.Bytes(), nil
}

func DecodeGetHeadersPayload(b []byte) (*GetHeadersPayload, error) {
	r := primitives.NewReader(b)
	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n == 0 || n > MaxLocatorHashes {
		return nil, fmt.Errorf("p2p: getheaders: invalid hash_count")
	}
	hashes := make([]primitives.Hash, 0, n)
	for i := uint64(0); i < n; i++ {
		h, err := r.Hash()
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: getheaders: trailing bytes")
	}
	return &GetHeadersPayload{FromHashes: hashes, Count: count}, nil
}

type HeadersPayload struct {
	Headers []chain.BlockHeader
}

func EncodeHeadersPayload(p HeadersPayload) ([]byte, error) {
	if len(p.Headers) > MaxHeadersPerMsg {
		return nil, fmt.Errorf("p2p: headers: too many headers")
	}
	w := primitives.NewWriter(9 + len(p.Headers)*320)
	w.PutCompactSize(uint64(len(p.Headers)))
	for i := range p.Headers {
		w.PutVarBytes(p.Headers[i].Bytes())
	}
	return w.Bytes(), nil
}

func DecodeHeadersPayload(b []byte) (*HeadersPayload, error) {
	r := primitives.NewReader(b)
	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n > MaxHeadersPerMsg {
		return nil, fmt.Errorf("p2p: headers: count exceeds MaxHeadersPerMsg")
	}
	out := make([]chain.BlockHeader, 0, n)
	for i := uint64(0); i < n; i++ {
		hb, err := r.VarBytes(1024)
		if err != nil {
			return nil, err
		}
		h, err := chain.DecodeBlockHeader(hb)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: headers: trailing bytes")
	}
	return &HeadersPayload{Headers: out}, nil
}

// BuildLocator returns a geometrically-sparse list of hashes from a chain
// of height tipHeight (§4.8: "a geometrically-sparse list of our recent
// header hashes"), following the teacher's headers.go
// BuildBlockLocatorHeights progression (dense near the tip, exponentially
// wider spacing further back), adapted to return hashes via hashAt instead
// of bare heights.
func BuildLocator(tipHeight uint64, hashAt func(height uint64) (primitives.Hash, bool)) []primitives.Hash {
	heights := make([]uint64, 0, MaxLocatorHashes)

	for i := uint64(0); i < 12 && len(heights) < MaxLocatorHashes; i++ {
		if tipHeight < i {
			break
		}
		heights = append(heights, tipHeight-i)
	}

	var step uint64 = 4
	var offset uint64 = 14
	for len(heights) < MaxLocatorHashes {
		if tipHeight < offset {
			break
		}
		heights = append(heights, tipHeight-offset)
		if step > (1 << 62) {
			break
		}
		offset += step
		step *= 2
	}

	if len(heights) == 0 || heights[len(heights)-1] != 0 {
		if len(heights) < MaxLocatorHashes {
			heights = append(heights, 0)
		} else {
			heights[len(heights)-1] = 0
		}
	}

	out := make([]primitives.Hash, 0, len(heights))
	for _, h := range heights {
		hash, ok := hashAt(h)
		if !ok {
			continue
		}
		out = append(out, hash)
	}
	return out
}
