package p2p

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

const MaxBlocksPerRequest = 128

type GetBlocksPayload struct {
	Hashes []primitives.Hash
}

func EncodeGetBlocksPayload(p GetBlocksPayload) ([]byte, error) {
	if len(p.Hashes) == 0 || len(p.Hashes) > MaxBlocksPerRequest {
		return nil, fmt.Errorf("p2p: getblocks: invalid hash count")
	}
	w := primitives.NewWriter(4 + len(p.Hashes)*32)
	w.PutCompactSize(uint64(len(p.Hashes)))
	for _, h := range p.Hashes {
		w.PutHash(h)
	}
	return w.Bytes(), nil
}

func DecodeGetBlocksPayload(b []byte) (*GetBlocksPayload, error) {
	r := primitives.NewReader(b)
	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n == 0 || n > MaxBlocksPerRequest {
		return nil, fmt.Errorf("p2p: getblocks: invalid hash count")
	}
	hashes := make([]primitives.Hash, 0, n)
	for i := uint64(0); i < n; i++ {
		h, err := r.Hash()
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: getblocks: trailing bytes")
	}
	return &GetBlocksPayload{Hashes: hashes}, nil
}

type BlockPayload struct {
	Block chain.Block
}

func EncodeBlockPayload(p BlockPayload) []byte {
	w := primitives.NewWriter(4096)
	w.PutVarBytes(p.Block.Header.Bytes())
	w.PutVarBytes(p.Block.Body.Bytes())
	return w.Bytes()
}

func DecodeBlockPayload(b []byte) (*BlockPayload, error) {
	r := primitives.NewReader(b)
	headerBytes, err := r.VarBytes(4096)
	if err != nil {
		return nil, err
	}
	bodyBytes, err := r.VarBytes(MaxMessageBytes)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: block: trailing bytes")
	}
	blk, err := chain.DecodeBlock(headerBytes, bodyBytes)
	if err != nil {
		return nil, err
	}
	return &BlockPayload{Block: blk}, nil
}
