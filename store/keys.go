package store

import (
	"encoding/binary"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

var (
	bucketHeadersByHash   = []byte("headers_by_hash")
	bucketHeadersByHeight = []byte("headers_by_height")
	bucketBodiesByHash    = []byte("block_bodies_by_hash")
	bucketKernels         = []byte("kernels")
	bucketOutputs         = []byte("outputs")
	bucketUnspent         = []byte("unspent_outputs_by_commitment")
	bucketMMRBackends     = []byte("mmr_backends")
	bucketAccumulated     = []byte("accumulated_data")
	bucketOrphans         = []byte("orphans")

	allBuckets = [][]byte{
		bucketHeadersByHash, bucketHeadersByHeight, bucketBodiesByHash,
		bucketKernels, bucketOutputs, bucketUnspent, bucketMMRBackends,
		bucketAccumulated, bucketOrphans,
	}
)

// heightKey big-endian-encodes height so bbolt's lexicographic key order
// matches numeric order, letting fetch_header_chain range-scan
// headers_by_height directly.
func heightKey(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

func decodeHeightKey(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func hashKey(h primitives.Hash) []byte { return h[:] }

func commitmentKey(c primitives.Commitment) []byte { return c[:] }

// mmrNodeKey addresses a single MMR node within mmr_backends: a one-byte
// kind tag ('k' kernel / 'o' output) followed by the big-endian node index.
func mmrNodeKey(kind byte, index uint64) []byte {
	var b [9]byte
	b[0] = kind
	binary.BigEndian.PutUint64(b[1:], index)
	return b[:]
}

func mmrSizeKey(kind byte) []byte { return []byte{kind, 's'} }

func mmrWitnessKey() []byte { return []byte("witness") }

const (
	mmrKindKernel byte = 'k'
	mmrKindOutput byte = 'o'
)

var accumulatedTipKey = []byte("tip")
var accumulatedPowKey = []byte("pow")

// targetKey addresses the per-header retarget target persisted under
// accumulated_data for one (algo, height) pair, keyed so
// restoreEngine/rewindToLocked can look a header's target up or remove it
// without a second index (§4.7/§7: Restore must reconstruct the exact
// target each window header was mined against, not recompute it).
func targetKey(algo chain.PowAlgo, height uint64) []byte {
	var b [9]byte
	b[0] = byte(algo)
	binary.BigEndian.PutUint64(b[1:], height)
	return append([]byte("trg:"), b[:]...)
}
