package chain

import "github.com/tari-project/basenode/primitives"

// PowAlgo identifies which of the two hybrid PoW algorithms secured a
// header (§4.7).
type PowAlgo uint8

const (
	PowAlgoRandomX PowAlgo = 0
	PowAlgoSHA3x   PowAlgo = 1
)

// ProofOfWork carries the algorithm tag and its algorithm-specific proof
// payload: empty for SHA3x, the Monero parent header plus merge-mining
// Merkle path for RandomX (§4.7).
type ProofOfWork struct {
	Algo    PowAlgo
	PowData []byte
}

// BlockHeader is {version, height, prev_hash, timestamp, output_mr,
// kernel_mr, input_mr, total_kernel_offset, total_script_offset, nonce,
// pow, kernel_mmr_size, output_mmr_size, validator_node_merkle_root,
// validator_node_size} per §3. validator_node_merkle_root/size are carried
// as opaque bytes, never interpreted, since Validator Node/DAN consensus is
// out of scope (Open Question decision, see DESIGN.md).
type BlockHeader struct {
	Version    uint16
	Height     uint64
	PrevHash   primitives.Hash
	Timestamp  int64 // unix seconds
	OutputMR   primitives.Hash
	KernelMR   primitives.Hash
	InputMR    primitives.Hash

	TotalKernelOffset primitives.Scalar
	TotalScriptOffset primitives.Scalar

	Nonce uint64
	Pow   ProofOfWork

	KernelMMRSize uint64
	OutputMMRSize uint64

	ValidatorNodeMerkleRoot []byte
	ValidatorNodeSize       uint64
}

// BytesWithoutPow encodes every header field except the nonce and the PoW
// payload, which are hashed separately for achieved-difficulty calculations (§4.7).
func (h *BlockHeader) BytesWithoutPow() []byte {
	w := primitives.NewWriter(256)
	w.PutU32(uint32(h.Version))
	w.PutU64(h.Height)
	w.PutHash(h.PrevHash)
	w.PutI64(h.Timestamp)
	w.PutHash(h.OutputMR)
	w.PutHash(h.KernelMR)
	w.PutHash(h.InputMR)
	w.PutRawBytes(h.TotalKernelOffset.Bytes())
	w.PutRawBytes(h.TotalScriptOffset.Bytes())
	w.PutU64(h.KernelMMRSize)
	w.PutU64(h.OutputMMRSize)
	w.PutVarBytes(h.ValidatorNodeMerkleRoot)
	w.PutU64(h.ValidatorNodeSize)
	return w.Bytes()
}

func (h *BlockHeader) Bytes() []byte {
	w := primitives.NewWriter(320)
	w.PutVarBytes(h.BytesWithoutPow())
	w.PutU64(h.Nonce)
	w.PutU8(uint8(h.Pow.Algo))
	w.PutVarBytes(h.Pow.PowData)
	return w.Bytes()
}

// Hash is the header's identity hash, over the full encoding including the
// nonce and PoW payload — changing either changes the block's identity.
func (h *BlockHeader) Hash() primitives.Hash {
	return primitives.HashDomain(primitives.DomainBlockHeader, h.Bytes())
}

// Block is {header, body} (§3: "Block").
type Block struct {
	Header BlockHeader
	Body   AggregateBody
}

func (b *Block) Hash() primitives.Hash { return b.Header.Hash() }
