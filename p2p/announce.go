package p2p

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

const MaxAnnounceExcessSigs = 4_096

// NewBlockAnnouncePayload lets a peer advertise a new tip without shipping
// the full block body up front (§4.8: "NewBlockAnnounce(header,
// coinbase_kernel, coinbase_output, kernel_excess_sigs)"); kernel excesses
// are a pooled transaction's identity (mempool.Pool keys entries by kernel
// excess the same way), so a receiver that already has every non-coinbase
// kernel's excess pooled can assemble the block locally instead of
// requesting it with GetBlocks.
type NewBlockAnnouncePayload struct {
	Header         chain.BlockHeader
	CoinbaseKernel chain.Kernel
	CoinbaseOutput chain.Output
	KernelExcesses []primitives.Commitment
}

func EncodeNewBlockAnnouncePayload(p NewBlockAnnouncePayload) ([]byte, error) {
	if len(p.KernelExcesses) > MaxAnnounceExcessSigs {
		return nil, fmt.Errorf("p2p: newblockannounce: too many kernel excesses")
	}
	w := primitives.NewWriter(4096)
	w.PutVarBytes(p.Header.Bytes())
	w.PutVarBytes(p.CoinbaseKernel.Bytes())
	w.PutVarBytes(p.CoinbaseOutput.Bytes())
	w.PutCompactSize(uint64(len(p.KernelExcesses)))
	for _, c := range p.KernelExcesses {
		w.PutRawBytes(c.Bytes())
	}
	return w.Bytes(), nil
}

func DecodeNewBlockAnnouncePayload(b []byte) (*NewBlockAnnouncePayload, error) {
	r := primitives.NewReader(b)

	headerBytes, err := r.VarBytes(1024)
	if err != nil {
		return nil, err
	}
	header, err := chain.DecodeBlockHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	kernelBytes, err := r.VarBytes(1024)
	if err != nil {
		return nil, err
	}
	coinbaseKernel, err := chain.DecodeKernel(kernelBytes)
	if err != nil {
		return nil, err
	}

	outputBytes, err := r.VarBytes(MaxMessageBytes)
	if err != nil {
		return nil, err
	}
	coinbaseOutput, err := chain.DecodeOutput(outputBytes)
	if err != nil {
		return nil, err
	}

	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n > MaxAnnounceExcessSigs {
		return nil, fmt.Errorf("p2p: newblockannounce: too many kernel excesses")
	}
	excesses := make([]primitives.Commitment, 0, n)
	for i := uint64(0); i < n; i++ {
		cb, err := r.Bytes(33)
		if err != nil {
			return nil, err
		}
		c, err := primitives.CommitmentFromBytes(cb)
		if err != nil {
			return nil, err
		}
		excesses = append(excesses, c)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: newblockannounce: trailing bytes")
	}

	return &NewBlockAnnouncePayload{
		Header:         header,
		CoinbaseKernel: coinbaseKernel,
		CoinbaseOutput: coinbaseOutput,
		KernelExcesses: excesses,
	}, nil
}
