package chain

import (
	"bytes"

	"github.com/tari-project/basenode/primitives"
)

// Kernel proves a transaction (or a block body) sums to zero value (§3:
// "Kernel"). Excess is the Pedersen commitment to zero whose blinding
// factor is Σ(output_blinds) − Σ(input_blinds) − kernel_offset; ExcessSig
// proves knowledge of that blinding factor and binds (features, fee,
// lock_height).
type Kernel struct {
	Version        uint8
	Features       KernelFeatures
	Fee            uint64
	LockHeight     uint64
	Excess         primitives.Commitment
	ExcessSig      primitives.Signature
	BurnCommitment *primitives.Commitment // only set when Features&KernelBurn != 0
}

// SignatureMessage is the message the kernel signature is computed over:
// Hash(features || fee || lock_height || ...), per §4.4.
func (k *Kernel) SignatureMessage() primitives.Hash {
	w := primitives.NewWriter(32)
	w.PutU8(k.Version)
	w.PutU8(uint8(k.Features))
	w.PutU64(k.Fee)
	w.PutU64(k.LockHeight)
	if k.BurnCommitment != nil {
		w.PutRawBytes(k.BurnCommitment[:])
	}
	return primitives.HashDomain(primitives.DomainKernelSignature, w.Bytes())
}

func (k *Kernel) Bytes() []byte {
	w := primitives.NewWriter(96)
	w.PutU8(k.Version)
	w.PutU8(uint8(k.Features))
	w.PutU64(k.Fee)
	w.PutU64(k.LockHeight)
	w.PutRawBytes(k.Excess[:])
	sig, _ := k.ExcessSig.Bytes()
	w.PutVarBytes(sig)
	if k.BurnCommitment != nil {
		w.PutU8(1)
		w.PutRawBytes(k.BurnCommitment[:])
	} else {
		w.PutU8(0)
	}
	return w.Bytes()
}

func (k *Kernel) Hash() primitives.Hash {
	return primitives.HashDomain(primitives.DomainKernelSignature, k.Bytes())
}

func (k *Kernel) IsCoinbase() bool { return k.Features&KernelCoinbase != 0 }

// KernelList is a canonically sortable list of kernels, ordered by excess
// commitment bytes.
type KernelList []Kernel

func (l KernelList) Len() int      { return len(l) }
func (l KernelList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l KernelList) Less(i, j int) bool {
	return bytes.Compare(l[i].Excess[:], l[j].Excess[:]) < 0
}
