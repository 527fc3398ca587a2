package chain

import (
	"bytes"

	"github.com/tari-project/basenode/primitives"
)

// Input references an output being spent (§3: "Input"). OutputHash must
// match a currently unspent output's ID.
type Input struct {
	Version               uint8
	Features              OutputFeatures
	Commitment            primitives.Commitment
	Script                []byte
	InputData             []byte
	ScriptSignature       primitives.Signature
	SenderOffsetPublicKey primitives.Commitment
	OutputHash            primitives.Hash
	Covenant              []byte
	EncryptedData         []byte
	MinimumValuePromise   uint64
	MetadataSignature     primitives.Signature
	RangeProofHash        primitives.Hash
}

func (in *Input) Bytes() []byte {
	w := primitives.NewWriter(128)
	w.PutU8(in.Version)
	w.PutU8(uint8(in.Features))
	w.PutRawBytes(in.Commitment[:])
	w.PutVarBytes(in.Script)
	w.PutVarBytes(in.InputData)
	sig, _ := in.ScriptSignature.Bytes()
	w.PutVarBytes(sig)
	w.PutRawBytes(in.SenderOffsetPublicKey[:])
	w.PutHash(in.OutputHash)
	w.PutVarBytes(in.Covenant)
	w.PutVarBytes(in.EncryptedData)
	w.PutU64(in.MinimumValuePromise)
	metaSig, _ := in.MetadataSignature.Bytes()
	w.PutVarBytes(metaSig)
	w.PutHash(in.RangeProofHash)
	return w.Bytes()
}

func (in *Input) Hash() primitives.Hash {
	return primitives.HashDomain(primitives.DomainOutputID, in.Bytes())
}

// InputList is a canonically sortable list of inputs, ordered by the
// output commitment they spend.
type InputList []Input

func (l InputList) Len() int      { return len(l) }
func (l InputList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l InputList) Less(i, j int) bool {
	return bytes.Compare(l[i].Commitment[:], l[j].Commitment[:]) < 0
}
