package chain

import (
	"bytes"

	"github.com/tari-project/basenode/primitives"
)

// Output is an unspent transaction output (§3: "Output (UTXO)"). The
// commitment alone is the unspent-set key; every other field is carried
// data that the script/covenant layer and wallets interpret.
type Output struct {
	Version               uint8
	Features              OutputFeatures
	Maturity              uint64 // only meaningful when Features&OutputCoinbase != 0
	Commitment            primitives.Commitment
	RangeProof            primitives.RangeProof
	Script                []byte
	SenderOffsetPublicKey primitives.Commitment
	MetadataSignature     primitives.Signature
	Covenant              []byte
	EncryptedData         []byte
	MinimumValuePromise   uint64
}

// BytesWithoutProof encodes every output field except the range proof,
// which is verified and hashed separately (mirroring the reference
// implementation's Output.BytesWithoutProof / Output.Hash split).
func (o *Output) BytesWithoutProof() []byte {
	w := primitives.NewWriter(128)
	w.PutU8(o.Version)
	w.PutU8(uint8(o.Features))
	w.PutU64(o.Maturity)
	w.PutRawBytes(o.Commitment[:])
	w.PutVarBytes(o.Script)
	w.PutRawBytes(o.SenderOffsetPublicKey[:])
	sig, _ := o.MetadataSignature.Bytes()
	w.PutVarBytes(sig)
	w.PutVarBytes(o.Covenant)
	w.PutVarBytes(o.EncryptedData)
	w.PutU64(o.MinimumValuePromise)
	return w.Bytes()
}

// Bytes is the full canonical encoding, including the range proof.
func (o *Output) Bytes() []byte {
	w := primitives.NewWriter(256)
	w.PutVarBytes(o.BytesWithoutProof())
	w.PutVarBytes(o.RangeProof)
	return w.Bytes()
}

// ID is the output identifier: hash(version || features || commitment || ...)
// per §3, computed over every field but the range proof.
func (o *Output) ID() primitives.Hash {
	return primitives.HashDomain(primitives.DomainOutputID, o.BytesWithoutProof())
}

func (o *Output) IsCoinbase() bool { return o.Features&OutputCoinbase != 0 }

// OutputList is a canonically sortable list of outputs, ordered by
// commitment bytes (the unspent-set key), matching the reference
// implementation's hash-ordered OutputList.
type OutputList []Output

func (l OutputList) Len() int      { return len(l) }
func (l OutputList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l OutputList) Less(i, j int) bool {
	return bytes.Compare(l[i].Commitment[:], l[j].Commitment[:]) < 0
}
