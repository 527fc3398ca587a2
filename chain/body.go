package chain

import (
	"sort"

	"github.com/tari-project/basenode/primitives"
)

// AggregateBody is {inputs, outputs, kernels}, canonically sorted — the
// same structure represents both a transaction and a block body (§3:
// "Aggregate body").
type AggregateBody struct {
	Inputs  InputList
	Outputs OutputList
	Kernels KernelList
}

// Sort canonically orders every list in place.
func (b *AggregateBody) Sort() {
	sort.Sort(b.Inputs)
	sort.Sort(b.Outputs)
	sort.Sort(b.Kernels)
}

// IsSorted reports whether every list is already in canonical order.
func (b *AggregateBody) IsSorted() bool {
	return sort.IsSorted(b.Inputs) && sort.IsSorted(b.Outputs) && sort.IsSorted(b.Kernels)
}

func (b *AggregateBody) Bytes() []byte {
	w := primitives.NewWriter(512)
	w.PutCompactSize(uint64(len(b.Inputs)))
	w.PutCompactSize(uint64(len(b.Outputs)))
	w.PutCompactSize(uint64(len(b.Kernels)))
	for i := range b.Inputs {
		w.PutVarBytes(b.Inputs[i].Bytes())
	}
	for i := range b.Outputs {
		w.PutVarBytes(b.Outputs[i].Bytes())
	}
	for i := range b.Kernels {
		w.PutVarBytes(b.Kernels[i].Bytes())
	}
	return w.Bytes()
}

// TotalFees sums the fee field of every kernel.
func (b *AggregateBody) TotalFees() uint64 {
	var total uint64
	for i := range b.Kernels {
		total += b.Kernels[i].Fee
	}
	return total
}

// Weight approximates the body's block-weight contribution: a simple
// per-item cost model, the same shape as the teacher's TxWeight
// (consensus/tx.go) generalized to three lists instead of one.
func (b *AggregateBody) Weight() uint64 {
	const (
		inputWeight  = 1
		outputWeight = 10
		kernelWeight = 2
	)
	return uint64(len(b.Inputs))*inputWeight +
		uint64(len(b.Outputs))*outputWeight +
		uint64(len(b.Kernels))*kernelWeight
}

// Transaction is {offset, script_offset, body} (§3: "Transaction"). The two
// offsets are private-key blinding factors accumulated per-block to
// prevent linking individual transactions' kernels to their inputs.
type Transaction struct {
	Offset       primitives.Scalar
	ScriptOffset primitives.Scalar
	Body         AggregateBody
}
