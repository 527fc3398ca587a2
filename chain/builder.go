package chain

import "github.com/tari-project/basenode/primitives"

// TransactionBuilder aggregates multiple transactions' bodies into one,
// summing their offsets and eliminating cut-through pairs: an output
// produced by one aggregated transaction that is immediately consumed by
// an input of another, with no other reference to it, can be dropped from
// both lists since its presence nets to zero (§4.3).
type TransactionBuilder struct {
	haveOffset       bool
	offset           primitives.Scalar
	haveScriptOffset bool
	scriptOffset     primitives.Scalar
	body             AggregateBody
}

// NewTransactionBuilder returns an empty builder ready to accumulate
// transactions via AddTransaction.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// AddTransaction folds tx into the builder: its offsets are summed in and
// its body's lists are appended, to be cut-through and sorted by Build.
func (tb *TransactionBuilder) AddTransaction(tx *Transaction) {
	if tb.haveOffset {
		tb.offset = tb.offset.Add(tx.Offset)
	} else {
		tb.offset = tx.Offset
		tb.haveOffset = true
	}
	if tb.haveScriptOffset {
		tb.scriptOffset = tb.scriptOffset.Add(tx.ScriptOffset)
	} else {
		tb.scriptOffset = tx.ScriptOffset
		tb.haveScriptOffset = true
	}
	tb.body.Inputs = append(tb.body.Inputs, tx.Body.Inputs...)
	tb.body.Outputs = append(tb.body.Outputs, tx.Body.Outputs...)
	tb.body.Kernels = append(tb.body.Kernels, tx.Body.Kernels...)
}

// AddBody folds a bare body (e.g. a coinbase body with no offsets) into the
// builder without touching the accumulated offsets.
func (tb *TransactionBuilder) AddBody(body AggregateBody) {
	tb.body.Inputs = append(tb.body.Inputs, body.Inputs...)
	tb.body.Outputs = append(tb.body.Outputs, body.Outputs...)
	tb.body.Kernels = append(tb.body.Kernels, body.Kernels...)
}

// Build applies cut-through, canonically sorts every list, and returns the
// resulting transaction.
func (tb *TransactionBuilder) Build() Transaction {
	tb.cutThrough()
	tb.body.Sort()

	out := Transaction{Body: tb.body}
	if tb.haveOffset {
		out.Offset = tb.offset
	}
	if tb.haveScriptOffset {
		out.ScriptOffset = tb.scriptOffset
	}
	return out
}

// cutThrough drops any output whose commitment is referenced by an input's
// Commitment field in the same aggregate, along with that input, as long
// as no other input or output repeats the same commitment (an exact match
// is required on both sides to avoid silently dropping a legitimate
// same-commitment collision across unrelated transactions).
func (tb *TransactionBuilder) cutThrough() {
	outputByCommitment := make(map[primitives.Commitment]int, len(tb.body.Outputs))
	outputCount := make(map[primitives.Commitment]int, len(tb.body.Outputs))
	for i := range tb.body.Outputs {
		c := tb.body.Outputs[i].Commitment
		outputByCommitment[c] = i
		outputCount[c]++
	}
	inputCount := make(map[primitives.Commitment]int, len(tb.body.Inputs))
	for i := range tb.body.Inputs {
		inputCount[tb.body.Inputs[i].Commitment]++
	}

	var keptInputs InputList
	removeOutputAt := make(map[int]bool)
	for i := range tb.body.Inputs {
		c := tb.body.Inputs[i].Commitment
		if outputCount[c] == 1 && inputCount[c] == 1 {
			removeOutputAt[outputByCommitment[c]] = true
			continue
		}
		keptInputs = append(keptInputs, tb.body.Inputs[i])
	}

	var keptOutputs OutputList
	for i := range tb.body.Outputs {
		if removeOutputAt[i] {
			continue
		}
		keptOutputs = append(keptOutputs, tb.body.Outputs[i])
	}

	tb.body.Inputs = keptInputs
	tb.body.Outputs = keptOutputs
}
