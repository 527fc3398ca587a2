package mempool

import (
	"testing"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/validator"
)

// fakeUnspentLookup is a minimal in-memory validator.UnspentLookup for
// admission tests, standing in for the chain state store.
type fakeUnspentLookup struct {
	maturity map[primitives.Commitment]uint64
}

func newFakeUnspentLookup() *fakeUnspentLookup {
	return &fakeUnspentLookup{maturity: make(map[primitives.Commitment]uint64)}
}

func (f *fakeUnspentLookup) LookupUnspent(c primitives.Commitment) (uint64, bool) {
	m, ok := f.maturity[c]
	return m, ok
}

// fixtureOutput is a spendable output plus the blinding factor needed to
// build a transaction against it, the same shape the store package's test
// helper builds coinbase outputs with.
type fixtureOutput struct {
	output primitives.Scalar
	out    chain.Output
}

func newSpendableOutput(t *testing.T, value uint64) fixtureOutput {
	t.Helper()
	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	commitment, err := primitives.Commit(value, blind)
	if err != nil {
		t.Fatal(err)
	}
	out := chain.Output{
		Version:    1,
		Commitment: commitment,
		RangeProof: primitives.BuildRangeProof(value, blind, commitment),
	}
	return fixtureOutput{output: blind, out: out}
}

// buildSpendTx spends src (known value/blind) into a single output of
// value-fee, with a kernel carrying fee and a zero transaction offset, the
// minimal shape that satisfies the Mimblewimble balance equation.
func buildSpendTx(t *testing.T, src fixtureOutput, srcValue, fee uint64) *chain.Transaction {
	t.Helper()

	outBlind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	outValue := srcValue - fee
	outCommitment, err := primitives.Commit(outValue, outBlind)
	if err != nil {
		t.Fatal(err)
	}
	output := chain.Output{
		Version:    1,
		Commitment: outCommitment,
		RangeProof: primitives.BuildRangeProof(outValue, outBlind, outCommitment),
	}

	excessBlind := outBlind.Sub(src.output)
	excess, err := primitives.CommitExcess(excessBlind)
	if err != nil {
		t.Fatal(err)
	}
	kernel := chain.Kernel{Version: 1, Fee: fee, Excess: excess}
	sig, err := primitives.SignExcess(excessBlind, kernel.SignatureMessage())
	if err != nil {
		t.Fatal(err)
	}
	kernel.ExcessSig = sig

	input := chain.Input{
		Version:    1,
		Commitment: src.out.Commitment,
		InputData:  []byte{1},
		OutputHash: src.out.ID(),
	}

	body := chain.AggregateBody{
		Inputs:  chain.InputList{input},
		Outputs: chain.OutputList{output},
		Kernels: chain.KernelList{kernel},
	}
	body.Sort()

	return &chain.Transaction{Body: body}
}

func TestPoolAddAdmitsValidTransaction(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)

	tx := buildSpendTx(t, src, 1000, 50)
	if err := pool.Add(tx); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1", pool.Len())
	}
}

func TestPoolAddRejectsUnknownInput(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup() // src never registered as unspent

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)
	tx := buildSpendTx(t, src, 1000, 50)

	err := pool.Add(tx)
	if err == nil {
		t.Fatal("expected an error for an unknown input")
	}
	merr, ok := err.(*Error)
	if !ok || merr.Kind != KindUnknownInput {
		t.Fatalf("err = %v, want KindUnknownInput", err)
	}
}

func TestPoolAddRejectsImmatureInput(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 100 // matures after the pool's height

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)
	tx := buildSpendTx(t, src, 1000, 50)

	err := pool.Add(tx)
	merr, ok := err.(*Error)
	if !ok || merr.Kind != KindImmatureSpend {
		t.Fatalf("err = %v, want KindImmatureSpend", err)
	}
}

func TestPoolConflictKeepsHigherFee(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)

	lowFeeTx := buildSpendTx(t, src, 1000, 20)
	if err := pool.Add(lowFeeTx); err != nil {
		t.Fatalf("add low-fee tx: %v", err)
	}

	highFeeTx := buildSpendTx(t, src, 1000, 260)
	if err := pool.Add(highFeeTx); err != nil {
		t.Fatalf("add high-fee tx: %v", err)
	}

	if pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1 after conflict resolution", pool.Len())
	}
	keptExcess := highFeeTx.Body.Kernels[0].Excess
	if _, ok := pool.byExcess[keptExcess]; !ok {
		t.Fatalf("expected the higher-fee transaction to survive")
	}
}

func TestPoolConflictRejectsLowerFeeArrivingSecond(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)

	highFeeTx := buildSpendTx(t, src, 1000, 260)
	if err := pool.Add(highFeeTx); err != nil {
		t.Fatalf("add high-fee tx: %v", err)
	}

	lowFeeTx := buildSpendTx(t, src, 1000, 20)
	err := pool.Add(lowFeeTx)
	merr, ok := err.(*Error)
	if !ok || merr.Kind != KindOutbidByConflict {
		t.Fatalf("err = %v, want KindOutbidByConflict", err)
	}
	if pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1", pool.Len())
	}
}

func TestPoolAddRejectsDuplicateExcess(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)
	tx := buildSpendTx(t, src, 1000, 50)

	if err := pool.Add(tx); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := pool.Add(tx)
	merr, ok := err.(*Error)
	if !ok || merr.Kind != KindDuplicateExcess {
		t.Fatalf("err = %v, want KindDuplicateExcess", err)
	}
}

func TestPoolPullBestOrdersByFeePerGram(t *testing.T) {
	lookup := newFakeUnspentLookup()
	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)

	srcLow := newSpendableOutput(t, 1000)
	lookup.maturity[srcLow.out.Commitment] = 0
	lowFeeTx := buildSpendTx(t, srcLow, 1000, 20)

	srcHigh := newSpendableOutput(t, 1000)
	lookup.maturity[srcHigh.out.Commitment] = 0
	highFeeTx := buildSpendTx(t, srcHigh, 1000, 260)

	if err := pool.Add(lowFeeTx); err != nil {
		t.Fatalf("add low-fee tx: %v", err)
	}
	if err := pool.Add(highFeeTx); err != nil {
		t.Fatalf("add high-fee tx: %v", err)
	}

	body := pool.PullBest(highFeeTx.Body.Weight())
	if len(body.Kernels) != 1 {
		t.Fatalf("expected only the higher fee-per-gram tx to fit, got %d kernels", len(body.Kernels))
	}
	if body.Kernels[0].Excess != highFeeTx.Body.Kernels[0].Excess {
		t.Fatalf("expected the high-fee transaction to be selected first")
	}
}

func TestPoolRevalidateDropsSpentInputs(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)
	tx := buildSpendTx(t, src, 1000, 50)
	if err := pool.Add(tx); err != nil {
		t.Fatalf("add: %v", err)
	}

	confirmed := newFakeUnspentLookup() // src no longer present: it was spent on-chain
	pool.Revalidate(11, confirmed)

	if pool.Len() != 0 {
		t.Fatalf("pool len = %d, want 0 after revalidate against a chain that confirmed the spend", pool.Len())
	}
}

func TestPoolReinsertReAdmitsDisplacedTransactions(t *testing.T) {
	src := newSpendableOutput(t, 1000)
	lookup := newFakeUnspentLookup()
	lookup.maturity[src.out.Commitment] = 0

	pool := New(DefaultConfig(primitives.Devnet()), 10, lookup)
	tx := buildSpendTx(t, src, 1000, 50)

	pool.Reinsert([]chain.AggregateBody{tx.Body})

	if pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1 after reinserting a displaced block's transaction", pool.Len())
	}
}

var _ validator.UnspentLookup = (*fakeUnspentLookup)(nil)
