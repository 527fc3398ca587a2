package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mmr"
	"github.com/tari-project/basenode/primitives"
)

func testParams(t *testing.T) primitives.ChainParams {
	t.Helper()
	p := primitives.Devnet()
	// A floor of 1 makes AchievedMeetsTarget always true (achieved
	// difficulty is floor(max_u256/hash), which is never below 1 for any
	// 256-bit hash), so these tests never depend on mining a real nonce.
	p.MinTargetDifficultyRandomX = big.NewInt(1)
	p.MinTargetDifficultySHA3x = big.NewInt(1)
	return p
}

// chainBuilder mirrors applyBlockLocked's own merkle simulation so tests can
// assemble headers with the exact roots/sizes the store will demand,
// without needing a miner or mempool component.
type chainBuilder struct {
	kernelSim *mmr.MemoryStore
	outputSim *mmr.MemoryStore
	witness   *mmr.Witness
	outputs   map[primitives.Hash]uint64 // ID -> leaf index, across all applied blocks
}

func newChainBuilder() *chainBuilder {
	return &chainBuilder{
		kernelSim: mmr.NewMemoryStore(),
		outputSim: mmr.NewMemoryStore(),
		witness:   mmr.NewWitness(),
		outputs:   make(map[primitives.Hash]uint64),
	}
}

func (cb *chainBuilder) buildCoinbaseBlock(t *testing.T, height uint64, prevHash primitives.Hash, timestamp, reward int64, coinbaseLockHeight uint64) *chain.Block {
	t.Helper()

	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	commitment, err := primitives.Commit(uint64(reward), blind)
	if err != nil {
		t.Fatal(err)
	}
	excess, err := primitives.CommitExcess(blind.Negate())
	if err != nil {
		t.Fatal(err)
	}
	kernel := chain.Kernel{Version: 1, Features: chain.KernelCoinbase, Excess: excess}
	sig, err := primitives.SignExcess(blind.Negate(), kernel.SignatureMessage())
	if err != nil {
		t.Fatal(err)
	}
	kernel.ExcessSig = sig

	output := chain.Output{
		Version:    1,
		Features:   chain.OutputCoinbase,
		Maturity:   height + coinbaseLockHeight,
		Commitment: commitment,
		RangeProof: primitives.BuildRangeProof(uint64(reward), blind, commitment),
	}

	body := chain.AggregateBody{
		Outputs: chain.OutputList{output},
		Kernels: chain.KernelList{kernel},
	}
	body.Sort()

	header := cb.finishHeader(t, height, prevHash, timestamp, &body)
	return &chain.Block{Header: header, Body: body}
}

// finishHeader appends body's kernels/outputs into the builder's running
// simulation and fills in the header fields that depend on the resulting
// merkle state, exactly as applyBlockLocked's checkMerkleRoots pass expects
// to find them.
func (cb *chainBuilder) finishHeader(t *testing.T, height uint64, prevHash primitives.Hash, timestamp int64, body *chain.AggregateBody) chain.BlockHeader {
	t.Helper()

	for i := range body.Kernels {
		if _, err := mmr.AppendLeaf(cb.kernelSim, primitives.DomainMMRLeaf, body.Kernels[i].Bytes()); err != nil {
			t.Fatal(err)
		}
	}
	for i := range body.Outputs {
		leafIndex := mmr.LeafCount(cb.outputSim.Size())
		if _, err := mmr.AppendLeaf(cb.outputSim, primitives.DomainMMRLeaf, body.Outputs[i].Bytes()); err != nil {
			t.Fatal(err)
		}
		cb.witness.MarkUnspent(leafIndex)
		cb.outputs[body.Outputs[i].ID()] = leafIndex
	}
	for i := range body.Inputs {
		if idx, ok := cb.outputs[body.Inputs[i].OutputHash]; ok {
			cb.witness.MarkSpent(idx)
		}
	}

	kernelRoot, err := mmr.Root(cb.kernelSim, cb.kernelSim.Size())
	if err != nil {
		t.Fatal(err)
	}
	outputBagged, err := mmr.Root(cb.outputSim, cb.outputSim.Size())
	if err != nil {
		t.Fatal(err)
	}
	outputRoot, err := mmr.OutputMerkleRoot(outputBagged, cb.witness)
	if err != nil {
		t.Fatal(err)
	}

	return chain.BlockHeader{
		Version:       1,
		Height:        height,
		PrevHash:      prevHash,
		Timestamp:     timestamp,
		OutputMR:      outputRoot,
		KernelMR:      kernelRoot,
		KernelMMRSize: cb.kernelSim.Size(),
		OutputMMRSize: cb.outputSim.Size(),
		Pow:           chain.ProofOfWork{Algo: chain.PowAlgoSHA3x},
	}
}

// clone deep-copies a chainBuilder's simulated MMR/witness state, letting a
// test branch two independent candidate chains off the same ancestor (one
// applied locally, one presented as a peer's heavier fork for Reorg).
func (cb *chainBuilder) clone() *chainBuilder {
	kernelSim := mmr.NewMemoryStore()
	for i := uint64(0); i < cb.kernelSim.Size(); i++ {
		h, err := cb.kernelSim.Get(i)
		if err != nil {
			panic(err)
		}
		kernelSim.Append(h)
	}
	outputSim := mmr.NewMemoryStore()
	for i := uint64(0); i < cb.outputSim.Size(); i++ {
		h, err := cb.outputSim.Get(i)
		if err != nil {
			panic(err)
		}
		outputSim.Append(h)
	}
	outputs := make(map[primitives.Hash]uint64, len(cb.outputs))
	for k, v := range cb.outputs {
		outputs[k] = v
	}
	return &chainBuilder{
		kernelSim: kernelSim,
		outputSim: outputSim,
		witness:   cb.witness.Clone(),
		outputs:   outputs,
	}
}

func openTestStore(t *testing.T, params primitives.ChainParams, genesis *chain.Block) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	s, err := Open(path, params, genesis)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestApplyGenesisSetsTip(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	tip, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != 0 || tip.Hash != genesis.Header.Hash() {
		t.Fatalf("tip = %+v, want genesis", tip)
	}
}

func TestApplySecondBlockExtendsChain(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	next := cb.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	decision, err := s.ApplyBlock(next)
	if err != nil {
		t.Fatalf("apply block 1: %v", err)
	}
	if decision != ApplyAppliedAsTip {
		t.Fatalf("decision = %v, want ApplyAppliedAsTip", decision)
	}

	tip, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != 1 || tip.Hash != next.Header.Hash() {
		t.Fatalf("tip = %+v, want height 1 block", tip)
	}

	fetched, err := s.FetchBlockByHeight(1)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Header.Hash() != next.Header.Hash() {
		t.Fatalf("fetched block hash mismatch")
	}
}

func TestApplyBlockNotChainedToTipIsRejected(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	orphanBuilder := newChainBuilder()
	stray := orphanBuilder.buildCoinbaseBlock(t, 5, primitives.Hash{0xff}, 1200, 10_000_000_000, params.CoinbaseLockHeight)

	decision, err := s.ApplyBlock(stray)
	if err == nil || decision != ApplyNotChained {
		t.Fatalf("expected ApplyNotChained, got decision=%v err=%v", decision, err)
	}
}

func TestRewindToGenesisRestoresTip(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	next := cb.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	if _, err := s.ApplyBlock(next); err != nil {
		t.Fatalf("apply block 1: %v", err)
	}

	if err := s.RewindTo(0); err != nil {
		t.Fatalf("rewind: %v", err)
	}

	tip, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != 0 || tip.Hash != genesis.Header.Hash() {
		t.Fatalf("tip after rewind = %+v, want genesis", tip)
	}

	if _, err := s.FetchBlockByHeight(1); err == nil {
		t.Fatalf("expected height 1 to be gone after rewind")
	}
}

func TestOrphanAppliesOnceParentArrives(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	block1 := cb.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	block2 := cb.buildCoinbaseBlock(t, 2, block1.Header.Hash(), 1240, 10_000_000_000, params.CoinbaseLockHeight)

	decision, err := s.ApplyBlock(block2)
	if err == nil || decision != ApplyNotChained {
		t.Fatalf("expected block 2 to be not-chained yet, got decision=%v err=%v", decision, err)
	}
	if err := s.TryAddOrphan(block2); err != nil {
		t.Fatalf("add orphan: %v", err)
	}

	if _, err := s.ApplyBlock(block1); err != nil {
		t.Fatalf("apply block 1: %v", err)
	}

	tip, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != 2 || tip.Hash != block2.Header.Hash() {
		t.Fatalf("tip = %+v, want block 2 applied from orphan pool", tip)
	}
}

// TestReorgAdoptsHeavierForkAndCallsOnDisplacedBeforeApplyingNewChain covers
// §8 scenario 3: a peer's fork that branches below our tip must actually be
// adopted (not silently rejected block-by-block as ApplyNotChained), and
// the blocks it displaces must be handed to onDisplaced before the new
// chain is applied (§4.6's mempool-reinsert ordering).
func TestReorgAdoptsHeavierForkAndCallsOnDisplacedBeforeApplyingNewChain(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)

	forkBuilder := cb.clone()

	a1 := cb.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	if _, err := s.ApplyBlock(a1); err != nil {
		t.Fatalf("apply a1: %v", err)
	}

	b1 := forkBuilder.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	b2 := forkBuilder.buildCoinbaseBlock(t, 2, b1.Header.Hash(), 1240, 10_000_000_000, params.CoinbaseLockHeight)

	var displacedSeen []chain.AggregateBody
	var tipHeightWhenCalled uint64
	onDisplaced := func(displaced []chain.AggregateBody) {
		displacedSeen = displaced
		tip, err := s.Tip()
		if err != nil {
			t.Fatal(err)
		}
		tipHeightWhenCalled = tip.Height
	}

	if err := s.Reorg([]*chain.Block{b1, b2}, onDisplaced); err != nil {
		t.Fatalf("reorg: %v", err)
	}

	if len(displacedSeen) != 1 || displacedSeen[0].Kernels[0].Excess != a1.Body.Kernels[0].Excess {
		t.Fatalf("expected onDisplaced to be called once with a1's body, got %+v", displacedSeen)
	}
	if tipHeightWhenCalled != 0 {
		t.Fatalf("onDisplaced must run after the rewind but before the new chain is applied, tip was already at height %d", tipHeightWhenCalled)
	}

	tip, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	}
	if tip.Height != 2 || tip.Hash != b2.Header.Hash() {
		t.Fatalf("tip = %+v, want b2 after reorg", tip)
	}

	fetched, err := s.FetchBlockByHeight(1)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Header.Hash() != b1.Header.Hash() {
		t.Fatalf("expected height 1 to now be b1, the fork's block, not a1")
	}
}

func TestSubscribeReceivesTipEvents(t *testing.T) {
	params := testParams(t)
	cb := newChainBuilder()
	genesis := cb.buildCoinbaseBlock(t, 0, primitives.Hash{}, 1000, 10_000_000_000, params.CoinbaseLockHeight)

	s := openTestStore(t, params, genesis)
	sub := s.Subscribe()

	next := cb.buildCoinbaseBlock(t, 1, genesis.Header.Hash(), 1120, 10_000_000_000, params.CoinbaseLockHeight)
	if _, err := s.ApplyBlock(next); err != nil {
		t.Fatalf("apply block 1: %v", err)
	}

	select {
	case tip := <-sub:
		if tip.Height != 1 || tip.Hash != next.Header.Hash() {
			t.Fatalf("tip event = %+v, want block 1", tip)
		}
	default:
		t.Fatalf("expected a buffered tip event")
	}
}
