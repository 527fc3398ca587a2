package validator

import (
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mmr"
	"github.com/tari-project/basenode/primitives"
)

// maxFutureDrift bounds how far a header's timestamp may sit ahead of the
// validator's wallclock (§4.4: "timestamp < wallclock + 2h").
const maxFutureDrift = 2 * time.Hour

// UnspentLookup resolves a commitment to the maturity height of the output
// it references, reporting whether it is currently unspent. The Chain
// State Store provides the real implementation; block.go never touches
// storage directly (§4.4 is specified as "pure functions ... against a
// chain state snapshot").
type UnspentLookup interface {
	LookupUnspent(commitment primitives.Commitment) (maturity uint64, unspent bool)
}

// DifficultyChecker reports whether a header's proof of work meets the
// target for its algorithm, computed against the parent snapshot (§4.7).
// The pow package supplies the real accumulator-backed implementation.
type DifficultyChecker interface {
	AchievedMeetsTarget(parent *chain.BlockHeader, header *chain.BlockHeader) bool
}

// EmissionSchedule computes the block reward for a given height (§4.4:
// "reward equals emission(height) + Σ fees").
type EmissionSchedule interface {
	RewardAt(height uint64) uint64
}

// ParentSnapshot bundles everything a block-level check needs from the
// chain state at the parent block, without requiring the validator package
// to depend on the store package directly.
type ParentSnapshot struct {
	Header                chain.BlockHeader
	MedianTimestampPast11 int64
	Unspent               UnspentLookup
	Difficulty            DifficultyChecker
	Emission              EmissionSchedule
	CoinbaseLockHeight    uint64

	// KernelMMR / OutputMMR / Witness are simulate_apply targets.
	// CheckBlock clones Witness before marking spends, but appends the
	// block's kernels and outputs directly into KernelMMR and OutputMMR,
	// so those stores hold the block's leaves after the call.
	KernelMMR mmr.NodeStore
	OutputMMR mmr.NodeStore
	Witness   *mmr.Witness

	// ResolveOutputLeafIndex maps a spent output's identity hash to its
	// output-MMR leaf index, for marking the witness bitmap spent during
	// simulated apply. The Chain State Store maintains this mapping.
	ResolveOutputLeafIndex func(outputHash primitives.Hash) (uint64, bool)

	// GenesisBlock marks the block under check as height 0, which "bypasses
	// parent linkage and timestamp-median rules" (§4.4). Everything else
	// (balance, coinbase shape, merkle roots) is still checked normally.
	GenesisBlock bool
}

// CheckBlock re-runs every transaction-level check over the block body and
// then the stateful block-level checks from §4.4.
func CheckBlock(block *chain.Block, parent *ParentSnapshot, now time.Time) error {
	tx := &chain.Transaction{
		Offset:       block.Header.TotalKernelOffset,
		ScriptOffset: block.Header.TotalScriptOffset,
		Body:         block.Body,
	}
	if err := checkTransactionBody(tx); err != nil {
		return err
	}
	reward := uint64(0)
	if parent.Emission != nil {
		reward = parent.Emission.RewardAt(block.Header.Height)
	}
	if err := checkBalance(tx, reward); err != nil {
		return err
	}

	header := &block.Header
	if parent.GenesisBlock {
		if header.Height != 0 {
			return fail(KindHeader, "genesis block must have height 0")
		}
	} else {
		if header.PrevHash != parent.Header.Hash() {
			return fail(KindHeader, "header does not chain to parent")
		}
		if header.Height != parent.Header.Height+1 {
			return fail(KindHeader, "header height is not parent height + 1")
		}
		if header.Timestamp <= parent.MedianTimestampPast11 {
			return fail(KindTimestamp, "header timestamp does not exceed median of past 11 blocks")
		}
		if header.Timestamp > now.Add(maxFutureDrift).Unix() {
			return fail(KindTimestamp, "header timestamp too far in the future")
		}
		if parent.Difficulty != nil && !parent.Difficulty.AchievedMeetsTarget(&parent.Header, header) {
			return fail(KindPow, "achieved difficulty below target")
		}
	}

	if err := checkNoDoubleSpendWithinBlock(&block.Body); err != nil {
		return err
	}
	if err := checkInputsUnspentAndMature(&block.Body, header.Height, parent.Unspent); err != nil {
		return err
	}
	if err := checkCoinbase(&block.Body, header.Height, parent.CoinbaseLockHeight); err != nil {
		return err
	}
	if err := checkMerkleRoots(block, parent); err != nil {
		return err
	}
	return nil
}

func checkNoDoubleSpendWithinBlock(body *chain.AggregateBody) error {
	seen := make(map[primitives.Commitment]struct{}, len(body.Inputs))
	for i := range body.Inputs {
		c := body.Inputs[i].Commitment
		if _, dup := seen[c]; dup {
			return fail(KindDuplicate, "same commitment spent twice in one block")
		}
		seen[c] = struct{}{}
	}
	return nil
}

func checkInputsUnspentAndMature(body *chain.AggregateBody, height uint64, lookup UnspentLookup) error {
	if lookup == nil {
		return nil
	}
	for i := range body.Inputs {
		maturity, unspent := lookup.LookupUnspent(body.Inputs[i].Commitment)
		if !unspent {
			return fail(KindUnknownInput, "input spends an unknown or already-spent output")
		}
		if maturity > height {
			return fail(KindImmatureSpend, "input spends an output before its maturity height")
		}
	}
	return nil
}

func checkCoinbase(body *chain.AggregateBody, height, coinbaseLockHeight uint64) error {
	coinbaseKernels := 0
	for i := range body.Kernels {
		if body.Kernels[i].IsCoinbase() {
			coinbaseKernels++
		}
	}
	if coinbaseKernels != 1 {
		return fail(KindCoinbase, "block must have exactly one coinbase kernel")
	}

	coinbaseOutputs := 0
	var coinbaseOutput *chain.Output
	for i := range body.Outputs {
		if body.Outputs[i].IsCoinbase() {
			coinbaseOutputs++
			coinbaseOutput = &body.Outputs[i]
		}
	}
	if coinbaseOutputs != 1 {
		return fail(KindCoinbase, "block must have exactly one coinbase output")
	}
	if coinbaseOutput.Maturity != height+coinbaseLockHeight {
		return fail(KindCoinbase, "coinbase output maturity does not equal height + coinbase_lock_height")
	}

	// The coinbase value is hidden behind a blinding factor only the miner
	// knows, so "reward == emission(height) + Σfees" cannot be checked
	// directly against the commitment; it is enforced transitively by the
	// aggregate balance check CheckBlock runs (checkBalance with the
	// height's reward), which fixes the coinbase
	// kernel's fee field (always 0) and leaves only the output's value free
	// to balance the rest of the block.
	return nil
}

func checkMerkleRoots(block *chain.Block, parent *ParentSnapshot) error {
	if parent.KernelMMR == nil || parent.OutputMMR == nil || parent.Witness == nil {
		return nil
	}

	kernelStore := parent.KernelMMR
	outputStore := parent.OutputMMR
	witness := parent.Witness.Clone()

	for i := range block.Body.Kernels {
		if _, err := mmr.AppendLeaf(kernelStore, primitives.DomainMMRLeaf, block.Body.Kernels[i].Bytes()); err != nil {
			return fail(KindMmrRoot, "simulating kernel MMR append: "+err.Error())
		}
	}
	for i := range block.Body.Outputs {
		leafIndex := mmr.LeafCount(outputStore.Size())
		if _, err := mmr.AppendLeaf(outputStore, primitives.DomainMMRLeaf, block.Body.Outputs[i].Bytes()); err != nil {
			return fail(KindMmrRoot, "simulating output MMR append: "+err.Error())
		}
		witness.MarkUnspent(leafIndex)
	}
	if parent.ResolveOutputLeafIndex != nil {
		for i := range block.Body.Inputs {
			if idx, ok := parent.ResolveOutputLeafIndex(block.Body.Inputs[i].OutputHash); ok {
				witness.MarkSpent(idx)
			}
		}
	}

	kernelRoot, err := mmr.Root(kernelStore, kernelStore.Size())
	if err != nil {
		return fail(KindMmrRoot, "computing kernel MMR root: "+err.Error())
	}
	if kernelRoot != block.Header.KernelMR {
		return fail(KindMmrRoot, "kernel_mr does not match simulated apply")
	}
	if kernelStore.Size() != block.Header.KernelMMRSize {
		return fail(KindMmrRoot, "kernel_mmr_size does not match simulated apply")
	}

	outputRoot, err := mmr.OutputMerkleRoot(mustRoot(outputStore), witness)
	if err != nil {
		return fail(KindMmrRoot, "computing output merkle root: "+err.Error())
	}
	if outputRoot != block.Header.OutputMR {
		return fail(KindMmrRoot, "output_mr does not match simulated apply")
	}
	if outputStore.Size() != block.Header.OutputMMRSize {
		return fail(KindMmrRoot, "output_mmr_size does not match simulated apply")
	}
	return nil
}

func mustRoot(store mmr.NodeStore) primitives.Hash {
	root, err := mmr.Root(store, store.Size())
	if err != nil {
		return primitives.Hash{}
	}
	return root
}
