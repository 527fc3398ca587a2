package chain

import (
	"fmt"

	"github.com/tari-project/basenode/mmr"
	"github.com/tari-project/basenode/primitives"
)

// NewGenesisBlock builds the height-0 coinbase block a fresh network
// starts from: one coinbase kernel/output paying params.EmissionInitialReward
// to blind, chained to the zero prev-hash. It mirrors the construction
// store's tests use to exercise applyBlockLocked (a single coinbase body
// whose header carries the post-apply kernel/output merkle roots and
// sizes), exported here so service/cmd/tari-node can seed a new chain
// without depending on test helpers.
//
// Genesis bypasses the parent-linkage and timestamp-median rules (§4.4,
// §8 "boundary behaviors"), so blind may be any scalar the network's
// operators agree on; callers that need a reproducible genesis across
// nodes must fix blind (and timestamp) out of band, e.g. via
// params.GenesisBlockBytes carrying a pre-serialized block instead of
// calling this constructor at all.
func NewGenesisBlock(params primitives.ChainParams, timestamp int64, blind primitives.Scalar) (*Block, error) {
	reward := params.EmissionInitialReward

	commitment, err := primitives.Commit(reward, blind)
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: commit reward: %w", err)
	}
	excess, err := primitives.CommitExcess(blind.Negate())
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: commit excess: %w", err)
	}

	kernel := Kernel{
		Version:  1,
		Features: KernelCoinbase,
		Excess:   excess,
	}
	sig, err := primitives.SignExcess(blind.Negate(), kernel.SignatureMessage())
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: sign kernel: %w", err)
	}
	kernel.ExcessSig = sig

	output := Output{
		Version:    1,
		Features:   OutputCoinbase,
		Maturity:   params.CoinbaseLockHeight,
		Commitment: commitment,
		RangeProof: primitives.BuildRangeProof(reward, blind, commitment),
	}

	body := AggregateBody{
		Outputs: OutputList{output},
		Kernels: KernelList{kernel},
	}
	body.Sort()

	kernelMMR := mmr.NewMemoryStore()
	outputMMR := mmr.NewMemoryStore()
	witness := mmr.NewWitness()

	for i := range body.Kernels {
		if _, err := mmr.AppendLeaf(kernelMMR, primitives.DomainMMRLeaf, body.Kernels[i].Bytes()); err != nil {
			return nil, fmt.Errorf("chain: genesis: append kernel leaf: %w", err)
		}
	}
	for i := range body.Outputs {
		leafIndex := mmr.LeafCount(outputMMR.Size())
		if _, err := mmr.AppendLeaf(outputMMR, primitives.DomainMMRLeaf, body.Outputs[i].Bytes()); err != nil {
			return nil, fmt.Errorf("chain: genesis: append output leaf: %w", err)
		}
		witness.MarkUnspent(leafIndex)
	}

	kernelRoot, err := mmr.Root(kernelMMR, kernelMMR.Size())
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: kernel root: %w", err)
	}
	outputBagged, err := mmr.Root(outputMMR, outputMMR.Size())
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: output root: %w", err)
	}
	outputRoot, err := mmr.OutputMerkleRoot(outputBagged, witness)
	if err != nil {
		return nil, fmt.Errorf("chain: genesis: output merkle root: %w", err)
	}

	header := BlockHeader{
		Version:       1,
		Height:        0,
		PrevHash:      primitives.Hash{},
		Timestamp:     timestamp,
		OutputMR:      outputRoot,
		KernelMR:      kernelRoot,
		KernelMMRSize: kernelMMR.Size(),
		OutputMMRSize: outputMMR.Size(),
		Pow:           ProofOfWork{Algo: PowAlgoSHA3x},
	}

	return &Block{Header: header, Body: body}, nil
}
