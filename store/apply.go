package store

import (
	"fmt"
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mmr"
	"github.com/tari-project/basenode/pow"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/validator"

	bolt "go.etcd.io/bbolt"
)

// applyBlockLocked is the atomic "validate then commit" apply_block
// implementation (§4.5), run only from the writer goroutine. It mirrors the
// teacher's apply_stage4_5.go ApplyBlockIfBestTip shape (validate against
// current tip, then a single bbolt.Update flush of every derived table),
// generalized from a UTXO-only model to Mimblewimble's output+kernel+MMR
// model.
func (s *Store) applyBlockLocked(block *chain.Block) (ApplyDecision, error) {
	blockHash := block.Header.Hash()
	engineAdvanced := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		tipV := tx.Bucket(bucketAccumulated).Get(accumulatedTipKey)
		var parentHeader chain.BlockHeader
		var medianTimestamp int64
		if tipV != nil {
			tipRec, err := decodeTipRecord(tipV)
			if err != nil {
				return err
			}
			if block.Header.PrevHash != tipRec.Hash {
				return errNotChained
			}
			headerBytes := tx.Bucket(bucketHeadersByHash).Get(hashKey(tipRec.Hash))
			if headerBytes == nil {
				return fmt.Errorf("store: missing header for tip %x", tipRec.Hash)
			}
			parentHeader, err = chain.DecodeBlockHeader(headerBytes)
			if err != nil {
				return err
			}
			medianTimestamp, err = s.medianTimestampLocked(tx, parentHeader)
			if err != nil {
				return err
			}
		} else if block.Header.Height != 0 {
			return fmt.Errorf("store: chain uninitialized, first block must be genesis (height 0)")
		}

		kernelStore := newBoltNodeStore(tx, mmrKindKernel)
		outputStore := newBoltNodeStore(tx, mmrKindOutput)
		witness, err := loadWitness(tx)
		if err != nil {
			return err
		}
		originalOutputSize := outputStore.Size()

		adapter := validatorAdapter{tx: tx}
		s.mu.Lock()
		engine := s.engine
		s.mu.Unlock()

		parent := &validator.ParentSnapshot{
			Header:                 parentHeader,
			MedianTimestampPast11:  medianTimestamp,
			Unspent:                adapter,
			Difficulty:             engine,
			Emission:               emissionSchedule{params: s.params},
			CoinbaseLockHeight:     s.params.CoinbaseLockHeight,
			KernelMMR:              kernelStore,
			OutputMMR:              outputStore,
			Witness:                witness,
			ResolveOutputLeafIndex: adapter.resolveOutputLeafIndex,
		}
		if tipV == nil {
			// Genesis has no parent chain to validate the header against;
			// only the transaction body and merkle-root self-consistency
			// are checked (§4.4 edge case).
			parent.GenesisBlock = true
			parent.Difficulty = nil
		}

		if err := validator.CheckBlock(block, parent, time.Now()); err != nil {
			return err
		}

		// The merkle-root check above already appended this block's
		// kernels/outputs into kernelStore/outputStore for real (they are
		// tx-scoped bolt stores, not a disposable clone); persist the
		// witness mutation the same way the check simulated it, spend the
		// consumed outputs, and insert the new ones.
		for i := range block.Body.Inputs {
			in := &block.Body.Inputs[i]
			leafIndex, ok := adapter.resolveOutputLeafIndex(in.OutputHash)
			if ok {
				witness.MarkSpent(leafIndex)
			}
			if err := tx.Bucket(bucketUnspent).Delete(commitmentKey(in.Commitment)); err != nil {
				return err
			}
		}
		for i := range block.Body.Outputs {
			out := &block.Body.Outputs[i]
			leafIndex := mmr.LeafCount(originalOutputSize) + uint64(i)
			witness.MarkUnspent(leafIndex)

			outHash := out.ID()
			if err := tx.Bucket(bucketOutputs).Put(hashKey(outHash), encodeOutputRecord(outputRecord{
				LeafIndex: leafIndex,
				Output:    out.Bytes(),
			})); err != nil {
				return err
			}
			unspent := unspentEntry{Maturity: out.Maturity, LeafIndex: leafIndex, OutputHash: outHash}
			if err := tx.Bucket(bucketUnspent).Put(commitmentKey(out.Commitment), encodeUnspentEntry(unspent)); err != nil {
				return err
			}
		}
		for i := range block.Body.Kernels {
			k := &block.Body.Kernels[i]
			if err := tx.Bucket(bucketKernels).Put(commitmentKey(k.Excess), k.Bytes()); err != nil {
				return err
			}
		}
		if err := saveWitness(tx, witness); err != nil {
			return err
		}

		if err := tx.Bucket(bucketHeadersByHash).Put(hashKey(blockHash), block.Header.Bytes()); err != nil {
			return err
		}
		if err := tx.Bucket(bucketHeadersByHeight).Put(heightKey(block.Header.Height), blockHash[:]); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBodiesByHash).Put(hashKey(blockHash), block.Body.Bytes()); err != nil {
			return err
		}

		s.mu.Lock()
		target := engine.RecordApplied(&block.Header)
		engineAdvanced = true
		powBytes := encodePowRecord(powRecord{
			RandomX: engine.Accumulated(chain.PowAlgoRandomX),
			SHA3x:   engine.Accumulated(chain.PowAlgoSHA3x),
		})
		s.mu.Unlock()
		if err := tx.Bucket(bucketAccumulated).Put(accumulatedPowKey, powBytes); err != nil {
			return err
		}
		targetK := targetKey(block.Header.Pow.Algo, block.Header.Height)
		if err := tx.Bucket(bucketAccumulated).Put(targetK, encodeTargetRecord(target)); err != nil {
			return err
		}
		tipRec := tipRecord{Height: block.Header.Height, Hash: blockHash}
		return tx.Bucket(bucketAccumulated).Put(accumulatedTipKey, encodeTipRecord(tipRec))
	})
	if err != nil {
		if engineAdvanced {
			// The closure reached RecordApplied (so the in-memory engine
			// was advanced) but the surrounding bbolt commit itself then
			// failed; undo the advance so engine state matches the
			// still-uncommitted database.
			s.mu.Lock()
			s.engine.RecordRewound(&block.Header)
			s.mu.Unlock()
		}
		if err == errNotChained {
			return ApplyNotChained, err
		}
		return "", err
	}

	s.publishTip(Tip{Height: block.Header.Height, Hash: blockHash})
	s.tryExtendFromOrphansLocked(blockHash)
	return ApplyAppliedAsTip, nil
}

var errNotChained = fmt.Errorf("store: block does not chain to current tip")

// medianTimestampLocked computes the median timestamp of the MedianTimestampWindow
// headers ending at parent (§3, §4.4's "median of past 11 blocks").
func (s *Store) medianTimestampLocked(tx *bolt.Tx, parent chain.BlockHeader) (int64, error) {
	window := s.params.MedianTimestampWindow
	if window <= 0 {
		window = 1
	}
	timestamps := make([]int64, 0, window)
	cur := parent
	for i := 0; i < window; i++ {
		timestamps = append(timestamps, cur.Timestamp)
		if cur.Height == 0 {
			break
		}
		prevBytes := tx.Bucket(bucketHeadersByHash).Get(hashKey(cur.PrevHash))
		if prevBytes == nil {
			break
		}
		h, err := chain.DecodeBlockHeader(prevBytes)
		if err != nil {
			return 0, err
		}
		cur = h
	}
	return medianInt64(timestamps), nil
}

func medianInt64(vs []int64) int64 {
	sorted := append([]int64(nil), vs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)/2]
}

// emissionSchedule adapts pow.Emission to validator.EmissionSchedule without
// the store package importing pow's concrete type into the validator call
// site directly (keeps the two decoupled the way ParentSnapshot documents).
type emissionSchedule struct {
	params primitives.ChainParams
}

func (e emissionSchedule) RewardAt(height uint64) uint64 {
	return pow.NewEmission(e.params).RewardAt(height)
}
