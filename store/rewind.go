package store

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mmr"

	bolt "go.etcd.io/bbolt"
)

// rewindToLocked rolls the committed chain back to height, replaying bodies
// from the current tip down to height+1 in reverse (§4.5: "revive previously
// spent outputs by replaying bodies in reverse"). There is no undo log; the
// permanent outputs table plus each block's own body is enough to reverse
// every mutation apply_block made.
func (s *Store) rewindToLocked(height uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		tipV := tx.Bucket(bucketAccumulated).Get(accumulatedTipKey)
		if tipV == nil {
			return fmt.Errorf("store: cannot rewind, chain not initialized")
		}
		tipRec, err := decodeTipRecord(tipV)
		if err != nil {
			return err
		}
		if height >= tipRec.Height {
			return fmt.Errorf("store: rewind target %d is not below current tip %d", height, tipRec.Height)
		}

		kernelStore := newBoltNodeStore(tx, mmrKindKernel)
		outputStore := newBoltNodeStore(tx, mmrKindOutput)
		witness, err := loadWitness(tx)
		if err != nil {
			return err
		}

		curHash := tipRec.Hash
		for h := tipRec.Height; h > height; h-- {
			headerBytes := tx.Bucket(bucketHeadersByHash).Get(hashKey(curHash))
			if headerBytes == nil {
				return fmt.Errorf("store: missing header at height %d during rewind", h)
			}
			header, err := chain.DecodeBlockHeader(headerBytes)
			if err != nil {
				return err
			}
			bodyBytes := tx.Bucket(bucketBodiesByHash).Get(hashKey(curHash))
			if bodyBytes == nil {
				return fmt.Errorf("store: missing body at height %d during rewind", h)
			}
			body, err := chain.DecodeAggregateBody(bodyBytes)
			if err != nil {
				return err
			}

			// Undo in the reverse of apply order: drop this block's own
			// outputs/kernels, then revive the outputs its inputs spent.
			for i := range body.Kernels {
				if err := tx.Bucket(bucketKernels).Delete(commitmentKey(body.Kernels[i].Excess)); err != nil {
					return err
				}
			}
			for i := range body.Outputs {
				if err := tx.Bucket(bucketUnspent).Delete(commitmentKey(body.Outputs[i].Commitment)); err != nil {
					return err
				}
			}
			for i := range body.Inputs {
				in := &body.Inputs[i]
				recBytes := tx.Bucket(bucketOutputs).Get(hashKey(in.OutputHash))
				if recBytes == nil {
					return fmt.Errorf("store: cannot revive unknown output %x during rewind", in.OutputHash)
				}
				rec, err := decodeOutputRecord(recBytes)
				if err != nil {
					return err
				}
				revived, err := chain.DecodeOutput(rec.Output)
				if err != nil {
					return err
				}
				unspent := unspentEntry{Maturity: revived.Maturity, LeafIndex: rec.LeafIndex, OutputHash: in.OutputHash}
				if err := tx.Bucket(bucketUnspent).Put(commitmentKey(revived.Commitment), encodeUnspentEntry(unspent)); err != nil {
					return err
				}
				witness.MarkUnspent(rec.LeafIndex)
			}

			if err := tx.Bucket(bucketHeadersByHash).Delete(hashKey(curHash)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketHeadersByHeight).Delete(heightKey(h)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketBodiesByHash).Delete(hashKey(curHash)); err != nil {
				return err
			}
			if err := tx.Bucket(bucketAccumulated).Delete(targetKey(header.Pow.Algo, h)); err != nil {
				return err
			}

			s.mu.Lock()
			s.engine.RecordRewound(&header)
			s.mu.Unlock()

			curHash = header.PrevHash
		}

		targetHeaderBytes := tx.Bucket(bucketHeadersByHash).Get(hashKey(curHash))
		if targetHeaderBytes == nil {
			return fmt.Errorf("store: missing target header at height %d during rewind", height)
		}
		targetHeader, err := chain.DecodeBlockHeader(targetHeaderBytes)
		if err != nil {
			return err
		}

		kernelStore.Truncate(targetHeader.KernelMMRSize)
		outputStore.Truncate(targetHeader.OutputMMRSize)
		witness.TruncateTo(mmr.LeafCount(targetHeader.OutputMMRSize))
		if err := saveWitness(tx, witness); err != nil {
			return err
		}

		s.mu.Lock()
		powBytes := encodePowRecord(powRecord{
			RandomX: s.engine.Accumulated(chain.PowAlgoRandomX),
			SHA3x:   s.engine.Accumulated(chain.PowAlgoSHA3x),
		})
		s.mu.Unlock()
		if err := tx.Bucket(bucketAccumulated).Put(accumulatedPowKey, powBytes); err != nil {
			return err
		}
		newTip := tipRecord{Height: targetHeader.Height, Hash: curHash}
		if err := tx.Bucket(bucketAccumulated).Put(accumulatedTipKey, encodeTipRecord(newTip)); err != nil {
			return err
		}
		return nil
	})
}
