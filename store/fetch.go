package store

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"

	bolt "go.etcd.io/bbolt"
)

// FetchBlockByHash returns the full block stored under hash.
func (s *Store) FetchBlockByHash(hash primitives.Hash) (*chain.Block, error) {
	var block *chain.Block
	err := s.db.View(func(tx *bolt.Tx) error {
		headerBytes := tx.Bucket(bucketHeadersByHash).Get(hashKey(hash))
		if headerBytes == nil {
			return fmt.Errorf("store: no block with hash %x", hash)
		}
		header, err := chain.DecodeBlockHeader(headerBytes)
		if err != nil {
			return err
		}
		bodyBytes := tx.Bucket(bucketBodiesByHash).Get(hashKey(hash))
		if bodyBytes == nil {
			return fmt.Errorf("store: missing body for block %x", hash)
		}
		body, err := chain.DecodeAggregateBody(bodyBytes)
		if err != nil {
			return err
		}
		block = &chain.Block{Header: header, Body: body}
		return nil
	})
	return block, err
}

// FetchBlockByHeight resolves height to a hash via headers_by_height, then
// delegates to FetchBlockByHash.
func (s *Store) FetchBlockByHeight(height uint64) (*chain.Block, error) {
	var hash primitives.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHeadersByHeight).Get(heightKey(height))
		if v == nil {
			return fmt.Errorf("store: no block at height %d", height)
		}
		copy(hash[:], v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FetchBlockByHash(hash)
}

// FetchHeaderChain returns up to count consecutive headers starting at from,
// the building block for GetHeaders/Headers sync messages (§6).
func (s *Store) FetchHeaderChain(from uint64, count int) ([]chain.BlockHeader, error) {
	var out []chain.BlockHeader
	err := s.db.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket(bucketHeadersByHeight)
		hh := tx.Bucket(bucketHeadersByHash)
		for h := from; len(out) < count; h++ {
			hashBytes := hb.Get(heightKey(h))
			if hashBytes == nil {
				break
			}
			headerBytes := hh.Get(hashBytes)
			if headerBytes == nil {
				break
			}
			header, err := chain.DecodeBlockHeader(headerBytes)
			if err != nil {
				return err
			}
			out = append(out, header)
		}
		return nil
	})
	return out, err
}

// FetchUTXO returns the unspent output referenced by commitment, along with
// its maturity height.
func (s *Store) FetchUTXO(commitment primitives.Commitment) (chain.Output, uint64, error) {
	var out chain.Output
	var maturity uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUnspent).Get(commitmentKey(commitment))
		if v == nil {
			return fmt.Errorf("store: no unspent output for commitment %x", commitment)
		}
		entry, err := decodeUnspentEntry(v)
		if err != nil {
			return err
		}
		maturity = entry.Maturity
		recBytes := tx.Bucket(bucketOutputs).Get(hashKey(entry.OutputHash))
		if recBytes == nil {
			return fmt.Errorf("store: missing output record for %x", entry.OutputHash)
		}
		rec, err := decodeOutputRecord(recBytes)
		if err != nil {
			return err
		}
		out, err = chain.DecodeOutput(rec.Output)
		return err
	})
	return out, maturity, err
}

// FetchKernelByExcess returns the kernel keyed by its excess commitment.
func (s *Store) FetchKernelByExcess(excess primitives.Commitment) (chain.Kernel, error) {
	var out chain.Kernel
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketKernels).Get(commitmentKey(excess))
		if v == nil {
			return fmt.Errorf("store: no kernel with excess %x", excess)
		}
		var err error
		out, err = chain.DecodeKernel(v)
		return err
	})
	return out, err
}
