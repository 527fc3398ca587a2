package store

import (
	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"

	bolt "go.etcd.io/bbolt"
)

// TryAddOrphan stores a block that does not chain to the current tip, for
// later retry once its parent arrives (§4.5: "unconnected blocks are held as
// orphans, keyed by the hash of the block they extend"). Call it when
// ApplyBlock returns ApplyNotChained and the missing parent genuinely isn't
// known yet (as opposed to a stale or conflicting chain, which callers
// should route through Reorg instead).
func (s *Store) TryAddOrphan(block *chain.Block) error {
	resultCh := make(chan error, 1)
	req := writeRequest{kind: writeOrphan, block: block, resultCh: resultCh}
	select {
	case s.writeReqCh <- req:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	select {
	case err := <-resultCh:
		return err
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *Store) addOrphanLocked(block *chain.Block) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := hashKey(block.Header.PrevHash)
		b := tx.Bucket(bucketOrphans)
		existing := b.Get(key)
		headerBytes := block.Header.Bytes()
		bodyBytes := block.Body.Bytes()
		entry := encodeOrphanEntry(headerBytes, bodyBytes)
		if existing != nil {
			entry = append(append([]byte(nil), existing...), entry...)
		}
		return b.Put(key, entry)
	})
}

// tryExtendFromOrphansLocked is called with the writer goroutine's exclusive
// access right after a successful commit (§4.5: "orphans are consulted for
// chain extension after each apply"). It runs in the same goroutine as
// applyBlockLocked, so it recurses into it directly instead of round
// tripping through the write-request channel (which would deadlock against
// itself).
func (s *Store) tryExtendFromOrphansLocked(newTipHash primitives.Hash) {
	key := hashKey(newTipHash)
	var entries [][2][]byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrphans)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		var err error
		entries, err = decodeOrphanEntries(v)
		if err != nil {
			return err
		}
		return b.Delete(key)
	})
	if err != nil || len(entries) == 0 {
		return
	}
	for _, pair := range entries {
		header, err := chain.DecodeBlockHeader(pair[0])
		if err != nil {
			continue
		}
		body, err := chain.DecodeAggregateBody(pair[1])
		if err != nil {
			continue
		}
		block := &chain.Block{Header: header, Body: body}
		// applyBlockLocked recurses into tryExtendFromOrphansLocked itself
		// on success, so a matching grandchild orphan is picked up without
		// another explicit call here.
		if _, err := s.applyBlockLocked(block); err != nil {
			_ = s.addOrphanLocked(block)
		}
	}
}
