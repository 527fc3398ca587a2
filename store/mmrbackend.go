package store

import (
	"encoding/binary"
	"fmt"

	"github.com/tari-project/basenode/mmr"
	bolt "go.etcd.io/bbolt"
)

// boltNodeStore is an mmr.NodeStore/mmr.TruncatableStore backed directly by
// the current bbolt transaction's mmr_backends bucket: every Get/Append/
// Truncate call reads or writes through tx, so a validator.CheckBlock
// simulation run against it is exactly the same mutation apply_block wants
// to persist — if the surrounding tx aborts, bbolt discards everything this
// store wrote, which is how this package gets atomic "validate, then
// commit" apply_block behavior without a separate undo log for the MMRs.
type boltNodeStore struct {
	tx   *bolt.Tx
	kind byte
}

func newBoltNodeStore(tx *bolt.Tx, kind byte) *boltNodeStore {
	return &boltNodeStore{tx: tx, kind: kind}
}

func (s *boltNodeStore) Size() uint64 {
	v := s.tx.Bucket(bucketMMRBackends).Get(mmrSizeKey(s.kind))
	if v == nil {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func (s *boltNodeStore) Get(i uint64) ([32]byte, error) {
	v := s.tx.Bucket(bucketMMRBackends).Get(mmrNodeKey(s.kind, i))
	if v == nil {
		return [32]byte{}, fmt.Errorf("store: mmr node %d not found", i)
	}
	var out [32]byte
	copy(out[:], v)
	return out, nil
}

func (s *boltNodeStore) Append(value [32]byte) (uint64, error) {
	b := s.tx.Bucket(bucketMMRBackends)
	size := s.Size()
	if err := b.Put(mmrNodeKey(s.kind, size), value[:]); err != nil {
		return 0, err
	}
	if err := putSize(b, mmrSizeKey(s.kind), size+1); err != nil {
		return 0, err
	}
	return size, nil
}

// Truncate drops every node at or beyond newSize, the building block for
// rewind_to's MMR rollback (§4.2, §4.5).
func (s *boltNodeStore) Truncate(newSize uint64) {
	b := s.tx.Bucket(bucketMMRBackends)
	old := s.Size()
	for i := newSize; i < old; i++ {
		_ = b.Delete(mmrNodeKey(s.kind, i))
	}
	_ = putSize(b, mmrSizeKey(s.kind), newSize)
}

func putSize(b *bolt.Bucket, key []byte, size uint64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], size)
	return b.Put(key, v[:])
}

func loadWitness(tx *bolt.Tx) (*mmr.Witness, error) {
	v := tx.Bucket(bucketMMRBackends).Get(mmrWitnessKey())
	if v == nil {
		return mmr.NewWitness(), nil
	}
	return mmr.WitnessFromBytes(v)
}

func saveWitness(tx *bolt.Tx, w *mmr.Witness) error {
	b, err := w.Bytes()
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMMRBackends).Put(mmrWitnessKey(), b)
}
