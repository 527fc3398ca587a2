package mmr

// NodeStore is the append-only backing array for an MMR: flat node index to
// 32-byte node hash. Both leaves and interior nodes live in the same
// address space, exactly as forestrie-go-merklelog's NodeAppender does.
type NodeStore interface {
	Get(i uint64) (primHash [32]byte, err error)
	Append(value [32]byte) (uint64, error)
	Size() uint64
}

// MemoryStore is a NodeStore backed by a plain slice, used for construction
// of short-lived proofs and in tests. The chain store package backs this
// interface with a bbolt bucket for the persisted kernel and output MMRs.
type MemoryStore struct {
	nodes [][32]byte
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get(i uint64) ([32]byte, error) {
	if i >= uint64(len(s.nodes)) {
		return [32]byte{}, errIndexRange
	}
	return s.nodes[i], nil
}

func (s *MemoryStore) Append(value [32]byte) (uint64, error) {
	s.nodes = append(s.nodes, value)
	return uint64(len(s.nodes)) - 1, nil
}

func (s *MemoryStore) Size() uint64 { return uint64(len(s.nodes)) }

// Truncate drops every node from index newSize onward, used to implement
// Rewind / reorg rollback.
func (s *MemoryStore) Truncate(newSize uint64) {
	if newSize < uint64(len(s.nodes)) {
		s.nodes = s.nodes[:newSize]
	}
}

// TruncatableStore is a NodeStore whose backing can be rolled back to an
// earlier size, the building block for TruncateTo's deterministic rollback
// (§4.2: "truncate_to(kind, size)").
type TruncatableStore interface {
	NodeStore
	Truncate(newSize uint64)
}
