package mempool

import (
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// entry is one pooled transaction plus the bookkeeping PullBest and
// eviction need.
type entry struct {
	tx      *chain.Transaction
	excess  primitives.Commitment
	fee     uint64
	weight  uint64
	addedAt time.Time
	index   int // maintained by container/heap
}

// feePerGramLess reports whether a's fee-per-weight-unit is strictly less
// than b's, via cross multiplication so the comparison never needs a
// floating-point division (§4.6: "fee divided by transaction weight").
func feePerGramLess(a, b *entry) bool {
	lhs := a.fee * b.weight
	rhs := b.fee * a.weight
	if lhs != rhs {
		return lhs < rhs
	}
	return lexLess(a.excess, b.excess)
}

func lexLess(a, b primitives.Commitment) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// evictionHeap is a container/heap min-heap ordered by ascending
// fee-per-gram, so Pop always yields the entry eviction should drop first
// (§4.6: "eviction policy is lowest fee/weight first").
type evictionHeap []*entry

func (h evictionHeap) Len() int { return len(h) }
func (h evictionHeap) Less(i, j int) bool {
	return feePerGramLess(h[i], h[j])
}
func (h evictionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *evictionHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *evictionHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
