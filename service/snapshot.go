package service

import (
	"math/big"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mempool"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/store"
)

// Snapshot is the read-only query façade §4.9 describes: every method
// reads through the Chain State Store's or Mempool's own locking and
// never blocks on (or competes with) the single writer goroutine. RPC and
// wallet-facing callers should only ever hold a Snapshot, never *store.Store
// or *mempool.Pool directly.
type Snapshot struct {
	store *store.Store
	pool  *mempool.Pool
}

// Tip returns the current best-chain tip.
func (s Snapshot) Tip() (store.Tip, error) {
	return s.store.Tip()
}

// TotalAccumulatedDifficulty returns the tip's combined PoW total.
func (s Snapshot) TotalAccumulatedDifficulty() *big.Int {
	return s.store.TotalAccumulatedDifficulty()
}

// FetchBlockByHash returns the block with the given hash, if known.
func (s Snapshot) FetchBlockByHash(hash primitives.Hash) (*chain.Block, error) {
	return s.store.FetchBlockByHash(hash)
}

// FetchBlockByHeight returns the best-chain block at the given height.
func (s Snapshot) FetchBlockByHeight(height uint64) (*chain.Block, error) {
	return s.store.FetchBlockByHeight(height)
}

// FetchHeaderChain returns up to count headers starting at height from.
func (s Snapshot) FetchHeaderChain(from uint64, count int) ([]chain.BlockHeader, error) {
	return s.store.FetchHeaderChain(from, count)
}

// FetchUTXO returns the unspent output referenced by commitment along
// with its maturity height.
func (s Snapshot) FetchUTXO(commitment primitives.Commitment) (chain.Output, uint64, error) {
	return s.store.FetchUTXO(commitment)
}

// FetchKernelByExcess returns the kernel keyed by its excess commitment.
func (s Snapshot) FetchKernelByExcess(excess primitives.Commitment) (chain.Kernel, error) {
	return s.store.FetchKernelByExcess(excess)
}

// MempoolLen returns the number of transactions currently pooled.
func (s Snapshot) MempoolLen() int {
	return s.pool.Len()
}

// MempoolGet returns the pooled transaction with the given kernel excess,
// if any.
func (s Snapshot) MempoolGet(excess primitives.Commitment) (*chain.Transaction, bool) {
	return s.pool.Get(excess)
}

// MempoolHas reports whether excess is currently pooled.
func (s Snapshot) MempoolHas(excess primitives.Commitment) bool {
	return s.pool.Has(excess)
}
