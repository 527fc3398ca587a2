package mempool

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/validator"
)

// Config bounds pool admission and retention (§4.6: "fee floor
// (configurable) and weight cap", "age/size bounds"), a functional-default
// struct in the teacher's DefaultMinerConfig/DefaultConfig style
// (node/miner.go, node/config.go).
type Config struct {
	MinFeePerGramNumerator uint64 // admission floor: fee*1 must be >= this*weight
	MaxTotalWeight         uint64 // pool-wide weight cap before eviction kicks in
	MaxAge                 time.Duration
}

// DefaultConfig derives pool bounds from chain parameters: the weight cap
// is a multiple of one block's worth of transactions, so the pool can hold
// several blocks' backlog before it starts evicting the cheapest entries.
func DefaultConfig(params primitives.ChainParams) Config {
	return Config{
		MinFeePerGramNumerator: 1,
		MaxTotalWeight:         params.MaxBlockWeight * 20,
		MaxAge:                 72 * time.Hour,
	}
}

// Pool is the unconfirmed transaction pool (§4.6), keyed by kernel excess.
// It owns a reference to the chain-state height and an unspent-output
// lookup it last validated against (spec.md §4.5: "Mempool owns a
// reference-to-header-height snapshot it validated against"); Revalidate
// refreshes that reference after every tip change.
type Pool struct {
	mu sync.Mutex

	cfg     Config
	height  uint64
	unspent validator.UnspentLookup

	byExcess map[primitives.Commitment]*entry
	spentBy  map[primitives.Commitment]primitives.Commitment // input commitment -> claiming tx's excess

	order       evictionHeap
	totalWeight uint64
}

// New creates an empty pool validated against the given height/unspent
// snapshot.
func New(cfg Config, height uint64, unspent validator.UnspentLookup) *Pool {
	return &Pool{
		cfg:      cfg,
		height:   height,
		unspent:  unspent,
		byExcess: make(map[primitives.Commitment]*entry),
		spentBy:  make(map[primitives.Commitment]primitives.Commitment),
	}
}

// Len returns the number of pooled transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byExcess)
}

// Add validates tx and admits it, resolving any conflict with an already
// pooled transaction in favor of the higher fee-per-gram (§4.6).
func (p *Pool) Add(tx *chain.Transaction) error {
	if err := validator.CheckTransaction(tx); err != nil {
		return err
	}
	if len(tx.Body.Kernels) != 1 {
		return fail(KindMultiKernel, "pooled transactions must carry exactly one kernel")
	}
	excess := tx.Body.Kernels[0].Excess
	weight := tx.Body.Weight()
	fee := tx.Body.Kernels[0].Fee

	if fee*1 < p.cfg.MinFeePerGramNumerator*weight {
		return fail(KindFeeTooLow, "fee per weight unit is below the pool floor")
	}
	if weight > p.cfg.MaxTotalWeight {
		return fail(KindWeightTooLarge, "transaction weight exceeds the pool's total cap")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byExcess[excess]; exists {
		return fail(KindDuplicateExcess, "a transaction with this kernel excess is already pooled")
	}

	for i := range tx.Body.Inputs {
		maturity, unspent := p.unspent.LookupUnspent(tx.Body.Inputs[i].Commitment)
		if !unspent {
			return fail(KindUnknownInput, "input spends an unknown or already-confirmed-spent output")
		}
		if maturity > p.height {
			return fail(KindImmatureSpend, "input spends an output before its maturity height")
		}
	}

	newEntry := &entry{tx: tx, excess: excess, fee: fee, weight: weight, addedAt: addedAtNow()}

	// Conflict resolution: an input already claimed by a pooled
	// transaction is only displaced if newEntry's fee-per-gram is
	// higher; on equal fee-per-gram the entry whose excess sorts later
	// wins (feePerGramLess's tie-break).
	toEvict := make(map[primitives.Commitment]struct{})
	for i := range tx.Body.Inputs {
		c := tx.Body.Inputs[i].Commitment
		otherExcess, conflict := p.spentBy[c]
		if !conflict || otherExcess == excess {
			continue
		}
		other := p.byExcess[otherExcess]
		if other == nil {
			continue
		}
		if feePerGramLess(other, newEntry) {
			toEvict[otherExcess] = struct{}{}
		} else {
			return fail(KindOutbidByConflict, "a pooled transaction already claims this input at an equal or higher fee")
		}
	}
	for victim := range toEvict {
		p.removeLocked(victim)
	}

	p.insertLocked(newEntry)
	p.evictUntilUnderCapLocked(newEntry.excess)
	return nil
}

func (p *Pool) insertLocked(e *entry) {
	p.byExcess[e.excess] = e
	for i := range e.tx.Body.Inputs {
		p.spentBy[e.tx.Body.Inputs[i].Commitment] = e.excess
	}
	heap.Push(&p.order, e)
	p.totalWeight += e.weight
}

func (p *Pool) removeLocked(excess primitives.Commitment) {
	e, ok := p.byExcess[excess]
	if !ok {
		return
	}
	delete(p.byExcess, excess)
	for i := range e.tx.Body.Inputs {
		if p.spentBy[e.tx.Body.Inputs[i].Commitment] == excess {
			delete(p.spentBy, e.tx.Body.Inputs[i].Commitment)
		}
	}
	if e.index >= 0 && e.index < len(p.order) && p.order[e.index] == e {
		heap.Remove(&p.order, e.index)
	}
	p.totalWeight -= e.weight
}

// evictUntilUnderCapLocked drops the cheapest entries, the just-admitted
// one included, until the pool is back under its weight cap or only one
// entry remains.
func (p *Pool) evictUntilUnderCapLocked(justAdded primitives.Commitment) {
	for p.totalWeight > p.cfg.MaxTotalWeight && len(p.order) > 1 {
		cheapest := p.order[0].excess
		if cheapest == justAdded && len(p.order) == 1 {
			break
		}
		p.removeLocked(cheapest)
	}
}

// Remove drops a transaction from the pool, e.g. because it was confirmed
// in an applied block.
func (p *Pool) Remove(excess primitives.Commitment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(excess)
}

// Get returns the pooled transaction with the given kernel excess, if any,
// the lookup GetMempoolTx requests need to serve a peer's request.
func (p *Pool) Get(excess primitives.Commitment) (*chain.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byExcess[excess]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// GetMany returns every requested transaction that is still pooled,
// silently skipping excesses the pool doesn't recognize.
func (p *Pool) GetMany(excesses []primitives.Commitment) []chain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]chain.Transaction, 0, len(excesses))
	for _, excess := range excesses {
		if e, ok := p.byExcess[excess]; ok {
			out = append(out, *e.tx)
		}
	}
	return out
}

// Has reports whether excess is already pooled, the loop-prevention check a
// NewTxAnnounce handler needs before deciding to request the full
// transaction.
func (p *Pool) Has(excess primitives.Commitment) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byExcess[excess]
	return ok
}

// Revalidate updates the pool's height/unspent reference and drops every
// entry that no longer validates against it — the store's tip changed
// (including via reorg), so a pooled transaction may now spend something
// already confirmed, or something that no longer exists at all (§4.5).
func (p *Pool) Revalidate(height uint64, unspent validator.UnspentLookup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.height = height
	p.unspent = unspent

	var stale []primitives.Commitment
	for excess, e := range p.byExcess {
		for i := range e.tx.Body.Inputs {
			maturity, ok := unspent.LookupUnspent(e.tx.Body.Inputs[i].Commitment)
			if !ok || maturity > height {
				stale = append(stale, excess)
				break
			}
		}
	}
	for _, excess := range stale {
		p.removeLocked(excess)
	}
}

// Reinsert re-admits every transaction from a chain of displaced blocks
// after a rewind (§4.6: "on a rewind, every transaction in every evicted
// block is reinserted as unconfirmed"). Transactions that fail admission
// (e.g. now double-spent by the new chain) are silently dropped, matching
// pull_best's guarantee that only currently-valid transactions are ever
// proposed.
func (p *Pool) Reinsert(displacedBodies []chain.AggregateBody) {
	for _, body := range displacedBodies {
		for i := range body.Kernels {
			if body.Kernels[i].IsCoinbase() {
				continue
			}
		}
		txs := bodyToTransactions(body)
		for _, tx := range txs {
			_ = p.Add(tx)
		}
	}
}

// bodyToTransactions rebuilds a mined block body as a single merged
// transaction: every input, every non-coinbase output and every
// non-coinbase kernel, with a zero offset. Per-user transactions are not
// recovered, since cut-through has already discarded that structure. It
// returns nil when the body has no non-coinbase kernel.
func bodyToTransactions(body chain.AggregateBody) []*chain.Transaction {
	var inputs chain.InputList
	var outputs chain.OutputList
	var kernels chain.KernelList
	for i := range body.Inputs {
		inputs = append(inputs, body.Inputs[i])
	}
	for i := range body.Outputs {
		if body.Outputs[i].IsCoinbase() {
			continue
		}
		outputs = append(outputs, body.Outputs[i])
	}
	for i := range body.Kernels {
		if body.Kernels[i].IsCoinbase() {
			continue
		}
		kernels = append(kernels, body.Kernels[i])
	}
	if len(kernels) == 0 {
		return nil
	}
	merged := chain.AggregateBody{Inputs: inputs, Outputs: outputs, Kernels: kernels}
	merged.Sort()
	return []*chain.Transaction{{Body: merged}}
}

// PullBest returns a canonically-sorted, cut-through body of pooled
// transactions fitting weightLimit, greedily maximizing total fee by
// taking the highest fee-per-gram entries first (§4.6).
func (p *Pool) PullBest(weightLimit uint64) chain.AggregateBody {
	p.mu.Lock()
	candidates := make([]*entry, 0, len(p.byExcess))
	for _, e := range p.byExcess {
		candidates = append(candidates, e)
	}
	p.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		return feePerGramLess(candidates[j], candidates[i]) // descending
	})

	builder := chain.NewTransactionBuilder()
	var usedWeight uint64
	for _, e := range candidates {
		if usedWeight+e.weight > weightLimit {
			continue
		}
		builder.AddTransaction(e.tx)
		usedWeight += e.weight
	}
	built := builder.Build()
	return built.Body
}

func addedAtNow() time.Time { return time.Now() }

// AgeOut evicts every entry older than maxAge relative to now, the
// size/age bound §4.6 requires alongside the weight cap. Callers (the
// service package's maintenance loop) supply now explicitly so this stays
// deterministic and testable.
func (p *Pool) AgeOut(now time.Time, maxAge time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var stale []primitives.Commitment
	for excess, e := range p.byExcess {
		if now.Sub(e.addedAt) > maxAge {
			stale = append(stale, excess)
		}
	}
	for _, excess := range stale {
		p.removeLocked(excess)
	}
}
