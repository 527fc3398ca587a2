package store

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/pow"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/validator"

	bolt "go.etcd.io/bbolt"
)

// Tip is the event published after every committed apply_block/rewind_to
// (§4.5: "publish a Tip(height,hash) event"; §5: event ordering guarantee).
type Tip struct {
	Height uint64
	Hash   primitives.Hash
}

// Store is the Chain State Store (§4.5): a bbolt-backed key-value database
// plus the single-writer goroutine (§5) that serializes every apply_block
// and rewind_to call through one request channel, grounded on the
// teacher's node/store.DB wrapping one *bolt.DB with one chainDir, extended
// here with the writer-task pattern p2pool-go's internal/node event-channel
// orchestration uses.
type Store struct {
	db     *bolt.DB
	params primitives.ChainParams

	mu     sync.Mutex // protects engine; writer goroutine is the only other mutator
	engine *pow.Engine

	writeReqCh chan writeRequest
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	subMu sync.Mutex
	subs  []chan Tip
}

type writeKind int

const (
	writeApply writeKind = iota
	writeRewind
	writeOrphan
)

type writeRequest struct {
	kind      writeKind
	block     *chain.Block
	height    uint64
	resultCh  chan error
	decisionC chan ApplyDecision
}

// ApplyDecision mirrors the teacher's ApplyDecision shape (apply_stage4_5.go),
// narrowed to the two outcomes apply_block needs: direct connect or a
// failure the caller must interpret.
type ApplyDecision string

const (
	ApplyAppliedAsTip ApplyDecision = "APPLIED_AS_NEW_TIP"
	ApplyNotChained   ApplyDecision = "NOT_CHAINED_TO_TIP"
)

// Open creates or opens the chain state database at path. genesis is applied
// immediately if the store is empty.
func Open(path string, params primitives.ChainParams, genesis *chain.Block) (*Store, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:         bdb,
		params:     params,
		writeReqCh: make(chan writeRequest),
		ctx:        ctx,
		cancel:     cancel,
	}

	engine, err := s.restoreEngine()
	if err != nil {
		_ = bdb.Close()
		cancel()
		return nil, err
	}
	s.engine = engine

	s.wg.Add(1)
	go s.runWriter()

	empty, err := s.isEmpty()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if empty && genesis != nil {
		if _, err := s.ApplyGenesis(genesis); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close stops the writer goroutine and closes the database.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) isEmpty() (bool, error) {
	var empty bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccumulated).Get(accumulatedTipKey)
		empty = v == nil
		return nil
	})
	return empty, err
}

// Tip returns the current best block's height and hash.
func (s *Store) Tip() (Tip, error) {
	var t Tip
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccumulated).Get(accumulatedTipKey)
		if v == nil {
			return fmt.Errorf("store: chain not initialized")
		}
		rec, err := decodeTipRecord(v)
		if err != nil {
			return err
		}
		t = Tip{Height: rec.Height, Hash: rec.Hash}
		return nil
	})
	return t, err
}

// TotalAccumulatedDifficulty returns the current tip's combined PoW total,
// the figure peers exchange during the version handshake to decide who
// needs to sync from whom (§4.8/§9).
func (s *Store) TotalAccumulatedDifficulty() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Total()
}

// HeaderAt returns the header stored at height, if any.
func (s *Store) HeaderAt(height uint64) (chain.BlockHeader, bool) {
	var header chain.BlockHeader
	var ok bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket(bucketHeadersByHeight)
		hh := tx.Bucket(bucketHeadersByHash)
		hashBytes := hb.Get(heightKey(height))
		if hashBytes == nil {
			return nil
		}
		headerBytes := hh.Get(hashBytes)
		if headerBytes == nil {
			return nil
		}
		h, err := chain.DecodeBlockHeader(headerBytes)
		if err != nil {
			return nil
		}
		header = h
		ok = true
		return nil
	})
	return header, ok
}

// Subscribe returns a channel that receives every future Tip event. The
// channel has a small buffer; a slow subscriber misses events rather than
// stalling the writer (§5's ordering guarantee binds delivery order, not
// delivery-to-every-subscriber).
func (s *Store) Subscribe() <-chan Tip {
	ch := make(chan Tip, 8)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) publishTip(t Tip) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (s *Store) runWriter() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case req := <-s.writeReqCh:
			switch req.kind {
			case writeApply:
				decision, err := s.applyBlockLocked(req.block)
				if req.decisionC != nil {
					req.decisionC <- decision
				}
				req.resultCh <- err
			case writeRewind:
				err := s.rewindToLocked(req.height)
				if err == nil {
					if t, tErr := s.Tip(); tErr == nil {
						s.publishTip(t)
					}
				}
				req.resultCh <- err
			case writeOrphan:
				req.resultCh <- s.addOrphanLocked(req.block)
			}
		}
	}
}

// ApplyBlock validates and applies block against the current tip. It fails
// with ApplyNotChained if block does not directly extend the tip; callers
// wanting a reorg should call Reorg instead (§4.5).
func (s *Store) ApplyBlock(block *chain.Block) (ApplyDecision, error) {
	resultCh := make(chan error, 1)
	decisionCh := make(chan ApplyDecision, 1)
	req := writeRequest{kind: writeApply, block: block, resultCh: resultCh, decisionC: decisionCh}
	select {
	case s.writeReqCh <- req:
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
	select {
	case err := <-resultCh:
		return <-decisionCh, err
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
}

// ApplyGenesis applies the chain's first block without requiring a prior
// tip to exist.
func (s *Store) ApplyGenesis(block *chain.Block) (ApplyDecision, error) {
	resultCh := make(chan error, 1)
	decisionCh := make(chan ApplyDecision, 1)
	req := writeRequest{kind: writeApply, block: block, resultCh: resultCh, decisionC: decisionCh}
	select {
	case s.writeReqCh <- req:
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
	err := <-resultCh
	return <-decisionCh, err
}

// RewindTo atomically rolls the applied chain back to height (§4.5).
func (s *Store) RewindTo(height uint64) error {
	resultCh := make(chan error, 1)
	req := writeRequest{kind: writeRewind, height: height, resultCh: resultCh}
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

// restoreEngine rebuilds the pow.Engine's accumulators and retarget windows
// from the accumulated_data bucket and the tail of the header chain, the
// shape §7 describes as "journal replay to restore the last committed
// state" (bbolt's own write-ahead log is the journal; this walks the
// committed result back into in-memory form).
func (s *Store) restoreEngine() (*pow.Engine, error) {
	var tipRec tipRecord
	var powRec powRecord
	haveTip := false
	var recent map[chain.PowAlgo][]pow.Sample

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccumulated).Get(accumulatedTipKey)
		if v == nil {
			return nil
		}
		haveTip = true
		var err error
		tipRec, err = decodeTipRecord(v)
		if err != nil {
			return err
		}
		if pv := tx.Bucket(bucketAccumulated).Get(accumulatedPowKey); pv != nil {
			powRec, err = decodePowRecord(pv)
			if err != nil {
				return err
			}
		}
		recent, err = s.loadRecentSamplesLocked(tx, tipRec.Height, s.params.DifficultyWindow)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !haveTip {
		return pow.NewEngine(s.params), nil
	}
	accumulated := map[chain.PowAlgo]*big.Int{
		chain.PowAlgoRandomX: powRec.RandomX,
		chain.PowAlgoSHA3x:   powRec.SHA3x,
	}
	return pow.Restore(s.params, accumulated, recent), nil
}

// loadRecentSamplesLocked walks headers_by_height backward from tipHeight,
// collecting up to windowSize (timestamp, target) retarget samples per PoW
// algorithm, oldest first. Each sample's target is read back from the
// per-header value applyBlockLocked persisted at apply time (see
// targetKey), not recomputed, so Restore reconstructs byte-identical
// windows across a restart.
func (s *Store) loadRecentSamplesLocked(tx *bolt.Tx, tipHeight uint64, windowSize int) (map[chain.PowAlgo][]pow.Sample, error) {
	out := map[chain.PowAlgo][]pow.Sample{
		chain.PowAlgoRandomX: nil,
		chain.PowAlgoSHA3x:   nil,
	}
	if windowSize <= 0 {
		return out, nil
	}
	hb := tx.Bucket(bucketHeadersByHeight)
	hh := tx.Bucket(bucketHeadersByHash)
	acc := tx.Bucket(bucketAccumulated)

	for h := tipHeight; ; h-- {
		full := len(out[chain.PowAlgoRandomX]) >= windowSize && len(out[chain.PowAlgoSHA3x]) >= windowSize
		if full {
			break
		}
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
			return nil, err
		}
		algo := header.Pow.Algo
		if len(out[algo]) < windowSize {
			targetBytes := acc.Get(targetKey(algo, h))
			if targetBytes == nil {
				return nil, fmt.Errorf("store: missing persisted retarget target at height %d", h)
			}
			target, err := decodeTargetRecord(targetBytes)
			if err != nil {
				return nil, err
			}
			out[algo] = append([]pow.Sample{{Timestamp: header.Timestamp, Target: target}}, out[algo]...)
		}
		if h == 0 {
			break
		}
	}
	return out, nil
}

// validatorAdapter implements validator.UnspentLookup against the current
// bbolt transaction.
type validatorAdapter struct {
	tx *bolt.Tx
}

func (a validatorAdapter) LookupUnspent(commitment primitives.Commitment) (uint64, bool) {
	v := a.tx.Bucket(bucketUnspent).Get(commitmentKey(commitment))
	if v == nil {
		return 0, false
	}
	e, err := decodeUnspentEntry(v)
	if err != nil {
		return 0, false
	}
	return e.Maturity, true
}

func (a validatorAdapter) resolveOutputLeafIndex(outputHash primitives.Hash) (uint64, bool) {
	v := a.tx.Bucket(bucketOutputs).Get(hashKey(outputHash))
	if v == nil {
		return 0, false
	}
	rec, err := decodeOutputRecord(v)
	if err != nil {
		return 0, false
	}
	return rec.LeafIndex, true
}

var _ validator.UnspentLookup = validatorAdapter{}
