package pow

import (
	"math/big"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// Engine tracks the two per-algorithm accumulated-difficulty totals and
// retarget windows described in §4.7, and implements the validator
// package's DifficultyChecker interface (AchievedMeetsTarget) by
// structural typing — pow intentionally does not import validator, to
// keep the dependency direction leaf-ward.
//
// The Chain State Store owns the one Engine instance for the applied best
// chain and mutates it only from its single-writer apply/rewind path
// (§5); everything here is plain data manipulation with no locking of its
// own.
type Engine struct {
	params primitives.ChainParams

	windows map[chain.PowAlgo][]Sample
	accum   map[chain.PowAlgo]*big.Int
}

// NewEngine returns an Engine with empty windows and zeroed accumulators,
// the state of a chain before any block has been applied.
func NewEngine(params primitives.ChainParams) *Engine {
	return &Engine{
		params: params,
		windows: map[chain.PowAlgo][]Sample{
			chain.PowAlgoRandomX: nil,
			chain.PowAlgoSHA3x:   nil,
		},
		accum: map[chain.PowAlgo]*big.Int{
			chain.PowAlgoRandomX: big.NewInt(0),
			chain.PowAlgoSHA3x:   big.NewInt(0),
		},
	}
}

// Restore rebuilds an Engine from persisted accumulator totals and each
// algorithm's retarget window, the shape the Chain State Store uses after
// journal replay / process restart (§7: "the next start performs journal
// replay to restore the last committed state"). recentSamples must carry
// the actual target each header in the window was mined against (the
// Chain State Store persists this alongside each applied header, since
// RecordApplied is the only place that target is ever computed); Restore
// does not attempt to recompute it, so a freshly restarted node's LWMA
// output matches a continuously-running node's exactly. Samples within
// each window must be supplied oldest-first.
func Restore(params primitives.ChainParams, accumulated map[chain.PowAlgo]*big.Int, recentSamples map[chain.PowAlgo][]Sample) *Engine {
	e := NewEngine(params)
	for algo, v := range accumulated {
		if v != nil {
			e.accum[algo] = new(big.Int).Set(v)
		}
	}
	for algo, samples := range recentSamples {
		window := append([]Sample(nil), samples...)
		if params.DifficultyWindow > 0 && len(window) > params.DifficultyWindow {
			window = window[len(window)-params.DifficultyWindow:]
		}
		e.windows[algo] = window
	}
	return e
}

func (e *Engine) minMax(algo chain.PowAlgo) (min, max *big.Int) {
	switch algo {
	case chain.PowAlgoRandomX:
		return e.params.MinTargetDifficultyRandomX, e.params.MaxTargetDifficulty
	default:
		return e.params.MinTargetDifficultySHA3x, e.params.MaxTargetDifficulty
	}
}

// TargetFor computes the current retarget window's next target for algo.
func (e *Engine) TargetFor(algo chain.PowAlgo) *big.Int {
	min, max := e.minMax(algo)
	return TargetDifficulty(e.windows[algo], e.params.TargetBlockInterval, min, max)
}

// AchievedMeetsTarget implements validator.DifficultyChecker: it reports
// whether header's achieved difficulty (computed against the target
// implied by the engine's current window for its algorithm) is at least
// the retarget target. The parent argument is accepted to satisfy the
// DifficultyChecker shape; the engine's windows already encode "as of
// parent" state because RecordApplied is only ever called after a block
// is accepted.
func (e *Engine) AchievedMeetsTarget(_ *chain.BlockHeader, header *chain.BlockHeader) bool {
	target := e.TargetFor(header.Pow.Algo)
	achieved := AchievedDifficulty(header)
	targetDifficulty := new(big.Int).Div(maxU256, target)
	return achieved.Cmp(targetDifficulty) >= 0
}

// RecordApplied folds an applied header into its algorithm's window and
// accumulator, and returns the target the header was actually mined
// against (the caller persists this so Restore can reconstruct the exact
// same window after a process restart — see Restore). Must be called
// exactly once per applied header, in height order.
func (e *Engine) RecordApplied(header *chain.BlockHeader) *big.Int {
	algo := header.Pow.Algo
	target := e.TargetFor(algo)
	e.windows[algo] = appendSampleTarget(e.windows[algo], header.Timestamp, target, e.params.DifficultyWindow)
	e.accum[algo].Add(e.accum[algo], AchievedDifficulty(header))
	return target
}

func appendSampleTarget(window []Sample, timestamp int64, target *big.Int, maxLen int) []Sample {
	window = append(window, Sample{Timestamp: timestamp, Target: target})
	if maxLen > 0 && len(window) > maxLen {
		window = window[len(window)-maxLen:]
	}
	return window
}

// RecordRewound undoes the most recent RecordApplied call for header's
// algorithm: it must be called in exact reverse order of RecordApplied
// (the Chain State Store's rewind_to replays bodies in reverse, §4.5).
func (e *Engine) RecordRewound(header *chain.BlockHeader) {
	algo := header.Pow.Algo
	w := e.windows[algo]
	if len(w) > 0 {
		e.windows[algo] = w[:len(w)-1]
	}
	e.accum[algo].Sub(e.accum[algo], AchievedDifficulty(header))
	if e.accum[algo].Sign() < 0 {
		e.accum[algo].SetInt64(0)
	}
}

// Accumulated returns a copy of algo's accumulated difficulty total.
func (e *Engine) Accumulated(algo chain.PowAlgo) *big.Int {
	return new(big.Int).Set(e.accum[algo])
}

// Total returns the geometric (product) combination of both algorithms'
// accumulated difficulties (§4.7, §9).
func (e *Engine) Total() *big.Int {
	return TotalAccumulatedDifficulty(e.accum[chain.PowAlgoRandomX], e.accum[chain.PowAlgoSHA3x])
}

// Clone deep-copies the engine, used to give a read-only chain-state
// snapshot its own accumulator state that the live writer can keep
// mutating underneath it (§5: "concurrent read snapshots are consistent
// ... with respect to the pre-apply state").
func (e *Engine) Clone() *Engine {
	out := NewEngine(e.params)
	for algo, v := range e.accum {
		out.accum[algo] = new(big.Int).Set(v)
	}
	for algo, w := range e.windows {
		out.windows[algo] = append([]Sample(nil), w...)
	}
	return out
}
