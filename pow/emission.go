package pow

import (
	"math/bits"

	"github.com/tari-project/basenode/primitives"
)

// Emission computes the coinbase reward at each height from a geometric
// decay curve with a flat tail, satisfying validator.EmissionSchedule.
//
// Grounded on the teacher's consensus/subsidy.go, which halves the reward
// every interval and clamps to a minimum; this module generalizes the
// halving (decay factor exactly 1/2) to an arbitrary per-block decay rate
// expressed as a fixed-point fraction with denominator 1<<32, per §4.4 and
// ChainParams.EmissionDecayRate's doc comment, while keeping the same
// "decay then floor" shape.
type Emission struct {
	params primitives.ChainParams
}

// NewEmission returns an Emission schedule for params.
func NewEmission(params primitives.ChainParams) Emission {
	return Emission{params: params}
}

const decayDenominatorShift = 32

// RewardAt returns the coinbase reward for the block at height, applying
// the decay rate once per height starting from height 1 (height 0, the
// genesis block, has no coinbase reward under this schedule) and never
// returning less than EmissionTail once decay would otherwise cross below
// it.
func (e Emission) RewardAt(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	reward := e.params.EmissionInitialReward
	decay := e.params.EmissionDecayRate
	tail := e.params.EmissionTail

	for i := uint64(0); i < height; i++ {
		if reward <= tail {
			return tail
		}
		reward = mulShift(reward, decay, decayDenominatorShift)
		if reward < tail {
			return tail
		}
	}
	return reward
}

// mulShift computes floor(a * b / 2^shift) using 128-bit intermediate
// arithmetic via bits.Mul64 to avoid overflowing a plain uint64 multiply
// for the coin supply's largest values. shift must be < 64.
func mulShift(a, b uint64, shift uint) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi<<(64-shift) | lo>>shift
}
