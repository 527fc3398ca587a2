package pow

import "math/big"

// Sample is one data point in an algorithm's retarget window: the
// timestamp of the header that was mined, and the target difficulty it
// was mined against.
type Sample struct {
	Timestamp int64
	Target    *big.Int
}

// clamp bounds v to [min, max].
func clamp(v, min, max *big.Int) *big.Int {
	if v.Cmp(min) < 0 {
		return new(big.Int).Set(min)
	}
	if v.Cmp(max) > 0 {
		return new(big.Int).Set(max)
	}
	return v
}

// TargetDifficulty computes the next target for one PoW algorithm's
// window via a Linear Weighted Moving Average: each of the window's
// solve-times is weighted linearly by recency (the newest sample carries
// the most weight), producing a recency-weighted average solve time;
// the most recent sample's target is then scaled by the ratio of that
// average to the network's desired block interval and clamped to
// [minTarget, maxTarget] (§4.7).
//
// samples must be ordered oldest-first. A window shorter than two samples
// (chain start) has no solve-time to measure, so the most recent target —
// or minTarget if there is no sample at all — is returned unscaled.
func TargetDifficulty(samples []Sample, targetInterval int64, minTarget, maxTarget *big.Int) *big.Int {
	if len(samples) == 0 {
		return new(big.Int).Set(minTarget)
	}
	if len(samples) < 2 {
		return clamp(new(big.Int).Set(samples[len(samples)-1].Target), minTarget, maxTarget)
	}
	if targetInterval <= 0 {
		targetInterval = 1
	}

	maxSolve := targetInterval * 6
	weightedSolve := big.NewInt(0)
	weightSum := big.NewInt(0)
	for i := 1; i < len(samples); i++ {
		weight := int64(i)
		solve := samples[i].Timestamp - samples[i-1].Timestamp
		if solve < 1 {
			solve = 1
		}
		if solve > maxSolve {
			solve = maxSolve
		}
		weightedSolve.Add(weightedSolve, big.NewInt(solve*weight))
		weightSum.Add(weightSum, big.NewInt(weight))
	}
	if weightSum.Sign() == 0 {
		return clamp(new(big.Int).Set(samples[len(samples)-1].Target), minTarget, maxTarget)
	}

	baseTarget := samples[len(samples)-1].Target
	num := new(big.Int).Mul(baseTarget, weightedSolve)
	den := new(big.Int).Mul(weightSum, big.NewInt(targetInterval))
	next := new(big.Int).Div(num, den)
	return clamp(next, minTarget, maxTarget)
}

// TotalAccumulatedDifficulty combines the two algorithms' accumulated
// difficulties geometrically — their product — so that dominance by one
// algorithm cannot by itself stall accumulated-difficulty growth (§4.7,
// §9: "geometric combination prevents one algorithm from monopolising
// chain growth").
func TotalAccumulatedDifficulty(randomX, sha3x *big.Int) *big.Int {
	return new(big.Int).Mul(randomX, sha3x)
}
