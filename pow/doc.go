// Package pow implements the dual proof-of-work model from §4.7: two
// independent per-algorithm difficulty accumulators (RandomX, SHA3x), a
// Linear Weighted Moving Average target retarget windowed per algorithm,
// and the achieved-difficulty check the validator package calls through
// its DifficultyChecker interface.
//
// The retarget shape is grounded on the teacher's consensus/pow.go
// (RetargetV1's big.Int clamp-to-4x plumbing) crossed with
// arejula27-p2pool-go's internal/sharechain/difficulty.go NextTarget
// (windowed average + 4x clamp), generalized from a single window to one
// window per PoW algorithm as §4.7 requires. Accumulated-difficulty
// arithmetic uses math/big throughout per §9's design note that these
// values "can exceed 128 bits over long chains".
package pow
