package primitives

import "math/big"

// ChainParams is the network-specific configuration surface named in
// §6 ("Chain parameters"). Exactly one ChainParams value governs consensus
// for a given network; nodes on different networks never interoperate.
type ChainParams struct {
	NetworkName string

	GenesisBlockBytes []byte

	EmissionInitialReward uint64
	EmissionDecayRate     uint64 // fixed-point, denominator 1<<32
	EmissionTail          uint64

	CoinbaseLockHeight uint64

	MinTargetDifficultyRandomX *big.Int
	MinTargetDifficultySHA3x   *big.Int
	MaxTargetDifficulty        *big.Int

	DifficultyWindow      int // N=90 per §4.7
	MedianTimestampWindow int // N=11 per §3

	MaxBlockWeight uint64
	MaxScriptOps   int

	CoinbaseOutputFeatureBits uint32

	// TargetBlockInterval is the desired seconds-per-block used by the LWMA
	// retarget in pow.TargetDifficulty.
	TargetBlockInterval int64
}

// Mainnet returns the production network parameters.
func Mainnet() ChainParams {
	return ChainParams{
		NetworkName:                 "mainnet",
		EmissionInitialReward:       10_000_000_000, // 10 XTR in base units (1 XTR = 1e9)
		EmissionDecayRate:           4294963200,      // (1 - 1/2^20) in fixed point, denominator 1<<32
		EmissionTail:                100_000_000,
		CoinbaseLockHeight:          6,
		MinTargetDifficultyRandomX:  big.NewInt(1 << 16),
		MinTargetDifficultySHA3x:    big.NewInt(1 << 16),
		MaxTargetDifficulty:         new(big.Int).Lsh(big.NewInt(1), 240),
		DifficultyWindow:            90,
		MedianTimestampWindow:       11,
		MaxBlockWeight:              127 * 1024,
		MaxScriptOps:                1024,
		CoinbaseOutputFeatureBits:   1,
		TargetBlockInterval:         120,
	}
}

// Testnet returns relaxed parameters for integration testing: a lower
// coinbase maturity and smaller difficulty floor so local chains advance
// quickly.
func Testnet() ChainParams {
	p := Mainnet()
	p.NetworkName = "testnet"
	p.CoinbaseLockHeight = 2
	p.MinTargetDifficultyRandomX = big.NewInt(16)
	p.MinTargetDifficultySHA3x = big.NewInt(16)
	p.TargetBlockInterval = 10
	return p
}

// Devnet returns single-node development parameters: maturity of one and
// a trivial difficulty floor, matching the teacher's devstd/dev-only
// provider convention (crypto/devstd.go) of clearly-labelled, non-production
// defaults.
func Devnet() ChainParams {
	p := Testnet()
	p.NetworkName = "devnet"
	p.CoinbaseLockHeight = 1
	p.MinTargetDifficultyRandomX = big.NewInt(2)
	p.MinTargetDifficultySHA3x = big.NewInt(2)
	return p
}
