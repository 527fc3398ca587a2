package primitives

import "testing"

func TestNetworkParamsAreDistinct(t *testing.T) {
	main := Mainnet()
	test := Testnet()
	dev := Devnet()

	if main.NetworkName == test.NetworkName || test.NetworkName == dev.NetworkName {
		t.Fatal("network parameter sets must carry distinct names")
	}
	if main.CoinbaseLockHeight <= test.CoinbaseLockHeight {
		t.Fatal("mainnet coinbase maturity should exceed testnet's")
	}
	if test.CoinbaseLockHeight <= dev.CoinbaseLockHeight {
		t.Fatal("testnet coinbase maturity should exceed devnet's")
	}
}

func TestMainnetDifficultyFloorsAreSane(t *testing.T) {
	p := Mainnet()
	if p.MinTargetDifficultyRandomX.Sign() <= 0 || p.MinTargetDifficultySHA3x.Sign() <= 0 {
		t.Fatal("difficulty floors must be positive")
	}
	if p.MaxTargetDifficulty.Cmp(p.MinTargetDifficultyRandomX) <= 0 {
		t.Fatal("max target difficulty should exceed the per-algorithm floor")
	}
}
