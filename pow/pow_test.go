package pow

import (
	"math/big"
	"testing"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

func header(height uint64, timestamp int64, algo chain.PowAlgo, nonce uint64) *chain.BlockHeader {
	return &chain.BlockHeader{
		Height:    height,
		Timestamp: timestamp,
		Nonce:     nonce,
		Pow:       chain.ProofOfWork{Algo: algo},
	}
}

func TestAchievedDifficultyVariesWithHeader(t *testing.T) {
	a := AchievedDifficulty(header(1, 1000, chain.PowAlgoSHA3x, 1))
	b := AchievedDifficulty(header(1, 1000, chain.PowAlgoSHA3x, 2))
	if a.Cmp(b) == 0 {
		t.Fatalf("expected different nonces to produce different achieved difficulty")
	}
	if a.Sign() <= 0 || b.Sign() <= 0 {
		t.Fatalf("achieved difficulty must be positive")
	}
}

func TestAchievedDifficultyDiffersAcrossAlgorithms(t *testing.T) {
	randomX := AchievedDifficulty(header(1, 1000, chain.PowAlgoRandomX, 1))
	sha3x := AchievedDifficulty(header(1, 1000, chain.PowAlgoSHA3x, 1))
	if randomX.Cmp(sha3x) == 0 {
		t.Fatalf("expected different PoW algorithms to hash differently for the same nonce")
	}
}

func TestTargetDifficultyEmptyWindowReturnsFloor(t *testing.T) {
	min := big.NewInt(16)
	max := big.NewInt(1 << 40)
	got := TargetDifficulty(nil, 120, min, max)
	if got.Cmp(min) != 0 {
		t.Fatalf("expected empty window to return minTarget, got %s", got)
	}
}

func TestTargetDifficultyClampsToBounds(t *testing.T) {
	min := big.NewInt(16)
	max := big.NewInt(1000)
	samples := []Sample{
		{Timestamp: 0, Target: big.NewInt(500)},
		{Timestamp: 1, Target: big.NewInt(500)}, // solve time of 1s, far faster than target
	}
	got := TargetDifficulty(samples, 120, min, max)
	if got.Cmp(min) < 0 || got.Cmp(max) > 0 {
		t.Fatalf("expected target within [%s, %s], got %s", min, max, got)
	}
}

func TestTargetDifficultySlowBlocksLowerTarget(t *testing.T) {
	min := big.NewInt(1)
	max := new(big.Int).Lsh(big.NewInt(1), 200)
	fast := []Sample{
		{Timestamp: 0, Target: big.NewInt(1000)},
		{Timestamp: 10, Target: big.NewInt(1000)},
	}
	slow := []Sample{
		{Timestamp: 0, Target: big.NewInt(1000)},
		{Timestamp: 10000, Target: big.NewInt(1000)},
	}
	fastTarget := TargetDifficulty(fast, 120, min, max)
	slowTarget := TargetDifficulty(slow, 120, min, max)
	if slowTarget.Cmp(fastTarget) <= 0 {
		t.Fatalf("slower solve times should raise (easier) target: fast=%s slow=%s", fastTarget, slowTarget)
	}
}

func TestTotalAccumulatedDifficultyIsProduct(t *testing.T) {
	got := TotalAccumulatedDifficulty(big.NewInt(6), big.NewInt(7))
	if got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected product 42, got %s", got)
	}
}

func TestEngineRecordAppliedThenRewoundIsIdentity(t *testing.T) {
	params := primitives.Devnet()
	e := NewEngine(params)

	before := e.Accumulated(chain.PowAlgoSHA3x)
	h := header(1, 1000, chain.PowAlgoSHA3x, 42)
	e.RecordApplied(h)
	after := e.Accumulated(chain.PowAlgoSHA3x)
	if after.Cmp(before) <= 0 {
		t.Fatalf("expected accumulator to grow after RecordApplied")
	}

	e.RecordRewound(h)
	restored := e.Accumulated(chain.PowAlgoSHA3x)
	if restored.Cmp(before) != 0 {
		t.Fatalf("expected RecordRewound to restore accumulator to %s, got %s", before, restored)
	}
}

func TestEngineTotalCombinesBothAlgorithms(t *testing.T) {
	params := primitives.Devnet()
	e := NewEngine(params)
	e.RecordApplied(header(1, 1000, chain.PowAlgoRandomX, 1))
	e.RecordApplied(header(2, 1010, chain.PowAlgoSHA3x, 1))

	total := e.Total()
	expected := TotalAccumulatedDifficulty(e.Accumulated(chain.PowAlgoRandomX), e.Accumulated(chain.PowAlgoSHA3x))
	if total.Cmp(expected) != 0 {
		t.Fatalf("expected Total to equal product of per-algo accumulators")
	}
}

func TestEngineCloneIsIndependent(t *testing.T) {
	params := primitives.Devnet()
	e := NewEngine(params)
	e.RecordApplied(header(1, 1000, chain.PowAlgoSHA3x, 1))

	clone := e.Clone()
	e.RecordApplied(header(2, 1010, chain.PowAlgoSHA3x, 1))

	if clone.Accumulated(chain.PowAlgoSHA3x).Cmp(e.Accumulated(chain.PowAlgoSHA3x)) == 0 {
		t.Fatalf("expected clone to be unaffected by further mutation of the original")
	}
}

func TestEmissionRewardDecaysThenFloors(t *testing.T) {
	params := primitives.Devnet()
	e := NewEmission(params)

	if r := e.RewardAt(0); r != 0 {
		t.Fatalf("expected genesis height to have zero reward, got %d", r)
	}

	r1 := e.RewardAt(1)
	if r1 == 0 || r1 > params.EmissionInitialReward {
		t.Fatalf("expected height 1 reward in (0, initial], got %d", r1)
	}

	farFuture := e.RewardAt(10_000_000)
	if farFuture != params.EmissionTail {
		t.Fatalf("expected far-future reward to settle at tail %d, got %d", params.EmissionTail, farFuture)
	}
}

func TestEmissionRewardIsMonotonicallyNonIncreasing(t *testing.T) {
	params := primitives.Devnet()
	e := NewEmission(params)

	prev := e.RewardAt(1)
	for h := uint64(2); h < 2000; h += 137 {
		cur := e.RewardAt(h)
		if cur > prev {
			t.Fatalf("expected non-increasing reward, height %d reward %d > previous %d", h, cur, prev)
		}
		prev = cur
	}
}
