package p2p

import (
	"testing"
	"time"
)

func TestBanScoreAddAccumulates(t *testing.T) {
	var b BanScore
	now := time.Unix(1_700_000_000, 0)

	if got := b.Add(now, 30); got != 30 {
		t.Fatalf("score after first add = %d, want 30", got)
	}
	if got := b.Add(now, 40); got != 70 {
		t.Fatalf("score after second add = %d, want 70", got)
	}
}

func TestBanScoreThrottleAndBanThresholds(t *testing.T) {
	var b BanScore
	now := time.Unix(1_700_000_000, 0)

	b.Add(now, ThrottleThreshold)
	if !b.ShouldThrottle(now) {
		t.Fatal("score at ThrottleThreshold should throttle")
	}
	if b.ShouldBan(now) {
		t.Fatal("score at ThrottleThreshold should not ban")
	}

	b.Add(now, BanThreshold-ThrottleThreshold)
	if !b.ShouldBan(now) {
		t.Fatal("score at BanThreshold should ban")
	}
}

func TestBanScoreDecaysOverTime(t *testing.T) {
	var b BanScore
	now := time.Unix(1_700_000_000, 0)
	b.Add(now, 10)

	later := now.Add(5 * time.Minute)
	if got := b.Score(later); got != 5 {
		t.Fatalf("score after 5 minutes of decay = %d, want 5", got)
	}
}

func TestBanScoreDecayNeverGoesNegative(t *testing.T) {
	var b BanScore
	now := time.Unix(1_700_000_000, 0)
	b.Add(now, 3)

	muchLater := now.Add(time.Hour)
	if got := b.Score(muchLater); got != 0 {
		t.Fatalf("score after an hour of decay = %d, want 0", got)
	}
}

func TestBanScoreClockRewindIsIgnoredSafely(t *testing.T) {
	var b BanScore
	now := time.Unix(1_700_000_000, 0)
	b.Add(now, 20)

	earlier := now.Add(-time.Minute)
	if got := b.Score(earlier); got != 20 {
		t.Fatalf("score after a clock rewind = %d, want unchanged 20", got)
	}
}
