package p2p

import "time"

// Ban scoring policy (§4.8), carried over from the teacher's banscore.go
// near-verbatim: each protocol fault adds to a score that decays by
// BanScoreDecaysPerMinute, and the peer is banned once the score reaches
// BanThreshold. Faults are summed, not counted as a consecutive run. This
// bookkeeping is domain-agnostic and applies identically regardless of
// what chain the peer is relaying.
const (
	BanThreshold       = 100
	ThrottleThreshold  = 50
	ThrottleDelay      = 500 * time.Millisecond
	BanDurationDefault = 24 * time.Hour

	// BanScoreDecaysPerMinute lets an otherwise well-behaved peer recover
	// from a transient burst of faults instead of being banned forever.
	BanScoreDecaysPerMinute = 1
)

// BanScore is a small deterministic policy primitive; it is never
// consulted by consensus, only by the peer connection's own fault policy.
type BanScore struct {
	score       int
	lastUpdated time.Time
}

func (b *BanScore) Score(now time.Time) int {
	b.decayTo(now)
	return b.score
}

func (b *BanScore) Add(now time.Time, delta int) int {
	b.decayTo(now)
	b.score += delta
	if b.score < 0 {
		b.score = 0
	}
	return b.score
}

func (b *BanScore) ShouldBan(now time.Time) bool {
	return b.Score(now) >= BanThreshold
}

func (b *BanScore) ShouldThrottle(now time.Time) bool {
	return b.Score(now) >= ThrottleThreshold
}

func (b *BanScore) decayTo(now time.Time) {
	if b.lastUpdated.IsZero() {
		b.lastUpdated = now
		return
	}
	if now.Before(b.lastUpdated) {
		b.lastUpdated = now
		return
	}
	minutes := int(now.Sub(b.lastUpdated) / time.Minute)
	if minutes <= 0 {
		return
	}
	dec := minutes * BanScoreDecaysPerMinute
	b.score -= dec
	if b.score < 0 {
		b.score = 0
	}
	b.lastUpdated = now
}
