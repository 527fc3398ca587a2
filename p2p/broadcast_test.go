package p2p

import (
	"testing"
	"time"

	"github.com/tari-project/basenode/primitives"
)

func TestSeenCacheExpiresAfterTTL(t *testing.T) {
	c := newSeenCache[string](time.Minute)
	start := time.Unix(1_700_000_000, 0)

	c.markAt(start, "a")
	if !c.hasAt(start, "a") {
		t.Fatal("entry should be seen immediately after marking")
	}
	if c.hasAt(start, "b") {
		t.Fatal("unmarked entry should not be seen")
	}

	afterTTL := start.Add(2 * time.Minute)
	if c.hasAt(afterTTL, "a") {
		t.Fatal("entry should have expired after its TTL elapsed")
	}
}

func TestOutboundQueueSendGossipDropsOldestWhenFull(t *testing.T) {
	q := &outboundQueue{
		priority: make(chan frame, priorityQueueDepth),
		gossip:   make(chan frame, 2),
		done:     make(chan struct{}),
	}

	q.sendGossip("a", []byte("1"))
	q.sendGossip("b", []byte("2"))
	q.sendGossip("c", []byte("3")) // queue had room for 2; oldest ("a") must be dropped

	first := <-q.gossip
	second := <-q.gossip
	if first.command != "b" || second.command != "c" {
		t.Fatalf("expected oldest frame dropped, got %q then %q", first.command, second.command)
	}
}

func TestOutboundQueueSendPriorityEnqueuesFrame(t *testing.T) {
	q := &outboundQueue{
		priority: make(chan frame, 1),
		gossip:   make(chan frame, 1),
		done:     make(chan struct{}),
	}
	q.sendPriority("x", nil)

	select {
	case f := <-q.priority:
		if f.command != "x" {
			t.Fatalf("command = %q, want x", f.command)
		}
	default:
		t.Fatal("expected a queued priority frame")
	}
}

func TestBroadcasterDedupesSeenBlocksAndTxs(t *testing.T) {
	b := NewBroadcaster()
	hash := primitives.HashRaw([]byte("block"))

	if b.SeenBlock(hash) {
		t.Fatal("fresh broadcaster should not have seen anything yet")
	}
	b.MarkSeenBlock(hash)
	if !b.SeenBlock(hash) {
		t.Fatal("hash should be marked seen after MarkSeenBlock")
	}

	var excess primitives.Commitment
	if b.SeenTx(excess) {
		t.Fatal("fresh broadcaster should not have seen any tx yet")
	}
	b.MarkSeenTx(excess)
	if !b.SeenTx(excess) {
		t.Fatal("excess should be marked seen after MarkSeenTx")
	}
}

func TestBroadcasterRegisterUnregisterIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	peer := &Peer{}

	b.Register(peer)
	b.Register(peer) // must not start a second queue or panic
	if len(b.peers) != 1 {
		t.Fatalf("peers registered = %d, want 1", len(b.peers))
	}

	b.Unregister(peer)
	b.Unregister(peer) // must not double-close
	if len(b.peers) != 0 {
		t.Fatalf("peers registered after unregister = %d, want 0", len(b.peers))
	}
}
