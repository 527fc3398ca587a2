package p2p

import (
	"sync"
	"time"

	"github.com/tari-project/basenode/primitives"
)

// outboundQueue gives one peer's writer goroutine two priority lanes: sync
// replies (headers/blocks/tx a peer explicitly asked for) always drain
// first; gossip (announcements) is best-effort and the oldest entry is
// dropped when the lane is full rather than blocking the writer or ever
// stalling a priority frame (§4.8: "bounded outbound queues that drop
// lowest-priority (gossip) frames first, never sync replies").
type outboundQueue struct {
	peer     *Peer
	priority chan frame
	gossip   chan frame
	done     chan struct{}
}

type frame struct {
	command string
	payload []byte
}

const (
	priorityQueueDepth = 64
	gossipQueueDepth   = 256
)

func newOutboundQueue(peer *Peer) *outboundQueue {
	q := &outboundQueue{
		peer:     peer,
		priority: make(chan frame, priorityQueueDepth),
		gossip:   make(chan frame, gossipQueueDepth),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *outboundQueue) run() {
	for {
		select {
		case f := <-q.priority:
			_ = q.peer.Send(f.command, f.payload)
		case <-q.done:
			return
		default:
			select {
			case f := <-q.priority:
				_ = q.peer.Send(f.command, f.payload)
			case f := <-q.gossip:
				_ = q.peer.Send(f.command, f.payload)
			case <-q.done:
				return
			}
		}
	}
}

func (q *outboundQueue) sendPriority(command string, payload []byte) {
	select {
	case q.priority <- frame{command: command, payload: payload}:
	case <-q.done:
	}
}

// sendGossip drops the oldest queued gossip frame when the lane is full,
// so one slow peer never backs up the broadcaster for everyone else.
func (q *outboundQueue) sendGossip(command string, payload []byte) {
	for {
		select {
		case q.gossip <- frame{command: command, payload: payload}:
			return
		default:
		}
		select {
		case <-q.gossip:
		default:
			return
		}
	}
}

func (q *outboundQueue) close() {
	close(q.done)
}

// seenCache is a time-decaying set used for gossip loop-prevention: once
// we've relayed an announcement we don't relay it again while its entry is
// younger than ttl. An expired entry is deleted only when hasAt looks it
// up; entries that are never looked up again stay in the map.
type seenCache[K comparable] struct {
	mu  sync.Mutex
	ttl time.Duration
	at  map[K]time.Time
}

func newSeenCache[K comparable](ttl time.Duration) *seenCache[K] {
	return &seenCache[K]{ttl: ttl, at: make(map[K]time.Time)}
}

func (c *seenCache[K]) markAt(now time.Time, k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at[k] = now
}

func (c *seenCache[K]) hasAt(now time.Time, k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.at[k]
	if !ok {
		return false
	}
	if now.Sub(t) > c.ttl {
		delete(c.at, k)
		return false
	}
	return true
}

const seenCacheTTL = 30 * time.Minute

// Broadcaster fans new blocks and transactions out to every connected peer
// except the one they arrived from, the way arejula27-p2pool-go's
// internal/p2p gossip loop does, generalized to this protocol's message
// set.
type Broadcaster struct {
	mu    sync.Mutex
	peers map[*Peer]*outboundQueue

	seenBlocks *seenCache[primitives.Hash]
	seenTxs    *seenCache[primitives.Commitment]
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		peers:      make(map[*Peer]*outboundQueue),
		seenBlocks: newSeenCache[primitives.Hash](seenCacheTTL),
		seenTxs:    newSeenCache[primitives.Commitment](seenCacheTTL),
	}
}

func (b *Broadcaster) Register(peer *Peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.peers[peer]; exists {
		return
	}
	b.peers[peer] = newOutboundQueue(peer)
}

func (b *Broadcaster) Unregister(peer *Peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.peers[peer]; ok {
		q.close()
		delete(b.peers, peer)
	}
}

func (b *Broadcaster) MarkSeenBlock(hash primitives.Hash)        { b.seenBlocks.markAt(time.Now(), hash) }
func (b *Broadcaster) SeenBlock(hash primitives.Hash) bool       { return b.seenBlocks.hasAt(time.Now(), hash) }
func (b *Broadcaster) MarkSeenTx(excess primitives.Commitment)   { b.seenTxs.markAt(time.Now(), excess) }
func (b *Broadcaster) SeenTx(excess primitives.Commitment) bool  { return b.seenTxs.hasAt(time.Now(), excess) }

// BroadcastNewBlockAnnounce gossips ann to every peer other than except
// (the peer it was learned from, if any), recording it as seen first so a
// concurrent announcement of the same block from another peer is not
// relayed twice.
func (b *Broadcaster) BroadcastNewBlockAnnounce(ann NewBlockAnnouncePayload, except *Peer) error {
	hash := ann.Header.Hash()
	if b.SeenBlock(hash) {
		return nil
	}
	b.MarkSeenBlock(hash)

	payload, err := EncodeNewBlockAnnouncePayload(ann)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for peer, q := range b.peers {
		if peer == except {
			continue
		}
		q.sendGossip(CmdNewBlockAnnounce, payload)
	}
	return nil
}

// BroadcastNewTx gossips a NewTxAnnounce for excess to every peer other
// than except.
func (b *Broadcaster) BroadcastNewTx(excess primitives.Commitment, except *Peer) {
	if b.SeenTx(excess) {
		return
	}
	b.MarkSeenTx(excess)

	payload := EncodeNewTxAnnouncePayload(NewTxAnnouncePayload{Excess: excess})

	b.mu.Lock()
	defer b.mu.Unlock()
	for peer, q := range b.peers {
		if peer == except {
			continue
		}
		q.sendGossip(CmdNewTxAnnounce, payload)
	}
}

// SendSync enqueues a direct sync-protocol reply (headers/blocks/tx) to
// one peer on the priority lane, never dropped under backpressure.
func (b *Broadcaster) SendSync(peer *Peer, command string, payload []byte) {
	b.mu.Lock()
	q, ok := b.peers[peer]
	b.mu.Unlock()
	if !ok {
		_ = peer.Send(command, payload)
		return
	}
	q.sendPriority(command, payload)
}
