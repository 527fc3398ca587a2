// Package p2p implements the peer wire protocol, header-first sync state
// machine, and gossip propagation described in §4.8: a duplex
// length-prefixed message stream per peer, stateless header validation
// ahead of body fetch, and fork/reorg handling driven off each peer's
// claimed total accumulated difficulty.
//
// The shape is grounded on the teacher's node/p2p package: envelope.go's
// fixed 24-byte transport prefix (magic, command, length, checksum) and
// peer.go's Peer.Run read-dispatch loop with per-message ban-score
// penalties are kept close to verbatim where the framing is
// domain-agnostic; header validation, the message set, and the sync state
// machine are rebuilt for Mimblewimble headers and the hybrid-PoW
// accumulated-difficulty comparison this chain uses instead of a single
// target-difficulty chain.
//
// Unlike the teacher's Bitcoin-shaped inv/getdata relay, the message set
// here is the one spec.md §4.8 names directly: Ping/Pong, GetHeaders/
// Headers, GetBlocks/Block, NewBlockAnnounce, GetMempoolTx/Tx, and
// NewTxAnnounce — there is no generic inventory-vector indirection layer.
package p2p
