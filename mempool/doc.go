// Package mempool holds unconfirmed transactions keyed by kernel excess
// (§4.6). It has no teacher analogue: the reference miner (node/miner.go)
// takes raw transaction bytes as a plain argument with no pool in between,
// so admission, conflict resolution, eviction, and block assembly here are
// built from spec.md §4.6's prose plus two shapes the pack does carry —
// node/policy_core_ext.go's admission-policy-returns-reject-reason style,
// and a container/heap priority queue (the idiomatic Go shape for
// highest/lowest-priority-first structures; no pack repo ships a
// third-party priority queue library, so this is the one part of the
// package built on the standard library, justified in DESIGN.md).
package mempool
