// Package service wires the Chain State Store, Mempool, and Sync &
// Propagation layer into one supervised node runtime (§4.9): ordered
// startup (store, then mempool, then p2p), a shared cancellation signal
// for graceful shutdown, and a read-only query façade RPC-style callers
// use instead of touching store/mempool directly.
//
// Grounded on the teacher's cmd/rubin-node/main.go ordered-subsystem-
// startup shape and node/p2p_runtime.go's supervisor loop, crossed with
// arejula27-p2pool-go's internal/node event-channel orchestration and its
// internal/metrics Prometheus registration pattern.
package service
