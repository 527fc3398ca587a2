// Package mmr implements the append-only Merkle Mountain Range used for the
// kernel and output commitment logs (§2, §4.2), plus the roaring-bitmap
// witness that tracks which leaves of the output MMR are still unspent.
//
// The indexing arithmetic (IndexHeight, Peaks, sibling/parent offsets) is
// ported from the zero-based-index MMR construction used throughout the
// retrieval pack's forestrie-go-merklelog/mmr package, adapted here to a
// narrower NodeStore interface and to this module's Blake2b-256 domain
// hashing instead of a generic hash.Hash.
package mmr
