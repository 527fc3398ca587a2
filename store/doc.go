// Package store implements the Chain State Store from §4.5: persistent,
// crash-safe key-value storage for headers, block bodies, kernels, the
// unspent output set, the kernel/output Merkle Mountain Ranges, and
// per-algorithm accumulated difficulty, plus the reorg/undo machinery that
// keeps all of it atomically in sync with the applied best chain.
//
// Grounded on the teacher's node/store package: bbolt as the backend
// (node/store/db.go's bucket-per-concern layout and db.Update transaction
// pattern), the full-load-mutate-flush shape of LoadUTXOSet used by
// apply_stage4_5.go's ApplyBlockIfBestTip (here applied to the MMR node
// stores instead of a UTXO map), and the disconnect/connect reorg
// algorithm in node/store/reorg.go's ReorgToTip/findForkPoint/
// pathFromAncestor. Unlike the teacher, this module has no separate
// undo-log bucket: spec.md §4.5 lists only nine tables with no undo table,
// so rewind_to instead replays bodies in reverse and restores each spent
// output's pre-spend state from the permanent "outputs" table, which never
// deletes an output's record on spend (only the unspent_outputs_by_commitment
// index entry is removed).
package store
