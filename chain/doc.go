// Package chain defines the Mimblewimble transaction and block model:
// Output, Input, Kernel, AggregateBody, Transaction, BlockHeader and Block,
// their canonical byte encodings and hashes, and a TransactionBuilder that
// aggregates bodies via offset summation and cut-through (§4.3).
//
// The type shapes are grounded on the Grin/Mimblewimble reference in the
// retrieval pack (other_examples' gringo src/consensus/block.go: Output,
// Input, TxKernel, BlockHeader, sortable lists), the field lists themselves
// come from this system's own data model (§3); the canonical little-endian
// codec and tagged-error style come from the teacher (consensus/tx.go,
// consensus/wire_write.go).
package chain
