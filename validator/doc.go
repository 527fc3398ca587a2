// Package validator implements consensus checks for transactions and
// blocks (§4.4): stateless per-transaction validity, the aggregate balance
// equation, a bounded script-opcode interpreter, and stateful block-level
// checks run against a parent chain snapshot. CheckBlock's merkle-root
// check appends the block into the MMR stores of its ParentSnapshot; the
// other checks leave their inputs unchanged.
//
// The tagged-error-kind pattern follows the teacher's consensus/errors.go
// (ErrorCode/TxError/txerr); the shape of ApplyBlock/ApplyTx-style checks
// (coinbase rule, duplicate-spend detection, header linkage) follows
// consensus/validate.go, re-targeted from Bitcoin-covenant semantics to
// Mimblewimble balance/kernel semantics.
package validator
