package validator

import (
	"bytes"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// CheckTransaction runs every stateless check on tx: canonical ordering, no
// duplicate commitments, per-output range proofs, per-kernel excess
// signatures, per-input script execution, and the aggregate balance
// equation (§4.4), with no block reward in play. It never touches chain
// state — callers that need unspent-set or maturity checks layer
// CheckBlock's stateful checks on top.
func CheckTransaction(tx *chain.Transaction) error {
	if err := checkTransactionBody(tx); err != nil {
		return err
	}
	return checkBalance(tx, 0)
}

// checkTransactionBody runs every check except the aggregate balance
// equation, which needs a reward term supplied separately: CheckTransaction
// always balances against reward 0, while CheckBlock balances the whole
// block body against the coinbase reward for that height.
func checkTransactionBody(tx *chain.Transaction) error {
	body := &tx.Body

	if !body.IsSorted() {
		return fail(KindEncoding, "transaction body is not canonically sorted")
	}
	if err := checkNoDuplicates(body); err != nil {
		return err
	}
	for i := range body.Outputs {
		if !primitives.VerifyRangeProof(body.Outputs[i].Commitment, body.Outputs[i].RangeProof) {
			return fail(KindRangeProof, "output range proof failed to verify")
		}
	}
	for i := range body.Kernels {
		k := &body.Kernels[i]
		msg := k.SignatureMessage()
		ok, err := primitives.VerifyExcess(k.Excess, msg, k.ExcessSig)
		if err != nil {
			return fail(KindSignature, "kernel excess signature: "+err.Error())
		}
		if !ok {
			return fail(KindSignature, "kernel excess signature does not verify")
		}
	}
	for i := range body.Inputs {
		in := &body.Inputs[i]
		ok, err := executeInputScript(in, tx)
		if err != nil {
			return err
		}
		if !ok {
			return fail(KindScript, "input script did not leave a true value on the stack")
		}
	}
	return nil
}

// maxScriptOps bounds every script run (§6: "at most MAX_SCRIPT_OPS opcodes
// per script"). It is a fixed constant; ChainParams.MaxScriptOps is not
// consulted.
const maxScriptOps = 512

func executeInputScript(in *chain.Input, tx *chain.Transaction) (bool, error) {
	msg := primitives.HashDomain(primitives.DomainScriptSignature, in.Bytes())
	ctx := ScriptContext{Message: msg}
	return Execute(in.Script, in.InputData, in.ScriptSignature, ctx, maxScriptOps)
}

func checkNoDuplicates(body *chain.AggregateBody) error {
	seen := make(map[primitives.Commitment]struct{}, len(body.Inputs)+len(body.Outputs))
	for i := range body.Inputs {
		c := body.Inputs[i].Commitment
		if _, dup := seen[c]; dup {
			return fail(KindDuplicate, "duplicate input commitment")
		}
		seen[c] = struct{}{}
	}
	seenOut := make(map[primitives.Commitment]struct{}, len(body.Outputs))
	for i := range body.Outputs {
		c := body.Outputs[i].Commitment
		if _, dup := seenOut[c]; dup {
			return fail(KindDuplicate, "duplicate output commitment")
		}
		seenOut[c] = struct{}{}
	}
	seenKernel := make(map[primitives.Commitment]struct{}, len(body.Kernels))
	for i := range body.Kernels {
		c := body.Kernels[i].Excess
		if _, dup := seenKernel[c]; dup {
			return fail(KindDuplicate, "duplicate kernel excess")
		}
		seenKernel[c] = struct{}{}
	}
	return nil
}

// checkBalance verifies the Mimblewimble balance equation (§4.4):
//
//	Σcommit(outputs) − Σcommit(inputs) − Σexcess − offset*G == Σfee*H
//
// reward is the coinbase value this body is allowed to create from nothing
// (0 for an ordinary transaction; emission(height) for a whole block body,
// supplied by CheckBlock). A coinbase kernel's excess is the pure blinding
// component of its output (the miner's own blind, with no input to net
// against), so the reward's value component has no counterpart anywhere
// else in the equation — it must be subtracted explicitly, the same way a
// kernel fee is added explicitly:
//
//	Σcommit(outputs) == Σcommit(inputs) + Σexcess + offset*G + Σfee*H − reward*H
//
// via commitment arithmetic alone (values are committed at 0 blind, so
// Commit(v, 0) == v*H exactly, and negating a commitment negates its
// implicit value).
func checkBalance(tx *chain.Transaction, reward uint64) error {
	body := &tx.Body

	if len(body.Outputs) == 0 {
		return fail(KindBalance, "transaction has no outputs")
	}

	outputCommitments := make([]primitives.Commitment, len(body.Outputs))
	for i := range body.Outputs {
		outputCommitments[i] = body.Outputs[i].Commitment
	}
	outputSum, err := primitives.SumCommitments(outputCommitments...)
	if err != nil {
		return fail(KindBalance, "summing output commitments: "+err.Error())
	}

	rhsTerms := make([]primitives.Commitment, 0, len(body.Inputs)+len(body.Kernels)+2)
	for i := range body.Inputs {
		rhsTerms = append(rhsTerms, body.Inputs[i].Commitment)
	}
	for i := range body.Kernels {
		rhsTerms = append(rhsTerms, body.Kernels[i].Excess)
		if fee := body.Kernels[i].Fee; fee > 0 {
			feeCommit, err := primitives.Commit(fee, primitives.ZeroScalar())
			if err != nil {
				return fail(KindBalance, "committing kernel fee: "+err.Error())
			}
			rhsTerms = append(rhsTerms, feeCommit)
		}
	}
	if !tx.Offset.IsZero() {
		offsetCommit, err := primitives.CommitExcess(tx.Offset)
		if err != nil {
			return fail(KindBalance, "computing offset commitment: "+err.Error())
		}
		rhsTerms = append(rhsTerms, offsetCommit)
	}
	if reward > 0 {
		rewardCommit, err := primitives.Commit(reward, primitives.ZeroScalar())
		if err != nil {
			return fail(KindBalance, "committing block reward: "+err.Error())
		}
		negated, err := primitives.NegateCommitment(rewardCommit)
		if err != nil {
			return fail(KindBalance, "negating block reward commitment: "+err.Error())
		}
		rhsTerms = append(rhsTerms, negated)
	}

	if len(rhsTerms) == 0 {
		return fail(KindBalance, "transaction has no inputs, excess, or offset to balance against")
	}
	rhsSum, err := primitives.SumCommitments(rhsTerms...)
	if err != nil {
		return fail(KindBalance, "summing balance terms: "+err.Error())
	}

	if !bytes.Equal(outputSum.Bytes(), rhsSum.Bytes()) {
		return fail(KindBalance, "transaction does not balance")
	}
	return nil
}
