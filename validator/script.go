package validator

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/tari-project/basenode/primitives"
	"golang.org/x/crypto/sha3"
)

// Opcode is a single byte in a script program (§6: "Script opcodes").
type Opcode byte

const (
	OpCheckHeight Opcode = iota
	OpCheckHeightVerify
	OpCompareHeight
	OpCompareHeightVerify

	OpDrop
	OpDup
	OpRevRot
	OpPushHash
	OpPushZero
	OpPushOne
	OpPushInt
	OpPushPubkey
	OpNop

	OpAdd
	OpSub
	OpEqual
	OpEqualVerify
	OpGeZero
	OpGtZero
	OpLeZero
	OpLtZero

	OpOr
	OpOrVerify

	OpCheckSig
	OpCheckSigVerify
	OpCheckMultiSig
	OpCheckMultiSigVerify
	OpHashBlake256
	OpHashSHA256
	OpHashSHA3

	OpIfThen
	OpElse
	OpEndIf
	OpReturn
)

// stackItem is either an integer (height/int ops), a hash, or raw bytes
// (pubkeys, signatures). Every op documents which shape it expects.
type stackItem struct {
	isInt bool
	i     int64
	b     []byte
}

func intItem(v int64) stackItem  { return stackItem{isInt: true, i: v} }
func bytesItem(b []byte) stackItem { return stackItem{b: b} }

// ScriptContext supplies the block-height/signature-message context a
// script needs to evaluate height checks and signature opcodes; the
// interpreter itself never reaches into chain state directly.
type ScriptContext struct {
	Height  uint64
	Message primitives.Hash
}

// Execute runs script against ctx, consuming initial stack items from
// inputData, and reports whether the script leaves a single truthy value
// on the stack (§4.4: "leaves a true value on the stack"). It enforces the
// op-count bound from §6.
func Execute(script []byte, inputData []byte, sig primitives.Signature, ctx ScriptContext, maxOps int) (bool, error) {
	stack := []stackItem{bytesItem(inputData)}
	ops := 0
	i := 0
	skipDepth := 0

	for i < len(script) {
		if ops >= maxOps {
			return false, fail(KindScript, "script exceeded the maximum op count")
		}
		op := Opcode(script[i])
		i++
		ops++

		if skipDepth > 0 {
			switch op {
			case OpIfThen:
				skipDepth++
			case OpElse:
				if skipDepth == 1 {
					skipDepth = 0
				}
			case OpEndIf:
				skipDepth--
			}
			continue
		}

		switch op {
		case OpNop, OpElse:
			// OpElse reached without an active skip means the THEN branch
			// just completed; treat the rest of the block as a skip until
			// OpEndIf.
			if op == OpElse {
				skipDepth = 1
			}
		case OpEndIf:
			// no-op when not skipping: the IF branch ran to completion.
		case OpIfThen:
			top, err := pop(&stack)
			if err != nil {
				return false, err
			}
			if !truthy(top) {
				skipDepth = 1
			}
		case OpDrop:
			if _, err := pop(&stack); err != nil {
				return false, err
			}
		case OpDup:
			top, err := peek(stack)
			if err != nil {
				return false, err
			}
			stack = append(stack, top)
		case OpRevRot:
			if len(stack) < 3 {
				return false, fail(KindScript, "REV_ROT requires 3 stack items")
			}
			n := len(stack)
			stack[n-1], stack[n-2], stack[n-3] = stack[n-3], stack[n-1], stack[n-2]
		case OpPushZero:
			stack = append(stack, intItem(0))
		case OpPushOne:
			stack = append(stack, intItem(1))
		case OpPushInt:
			if i+8 > len(script) {
				return false, fail(KindScript, "PUSH_INT truncated")
			}
			v := int64(binary.LittleEndian.Uint64(script[i : i+8]))
			i += 8
			stack = append(stack, intItem(v))
		case OpPushHash:
			if i+32 > len(script) {
				return false, fail(KindScript, "PUSH_HASH truncated")
			}
			stack = append(stack, bytesItem(append([]byte(nil), script[i:i+32]...)))
			i += 32
		case OpPushPubkey:
			if i+33 > len(script) {
				return false, fail(KindScript, "PUSH_PUBKEY truncated")
			}
			stack = append(stack, bytesItem(append([]byte(nil), script[i:i+33]...)))
			i += 33

		case OpCheckHeight, OpCheckHeightVerify:
			// CHECK_HEIGHT_VERIFY asserts the current height is non-zero and
			// pushes nothing; CHECK_HEIGHT pushes it for later comparison.
			if op == OpCheckHeightVerify {
				if ctx.Height == 0 {
					return false, nil
				}
			} else {
				stack = append(stack, intItem(int64(ctx.Height)))
			}
		case OpCompareHeight, OpCompareHeightVerify:
			target, err := pop(&stack)
			if err != nil {
				return false, err
			}
			result := int64(ctx.Height) >= target.i
			if op == OpCompareHeightVerify {
				if !result {
					return false, nil
				}
			} else {
				stack = append(stack, boolItem(result))
			}

		case OpAdd, OpSub:
			b, err := pop(&stack)
			if err != nil {
				return false, err
			}
			a, err := pop(&stack)
			if err != nil {
				return false, err
			}
			if op == OpAdd {
				stack = append(stack, intItem(a.i+b.i))
			} else {
				stack = append(stack, intItem(a.i-b.i))
			}
		case OpEqual, OpEqualVerify:
			b, err := pop(&stack)
			if err != nil {
				return false, err
			}
			a, err := pop(&stack)
			if err != nil {
				return false, err
			}
			eq := itemsEqual(a, b)
			if op == OpEqualVerify {
				if !eq {
					return false, nil
				}
			} else {
				stack = append(stack, boolItem(eq))
			}
		case OpGeZero, OpGtZero, OpLeZero, OpLtZero:
			top, err := pop(&stack)
			if err != nil {
				return false, err
			}
			var result bool
			switch op {
			case OpGeZero:
				result = top.i >= 0
			case OpGtZero:
				result = top.i > 0
			case OpLeZero:
				result = top.i <= 0
			case OpLtZero:
				result = top.i < 0
			}
			stack = append(stack, boolItem(result))

		case OpOr, OpOrVerify:
			b, err := pop(&stack)
			if err != nil {
				return false, err
			}
			a, err := pop(&stack)
			if err != nil {
				return false, err
			}
			result := truthy(a) || truthy(b)
			if op == OpOrVerify {
				if !result {
					return false, nil
				}
			} else {
				stack = append(stack, boolItem(result))
			}

		case OpHashBlake256, OpHashSHA256, OpHashSHA3:
			top, err := pop(&stack)
			if err != nil {
				return false, err
			}
			var h [32]byte
			switch op {
			case OpHashSHA256:
				h = sha256.Sum256(top.b)
			case OpHashSHA3:
				h = sha3.Sum256(top.b)
			default:
				h = primitives.HashRaw(top.b)
			}
			stack = append(stack, bytesItem(h[:]))

		case OpCheckSig, OpCheckSigVerify:
			pubkeyItem, err := pop(&stack)
			if err != nil {
				return false, err
			}
			pubkey, err := primitives.CommitmentFromBytes(pubkeyItem.b)
			if err != nil {
				return false, fail(KindSignature, "CHECK_SIG: invalid pubkey encoding")
			}
			ok, err := primitives.VerifyExcess(pubkey, ctx.Message, sig)
			if err != nil {
				return false, fail(KindSignature, err.Error())
			}
			if op == OpCheckSigVerify {
				if !ok {
					return false, nil
				}
			} else {
				stack = append(stack, boolItem(ok))
			}

		case OpCheckMultiSig, OpCheckMultiSigVerify:
			// A bounded m-of-n check: pop n pubkeys then m, verify the same
			// signature against each until m successes or pubkeys run out.
			nItem, err := pop(&stack)
			if err != nil {
				return false, err
			}
			mItem, err := pop(&stack)
			if err != nil {
				return false, err
			}
			n := int(nItem.i)
			m := int(mItem.i)
			if n < 0 || m < 0 || m > n || len(stack) < n {
				return false, fail(KindScript, "CHECK_MULTI_SIG: invalid m/n")
			}
			successes := 0
			for k := 0; k < n; k++ {
				item, err := pop(&stack)
				if err != nil {
					return false, err
				}
				pk, err := primitives.CommitmentFromBytes(item.b)
				if err != nil {
					continue
				}
				if ok, _ := primitives.VerifyExcess(pk, ctx.Message, sig); ok {
					successes++
				}
			}
			result := successes >= m
			if op == OpCheckMultiSigVerify {
				if !result {
					return false, nil
				}
			} else {
				stack = append(stack, boolItem(result))
			}

		case OpReturn:
			return false, nil

		default:
			return false, fail(KindScript, "unknown opcode")
		}
	}

	if len(stack) != 1 {
		return false, nil
	}
	return truthy(stack[0]), nil
}

func pop(stack *[]stackItem) (stackItem, error) {
	s := *stack
	if len(s) == 0 {
		return stackItem{}, fail(KindScript, "stack underflow")
	}
	top := s[len(s)-1]
	*stack = s[:len(s)-1]
	return top, nil
}

func peek(stack []stackItem) (stackItem, error) {
	if len(stack) == 0 {
		return stackItem{}, fail(KindScript, "stack underflow")
	}
	return stack[len(stack)-1], nil
}

// truthy follows the usual script-VM convention: an integer is true unless
// zero, and a byte string is true unless empty or entirely zero bytes.
func truthy(item stackItem) bool {
	if item.isInt {
		return item.i != 0
	}
	for _, b := range item.b {
		if b != 0 {
			return true
		}
	}
	return false
}

func boolItem(v bool) stackItem {
	if v {
		return intItem(1)
	}
	return intItem(0)
}

func itemsEqual(a, b stackItem) bool {
	if a.isInt && b.isInt {
		return a.i == b.i
	}
	if a.isInt != b.isInt {
		return false
	}
	if len(a.b) != len(b.b) {
		return false
	}
	for i := range a.b {
		if a.b[i] != b.b[i] {
			return false
		}
	}
	return true
}
