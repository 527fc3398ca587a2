package validator

import (
	"encoding/binary"
	"testing"

	"github.com/tari-project/basenode/primitives"
)

func TestExecuteEmptyScriptTruthyInput(t *testing.T) {
	ok, err := Execute(nil, []byte{1}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected empty script with non-zero input data to be truthy")
	}
}

func TestExecutePushOneLeavesTruthyStack(t *testing.T) {
	script := []byte{byte(OpDrop), byte(OpPushOne)}
	ok, err := Execute(script, []byte{0}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected PUSH_ONE to leave a truthy stack")
	}
}

func TestExecutePushZeroIsFalsy(t *testing.T) {
	script := []byte{byte(OpDrop), byte(OpPushZero)}
	ok, err := Execute(script, []byte{0}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected PUSH_ZERO to leave a falsy stack")
	}
}

func TestExecuteAddSub(t *testing.T) {
	script := []byte{byte(OpDrop)}
	script = append(script, byte(OpPushInt))
	script = appendI64(script, 5)
	script = append(script, byte(OpPushInt))
	script = appendI64(script, 3)
	script = append(script, byte(OpAdd))
	script = append(script, byte(OpPushInt))
	script = appendI64(script, 8)
	script = append(script, byte(OpEqualVerify))
	script = append(script, byte(OpPushOne))

	ok, err := Execute(script, []byte{0}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("5+3 should equal 8")
	}
}

func TestExecuteEqualVerifyFailsOnMismatch(t *testing.T) {
	script := []byte{byte(OpDrop)}
	script = append(script, byte(OpPushZero), byte(OpPushOne), byte(OpEqualVerify), byte(OpPushOne))
	ok, err := Execute(script, []byte{0}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("EQUAL_VERIFY should fail when 0 != 1")
	}
}

func TestExecuteIfElseBranches(t *testing.T) {
	// if (1) then push 1 else push 0 — condition popped from initial stack.
	script := []byte{byte(OpIfThen), byte(OpPushOne), byte(OpElse), byte(OpPushZero), byte(OpEndIf)}
	ok, err := Execute(script, []byte{1}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the THEN branch (pushing 1) to run")
	}
}

func TestExecuteIfElseBranchesFalseTakesElse(t *testing.T) {
	script := []byte{byte(OpIfThen), byte(OpPushOne), byte(OpElse), byte(OpPushZero), byte(OpEndIf)}
	ok, err := Execute(script, []byte{0}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected the ELSE branch (pushing 0) to run")
	}
}

func TestExecuteOpReturnAborts(t *testing.T) {
	script := []byte{byte(OpReturn), byte(OpPushOne)}
	ok, err := Execute(script, []byte{1}, primitives.Signature{}, ScriptContext{}, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("RETURN should always leave the script falsy")
	}
}

func TestExecuteEnforcesMaxOps(t *testing.T) {
	script := make([]byte, 10)
	for i := range script {
		script[i] = byte(OpNop)
	}
	_, err := Execute(script, []byte{1}, primitives.Signature{}, ScriptContext{}, 5)
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindScript {
		t.Fatalf("expected a Script kind error, got %v", err)
	}
}

func TestExecuteCheckSigVerifiesAgainstPubkey(t *testing.T) {
	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	pubkey, err := primitives.CommitExcess(blind)
	if err != nil {
		t.Fatal(err)
	}
	msg := primitives.HashDomain(primitives.DomainScriptSignature, []byte("script-input"))
	sig, err := primitives.SignExcess(blind, msg)
	if err != nil {
		t.Fatal(err)
	}

	script := []byte{byte(OpDrop), byte(OpPushPubkey)}
	script = append(script, pubkey[:]...)
	script = append(script, byte(OpCheckSigVerify), byte(OpPushOne))

	ctx := ScriptContext{Message: msg}
	ok, err := Execute(script, []byte{0}, sig, ctx, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected CHECK_SIG_VERIFY to accept a valid signature")
	}
}

func TestExecuteCheckSigRejectsWrongPubkey(t *testing.T) {
	blind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	wrongBlind, err := primitives.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	wrongPubkey, err := primitives.CommitExcess(wrongBlind)
	if err != nil {
		t.Fatal(err)
	}
	msg := primitives.HashDomain(primitives.DomainScriptSignature, []byte("script-input"))
	sig, err := primitives.SignExcess(blind, msg)
	if err != nil {
		t.Fatal(err)
	}

	script := []byte{byte(OpDrop), byte(OpPushPubkey)}
	script = append(script, wrongPubkey[:]...)
	script = append(script, byte(OpCheckSigVerify), byte(OpPushOne))

	ctx := ScriptContext{Message: msg}
	ok, err := Execute(script, []byte{0}, sig, ctx, maxScriptOps)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected CHECK_SIG_VERIFY to reject a signature from a different key")
	}
}

func appendI64(script []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(script, b[:]...)
}
