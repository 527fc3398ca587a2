package primitives

import "testing"

func TestSignVerifyExcessRoundTrip(t *testing.T) {
	excessBlind, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	excess, err := CommitExcess(excessBlind)
	if err != nil {
		t.Fatal(err)
	}
	msg := HashDomain(DomainKernelSignature, []byte("kernel body"))

	sig, err := SignExcess(excessBlind, msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyExcess(excess, msg, sig)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("valid excess signature failed to verify")
	}
}

func TestVerifyExcessRejectsWrongMessage(t *testing.T) {
	excessBlind, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	excess, err := CommitExcess(excessBlind)
	if err != nil {
		t.Fatal(err)
	}
	msg := HashDomain(DomainKernelSignature, []byte("kernel body"))
	other := HashDomain(DomainKernelSignature, []byte("tampered body"))

	sig, err := SignExcess(excessBlind, msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyExcess(excess, other, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("signature verified against a different message")
	}
}

func TestVerifyExcessRejectsWrongKey(t *testing.T) {
	excessBlind, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	otherBlind, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	wrongExcess, err := CommitExcess(otherBlind)
	if err != nil {
		t.Fatal(err)
	}
	msg := HashDomain(DomainKernelSignature, []byte("kernel body"))

	sig, err := SignExcess(excessBlind, msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyExcess(wrongExcess, msg, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("signature verified against the wrong excess key")
	}
}

func TestSignatureBytesRoundTrip(t *testing.T) {
	excessBlind, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	msg := HashDomain(DomainKernelSignature, []byte("m"))
	sig, err := SignExcess(excessBlind, msg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sig.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 64 {
		t.Fatalf("expected 64-byte signature, got %d", len(b))
	}
	parsed, err := SignatureFromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	reEncoded, err := parsed.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(reEncoded) != string(b) {
		t.Fatal("signature changed across byte round trip")
	}
}
