package primitives

import "testing"

func TestRandomScalarIsNonZero(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	if s.IsZero() {
		t.Fatal("RandomScalar produced the zero scalar")
	}
}

func TestScalarFromBytesRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ScalarFromBytes(s.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Bytes() == nil || string(got.Bytes()) != string(s.Bytes()) {
		t.Fatal("round-trip through ScalarFromBytes changed the value")
	}
}

func TestScalarFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := ScalarFromBytes(make([]byte, 31)); err == nil {
		t.Fatal("expected error for short scalar")
	}
}

func TestScalarFromBytesRejectsOverflow(t *testing.T) {
	overflow := make([]byte, 32)
	for i := range overflow {
		overflow[i] = 0xff
	}
	if _, err := ScalarFromBytes(overflow); err == nil {
		t.Fatal("expected error for scalar exceeding group order")
	}
}

func TestScalarAddSubIdentity(t *testing.T) {
	a, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	b, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	sum := a.Add(b)
	back := sum.Sub(b)
	if string(back.Bytes()) != string(a.Bytes()) {
		t.Fatal("(a+b)-b != a")
	}
}

func TestScalarNegateRoundTrip(t *testing.T) {
	a, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	if !a.Add(a.Negate()).IsZero() {
		t.Fatal("a + (-a) != 0")
	}
}
