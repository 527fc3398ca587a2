package primitives

import (
	"crypto/rand"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is a blinding factor / private key, reduced modulo the group
// order. It wraps secp256k1.ModNScalar the way the teacher's crypto package
// wraps its signer primitives behind a narrow interface (crypto/provider.go).
type Scalar struct {
	inner secp256k1.ModNScalar
}

// RandomScalar draws a cryptographically random non-zero scalar.
func RandomScalar() (Scalar, error) {
	for {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return Scalar{}, err
		}
		var s secp256k1.ModNScalar
		overflow := s.SetBytes(&buf)
		if overflow == 0 && !s.IsZero() {
			return Scalar{inner: s}, nil
		}
	}
}

// ZeroScalar returns the additive identity, used when committing to a
// public value (e.g. a kernel fee) with no blinding.
func ZeroScalar() Scalar { return Scalar{} }

// ScalarFromBytes decodes a 32-byte big-endian scalar, rejecting values
// that overflow the group order (non-canonical encodings are InvalidPoint
// failures per §4.1).
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != 32 {
		return Scalar{}, errEncoding("scalar: expected 32 bytes")
	}
	var arr [32]byte
	copy(arr[:], b)
	var s secp256k1.ModNScalar
	if overflow := s.SetBytes(&arr); overflow != 0 {
		return Scalar{}, errPoint("scalar: value exceeds group order")
	}
	return Scalar{inner: s}, nil
}

func (s Scalar) Bytes() []byte {
	b := s.inner.Bytes()
	return b[:]
}

// Add returns s + other (mod n).
func (s Scalar) Add(other Scalar) Scalar {
	out := s.inner
	out.Add(&other.inner)
	return Scalar{inner: out}
}

// Negate returns -s (mod n).
func (s Scalar) Negate() Scalar {
	out := s.inner
	out.Negate()
	return Scalar{inner: out}
}

// Sub returns s - other (mod n).
func (s Scalar) Sub(other Scalar) Scalar {
	return s.Add(other.Negate())
}

func (s Scalar) IsZero() bool { return s.inner.IsZero() }

func (s Scalar) modN() secp256k1.ModNScalar { return s.inner }
