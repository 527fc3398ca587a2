package primitives

import (
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Commitment is a Pedersen commitment C = v*H + k*G over secp256k1, encoded
// as a 33-byte compressed point (§3: "Commitment"). Equality is bytewise on
// the encoded form, as the spec requires.
type Commitment [33]byte

var zeroCommitment Commitment

func (c Commitment) IsZero() bool { return c == zeroCommitment }

func (c Commitment) Bytes() []byte {
	out := make([]byte, 33)
	copy(out, c[:])
	return out
}

// generatorH is the second Pedersen generator, independent of the standard
// base point G. It is derived once via hash-to-curve (try-and-increment)
// over a fixed nothing-up-my-sleeve string, so every node derives the
// identical point without needing to ship it as a constant.
var (
	generatorHOnce  sync.Once
	generatorHPoint secp256k1.JacobianPoint
)

func generatorH() *secp256k1.JacobianPoint {
	generatorHOnce.Do(func() {
		seed := HashDomain(DomainPedersenH, []byte("tari-basenode/pedersen-generator-h"))
		counter := uint32(0)
		for {
			var candidate [32]byte
			copy(candidate[:], seed[:])
			candidate[0] ^= byte(counter)
			candidate[1] ^= byte(counter >> 8)

			var x secp256k1.FieldVal
			overflow := x.SetByteSlice(candidate[:])
			if !overflow {
				var y secp256k1.FieldVal
				if secp256k1.DecompressY(&x, false, &y) {
					y.Normalize()
					generatorHPoint.X = x
					generatorHPoint.Y = y
					generatorHPoint.Z.SetInt(1)
					return
				}
			}
			counter++
			seed = HashRaw(seed[:], []byte{byte(counter)})
		}
	})
	return &generatorHPoint
}

func generatorG() *secp256k1.JacobianPoint {
	one := new(secp256k1.ModNScalar).SetInt(1)
	var g secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(one, &g)
	return &g
}

// Commit computes C = value*H + blind*G, the standard Pedersen commitment
// to a u64 value under blinding factor blind.
func Commit(value uint64, blind Scalar) (Commitment, error) {
	var vScalar secp256k1.ModNScalar
	vScalar.SetInt(value)
	// SetInt only takes uint32 on some versions; fold the high bits in by hand
	// so values above 2^32 still commit correctly.
	if value > 0xffffffff {
		var hi secp256k1.ModNScalar
		hi.SetInt(uint32(value >> 32))
		var shift secp256k1.ModNScalar
		shift.SetInt(1)
		for i := 0; i < 32; i++ {
			shift.Add(&shift)
		}
		hi.Mul(&shift)
		vScalar.SetInt(uint32(value))
		vScalar.Add(&hi)
	}

	var vH, kG, sum secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&vScalar, generatorH(), &vH)
	bn := blind.modN()
	secp256k1.ScalarMultNonConst(&bn, generatorG(), &kG)
	secp256k1.AddNonConst(&vH, &kG, &sum)
	sum.ToAffine()

	return encodeAffine(&sum)
}

// CommitExcess computes k*G, the "commitment to zero" used for a kernel
// excess and for the per-block offset terms (§3: "Excess").
func CommitExcess(blind Scalar) (Commitment, error) {
	var p secp256k1.JacobianPoint
	bn := blind.modN()
	secp256k1.ScalarMultNonConst(&bn, generatorG(), &p)
	p.ToAffine()
	return encodeAffine(&p)
}

func encodeAffine(p *secp256k1.JacobianPoint) (Commitment, error) {
	var out Commitment
	if p.X.IsZero() && p.Y.IsZero() {
		return out, errPoint("commitment: point at infinity")
	}
	pk := secp256k1.NewPublicKey(&p.X, &p.Y)
	copy(out[:], pk.SerializeCompressed())
	return out, nil
}

// CommitmentFromBytes decodes and validates a compressed commitment point,
// rejecting anything not on the prime-order subgroup (§4.1: commitments
// "MUST be checked to be on the prime-order subgroup").
func CommitmentFromBytes(b []byte) (Commitment, error) {
	var out Commitment
	if len(b) != 33 {
		return out, errEncoding("commitment: expected 33 bytes")
	}
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return out, errPoint("commitment: not a valid curve point: " + err.Error())
	}
	copy(out[:], b)
	return out, nil
}

// SumCommitments homomorphically adds a list of commitments.
func SumCommitments(cs ...Commitment) (Commitment, error) {
	var acc secp256k1.JacobianPoint
	haveAcc := false
	for _, c := range cs {
		pk, err := secp256k1.ParsePubKey(c[:])
		if err != nil {
			return Commitment{}, errPoint("commitment: not a valid curve point")
		}
		var p secp256k1.JacobianPoint
		pk.AsJacobian(&p)
		if !haveAcc {
			acc = p
			haveAcc = true
			continue
		}
		var next secp256k1.JacobianPoint
		secp256k1.AddNonConst(&acc, &p, &next)
		acc = next
	}
	if !haveAcc {
		return Commitment{}, errPoint("commitment: empty sum")
	}
	acc.ToAffine()
	return encodeAffine(&acc)
}

// NegateCommitment returns the additive inverse of c (same x, negated y).
func NegateCommitment(c Commitment) (Commitment, error) {
	pk, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		return Commitment{}, errPoint("commitment: not a valid curve point")
	}
	var p secp256k1.JacobianPoint
	pk.AsJacobian(&p)
	p.ToAffine()
	p.Y.Negate(1)
	p.Y.Normalize()
	return encodeAffine(&p)
}
