package primitives

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Signature is a Schnorr (R, s) pair on secp256k1 (§3: "Signature").
type Signature struct {
	R Commitment
	S Scalar
}

// Bytes returns the canonical 64-byte BIP-340-style encoding (32-byte R.x
// derived nonce commitment concatenated with 32-byte s), matching the
// wire layout schnorr.Signature.Serialize produces.
func (sig Signature) Bytes() ([]byte, error) {
	pk, err := secp256k1.ParsePubKey(sig.R[:])
	if err != nil {
		return nil, errPoint("signature: invalid R: " + err.Error())
	}
	var rField secp256k1.FieldVal
	rField.Set(pk.X())
	sScalar := sig.S.modNCopy()
	inner := schnorr.NewSignature(&rField, &sScalar)
	return inner.Serialize(), nil
}

// SignatureFromBytes parses a 64-byte Schnorr signature and recovers the
// full R commitment point (even-y, per BIP-340 convention) so downstream
// excess/commitment arithmetic can treat R like any other commitment.
func SignatureFromBytes(b []byte) (Signature, error) {
	inner, err := schnorr.ParseSignature(b)
	if err != nil {
		return Signature{}, errEncoding("signature: " + err.Error())
	}
	rBytes, sBytes := inner.Split()
	var rx [32]byte
	copy(rx[:], rBytes)
	var field secp256k1.FieldVal
	if overflow := field.SetByteSlice(rx[:]); overflow {
		return Signature{}, errPoint("signature: R.x overflow")
	}
	var y secp256k1.FieldVal
	if !secp256k1.DecompressY(&field, false, &y) {
		return Signature{}, errPoint("signature: R.x not on curve")
	}
	pk := secp256k1.NewPublicKey(&field, &y)
	var rComm Commitment
	copy(rComm[:], pk.SerializeCompressed())

	s, err := ScalarFromBytes(sBytes)
	if err != nil {
		return Signature{}, err
	}
	return Signature{R: rComm, S: s}, nil
}

// modNCopy exposes the underlying ModNScalar for the schnorr package without
// widening Scalar's public surface.
func (s Scalar) modNCopy() secp256k1.ModNScalar { return s.inner }

// SignExcess produces the kernel / script Schnorr signature proving
// knowledge of the excess blinding factor over message, following the
// standard "signature binds (excess, message)" Mimblewimble construction:
// it signs with the excess scalar as the private key.
func SignExcess(excessBlind Scalar, message Hash) (Signature, error) {
	priv := secp256k1.NewPrivateKey(&excessBlind.inner)
	sig, err := schnorr.Sign(priv, message[:])
	if err != nil {
		return Signature{}, err
	}
	b := sig.Serialize()
	return SignatureFromBytes(b)
}

// VerifyExcess checks that sig is a valid Schnorr signature over message
// for the public key corresponding to excess (i.e. excess == x*G for the
// signer's private scalar x). This is the kernel-signature check in §4.4.
func VerifyExcess(excess Commitment, message Hash, sig Signature) (bool, error) {
	sigBytes, err := sig.Bytes()
	if err != nil {
		return false, err
	}
	parsed, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, errEncoding("signature: " + err.Error())
	}
	pk, err := secp256k1.ParsePubKey(excess[:])
	if err != nil {
		return false, errPoint("signature: excess not a valid point: " + err.Error())
	}
	return parsed.Verify(message[:], pk), nil
}
