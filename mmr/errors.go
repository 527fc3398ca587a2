package mmr

import "errors"

var (
	errIndexRange   = errors.New("mmr: index out of range")
	errProofInvalid = errors.New("mmr: inclusion proof does not reduce to an accumulator peak")
	errEmptyMMR     = errors.New("mmr: empty MMR has no root")
)
