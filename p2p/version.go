package p2p

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/tari-project/basenode/primitives"
)

const (
	ProtocolVersionV1 = 1
	MaxUserAgentBytes = 256
)

// VersionPayload is exchanged during the handshake (§4.8/§9: peers compare
// total_accumulated_difficulty to decide whether to request headers).
type VersionPayload struct {
	ProtocolVersion uint32
	NetworkMagic    uint32
	Timestamp       int64
	Nonce           uint64
	UserAgent       string
	StartHeight     uint64
	TotalAccumulatedDifficulty *big.Int
}

func EncodeVersionPayload(v VersionPayload) ([]byte, error) {
	if len(v.UserAgent) > MaxUserAgentBytes {
		return nil, fmt.Errorf("p2p: version: user_agent too long")
	}
	if !utf8.ValidString(v.UserAgent) {
		return nil, fmt.Errorf("p2p: version: user_agent must be UTF-8")
	}
	total := v.TotalAccumulatedDifficulty
	if total == nil {
		total = big.NewInt(0)
	}

	w := primitives.NewWriter(128 + len(v.UserAgent))
	w.PutU32(v.ProtocolVersion)
	w.PutU32(v.NetworkMagic)
	w.PutI64(v.Timestamp)
	w.PutU64(v.Nonce)
	w.PutVarBytes([]byte(v.UserAgent))
	w.PutU64(v.StartHeight)
	w.PutVarBytes(total.Bytes())
	return w.Bytes(), nil
}

func DecodeVersionPayload(b []byte) (*VersionPayload, error) {
	r := primitives.NewReader(b)
	proto, err := r.U32()
	if err != nil {
		return nil, err
	}
	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	ts, err := r.I64()
	if err != nil {
		return nil, err
	}
	nonce, err := r.U64()
	if err != nil {
		return nil, err
	}
	ua, err := r.VarBytes(MaxUserAgentBytes)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(ua) {
		return nil, fmt.Errorf("p2p: version: user_agent must be UTF-8")
	}
	startHeight, err := r.U64()
	if err != nil {
		return nil, err
	}
	totalBytes, err := r.VarBytes(64)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: version: trailing bytes")
	}
	return &VersionPayload{
		ProtocolVersion:            proto,
		NetworkMagic:               magic,
		Timestamp:                  ts,
		Nonce:                      nonce,
		UserAgent:                  string(ua),
		StartHeight:                startHeight,
		TotalAccumulatedDifficulty: new(big.Int).SetBytes(totalBytes),
	}, nil
}
