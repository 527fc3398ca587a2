package p2p

import "github.com/tari-project/basenode/primitives"

type PingPayload struct {
	Nonce uint64
}

func EncodePingPayload(p PingPayload) []byte {
	w := primitives.NewWriter(8)
	w.PutU64(p.Nonce)
	return w.Bytes()
}

func DecodePingPayload(b []byte) (PingPayload, error) {
	r := primitives.NewReader(b)
	nonce, err := r.U64()
	if err != nil {
		return PingPayload{}, err
	}
	return PingPayload{Nonce: nonce}, nil
}

type PongPayload struct {
	Nonce uint64
}

func EncodePongPayload(p PongPayload) []byte {
	return EncodePingPayload(PingPayload{Nonce: p.Nonce})
}

func DecodePongPayload(b []byte) (PongPayload, error) {
	pp, err := DecodePingPayload(b)
	return PongPayload{Nonce: pp.Nonce}, err
}
