package p2p

import (
	"fmt"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

const MaxExcessesPerRequest = 10_000

// GetMempoolTxPayload requests the full transactions behind a list of
// kernel excesses a peer announced or offered (§4.8: "GetMempoolTx
// (excess_sigs)"); a kernel excess is the transaction's identity in the
// mempool (mempool.Pool keys pooled transactions by excess the same way).
type GetMempoolTxPayload struct {
	Excesses []primitives.Commitment
}

func EncodeGetMempoolTxPayload(p GetMempoolTxPayload) ([]byte, error) {
	if len(p.Excesses) == 0 || len(p.Excesses) > MaxExcessesPerRequest {
		return nil, fmt.Errorf("p2p: getmempooltx: invalid excess count")
	}
	w := primitives.NewWriter(4 + len(p.Excesses)*33)
	w.PutCompactSize(uint64(len(p.Excesses)))
	for _, c := range p.Excesses {
		w.PutRawBytes(c.Bytes())
	}
	return w.Bytes(), nil
}

func DecodeGetMempoolTxPayload(b []byte) (*GetMempoolTxPayload, error) {
	r := primitives.NewReader(b)
	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n == 0 || n > MaxExcessesPerRequest {
		return nil, fmt.Errorf("p2p: getmempooltx: invalid excess count")
	}
	out := make([]primitives.Commitment, 0, n)
	for i := uint64(0); i < n; i++ {
		cb, err := r.Bytes(33)
		if err != nil {
			return nil, err
		}
		c, err := primitives.CommitmentFromBytes(cb)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: getmempooltx: trailing bytes")
	}
	return &GetMempoolTxPayload{Excesses: out}, nil
}

type TxPayload struct {
	Transaction chain.Transaction
}

func EncodeTransaction(tx *chain.Transaction) []byte {
	w := primitives.NewWriter(1024)
	w.PutRawBytes(tx.Offset.Bytes())
	w.PutRawBytes(tx.ScriptOffset.Bytes())
	w.PutVarBytes(tx.Body.Bytes())
	return w.Bytes()
}

func DecodeTransaction(b []byte) (*chain.Transaction, error) {
	r := primitives.NewReader(b)
	offsetBytes, err := r.Bytes(32)
	if err != nil {
		return nil, err
	}
	offset, err := primitives.ScalarFromBytes(offsetBytes)
	if err != nil {
		return nil, err
	}
	scriptOffsetBytes, err := r.Bytes(32)
	if err != nil {
		return nil, err
	}
	scriptOffset, err := primitives.ScalarFromBytes(scriptOffsetBytes)
	if err != nil {
		return nil, err
	}
	bodyBytes, err := r.VarBytes(MaxMessageBytes)
	if err != nil {
		return nil, err
	}
	body, err := chain.DecodeAggregateBody(bodyBytes)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: tx: trailing bytes")
	}
	return &chain.Transaction{Offset: offset, ScriptOffset: scriptOffset, Body: body}, nil
}

func EncodeTxPayload(p TxPayload) []byte {
	return EncodeTransaction(&p.Transaction)
}

func DecodeTxPayload(b []byte) (*TxPayload, error) {
	tx, err := DecodeTransaction(b)
	if err != nil {
		return nil, err
	}
	return &TxPayload{Transaction: *tx}, nil
}

// NewTxAnnouncePayload announces a newly-pooled transaction by its kernel
// excess, the way a Tip event triggers NewBlockAnnounce for blocks
// (§4.8: "transactions are gossiped similarly").
type NewTxAnnouncePayload struct {
	Excess primitives.Commitment
}

func EncodeNewTxAnnouncePayload(p NewTxAnnouncePayload) []byte {
	w := primitives.NewWriter(33)
	w.PutRawBytes(p.Excess.Bytes())
	return w.Bytes()
}

func DecodeNewTxAnnouncePayload(b []byte) (*NewTxAnnouncePayload, error) {
	r := primitives.NewReader(b)
	cb, err := r.Bytes(33)
	if err != nil {
		return nil, err
	}
	c, err := primitives.CommitmentFromBytes(cb)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("p2p: newtx: trailing bytes")
	}
	return &NewTxAnnouncePayload{Excess: c}, nil
}
