package store

import (
	"math/big"

	"github.com/tari-project/basenode/primitives"
)

// unspentEntry is the value stored under unspent_outputs_by_commitment: just
// enough to answer validator.UnspentLookup without a second bucket hit, plus
// the output-MMR leaf index needed to mark the witness bit on spend.
type unspentEntry struct {
	Maturity   uint64
	LeafIndex  uint64
	OutputHash primitives.Hash
}

func encodeUnspentEntry(e unspentEntry) []byte {
	w := primitives.NewWriter(48)
	w.PutU64(e.Maturity)
	w.PutU64(e.LeafIndex)
	w.PutHash(e.OutputHash)
	return w.Bytes()
}

func decodeUnspentEntry(b []byte) (unspentEntry, error) {
	r := primitives.NewReader(b)
	maturity, err := r.U64()
	if err != nil {
		return unspentEntry{}, err
	}
	leafIndex, err := r.U64()
	if err != nil {
		return unspentEntry{}, err
	}
	outputHash, err := r.Hash()
	if err != nil {
		return unspentEntry{}, err
	}
	return unspentEntry{Maturity: maturity, LeafIndex: leafIndex, OutputHash: outputHash}, nil
}

// outputRecord is the value stored under outputs, keyed by output ID hash.
// It is never deleted when the output is spent: rewind_to's reverse replay
// (§4.5) relies on the full output still being here to restore the unspent
// index.
type outputRecord struct {
	LeafIndex uint64
	Output    []byte // chain.Output.Bytes()
}

func encodeOutputRecord(r outputRecord) []byte {
	w := primitives.NewWriter(16 + len(r.Output))
	w.PutU64(r.LeafIndex)
	w.PutVarBytes(r.Output)
	return w.Bytes()
}

func decodeOutputRecord(b []byte) (outputRecord, error) {
	r := primitives.NewReader(b)
	leafIndex, err := r.U64()
	if err != nil {
		return outputRecord{}, err
	}
	outputBytes, err := r.VarBytes(maxRecordLen)
	if err != nil {
		return outputRecord{}, err
	}
	return outputRecord{LeafIndex: leafIndex, Output: append([]byte(nil), outputBytes...)}, nil
}

const maxRecordLen = 1 << 24

// tipRecord is the value stored under accumulated_data["tip"].
type tipRecord struct {
	Height uint64
	Hash   primitives.Hash
}

func encodeTipRecord(t tipRecord) []byte {
	w := primitives.NewWriter(40)
	w.PutU64(t.Height)
	w.PutHash(t.Hash)
	return w.Bytes()
}

func decodeTipRecord(b []byte) (tipRecord, error) {
	r := primitives.NewReader(b)
	height, err := r.U64()
	if err != nil {
		return tipRecord{}, err
	}
	hash, err := r.Hash()
	if err != nil {
		return tipRecord{}, err
	}
	return tipRecord{Height: height, Hash: hash}, nil
}

// encodeOrphanEntry/decodeOrphanEntries pack one or more (header, body) byte
// pairs under a single orphans bucket key (prev_hash), since more than one
// candidate block may extend the same unknown parent.
func encodeOrphanEntry(headerBytes, bodyBytes []byte) []byte {
	w := primitives.NewWriter(len(headerBytes) + len(bodyBytes) + 8)
	w.PutVarBytes(headerBytes)
	w.PutVarBytes(bodyBytes)
	return w.Bytes()
}

func decodeOrphanEntries(b []byte) ([][2][]byte, error) {
	r := primitives.NewReader(b)
	var out [][2][]byte
	for r.Remaining() > 0 {
		headerBytes, err := r.VarBytes(maxRecordLen)
		if err != nil {
			return nil, err
		}
		bodyBytes, err := r.VarBytes(maxRecordLen)
		if err != nil {
			return nil, err
		}
		out = append(out, [2][]byte{
			append([]byte(nil), headerBytes...),
			append([]byte(nil), bodyBytes...),
		})
	}
	return out, nil
}

// powRecord is the value stored under accumulated_data["pow"]: the two
// per-algorithm accumulated-difficulty totals, big.Int-encoded.
type powRecord struct {
	RandomX *big.Int
	SHA3x   *big.Int
}

func encodePowRecord(p powRecord) []byte {
	w := primitives.NewWriter(64)
	w.PutVarBytes(p.RandomX.Bytes())
	w.PutVarBytes(p.SHA3x.Bytes())
	return w.Bytes()
}

func decodePowRecord(b []byte) (powRecord, error) {
	r := primitives.NewReader(b)
	rx, err := r.VarBytes(maxRecordLen)
	if err != nil {
		return powRecord{}, err
	}
	sx, err := r.VarBytes(maxRecordLen)
	if err != nil {
		return powRecord{}, err
	}
	return powRecord{
		RandomX: new(big.Int).SetBytes(rx),
		SHA3x:   new(big.Int).SetBytes(sx),
	}, nil
}

// encodeTargetRecord/decodeTargetRecord persist the retarget target a
// single header was actually mined against, keyed by (algo, height) under
// accumulated_data (see targetKey). This is what lets restoreEngine hand
// pow.Restore the real historical targets instead of guessing them.
func encodeTargetRecord(target *big.Int) []byte {
	w := primitives.NewWriter(40)
	w.PutVarBytes(target.Bytes())
	return w.Bytes()
}

func decodeTargetRecord(b []byte) (*big.Int, error) {
	r := primitives.NewReader(b)
	v, err := r.VarBytes(maxRecordLen)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(v), nil
}
