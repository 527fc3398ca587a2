package primitives

import "encoding/binary"

// Writer accumulates a canonical little-endian, length-prefixed encoding.
// Every core type's MarshalBinary method uses a Writer so the wire layout
// stays consistent across packages (§6: "All integers little-endian").
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) PutU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

func (w *Writer) PutHash(h Hash) { w.buf = append(w.buf, h[:]...) }

// PutRawBytes appends b with no length prefix, for fixed-size fields (e.g.
// compressed curve points) whose length the reader already knows.
func (w *Writer) PutRawBytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *Writer) PutCompactSize(n uint64) {
	switch {
	case n < 0xfd:
		w.PutU8(uint8(n))
	case n <= 0xffff:
		w.PutU8(0xfd)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(n))
		w.buf = append(w.buf, tmp[:]...)
	case n <= 0xffffffff:
		w.PutU8(0xfe)
		w.PutU32(uint32(n))
	default:
		w.PutU8(0xff)
		w.PutU64(n)
	}
}

// PutVarBytes writes a CompactSize length prefix followed by raw bytes, the
// canonical encoding for every variable-length field in §3.
func (w *Writer) PutVarBytes(b []byte) {
	w.PutCompactSize(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader consumes bytes produced by Writer, returning a tagged
// KindInvalidEncoding error on any truncation or non-minimal encoding.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining reports how many bytes are left unconsumed.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) U8() (uint8, error) {
	if r.off+1 > len(r.buf) {
		return 0, errEncoding("unexpected EOF (u8)")
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, errEncoding("unexpected EOF (u32)")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, errEncoding("unexpected EOF (u64)")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) Hash() (Hash, error) {
	var out Hash
	if r.off+32 > len(r.buf) {
		return out, errEncoding("unexpected EOF (hash)")
	}
	copy(out[:], r.buf[r.off:r.off+32])
	r.off += 32
	return out, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errEncoding("negative length")
	}
	if r.off+n > len(r.buf) {
		return nil, errEncoding("unexpected EOF (bytes)")
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *Reader) CompactSize() (uint64, error) {
	tag, err := r.U8()
	if err != nil {
		return 0, err
	}
	switch {
	case tag < 0xfd:
		return uint64(tag), nil
	case tag == 0xfd:
		if r.off+2 > len(r.buf) {
			return 0, errEncoding("unexpected EOF (compactsize16)")
		}
		v := binary.LittleEndian.Uint16(r.buf[r.off : r.off+2])
		r.off += 2
		if v < 0xfd {
			return 0, errEncoding("non-minimal CompactSize (0xfd)")
		}
		return uint64(v), nil
	case tag == 0xfe:
		v, err := r.U32()
		if err != nil {
			return 0, err
		}
		if v <= 0xffff {
			return 0, errEncoding("non-minimal CompactSize (0xfe)")
		}
		return uint64(v), nil
	default:
		v, err := r.U64()
		if err != nil {
			return 0, err
		}
		if v <= 0xffffffff {
			return 0, errEncoding("non-minimal CompactSize (0xff)")
		}
		return v, nil
	}
}

// VarBytes reads a CompactSize-prefixed byte slice, capped at maxLen to
// bound memory use on untrusted input (peer messages, stored blocks).
func (r *Reader) VarBytes(maxLen uint64) ([]byte, error) {
	n, err := r.CompactSize()
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, errEncoding("var bytes exceeds maximum length")
	}
	return r.Bytes(int(n))
}
