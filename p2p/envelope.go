package p2p

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode"

	"github.com/tari-project/basenode/primitives"
)

const (
	// TransportPrefixBytes is the fixed header length for every P2P message:
	// 4-byte magic, 12-byte command, 4-byte payload length, 4-byte checksum.
	TransportPrefixBytes = 24
	CommandBytes         = 12

	// MaxMessageBytes bounds a single message payload (§4.8 backpressure
	// discussion assumes a bounded frame; chosen generously above
	// MaxBlockWeight-sized bodies).
	MaxMessageBytes = 8_388_608
)

// Message is one framed P2P message: a 24-byte prefix followed by Payload.
type Message struct {
	Magic   uint32
	Command string
	Payload []byte
}

// ReadError conveys how the caller should treat a malformed message: a
// ban-score delta to apply and whether the connection must be torn down,
// mirroring the teacher's envelope.go ReadError policy surface.
type ReadError struct {
	Err           error
	BanScoreDelta int
	Disconnect    bool
}

func (e *ReadError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func checksum4(payload []byte) [4]byte {
	h := primitives.HashRaw(payload)
	var out [4]byte
	copy(out[:], h[:4])
	return out
}

func encodeCommand(cmd string) ([CommandBytes]byte, error) {
	var out [CommandBytes]byte
	if cmd == "" {
		return out, fmt.Errorf("p2p: empty command")
	}
	if len(cmd) > CommandBytes {
		return out, fmt.Errorf("p2p: command too long")
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if c >= 0x80 || c == 0x00 || !unicode.IsPrint(rune(c)) {
			return out, fmt.Errorf("p2p: command contains non-printable ASCII")
		}
		out[i] = c
	}
	return out, nil
}

func decodeCommand(b [CommandBytes]byte) (string, error) {
	n := CommandBytes
	for i := 0; i < CommandBytes; i++ {
		if b[i] == 0x00 {
			n = i
			break
		}
	}
	for i := n; i < CommandBytes; i++ {
		if b[i] != 0x00 {
			return "", fmt.Errorf("p2p: command not NUL-right-padded")
		}
	}
	cmd := string(b[:n])
	if cmd == "" {
		return "", fmt.Errorf("p2p: empty command")
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if c >= 0x80 || c == 0x00 || !unicode.IsPrint(rune(c)) {
			return "", fmt.Errorf("p2p: command contains non-printable ASCII")
		}
	}
	return cmd, nil
}

// WriteMessage writes a single framed message to w.
func WriteMessage(w io.Writer, magic uint32, command string, payload []byte) error {
	cmd12, err := encodeCommand(command)
	if err != nil {
		return err
	}
	if len(payload) > MaxMessageBytes {
		return fmt.Errorf("p2p: payload too large")
	}
	c4 := checksum4(payload)

	var hdr [TransportPrefixBytes]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	copy(hdr[4:16], cmd12[:])
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(payload)))
	copy(hdr[20:24], c4[:])

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err = w.Write(payload)
	return err
}

// ReadMessage reads exactly one framed message from r (§4.8 transport):
//   - magic mismatch => disconnect, not ban-worthy (likely wrong network)
//   - oversize payload_length => disconnect immediately, payload never read
//   - checksum mismatch => drop message (+10 ban), connection stays open
//   - truncated header => disconnect, no ban
//   - truncated payload => disconnect (+20 ban)
func ReadMessage(r io.Reader, expectedMagic uint32) (*Message, *ReadError) {
	var hdr [TransportPrefixBytes]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, &ReadError{Err: err, Disconnect: true}
	}

	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != expectedMagic {
		return nil, &ReadError{Err: fmt.Errorf("p2p: magic mismatch"), Disconnect: true}
	}

	var cmdBytes [CommandBytes]byte
	copy(cmdBytes[:], hdr[4:16])
	cmd, err := decodeCommand(cmdBytes)
	if err != nil {
		return nil, &ReadError{Err: err, BanScoreDelta: 10}
	}

	payloadLen := binary.LittleEndian.Uint32(hdr[16:20])
	if payloadLen > MaxMessageBytes {
		return nil, &ReadError{Err: fmt.Errorf("p2p: payload_length exceeds MaxMessageBytes"), Disconnect: true}
	}

	var expectedC4 [4]byte
	copy(expectedC4[:], hdr[20:24])

	payload := make([]byte, int(payloadLen))
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &ReadError{Err: err, BanScoreDelta: 20, Disconnect: true}
		}
	}

	if computed := checksum4(payload); !bytes.Equal(expectedC4[:], computed[:]) {
		return nil, &ReadError{Err: fmt.Errorf("p2p: checksum mismatch"), BanScoreDelta: 10}
	}

	return &Message{Magic: magic, Command: cmd, Payload: payload}, nil
}

// NetworkMagic derives a per-network transport magic from its name, so
// mainnet/testnet/devnet peers never interoperate (§6: "nodes on different
// networks never interoperate").
func NetworkMagic(networkName string) uint32 {
	h := primitives.HashRaw([]byte("tari-p2p-magic"), []byte(networkName))
	return binary.BigEndian.Uint32(h[:4])
}
