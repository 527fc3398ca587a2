package p2p

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	magic := NetworkMagic("devnet")
	payload := []byte("hello peer")

	if err := WriteMessage(&buf, magic, CmdPing, payload); err != nil {
		t.Fatal(err)
	}

	msg, rerr := ReadMessage(&buf, magic)
	if rerr != nil {
		t.Fatalf("ReadMessage returned error: %v", rerr)
	}
	if msg.Command != CmdPing {
		t.Fatalf("command = %q, want %q", msg.Command, CmdPing)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload = %q, want %q", msg.Payload, payload)
	}
}

func TestReadMessageEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	magic := NetworkMagic("devnet")
	if err := WriteMessage(&buf, magic, CmdVerack, nil); err != nil {
		t.Fatal(err)
	}
	msg, rerr := ReadMessage(&buf, magic)
	if rerr != nil {
		t.Fatalf("ReadMessage returned error: %v", rerr)
	}
	if len(msg.Payload) != 0 {
		t.Fatalf("payload = %v, want empty", msg.Payload)
	}
}

func TestReadMessageMagicMismatchDisconnects(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, NetworkMagic("devnet"), CmdPing, []byte("x")); err != nil {
		t.Fatal(err)
	}
	_, rerr := ReadMessage(&buf, NetworkMagic("testnet"))
	if rerr == nil {
		t.Fatal("expected a ReadError")
	}
	if !rerr.Disconnect {
		t.Fatalf("magic mismatch should disconnect")
	}
	if rerr.BanScoreDelta != 0 {
		t.Fatalf("magic mismatch should not be ban-worthy, got delta=%d", rerr.BanScoreDelta)
	}
}

func TestReadMessageChecksumMismatchBansWithoutDisconnect(t *testing.T) {
	var buf bytes.Buffer
	magic := NetworkMagic("devnet")
	if err := WriteMessage(&buf, magic, CmdPing, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	// Corrupt the checksum field (last 4 bytes of the 24-byte prefix).
	raw[23] ^= 0xFF

	_, rerr := ReadMessage(bytes.NewReader(raw), magic)
	if rerr == nil {
		t.Fatal("expected a ReadError")
	}
	if rerr.Disconnect {
		t.Fatalf("checksum mismatch should not disconnect")
	}
	if rerr.BanScoreDelta != 10 {
		t.Fatalf("checksum mismatch ban delta = %d, want 10", rerr.BanScoreDelta)
	}
}

func TestReadMessageOversizePayloadLengthDisconnects(t *testing.T) {
	var hdr [TransportPrefixBytes]byte
	magic := NetworkMagic("devnet")
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	cmd, err := encodeCommand(CmdPing)
	if err != nil {
		t.Fatal(err)
	}
	copy(hdr[4:16], cmd[:])
	binary.LittleEndian.PutUint32(hdr[16:20], MaxMessageBytes+1)

	_, rerr := ReadMessage(bytes.NewReader(hdr[:]), magic)
	if rerr == nil {
		t.Fatal("expected a ReadError")
	}
	if !rerr.Disconnect {
		t.Fatalf("oversize payload length should disconnect")
	}
}

func TestReadMessageTruncatedPayloadBansAndDisconnects(t *testing.T) {
	var buf bytes.Buffer
	magic := NetworkMagic("devnet")
	if err := WriteMessage(&buf, magic, CmdPing, []byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()[:TransportPrefixBytes+3] // truncate mid-payload

	_, rerr := ReadMessage(bytes.NewReader(raw), magic)
	if rerr == nil {
		t.Fatal("expected a ReadError")
	}
	if !rerr.Disconnect || rerr.BanScoreDelta != 20 {
		t.Fatalf("truncation should disconnect with ban delta 20, got disconnect=%v delta=%d", rerr.Disconnect, rerr.BanScoreDelta)
	}
}

func TestNetworkMagicDiffersPerNetwork(t *testing.T) {
	if NetworkMagic("mainnet") == NetworkMagic("testnet") {
		t.Fatal("mainnet and testnet must not share a magic")
	}
	if NetworkMagic("devnet") != NetworkMagic("devnet") {
		t.Fatal("NetworkMagic must be deterministic for a fixed network name")
	}
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, NetworkMagic("devnet"), CmdPing, make([]byte, MaxMessageBytes+1))
	if err == nil {
		t.Fatal("expected an error for oversized payload")
	}
}
