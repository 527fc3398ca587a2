package p2p

import (
	"fmt"
	"math/big"
	"time"
)

// HandshakeTimeout bounds the whole version/verack exchange, adapted from
// the teacher's handshake.go HandshakeTimeout.
const HandshakeTimeout = 10 * time.Second

// HandshakeResult carries what the local side learned about the remote
// peer during the version exchange, enough for the sync state machine to
// decide whether this peer is worth probing further (§4.8/§9).
type HandshakeResult struct {
	PeerVersion VersionPayload
}

// Handshake performs the version/verack exchange over conn. It validates
// only the transport-level magic (wrong network, same policy as
// ReadMessage's own magic check); the sync state machine, not the
// handshake, decides what to do with the peer's claimed
// TotalAccumulatedDifficulty.
func Handshake(conn Conn, magic uint32, ours VersionPayload) (*HandshakeResult, error) {
	deadline := time.Now().Add(HandshakeTimeout)
	_ = SetDeadline(conn, deadline)
	defer SetDeadline(conn, time.Time{})

	ours.ProtocolVersion = ProtocolVersionV1
	ours.NetworkMagic = magic
	payload, err := EncodeVersionPayload(ours)
	if err != nil {
		return nil, fmt.Errorf("p2p: handshake: encode local version: %w", err)
	}
	if err := conn.Send(magic, CmdVersion, payload); err != nil {
		return nil, fmt.Errorf("p2p: handshake: send version: %w", err)
	}

	msg, rerr := conn.Recv(magic)
	if rerr != nil {
		return nil, fmt.Errorf("p2p: handshake: recv version: %w", rerr)
	}
	if msg.Command != CmdVersion {
		return nil, fmt.Errorf("p2p: handshake: expected version, got %q", msg.Command)
	}
	peerVersion, err := DecodeVersionPayload(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("p2p: handshake: decode peer version: %w", err)
	}
	if peerVersion.NetworkMagic != magic {
		return nil, fmt.Errorf("p2p: handshake: peer is on a different network")
	}
	if peerVersion.TotalAccumulatedDifficulty == nil {
		peerVersion.TotalAccumulatedDifficulty = big.NewInt(0)
	}

	if err := conn.Send(magic, CmdVerack, nil); err != nil {
		return nil, fmt.Errorf("p2p: handshake: send verack: %w", err)
	}
	ackMsg, rerr := conn.Recv(magic)
	if rerr != nil {
		return nil, fmt.Errorf("p2p: handshake: recv verack: %w", rerr)
	}
	if ackMsg.Command != CmdVerack {
		return nil, fmt.Errorf("p2p: handshake: expected verack, got %q", ackMsg.Command)
	}

	return &HandshakeResult{PeerVersion: *peerVersion}, nil
}
