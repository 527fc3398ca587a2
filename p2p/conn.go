package p2p

import (
	"net"
	"time"
)

// Conn is the transport abstraction a Peer is built on: the core protocol
// never decides how bytes reach another node, only that a Conn can send
// and receive framed messages and be closed (explicit non-goal: choosing
// Tor vs clearnet vs a test pipe is a deployment decision, not a protocol
// one).
type Conn interface {
	Send(magic uint32, command string, payload []byte) error
	Recv(expectedMagic uint32) (*Message, *ReadError)
	Close() error
	RemoteAddr() string
}

// netConn adapts a net.Conn (TCP, Tor-proxied, or anything else Dial
// returns) to Conn.
type netConn struct {
	c net.Conn
}

// NewNetConn wraps an already-established net.Conn for use as a peer
// transport; dialing and listening remain the caller's responsibility.
func NewNetConn(c net.Conn) Conn {
	return &netConn{c: c}
}

func (n *netConn) Send(magic uint32, command string, payload []byte) error {
	return WriteMessage(n.c, magic, command, payload)
}

func (n *netConn) Recv(expectedMagic uint32) (*Message, *ReadError) {
	return ReadMessage(n.c, expectedMagic)
}

func (n *netConn) Close() error {
	return n.c.Close()
}

func (n *netConn) RemoteAddr() string {
	return n.c.RemoteAddr().String()
}

// SetDeadline lets a caller bound a single read/write round trip, e.g. the
// handshake timeout; only usable when the underlying Conn is a netConn
// wrapping a real net.Conn.
func SetDeadline(c Conn, t time.Time) error {
	nc, ok := c.(*netConn)
	if !ok {
		return nil
	}
	return nc.c.SetDeadline(t)
}
