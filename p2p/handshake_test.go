package p2p

import (
	"net"
	"testing"
	"time"
)

func TestHandshakeSucceedsOverPipe(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	magic := NetworkMagic("devnet")
	client := NewNetConn(clientConn)
	server := NewNetConn(serverConn)

	clientVersion := VersionPayload{UserAgent: "client", StartHeight: 10}
	serverVersion := VersionPayload{UserAgent: "server", StartHeight: 20}

	clientResult := make(chan *HandshakeResult, 1)
	clientErr := make(chan error, 1)
	go func() {
		res, err := Handshake(client, magic, clientVersion)
		clientResult <- res
		clientErr <- err
	}()

	serverResult, err := Handshake(server, magic, serverVersion)
	if err != nil {
		t.Fatal(err)
	}
	if serverResult.PeerVersion.UserAgent != "client" {
		t.Fatalf("server saw user agent %q, want client", serverResult.PeerVersion.UserAgent)
	}

	select {
	case err := <-clientErr:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client handshake did not complete")
	}
	if (<-clientResult).PeerVersion.UserAgent != "server" {
		t.Fatal("client did not see the server's user agent")
	}
}

func TestHandshakeRejectsNetworkMismatch(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewNetConn(clientConn)
	server := NewNetConn(serverConn)

	done := make(chan error, 1)
	go func() {
		_, err := Handshake(client, NetworkMagic("mainnet"), VersionPayload{})
		done <- err
	}()

	_, err := Handshake(server, NetworkMagic("testnet"), VersionPayload{})
	if err == nil {
		t.Fatal("expected handshake to fail on a network-magic mismatch")
	}
	<-done
}
