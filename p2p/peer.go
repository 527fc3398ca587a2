package p2p

import (
	"context"
	"fmt"
	"time"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

type PeerRole int

const (
	RoleOutbound PeerRole = iota
	RoleInbound
)

// PeerHandler reacts to messages a Peer's Run loop decodes; every method
// returning an error causes Run to apply a ban-score penalty and, for the
// more severe faults, disconnect (mirrors the teacher's peer.go dispatch
// table, generalized to §4.8's message set).
type PeerHandler interface {
	OnGetHeaders(p *Peer, req GetHeadersPayload) (HeadersPayload, error)
	OnHeaders(p *Peer, headers HeadersPayload) error
	OnGetBlocks(p *Peer, req GetBlocksPayload) ([]chain.Block, error)
	OnBlock(p *Peer, block chain.Block) error
	OnNewBlockAnnounce(p *Peer, ann NewBlockAnnouncePayload) error
	OnGetMempoolTx(p *Peer, req GetMempoolTxPayload) ([]chain.Transaction, error)
	OnTx(p *Peer, tx chain.Transaction) error
	OnNewTxAnnounce(p *Peer, excess primitives.Commitment) error
}

type PeerConfig struct {
	Magic       uint32
	OurVersion  VersionPayload
	IdleTimeout time.Duration
}

// Peer wraps a handshaken Conn with ban-score bookkeeping and a
// read-dispatch loop, the way the teacher's peer.go does.
type Peer struct {
	Conn        Conn
	Role        PeerRole
	Config      PeerConfig
	PeerVersion VersionPayload
	Ban         BanScore
}

func NewPeer(conn Conn, role PeerRole, cfg PeerConfig, peerVersion VersionPayload) *Peer {
	return &Peer{Conn: conn, Role: role, Config: cfg, PeerVersion: peerVersion}
}

func (p *Peer) Send(command string, payload []byte) error {
	return p.Conn.Send(p.Config.Magic, command, payload)
}

// Run reads messages until ctx is cancelled, the connection errs, or a
// fault crosses the ban threshold. It never returns nil error on its own
// initiative; callers decide reconnection/backoff policy.
func (p *Peer) Run(ctx context.Context, h PeerHandler) error {
	type readResult struct {
		msg  *Message
		rerr *ReadError
	}
	results := make(chan readResult, 1)

	for {
		go func() {
			msg, rerr := p.Conn.Recv(p.Config.Magic)
			results <- readResult{msg: msg, rerr: rerr}
		}()

		var res readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res = <-results:
		}

		if res.rerr != nil {
			if res.rerr.BanScoreDelta > 0 {
				p.Ban.Add(nowFunc(), res.rerr.BanScoreDelta)
			}
			if res.rerr.Disconnect || p.Ban.ShouldBan(nowFunc()) {
				return fmt.Errorf("p2p: peer %s: %w", p.Conn.RemoteAddr(), res.rerr)
			}
			continue
		}

		if err := p.dispatch(h, res.msg); err != nil {
			p.Ban.Add(nowFunc(), 10)
			if p.Ban.ShouldBan(nowFunc()) {
				return fmt.Errorf("p2p: peer %s banned: %w", p.Conn.RemoteAddr(), err)
			}
		}
	}
}

func (p *Peer) dispatch(h PeerHandler, msg *Message) error {
	switch msg.Command {
	case CmdPing:
		ping, err := DecodePingPayload(msg.Payload)
		if err != nil {
			return err
		}
		return p.Send(CmdPong, EncodePongPayload(PongPayload{Nonce: ping.Nonce}))

	case CmdPong:
		_, err := DecodePongPayload(msg.Payload)
		return err

	case CmdGetHeaders:
		req, err := DecodeGetHeadersPayload(msg.Payload)
		if err != nil {
			return err
		}
		resp, err := h.OnGetHeaders(p, *req)
		if err != nil {
			return err
		}
		encoded, err := EncodeHeadersPayload(resp)
		if err != nil {
			return err
		}
		return p.Send(CmdHeaders, encoded)

	case CmdHeaders:
		payload, err := DecodeHeadersPayload(msg.Payload)
		if err != nil {
			return err
		}
		return h.OnHeaders(p, *payload)

	case CmdGetBlocks:
		req, err := DecodeGetBlocksPayload(msg.Payload)
		if err != nil {
			return err
		}
		blocks, err := h.OnGetBlocks(p, *req)
		if err != nil {
			return err
		}
		for i := range blocks {
			encoded := EncodeBlockPayload(BlockPayload{Block: blocks[i]})
			if err := p.Send(CmdBlock, encoded); err != nil {
				return err
			}
		}
		return nil

	case CmdBlock:
		payload, err := DecodeBlockPayload(msg.Payload)
		if err != nil {
			return err
		}
		return h.OnBlock(p, payload.Block)

	case CmdNewBlockAnnounce:
		payload, err := DecodeNewBlockAnnouncePayload(msg.Payload)
		if err != nil {
			return err
		}
		return h.OnNewBlockAnnounce(p, *payload)

	case CmdGetMempoolTx:
		req, err := DecodeGetMempoolTxPayload(msg.Payload)
		if err != nil {
			return err
		}
		txs, err := h.OnGetMempoolTx(p, *req)
		if err != nil {
			return err
		}
		for i := range txs {
			if err := p.Send(CmdTx, EncodeTransaction(&txs[i])); err != nil {
				return err
			}
		}
		return nil

	case CmdTx:
		tx, err := DecodeTransaction(msg.Payload)
		if err != nil {
			return err
		}
		return h.OnTx(p, *tx)

	case CmdNewTxAnnounce:
		payload, err := DecodeNewTxAnnouncePayload(msg.Payload)
		if err != nil {
			return err
		}
		return h.OnNewTxAnnounce(p, payload.Excess)

	default:
		return fmt.Errorf("p2p: unknown command %q", msg.Command)
	}
}

// nowFunc is a seam so ban-score decay in the Run loop stays testable
// without depending on wall-clock time directly in tests.
var nowFunc = time.Now
