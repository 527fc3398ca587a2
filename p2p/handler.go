package p2p

import (
	"fmt"
	"sync"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/primitives"
)

// NodeHandler implements PeerHandler against one Node for one peer
// connection. It both answers the peer's requests (serving our chain
// state and mempool) and feeds whatever Syncer is driving this connection
// the Headers/Block responses it is waiting on. One NodeHandler belongs to
// exactly one Peer; two peers never share an instance.
type NodeHandler struct {
	node *Node
	peer *Peer

	mu            sync.Mutex
	headerWaiters []chan []chain.BlockHeader
	blockWaiter   chan *chain.Block

	broadcaster *Broadcaster
}

func NewNodeHandler(node *Node, peer *Peer, broadcaster *Broadcaster) *NodeHandler {
	return &NodeHandler{node: node, peer: peer, broadcaster: broadcaster}
}

func (h *NodeHandler) awaitHeaders() <-chan []chain.BlockHeader {
	ch := make(chan []chain.BlockHeader, 1)
	h.mu.Lock()
	h.headerWaiters = append(h.headerWaiters, ch)
	h.mu.Unlock()
	return ch
}

func (h *NodeHandler) awaitBlocks(n int) <-chan *chain.Block {
	ch := make(chan *chain.Block, n)
	h.mu.Lock()
	h.blockWaiter = ch
	h.mu.Unlock()
	return ch
}

func (h *NodeHandler) OnGetHeaders(p *Peer, req GetHeadersPayload) (HeadersPayload, error) {
	resolved := uint64(0)
	found := false
	for _, hash := range req.FromHashes {
		block, err := h.node.Store.FetchBlockByHash(hash)
		if err != nil {
			continue
		}
		resolved = block.Header.Height
		found = true
		break
	}
	if !found {
		return HeadersPayload{}, nil
	}

	count := int(req.Count)
	if count <= 0 || count > MaxHeadersPerMsg {
		count = MaxHeadersPerMsg
	}
	headers, err := h.node.Store.FetchHeaderChain(resolved+1, count)
	if err != nil {
		return HeadersPayload{}, err
	}
	return HeadersPayload{Headers: headers}, nil
}

func (h *NodeHandler) OnHeaders(p *Peer, headers HeadersPayload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.headerWaiters) == 0 {
		return nil
	}
	waiter := h.headerWaiters[0]
	h.headerWaiters = h.headerWaiters[1:]
	waiter <- headers.Headers
	return nil
}

func (h *NodeHandler) OnGetBlocks(p *Peer, req GetBlocksPayload) ([]chain.Block, error) {
	out := make([]chain.Block, 0, len(req.Hashes))
	for _, hash := range req.Hashes {
		block, err := h.node.Store.FetchBlockByHash(hash)
		if err != nil {
			continue
		}
		out = append(out, *block)
	}
	return out, nil
}

func (h *NodeHandler) OnBlock(p *Peer, block chain.Block) error {
	h.mu.Lock()
	waiter := h.blockWaiter
	h.mu.Unlock()
	if waiter != nil {
		waiter <- &block
		return nil
	}
	// Unsolicited block (e.g. following a NewBlockAnnounce): apply directly.
	if _, err := h.node.Store.ApplyBlock(&block); err != nil {
		return fmt.Errorf("p2p: apply unsolicited block: %w", err)
	}
	if h.broadcaster != nil {
		h.broadcaster.MarkSeenBlock(block.Header.Hash())
	}
	return nil
}

func (h *NodeHandler) OnNewBlockAnnounce(p *Peer, ann NewBlockAnnouncePayload) error {
	if _, err := h.node.Store.FetchBlockByHash(ann.Header.Hash()); err == nil {
		return nil // already have it
	}

	kernels := make([]chain.Kernel, 0, len(ann.KernelExcesses)+1)
	outputs := make([]chain.Output, 0, 1)
	outputs = append(outputs, ann.CoinbaseOutput)
	kernels = append(kernels, ann.CoinbaseKernel)

	missing := false
	txs := h.node.Mempool.GetMany(ann.KernelExcesses)
	if len(txs) != len(ann.KernelExcesses) {
		missing = true
	}
	for i := range txs {
		kernels = append(kernels, txs[i].Body.Kernels...)
		outputs = append(outputs, txs[i].Body.Outputs...)
	}

	if missing {
		payload, err := EncodeGetBlocksPayload(GetBlocksPayload{Hashes: []primitives.Hash{ann.Header.Hash()}})
		if err != nil {
			return err
		}
		return p.Send(CmdGetBlocks, payload)
	}

	if h.broadcaster != nil {
		h.broadcaster.MarkSeenBlock(ann.Header.Hash())
	}
	return nil
}

func (h *NodeHandler) OnGetMempoolTx(p *Peer, req GetMempoolTxPayload) ([]chain.Transaction, error) {
	return h.node.Mempool.GetMany(req.Excesses), nil
}

func (h *NodeHandler) OnTx(p *Peer, tx chain.Transaction) error {
	if err := h.node.Mempool.Add(&tx); err != nil {
		return err
	}
	if h.broadcaster != nil && len(tx.Body.Kernels) > 0 {
		excess := tx.Body.Kernels[0].Excess
		h.broadcaster.MarkSeenTx(excess)
		h.broadcaster.BroadcastNewTx(excess, p)
	}
	return nil
}

func (h *NodeHandler) OnNewTxAnnounce(p *Peer, excess primitives.Commitment) error {
	if h.node.Mempool.Has(excess) {
		return nil
	}
	if h.broadcaster != nil && h.broadcaster.SeenTx(excess) {
		return nil
	}
	payload, err := EncodeGetMempoolTxPayload(GetMempoolTxPayload{Excesses: []primitives.Commitment{excess}})
	if err != nil {
		return err
	}
	return p.Send(CmdGetMempoolTx, payload)
}
