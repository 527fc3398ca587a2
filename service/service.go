package service

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tari-project/basenode/chain"
	"github.com/tari-project/basenode/mempool"
	"github.com/tari-project/basenode/p2p"
	"github.com/tari-project/basenode/primitives"
	"github.com/tari-project/basenode/store"
	"github.com/tari-project/basenode/validator"
)

// storeUnspentLookup adapts *store.Store to validator.UnspentLookup /
// mempool's Revalidate argument, so mempool never imports store directly
// (spec.md §3 ownership model: "Mempool owns a reference... Chain State
// Store exclusively owns persistent datasets").
type storeUnspentLookup struct{ s *store.Store }

func (l storeUnspentLookup) LookupUnspent(commitment primitives.Commitment) (uint64, bool) {
	_, maturity, err := l.s.FetchUTXO(commitment)
	if err != nil {
		return 0, false
	}
	return maturity, true
}

// Service supervises one node's Chain State Store, Mempool, and P2P layer
// per §4.9: ordered startup (store, then mempool, then sync), a shared
// cancellation signal, and the background maintenance tasks §2 item 9
// names (validation/sync loops live inside p2p.Syncer; this is the
// mempool-maintenance and metrics-publishing loop).
//
// Grounded on the teacher's cmd/rubin-node/main.go startup ordering and
// node/p2p_runtime.go's supervisor shape, restructured around this
// module's Store/Mempool/p2p packages instead of the teacher's
// node/store+node/p2p.
type Service struct {
	cfg    Config
	params primitives.ChainParams
	log    *zap.Logger

	Store       *store.Store
	Mempool     *mempool.Pool
	Broadcaster *p2p.Broadcaster
	metrics     *Metrics

	listener net.Listener
	metricsS *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the Chain State Store at cfg.DataDir (applying genesis if the
// store is empty) and constructs the Mempool validated against the
// resulting tip. It does not yet start any background task or network
// listener; call Start for that.
func New(cfg Config, params primitives.ChainParams, genesis *chain.Block, log *zap.Logger) (*Service, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		var err error
		log, err = newLogger(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.ChainDBPath(), params, genesis)
	if err != nil {
		return nil, fmt.Errorf("service: open store: %w", err)
	}

	tip, err := st.Tip()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("service: read tip: %w", err)
	}

	pool := mempool.New(mempool.DefaultConfig(params), tip.Height, storeUnspentLookup{s: st})

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:         cfg,
		params:      params,
		log:         log,
		Store:       st,
		Mempool:     pool,
		Broadcaster: p2p.NewBroadcaster(),
		metrics:     newMetrics(),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("service: invalid log level %q: %w", level, err)
	}
	return cfg.Build()
}

// Start launches every background task: the mempool-maintenance loop, the
// metrics-publishing loop, the inbound P2P listener (if cfg.BindAddr is
// set), and an outbound dial for every configured peer. All tasks honor
// Stop's cancellation signal (§5: "every public operation accepts a
// cancellation handle").
func (s *Service) Start() error {
	s.wg.Add(1)
	go s.mempoolMaintenanceLoop()

	s.wg.Add(1)
	go s.metricsUpdateLoop()

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.metricsS = &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.metricsS.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if s.cfg.BindAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.BindAddr)
		if err != nil {
			return fmt.Errorf("service: listen %s: %w", s.cfg.BindAddr, err)
		}
		s.listener = ln
		s.wg.Add(1)
		go s.acceptLoop(ln)
	}

	for _, addr := range s.cfg.Peers {
		addr := addr
		s.wg.Add(1)
		go s.dialLoop(addr)
	}

	s.log.Info("service started",
		zap.String("network", s.params.NetworkName),
		zap.String("bind", s.cfg.BindAddr),
		zap.Int("configured_peers", len(s.cfg.Peers)),
	)
	return nil
}

// Stop cancels every background task, waits for them to exit, closes the
// listener/metrics server, and finally closes the Chain State Store.
func (s *Service) Stop() error {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.metricsS != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metricsS.Shutdown(shutdownCtx)
	}
	s.wg.Wait()
	return s.Store.Close()
}

func (s *Service) mempoolMaintenanceLoop() {
	defer s.wg.Done()
	interval := s.cfg.MempoolMaintenanceInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tips := s.Store.Subscribe()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Mempool.AgeOut(time.Now(), 72*time.Hour)
		case tip := <-tips:
			s.Mempool.Revalidate(tip.Height, storeUnspentLookup{s: s.Store})
		}
	}
}

func (s *Service) metricsUpdateLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *Service) publishMetrics() {
	if tip, err := s.Store.Tip(); err == nil {
		s.metrics.ChainHeight.Set(float64(tip.Height))
	}
	s.metrics.MempoolSize.Set(float64(s.Mempool.Len()))
	if total := s.Store.TotalAccumulatedDifficulty(); total != nil {
		asFloat := new(big.Float).SetInt(total)
		f, _ := asFloat.Float64()
		s.metrics.TotalAccumDifficulty.Set(f)
	}
}

func (s *Service) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.log.Warn("accept failed", zap.Error(err))
				return
			}
		}
		s.wg.Add(1)
		go s.servePeer(p2p.NewNetConn(conn), p2p.RoleInbound)
	}
}

func (s *Service) dialLoop(addr string) {
	defer s.wg.Done()
	backoff := time.Second
	const maxBackoff = time.Minute
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			s.log.Debug("dial failed, backing off", zap.String("addr", addr), zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		s.wg.Add(1)
		s.servePeer(p2p.NewNetConn(conn), p2p.RoleOutbound)
		s.wg.Done()
	}
}

func (s *Service) servePeer(conn p2p.Conn, role p2p.PeerRole) {
	defer s.wg.Done()
	defer conn.Close()

	magic := p2p.NetworkMagic(s.params.NetworkName)
	ours := p2p.VersionPayload{
		Timestamp:                  time.Now().Unix(),
		UserAgent:                  "tari-basenode",
		TotalAccumulatedDifficulty: s.Store.TotalAccumulatedDifficulty(),
	}
	if t, err := s.Store.Tip(); err == nil {
		ours.StartHeight = t.Height
	}

	result, err := p2p.Handshake(conn, magic, ours)
	if err != nil {
		s.log.Debug("handshake failed", zap.Error(err))
		return
	}

	peer := p2p.NewPeer(conn, role, p2p.PeerConfig{Magic: magic, OurVersion: ours, IdleTimeout: 10 * time.Second}, result.PeerVersion)
	s.Broadcaster.Register(peer)
	defer s.Broadcaster.Unregister(peer)
	s.metrics.PeersConnected.Inc()
	defer s.metrics.PeersConnected.Dec()

	node := &p2p.Node{Store: s.Store, Mempool: s.Mempool}
	handler := p2p.NewNodeHandler(node, peer, s.Broadcaster)
	syncer := p2p.NewSyncer(node, peer, handler)

	runCtx, runCancel := context.WithCancel(s.ctx)
	defer runCancel()
	go func() {
		if err := syncer.MaybeSync(runCtx, result.PeerVersion.TotalAccumulatedDifficulty); err != nil {
			s.log.Debug("sync round failed", zap.Error(err))
		}
	}()

	if err := peer.Run(runCtx, handler); err != nil {
		s.log.Debug("peer connection closed", zap.Error(err))
	}
}

// Snapshot returns a read-only query façade over the current chain state
// and mempool, the boundary RPC/wallet callers read through (§4.9: "no RPC
// handler holds a write lock").
func (s *Service) Snapshot() Snapshot {
	return Snapshot{store: s.Store, pool: s.Mempool}
}

var _ validator.UnspentLookup = storeUnspentLookup{}
