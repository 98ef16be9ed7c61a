// Package node wires the ledger, proof-of-work engine, miner, RPC server
// and metrics endpoint into a runnable process.
package node

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/Klingon-tech/klingnet-ledger/internal/ledger"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/internal/miner"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 5 * time.Second

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	id     string
	logger zerolog.Logger

	// Core
	db     storage.DB
	ledger *ledger.Ledger
	engine *consensus.PoW
	miner  *miner.Miner

	// Surfaces
	rpcServer     *rpc.Server
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
}

// NewNodeID returns a random node identifier: a version 4 UUID as 32 hex
// characters without dashes.
func NewNodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New creates and initializes a Node. The RPC listener is bound here so
// RPCAddr is valid on return; background work starts in Run.
func New(cfg *config.Config) (*Node, error) {
	id := NewNodeID()
	logger := klog.Node.With().Str("node_id", id).Logger()

	// ── 1. Storage ──────────────────────────────────────────────────
	db, err := storage.Open(cfg.Ledger.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	logger.Info().Str("backend", cfg.Ledger.Storage).Msg("Block index opened")

	// ── 2. Metrics ──────────────────────────────────────────────────
	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		m, err = metrics.NewWithLabels(registry, metrics.Labels{NodeID: id})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	// ── 3. Ledger ───────────────────────────────────────────────────
	opts := []ledger.Option{
		ledger.WithStore(db),
		ledger.WithPoolLimit(cfg.Ledger.PoolLimit),
		ledger.WithLogger(klog.Ledger),
		ledger.WithGenesis(cfg.Ledger.GenesisHash, cfg.Ledger.GenesisProof),
	}
	if m != nil {
		opts = append(opts, ledger.WithMetrics(m))
	}
	l, err := ledger.New(opts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	// ── 4. Proof-of-work and miner ─────────────────────────────────
	threads := cfg.Mining.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	engine, err := consensus.NewPoW(cfg.Mining.Difficulty, threads)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pow engine: %w", err)
	}
	mn := miner.New(l, engine, id, m, klog.Miner)

	n := &Node{
		cfg:      cfg,
		id:       id,
		logger:   logger,
		db:       db,
		ledger:   l,
		engine:   engine,
		miner:    mn,
		registry: registry,
		metrics:  m,
	}

	// ── 5. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCListenAddr(), l, engine, mn, id, cfg.RPC)
		if m != nil {
			n.rpcServer.SetMetrics(m)
		}
		if err := n.rpcServer.Start(); err != nil {
			db.Close()
			return nil, fmt.Errorf("start rpc: %w", err)
		}
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	// ── 6. Metrics endpoint ────────────────────────────────────────
	if registry != nil {
		n.metricsServer = metrics.NewServer(cfg.MetricsListenAddr(), registry)
	}

	logger.Info().
		Int("difficulty", engine.Difficulty).
		Int("threads", threads).
		Int("pool_limit", cfg.Ledger.PoolLimit).
		Msg("Ledger node initialized")

	return n, nil
}

// Run starts background work and blocks until ctx is cancelled or a
// component fails. The RPC server, metrics endpoint and mining loop run
// under one errgroup; the first failure stops the rest. Run closes the
// node's storage before returning.
func (n *Node) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if n.rpcServer != nil {
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return n.rpcServer.Stop(sctx)
		})
	}

	if n.metricsServer != nil {
		g.Go(func() error {
			n.logger.Info().Str("addr", n.cfg.MetricsListenAddr()).Msg("Metrics server listening")
			return n.metricsServer.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return n.metricsServer.Shutdown(sctx)
		})
	}

	if n.cfg.Mining.Enabled {
		n.logger.Info().
			Dur("interval", n.cfg.Mining.Interval).
			Msg("Block production enabled")
		g.Go(func() error {
			return n.miner.Run(gctx, n.cfg.Mining.Interval)
		})
	}

	n.logger.Info().
		Int("length", n.ledger.Len()).
		Str("rpc", n.RPCAddr()).
		Bool("mining", n.cfg.Mining.Enabled).
		Msg("Node started successfully")

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if cerr := n.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close storage: %w", cerr)
	}

	if err != nil {
		n.logger.Error().Err(err).Msg("Node stopped with error")
		return err
	}
	n.logger.Info().Msg("Goodbye!")
	return nil
}

// ID returns the node identifier.
func (n *Node) ID() string {
	return n.id
}

// Ledger returns the node's ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}
