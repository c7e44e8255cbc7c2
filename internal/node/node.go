// Package node assembles storage, wallet, issuance, networking and RPC
// into a running neblio node that any binary can embed.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	klog "github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/internal/mempool"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/p2p"
	"github.com/HUSKI3/Neblio-Node/internal/rpc"
	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/internal/wallet"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

const (
	decodeCacheTTL   = 30 * time.Minute
	mempoolMaxAge    = 72 * time.Hour
	mempoolSweepTick = 10 * time.Minute
)

// Node is a fully-initialized neblio node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db          storage.DB
	utxoStore   *utxo.Store
	tokenStore  *ntp1.Store
	decodeCache *ntp1.DecodeCache
	parser      *ntp1.Parser
	pool        *mempool.Pool
	registry    *prometheus.Registry

	// Wallet, nil when no keystore exists.
	wallet *wallet.Wallet
	issuer *issuance.Issuer

	p2pNode   *p2p.Node
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires every component. Nothing listens on the network
// until Start.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Address version ──────────────────────────────────────────
	types.SetAddressVersion(config.AddressVersion(cfg.Network))

	// ── 2. Logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		if err := os.MkdirAll(cfg.LogsDir(), 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(cfg.LogsDir(), "nebliod.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node
	logger.Info().
		Str("network", string(cfg.Network)).
		Str("version", config.Version).
		Msg("Starting Neblio node")

	// ── 3. Storage ──────────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	n, err := assemble(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

// assemble builds the node on an open database.
func assemble(cfg *config.Config, db storage.DB, logger zerolog.Logger) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		utxoStore:  utxo.NewStore(db),
		tokenStore: ntp1.NewStore(db),
		registry:   prometheus.NewRegistry(),
		ctx:        ctx,
		cancel:     cancel,
	}
	n.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ── 4. NTP1 decoder ─────────────────────────────────────────────
	dc, err := ntp1.NewDecodeCache(ctx, decodeCacheTTL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create decode cache: %w", err)
	}
	n.decodeCache = dc
	n.parser = ntp1.NewParser(ntp1.WithCache(dc))

	// ── 5. Mempool ──────────────────────────────────────────────────
	maxSize := cfg.Mempool.MaxSize
	if maxSize <= 0 {
		maxSize = mempool.DefaultMaxSize
	}
	n.pool = mempool.New(n.utxoStore, maxSize)
	n.pool.SetTokenValidator(n.parser, n.tokenStore)
	logger.Info().Int("max_size", maxSize).Msg("Mempool ready")

	// ── 6. P2P ──────────────────────────────────────────────────────
	if cfg.P2P.Enabled {
		n.p2pNode = p2p.New(p2p.Config{
			ListenAddr: cfg.P2P.ListenAddr,
			Port:       cfg.P2P.Port,
			Seeds:      cfg.P2P.Seeds,
			MaxPeers:   cfg.P2P.MaxPeers,
			NoDiscover: cfg.P2P.NoDiscover,
			DHTServer:  cfg.P2P.DHTServer,
			NetworkID:  string(cfg.Network),
			KeyFile:    cfg.NodeKeyFile(),
			DB:         db,
		})
		n.p2pNode.SetTxHandler(n.handleGossipTx)
	} else {
		logger.Warn().Msg("P2P disabled by config; transactions will not be relayed")
	}

	// ── 7. Wallet and issuance ──────────────────────────────────────
	if cfg.Wallet.Enabled {
		if err := n.openWallet(); err != nil {
			n.release()
			return nil, err
		}
	}

	// ── 8. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		deps := rpc.Deps{
			Network: cfg.Network,
			Wallet:  n.wallet,
			Issuer:  n.issuer,
			Tokens:  n.tokenStore,
			Decoder: n.parser,
			Pool:    n.pool,
			P2P:     n.p2pNode,
		}
		if cfg.Metrics.Enabled {
			deps.Gatherer = n.registry
		}
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, deps, cfg.RPC)
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}
	return n, nil
}

func (n *Node) openWallet() error {
	ks, err := wallet.NewKeystore(n.cfg.WalletFile())
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	if !ks.Exists() {
		n.logger.Warn().
			Str("path", ks.Path()).
			Msg("No wallet found; running without one. Create it with `neblio-cli wallet create`")
		return nil
	}

	deps := wallet.Deps{
		Keystore: ks,
		DB:       n.db,
		UTXOs:    n.utxoStore,
		Tokens:   n.tokenStore,
		Decoder:  n.parser,
		Pool:     n.pool,
	}
	if n.p2pNode != nil {
		deps.Broadcaster = n.p2pNode
	}
	w, err := wallet.New(deps)
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	n.wallet = w
	n.issuer = issuance.NewIssuer(n.issuanceServices(), issuance.WithMetrics(n.issuanceMetrics()))

	n.logger.Info().Str("path", ks.Path()).Int("addresses", len(w.Addresses())).Msg("Wallet loaded (locked)")
	return nil
}

func (n *Node) issuanceServices() issuance.Services {
	return issuance.Services{
		Wallet:      n.wallet,
		Funding:     n.wallet,
		Constructor: n.wallet,
		Decoder:     ntp1.NewParser(), // drafts are verified by an uncached decode
		Inputs:      n.tokenStore,
		Committer:   n.wallet,
	}
}

func (n *Node) issuanceMetrics() *issuance.Metrics {
	if !n.cfg.Metrics.Enabled {
		return nil
	}
	return issuance.NewMetrics(n.registry, n.cfg.Metrics.Namespace)
}

// handleGossipTx admits a relayed transaction to the mempool and lets the
// wallet pick up anything that concerns it.
func (n *Node) handleGossipTx(from peer.ID, t *tx.Transaction) {
	txid := t.Hash()
	if _, err := n.pool.Add(t); err != nil {
		klog.Mempool.Debug().Str("txid", txid.String()).Str("peer", from.String()).Err(err).Msg("Relayed tx not pooled")
	}
	if n.wallet == nil {
		return
	}
	relevant, err := n.wallet.AddTransaction(n.ctx, t, 0)
	if err != nil {
		n.logger.Debug().Str("txid", txid.String()).Err(err).Msg("Wallet ignored relayed tx")
		return
	}
	if relevant {
		n.logger.Info().Str("txid", txid.String()).Msg("Wallet transaction received")
	}
}

// Start brings up networking, RPC and the background loops.
func (n *Node) Start() error {
	if n.p2pNode != nil {
		if err := n.p2pNode.Start(); err != nil {
			return fmt.Errorf("start p2p: %w", err)
		}
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start RPC: %w", err)
		}
	}

	if n.wallet != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.wallet.RunBalanceRefresher(n.ctx, n.cfg.Wallet.RefreshInterval)
		}()
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runMempoolSweep()
	}()

	n.logger.Info().
		Bool("wallet", n.wallet != nil).
		Bool("p2p", n.p2pNode != nil).
		Str("rpc", n.RPCAddr()).
		Msg("Node started")
	return nil
}

// runMempoolSweep drops transactions that have waited too long.
func (n *Node) runMempoolSweep() {
	ticker := time.NewTicker(mempoolSweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case now := <-ticker.C:
			if expired := n.pool.Expire(now, mempoolMaxAge); len(expired) > 0 {
				klog.Mempool.Info().Int("count", len(expired)).Msg("Expired stale transactions")
			}
		}
	}
}

// Stop shuts down in reverse order of Start.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.p2pNode != nil {
		n.p2pNode.Stop()
	}
	if n.wallet != nil {
		n.wallet.Lock()
	}
	n.release()
	if n.db != nil {
		n.db.Close()
	}
	n.logger.Info().Msg("Goodbye!")
}

// release frees what assemble allocated. The database is the caller's.
func (n *Node) release() {
	n.cancel()
	if n.decodeCache != nil {
		n.decodeCache.Close()
	}
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Wallet returns the loaded wallet, or nil.
func (n *Node) Wallet() *wallet.Wallet { return n.wallet }

// Issuer returns the token issuer, or nil without a wallet.
func (n *Node) Issuer() *issuance.Issuer { return n.issuer }
