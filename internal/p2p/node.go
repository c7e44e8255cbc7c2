// Package p2p relays transactions between neblio nodes over libp2p GossipSub.
package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	klog "github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
)

const (
	// rendezvousFallback is the discovery namespace when no NetworkID is set.
	rendezvousFallback = "neblio"

	seedRetryInterval  = 10 * time.Second
	seedConnectTimeout = 10 * time.Second
)

// ErrNotStarted is returned by operations that need a running host.
var ErrNotStarted = errors.New("p2p node not started")

// Config holds P2P node configuration.
type Config struct {
	ListenAddr string
	Port       int
	Seeds      []string
	MaxPeers   int
	NoDiscover bool
	DHTServer  bool
	NetworkID  string     // isolates discovery per network, e.g. "mainnet"
	KeyFile    string     // persisted node identity; empty means ephemeral
	DB         storage.DB // peer persistence; nil disables it
}

// TxHandler receives a decoded transaction gossiped by a peer.
type TxHandler func(from peer.ID, t *tx.Transaction)

// Node is a libp2p host subscribed to the transaction topic.
type Node struct {
	host   host.Host
	pubsub *pubsub.PubSub
	config Config
	ctx    context.Context
	cancel context.CancelFunc

	topicTx *pubsub.Topic
	subTx   *pubsub.Subscription

	hmu       sync.RWMutex
	txHandler TxHandler

	mu    sync.RWMutex
	peers map[peer.ID]*Peer

	peerStore  *PeerStore
	dht        *dht.IpfsDHT
	mdns       mdns.Service
	connNotify *connNotifier
}

// New creates a node. Nothing touches the network until Start.
func New(cfg Config) *Node {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		peers:  make(map[peer.ID]*Peer),
	}
	if cfg.DB != nil {
		n.peerStore = NewPeerStore(cfg.DB)
	}
	return n
}

func (n *Node) rendezvous() string {
	if n.config.NetworkID != "" {
		return rendezvousPrefix + n.config.NetworkID
	}
	return rendezvousFallback
}

// Start creates the libp2p host, joins the transaction topic and starts
// discovery.
func (n *Node) Start() error {
	addr := fmt.Sprintf("/ip4/%s/tcp/%d", n.config.ListenAddr, n.config.Port)
	opts := []libp2p.Option{libp2p.ListenAddrStrings(addr)}

	if n.config.KeyFile != "" {
		priv, err := loadOrCreateIdentity(n.config.KeyFile)
		if err != nil {
			return fmt.Errorf("load p2p identity: %w", err)
		}
		opts = append(opts, libp2p.Identity(priv))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return fmt.Errorf("create libp2p host: %w", err)
	}
	n.host = h

	n.connNotify = &connNotifier{node: n}
	h.Network().Notify(n.connNotify)

	if !n.config.NoDiscover {
		if err := n.initDHT(); err != nil {
			h.Close()
			return fmt.Errorf("init dht: %w", err)
		}
	}

	ps, err := pubsub.NewGossipSub(n.ctx, h, pubsub.WithMaxMessageSize(MaxMessageSize))
	if err != nil {
		n.closeDHT()
		h.Close()
		return fmt.Errorf("create pubsub: %w", err)
	}
	n.pubsub = ps

	if n.topicTx, err = ps.Join(TopicTransactions); err != nil {
		n.closeDHT()
		h.Close()
		return fmt.Errorf("join tx topic: %w", err)
	}
	if n.subTx, err = n.topicTx.Subscribe(); err != nil {
		n.closeDHT()
		h.Close()
		return fmt.Errorf("subscribe tx: %w", err)
	}

	go n.readLoop()
	go n.loadPersistedPeers()

	if len(n.config.Seeds) > 0 {
		klog.P2P.Info().Int("seeds", len(n.config.Seeds)).Msg("Connecting to seeds...")
	}
	n.connectSeedsOnce()
	go n.connectSeedsLoop()

	if !n.config.NoDiscover {
		n.startMDNS()
		go n.runDHTDiscovery()
	}
	if n.peerStore != nil {
		go n.runPersistLoop()
	}

	klog.P2P.Info().Str("id", h.ID().String()).Strs("addrs", n.Addrs()).Msg("P2P node started")
	return nil
}

// Stop persists known peers and shuts the host down.
func (n *Node) Stop() error {
	n.persistPeers()

	n.cancel()
	if n.subTx != nil {
		n.subTx.Cancel()
	}
	if n.topicTx != nil {
		n.topicTx.Close()
	}
	if n.mdns != nil {
		n.mdns.Close()
	}
	n.closeDHT()
	if n.host != nil {
		return n.host.Close()
	}
	return nil
}

// ID returns the peer ID of this node, empty before Start.
func (n *Node) ID() peer.ID {
	if n.host == nil {
		return ""
	}
	return n.host.ID()
}

// Addrs returns the full multiaddrs of this node.
func (n *Node) Addrs() []string {
	if n.host == nil {
		return nil
	}
	var addrs []string
	for _, a := range n.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", a, n.host.ID()))
	}
	return addrs
}

// SetTxHandler registers the callback for gossiped transactions.
func (n *Node) SetTxHandler(fn TxHandler) {
	n.hmu.Lock()
	n.txHandler = fn
	n.hmu.Unlock()
}

// Broadcast publishes a transaction on the gossip topic.
func (n *Node) Broadcast(ctx context.Context, t *tx.Transaction) error {
	if n.topicTx == nil {
		return ErrNotStarted
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tx: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("tx message too large: %d bytes", len(data))
	}
	return n.topicTx.Publish(ctx, data)
}

// PeerCount returns the number of connected peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// PeerList returns a snapshot of connected peers.
func (n *Node) PeerList() []Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Peer, 0, len(n.peers))
	for _, p := range n.peers {
		cp := *p
		if n.host != nil {
			for _, a := range n.host.Peerstore().Addrs(p.ID) {
				cp.Addrs = append(cp.Addrs, a.String())
			}
		}
		out = append(out, cp)
	}
	return out
}

// addPeer records a peer. An empty source never overwrites a known one.
func (n *Node) addPeer(id peer.ID, source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.peers[id]; ok {
		if p.Source == "" {
			p.Source = source
		}
		return
	}
	n.peers[id] = &Peer{ID: id, ConnectedAt: time.Now(), Source: source}
}

func (n *Node) removePeer(id peer.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, id)
}

func (n *Node) readLoop() {
	for {
		msg, err := n.subTx.Next(n.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		n.handleTxMessage(msg)
	}
}

func (n *Node) handleTxMessage(msg *pubsub.Message) {
	defer func() {
		if r := recover(); r != nil {
			klog.P2P.Error().Interface("panic", r).Msg("Tx handler panicked")
		}
	}()
	n.addPeer(msg.ReceivedFrom, SourceGossip)

	n.hmu.RLock()
	handler := n.txHandler
	n.hmu.RUnlock()
	if handler == nil {
		return
	}

	var t tx.Transaction
	if err := json.Unmarshal(msg.Data, &t); err != nil {
		klog.P2P.Debug().Str("peer", shortID(msg.ReceivedFrom)).Err(err).Msg("Dropping malformed tx message")
		return
	}
	handler(msg.ReceivedFrom, &t)
}

// connectSeedsOnce dials every seed once. Returns true if any connected.
func (n *Node) connectSeedsOnce() bool {
	connected := false
	for _, addr := range n.config.Seeds {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			klog.P2P.Warn().Str("addr", addr).Err(err).Msg("Bad seed address")
			continue
		}
		ctx, cancel := context.WithTimeout(n.ctx, seedConnectTimeout)
		err = n.host.Connect(ctx, *info)
		cancel()
		if err != nil {
			klog.P2P.Warn().Str("peer", shortID(info.ID)).Err(err).Msg("Seed connect failed")
			continue
		}
		n.addPeer(info.ID, SourceSeed)
		klog.P2P.Info().Str("peer", shortID(info.ID)).Msg("Seed connected")
		connected = true
	}
	return connected
}

func (n *Node) connectSeedsLoop() {
	if len(n.config.Seeds) == 0 {
		return
	}
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-time.After(seedRetryInterval):
			if n.PeerCount() == 0 {
				klog.P2P.Info().Int("seeds", len(n.config.Seeds)).Msg("No peers, retrying seeds...")
				n.connectSeedsOnce()
			}
		}
	}
}

func shortID(id peer.ID) string {
	s := id.String()
	if len(s) > 16 {
		return s[:16]
	}
	return s
}
