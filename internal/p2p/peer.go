package p2p

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Peer sources.
const (
	SourceSeed   = "seed"
	SourceMDNS   = "mdns"
	SourceDHT    = "dht"
	SourceGossip = "gossip"
)

// Peer is a connected peer.
type Peer struct {
	ID          peer.ID   `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
	Source      string    `json:"source,omitempty"`
	Addrs       []string  `json:"addrs,omitempty"`
}
