package config

import "time"

// DefaultMainnet returns the mainnet node configuration.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		P2P: P2PConfig{
			Enabled:    true,
			ListenAddr: "0.0.0.0",
			Port:       6325,
			MaxPeers:   50,
			// Seeds are libp2p multiaddrs, e.g.
			//   "/ip4/203.0.113.1/tcp/6325/p2p/12D3KooW..."
			Seeds: []string{},
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       6326,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Wallet: WalletConfig{
			Enabled:         true,
			RefreshInterval: 30 * time.Second,
		},
		Mempool: MempoolConfig{
			MaxSize: 5000,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "neblio",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultTestnet returns the testnet node configuration.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.P2P.Port = 16325
	cfg.RPC.Port = 16326
	return cfg
}

// Default returns the defaults for network.
func Default(network NetworkType) *Config {
	if network == Testnet {
		return DefaultTestnet()
	}
	return DefaultMainnet()
}
