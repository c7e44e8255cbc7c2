// Package config handles node configuration.
//
// Settings come in two kinds:
//   - Protocol parameters (params.go): fixed, identical on every node
//   - Node settings: per-node runtime options loaded from defaults, the
//     config file and command-line flags, in that order
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds node runtime configuration.
type Config struct {
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	P2P     P2PConfig
	RPC     RPCConfig
	Wallet  WalletConfig
	Mempool MempoolConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// P2PConfig holds peer-to-peer settings.
type P2PConfig struct {
	Enabled    bool     `conf:"p2p.enabled"`
	ListenAddr string   `conf:"p2p.listen"`
	Port       int      `conf:"p2p.port"`
	Seeds      []string `conf:"p2p.seeds"`
	MaxPeers   int      `conf:"p2p.maxpeers"`
	NoDiscover bool     `conf:"p2p.nodiscover"`
	DHTServer  bool     `conf:"p2p.dhtserver"`
}

// RPCConfig holds JSON-RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"`
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	Enabled bool `conf:"wallet.enabled"`
	// FilePath overrides the keystore location (default <chaindir>/wallet/wallet.json).
	FilePath string `conf:"wallet.file"`
	// RefreshInterval is how often cached balances are recomputed.
	RefreshInterval time.Duration `conf:"wallet.refresh"`
}

// MempoolConfig holds unconfirmed transaction pool settings.
type MempoolConfig struct {
	MaxSize int `conf:"mempool.maxsize"`
}

// MetricsConfig controls the Prometheus endpoint on the RPC server.
type MetricsConfig struct {
	Enabled   bool   `conf:"metrics.enabled"`
	Namespace string `conf:"metrics.namespace"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform data directory.
//
//	Linux:   ~/.neblio
//	macOS:   ~/Library/Application Support/Neblio
//	Windows: %APPDATA%\Neblio
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".neblio"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Neblio")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Neblio")
		}
		return filepath.Join(home, "AppData", "Roaming", "Neblio")
	default:
		return filepath.Join(home, ".neblio")
	}
}

// ChainDataDir returns the per-network data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir is the badger directory holding UTXOs, wallet transactions and NTP1 data.
func (c *Config) DBDir() string {
	return filepath.Join(c.ChainDataDir(), "db")
}

// WalletDir returns the wallet directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.ChainDataDir(), "wallet")
}

// WalletFile returns the keystore path.
func (c *Config) WalletFile() string {
	if c.Wallet.FilePath != "" {
		return c.Wallet.FilePath
	}
	return filepath.Join(c.WalletDir(), "wallet.json")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "neblio.conf")
}

// NodeKeyFile is where the libp2p identity is persisted.
func (c *Config) NodeKeyFile() string {
	return filepath.Join(c.ChainDataDir(), "node.key")
}
