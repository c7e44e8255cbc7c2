package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neblio.conf")
	content := `# comment
network = testnet
rpc.port = "17000"
p2p.seeds = /ip4/1.2.3.4/tcp/1, /ip4/5.6.7.8/tcp/2
wallet.refresh = 5s

log.level = debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["rpc.port"] != "17000" {
		t.Errorf("quotes not stripped: %q", values["rpc.port"])
	}

	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Network != Testnet || cfg.RPC.Port != 17000 || cfg.Log.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.P2P.Seeds) != 2 || cfg.P2P.Seeds[1] != "/ip4/5.6.7.8/tcp/2" {
		t.Errorf("seeds = %v", cfg.P2P.Seeds)
	}
	if cfg.Wallet.RefreshInterval != 5*time.Second {
		t.Errorf("refresh = %v", cfg.Wallet.RefreshInterval)
	}
}

func TestLoadFile_MissingIsEmpty(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "none.conf"))
	if err != nil || len(values) != 0 {
		t.Errorf("missing file = %v, %v", values, err)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	os.WriteFile(path, []byte("novalue\n"), 0644)
	if _, err := LoadFile(path); err == nil {
		t.Error("line without '=' accepted")
	}
}

func TestApplyFileConfig_BadNumber(t *testing.T) {
	cfg := DefaultMainnet()
	err := ApplyFileConfig(cfg, map[string]string{"p2p.port": "abc"})
	if err == nil || !strings.Contains(err.Error(), "p2p.port") {
		t.Errorf("err = %v, want error naming p2p.port", err)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	f, err := ParseFlags([]string{"--testnet", "--rpc-port=9000", "--p2p=false", "--log-json"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg := DefaultMainnet()
	ApplyFlags(cfg, f)
	if cfg.Network != Testnet {
		t.Errorf("network = %s", cfg.Network)
	}
	if cfg.RPC.Port != 9000 {
		t.Errorf("rpc port = %d", cfg.RPC.Port)
	}
	if cfg.P2P.Enabled {
		t.Error("--p2p=false not applied")
	}
	if !cfg.Log.JSON {
		t.Error("--log-json not applied")
	}
	if !cfg.Wallet.Enabled {
		t.Error("unset --wallet must not override the default")
	}
}

func TestParseFlags_StrayPositional(t *testing.T) {
	if _, err := ParseFlags([]string{"--wallet", "main", "--rpc=false"}); err == nil {
		t.Error("expected error for flag after positional argument")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(DefaultMainnet()); err != nil {
		t.Fatalf("default mainnet invalid: %v", err)
	}
	if err := Validate(DefaultTestnet()); err != nil {
		t.Fatalf("default testnet invalid: %v", err)
	}

	bad := []func(*Config){
		func(c *Config) { c.Network = "regtest" },
		func(c *Config) { c.DataDir = "" },
		func(c *Config) { c.P2P.Port = 70000 },
		func(c *Config) { c.RPC.Port = -1 },
		func(c *Config) { c.RPC.AllowedIPs = []string{"localhost"} },
		func(c *Config) { c.Log.Level = "loud" },
		func(c *Config) { c.Mempool.MaxSize = -5 },
	}
	for i, mutate := range bad {
		cfg := DefaultMainnet()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
	if err := Validate(nil); err == nil {
		t.Error("nil config accepted")
	}
}

func TestLoadWithFlags_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadWithFlags(&Flags{DataDir: dir, Network: "testnet"})
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.Network != Testnet || cfg.P2P.Port != 16325 {
		t.Errorf("testnet defaults not used: %+v", cfg.P2P)
	}
	for _, p := range []string{cfg.ConfigFile(), cfg.DBDir(), cfg.WalletDir()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not created: %v", p, err)
		}
	}
	if cfg.WalletFile() != filepath.Join(cfg.WalletDir(), "wallet.json") {
		t.Errorf("WalletFile = %s", cfg.WalletFile())
	}

	// A second load reads the generated file back without error.
	if _, err := LoadWithFlags(&Flags{DataDir: dir, Network: "testnet"}); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestParams(t *testing.T) {
	if MinIssuanceAmount != 2*MinTxFee+IssuanceFee {
		t.Errorf("MinIssuanceAmount = %d", MinIssuanceAmount)
	}
	if MinIssuanceAmount != 1_000_020_000 {
		t.Errorf("MinIssuanceAmount = %d, want 1000020000", MinIssuanceAmount)
	}
	if AddressVersion(Testnet) == AddressVersion(Mainnet) {
		t.Error("networks share an address version")
	}
}
