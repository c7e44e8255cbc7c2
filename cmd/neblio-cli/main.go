// neblio-cli is a command-line client for interacting with a nebliod node.
package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/mempool"
	"github.com/HUSKI3/Neblio-Node/internal/rpc"
	"github.com/HUSKI3/Neblio-Node/internal/rpcclient"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// globals are the flags accepted before the subcommand.
type globals struct {
	rpcURL     string
	dataDir    string
	network    config.NetworkType
	walletFile string
}

func main() {
	g := globals{
		dataDir: config.DefaultDataDir(),
		network: config.Mainnet,
	}

	// Scan for global flags before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		name, value, consumed := splitFlag(args)
		if consumed == 0 {
			break
		}
		switch name {
		case "--rpc":
			g.rpcURL = value
		case "--datadir":
			g.dataDir = value
		case "--network":
			g.network = config.NetworkType(value)
		case "--testnet":
			g.network = config.Testnet
		case "--wallet-file":
			g.walletFile = value
		}
		args = args[consumed:]
	}

	if g.network != config.Mainnet && g.network != config.Testnet {
		fatal("unknown network %q", g.network)
	}
	types.SetAddressVersion(config.AddressVersion(g.network))
	if g.rpcURL == "" {
		def := config.Default(g.network)
		g.rpcURL = fmt.Sprintf("http://%s:%d", def.RPC.Addr, def.RPC.Port)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(g.rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(client, cmdArgs, g)
	case "token":
		cmdToken(client, cmdArgs)
	case "mempool":
		cmdMempool(client)
	case "peers":
		cmdPeers(client)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

// splitFlag recognizes one global flag at the head of args and reports how
// many arguments it used. Zero means args[0] is the subcommand.
func splitFlag(args []string) (name, value string, consumed int) {
	a := args[0]
	if a == "--testnet" {
		return a, "", 1
	}
	for _, f := range []string{"--rpc", "--datadir", "--network", "--wallet-file"} {
		if a == f && len(args) > 1 {
			return f, args[1], 2
		}
		if v, ok := strings.CutPrefix(a, f+"="); ok {
			return f, v, 1
		}
	}
	return "", "", 0
}

// walletPath mirrors nebliod's keystore location.
func (g globals) walletPath() string {
	if g.walletFile != "" {
		return g.walletFile
	}
	cfg := config.Default(g.network)
	cfg.DataDir = g.dataDir
	return cfg.WalletFile()
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: neblio-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>            RPC endpoint (default: http://127.0.0.1:6326)
  --datadir <path>       Data directory (default: ~/.neblio)
  --network <net>        mainnet (default) or testnet
  --testnet              Shorthand for --network testnet
  --wallet-file <path>   Keystore path for offline wallet commands

Commands:
  wallet create [--mnemonic "..."]
                          Create the node wallet (node must be restarted)
  wallet unlock [--staking-only]
                          Unlock the wallet on the node
  wallet lock             Lock the wallet
  wallet balance          Show NEBL and token balances
  wallet address [--new] [--label <l>]
                          List addresses or derive a new one
  wallet unspent          List unspent outputs

  token issue --symbol <S> --name <n> --issuer <i> --amount <n> --to <addr>
              [--icon <url>] [--change <addr>] [--inputs <txid:n,...>] [--yes]
                          Issue a new NTP1 token (costs 10 NEBL)
  token info <id|symbol>  Show token details
  token list              List known tokens

  mempool                 Show mempool stats
  peers                   Show connected peers
`)
}

// ── mempool ─────────────────────────────────────────────────────────────

func cmdMempool(client *rpcclient.Client) {
	var info mempool.Info
	if err := client.Call("mempool_getInfo", nil, &info); err != nil {
		fatal("mempool_getInfo: %v", err)
	}

	fmt.Printf("Count:   %d / %d\n", info.Count, info.MaxSize)
	fmt.Printf("Bytes:   %d\n", info.Bytes)
	fmt.Printf("Fees:    %s NEBL\n", formatAmount(info.Fees))

	if info.Count > 0 {
		var content rpc.MempoolContentResult
		if err := client.Call("mempool_getContent", nil, &content); err != nil {
			fatal("mempool_getContent: %v", err)
		}
		fmt.Println("Pending:")
		for _, h := range content.Hashes {
			fmt.Printf("  %s\n", h)
		}
	}
}

// ── peers ───────────────────────────────────────────────────────────────

func cmdPeers(client *rpcclient.Client) {
	var node rpc.NodeInfoResult
	if err := client.Call("net_getNodeInfo", nil, &node); err != nil {
		fatal("net_getNodeInfo: %v", err)
	}

	fmt.Printf("Version: %s (%s)\n", node.Version, node.Network)
	if node.ID != "" {
		fmt.Printf("Node ID: %s\n", node.ID)
	}
	for _, a := range node.Addrs {
		fmt.Printf("  Listen: %s\n", a)
	}

	var peers rpc.PeerInfoResult
	if err := client.Call("net_getPeerInfo", nil, &peers); err != nil {
		fatal("net_getPeerInfo: %v", err)
	}

	fmt.Printf("Peers:   %d\n", peers.Count)
	for _, p := range peers.Peers {
		fmt.Printf("  %s via %s (connected: %s)\n", p.ID, p.Source, p.ConnectedAt.Format("2006-01-02 15:04:05"))
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
