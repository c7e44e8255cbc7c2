package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/HUSKI3/Neblio-Node/internal/rpc"
	"github.com/HUSKI3/Neblio-Node/internal/rpcclient"
	"github.com/HUSKI3/Neblio-Node/internal/wallet"
)

func cmdWallet(client *rpcclient.Client, args []string, g globals) {
	if len(args) < 1 {
		fatal("Usage: neblio-cli wallet <create|unlock|lock|balance|address|unspent> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], g)
	case "unlock":
		cmdWalletUnlock(client, args[1:])
	case "lock":
		cmdWalletLock(client)
	case "balance":
		cmdWalletBalance(client)
	case "address":
		cmdWalletAddress(client, args[1:])
	case "unspent":
		cmdWalletUnspent(client)
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

// cmdWalletCreate writes the keystore directly; it does not need a node.
func cmdWalletCreate(args []string, g globals) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "Restore from an existing BIP-39 mnemonic")
	fs.Parse(args)

	ks, err := wallet.NewKeystore(g.walletPath())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if ks.Exists() {
		fatal("a wallet already exists at %s", ks.Path())
	}

	words := strings.Join(strings.Fields(*mnemonic), " ")
	generated := words == ""
	if generated {
		if words, err = wallet.GenerateMnemonic(); err != nil {
			fatal("generate mnemonic: %v", err)
		}
	}

	password, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passphrases do not match")
	}
	if len(password) == 0 {
		fatal("passphrase cannot be empty")
	}

	addr, err := wallet.Init(ks, words, password, wallet.DefaultParams())
	if err != nil {
		fatal("create wallet: %v", err)
	}

	if generated {
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", words)
	}
	fmt.Printf("Wallet created: %s\n", ks.Path())
	fmt.Printf("Address: %s\n", addr)
	fmt.Println("Restart nebliod to load it.")
}

func cmdWalletUnlock(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet unlock", flag.ExitOnError)
	stakingOnly := fs.Bool("staking-only", false, "Unlock for staking only")
	fs.Parse(args)

	password, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}

	var state rpc.LockStateResult
	if err := client.Call("wallet_unlock", rpc.UnlockParam{
		Passphrase:  string(password),
		StakingOnly: *stakingOnly,
	}, &state); err != nil {
		fatal("wallet_unlock: %v", err)
	}
	printLockState(state)
}

func cmdWalletLock(client *rpcclient.Client) {
	var state rpc.LockStateResult
	if err := client.Call("wallet_lock", nil, &state); err != nil {
		fatal("wallet_lock: %v", err)
	}
	printLockState(state)
}

func printLockState(state rpc.LockStateResult) {
	switch {
	case state.Locked:
		fmt.Println("Wallet locked")
	case state.StakingOnly:
		fmt.Println("Wallet unlocked for staking only")
	default:
		fmt.Println("Wallet unlocked")
	}
}

func cmdWalletBalance(client *rpcclient.Client) {
	var bal rpc.BalanceResult
	if err := client.Call("wallet_getBalance", nil, &bal); err != nil {
		fatal("wallet_getBalance: %v", err)
	}

	fmt.Printf("Confirmed:   %s NEBL\n", formatAmount(bal.Confirmed))
	fmt.Printf("Unconfirmed: %s NEBL\n", formatAmount(bal.Unconfirmed))
	fmt.Printf("Total:       %s NEBL\n", formatAmount(bal.Total))
	if bal.Locked {
		fmt.Println("Status:      locked")
	}

	if len(bal.Tokens) > 0 {
		fmt.Println("Tokens:")
		for _, td := range bal.Tokens {
			fmt.Printf("  %s  %s\n", td.ID, formatTokenAmount(td.Amount))
		}
	}

	if len(bal.Addresses) > 1 {
		addrs := make([]string, 0, len(bal.Addresses))
		for a := range bal.Addresses {
			addrs = append(addrs, a)
		}
		sort.Strings(addrs)
		fmt.Println("Addresses:")
		for _, a := range addrs {
			fmt.Printf("  %s  %s NEBL\n", a, formatAmount(bal.Addresses[a].Total()))
		}
	}
}

func cmdWalletAddress(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	derive := fs.Bool("new", false, "Derive a new receive address")
	label := fs.String("label", "", "Label for the new address")
	fs.Parse(args)

	if *derive {
		var res rpc.AddressResult
		if err := client.Call("wallet_newAddress", rpc.NewAddressParam{Label: *label}, &res); err != nil {
			fatal("wallet_newAddress: %v", err)
		}
		fmt.Println(res.Address)
		return
	}

	var entries []wallet.AddressEntry
	if err := client.Call("wallet_listAddresses", nil, &entries); err != nil {
		fatal("wallet_listAddresses: %v", err)
	}
	for _, e := range entries {
		kind := "receive"
		if e.IsChange() {
			kind = "change"
		}
		line := fmt.Sprintf("%s  %-7s #%d", e.Address, kind, e.Index)
		if e.Label != "" {
			line += "  " + e.Label
		}
		fmt.Println(line)
	}
}

func cmdWalletUnspent(client *rpcclient.Client) {
	var unspent []wallet.Unspent
	if err := client.Call("wallet_listUnspent", nil, &unspent); err != nil {
		fatal("wallet_listUnspent: %v", err)
	}
	if len(unspent) == 0 {
		fmt.Println("No unspent outputs")
		return
	}

	for _, u := range unspent {
		conf := "unconfirmed"
		if u.Height > 0 {
			conf = fmt.Sprintf("height %d", u.Height)
		}
		fmt.Printf("%s  %s NEBL  (%s)\n", u.Outpoint, formatAmount(u.Value), conf)
		for _, td := range u.Tokens {
			fmt.Printf("    %s  %s\n", td.ID, formatTokenAmount(td.Amount))
		}
	}
}
