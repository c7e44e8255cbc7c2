package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/rpc"
	"github.com/HUSKI3/Neblio-Node/internal/rpcclient"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

func cmdToken(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: neblio-cli token <issue|info|list> [flags]")
	}

	switch args[0] {
	case "issue":
		cmdTokenIssue(client, args[1:])
	case "info":
		if len(args) < 2 {
			fatal("Usage: neblio-cli token info <id|symbol>")
		}
		cmdTokenInfo(client, args[1])
	case "list":
		cmdTokenList(client)
	default:
		fatal("Unknown token command: %s", args[0])
	}
}

func cmdTokenIssue(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("token issue", flag.ExitOnError)
	symbol := fs.String("symbol", "", "Token symbol")
	name := fs.String("name", "", "Token name")
	issuer := fs.String("issuer", "", "Issuer name")
	amount := fs.String("amount", "", "Whole number of tokens to issue")
	to := fs.String("to", "", "Address receiving the tokens")
	icon := fs.String("icon", "", "Icon URL")
	change := fs.String("change", "", "Change address (default: a fresh wallet address)")
	inputs := fs.String("inputs", "", "Comma-separated txid:index outputs to fund from")
	yes := fs.Bool("yes", false, "Do not ask for fee confirmation")
	fs.Parse(args)

	if *symbol == "" || *amount == "" || *to == "" {
		fatal("Usage: neblio-cli token issue --symbol <S> --name <n> --issuer <i> --amount <n> --to <addr>")
	}

	param := rpc.IssueTokenParam{
		Request: issuance.Request{
			Symbol:           *symbol,
			Name:             *name,
			Issuer:           *issuer,
			Amount:           *amount,
			IconURL:          *icon,
			TargetAddress:    *to,
			ChangeAddress:    *change,
			UseChangeAddress: *change != "",
		},
		Inputs: splitList(*inputs),
	}

	if !*yes {
		param.DryRun = true
		var quote rpc.IssueTokenResult
		if err := client.Call("wallet_issueToken", param, &quote); err != nil {
			fatal("%s", describeIssueError(err))
		}
		fmt.Printf("Issuing %s %s to %s\n", *amount, *symbol, *to)
		fmt.Printf("Fee: %s NEBL\n", formatAmount(quote.Fee))
		if !confirm("Are you sure you want to issue this token?") {
			fmt.Println("Aborted")
			return
		}
		param.DryRun = false
	}

	var res rpc.IssueTokenResult
	if err := client.Call("wallet_issueToken", param, &res); err != nil {
		fatal("%s", describeIssueError(err))
	}
	fmt.Printf("Token issued!\n")
	fmt.Printf("  TxID:     %s\n", res.TxID)
	fmt.Printf("  Token ID: %s\n", res.TokenID)
	fmt.Printf("  Fee:      %s NEBL\n", formatAmount(res.Fee))
}

// describeIssueError adds the structured details of an issuance failure.
func describeIssueError(err error) string {
	var rpcErr *rpcclient.RPCError
	if !errors.As(err, &rpcErr) {
		return err.Error()
	}
	msg := rpcErr.Message
	switch rpcErr.Code {
	case rpc.CodeWalletLocked:
		msg += " (run `neblio-cli wallet unlock`)"
	case rpc.CodeInsufficientFunds:
		var data struct {
			Shortfall uint64 `json:"shortfall"`
		}
		if decodeData(rpcErr, &data) && data.Shortfall > 0 {
			msg += fmt.Sprintf(" [short %s NEBL]", formatAmount(data.Shortfall))
		}
	}
	return msg
}

func cmdTokenInfo(client *rpcclient.Client, ref string) {
	param := rpc.TokenParam{Symbol: ref}
	if _, err := types.HexToTokenID(ref); err == nil {
		param = rpc.TokenParam{ID: ref}
	}

	var records []ntp1.TokenRecord
	if err := client.Call("ntp1_getToken", param, &records); err != nil {
		fatal("ntp1_getToken: %v", err)
	}
	for i, r := range records {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Token ID:  %s\n", r.ID)
		fmt.Printf("Symbol:    %s\n", r.Symbol)
		fmt.Printf("Supply:    %s\n", formatTokenAmount(r.Supply))
		fmt.Printf("Issue tx:  %s\n", r.IssueTxID)
		if meta, err := issuance.ParseMetadata(r.Metadata); err == nil {
			fmt.Printf("Name:      %s\n", meta.Data.Description)
			fmt.Printf("Issuer:    %s\n", meta.Data.Issuer)
			for _, u := range meta.Data.URLs {
				fmt.Printf("URL:       %s (%s)\n", u.URL, u.MimeType)
			}
		}
	}
}

func cmdTokenList(client *rpcclient.Client) {
	var records []ntp1.TokenRecord
	if err := client.Call("ntp1_listTokens", nil, &records); err != nil {
		fatal("ntp1_listTokens: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No tokens")
		return
	}
	for _, r := range records {
		fmt.Printf("%-10s %s  supply %s\n", r.Symbol, r.ID, formatTokenAmount(r.Supply))
	}
}

func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
