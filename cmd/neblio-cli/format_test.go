package main

import (
	"math/big"
	"testing"

	"github.com/HUSKI3/Neblio-Node/internal/rpcclient"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		units uint64
		want  string
	}{
		{0, "0.00000000"},
		{1, "0.00000001"},
		{10_000, "0.00010000"},
		{100_000_000, "1.00000000"},
		{1_000_010_000, "10.00010000"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.units); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.units, got, tt.want)
		}
	}
}

func TestFormatTokenAmount(t *testing.T) {
	huge, _ := new(big.Int).SetString("18446744073709551615", 10)
	tests := []struct {
		in   *big.Int
		want string
	}{
		{nil, "0"},
		{big.NewInt(7), "7"},
		{big.NewInt(1000), "1,000"},
		{big.NewInt(123456), "123,456"},
		{big.NewInt(-1234567), "-1,234,567"},
		{huge, "18,446,744,073,709,551,615"},
	}
	for _, tt := range tests {
		if got := formatTokenAmount(tt.in); got != tt.want {
			t.Errorf("formatTokenAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		args     []string
		name     string
		value    string
		consumed int
	}{
		{[]string{"--rpc", "http://x:1", "wallet"}, "--rpc", "http://x:1", 2},
		{[]string{"--datadir=/tmp/n", "peers"}, "--datadir", "/tmp/n", 1},
		{[]string{"--testnet", "mempool"}, "--testnet", "", 1},
		{[]string{"wallet", "balance"}, "", "", 0},
		{[]string{"--rpc"}, "", "", 0},
	}
	for _, tt := range tests {
		name, value, consumed := splitFlag(tt.args)
		if name != tt.name || value != tt.value || consumed != tt.consumed {
			t.Errorf("splitFlag(%v) = (%q, %q, %d), want (%q, %q, %d)",
				tt.args, name, value, consumed, tt.name, tt.value, tt.consumed)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:0, ,b:1 ,")
	if len(got) != 2 || got[0] != "a:0" || got[1] != "b:1" {
		t.Errorf("splitList = %v", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestDescribeIssueError(t *testing.T) {
	err := &rpcclient.RPCError{Code: -32004, Message: "not enough NEBL", Data: []byte(`{"kind":"insufficient_funding","shortfall":100000000}`)}
	if got := describeIssueError(err); got != "not enough NEBL [short 1.00000000 NEBL]" {
		t.Errorf("describeIssueError = %q", got)
	}
	locked := &rpcclient.RPCError{Code: -32002, Message: "please enter the wallet passphrase first"}
	if got := describeIssueError(locked); got != "please enter the wallet passphrase first (run `neblio-cli wallet unlock`)" {
		t.Errorf("describeIssueError = %q", got)
	}
}
