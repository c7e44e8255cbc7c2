package rpc

import (
	"encoding/json"

	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	"github.com/HUSKI3/Neblio-Node/internal/p2p"
	"github.com/HUSKI3/Neblio-Node/internal/wallet"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Application error codes.
const (
	CodeWalletUnavailable   = -32001
	CodeWalletLocked        = -32002
	CodeWrongPassphrase     = -32003
	CodeInsufficientFunds   = -32004
	CodeTokenSafety         = -32005
	CodeFundingVerification = -32006
	CodeBuildFailed         = -32007
	CodeProtocolViolation   = -32008
	CodeCommitFailed        = -32009
	CodeRejected            = -32010
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// IssueTokenParam is used by wallet_issueToken. Inputs, when given, are
// "txid:index" outpoints that must fund the issuance.
type IssueTokenParam struct {
	issuance.Request
	Inputs []string `json:"inputs,omitempty"`
	// DryRun builds and verifies the issuance and reports its fee
	// without committing.
	DryRun bool `json:"dry_run,omitempty"`
}

// UnlockParam is used by wallet_unlock.
type UnlockParam struct {
	Passphrase  string `json:"passphrase"`
	StakingOnly bool   `json:"staking_only,omitempty"`
}

// NewAddressParam is used by wallet_newAddress.
type NewAddressParam struct {
	Label string `json:"label,omitempty"`
}

// HashParam is used by endpoints that take a single hash.
type HashParam struct {
	Hash string `json:"hash"`
}

// ImportTxParam is used by wallet_importTx.
type ImportTxParam struct {
	Transaction *tx.Transaction `json:"transaction"`
	Height      uint64          `json:"height,omitempty"`
}

// TokenParam is used by ntp1_getToken. Exactly one field is set.
type TokenParam struct {
	ID     string `json:"id,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// DecodeTxParam is used by ntp1_decodeTx. Either a full transaction or
// the hash of one known to the mempool or wallet.
type DecodeTxParam struct {
	Transaction *tx.Transaction `json:"transaction,omitempty"`
	Hash        string          `json:"hash,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// IssueTokenResult is returned by wallet_issueToken.
type IssueTokenResult struct {
	TxID      string `json:"txid,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	Fee       uint64 `json:"fee"`
	FeeCoins  string `json:"fee_coins"`
	Committed bool   `json:"committed"`
}

// BalanceResult is returned by wallet_getBalance.
type BalanceResult struct {
	Confirmed   uint64                    `json:"confirmed"`
	Unconfirmed uint64                    `json:"unconfirmed"`
	Total       uint64                    `json:"total"`
	TotalCoins  string                    `json:"total_coins"`
	Tokens      []types.TokenData         `json:"tokens,omitempty"`
	Addresses   map[string]wallet.Balance `json:"addresses,omitempty"`
	Locked      bool                      `json:"locked"`
}

// LockStateResult is returned by wallet_unlock and wallet_lock.
type LockStateResult struct {
	Locked      bool `json:"locked"`
	StakingOnly bool `json:"staking_only"`
}

// AddressResult is returned by wallet_newAddress.
type AddressResult struct {
	Address string `json:"address"`
}

// ImportTxResult is returned by wallet_importTx.
type ImportTxResult struct {
	TxID     string `json:"txid"`
	Relevant bool   `json:"relevant"`
}

// MempoolContentResult is returned by mempool_getContent.
type MempoolContentResult struct {
	Hashes []string `json:"hashes"`
}

// PeerInfoResult is returned by net_getPeerInfo.
type PeerInfoResult struct {
	Count int        `json:"count"`
	Peers []p2p.Peer `json:"peers"`
}

// NodeInfoResult is returned by net_getNodeInfo.
type NodeInfoResult struct {
	Version string   `json:"version"`
	Network string   `json:"network"`
	ID      string   `json:"id,omitempty"`
	Addrs   []string `json:"addrs,omitempty"`
	Wallet  bool     `json:"wallet"`
}
