package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	klog "github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/internal/mempool"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/internal/wallet"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

const (
	testPass     = "correct horse"
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server *Server
	wallet *wallet.Wallet
	utxos  *utxo.Store
	pool   *mempool.Pool
	addr   types.Address
	url    string
	nextTx byte
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	ks, err := wallet.NewKeystore(filepath.Join(t.TempDir(), "wallet.json"))
	if err != nil {
		t.Fatal(err)
	}
	params := wallet.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
	addr, err := wallet.Init(ks, testMnemonic, []byte(testPass), params)
	if err != nil {
		t.Fatalf("wallet init: %v", err)
	}

	db := storage.NewMemory()
	utxos := utxo.NewStore(db)
	tokens := ntp1.NewStore(db)
	parser := ntp1.NewParser()
	pool := mempool.New(utxos, 100)
	pool.SetTokenValidator(parser, tokens)

	w, err := wallet.New(wallet.Deps{
		Keystore: ks,
		DB:       db,
		UTXOs:    utxos,
		Tokens:   tokens,
		Decoder:  parser,
		Pool:     pool,
	})
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}

	reg := prometheus.NewRegistry()
	issuer := issuance.NewIssuer(issuance.Services{
		Wallet:      w,
		Funding:     w,
		Constructor: w,
		Decoder:     parser,
		Inputs:      tokens,
		Committer:   w,
	}, issuance.WithMetrics(issuance.NewMetrics(reg, "neblio")))

	srv := New("127.0.0.1:0", Deps{
		Network:  config.Mainnet,
		Wallet:   w,
		Issuer:   issuer,
		Tokens:   tokens,
		Decoder:  parser,
		Pool:     pool,
		Gatherer: reg,
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server: srv,
		wallet: w,
		utxos:  utxos,
		pool:   pool,
		addr:   addr,
		url:    fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

// fund credits value to the wallet's first address as a confirmed output.
func (e *testEnv) fund(t *testing.T, value uint64) types.Outpoint {
	t.Helper()
	e.nextTx++
	op := types.Outpoint{TxID: crypto.Hash([]byte{'r', e.nextTx}), Index: 0}
	if err := e.utxos.Put(&utxo.UTXO{Outpoint: op, Value: value, Script: types.PayToAddress(e.addr), Height: 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.wallet.RefreshBalances(context.Background()); err != nil {
		t.Fatal(err)
	}
	return op
}

func (e *testEnv) unlock(t *testing.T) {
	t.Helper()
	resp := rpcCall(t, e.url, "wallet_unlock", UnlockParam{Passphrase: testPass})
	if resp.Error != nil {
		t.Fatalf("unlock: %+v", resp.Error)
	}
}

func (e *testEnv) issueParam() IssueTokenParam {
	return IssueTokenParam{Request: issuance.Request{
		Symbol:        "GLD",
		Name:          "Gold",
		Issuer:        "Acme",
		Amount:        "1000000",
		TargetAddress: e.addr.String(),
	}}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// decodeResult re-decodes a generic result into out.
func decodeResult(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func errorData(t *testing.T, resp Response) issuanceErrorData {
	t.Helper()
	if resp.Error == nil {
		t.Fatal("expected an error")
	}
	var d issuanceErrorData
	data, _ := json.Marshal(resp.Error.Data)
	json.Unmarshal(data, &d)
	return d
}

// ── Protocol ────────────────────────────────────────────────────────────

func TestServer_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)
	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestServer_BadRequests(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{"invalid json", http.MethodPost, "{nope", CodeParseError},
		{"wrong version", http.MethodPost, `{"jsonrpc":"1.0","method":"mempool_getInfo","id":1}`, CodeInvalidRequest},
		{"get", http.MethodGet, "", CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, env.url, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			var r Response
			if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
				t.Fatal(err)
			}
			if r.Error == nil || r.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %d", r.Error, tt.code)
			}
		})
	}
}

func TestServer_MissingParams(t *testing.T) {
	env := setupTestEnv(t)
	resp := rpcCall(t, env.url, "ntp1_getToken", nil)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestServer_IPFilter(t *testing.T) {
	srv := New("127.0.0.1:0", Deps{}, config.RPCConfig{AllowedIPs: []string{"10.0.0.0/8"}})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	resp, err := http.Post("http://"+srv.Addr()+"/", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestParseAllowedIPs(t *testing.T) {
	nets := parseAllowedIPs([]string{"127.0.0.1", "10.0.0.0/8", "::1", "garbage"})
	if len(nets) != 3 {
		t.Fatalf("parsed %d nets, want 3", len(nets))
	}
}

func TestServer_Metrics(t *testing.T) {
	env := setupTestEnv(t)
	// One failed attempt makes the counter appear.
	rpcCall(t, env.url, "wallet_issueToken", env.issueParam())

	resp, err := http.Get(strings.TrimSuffix(env.url, "/") + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `neblio_issuance_attempts_total{outcome="wallet_locked"} 1`) {
		t.Errorf("metrics missing issuance counter:\n%s", body)
	}
}

// ── Wallet ──────────────────────────────────────────────────────────────

func TestWallet_Unavailable(t *testing.T) {
	srv := New("127.0.0.1:0", Deps{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	url := "http://" + srv.Addr() + "/"
	for _, m := range []string{"wallet_getBalance", "wallet_lock", "wallet_listUnspent"} {
		resp := rpcCall(t, url, m, nil)
		if resp.Error == nil || resp.Error.Code != CodeWalletUnavailable {
			t.Errorf("%s: error = %+v, want wallet unavailable", m, resp.Error)
		}
	}
}

func TestWallet_LockUnlock(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "wallet_unlock", UnlockParam{Passphrase: "wrong"})
	if resp.Error == nil || resp.Error.Code != CodeWrongPassphrase {
		t.Fatalf("wrong passphrase: %+v", resp.Error)
	}

	var state LockStateResult
	decodeResult(t, rpcCall(t, env.url, "wallet_unlock", UnlockParam{Passphrase: testPass, StakingOnly: true}), &state)
	if state.Locked || !state.StakingOnly {
		t.Errorf("after staking unlock: %+v", state)
	}

	decodeResult(t, rpcCall(t, env.url, "wallet_lock", nil), &state)
	if !state.Locked {
		t.Error("wallet_lock left the wallet unlocked")
	}
}

func TestWallet_NewAddress(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "wallet_newAddress", nil)
	if resp.Error == nil || resp.Error.Code != CodeWalletLocked {
		t.Fatalf("locked newAddress: %+v", resp.Error)
	}

	env.unlock(t)
	var res AddressResult
	decodeResult(t, rpcCall(t, env.url, "wallet_newAddress", NewAddressParam{Label: "savings"}), &res)
	if _, err := types.ParseAddress(res.Address); err != nil {
		t.Fatalf("invalid address %q: %v", res.Address, err)
	}
	if res.Address == env.addr.String() {
		t.Error("new address repeats the first one")
	}
}

func TestWallet_GetBalanceAndUnspent(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, 3*config.Coin)
	env.fund(t, 2*config.Coin)

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "wallet_getBalance", nil), &bal)
	if bal.Confirmed != 5*config.Coin || bal.Total != 5*config.Coin {
		t.Errorf("balance = %+v", bal)
	}
	if bal.TotalCoins != "5" && bal.TotalCoins != "5.00000000" {
		t.Errorf("TotalCoins = %q", bal.TotalCoins)
	}
	if !bal.Locked {
		t.Error("balance should report the wallet locked")
	}

	var unspent []json.RawMessage
	decodeResult(t, rpcCall(t, env.url, "wallet_listUnspent", nil), &unspent)
	if len(unspent) != 2 {
		t.Errorf("listUnspent = %d entries, want 2", len(unspent))
	}
}

func TestWallet_ImportTx(t *testing.T) {
	env := setupTestEnv(t)

	payment := &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{TxID: crypto.Hash([]byte("elsewhere")), Index: 3}}},
		Outputs: []tx.Output{{Value: 7 * config.Coin, Script: types.PayToAddress(env.addr)}},
	}
	var res ImportTxResult
	decodeResult(t, rpcCall(t, env.url, "wallet_importTx", ImportTxParam{Transaction: payment, Height: 9}), &res)
	if !res.Relevant || res.TxID != payment.Hash().String() {
		t.Fatalf("import result = %+v", res)
	}

	var bal BalanceResult
	decodeResult(t, rpcCall(t, env.url, "wallet_getBalance", nil), &bal)
	if bal.Confirmed != 7*config.Coin {
		t.Errorf("confirmed = %d, want %d", bal.Confirmed, 7*config.Coin)
	}

	resp := rpcCall(t, env.url, "wallet_importTx", ImportTxParam{})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("missing tx: %+v", resp.Error)
	}
}

// ── Issuance ────────────────────────────────────────────────────────────

func TestIssueToken_Locked(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, 20*config.Coin)

	resp := rpcCall(t, env.url, "wallet_issueToken", env.issueParam())
	if resp.Error == nil || resp.Error.Code != CodeWalletLocked {
		t.Fatalf("error = %+v, want wallet locked", resp.Error)
	}
	if d := errorData(t, resp); d.Kind != string(issuance.KindWalletLocked) {
		t.Errorf("kind = %q", d.Kind)
	}
}

func TestIssueToken_Validation(t *testing.T) {
	env := setupTestEnv(t)
	env.unlock(t)

	p := env.issueParam()
	p.Symbol = "   "
	resp := rpcCall(t, env.url, "wallet_issueToken", p)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want invalid params", resp.Error)
	}
	if d := errorData(t, resp); d.Validator != issuance.EmptySymbol.String() {
		t.Errorf("validator = %q", d.Validator)
	}

	p = env.issueParam()
	p.Inputs = []string{"not-an-outpoint"}
	resp = rpcCall(t, env.url, "wallet_issueToken", p)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("bad input: %+v", resp.Error)
	}
}

func TestIssueToken_InsufficientBalance(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, config.Coin)
	env.unlock(t)

	resp := rpcCall(t, env.url, "wallet_issueToken", env.issueParam())
	if resp.Error == nil || resp.Error.Code != CodeInsufficientFunds {
		t.Fatalf("error = %+v, want insufficient funds", resp.Error)
	}
	d := errorData(t, resp)
	if d.Kind != string(issuance.KindInsufficientFunding) {
		t.Errorf("kind = %q", d.Kind)
	}
	if d.Shortfall != config.MinIssuanceAmount-config.Coin {
		t.Errorf("shortfall = %d, want %d", d.Shortfall, config.MinIssuanceAmount-config.Coin)
	}
}

func TestIssueToken_DryRun(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, 20*config.Coin)
	env.unlock(t)

	p := env.issueParam()
	p.DryRun = true
	var res IssueTokenResult
	decodeResult(t, rpcCall(t, env.url, "wallet_issueToken", p), &res)
	if res.Committed || res.TxID != "" {
		t.Errorf("dry run committed: %+v", res)
	}
	if res.Fee < config.IssuanceFee+config.MinTxFee {
		t.Errorf("fee = %d, want at least %d", res.Fee, config.IssuanceFee+config.MinTxFee)
	}
	if env.pool.Count() != 0 {
		t.Error("dry run reached the mempool")
	}
}

func TestIssueToken_CommitAndQuery(t *testing.T) {
	env := setupTestEnv(t)
	// Enough that the change still covers a second issuance.
	env.fund(t, 40*config.Coin)
	env.unlock(t)

	var res IssueTokenResult
	decodeResult(t, rpcCall(t, env.url, "wallet_issueToken", env.issueParam()), &res)
	if !res.Committed || res.TxID == "" || res.TokenID == "" {
		t.Fatalf("issue result = %+v", res)
	}
	txid, err := types.HexToHash(res.TxID)
	if err != nil {
		t.Fatal(err)
	}
	if !env.pool.Has(txid) {
		t.Error("issued tx not in mempool")
	}

	var byID []ntp1.TokenRecord
	decodeResult(t, rpcCall(t, env.url, "ntp1_getToken", TokenParam{ID: res.TokenID}), &byID)
	if len(byID) != 1 || byID[0].Symbol != "GLD" || byID[0].Supply.String() != "1000000" {
		t.Errorf("token by id = %+v", byID)
	}

	var bySymbol []ntp1.TokenRecord
	decodeResult(t, rpcCall(t, env.url, "ntp1_getToken", TokenParam{Symbol: "GLD"}), &bySymbol)
	if len(bySymbol) != 1 || bySymbol[0].ID.String() != res.TokenID {
		t.Errorf("token by symbol = %+v", bySymbol)
	}

	var decoded struct {
		IsNTP1        bool   `json:"is_ntp1"`
		Type          string `json:"type"`
		IssuedTokenID string `json:"issued_token_id"`
	}
	decodeResult(t, rpcCall(t, env.url, "ntp1_decodeTx", DecodeTxParam{Hash: res.TxID}), &decoded)
	if !decoded.IsNTP1 || decoded.IssuedTokenID != res.TokenID {
		t.Errorf("decoded = %+v", decoded)
	}

	var content MempoolContentResult
	decodeResult(t, rpcCall(t, env.url, "mempool_getContent", nil), &content)
	if len(content.Hashes) != 1 || content.Hashes[0] != res.TxID {
		t.Errorf("mempool content = %v", content.Hashes)
	}

	var info mempool.Info
	decodeResult(t, rpcCall(t, env.url, "mempool_getInfo", nil), &info)
	if info.Count != 1 || info.Fees != res.Fee {
		t.Errorf("mempool info = %+v, fee %d", info, res.Fee)
	}

	// The token output now holds GLD; funding a second issuance from it
	// would burn them.
	p := env.issueParam()
	p.Symbol = "SLV"
	p.Inputs = []string{res.TxID + ":0"}
	resp := rpcCall(t, env.url, "wallet_issueToken", p)
	if resp.Error == nil || resp.Error.Code != CodeTokenSafety {
		t.Fatalf("token-carrying input: %+v", resp.Error)
	}
	if d := errorData(t, resp); d.Outpoint != res.TxID+":0" {
		t.Errorf("outpoint = %q", d.Outpoint)
	}
}

func TestNTP1_GetTokenNotFound(t *testing.T) {
	env := setupTestEnv(t)
	resp := rpcCall(t, env.url, "ntp1_getToken", TokenParam{Symbol: "NOPE"})
	if resp.Error == nil || resp.Error.Code != CodeNotFound {
		t.Errorf("error = %+v, want not found", resp.Error)
	}
	var list []ntp1.TokenRecord
	decodeResult(t, rpcCall(t, env.url, "ntp1_listTokens", nil), &list)
	if len(list) != 0 {
		t.Errorf("listTokens = %d, want 0", len(list))
	}
}

// ── Net ─────────────────────────────────────────────────────────────────

func TestNet_NoP2P(t *testing.T) {
	env := setupTestEnv(t)

	var peers PeerInfoResult
	decodeResult(t, rpcCall(t, env.url, "net_getPeerInfo", nil), &peers)
	if peers.Count != 0 {
		t.Errorf("peers = %d", peers.Count)
	}

	var info NodeInfoResult
	decodeResult(t, rpcCall(t, env.url, "net_getNodeInfo", nil), &info)
	if info.Version != config.Version || info.Network != "mainnet" || !info.Wallet {
		t.Errorf("node info = %+v", info)
	}
}
