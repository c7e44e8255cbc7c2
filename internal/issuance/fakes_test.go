package issuance

import (
	"context"
	"errors"
	"math/big"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

type fakeWallet struct {
	balance     uint64
	balanceErr  error
	locked      bool
	stakingOnly bool
}

func (w *fakeWallet) Balance(context.Context) (uint64, error) { return w.balance, w.balanceErr }
func (w *fakeWallet) IsLocked() bool { return w.locked }
func (w *fakeWallet) UnlockedForStakingOnly() bool { return w.stakingOnly }

type fundingEntry struct {
	value  uint64
	tokens []types.TokenData
	err    error
}

type fakeLookup struct {
	entries map[types.Outpoint]fundingEntry
	calls   int
}

func (l *fakeLookup) LookupFunding(_ context.Context, op types.Outpoint) (uint64, []types.TokenData, error) {
	l.calls++
	e, ok := l.entries[op]
	if !ok {
		return 0, nil, errors.New("unknown output")
	}
	return e.value, e.tokens, e.err
}

// fakeConstructor lays out outputs the way the wallet does: recipients,
// then the NTP1 data output, then change.
type fakeConstructor struct {
	fee    uint64
	err    error
	mangle func(*ntp1.Payload)
	calls  int
	last   ntp1.SendRequest
}

var autoInput = types.Outpoint{TxID: crypto.Hash([]byte("wallet-picked")), Index: 0}

func (c *fakeConstructor) CreateTransaction(_ context.Context, req ntp1.SendRequest) (*tx.Transaction, uint64, error) {
	c.calls++
	c.last = req
	if c.err != nil {
		return nil, c.fee, c.err
	}

	b := tx.NewBuilder()
	inputs := req.Inputs
	if len(inputs) == 0 {
		inputs = []types.Outpoint{autoInput}
	}
	for _, op := range inputs {
		b.AddInput(op)
	}
	idx := make([]int, len(req.Recipients))
	for i, r := range req.Recipients {
		idx[i] = b.NumOutputs()
		b.AddPayment(config.TokenOutputValue, r.Address)
	}
	payload, err := req.Payload(idx)
	if err != nil {
		return nil, c.fee, err
	}
	if c.mangle != nil {
		c.mangle(payload)
	}
	raw, err := payload.Encode()
	if err != nil {
		return nil, c.fee, err
	}
	b.AddDataOutput(raw)
	change := types.Address{0xcc, 19: 0xcc}
	if req.ChangeTo != nil {
		change = *req.ChangeTo
	}
	b.AddPayment(50_000, change)
	return b.Build(), c.fee, nil
}

type fakeCommitter struct {
	err   error
	calls int
}

func (c *fakeCommitter) CommitTransaction(_ context.Context, t *tx.Transaction) (types.Hash, error) {
	c.calls++
	if c.err != nil {
		return types.Hash{}, c.err
	}
	return t.Hash(), nil
}

type noTokens struct{}

func (noTokens) TokenBalances(types.Outpoint) ([]types.TokenData, error) { return nil, nil }

type harness struct {
	wallet      *fakeWallet
	lookup      *fakeLookup
	constructor *fakeConstructor
	committer   *fakeCommitter
}

func newHarness() *harness {
	return &harness{
		wallet:      &fakeWallet{balance: 100 * config.Coin},
		lookup:      &fakeLookup{entries: map[types.Outpoint]fundingEntry{}},
		constructor: &fakeConstructor{fee: config.IssuanceFee + config.MinTxFee},
		committer:   &fakeCommitter{},
	}
}

func (h *harness) services() Services {
	return Services{
		Wallet:      h.wallet,
		Funding:     h.lookup,
		Constructor: h.constructor,
		Decoder:     ntp1.NewParser(),
		Inputs:      noTokens{},
		Committer:   h.committer,
	}
}

func (h *harness) addFunding(seed string, value uint64, tokens ...types.TokenData) types.Outpoint {
	op := types.Outpoint{TxID: crypto.Hash([]byte(seed)), Index: 1}
	h.lookup.entries[op] = fundingEntry{value: value, tokens: tokens}
	return op
}

func someTokens(n int64) types.TokenData {
	return types.TokenData{ID: types.TokenID{0xee}, Amount: big.NewInt(n)}
}
