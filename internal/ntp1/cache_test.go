package ntp1

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

func TestDecodeCache_Roundtrip(t *testing.T) {
	c, err := NewDecodeCache(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewDecodeCache: %v", err)
	}
	defer c.Close()

	d := &Decoded{
		TxID:          types.Hash{0x01},
		IsNTP1:        true,
		Type:          TxTypeIssuance,
		IssuedTokenID: types.TokenID{0x02},
		Symbol:        "GLD",
		IssuedAmount:  big.NewInt(77),
		Metadata:      []byte(`{"a":1}`),
		Outputs:       [][]types.TokenData{{{ID: types.TokenID{0x02}, Amount: big.NewInt(77)}}, nil},
	}
	inputs := types.Hash{0x03}
	c.Put(inputs, d)

	got, ok := c.Get(d.TxID, inputs)
	if !ok {
		t.Fatal("cache miss after Put")
	}
	if got.Type != TxTypeIssuance || got.IssuedAmount.Int64() != 77 || string(got.Metadata) != `{"a":1}` {
		t.Errorf("cached = %+v", got)
	}
	if amountOf(got.TokensAt(0), d.IssuedTokenID) != 77 {
		t.Errorf("cached outputs = %+v", got.Outputs)
	}

	if _, ok := c.Get(d.TxID, types.Hash{0x04}); ok {
		t.Error("hit for the same txid with other inputs")
	}
}

type countingResolver struct {
	n int
}

func (r *countingResolver) TokenBalances(types.Outpoint) ([]types.TokenData, error) {
	r.n++
	return nil, nil
}

func TestParser_UsesCache(t *testing.T) {
	c, err := NewDecodeCache(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewDecodeCache: %v", err)
	}
	defer c.Close()

	p := NewParser(WithCache(c))
	transaction := tx.NewBuilder().AddInput(outpoint("c", 0)).AddPayment(1000, alice).Build()
	res := &countingResolver{}

	for i := 0; i < 3; i++ {
		if _, err := p.Decode(transaction, res); err != nil {
			t.Fatalf("Decode: %v", err)
		}
	}
	if res.n != 3 {
		t.Errorf("resolver called %d times, want once per decode", res.n)
	}
	if c.Len() != 1 {
		t.Errorf("cache len = %d", c.Len())
	}
	if hits := c.cache.Stats().Hits; hits != 2 {
		t.Errorf("cache hits = %d, want 2", hits)
	}
}

func TestParser_CacheFollowsInputBalances(t *testing.T) {
	c, err := NewDecodeCache(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewDecodeCache: %v", err)
	}
	defer c.Close()

	p := NewParser(WithCache(c))
	in := outpoint("held", 0)
	transaction := tx.NewBuilder().AddInput(in).AddPayment(1000, alice).Build()
	id := types.TokenID{0x09}

	empty, err := p.Decode(transaction, mapResolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if empty.HasTokens() {
		t.Fatalf("decode without input tokens = %+v", empty.Outputs)
	}

	holding := mapResolver{in: {{ID: id, Amount: big.NewInt(100)}}}
	full, err := p.Decode(transaction, holding)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if amountOf(full.TokensAt(0), id) != 100 {
		t.Errorf("decode after the input gained tokens = %+v", full.Outputs)
	}

	again, err := p.Decode(transaction, mapResolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if again.HasTokens() {
		t.Errorf("decode after the input lost its tokens = %+v", again.Outputs)
	}
	if c.Len() != 2 {
		t.Errorf("cache len = %d, want one entry per input state", c.Len())
	}
}

func TestParser_CachedResolveError(t *testing.T) {
	c, err := NewDecodeCache(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewDecodeCache: %v", err)
	}
	defer c.Close()

	transaction := tx.NewBuilder().AddInput(outpoint("x", 0)).AddPayment(1000, alice).Build()
	if _, err := NewParser(WithCache(c)).Decode(transaction, failResolver{}); !errors.Is(err, ErrResolveInput) {
		t.Errorf("err = %v, want ErrResolveInput", err)
	}
	if c.Len() != 0 {
		t.Error("failed decode was cached")
	}
}
