package ntp1

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Decode errors.
var (
	ErrMultipleDataOutputs = errors.New("transaction has more than one NTP1 output")
	ErrInvalidTarget       = errors.New("instruction targets an invalid output")
	ErrInsufficientTokens  = errors.New("instruction exceeds available tokens")
	ErrNoLeftoverOutput    = errors.New("no spendable output to receive leftover tokens")
	ErrIssuanceNoInputs    = errors.New("issuance has no inputs")
	ErrResolveInput        = errors.New("cannot resolve input tokens")
)

// InputResolver returns the token balances held by an outpoint. Outpoints
// that hold no tokens return an empty list and no error.
type InputResolver interface {
	TokenBalances(outpoint types.Outpoint) ([]types.TokenData, error)
}

// Decoder derives the token effects of a transaction.
type Decoder interface {
	Decode(t *tx.Transaction, inputs InputResolver) (*Decoded, error)
}

// Decoded is the token view of one transaction.
type Decoded struct {
	TxID          types.Hash          `json:"txid"`
	IsNTP1        bool                `json:"is_ntp1"`
	Type          TxType              `json:"type"`
	IssuedTokenID types.TokenID       `json:"issued_token_id,omitempty"`
	Symbol        string              `json:"symbol,omitempty"`
	IssuedAmount  *big.Int            `json:"-"`
	Metadata      []byte              `json:"-"`
	Outputs       [][]types.TokenData `json:"outputs"`
}

// TokensAt returns the balances assigned to output i.
func (d *Decoded) TokensAt(i int) []types.TokenData {
	if i < 0 || i >= len(d.Outputs) {
		return nil
	}
	return d.Outputs[i]
}

// HasTokens reports whether any output received tokens.
func (d *Decoded) HasTokens() bool {
	for _, out := range d.Outputs {
		if types.HasTokens(out) {
			return true
		}
	}
	return false
}

// IsNTP1 reports whether t carries an NTP1 payload.
func IsNTP1(t *tx.Transaction) bool {
	for _, i := range t.DataOutputs() {
		if IsPayload(t.Outputs[i].Script.Data) {
			return true
		}
	}
	return false
}

// Parser is the Decoder used by the node.
type Parser struct {
	cache *DecodeCache
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithCache memoizes successful decodes by txid and resolved inputs.
func WithCache(c *DecodeCache) ParserOption {
	return func(p *Parser) { p.cache = c }
}

// NewParser creates a Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decode runs the token queue over t. Transactions without an NTP1 output
// still move input tokens: everything goes to the last spendable output.
func (p *Parser) Decode(t *tx.Transaction, inputs InputResolver) (*Decoded, error) {
	txid := t.Hash()
	if p.cache == nil {
		return decode(t, txid, inputs)
	}
	resolved, err := resolveInputs(t, inputs)
	if err != nil {
		return nil, err
	}
	digest := resolved.digest(t)
	if d, ok := p.cache.Get(txid, digest); ok {
		return d, nil
	}
	d, err := decode(t, txid, resolved)
	if err != nil {
		return nil, err
	}
	p.cache.Put(digest, d)
	return d, nil
}

// resolvedInputs holds the balances of every input of one transaction.
type resolvedInputs map[types.Outpoint][]types.TokenData

func resolveInputs(t *tx.Transaction, inputs InputResolver) (resolvedInputs, error) {
	r := make(resolvedInputs, len(t.Inputs))
	for i, in := range t.Inputs {
		balances, err := inputs.TokenBalances(in.PrevOut)
		if err != nil {
			return nil, fmt.Errorf("input %d (%s): %w: %v", i, in.PrevOut, ErrResolveInput, err)
		}
		r[in.PrevOut] = balances
	}
	return r, nil
}

func (r resolvedInputs) TokenBalances(op types.Outpoint) ([]types.TokenData, error) {
	return r[op], nil
}

// digest hashes the positive balances of the inputs of t in input order.
// Entries decode ignores do not change it.
func (r resolvedInputs) digest(t *tx.Transaction) types.Hash {
	var buf []byte
	for _, in := range t.Inputs {
		var held []types.TokenData
		for _, td := range r[in.PrevOut] {
			if td.Amount != nil && td.Amount.Sign() > 0 {
				held = append(held, td)
			}
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(held)))
		for _, td := range held {
			amount := td.Amount.Bytes()
			buf = append(buf, td.ID[:]...)
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(amount)))
			buf = append(buf, amount...)
		}
	}
	return crypto.Hash(buf)
}

func decode(t *tx.Transaction, txid types.Hash, inputs InputResolver) (*Decoded, error) {
	d := &Decoded{
		TxID:    txid,
		Outputs: make([][]types.TokenData, len(t.Outputs)),
	}

	dataIdx := t.DataOutputs()
	if len(dataIdx) > 1 {
		return nil, ErrMultipleDataOutputs
	}
	isData := func(i int) bool { return len(dataIdx) == 1 && dataIdx[0] == i }

	var payload *Payload
	if len(dataIdx) == 1 && IsPayload(t.Outputs[dataIdx[0]].Script.Data) {
		var err error
		if payload, err = ParsePayload(t.Outputs[dataIdx[0]].Script.Data); err != nil {
			return nil, fmt.Errorf("output %d: %w", dataIdx[0], err)
		}
		d.IsNTP1 = true
	}

	var queue []types.TokenData
	if payload != nil {
		switch payload.Op {
		case OpIssuance:
			if len(t.Inputs) == 0 {
				return nil, ErrIssuanceNoInputs
			}
			d.Type = TxTypeIssuance
			d.Symbol = payload.Symbol
			d.IssuedTokenID = DeriveTokenID(payload.Symbol, t.Inputs[0].PrevOut)
			d.IssuedAmount = new(big.Int).Set(payload.Amount)
			d.Metadata = payload.Metadata
			queue = append(queue, types.TokenData{ID: d.IssuedTokenID, Amount: new(big.Int).Set(payload.Amount)})
		case OpTransfer:
			d.Type = TxTypeTransfer
		}
	}

	for i, in := range t.Inputs {
		balances, err := inputs.TokenBalances(in.PrevOut)
		if err != nil {
			return nil, fmt.Errorf("input %d (%s): %w: %v", i, in.PrevOut, ErrResolveInput, err)
		}
		for _, td := range balances {
			if td.Amount != nil && td.Amount.Sign() > 0 {
				queue = append(queue, td.Clone())
			}
		}
	}

	if payload != nil {
		for i, ins := range payload.Instructions {
			out := int(ins.Output)
			if out >= len(t.Outputs) || isData(out) {
				return nil, fmt.Errorf("instruction %d: %w: %d", i, ErrInvalidTarget, out)
			}
			if len(queue) == 0 || ins.Amount.Cmp(queue[0].Amount) > 0 {
				return nil, fmt.Errorf("instruction %d: %w", i, ErrInsufficientTokens)
			}
			head := &queue[0]
			d.Outputs[out] = credit(d.Outputs[out], head.ID, ins.Amount)
			head.Amount.Sub(head.Amount, ins.Amount)
			if head.Amount.Sign() == 0 {
				queue = queue[1:]
			}
		}
	}

	if len(queue) > 0 {
		last := -1
		for i := len(t.Outputs) - 1; i >= 0; i-- {
			if !isData(i) && t.Outputs[i].Script.IsSpendable() {
				last = i
				break
			}
		}
		if last < 0 {
			return nil, ErrNoLeftoverOutput
		}
		for _, td := range queue {
			d.Outputs[last] = credit(d.Outputs[last], td.ID, td.Amount)
		}
	}
	return d, nil
}

// credit adds amount of id to list, merging with an existing entry.
func credit(list []types.TokenData, id types.TokenID, amount *big.Int) []types.TokenData {
	for i := range list {
		if list[i].ID == id {
			list[i].Amount = new(big.Int).Add(list[i].Amount, amount)
			return list
		}
	}
	return append(list, types.TokenData{ID: id, Amount: new(big.Int).Set(amount)})
}
