package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Construction errors.
var (
	ErrNoRecipients  = errors.New("transaction has no recipients")
	ErrZeroPayment   = errors.New("payment amount must be positive")
	ErrUnknownOutput = errors.New("output not found in wallet")
	ErrNotOwned      = errors.New("output is not owned by this wallet")
)

// maxFeeRounds bounds the fee/size fixpoint loop.
const maxFeeRounds = 8

// CreateTransaction builds and signs a transaction for req.
//
// Outputs are laid out as the recipients in order, then the NTP1 data
// output when tokens are involved, then change. Token recipients receive
// config.TokenOutputValue. The fee is the size based relay fee, plus
// config.IssuanceFee for issuances; change below config.DustThreshold is
// left to the fee. The returned fee is what the transaction pays, or on
// failure the fee the last attempt needed.
func (w *Wallet) CreateTransaction(ctx context.Context, req ntp1.SendRequest) (*tx.Transaction, uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.canSpendLocked(); err != nil {
		return nil, 0, err
	}
	if len(req.Recipients) == 0 {
		return nil, 0, ErrNoRecipients
	}

	var pay uint64
	for i, r := range req.Recipients {
		v := outputValue(r)
		if v == 0 {
			return nil, 0, fmt.Errorf("recipient %d: %w", i, ErrZeroPayment)
		}
		if pay > math.MaxUint64-v {
			return nil, 0, fmt.Errorf("recipient %d: payment total overflows", i)
		}
		pay += v
	}

	var extra uint64
	if req.Issue != nil {
		extra = config.IssuanceFee
	}

	candidates, err := w.fundingCandidatesLocked(req.Inputs)
	if err != nil {
		return nil, 0, err
	}

	changeAddr, freshChange, changeKey, err := w.changeAddressLocked(req.ChangeTo)
	if err != nil {
		return nil, 0, err
	}

	fee := config.MinTxFee + extra
	for round := 0; round < maxFeeRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fee, err
		}
		if pay > math.MaxUint64-fee {
			return nil, fee, fmt.Errorf("payment plus fee overflows")
		}
		need := pay + fee

		inputs, total, err := pickInputs(candidates, len(req.Inputs) > 0, need)
		if err != nil {
			return nil, fee, err
		}
		change := total - need
		if change < config.DustThreshold {
			change = 0
		}

		b, err := assemble(req, inputs, change, changeAddr)
		if err != nil {
			return nil, fee, err
		}
		required := tx.RequiredFee(b.Build(), config.MinTxFee) + extra
		if required > fee {
			fee = required
			continue
		}

		if err := w.signLocked(b, inputs); err != nil {
			return nil, fee, err
		}
		if change > 0 && freshChange != nil {
			if err := w.rememberLocked(*freshChange, changeKey); err != nil {
				return nil, fee, err
			}
		}
		t := b.Build()
		paid := total - pay - change
		w.logger.Debug().
			Str("txid", t.Hash().String()).
			Int("inputs", len(inputs)).
			Int("outputs", len(t.Outputs)).
			Uint64("fee", paid).
			Msg("Transaction created")
		return t, paid, nil
	}
	return nil, fee, fmt.Errorf("fee did not settle after %d rounds", maxFeeRounds)
}

func outputValue(r ntp1.Recipient) uint64 {
	if r.IsToken() && r.Value < config.TokenOutputValue {
		return config.TokenOutputValue
	}
	return r.Value
}

// fundingCandidatesLocked resolves explicit inputs, or lists every
// token-free output the wallet can spend.
func (w *Wallet) fundingCandidatesLocked(explicit []types.Outpoint) ([]*utxo.UTXO, error) {
	if len(explicit) > 0 {
		seen := make(map[types.Outpoint]struct{}, len(explicit))
		out := make([]*utxo.UTXO, 0, len(explicit))
		for _, op := range explicit {
			if _, dup := seen[op]; dup {
				continue
			}
			seen[op] = struct{}{}
			u, err := w.utxos.Get(op)
			if errors.Is(err, utxo.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, op)
			}
			if err != nil {
				return nil, err
			}
			addr, ok := u.Address()
			if !ok || w.keys[addr] == nil {
				return nil, fmt.Errorf("%w: %s", ErrNotOwned, op)
			}
			out = append(out, u)
		}
		return out, nil
	}

	unspent, err := w.listUnspentLocked()
	if err != nil {
		return nil, err
	}
	out := make([]*utxo.UTXO, 0, len(unspent))
	for _, u := range unspent {
		if types.HasTokens(u.Tokens) {
			continue
		}
		if _, spent := w.pool.SpentBy(u.Outpoint); spent {
			continue
		}
		addr, _ := u.Address()
		if w.keys[addr] == nil {
			continue
		}
		out = append(out, u.UTXO)
	}
	return out, nil
}

// pickInputs spends every explicit input, or runs coin selection.
func pickInputs(candidates []*utxo.UTXO, explicit bool, need uint64) ([]*utxo.UTXO, uint64, error) {
	if !explicit {
		sel, err := SelectCoins(candidates, need)
		if errors.Is(err, ErrNoUTXOs) {
			return nil, 0, fmt.Errorf("%w: have 0, need %d", ErrInsufficientFunds, need)
		}
		if err != nil {
			return nil, 0, err
		}
		return sel.Inputs, sel.Total, nil
	}
	var total uint64
	for _, u := range candidates {
		if total > math.MaxUint64-u.Value {
			return nil, 0, fmt.Errorf("input total overflows")
		}
		total += u.Value
	}
	if total < need {
		return nil, 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, need)
	}
	return candidates, total, nil
}

// changeAddressLocked returns the requested change address, or derives
// the next internal one. A derived address is only recorded once a
// transaction actually pays change to it.
func (w *Wallet) changeAddressLocked(requested *types.Address) (types.Address, *AddressEntry, *crypto.PrivateKey, error) {
	if requested != nil {
		return *requested, nil, nil, nil
	}
	entry, key, err := w.deriveNextLocked(ChainInternal)
	if err != nil {
		return types.Address{}, nil, nil, err
	}
	return entry.Address, &entry, key, nil
}

func assemble(req ntp1.SendRequest, inputs []*utxo.UTXO, change uint64, changeAddr types.Address) (*tx.Builder, error) {
	b := tx.NewBuilder()
	for _, u := range inputs {
		b.AddInput(u.Outpoint)
	}
	idx := make([]int, len(req.Recipients))
	for i, r := range req.Recipients {
		idx[i] = b.NumOutputs()
		b.AddPayment(outputValue(r), r.Address)
	}
	if req.HasTokenRecipients() {
		payload, err := req.Payload(idx)
		if err != nil {
			return nil, err
		}
		data, err := payload.Encode()
		if err != nil {
			return nil, err
		}
		b.AddDataOutput(data)
	}
	if change > 0 {
		b.AddPayment(change, changeAddr)
	}
	return b, nil
}

func (w *Wallet) signLocked(b *tx.Builder, inputs []*utxo.UTXO) error {
	signers := make(map[types.Address]crypto.Signer, len(inputs))
	owners := make(map[types.Outpoint]types.Address, len(inputs))
	for _, u := range inputs {
		addr, ok := u.Address()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotOwned, u.Outpoint)
		}
		key := w.keys[addr]
		if key == nil {
			return fmt.Errorf("%w: %s", ErrNotOwned, u.Outpoint)
		}
		signers[addr] = key
		owners[u.Outpoint] = addr
	}
	return b.Sign(signers, owners)
}
