package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Balance is the derived holding of one address.
type Balance struct {
	Confirmed   uint64            `json:"confirmed"`
	Unconfirmed uint64            `json:"unconfirmed"`
	Tokens      []types.TokenData `json:"tokens,omitempty"`
}

// Total is the confirmed plus unconfirmed coin value.
func (b Balance) Total() uint64 {
	return b.Confirmed + b.Unconfirmed
}

func (b Balance) clone() Balance {
	b.Tokens = types.CloneTokens(b.Tokens)
	return b
}

// Unspent is a wallet output with the tokens it carries.
type Unspent struct {
	*utxo.UTXO
	Tokens []types.TokenData `json:"tokens,omitempty"`
}

// ListUnspent returns the wallet's unspent outputs in outpoint order.
func (w *Wallet) ListUnspent() ([]Unspent, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.listUnspentLocked()
}

func (w *Wallet) listUnspentLocked() ([]Unspent, error) {
	var out []Unspent
	err := w.utxos.ForEach(func(u *utxo.UTXO) error {
		addr, ok := u.Address()
		if !ok || !w.ownsLocked(addr) {
			return nil
		}
		tokens, err := w.tokens.TokenBalances(u.Outpoint)
		if err != nil {
			return fmt.Errorf("tokens of %s: %w", u.Outpoint, err)
		}
		out = append(out, Unspent{UTXO: u, Tokens: tokens})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Outpoint.Less(out[j].Outpoint) })
	return out, nil
}

// RefreshBalances recomputes every address balance from the UTXO set and
// swaps the result into the balance cache in one step. Refreshes run one
// at a time, so a slower refresh never replaces the result of a newer one.
func (w *Wallet) RefreshBalances(ctx context.Context) error {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	w.mu.RLock()
	unspent, err := w.listUnspentLocked()
	w.mu.RUnlock()
	if err != nil {
		return err
	}

	fresh := make(map[string]Balance)
	for _, u := range unspent {
		if err := ctx.Err(); err != nil {
			return err
		}
		addr, _ := u.Address()
		b := fresh[addr.String()]
		if u.Height > 0 {
			b.Confirmed += u.Value
		} else {
			b.Unconfirmed += u.Value
		}
		for _, td := range u.Tokens {
			b.Tokens = addToken(b.Tokens, td)
		}
		fresh[addr.String()] = b
	}
	w.balances.Replace(fresh)
	return nil
}

func addToken(list []types.TokenData, td types.TokenData) []types.TokenData {
	for i := range list {
		if list[i].ID == td.ID {
			list[i].Amount = new(big.Int).Add(list[i].Amount, td.Amount)
			return list
		}
	}
	return append(list, td.Clone())
}

// Balance returns the wallet's total coin balance from the cache.
func (w *Wallet) Balance(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var total uint64
	for _, b := range w.balances.Snapshot() {
		total += b.Total()
	}
	return total, nil
}

// Balances returns the cached per-address balances keyed by address.
func (w *Wallet) Balances() map[string]Balance {
	return w.balances.Snapshot()
}

// TokenTotals sums token holdings over every address.
func (w *Wallet) TokenTotals() []types.TokenData {
	var out []types.TokenData
	for _, addr := range w.balances.Keys() {
		b, _ := w.balances.Get(addr)
		for _, td := range b.Tokens {
			out = addToken(out, td)
		}
	}
	return out
}

// RunBalanceRefresher refreshes balances every interval until ctx ends.
func (w *Wallet) RunBalanceRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RefreshBalances(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("Balance refresh failed")
			}
		}
	}
}
