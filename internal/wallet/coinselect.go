package wallet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/HUSKI3/Neblio-Node/internal/utxo"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no spendable outputs")
)

// CoinSelection is the result of SelectCoins.
type CoinSelection struct {
	Inputs []*utxo.UTXO
	Total  uint64
	Change uint64 // Total - target
}

// SelectCoins picks outputs worth at least target. It compares the
// smallest single output that covers target with largest-first
// accumulation and keeps whichever leaves less change. Ties go to the
// single output.
func SelectCoins(candidates []*utxo.UTXO, target uint64) (*CoinSelection, error) {
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	usable := make([]*utxo.UTXO, 0, len(candidates))
	for _, u := range candidates {
		if u.Value > 0 {
			usable = append(usable, u)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoUTXOs
	}
	sort.Slice(usable, func(i, j int) bool {
		if usable[i].Value != usable[j].Value {
			return usable[i].Value < usable[j].Value
		}
		return usable[i].Outpoint.Less(usable[j].Outpoint)
	})

	var single *CoinSelection
	for _, u := range usable {
		if u.Value >= target {
			single = &CoinSelection{Inputs: []*utxo.UTXO{u}, Total: u.Value, Change: u.Value - target}
			break
		}
	}

	var accum *CoinSelection
	var picked []*utxo.UTXO
	var total uint64
	for i := len(usable) - 1; i >= 0; i-- {
		if total > math.MaxUint64-usable[i].Value {
			break
		}
		picked = append(picked, usable[i])
		total += usable[i].Value
		if total >= target {
			accum = &CoinSelection{Inputs: picked, Total: total, Change: total - target}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, target)
	}
}
