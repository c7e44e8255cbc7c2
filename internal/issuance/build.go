package issuance

import (
	"context"
	"math/big"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Draft is a built, signed issuance that has not been committed. It is
// never modified after construction.
type Draft struct {
	Tx       *tx.Transaction
	Fee      uint64
	Symbol   string
	Amount   *big.Int
	Target   types.Address
	ChangeTo *types.Address // nil: wallet-chosen change address
	Metadata Metadata
	Plan     *FundingPlan
}

// BuildDraft asks the constructor for an issuance paying the whole amount
// to the target address. The fee is whatever the constructor reports for
// the final size; it is not assumed to equal config.IssuanceFee.
func BuildDraft(ctx context.Context, req Request, meta Metadata, plan *FundingPlan, svc Services) (*Draft, error) {
	p, err := parse(req)
	if err != nil {
		return nil, err
	}
	return buildDraft(ctx, p, meta, plan, svc)
}

func buildDraft(ctx context.Context, p *parsed, meta Metadata, plan *FundingPlan, svc Services) (*Draft, error) {
	raw, err := meta.Marshal()
	if err != nil {
		return nil, &BuildError{Err: err}
	}

	send := ntp1.SendRequest{
		Inputs: plan.Outpoints(),
		Recipients: []ntp1.Recipient{{
			Address: p.target,
			ToIssue: true,
			Amount:  new(big.Int).Set(p.amount),
		}},
		Issue: &ntp1.IssueData{
			Symbol:   p.symbol,
			Amount:   new(big.Int).Set(p.amount),
			Metadata: raw,
		},
		ChangeTo: p.change,
	}

	t, fee, err := svc.Constructor.CreateTransaction(ctx, send)
	if err != nil {
		balance, berr := svc.Wallet.Balance(ctx)
		if berr == nil && config.MinIssuanceAmount+fee > balance {
			return nil, &InsufficientError{
				Stage: PostBuild,
				Need:  config.MinIssuanceAmount + fee,
				Have:  balance,
				Fee:   fee,
			}
		}
		return nil, &BuildError{Err: err}
	}

	return &Draft{
		Tx:       t,
		Fee:      fee,
		Symbol:   p.symbol,
		Amount:   new(big.Int).Set(p.amount),
		Target:   p.target,
		ChangeTo: p.change,
		Metadata: meta,
		Plan:     plan,
	}, nil
}

func tokenIDOf(d *Draft) types.TokenID {
	if len(d.Tx.Inputs) == 0 {
		return types.TokenID{}
	}
	return ntp1.DeriveTokenID(d.Symbol, d.Tx.Inputs[0].PrevOut)
}
