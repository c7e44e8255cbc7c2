package issuance

import (
	"context"
	"math"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// FundingUTXO is an output offered to fund an issuance.
type FundingUTXO struct {
	Outpoint types.Outpoint
	Value    uint64
	Tokens   []types.TokenData
}

// FundingPlan is the outcome of funding selection. An automatic plan
// leaves input choice to the wallet.
type FundingPlan struct {
	Auto   bool
	Inputs []FundingUTXO
	Total  uint64
}

// Outpoints lists the plan's inputs, or nil for automatic plans.
func (p *FundingPlan) Outpoints() []types.Outpoint {
	if p.Auto {
		return nil
	}
	ops := make([]types.Outpoint, len(p.Inputs))
	for i, in := range p.Inputs {
		ops[i] = in.Outpoint
	}
	return ops
}

// SelectFunding checks an explicit funding set. With no explicit outputs
// the plan is automatic and the wallet's own selection applies.
//
// Every explicit output is classified first; one carrying tokens rejects
// the whole set. Only then are values summed and compared against
// config.MinIssuanceAmount.
func SelectFunding(ctx context.Context, explicit []types.Outpoint, lookup FundingLookup) (*FundingPlan, error) {
	if len(explicit) == 0 {
		return &FundingPlan{Auto: true}, nil
	}

	seen := make(map[types.Outpoint]struct{}, len(explicit))
	inputs := make([]FundingUTXO, 0, len(explicit))
	for _, op := range explicit {
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, tokens, err := lookup.LookupFunding(ctx, op)
		if err != nil {
			return nil, &FundingVerificationError{Outpoint: op, Err: err}
		}
		if types.HasTokens(tokens) {
			return nil, &TokenSafetyError{Outpoint: op, Tokens: types.CloneTokens(tokens)}
		}
		inputs = append(inputs, FundingUTXO{Outpoint: op, Value: value})
	}

	var total uint64
	for _, in := range inputs {
		if total > math.MaxUint64-in.Value {
			return nil, &FundingVerificationError{Outpoint: in.Outpoint, Err: ErrFundingOverflow}
		}
		total += in.Value
	}
	if total < config.MinIssuanceAmount {
		return nil, &InsufficientError{Stage: PreBuild, Need: config.MinIssuanceAmount, Have: total}
	}
	return &FundingPlan{Inputs: inputs, Total: total}, nil
}
