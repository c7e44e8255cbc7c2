package issuance

import (
	"context"

	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// WalletStatus reports the wallet's spendable balance and lock state.
type WalletStatus interface {
	Balance(ctx context.Context) (uint64, error)
	IsLocked() bool
	UnlockedForStakingOnly() bool
}

// FundingLookup resolves an outpoint to its coin value and token balances.
type FundingLookup interface {
	LookupFunding(ctx context.Context, outpoint types.Outpoint) (value uint64, tokens []types.TokenData, err error)
}

// Constructor builds and signs a transaction for a send request. The fee
// is returned even when construction fails, so callers can tell a
// shortfall from other failures.
type Constructor interface {
	CreateTransaction(ctx context.Context, req ntp1.SendRequest) (*tx.Transaction, uint64, error)
}

// Committer records a transaction locally and broadcasts it.
type Committer interface {
	CommitTransaction(ctx context.Context, t *tx.Transaction) (types.Hash, error)
}

// Services bundles the collaborators an Issuer works with.
type Services struct {
	Wallet      WalletStatus
	Funding     FundingLookup
	Constructor Constructor
	Decoder     ntp1.Decoder
	Inputs      ntp1.InputResolver
	Committer   Committer
}
