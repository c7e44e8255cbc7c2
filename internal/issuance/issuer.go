package issuance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/log"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Result describes a committed issuance.
type Result struct {
	TxID    types.Hash    `json:"txid"`
	TokenID types.TokenID `json:"token_id"`
	Fee     uint64        `json:"fee"`
}

// IssueOptions adjusts a single issuance.
type IssueOptions struct {
	// Confirm, when set, is shown the fee after the draft is verified and
	// before it is committed. Returning false aborts with *AbortedError.
	Confirm func(fee uint64) bool
}

// Issuer runs the issuance pipeline against a set of services.
// Concurrent calls are not serialized.
type Issuer struct {
	svc     Services
	metrics *Metrics
	logger  zerolog.Logger
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(i *Issuer) { i.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

// NewIssuer creates an Issuer.
func NewIssuer(svc Services, opts ...Option) *Issuer {
	i := &Issuer{svc: svc, logger: log.Issuance}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue issues a token and returns the committing transaction's id.
// With no explicit outpoints the wallet selects the funding itself.
func (i *Issuer) Issue(ctx context.Context, req Request, explicit []types.Outpoint) (types.Hash, error) {
	res, err := i.IssueWithOptions(ctx, req, explicit, IssueOptions{})
	if err != nil {
		return types.Hash{}, err
	}
	return res.TxID, nil
}

// IssueWithOptions is Issue with a per-call confirmation hook.
func (i *Issuer) IssueWithOptions(ctx context.Context, req Request, explicit []types.Outpoint, opts IssueOptions) (*Result, error) {
	start := time.Now()
	logger := i.logger.With().
		Str("attempt", uuid.NewString()).
		Str("symbol", req.Symbol).
		Logger()

	res, err := i.run(ctx, logger, req, explicit, opts)

	kind := KindOf(err)
	var fee uint64
	if res != nil {
		fee = res.Fee
	}
	i.metrics.observe(kind, time.Since(start).Seconds(), fee)

	switch kind {
	case KindNone:
		logger.Info().
			Str("txid", res.TxID.String()).
			Str("token", res.TokenID.String()).
			Str("fee", types.FormatCoins(res.Fee)).
			Msg("Token issued")
	case KindProtocol:
		logger.Error().Err(err).Msg("Built issuance failed protocol verification")
	case KindAborted, KindValidation:
		logger.Debug().Err(err).Str("kind", string(kind)).Msg("Issuance not attempted")
	default:
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("Issuance failed")
	}
	return res, err
}

func (i *Issuer) run(ctx context.Context, logger zerolog.Logger, req Request, explicit []types.Outpoint, opts IssueOptions) (*Result, error) {
	p, err := parse(req)
	if err != nil {
		return nil, err
	}

	if i.svc.Wallet.IsLocked() {
		return nil, ErrWalletLocked
	}
	if i.svc.Wallet.UnlockedForStakingOnly() {
		return nil, ErrStakingOnly
	}

	meta := BuildMetadata(req)

	balance, err := i.svc.Wallet.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if config.MinIssuanceAmount > balance {
		return nil, &InsufficientError{Stage: PreBuild, Need: config.MinIssuanceAmount, Have: balance}
	}

	plan, err := SelectFunding(ctx, explicit, i.svc.Funding)
	if err != nil {
		return nil, err
	}
	logger.Debug().Bool("auto", plan.Auto).Int("inputs", len(plan.Inputs)).
		Uint64("total", plan.Total).Msg("Funding selected")

	draft, err := buildDraft(ctx, p, meta, plan, i.svc)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("txid", draft.Tx.Hash().String()).Uint64("fee", draft.Fee).
		Int("size", draft.Tx.Size()).Msg("Draft built")

	if err := VerifyDraft(draft, i.svc.Decoder, i.svc.Inputs); err != nil {
		return nil, err
	}

	if opts.Confirm != nil && !opts.Confirm(draft.Fee) {
		return nil, &AbortedError{Fee: draft.Fee}
	}

	txid, err := CommitDraft(ctx, draft, i.svc.Committer)
	if err != nil {
		return nil, err
	}
	return &Result{
		TxID:    txid,
		TokenID: tokenIDOf(draft),
		Fee:     draft.Fee,
	}, nil
}
