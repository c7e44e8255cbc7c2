package rpc

import (
	"errors"

	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	"github.com/HUSKI3/Neblio-Node/internal/mempool"
	"github.com/HUSKI3/Neblio-Node/internal/wallet"
)

// issuanceErrorData is attached to wallet_issueToken failures.
type issuanceErrorData struct {
	Kind      string `json:"kind"`
	Validator string `json:"validator,omitempty"`
	Shortfall uint64 `json:"shortfall,omitempty"`
	Fee       uint64 `json:"fee,omitempty"`
	Outpoint  string `json:"outpoint,omitempty"`
}

// issuanceError maps a pipeline failure to an RPC error. The message is
// the pipeline's own.
func issuanceError(err error) *Error {
	kind := issuance.KindOf(err)
	data := &issuanceErrorData{Kind: string(kind)}
	code := CodeInternalError

	var (
		ve *issuance.ValidationError
		ie *issuance.InsufficientError
		te *issuance.TokenSafetyError
		fe *issuance.FundingVerificationError
	)
	if errors.As(err, &ie) {
		data.Shortfall = ie.Shortfall()
		data.Fee = ie.Fee
	}

	switch kind {
	case issuance.KindValidation:
		code = CodeInvalidParams
		if errors.As(err, &ve) {
			data.Validator = ve.Kind.String()
		}
	case issuance.KindWalletLocked:
		code = CodeWalletLocked
	case issuance.KindTokenSafety:
		code = CodeTokenSafety
		if errors.As(err, &te) {
			data.Outpoint = te.Outpoint.String()
		}
	case issuance.KindFundingVerification:
		code = CodeFundingVerification
		if errors.As(err, &fe) {
			data.Outpoint = fe.Outpoint.String()
		}
	case issuance.KindInsufficientFunding, issuance.KindInsufficientFunds:
		code = CodeInsufficientFunds
	case issuance.KindBuild:
		code = CodeBuildFailed
	case issuance.KindProtocol:
		code = CodeProtocolViolation
	case issuance.KindCommit:
		code = CodeCommitFailed
	}
	return &Error{Code: code, Message: err.Error(), Data: data}
}

// walletError maps wallet failures outside the issuance pipeline.
func walletError(err error) *Error {
	switch {
	case errors.Is(err, wallet.ErrWrongPassphrase):
		return &Error{Code: CodeWrongPassphrase, Message: err.Error()}
	case errors.Is(err, wallet.ErrLocked), errors.Is(err, wallet.ErrStakingOnly):
		return &Error{Code: CodeWalletLocked, Message: err.Error()}
	case errors.Is(err, wallet.ErrTxNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, mempool.ErrAlreadyExists), errors.Is(err, mempool.ErrConflict),
		errors.Is(err, mempool.ErrValidation), errors.Is(err, mempool.ErrFeeTooLow),
		errors.Is(err, mempool.ErrPoolFull):
		return &Error{Code: CodeRejected, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}
