package issuance

import (
	"errors"
	"fmt"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Wallet state errors.
var (
	ErrWalletLocked = errors.New("please enter the wallet passphrase first")
	ErrStakingOnly  = errors.New("wallet is unlocked for staking only")
	ErrAborted      = errors.New("issuance aborted by user")

	ErrInsufficientFunding = errors.New("insufficient funding")
	ErrInsufficientFunds   = errors.New("insufficient funds")

	ErrFundingOverflow = errors.New("funding values overflow the coin total")
)

// ValidationKind identifies which request check failed.
type ValidationKind int

const (
	InvalidChangeAddress ValidationKind = iota + 1
	InvalidTargetAddress
	EmptySymbol
	InvalidName
	InvalidIssuer
	InvalidAmount
	AmountTooLarge
	SymbolTooLong
)

func (k ValidationKind) String() string {
	switch k {
	case InvalidChangeAddress:
		return "invalid_change_address"
	case InvalidTargetAddress:
		return "invalid_target_address"
	case EmptySymbol:
		return "empty_symbol"
	case InvalidName:
		return "invalid_name"
	case InvalidIssuer:
		return "invalid_issuer"
	case InvalidAmount:
		return "invalid_amount"
	case AmountTooLarge:
		return "amount_too_large"
	case SymbolTooLong:
		return "symbol_too_long"
	default:
		return "unknown"
	}
}

// ValidationError is a user-correctable problem with a request. Nothing
// has happened when it is returned.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// TokenSafetyError rejects an explicit funding set because one of its
// outputs holds tokens that spending it would burn.
type TokenSafetyError struct {
	Outpoint types.Outpoint
	Tokens   []types.TokenData
}

func (e *TokenSafetyError) Error() string {
	return fmt.Sprintf("output %s of transaction %s holds %d NTP1 token balance(s); "+
		"issuance cannot be funded from NTP1 outputs, choose outputs that contain only NEBL",
		e.Outpoint, e.Outpoint.TxID, len(e.Tokens))
}

// FundingVerificationError reports that an explicit funding output could
// not be classified.
type FundingVerificationError struct {
	Outpoint types.Outpoint
	Err      error
}

func (e *FundingVerificationError) Error() string {
	return fmt.Sprintf("an error occurred while verifying output %s; choose a different set of outputs: %v",
		e.Outpoint, e.Err)
}

func (e *FundingVerificationError) Unwrap() error { return e.Err }

// Stage tells whether a shortfall was found before or after the fee was known.
type Stage int

const (
	PreBuild Stage = iota
	PostBuild
)

func (s Stage) String() string {
	if s == PostBuild {
		return "post-build"
	}
	return "pre-build"
}

// InsufficientError reports a coin shortfall. PreBuild errors match
// ErrInsufficientFunding, PostBuild errors match ErrInsufficientFunds.
type InsufficientError struct {
	Stage Stage
	Need  uint64
	Have  uint64
	Fee   uint64 // PostBuild only
}

// Shortfall is how many base units are missing.
func (e *InsufficientError) Shortfall() uint64 {
	if e.Have >= e.Need {
		return 0
	}
	return e.Need - e.Have
}

func (e *InsufficientError) Error() string {
	if e.Stage == PostBuild {
		return fmt.Sprintf("insufficient funds to create the transaction; the required fee is %s NEBL (need %s, have %s)",
			types.FormatCoins(e.Fee), types.FormatCoins(e.Need), types.FormatCoins(e.Have))
	}
	return fmt.Sprintf("not enough NEBL to issue this token: need at least %s, have %s (short %s); "+
		"it may be slightly more depending on the size of the metadata",
		types.FormatCoins(e.Need), types.FormatCoins(e.Have), types.FormatCoins(e.Shortfall()))
}

func (e *InsufficientError) Is(target error) bool {
	switch target {
	case ErrInsufficientFunding:
		return e.Stage == PreBuild
	case ErrInsufficientFunds:
		return e.Stage == PostBuild
	}
	return false
}

// BuildError carries a transaction construction failure. Its message is
// the constructor's, unchanged.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return e.Err.Error() }

func (e *BuildError) Unwrap() error { return e.Err }

// ProtocolError means a built draft failed to decode as a valid NTP1
// issuance. It points at a construction defect and is never retried.
type ProtocolError struct {
	TxID types.Hash
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("the transaction created (%s) would be an invalid NTP1 transaction: %v", e.TxID, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CommitError reports a commit or broadcast failure. Funds have not moved;
// a fresh issuance attempt is safe.
type CommitError struct {
	TxID types.Hash
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("transaction commit for broadcast failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// AbortedError is returned when the confirmation hook declines the fee.
type AbortedError struct {
	Fee uint64
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("issuance aborted by user (fee %s NEBL)", types.FormatCoins(e.Fee))
}

func (e *AbortedError) Is(target error) bool { return target == ErrAborted }

// Kind classifies pipeline errors for callers and metrics.
type Kind string

const (
	KindNone                Kind = ""
	KindValidation          Kind = "validation"
	KindWalletLocked        Kind = "wallet_locked"
	KindTokenSafety         Kind = "token_safety"
	KindFundingVerification Kind = "funding_verification"
	KindInsufficientFunding Kind = "insufficient_funding"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindBuild               Kind = "build"
	KindProtocol            Kind = "protocol_invariant_broken"
	KindCommit              Kind = "commit"
	KindAborted             Kind = "aborted"
	KindInternal            Kind = "internal"
)

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		ve *ValidationError
		te *TokenSafetyError
		fe *FundingVerificationError
		be *BuildError
		pe *ProtocolError
		ce *CommitError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrWalletLocked), errors.Is(err, ErrStakingOnly):
		return KindWalletLocked
	case errors.As(err, &te):
		return KindTokenSafety
	case errors.As(err, &fe):
		return KindFundingVerification
	case errors.Is(err, ErrInsufficientFunding):
		return KindInsufficientFunding
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.As(err, &pe):
		return KindProtocol
	case errors.As(err, &ce):
		return KindCommit
	case errors.As(err, &be):
		return KindBuild
	case errors.Is(err, ErrAborted):
		return KindAborted
	default:
		return KindInternal
	}
}
