package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/HUSKI3/Neblio-Node/internal/issuance"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

func (s *Server) requireWallet() *Error {
	if s.deps.Wallet == nil {
		return &Error{
			Code:    CodeWalletUnavailable,
			Message: "no wallet loaded; create one with `neblio-cli wallet create` and restart the node",
		}
	}
	return nil
}

func (s *Server) handleWalletIssueToken(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	if s.deps.Issuer == nil {
		return nil, &Error{Code: CodeWalletUnavailable, Message: "token issuance is not available"}
	}

	var params IssueTokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	explicit := make([]types.Outpoint, 0, len(params.Inputs))
	for _, in := range params.Inputs {
		op, err := types.ParseOutpoint(in)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid input %q: %v", in, err)}
		}
		explicit = append(explicit, op)
	}

	var opts issuance.IssueOptions
	if params.DryRun {
		opts.Confirm = func(uint64) bool { return false }
	}

	res, err := s.deps.Issuer.IssueWithOptions(ctx, params.Request, explicit, opts)
	if err != nil {
		var aborted *issuance.AbortedError
		if params.DryRun && errors.As(err, &aborted) {
			return &IssueTokenResult{Fee: aborted.Fee, FeeCoins: types.FormatCoins(aborted.Fee)}, nil
		}
		return nil, issuanceError(err)
	}
	return &IssueTokenResult{
		TxID:      res.TxID.String(),
		TokenID:   res.TokenID.String(),
		Fee:       res.Fee,
		FeeCoins:  types.FormatCoins(res.Fee),
		Committed: true,
	}, nil
}

func (s *Server) handleWalletGetBalance(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	w := s.deps.Wallet
	if err := w.RefreshBalances(ctx); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("refresh balances: %v", err)}
	}

	res := &BalanceResult{
		Tokens:    w.TokenTotals(),
		Addresses: w.Balances(),
		Locked:    w.IsLocked(),
	}
	for _, b := range res.Addresses {
		res.Confirmed += b.Confirmed
		res.Unconfirmed += b.Unconfirmed
	}
	res.Total = res.Confirmed + res.Unconfirmed
	res.TotalCoins = types.FormatCoins(res.Total)
	return res, nil
}

func (s *Server) handleWalletUnlock(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params UnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Passphrase == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "passphrase is required"}
	}
	if err := s.deps.Wallet.Unlock([]byte(params.Passphrase), params.StakingOnly); err != nil {
		return nil, walletError(err)
	}
	return s.lockState(), nil
}

func (s *Server) handleWalletLock(*Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	s.deps.Wallet.Lock()
	return s.lockState(), nil
}

func (s *Server) lockState() *LockStateResult {
	w := s.deps.Wallet
	return &LockStateResult{Locked: w.IsLocked(), StakingOnly: w.UnlockedForStakingOnly()}
}

func (s *Server) handleWalletNewAddress(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params NewAddressParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	addr, err := s.deps.Wallet.NewAddress(params.Label)
	if err != nil {
		return nil, walletError(err)
	}
	return &AddressResult{Address: addr.String()}, nil
}

func (s *Server) handleWalletListAddresses(*Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	return s.deps.Wallet.Addresses(), nil
}

func (s *Server) handleWalletListUnspent(*Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	unspent, err := s.deps.Wallet.ListUnspent()
	if err != nil {
		return nil, walletError(err)
	}
	return unspent, nil
}

func (s *Server) handleWalletGetTransaction(req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	txid, err := types.HexToHash(params.Hash)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid hash: %v", err)}
	}
	rec, err := s.deps.Wallet.GetTransaction(txid)
	if err != nil {
		return nil, walletError(err)
	}
	return rec, nil
}

func (s *Server) handleWalletImportTx(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	var params ImportTxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}
	relevant, err := s.deps.Wallet.AddTransaction(ctx, params.Transaction, params.Height)
	if err != nil {
		return nil, &Error{Code: CodeRejected, Message: err.Error()}
	}
	return &ImportTxResult{TxID: params.Transaction.Hash().String(), Relevant: relevant}, nil
}
