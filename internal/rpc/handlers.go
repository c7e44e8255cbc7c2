package rpc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/internal/p2p"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

func (s *Server) handleNTP1GetToken(req *Request) (interface{}, *Error) {
	if s.deps.Tokens == nil {
		return nil, &Error{Code: CodeInternalError, Message: "token store not available"}
	}
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	switch {
	case params.ID != "":
		id, err := types.HexToTokenID(params.ID)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid token id: %v", err)}
		}
		rec, err := s.deps.Tokens.GetToken(id)
		if errors.Is(err, ntp1.ErrTokenNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "token not found"}
		}
		if err != nil {
			return nil, &Error{Code: CodeInternalError, Message: err.Error()}
		}
		return []*ntp1.TokenRecord{rec}, nil
	case strings.TrimSpace(params.Symbol) != "":
		recs, err := s.deps.Tokens.TokensBySymbol(strings.TrimSpace(params.Symbol))
		if err != nil {
			return nil, &Error{Code: CodeInternalError, Message: err.Error()}
		}
		if len(recs) == 0 {
			return nil, &Error{Code: CodeNotFound, Message: "token not found"}
		}
		return recs, nil
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: "id or symbol is required"}
	}
}

func (s *Server) handleNTP1ListTokens(*Request) (interface{}, *Error) {
	if s.deps.Tokens == nil {
		return nil, &Error{Code: CodeInternalError, Message: "token store not available"}
	}
	recs, err := s.deps.Tokens.ListTokens()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if recs == nil {
		recs = []*ntp1.TokenRecord{}
	}
	return recs, nil
}

func (s *Server) handleNTP1DecodeTx(req *Request) (interface{}, *Error) {
	if s.deps.Decoder == nil || s.deps.Tokens == nil {
		return nil, &Error{Code: CodeInternalError, Message: "decoder not available"}
	}
	var params DecodeTxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	t := params.Transaction
	if t == nil {
		if params.Hash == "" {
			return nil, &Error{Code: CodeInvalidParams, Message: "transaction or hash is required"}
		}
		txid, err := types.HexToHash(params.Hash)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid hash: %v", err)}
		}
		if t = s.lookupTx(txid); t == nil {
			return nil, &Error{Code: CodeNotFound, Message: "transaction not found"}
		}
	}

	d, err := s.deps.Decoder.Decode(t, s.deps.Tokens)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("not a valid NTP1 transaction: %v", err)}
	}
	return d, nil
}

// lookupTx finds a transaction in the mempool or the wallet.
func (s *Server) lookupTx(txid types.Hash) *tx.Transaction {
	if s.deps.Pool != nil {
		if t := s.deps.Pool.Get(txid); t != nil {
			return t
		}
	}
	if s.deps.Wallet != nil {
		if rec, err := s.deps.Wallet.GetTransaction(txid); err == nil {
			return rec.Tx
		}
	}
	return nil
}

func (s *Server) handleMempoolGetInfo(*Request) (interface{}, *Error) {
	if s.deps.Pool == nil {
		return nil, &Error{Code: CodeInternalError, Message: "mempool not available"}
	}
	return s.deps.Pool.Info(), nil
}

func (s *Server) handleMempoolGetContent(*Request) (interface{}, *Error) {
	if s.deps.Pool == nil {
		return nil, &Error{Code: CodeInternalError, Message: "mempool not available"}
	}
	hashes := s.deps.Pool.Hashes()
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.String()
	}
	return &MempoolContentResult{Hashes: out}, nil
}

func (s *Server) handleNetGetPeerInfo(*Request) (interface{}, *Error) {
	if s.deps.P2P == nil {
		return &PeerInfoResult{Peers: []p2p.Peer{}}, nil
	}
	peers := s.deps.P2P.PeerList()
	return &PeerInfoResult{Count: len(peers), Peers: peers}, nil
}

func (s *Server) handleNetGetNodeInfo(*Request) (interface{}, *Error) {
	res := &NodeInfoResult{
		Version: config.Version,
		Network: string(s.deps.Network),
		Wallet:  s.deps.Wallet != nil,
	}
	if s.deps.P2P != nil {
		res.ID = s.deps.P2P.ID().String()
		res.Addrs = s.deps.P2P.Addrs()
	}
	return res, nil
}
