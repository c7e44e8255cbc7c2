// Package ntp1 implements the NTP1 token protocol: the payload carried in a
// transaction's data output, the decoder that derives per-output token
// balances from it, and the local index of issued tokens and balances.
//
// Token balances never live on outputs themselves. They follow from
// decoding the spending transaction against the balances of its inputs:
// the issued amount (for issuances) and every input balance form a queue,
// transfer instructions draw from the head of that queue, and whatever is
// left goes to the last spendable output.
package ntp1

import (
	"encoding/binary"

	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Wire constants.
const (
	ProtocolVersion byte = 0x03

	OpIssuance byte = 0x01
	OpTransfer byte = 0x10

	MaxSymbolLen   = 32
	MaxAmountBytes = 8
)

// magic opens every NTP1 payload.
var magic = [2]byte{'N', 'P'}

// TxType classifies a decoded transaction.
type TxType uint8

const (
	TxTypeNone TxType = iota
	TxTypeIssuance
	TxTypeTransfer
)

func (t TxType) String() string {
	switch t {
	case TxTypeIssuance:
		return "issuance"
	case TxTypeTransfer:
		return "transfer"
	default:
		return "none"
	}
}

// MarshalText encodes the type by name.
func (t TxType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TxType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "issuance":
		*t = TxTypeIssuance
	case "transfer":
		*t = TxTypeTransfer
	default:
		*t = TxTypeNone
	}
	return nil
}

// DeriveTokenID returns the id of a token issued under symbol by a
// transaction whose first input spends firstInput. The outpoint makes ids
// unique even when symbols repeat.
func DeriveTokenID(symbol string, firstInput types.Outpoint) types.TokenID {
	var op [types.HashSize + 4]byte
	copy(op[:], firstInput.TxID[:])
	binary.BigEndian.PutUint32(op[types.HashSize:], firstInput.Index)
	h := crypto.TaggedHash("ntp1", []byte{byte(len(symbol))}, []byte(symbol), op[:])
	return types.TokenID(h)
}
