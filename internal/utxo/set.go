// Package utxo keeps the set of unspent outputs owned by the wallet.
package utxo

import (
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// UTXO is an unspent output. Height is zero while the creating transaction
// is unconfirmed.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Value    uint64         `json:"value"`
	Script   types.Script   `json:"script"`
	Height   uint64         `json:"height"`
}

// Address returns the owner of a P2PKH output.
func (u *UTXO) Address() (types.Address, bool) {
	return u.Script.Address()
}

// Set is the read/write surface of UTXO storage.
type Set interface {
	Get(outpoint types.Outpoint) (*UTXO, error)
	Put(utxo *UTXO) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)
}
