package issuance

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
)

// VerifyDraft decodes the draft the way a receiving peer would and checks
// that it issues exactly the requested token to the target. Any failure is
// a *ProtocolError. The draft is not modified.
func VerifyDraft(d *Draft, dec ntp1.Decoder, inputs ntp1.InputResolver) error {
	fail := func(err error) error {
		return &ProtocolError{TxID: d.Tx.Hash(), Err: err}
	}

	if err := d.Tx.Validate(); err != nil {
		return fail(err)
	}
	decoded, err := dec.Decode(d.Tx, inputs)
	if err != nil {
		return fail(err)
	}
	if !decoded.IsNTP1 || decoded.Type != ntp1.TxTypeIssuance {
		return fail(fmt.Errorf("decoded as %s, want issuance", decoded.Type))
	}
	if decoded.Symbol != d.Symbol {
		return fail(fmt.Errorf("issued symbol %q, want %q", decoded.Symbol, d.Symbol))
	}
	if decoded.IssuedAmount == nil || decoded.IssuedAmount.Cmp(d.Amount) != 0 {
		return fail(fmt.Errorf("issued amount %v, want %s", decoded.IssuedAmount, d.Amount))
	}
	if len(d.Tx.Inputs) > 0 {
		if want := ntp1.DeriveTokenID(d.Symbol, d.Tx.Inputs[0].PrevOut); decoded.IssuedTokenID != want {
			return fail(fmt.Errorf("token id %s, want %s", decoded.IssuedTokenID, want))
		}
	}

	toTarget := new(big.Int)
	for i, out := range d.Tx.Outputs {
		addr, ok := out.Script.Address()
		if !ok || addr != d.Target {
			continue
		}
		for _, td := range decoded.TokensAt(i) {
			if td.ID == decoded.IssuedTokenID {
				toTarget.Add(toTarget, td.Amount)
			}
		}
	}
	if toTarget.Sign() == 0 {
		return fail(errors.New("no output to the target address carries the issued token"))
	}
	if toTarget.Cmp(d.Amount) != 0 {
		return fail(fmt.Errorf("target receives %s tokens, want %s", toTarget, d.Amount))
	}
	for i := range d.Tx.Outputs {
		for _, td := range decoded.TokensAt(i) {
			if td.ID != decoded.IssuedTokenID && td.Amount.Sign() > 0 {
				return fail(fmt.Errorf("output %d carries foreign token %s", i, td.ID))
			}
		}
	}
	return nil
}
