package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// TokenData is an NTP1 token balance held by a single output.
type TokenData struct {
	ID     TokenID  `json:"id"`
	Amount *big.Int `json:"amount"`
}

// Clone returns a deep copy; the amount is never shared.
func (td TokenData) Clone() TokenData {
	out := TokenData{ID: td.ID}
	if td.Amount != nil {
		out.Amount = new(big.Int).Set(td.Amount)
	}
	return out
}

type tokenDataJSON struct {
	ID     TokenID `json:"id"`
	Amount string  `json:"amount"`
}

// MarshalJSON encodes the amount as a decimal string so no precision is lost.
func (td TokenData) MarshalJSON() ([]byte, error) {
	amt := "0"
	if td.Amount != nil {
		amt = td.Amount.String()
	}
	return json.Marshal(tokenDataJSON{ID: td.ID, Amount: amt})
}

func (td *TokenData) UnmarshalJSON(data []byte) error {
	var j tokenDataJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	amt, ok := new(big.Int).SetString(j.Amount, 10)
	if !ok {
		return fmt.Errorf("invalid token amount %q", j.Amount)
	}
	td.ID = j.ID
	td.Amount = amt
	return nil
}

// CloneTokens deep-copies a balance list.
func CloneTokens(in []TokenData) []TokenData {
	if in == nil {
		return nil
	}
	out := make([]TokenData, len(in))
	for i, td := range in {
		out[i] = td.Clone()
	}
	return out
}

// HasTokens reports whether any entry carries a positive amount.
func HasTokens(in []TokenData) bool {
	for _, td := range in {
		if td.Amount != nil && td.Amount.Sign() > 0 {
			return true
		}
	}
	return false
}
