package types

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestTokenData_CloneIsDeep(t *testing.T) {
	td := TokenData{ID: TokenID{0x01}, Amount: big.NewInt(100)}
	c := td.Clone()
	c.Amount.SetInt64(5)
	if td.Amount.Int64() != 100 {
		t.Errorf("clone shares amount: original now %s", td.Amount)
	}
}

func TestTokenData_JSONKeepsPrecision(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	td := TokenData{ID: TokenID{0x02}, Amount: huge}
	raw, err := json.Marshal(td)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back TokenData
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Amount.Cmp(huge) != 0 || back.ID != td.ID {
		t.Errorf("roundtrip = %+v", back)
	}
	if err := json.Unmarshal([]byte(`{"id":"","amount":"x"}`), &back); err == nil {
		t.Error("non-numeric amount accepted")
	}
}

func TestHasTokens(t *testing.T) {
	if HasTokens(nil) {
		t.Error("nil has no tokens")
	}
	if HasTokens([]TokenData{{Amount: big.NewInt(0)}}) {
		t.Error("zero amount is not a balance")
	}
	if !HasTokens([]TokenData{{Amount: big.NewInt(0)}, {Amount: big.NewInt(1)}}) {
		t.Error("positive amount not detected")
	}
}
