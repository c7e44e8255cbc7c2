package types

import (
	"encoding/json"
	"testing"
)

func TestScriptType_String(t *testing.T) {
	tests := []struct {
		st   ScriptType
		want string
	}{
		{ScriptTypeP2PKH, "P2PKH"},
		{ScriptTypeNTP1, "NTP1"},
		{ScriptType(0xFF), "Unknown"},
		{ScriptType(0x00), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.st.String(); got != tt.want {
			t.Errorf("ScriptType(%#x).String() = %q, want %q", uint8(tt.st), got, tt.want)
		}
	}
}

func TestScript_PayToAddress(t *testing.T) {
	addr := Address{0x01, 0x02}
	s := PayToAddress(addr)
	got, ok := s.Address()
	if !ok || got != addr {
		t.Fatalf("Address() = %v, %v", got, ok)
	}
	if !s.IsSpendable() {
		t.Error("P2PKH should be spendable")
	}

	data := Script{Type: ScriptTypeNTP1, Data: []byte("NP")}
	if data.IsSpendable() {
		t.Error("NTP1 data output should not be spendable")
	}
	if _, ok := data.Address(); ok {
		t.Error("NTP1 data output has no address")
	}
}

func TestScript_JSON(t *testing.T) {
	s := Script{Type: ScriptTypeNTP1, Data: []byte{0xde, 0xad}}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"type":106,"data":"dead"}` {
		t.Errorf("json = %s", raw)
	}
	var back Script
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Type != s.Type || string(back.Data) != string(s.Data) {
		t.Errorf("roundtrip = %+v", back)
	}
}
