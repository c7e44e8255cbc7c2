package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHash_ZeroAndString(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Error("zero-value Hash should be zero")
	}
	if h.String() != strings.Repeat("0", 64) {
		t.Errorf("zero hash String() = %s", h.String())
	}

	h[0], h[31] = 0xab, 0xcd
	if h.IsZero() {
		t.Error("non-zero Hash reported zero")
	}
	s := h.String()
	if !strings.HasPrefix(s, "ab") || !strings.HasSuffix(s, "cd") {
		t.Errorf("String() = %s, want ab...cd", s)
	}
}

func TestHash_BytesIsCopy(t *testing.T) {
	h := Hash{0x01, 0x02}
	b := h.Bytes()
	b[0] = 0xff
	if h[0] != 0x01 {
		t.Error("Bytes() leaked the backing array")
	}
}

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", false},
		{"zeros", strings.Repeat("0", 64), false},
		{"short", "abcd", true},
		{"long", strings.Repeat("a", 66), true},
		{"not hex", strings.Repeat("g", 64), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HexToHash(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("HexToHash(%q) succeeded", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("HexToHash(%q): %v", tt.input, err)
			}
			if h.String() != tt.input {
				t.Errorf("roundtrip = %s, want %s", h, tt.input)
			}
		})
	}
}

func TestHash_JSON(t *testing.T) {
	h := Hash{0xaa, 0xbb}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Hash
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != h {
		t.Errorf("got %s, want %s", back, h)
	}

	var empty Hash
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil || !empty.IsZero() {
		t.Errorf("empty string should decode to zero hash, err=%v", err)
	}
}

func TestTokenID(t *testing.T) {
	var zero TokenID
	if !zero.IsZero() {
		t.Error("zero TokenID should be zero")
	}
	tid := TokenID{0xde, 0xad}
	if !strings.HasPrefix(tid.String(), "dead") {
		t.Errorf("String() = %s", tid)
	}
	back, err := HexToTokenID(tid.String())
	if err != nil || back != tid {
		t.Errorf("HexToTokenID roundtrip = %s, %v", back, err)
	}
}
