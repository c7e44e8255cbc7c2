package crypto

import (
	"bytes"
	"testing"
)

func TestHash_KnownVectors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
		{"hello", "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f"},
	}
	for _, tt := range tests {
		if got := Hash([]byte(tt.input)).String(); got != tt.want {
			t.Errorf("Hash(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestTaggedHash_SeparatesDomains(t *testing.T) {
	a := TaggedHash("ntp1", []byte("x"))
	b := TaggedHash("other", []byte("x"))
	if a == b {
		t.Error("different tags produced the same hash")
	}
	if a != TaggedHash("ntp1", []byte("x")) {
		t.Error("TaggedHash is not deterministic")
	}
	if TaggedHash("t", []byte("ab"), []byte("c")) != TaggedHash("t", []byte("a"), []byte("bc")) {
		t.Error("parts are concatenated, split position must not matter")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	pub := bytes.Repeat([]byte{0x02}, 33)
	addr := AddressFromPubKey(pub)
	h := Hash(pub)
	if !bytes.Equal(addr[:], h[:20]) {
		t.Errorf("address %x is not the hash prefix %x", addr, h[:20])
	}
}
