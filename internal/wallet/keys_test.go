package wallet

import (
	"bytes"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testMaster(t *testing.T) *HDKey {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey: %v", err)
	}
	return master
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Fields(m)); n != 24 {
		t.Errorf("words = %d, want 24", n)
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic does not validate")
	}
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != SeedSize {
		t.Fatalf("seed = %d bytes", len(seed))
	}
	other, _ := SeedFromMnemonic(testMnemonic, "TREZOR")
	if bytes.Equal(seed, other) {
		t.Error("passphrase should change the seed")
	}
	if _, err := SeedFromMnemonic("abandon abandon", ""); err == nil {
		t.Error("invalid mnemonic should fail")
	}
}

func TestNewMasterKey_BadSeed(t *testing.T) {
	if _, err := NewMasterKey(make([]byte, 32)); err == nil {
		t.Error("32-byte seed should be rejected")
	}
}

func TestDeriveAddressKey(t *testing.T) {
	master := testMaster(t)

	a, err := master.DeriveAddressKey(ChainExternal, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.Depth() != 5 {
		t.Errorf("depth = %d, want 5", a.Depth())
	}
	again, _ := testMaster(t).DeriveAddressKey(ChainExternal, 0)
	if a.Address() != again.Address() {
		t.Error("derivation is not deterministic")
	}

	b, _ := master.DeriveAddressKey(ChainExternal, 1)
	c, _ := master.DeriveAddressKey(ChainInternal, 0)
	if a.Address() == b.Address() || a.Address() == c.Address() || b.Address() == c.Address() {
		t.Error("distinct paths should give distinct addresses")
	}
}

func TestHDKey_SignerMatchesAddress(t *testing.T) {
	k, err := testMaster(t).DeriveAddressKey(ChainExternal, 3)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := k.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if priv.Address() != k.Address() {
		t.Error("signing key address differs from HD key address")
	}
	if !bytes.Equal(priv.PublicKey(), k.PublicKey()) {
		t.Error("public keys differ")
	}
}

func TestHDKey_Neuter(t *testing.T) {
	k, _ := testMaster(t).DeriveAddressKey(ChainExternal, 0)
	pub := k.Neuter()
	if pub.IsPrivate() {
		t.Fatal("neutered key is private")
	}
	if pub.Address() != k.Address() {
		t.Error("neutered key has a different address")
	}
	if _, err := pub.PrivateKey(); err == nil {
		t.Error("public key should not sign")
	}
}
