package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of an address payload (public key hash) in bytes.
const AddressSize = 20

// Base58 version bytes for pay-to-pubkey-hash addresses.
const (
	MainnetAddressVersion byte = 53  // "N..."
	TestnetAddressVersion byte = 65  // "T..."
	checksumLen                = 4
	encodedLen                 = 1 + AddressSize + checksumLen
)

// Address parse errors.
var (
	ErrEmptyAddress      = errors.New("empty address")
	ErrAddressEncoding   = errors.New("address is not valid base58")
	ErrAddressLength     = errors.New("address has wrong length")
	ErrAddressChecksum   = errors.New("address checksum mismatch")
	ErrAddressWrongChain = errors.New("address belongs to another network")
)

// activeVersion is the version byte used by String and accepted by
// ParseAddress. Set once at startup with SetAddressVersion.
var activeVersion atomic.Uint32

func init() {
	activeVersion.Store(uint32(MainnetAddressVersion))
}

// SetAddressVersion selects the network whose addresses are produced and accepted.
func SetAddressVersion(v byte) {
	activeVersion.Store(uint32(v))
}

// AddressVersion returns the active address version byte.
func AddressVersion() byte {
	return byte(activeVersion.Load())
}

// Address is a 160-bit public key hash.
type Address [AddressSize]byte

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the base58check encoding under the active network version.
func (a Address) String() string {
	return EncodeAddress(AddressVersion(), a)
}

// Hex returns the raw payload in hex.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the payload.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EncodeAddress encodes payload with an explicit version byte.
func EncodeAddress(version byte, a Address) string {
	buf := make([]byte, 0, encodedLen)
	buf = append(buf, version)
	buf = append(buf, a[:]...)
	sum := addressChecksum(buf)
	buf = append(buf, sum[:]...)
	return base58.Encode(buf)
}

// ParseAddress decodes a base58check address and checks that it belongs to
// the active network.
func ParseAddress(s string) (Address, error) {
	version, a, err := DecodeAddress(s)
	if err != nil {
		return Address{}, err
	}
	if version != AddressVersion() {
		return Address{}, fmt.Errorf("%w: version %d", ErrAddressWrongChain, version)
	}
	return a, nil
}

// DecodeAddress decodes a base58check address of any version.
func DecodeAddress(s string) (byte, Address, error) {
	if s == "" {
		return 0, Address{}, ErrEmptyAddress
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return 0, Address{}, fmt.Errorf("%w: %v", ErrAddressEncoding, err)
	}
	if len(raw) != encodedLen {
		return 0, Address{}, fmt.Errorf("%w: %d bytes", ErrAddressLength, len(raw))
	}
	body, sum := raw[:encodedLen-checksumLen], raw[encodedLen-checksumLen:]
	want := addressChecksum(body)
	if !bytes.Equal(sum, want[:]) {
		return 0, Address{}, ErrAddressChecksum
	}
	var a Address
	copy(a[:], body[1:])
	return body[0], a, nil
}

// IsValidAddress reports whether s parses as an address of the active network.
func IsValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// HexToAddress converts a raw 40-character hex payload to an Address.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func addressChecksum(body []byte) [checksumLen]byte {
	first := sha256.Sum256(body)
	second := sha256.Sum256(first[:])
	var out [checksumLen]byte
	copy(out[:], second[:checksumLen])
	return out
}
