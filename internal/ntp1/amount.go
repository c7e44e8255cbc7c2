package ntp1

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Amount errors.
var (
	ErrAmountSyntax   = errors.New("amount is not an integer")
	ErrAmountNegative = errors.New("amount must be positive")
	ErrAmountTooLarge = errors.New("amount exceeds maximum token amount")
)

var maxAmount = new(big.Int).SetUint64(^uint64(0))

// MaxAmount is the largest amount the wire format can carry (2^64-1).
// The returned value is a copy.
func MaxAmount() *big.Int {
	return new(big.Int).Set(maxAmount)
}

// ParseAmount parses a base-10 token amount in (0, MaxAmount].
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrAmountSyntax
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAmountSyntax, s)
	}
	if v.Sign() <= 0 {
		return nil, ErrAmountNegative
	}
	if v.Cmp(maxAmount) > 0 {
		return nil, ErrAmountTooLarge
	}
	return v, nil
}

// appendAmount writes a length-prefixed big-endian amount.
func appendAmount(buf []byte, v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() <= 0 {
		return nil, ErrAmountNegative
	}
	b := v.Bytes()
	if len(b) > MaxAmountBytes {
		return nil, ErrAmountTooLarge
	}
	buf = append(buf, byte(len(b)))
	return append(buf, b...), nil
}
