package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// CoinDecimals is the number of decimal places of one NEBL.
const CoinDecimals = 8

// FormatCoins renders a base-unit amount as a NEBL decimal string,
// e.g. 1000020000 -> "10.0002".
func FormatCoins(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -CoinDecimals).String()
}

// ParseCoins parses a NEBL decimal string into base units. More than
// CoinDecimals fractional digits, negative values and overflow are rejected.
func ParseCoins(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid coin amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid coin amount %q: negative", s)
	}
	units := d.Shift(CoinDecimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("invalid coin amount %q: more than %d decimals", s, CoinDecimals)
	}
	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("invalid coin amount %q: overflow", s)
	}
	return bi.Uint64(), nil
}
