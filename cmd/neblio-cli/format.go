package main

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/HUSKI3/Neblio-Node/internal/rpcclient"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// formatAmount renders base units as NEBL with all eight decimals.
func formatAmount(units uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(units), -types.CoinDecimals)
	return d.StringFixed(types.CoinDecimals)
}

// formatTokenAmount groups the integer token amount by thousands.
func formatTokenAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	s := v.String()
	neg := false
	if s[0] == '-' {
		neg, s = true, s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func decodeData(e *rpcclient.RPCError, v interface{}) bool {
	if len(e.Data) == 0 {
		return false
	}
	return json.Unmarshal(e.Data, v) == nil
}
