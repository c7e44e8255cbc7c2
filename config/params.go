package config

import "github.com/HUSKI3/Neblio-Node/pkg/types"

// Coin is the number of base units in one NEBL.
const Coin uint64 = 100_000_000

// Fee parameters.
const (
	// MinTxFee is the base relay fee, charged per started kilobyte.
	MinTxFee uint64 = 10_000
	// IssuanceFee is the flat extra fee every NTP1 issuance transaction pays.
	IssuanceFee uint64 = 10 * Coin
	// MinIssuanceAmount is the least a funding set must hold to pay for an
	// issuance: two base fees plus the issuance fee.
	MinIssuanceAmount = 2*MinTxFee + IssuanceFee
	// TokenOutputValue is the coin value attached to outputs that carry tokens.
	TokenOutputValue uint64 = 10_000
	// DustThreshold is the smallest change output worth creating; smaller
	// change is left to the fee.
	DustThreshold uint64 = 10_000
)

// Transaction limits.
const (
	MaxTxInputs   = 2500
	MaxTxOutputs  = 2500
	MaxScriptData = 65_536
)

// AddressVersion returns the base58 address version byte of network.
func AddressVersion(network NetworkType) byte {
	if network == Testnet {
		return types.TestnetAddressVersion
	}
	return types.MainnetAddressVersion
}
