package mempool

import (
	"fmt"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
)

// DefaultMaxTxSize is the largest transaction accepted, in bytes.
const DefaultMaxTxSize = 100_000

// Policy holds local acceptance rules. Unlike tx.Validate these may
// differ between nodes.
type Policy struct {
	MaxTxSize int
}

// DefaultPolicy returns the policy used by New.
func DefaultPolicy() *Policy {
	return &Policy{MaxTxSize: DefaultMaxTxSize}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := transaction.Size()
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	for i, out := range transaction.Outputs {
		if len(out.Script.Data) > config.MaxScriptData {
			return fmt.Errorf("output %d script data too large: %d bytes, max %d", i, len(out.Script.Data), config.MaxScriptData)
		}
	}
	return nil
}
