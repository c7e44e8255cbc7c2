package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/HUSKI3/Neblio-Node/config"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrOutputOverflow     = errors.New("output values overflow")
	ErrZeroOutput         = errors.New("spendable output has zero value")
	ErrDataOutputValue    = errors.New("data output carries coins")
	ErrTooManyDataOutputs = errors.New("more than one data output")
	ErrInvalidScript      = errors.New("invalid script")
	ErrMissingPubKey      = errors.New("input missing public key")
	ErrMissingSig         = errors.New("input missing signature")
	ErrInvalidSig         = errors.New("invalid signature")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrScriptDataTooLarge = errors.New("script data too large")

	ErrInputNotFound   = errors.New("input not found")
	ErrInputOverflow   = errors.New("input values overflow")
	ErrInsufficientFee = errors.New("insufficient fee")
	ErrScriptMismatch  = errors.New("pubkey does not match output script")
)

// Validate checks structure only. It does not look at the spent outputs.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	seen := make(map[types.Outpoint]struct{}, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if _, dup := seen[in.PrevOut]; dup {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = struct{}{}
	}

	var total uint64
	dataOutputs := 0
	for i, out := range tx.Outputs {
		if len(out.Script.Data) > config.MaxScriptData {
			return fmt.Errorf("output %d: %w: %d bytes, max %d", i, ErrScriptDataTooLarge, len(out.Script.Data), config.MaxScriptData)
		}
		switch out.Script.Type {
		case types.ScriptTypeP2PKH:
			if len(out.Script.Data) != types.AddressSize {
				return fmt.Errorf("output %d: %w: P2PKH data is %d bytes", i, ErrInvalidScript, len(out.Script.Data))
			}
			if out.Value == 0 {
				return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
			}
		case types.ScriptTypeNTP1:
			dataOutputs++
			if out.Value != 0 {
				return fmt.Errorf("output %d: %w", i, ErrDataOutputValue)
			}
		default:
			return fmt.Errorf("output %d: %w: type %s", i, ErrInvalidScript, out.Script.Type)
		}
		if total > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Value
	}
	if dataOutputs > 1 {
		return ErrTooManyDataOutputs
	}
	return nil
}

// VerifySignatures checks every input signature against the transaction id.
func (tx *Transaction) VerifySignatures() error {
	hash := tx.Hash()
	for i, in := range tx.Inputs {
		if len(in.PubKey) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingPubKey)
		}
		if len(in.Signature) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSig)
		}
		if !crypto.VerifySignature(hash[:], in.Signature, in.PubKey) {
			return fmt.Errorf("input %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}

// OutputProvider gives read access to spendable outputs.
type OutputProvider interface {
	GetOutput(outpoint types.Outpoint) (value uint64, script types.Script, err error)
}

// ValidateWithOutputs runs Validate, resolves every input through provider,
// checks ownership and signatures, and returns the fee (inputs - outputs).
func (tx *Transaction) ValidateWithOutputs(provider OutputProvider) (uint64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	var totalIn uint64
	for i, in := range tx.Inputs {
		value, script, err := provider.GetOutput(in.PrevOut)
		if err != nil {
			return 0, fmt.Errorf("input %d (%s): %w: %v", i, in.PrevOut, ErrInputNotFound, err)
		}
		owner, ok := script.Address()
		if !ok {
			return 0, fmt.Errorf("input %d (%s): %w: %s output is not spendable", i, in.PrevOut, ErrScriptMismatch, script.Type)
		}
		if crypto.AddressFromPubKey(in.PubKey) != owner {
			return 0, fmt.Errorf("input %d: %w", i, ErrScriptMismatch)
		}
		if totalIn > math.MaxUint64-value {
			return 0, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalIn += value
	}

	if err := tx.VerifySignatures(); err != nil {
		return 0, err
	}

	totalOut, err := tx.TotalOutputValue()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOutputOverflow, err)
	}
	if totalIn < totalOut {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientFee, totalIn, totalOut)
	}
	return totalIn - totalOut, nil
}
