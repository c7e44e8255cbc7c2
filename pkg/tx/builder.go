package tx

import (
	"fmt"

	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Builder assembles a transaction step by step.
type Builder struct {
	tx *Transaction
}

func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{Version: 1}}
}

func (b *Builder) AddInput(prevOut types.Outpoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut})
	return b
}

func (b *Builder) AddOutput(value uint64, script types.Script) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Script: script})
	return b
}

// AddPayment adds a P2PKH output to addr.
func (b *Builder) AddPayment(value uint64, addr types.Address) *Builder {
	return b.AddOutput(value, types.PayToAddress(addr))
}

// AddDataOutput adds the zero-value NTP1 payload output.
func (b *Builder) AddDataOutput(payload []byte) *Builder {
	return b.AddOutput(0, types.Script{Type: types.ScriptTypeNTP1, Data: payload})
}

func (b *Builder) SetLockTime(lockTime uint64) *Builder {
	b.tx.LockTime = lockTime
	return b
}

// NumOutputs returns the number of outputs added so far.
func (b *Builder) NumOutputs() int {
	return len(b.tx.Outputs)
}

// Sign signs every input with the signer owning the input's outpoint.
// owners maps each outpoint to its address, signers maps addresses to keys.
func (b *Builder) Sign(
	signers map[types.Address]crypto.Signer,
	owners map[types.Outpoint]types.Address,
) error {
	hash := b.tx.Hash()

	type witness struct {
		sig, pub []byte
	}
	done := make(map[types.Address]witness)

	for i := range b.tx.Inputs {
		op := b.tx.Inputs[i].PrevOut
		addr, ok := owners[op]
		if !ok {
			return fmt.Errorf("input %d (%s): unknown owner", i, op)
		}
		w, ok := done[addr]
		if !ok {
			key, found := signers[addr]
			if !found {
				return fmt.Errorf("input %d: no key for address %s", i, addr)
			}
			sig, err := key.Sign(hash[:])
			if err != nil {
				return fmt.Errorf("sign input %d: %w", i, err)
			}
			w = witness{sig: sig, pub: key.PublicKey()}
			done[addr] = w
		}
		b.tx.Inputs[i].Signature = w.sig
		b.tx.Inputs[i].PubKey = w.pub
	}
	return nil
}

// Build returns the transaction. It is not validated.
func (b *Builder) Build() *Transaction {
	return b.tx
}
