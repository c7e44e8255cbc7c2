// Package tx defines the transaction wire model, construction and validation.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// Sizes of the witness data attached to every signed input.
const (
	SignatureSize = 64
	PubKeySize    = 33
)

// Transaction moves coins from spent outputs to new ones. NTP1 token
// balances are not stored on outputs; they are derived by decoding the
// transaction's NTP1 data output against its inputs.
type Transaction struct {
	Version  uint32   `json:"version"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	LockTime uint64   `json:"locktime"`
}

// Input spends a previous output.
type Input struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature []byte         `json:"signature"`
	PubKey    []byte         `json:"pubkey"`
}

type inputJSON struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature *string        `json:"signature"`
	PubKey    *string        `json:"pubkey"`
}

// MarshalJSON encodes the witness fields as hex.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{PrevOut: in.PrevOut}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	if in.PubKey != nil {
		p := hex.EncodeToString(in.PubKey)
		j.PubKey = &p
	}
	return json.Marshal(j)
}

func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	in.Signature, in.PubKey = nil, nil
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		in.Signature = b
	}
	if j.PubKey != nil {
		b, err := hex.DecodeString(*j.PubKey)
		if err != nil {
			return fmt.Errorf("pubkey: %w", err)
		}
		in.PubKey = b
	}
	return nil
}

// Output creates a new coin balance locked by Script.
type Output struct {
	Value  uint64       `json:"value"`
	Script types.Script `json:"script"`
}

// Hash is the transaction id: BLAKE3 of SigningBytes. Signatures are
// excluded so the id is known before signing.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// SigningBytes returns the canonical encoding that is hashed and signed:
//
//	version(4) | nIn(4) | [txid(32) index(4)]... | nOut(4) | [value(8) type(1) len(4) data]... | locktime(8)
func (tx *Transaction) SigningBytes() []byte {
	buf := make([]byte, 0, 24+36*len(tx.Inputs)+40*len(tx.Outputs))
	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = append(buf, byte(out.Script.Type))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Script.Data)))
		buf = append(buf, out.Script.Data...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	return buf
}

// Size is the serialized size of the transaction once every input carries
// a signature and public key. Unsigned drafts report their final size.
func (tx *Transaction) Size() int {
	return len(tx.SigningBytes()) + len(tx.Inputs)*(SignatureSize+PubKeySize)
}

// TotalOutputValue sums output values, failing on overflow.
func (tx *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// DataOutputs returns the indexes of outputs carrying NTP1 payloads.
func (tx *Transaction) DataOutputs() []int {
	var idx []int
	for i, out := range tx.Outputs {
		if out.Script.Type == types.ScriptTypeNTP1 {
			idx = append(idx, i)
		}
	}
	return idx
}

// InputOutpoints lists the outpoints spent by the transaction in order.
func (tx *Transaction) InputOutpoints() []types.Outpoint {
	ops := make([]types.Outpoint, len(tx.Inputs))
	for i, in := range tx.Inputs {
		ops[i] = in.PrevOut
	}
	return ops
}

// Clone returns a deep copy.
func (tx *Transaction) Clone() *Transaction {
	out := &Transaction{Version: tx.Version, LockTime: tx.LockTime}
	out.Inputs = make([]Input, len(tx.Inputs))
	for i, in := range tx.Inputs {
		out.Inputs[i] = Input{
			PrevOut:   in.PrevOut,
			Signature: cloneBytes(in.Signature),
			PubKey:    cloneBytes(in.PubKey),
		}
	}
	out.Outputs = make([]Output, len(tx.Outputs))
	for i, o := range tx.Outputs {
		out.Outputs[i] = Output{
			Value:  o.Value,
			Script: types.Script{Type: o.Script.Type, Data: cloneBytes(o.Script.Data)},
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
