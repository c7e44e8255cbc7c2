package tx

import (
	"encoding/json"
	"testing"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

func sampleTx() *Transaction {
	return &Transaction{
		Version: 1,
		Inputs:  []Input{{PrevOut: types.Outpoint{TxID: types.Hash{0x01}, Index: 0}}},
		Outputs: []Output{
			{Value: 1000, Script: types.PayToAddress(types.Address{0xaa})},
			{Value: 0, Script: types.Script{Type: types.ScriptTypeNTP1, Data: []byte("NP")}},
		},
	}
}

func TestTransaction_HashDeterministic(t *testing.T) {
	tx := sampleTx()
	if tx.Hash() != tx.Hash() {
		t.Error("Hash() should be deterministic")
	}
	if tx.Hash().IsZero() {
		t.Error("Hash() should not be zero")
	}

	other := sampleTx()
	other.Outputs[0].Value = 2000
	if other.Hash() == tx.Hash() {
		t.Error("different outputs produced the same id")
	}
}

func TestTransaction_HashIgnoresWitness(t *testing.T) {
	tx := sampleTx()
	before := tx.Hash()
	tx.Inputs[0].Signature = make([]byte, SignatureSize)
	tx.Inputs[0].PubKey = make([]byte, PubKeySize)
	if tx.Hash() != before {
		t.Error("signing changed the transaction id")
	}
}

func TestTransaction_Size(t *testing.T) {
	tx := sampleTx()
	want := len(tx.SigningBytes()) + SignatureSize + PubKeySize
	if tx.Size() != want {
		t.Errorf("Size() = %d, want %d", tx.Size(), want)
	}
}

func TestTransaction_DataOutputs(t *testing.T) {
	tx := sampleTx()
	idx := tx.DataOutputs()
	if len(idx) != 1 || idx[0] != 1 {
		t.Errorf("DataOutputs() = %v, want [1]", idx)
	}
	ops := tx.InputOutpoints()
	if len(ops) != 1 || ops[0] != tx.Inputs[0].PrevOut {
		t.Errorf("InputOutpoints() = %v", ops)
	}
}

func TestTransaction_CloneIsDeep(t *testing.T) {
	tx := sampleTx()
	c := tx.Clone()
	c.Outputs[1].Script.Data[0] = 'X'
	c.Inputs[0].PrevOut.Index = 7
	if tx.Outputs[1].Script.Data[0] != 'N' || tx.Inputs[0].PrevOut.Index != 0 {
		t.Error("Clone shares memory with the original")
	}
	if sampleTx().Hash() != tx.Hash() {
		t.Error("original changed")
	}
}

func TestTransaction_JSONRoundtrip(t *testing.T) {
	tx := sampleTx()
	tx.Inputs[0].Signature = []byte{0x01, 0x02}
	tx.Inputs[0].PubKey = []byte{0x03}
	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Transaction
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Hash() != tx.Hash() {
		t.Error("roundtrip changed the id")
	}
	if string(back.Inputs[0].Signature) != string(tx.Inputs[0].Signature) {
		t.Error("signature lost in roundtrip")
	}
}

func TestTotalOutputValue_Overflow(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Value: ^uint64(0)}, {Value: 1}}}
	if _, err := tx.TotalOutputValue(); err == nil {
		t.Error("overflow not detected")
	}
}
