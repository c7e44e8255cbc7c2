package utxo

import (
	"errors"
	"testing"

	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/pkg/crypto"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

var (
	testAddr  = types.Address{0x01, 0x02, 0x03, 19: 0x14}
	otherAddr = types.Address{0xaa, 19: 0xbb}
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemory())
}

func makeOutpoint(data string, index uint32) types.Outpoint {
	return types.Outpoint{TxID: crypto.Hash([]byte(data)), Index: index}
}

func makeUTXO(data string, index uint32, value uint64, addr types.Address) *UTXO {
	return &UTXO{
		Outpoint: makeOutpoint(data, index),
		Value:    value,
		Script:   types.PayToAddress(addr),
		Height:   7,
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := testStore(t)
	u := makeUTXO("tx1", 0, 5000, testAddr)
	if err := s.Put(u); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(u.Outpoint)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Value != 5000 || got.Outpoint != u.Outpoint || got.Height != 7 {
		t.Errorf("Get() = %+v", got)
	}
	if addr, ok := got.Address(); !ok || addr != testAddr {
		t.Errorf("Address() = %s, %v", addr, ok)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(makeOutpoint("missing", 0))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteCleansIndex(t *testing.T) {
	s := testStore(t)
	u := makeUTXO("tx1", 1, 900, testAddr)
	s.Put(u)
	if err := s.Delete(u.Outpoint); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Has(u.Outpoint); ok {
		t.Error("Has() = true after Delete()")
	}
	list, err := s.GetByAddress(testAddr)
	if err != nil {
		t.Fatalf("GetByAddress() error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("GetByAddress() returned %d after delete", len(list))
	}
}

func TestStore_GetByAddress(t *testing.T) {
	s := testStore(t)
	s.Put(makeUTXO("a", 0, 100, testAddr))
	s.Put(makeUTXO("b", 0, 200, testAddr))
	s.Put(makeUTXO("c", 0, 300, otherAddr))

	mine, _ := s.GetByAddress(testAddr)
	if len(mine) != 2 {
		t.Fatalf("GetByAddress(test) = %d, want 2", len(mine))
	}
	theirs, _ := s.GetByAddress(otherAddr)
	if len(theirs) != 1 || theirs[0].Value != 300 {
		t.Fatalf("GetByAddress(other) = %+v", theirs)
	}
}

func TestStore_GetOutput(t *testing.T) {
	s := testStore(t)
	u := makeUTXO("tx", 2, 42, testAddr)
	s.Put(u)

	var provider tx.OutputProvider = s
	v, script, err := provider.GetOutput(u.Outpoint)
	if err != nil || v != 42 || script.Type != types.ScriptTypeP2PKH {
		t.Fatalf("GetOutput() = %d %v %v", v, script, err)
	}
}

func TestStore_ApplyTx(t *testing.T) {
	s := testStore(t)
	spent := makeUTXO("funding", 0, 50_000, testAddr)
	s.Put(spent)

	transaction := tx.NewBuilder().
		AddInput(spent.Outpoint).
		AddPayment(10_000, otherAddr).
		AddDataOutput([]byte("NP")).
		AddPayment(30_000, testAddr).
		Build()

	owned := func(a types.Address) bool { return a == testAddr }
	added, err := s.ApplyTx(transaction, 0, owned)
	if err != nil {
		t.Fatalf("ApplyTx() error: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("added %d outputs, want 1", len(added))
	}
	if added[0].Outpoint.Index != 2 || added[0].Value != 30_000 || added[0].Height != 0 {
		t.Errorf("added = %+v", added[0])
	}
	if ok, _ := s.Has(spent.Outpoint); ok {
		t.Error("spent input still in set")
	}
	if ok, _ := s.Has(types.Outpoint{TxID: transaction.Hash(), Index: 1}); ok {
		t.Error("data output stored as UTXO")
	}
}

func TestStore_StageTxRevert(t *testing.T) {
	s := testStore(t)
	spent := makeUTXO("funding", 0, 50_000, testAddr)
	s.Put(spent)

	transaction := tx.NewBuilder().
		AddInput(spent.Outpoint).
		AddPayment(30_000, testAddr).
		Build()
	j := s.NewJournal()
	if _, err := s.StageTx(j, transaction, 0, func(types.Address) bool { return true }); err != nil {
		t.Fatalf("StageTx() error: %v", err)
	}
	if ok, _ := s.Has(spent.Outpoint); !ok {
		t.Fatal("staged spend visible before Commit")
	}
	if err := j.Commit(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Has(spent.Outpoint); ok {
		t.Fatal("input still unspent after Commit")
	}

	if err := j.Revert(); err != nil {
		t.Fatalf("Revert() error: %v", err)
	}
	if ok, _ := s.Has(spent.Outpoint); !ok {
		t.Error("Revert did not restore the spent input")
	}
	if ok, _ := s.Has(types.Outpoint{TxID: transaction.Hash(), Index: 0}); ok {
		t.Error("Revert left the new output")
	}
	if mine, _ := s.GetByAddress(testAddr); len(mine) != 1 || mine[0].Outpoint != spent.Outpoint {
		t.Errorf("address index after Revert = %+v", mine)
	}
}

func TestStore_ForEachAndClear(t *testing.T) {
	s := testStore(t)
	for i := uint32(0); i < 3; i++ {
		s.Put(makeUTXO("multi", i, uint64(i+1)*10, testAddr))
	}
	var total uint64
	s.ForEach(func(u *UTXO) error {
		total += u.Value
		return nil
	})
	if total != 60 {
		t.Fatalf("ForEach total = %d, want 60", total)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	n := 0
	s.ForEach(func(*UTXO) error { n++; return nil })
	if n != 0 {
		t.Fatalf("%d UTXOs after ClearAll", n)
	}
}

func TestStore_ImplementsSet(t *testing.T) {
	var _ Set = testStore(t)
}
