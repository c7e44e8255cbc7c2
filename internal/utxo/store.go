package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// ErrNotFound is returned when an outpoint is not in the set.
var ErrNotFound = errors.New("utxo not found")

var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> UTXO JSON
	prefixAddr = []byte("a/") // a/<address><txid><index> -> empty
)

const outpointKeyLen = types.HashSize + 4

// Store implements Set on a storage.DB with a secondary index by address.
type Store struct {
	db storage.DB
}

// NewStore creates a store on db.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func appendOutpoint(key []byte, op types.Outpoint) []byte {
	key = append(key, op.TxID[:]...)
	return binary.BigEndian.AppendUint32(key, op.Index)
}

func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, 0, len(prefixUTXO)+outpointKeyLen)
	key = append(key, prefixUTXO...)
	return appendOutpoint(key, op)
}

func addrPrefix(addr types.Address) []byte {
	key := make([]byte, 0, len(prefixAddr)+types.AddressSize+outpointKeyLen)
	key = append(key, prefixAddr...)
	return append(key, addr[:]...)
}

func addrKey(addr types.Address, op types.Outpoint) []byte {
	return appendOutpoint(addrPrefix(addr), op)
}

// outpointFromKey reads the trailing txid+index of an index key.
func outpointFromKey(key []byte) (types.Outpoint, bool) {
	if len(key) < outpointKeyLen {
		return types.Outpoint{}, false
	}
	tail := key[len(key)-outpointKeyLen:]
	var op types.Outpoint
	copy(op.TxID[:], tail[:types.HashSize])
	op.Index = binary.BigEndian.Uint32(tail[types.HashSize:])
	return op, true
}

// Get loads the UTXO at outpoint.
func (s *Store) Get(outpoint types.Outpoint) (*UTXO, error) {
	data, err := s.db.Get(utxoKey(outpoint))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, outpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var u UTXO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &u, nil
}

// GetOutput implements tx.OutputProvider.
func (s *Store) GetOutput(outpoint types.Outpoint) (uint64, types.Script, error) {
	u, err := s.Get(outpoint)
	if err != nil {
		return 0, types.Script{}, err
	}
	return u.Value, u.Script, nil
}

// Put stores u and its address index entry in one batch.
func (s *Store) Put(u *UTXO) error {
	b := storage.NewBatch(s.db)
	if err := s.put(b, u); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	return nil
}

func (s *Store) put(b storage.Batch, u *UTXO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := b.Put(utxoKey(u.Outpoint), data); err != nil {
		return err
	}
	if addr, ok := u.Address(); ok {
		return b.Put(addrKey(addr, u.Outpoint), []byte{})
	}
	return nil
}

// Delete removes the UTXO at outpoint and its index entry.
func (s *Store) Delete(outpoint types.Outpoint) error {
	b := storage.NewBatch(s.db)
	if err := s.del(b, outpoint); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

func (s *Store) del(b storage.Batch, outpoint types.Outpoint) error {
	u, err := s.Get(outpoint)
	if err == nil {
		if addr, ok := u.Address(); ok {
			if err := b.Delete(addrKey(addr, outpoint)); err != nil {
				return err
			}
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return b.Delete(utxoKey(outpoint))
}

// Has reports whether outpoint is unspent.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(outpoint))
}

// ForEach visits every UTXO.
func (s *Store) ForEach(fn func(*UTXO) error) error {
	return s.db.ForEach(prefixUTXO, func(_, value []byte) error {
		var u UTXO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&u)
	})
}

// GetByAddress returns the UTXOs paying addr.
func (s *Store) GetByAddress(addr types.Address) ([]*UTXO, error) {
	var utxos []*UTXO
	err := s.db.ForEach(addrPrefix(addr), func(key, _ []byte) error {
		op, ok := outpointFromKey(key)
		if !ok {
			return nil
		}
		u, err := s.Get(op)
		if err != nil {
			// Index entry outlived its UTXO.
			return nil
		}
		utxos = append(utxos, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return utxos, nil
}

// ApplyTx spends the inputs of t that are in the set and adds the outputs
// for which owned returns true. Data outputs are never added. All writes
// land in a single batch.
func (s *Store) ApplyTx(t *tx.Transaction, height uint64, owned func(types.Address) bool) ([]*UTXO, error) {
	b := storage.NewBatch(s.db)
	added, err := s.StageTx(b, t, height, owned)
	if err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("apply tx %s: %w", t.Hash(), err)
	}
	return added, nil
}

// StageTx writes the effects of ApplyTx into b without committing it.
// b must write to the DB of this store (see NewJournal).
func (s *Store) StageTx(b storage.Batch, t *tx.Transaction, height uint64, owned func(types.Address) bool) ([]*UTXO, error) {
	for _, in := range t.Inputs {
		has, err := s.Has(in.PrevOut)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		if err := s.del(b, in.PrevOut); err != nil {
			return nil, fmt.Errorf("spend %s: %w", in.PrevOut, err)
		}
	}

	txid := t.Hash()
	var added []*UTXO
	for i, out := range t.Outputs {
		addr, ok := out.Script.Address()
		if !ok || !owned(addr) {
			continue
		}
		u := &UTXO{
			Outpoint: types.Outpoint{TxID: txid, Index: uint32(i)},
			Value:    out.Value,
			Script:   out.Script,
			Height:   height,
		}
		if err := s.put(b, u); err != nil {
			return nil, err
		}
		added = append(added, u)
	}
	return added, nil
}

// NewJournal starts a revertible batch on the store's DB.
func (s *Store) NewJournal() *storage.Journal {
	return storage.NewJournal(s.db)
}

// ClearAll removes every UTXO and index entry.
func (s *Store) ClearAll() error {
	b := storage.NewBatch(s.db)
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			return b.Delete(key)
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	return b.Commit()
}
