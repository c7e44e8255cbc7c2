package ntp1

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// ErrTokenNotFound is returned for unknown token ids.
var ErrTokenNotFound = errors.New("token not found")

// Key layout inside the "n/" namespace.
var (
	storePrefix    = []byte("n/")
	prefixToken    = []byte("t/") // t/<tokenID> -> TokenRecord JSON
	prefixSymbol   = []byte("s/") // s/<SYMBOL>/<tokenID> -> empty
	prefixBalances = []byte("b/") // b/<txid><index> -> []TokenData JSON
)

// TokenRecord describes an issued token.
type TokenRecord struct {
	ID        types.TokenID   `json:"id"`
	Symbol    string          `json:"symbol"`
	Supply    *big.Int        `json:"-"`
	IssueTxID types.Hash      `json:"issue_txid"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type tokenRecordJSON struct {
	ID        types.TokenID   `json:"id"`
	Symbol    string          `json:"symbol"`
	Supply    string          `json:"supply"`
	IssueTxID types.Hash      `json:"issue_txid"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// MarshalJSON encodes Supply as a decimal string.
func (r TokenRecord) MarshalJSON() ([]byte, error) {
	supply := "0"
	if r.Supply != nil {
		supply = r.Supply.String()
	}
	return json.Marshal(tokenRecordJSON{
		ID: r.ID, Symbol: r.Symbol, Supply: supply, IssueTxID: r.IssueTxID, Metadata: r.Metadata,
	})
}

func (r *TokenRecord) UnmarshalJSON(data []byte) error {
	var j tokenRecordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	supply, ok := new(big.Int).SetString(j.Supply, 10)
	if !ok {
		return fmt.Errorf("invalid supply %q", j.Supply)
	}
	*r = TokenRecord{ID: j.ID, Symbol: j.Symbol, Supply: supply, IssueTxID: j.IssueTxID, Metadata: j.Metadata}
	return nil
}

// Store indexes issued tokens and the token balances of outputs.
// It implements InputResolver.
type Store struct {
	db storage.DB
}

// NewStore creates a store inside the "n/" namespace of db.
func NewStore(db storage.DB) *Store {
	return &Store{db: storage.NewPrefixDB(db, storePrefix)}
}

func tokenKey(id types.TokenID) []byte {
	return append(append([]byte{}, prefixToken...), id[:]...)
}

func symbolPrefix(symbol string) []byte {
	key := append([]byte{}, prefixSymbol...)
	key = append(key, strings.ToUpper(symbol)...)
	return append(key, '/')
}

func balanceKey(op types.Outpoint) []byte {
	key := make([]byte, 0, len(prefixBalances)+types.HashSize+4)
	key = append(key, prefixBalances...)
	key = append(key, op.TxID[:]...)
	return binary.BigEndian.AppendUint32(key, op.Index)
}

// PutToken stores rec and indexes it by symbol.
func (s *Store) PutToken(rec *TokenRecord) error {
	b := storage.NewBatch(s.db)
	if err := putToken(b, rec); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("token put: %w", err)
	}
	return nil
}

func putToken(b storage.Batch, rec *TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("token marshal: %w", err)
	}
	if err := b.Put(tokenKey(rec.ID), data); err != nil {
		return err
	}
	return b.Put(append(symbolPrefix(rec.Symbol), rec.ID[:]...), []byte{})
}

// GetToken loads the record of id.
func (s *Store) GetToken(id types.TokenID) (*TokenRecord, error) {
	data, err := s.db.Get(tokenKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("token get: %w", err)
	}
	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}
	return &rec, nil
}

// TokensBySymbol returns every token issued under symbol (case-insensitive).
func (s *Store) TokensBySymbol(symbol string) ([]*TokenRecord, error) {
	prefix := symbolPrefix(symbol)
	var ids []types.TokenID
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+types.HashSize {
			return nil
		}
		var id types.TokenID
		copy(id[:], key[len(prefix):])
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	recs := make([]*TokenRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetToken(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ListTokens returns every known token.
func (s *Store) ListTokens() ([]*TokenRecord, error) {
	recs := []*TokenRecord{}
	err := s.db.ForEach(prefixToken, func(_, value []byte) error {
		var rec TokenRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		recs = append(recs, &rec)
		return nil
	})
	return recs, err
}

// PutBalances records the tokens held by op. Empty lists are not stored.
func (s *Store) PutBalances(op types.Outpoint, tokens []types.TokenData) error {
	b := storage.NewBatch(s.db)
	if err := putBalances(b, op, tokens); err != nil {
		return err
	}
	return b.Commit()
}

func putBalances(b storage.Batch, op types.Outpoint, tokens []types.TokenData) error {
	if !types.HasTokens(tokens) {
		return nil
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("balances marshal: %w", err)
	}
	return b.Put(balanceKey(op), data)
}

// TokenBalances implements InputResolver.
func (s *Store) TokenBalances(op types.Outpoint) ([]types.TokenData, error) {
	data, err := s.db.Get(balanceKey(op))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tokens []types.TokenData
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("balances unmarshal: %w", err)
	}
	return tokens, nil
}

// DeleteBalances drops the entry of a spent outpoint.
func (s *Store) DeleteBalances(op types.Outpoint) error {
	return s.db.Delete(balanceKey(op))
}

// Index records the result of decoding a transaction: balances of every
// output that received tokens and, for issuances, the token record. The
// writes land in a single batch.
func (s *Store) Index(d *Decoded) error {
	b := storage.NewBatch(s.db)
	if err := s.StageIndex(b, d); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("index %s: %w", d.TxID, err)
	}
	return nil
}

// StageIndex writes the effects of Index into b without committing it.
// b must write to the DB of this store (see NewJournal).
func (s *Store) StageIndex(b storage.Batch, d *Decoded) error {
	for i, tokens := range d.Outputs {
		if err := putBalances(b, types.Outpoint{TxID: d.TxID, Index: uint32(i)}, tokens); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	if d.Type != TxTypeIssuance {
		return nil
	}
	rec := &TokenRecord{
		ID:        d.IssuedTokenID,
		Symbol:    d.Symbol,
		Supply:    d.IssuedAmount,
		IssueTxID: d.TxID,
	}
	if json.Valid(d.Metadata) {
		rec.Metadata = json.RawMessage(d.Metadata)
	}
	return putToken(b, rec)
}

// NewJournal starts a revertible batch on the store's DB.
func (s *Store) NewJournal() *storage.Journal {
	return storage.NewJournal(s.db)
}
