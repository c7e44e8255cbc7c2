// Package storage provides the key/value backends shared by the wallet,
// UTXO set and NTP1 token index.
package storage

import "errors"

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("key not found")

// DB is a flat key/value store.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach visits every key under prefix. Key and value are copies.
	// A non-nil error from fn stops iteration and is returned.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch groups writes that are applied together on Commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by backends with atomic multi-key writes.
type Batcher interface {
	NewBatch() Batch
}

// NewBatch returns an atomic batch when db supports one, otherwise a batch
// that replays its writes one by one on Commit.
func NewBatch(db DB) Batch {
	if b, ok := db.(Batcher); ok {
		return b.NewBatch()
	}
	return &replayBatch{db: db}
}

type batchOp struct {
	key   []byte
	value []byte
	del   bool
}

// replayBatch buffers writes for backends without native batching.
type replayBatch struct {
	db  DB
	ops []batchOp
}

func (r *replayBatch) Put(key, value []byte) error {
	r.ops = append(r.ops, batchOp{key: clone(key), value: clone(value)})
	return nil
}

func (r *replayBatch) Delete(key []byte) error {
	r.ops = append(r.ops, batchOp{key: clone(key), del: true})
	return nil
}

func (r *replayBatch) Commit() error {
	for _, op := range r.ops {
		var err error
		if op.del {
			err = r.db.Delete(op.key)
		} else {
			err = r.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	r.ops = nil
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
