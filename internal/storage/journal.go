package storage

import "errors"

// Journal is a Batch that remembers the value each write replaces, so a
// committed (or partly committed) journal can be undone with Revert.
// Prior values are read from the DB when a write is staged.
type Journal struct {
	db    DB
	batch Batch
	undo  []batchOp
}

// NewJournal starts a journal on db.
func NewJournal(db DB) *Journal {
	return &Journal{db: db, batch: NewBatch(db)}
}

func (j *Journal) remember(key []byte) error {
	prev, err := j.db.Get(key)
	switch {
	case errors.Is(err, ErrNotFound):
		j.undo = append(j.undo, batchOp{key: clone(key), del: true})
	case err != nil:
		return err
	default:
		j.undo = append(j.undo, batchOp{key: clone(key), value: clone(prev)})
	}
	return nil
}

func (j *Journal) Put(key, value []byte) error {
	if err := j.remember(key); err != nil {
		return err
	}
	return j.batch.Put(key, value)
}

func (j *Journal) Delete(key []byte) error {
	if err := j.remember(key); err != nil {
		return err
	}
	return j.batch.Delete(key)
}

func (j *Journal) Commit() error {
	return j.batch.Commit()
}

// Revert restores every key the journal touched to its value from before
// the journal was staged. Undo entries apply newest first.
func (j *Journal) Revert() error {
	b := NewBatch(j.db)
	for i := len(j.undo) - 1; i >= 0; i-- {
		op := j.undo[i]
		var err error
		if op.del {
			err = b.Delete(op.key)
		} else {
			err = b.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return b.Commit()
}
