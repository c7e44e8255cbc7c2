package storage

import (
	"errors"
	"testing"
)

var errWriteRefused = errors.New("write refused")

// flakyDB accepts the first allow writes and refuses the rest. It hides
// the Batcher of the wrapped DB, so batches replay write by write.
type flakyDB struct {
	DB
	allow int
}

func (f *flakyDB) Put(key, value []byte) error {
	if f.allow <= 0 {
		return errWriteRefused
	}
	f.allow--
	return f.DB.Put(key, value)
}

func (f *flakyDB) Delete(key []byte) error {
	if f.allow <= 0 {
		return errWriteRefused
	}
	f.allow--
	return f.DB.Delete(key)
}

func assertValue(t *testing.T, db DB, key, want string) {
	t.Helper()
	got, err := db.Get([]byte(key))
	if want == "" {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s = %q, %v; want absent", key, got, err)
		}
		return
	}
	if err != nil || string(got) != want {
		t.Errorf("%s = %q, %v; want %q", key, got, err, want)
	}
}

func TestJournal_RevertAfterCommit(t *testing.T) {
	db := NewMemory()
	db.Put([]byte("keep"), []byte("1"))
	db.Put([]byte("drop"), []byte("2"))

	j := NewJournal(db)
	j.Put([]byte("keep"), []byte("changed"))
	j.Put([]byte("fresh"), []byte("3"))
	j.Delete([]byte("drop"))
	j.Put([]byte("fresh"), []byte("4"))
	if err := j.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	assertValue(t, db, "keep", "changed")
	assertValue(t, db, "fresh", "4")
	assertValue(t, db, "drop", "")

	if err := j.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	assertValue(t, db, "keep", "1")
	assertValue(t, db, "drop", "2")
	assertValue(t, db, "fresh", "")
}

func TestJournal_RevertPartialCommit(t *testing.T) {
	mem := NewMemory()
	mem.Put([]byte("a"), []byte("old"))
	db := &flakyDB{DB: mem, allow: 1}

	j := NewJournal(db)
	j.Put([]byte("a"), []byte("new"))
	j.Put([]byte("b"), []byte("new"))
	if err := j.Commit(); !errors.Is(err, errWriteRefused) {
		t.Fatalf("Commit = %v, want refusal", err)
	}
	assertValue(t, mem, "a", "new")

	db.allow = 10
	if err := j.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	assertValue(t, mem, "a", "old")
	assertValue(t, mem, "b", "")
}

func TestJournal_PrefixDB(t *testing.T) {
	mem := NewMemory()
	p := NewPrefixDB(mem, []byte("w/"))
	j := NewJournal(p)
	j.Put([]byte("k"), []byte("v"))
	if err := j.Commit(); err != nil {
		t.Fatal(err)
	}
	assertValue(t, mem, "w/k", "v")
	if err := j.Revert(); err != nil {
		t.Fatal(err)
	}
	assertValue(t, mem, "w/k", "")
}
