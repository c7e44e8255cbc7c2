package cache

import (
	"slices"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string, int]()
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Fatalf("Get = %d, %v; want 2, true", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestEraseCounts(t *testing.T) {
	c := NewFromMap(map[int]string{1: "one", 2: "two"})
	if n := c.Erase(1); n != 1 {
		t.Fatalf("Erase existing = %d, want 1", n)
	}
	if n := c.Erase(1); n != 0 {
		t.Fatalf("Erase missing = %d, want 0", n)
	}
	if c.Exists(1) {
		t.Fatal("erased key still exists")
	}
	if !c.Exists(2) {
		t.Fatal("unrelated key removed")
	}
}

func TestFrontBack(t *testing.T) {
	c := New[int, string]()
	if _, ok := c.Front(); ok {
		t.Fatal("Front on empty cache succeeded")
	}
	if _, ok := c.Back(); ok {
		t.Fatal("Back on empty cache succeeded")
	}
	c.Replace(map[int]string{5: "five", -3: "minus three", 12: "twelve"})
	if v, _ := c.Front(); v != "minus three" {
		t.Fatalf("Front = %q", v)
	}
	if v, _ := c.Back(); v != "twelve" {
		t.Fatalf("Back = %q", v)
	}
}

func TestClearEmpty(t *testing.T) {
	c := NewFromMap(map[string]int{"x": 1})
	if c.Empty() {
		t.Fatal("Empty on populated cache")
	}
	c.Clear()
	if !c.Empty() || c.Size() != 0 {
		t.Fatal("Clear left entries")
	}
}

func TestSnapshotIsolated(t *testing.T) {
	src := map[string]int{"a": 1}
	c := NewFromMap(src)
	src["b"] = 2
	if c.Exists("b") {
		t.Fatal("cache shares memory with source map")
	}
	snap := c.Snapshot()
	snap["a"] = 100
	if v, _ := c.Get("a"); v != 1 {
		t.Fatalf("snapshot mutation leaked into cache: %d", v)
	}
}

func TestCloneFuncCopiesSlices(t *testing.T) {
	cloneSlice := func(v []byte) []byte { return slices.Clone(v) }
	c := New[string, []byte](WithClone(cloneSlice))

	in := []byte{1, 2, 3}
	c.Set("k", in)
	in[0] = 9

	out, _ := c.Get("k")
	if out[0] != 1 {
		t.Fatalf("Set kept caller slice: %v", out)
	}
	out[1] = 9
	again, _ := c.Get("k")
	if again[1] != 2 {
		t.Fatalf("Get returned live slice: %v", again)
	}
}

func TestKeysSorted(t *testing.T) {
	c := NewFromMap(map[string]bool{"c": true, "a": true, "b": true})
	if got := c.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("Keys = %v", got)
	}
}

func TestWrites_CloneOutsideWriteLock(t *testing.T) {
	var c *ConcurrentCache[string, int]
	reentrant := func(v int) int {
		c.Exists("other")
		return v
	}
	c = New[string, int](WithClone[int](reentrant))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Set("a", 1)
		c.Replace(map[string]int{"b": 2})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("clone func ran under the write lock")
	}
	if v, ok := c.Get("b"); !ok || v != 2 || c.Exists("a") {
		t.Errorf("after Replace: b = %d, %v; a present = %v", v, ok, c.Exists("a"))
	}
}

func TestEqual(t *testing.T) {
	a := NewFromMap(map[string]int{"x": 1, "y": 2})
	b := NewFromMap(map[string]int{"y": 2, "x": 1})
	if !Equal(a, a) {
		t.Fatal("cache not equal to itself")
	}
	if !Equal(a, b) || !Equal(b, a) {
		t.Fatal("equal contents compared unequal")
	}
	b.Set("y", 3)
	if Equal(a, b) {
		t.Fatal("different values compared equal")
	}
	if Equal(a, nil) {
		t.Fatal("cache equal to nil")
	}
	if !a.Clone().EqualFunc(a, func(x, y int) bool { return x == y }) {
		t.Fatal("Clone differs from source")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set(w*1000+i, i)
				c.Get(i)
				c.Size()
				c.Front()
			}
		}(w)
	}
	wg.Wait()
	if c.Size() != 8*500 {
		t.Fatalf("Size = %d, want %d", c.Size(), 8*500)
	}
}

func TestConcurrentEqualNoDeadlock(t *testing.T) {
	a := New[int, int]()
	b := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Equal(a, b)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Equal(b, a)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				a.Set(j, j)
				b.Set(j, j)
			}
		}()
	}
	wg.Wait()
	if !Equal(a, b) {
		t.Fatal("caches diverged")
	}
}
