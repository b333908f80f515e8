package framehash_test

import (
	"testing"

	"pagedb/internal/framehash"
)

func TestTable(t *testing.T) {
	t.Run("InsertLookupRemove", testInsertLookupRemove)
	t.Run("LookupMissingFails", testLookupMissingFails)
	t.Run("InsertOverwritesExisting", testInsertOverwritesExisting)
	t.Run("ManyDistinctKeys", testManyDistinctKeys)
}

func testInsertLookupRemove(t *testing.T) {
	table := framehash.New(8)
	key := framehash.Key{File: "rel.db", PageNo: 3}

	table.Insert(key, 42)
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}

	frameID, err := table.Lookup(key)
	if err != nil {
		t.Fatal("Lookup failed:", err)
	}
	if frameID != 42 {
		t.Errorf("Lookup() = %d, want 42", frameID)
	}

	table.Remove(key)
	if table.Len() != 0 {
		t.Errorf("Len() after Remove = %d, want 0", table.Len())
	}
	if _, err := table.Lookup(key); err != framehash.ErrNotFound {
		t.Errorf("Lookup after Remove = %v, want ErrNotFound", err)
	}
}

func testLookupMissingFails(t *testing.T) {
	table := framehash.New(8)
	if _, err := table.Lookup(framehash.Key{File: "x.db", PageNo: 1}); err != framehash.ErrNotFound {
		t.Errorf("Lookup on empty table = %v, want ErrNotFound", err)
	}
}

func testInsertOverwritesExisting(t *testing.T) {
	table := framehash.New(8)
	key := framehash.Key{File: "rel.db", PageNo: 3}
	table.Insert(key, 1)
	table.Insert(key, 2)
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (re-inserting a key must not grow the table)", table.Len())
	}
	frameID, err := table.Lookup(key)
	if err != nil {
		t.Fatal("Lookup failed:", err)
	}
	if frameID != 2 {
		t.Errorf("Lookup() = %d, want 2 (the overwritten mapping)", frameID)
	}
}

func testManyDistinctKeys(t *testing.T) {
	for _, numBufs := range []int{1, 10, 25, 100} {
		table := framehash.New(numBufs)
		// Populate enough distinct keys across many buckets and confirm
		// nothing panics or collapses lookups, which would indicate a
		// degenerate (e.g. size-0 or size-1) bucket count.
		for i := 0; i < numBufs*3; i++ {
			table.Insert(framehash.Key{File: "f", PageNo: int64(i)}, int64(i))
		}
		if table.Len() != numBufs*3 {
			t.Errorf("numBufs=%d: Len() = %d, want %d", numBufs, table.Len(), numBufs*3)
		}
	}
}
