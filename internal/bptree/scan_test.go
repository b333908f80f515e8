package bptree_test

import (
	"math/rand"
	"testing"

	"pagedb/internal/buffer"
	"pagedb/internal/bptree"
	"pagedb/internal/testutil"
	"pagedb/pkg/recordid"
)

func setupScanIndex(t *testing.T) *bptree.Index {
	t.Helper()
	dir := testutil.TempDir(t)
	bm := buffer.NewManager(32)
	idx, err := bptree.CreateIndex(bm, dir, "relation", 0, bptree.Integer, nil)
	if err != nil {
		t.Fatal("CreateIndex failed:", err)
	}
	t.Cleanup(idx.Close)
	return idx
}

func insertAll(t *testing.T, idx *bptree.Index, keys []int32) {
	t.Helper()
	for _, key := range keys {
		if err := idx.InsertEntry(key, recordid.New(key+1, 0)); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", key, err)
		}
	}
}

func collect(t *testing.T, idx *bptree.Index) []recordid.RecordId {
	t.Helper()
	var got []recordid.RecordId
	for {
		rid, err := idx.ScanNext()
		if err == bptree.ErrIndexScanCompleted {
			return got
		}
		if err != nil {
			t.Fatal("ScanNext failed:", err)
		}
		got = append(got, rid)
	}
}

func TestScan(t *testing.T) {
	t.Run("EmptyRange", testEmptyRange)
	t.Run("InclusiveBoundaries", testInclusiveBoundaries)
	t.Run("ExclusiveBoundaries", testExclusiveBoundaries)
	t.Run("BadOpcodes", testBadOpcodes)
	t.Run("BadScanrange", testBadScanrange)
	t.Run("EndScanWithoutStart", testEndScanWithoutStart)
	t.Run("RangeRoundTrip", testRangeRoundTrip)
	t.Run("ScanToChainEnd", testScanToChainEnd)
}

// S1 — empty range. Insert keys {10, 20, 30}. startScan(40, GTE, 50,
// LTE) ⇒ NoSuchKeyFound.
func testEmptyRange(t *testing.T) {
	idx := setupScanIndex(t)
	insertAll(t, idx, []int32{10, 20, 30})

	if err := idx.StartScan(40, bptree.GTE, 50, bptree.LTE); err != bptree.ErrNoSuchKeyFound {
		t.Fatalf("StartScan on empty range = %v, want ErrNoSuchKeyFound", err)
	}
}

// S2 — inclusive boundaries. Insert {1,2,3,4,5}. startScan(2, GTE, 4,
// LTE) then three scanNext calls yield the rids of 2,3,4; the fourth
// raises IndexScanCompleted.
func testInclusiveBoundaries(t *testing.T) {
	idx := setupScanIndex(t)
	insertAll(t, idx, []int32{1, 2, 3, 4, 5})

	if err := idx.StartScan(2, bptree.GTE, 4, bptree.LTE); err != nil {
		t.Fatal("StartScan failed:", err)
	}
	defer idx.EndScan()

	want := []recordid.RecordId{recordid.New(3, 0), recordid.New(4, 0), recordid.New(5, 0)}
	for i, w := range want {
		rid, err := idx.ScanNext()
		if err != nil {
			t.Fatalf("ScanNext #%d failed: %v", i, err)
		}
		if rid != w {
			t.Errorf("ScanNext #%d = %v, want %v", i, rid, w)
		}
	}
	if _, err := idx.ScanNext(); err != bptree.ErrIndexScanCompleted {
		t.Fatalf("fourth ScanNext = %v, want ErrIndexScanCompleted", err)
	}
}

// S3 — exclusive boundaries. Same data. startScan(2, GT, 4, LT)
// yields rid of 3 only.
func testExclusiveBoundaries(t *testing.T) {
	idx := setupScanIndex(t)
	insertAll(t, idx, []int32{1, 2, 3, 4, 5})

	if err := idx.StartScan(2, bptree.GT, 4, bptree.LT); err != nil {
		t.Fatal("StartScan failed:", err)
	}
	defer idx.EndScan()

	rid, err := idx.ScanNext()
	if err != nil {
		t.Fatal("ScanNext failed:", err)
	}
	if rid != recordid.New(4, 0) {
		t.Errorf("ScanNext = %v, want rid of key 3", rid)
	}
	if _, err := idx.ScanNext(); err != bptree.ErrIndexScanCompleted {
		t.Fatalf("second ScanNext = %v, want ErrIndexScanCompleted", err)
	}
}

func testBadOpcodes(t *testing.T) {
	idx := setupScanIndex(t)
	insertAll(t, idx, []int32{1, 2, 3})
	if err := idx.StartScan(1, bptree.LT, 3, bptree.LTE); err != bptree.ErrBadOpcodes {
		t.Fatalf("StartScan with bad lowOp = %v, want ErrBadOpcodes", err)
	}
	if err := idx.StartScan(1, bptree.GTE, 3, bptree.GTE); err != bptree.ErrBadOpcodes {
		t.Fatalf("StartScan with bad highOp = %v, want ErrBadOpcodes", err)
	}
}

func testBadScanrange(t *testing.T) {
	idx := setupScanIndex(t)
	insertAll(t, idx, []int32{1, 2, 3})
	if err := idx.StartScan(5, bptree.GTE, 1, bptree.LTE); err != bptree.ErrBadScanrange {
		t.Fatalf("StartScan with low > high = %v, want ErrBadScanrange", err)
	}
}

func testEndScanWithoutStart(t *testing.T) {
	idx := setupScanIndex(t)
	if err := idx.EndScan(); err != bptree.ErrScanNotInitialized {
		t.Fatalf("EndScan with no active scan = %v, want ErrScanNotInitialized", err)
	}
	if _, err := idx.ScanNext(); err != bptree.ErrScanNotInitialized {
		t.Fatalf("ScanNext with no active scan = %v, want ErrScanNotInitialized", err)
	}
}

// testScanToChainEnd covers the chain-exhaustion termination path: a
// scan whose high bound is the maximum key in the tree runs its final
// ScanNext's advance() off the end of the leaf sibling chain
// (rightSib == 0). That must report ErrIndexScanCompleted, not
// ErrScanNotInitialized, and a subsequent EndScan must still succeed.
// scan_test.go's other cases all use interior bounds (lo=30/hi=100)
// that never reach this path.
func testScanToChainEnd(t *testing.T) {
	idx := setupScanIndex(t)
	const n = 150
	keys := make([]int32, n)
	perm := rand.Perm(n)
	for i, p := range perm {
		keys[i] = int32(p)
	}
	insertAll(t, idx, keys)

	if err := idx.StartScan(0, bptree.GTE, int32(n-1), bptree.LTE); err != nil {
		t.Fatal("StartScan failed:", err)
	}

	got := collect(t, idx)
	if len(got) != n {
		t.Fatalf("scan to chain end yielded %d entries, want %d", len(got), n)
	}

	if err := idx.EndScan(); err != nil {
		t.Fatalf("EndScan after chain-exhaustion completion = %v, want nil", err)
	}
}

// Property 8 — range round-trip. For any (lo, loOp, hi, hiOp) and any
// multiset K inserted, the scan yields exactly the record ids whose
// keys satisfy the half-open predicate, in non-decreasing key order.
func testRangeRoundTrip(t *testing.T) {
	idx := setupScanIndex(t)
	const n = 150
	keys := make([]int32, n)
	perm := rand.Perm(n)
	for i, p := range perm {
		keys[i] = int32(p)
	}
	insertAll(t, idx, keys)

	lo, hi := int32(30), int32(100)
	for _, tc := range []struct {
		loOp, hiOp bptree.Operator
		loExcl     bool
		hiExcl     bool
	}{
		{bptree.GTE, bptree.LTE, false, false},
		{bptree.GT, bptree.LTE, true, false},
		{bptree.GTE, bptree.LT, false, true},
		{bptree.GT, bptree.LT, true, true},
	} {
		err := idx.StartScan(lo, tc.loOp, hi, tc.hiOp)
		var got []recordid.RecordId
		if err == nil {
			got = collect(t, idx)
		} else if err != bptree.ErrNoSuchKeyFound {
			t.Fatalf("StartScan failed: %v", err)
		}

		wantCount := 0
		for k := lo; k <= hi; k++ {
			if tc.loExcl && k == lo {
				continue
			}
			if tc.hiExcl && k == hi {
				continue
			}
			wantCount++
		}
		if len(got) != wantCount {
			t.Errorf("range (%v,%v) yielded %d entries, want %d", tc.loOp, tc.hiOp, len(got), wantCount)
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].PageNum > got[i].PageNum {
				t.Errorf("range (%v,%v) not in non-decreasing key order at position %d", tc.loOp, tc.hiOp, i)
			}
		}
	}
}
