package bptree

import (
	"math/rand"
	"os"
	"testing"

	"pagedb/internal/buffer"
	"pagedb/internal/testutil"
	"pagedb/pkg/recordid"
)

// treeSalt mixes into generated keys so tests don't depend on small
// hardcoded numbers lining up with internal capacity constants.
var treeSalt = int32(rand.Intn(1000)) + 1

// setupIndex creates a fresh, empty index backed by a temp directory
// and a buffer manager with numBufs frames.
func setupIndex(t *testing.T, numBufs int) *Index {
	t.Helper()
	dir := testutil.TempDir(t)
	bm := buffer.NewManager(numBufs)
	idx, err := CreateIndex(bm, dir, "relation", 0, Integer, nil)
	if err != nil {
		t.Fatal("CreateIndex failed:", err)
	}
	t.Cleanup(idx.Close)
	return idx
}

func ridFor(key int32) recordid.RecordId {
	return recordid.New(key+1, 0)
}

func TestIndex(t *testing.T) {
	t.Run("InsertAndFind", testInsertAndFind)
	t.Run("DuplicateKeysPermitted", testDuplicateKeysPermitted)
	t.Run("ForcedLeafSplit", testForcedLeafSplit)
	t.Run("ForcedInternalSplit", testForcedInternalSplit)
	t.Run("SortedLeafChain", testSortedLeafChain)
	t.Run("MetaMismatchOnReopen", testMetaMismatchOnReopen)
}

func testInsertAndFind(t *testing.T) {
	idx := setupIndex(t, 32)
	for i := int32(0); i < 50; i++ {
		key := i*2 + treeSalt%2
		if err := idx.InsertEntry(key, ridFor(key)); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", key, err)
		}
	}
	for i := int32(0); i < 50; i++ {
		key := i*2 + treeSalt%2
		rid, err := idx.Find(key)
		if err != nil {
			t.Fatalf("Find(%d) failed: %v", key, err)
		}
		if rid != ridFor(key) {
			t.Errorf("Find(%d) = %v, want %v", key, rid, ridFor(key))
		}
	}
	if _, err := idx.Find(99999); err != ErrKeyNotFound {
		t.Errorf("Find on absent key = %v, want ErrKeyNotFound", err)
	}
}

// Duplicate keys are permitted and appended after equals (spec.md
// §4.2's leaf-insertion rule).
func testDuplicateKeysPermitted(t *testing.T) {
	idx := setupIndex(t, 32)
	key := int32(7)
	rids := []recordid.RecordId{recordid.New(1, 0), recordid.New(2, 0), recordid.New(3, 0)}
	for _, rid := range rids {
		if err := idx.InsertEntry(key, rid); err != nil {
			t.Fatal("InsertEntry failed:", err)
		}
	}
	if err := idx.StartScan(key, GTE, key, LTE); err != nil {
		t.Fatal("StartScan failed:", err)
	}
	defer idx.EndScan()
	var found []recordid.RecordId
	for {
		rid, err := idx.ScanNext()
		if err == ErrIndexScanCompleted {
			break
		}
		if err != nil {
			t.Fatal("ScanNext failed:", err)
		}
		found = append(found, rid)
	}
	if len(found) != len(rids) {
		t.Fatalf("found %d entries for duplicate key, want %d", len(found), len(rids))
	}
}

// Seed scenario S4 — forced leaf split. With page size yielding leaf
// capacity L, insert L+1 keys in increasing order. The resulting tree
// has a root internal node with one key (= key at index ceil(L/2) of
// the original sequence) and two leaf children linked via
// rightSibPageNo.
func testForcedLeafSplit(t *testing.T) {
	idx := setupIndex(t, 32)
	L := LeafCapacity()
	for i := 0; i < L+1; i++ {
		key := int32(i)
		if err := idx.InsertEntry(key, ridFor(key)); err != nil {
			t.Fatal("InsertEntry failed:", err)
		}
	}

	rootPage, err := idx.bm.Pin(idx.file, idx.rootPageNo)
	if err != nil {
		t.Fatal("failed to pin root:", err)
	}
	defer rootPage.Release()

	if isLeafPage(rootPage.Data) {
		t.Fatal("expected root to have split into an internal node")
	}
	root := asInternal(rootPage.Data)
	if root.occupancy() != 1 {
		t.Fatalf("expected root to hold exactly one key, got %d", root.occupancy())
	}

	wantMid := int32((L + 1) / 2)
	if root.keyAt(0) != wantMid {
		t.Errorf("root key = %d, want %d (ceil(L/2) of the insertion sequence)", root.keyAt(0), wantMid)
	}

	leftPage, err := idx.bm.Pin(idx.file, root.pnAt(0))
	if err != nil {
		t.Fatal("failed to pin left child:", err)
	}
	defer leftPage.Release()
	left := asLeaf(leftPage.Data)

	if left.rightSibling() != root.pnAt(1) {
		t.Error("left leaf's rightSibPageNo does not point at the right leaf")
	}
}

// Inserting enough keys to force a leaf split on every leaf in turn
// eventually forces the root internal node itself to split.
func testForcedInternalSplit(t *testing.T) {
	idx := setupIndex(t, 64)
	N := InternalCapacity()
	L := LeafCapacity()
	total := int32((N + 2) * L)
	for i := int32(0); i < total; i++ {
		if err := idx.InsertEntry(i, ridFor(i)); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", i, err)
		}
	}

	rootPage, err := idx.bm.Pin(idx.file, idx.rootPageNo)
	if err != nil {
		t.Fatal("failed to pin root:", err)
	}
	defer rootPage.Release()
	if isLeafPage(rootPage.Data) {
		t.Fatal("expected enough insertions to force the root itself to split")
	}

	for i := int32(0); i < total; i++ {
		if _, err := idx.Find(i); err != nil {
			t.Fatalf("Find(%d) failed after internal split: %v", i, err)
		}
	}
}

// Property 5 — sorted leaves. Concatenating every leaf's valid key
// prefix along rightSibPageNo yields a non-decreasing sequence whose
// multiset equals the multiset of keys ever inserted.
func testSortedLeafChain(t *testing.T) {
	idx := setupIndex(t, 32)
	const n = 200
	inserted := make([]int32, n)
	perm := rand.Perm(n)
	for i, p := range perm {
		key := int32(p)
		inserted[i] = key
		if err := idx.InsertEntry(key, ridFor(key)); err != nil {
			t.Fatal("InsertEntry failed:", err)
		}
	}

	leafPageNo := leftmostLeaf(t, idx)
	var chain []int32
	for leafPageNo != 0 {
		page, err := idx.bm.Pin(idx.file, leafPageNo)
		if err != nil {
			t.Fatal("failed to pin leaf:", err)
		}
		leaf := asLeaf(page.Data)
		for i := 0; i < leaf.occupancy(); i++ {
			chain = append(chain, leaf.keyAt(i))
		}
		leafPageNo = leaf.rightSibling()
		page.Release()
	}

	if len(chain) != n {
		t.Fatalf("leaf chain has %d entries, want %d", len(chain), n)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i-1] > chain[i] {
			t.Fatalf("leaf chain not sorted at position %d: %d > %d", i, chain[i-1], chain[i])
		}
	}
}

func leftmostLeaf(t *testing.T, idx *Index) int64 {
	t.Helper()
	pageNo := idx.rootPageNo
	for {
		page, err := idx.bm.Pin(idx.file, pageNo)
		if err != nil {
			t.Fatal("failed to pin page:", err)
		}
		if isLeafPage(page.Data) {
			page.Release()
			return pageNo
		}
		node := asInternal(page.Data)
		pageNo = node.pnAt(0)
		page.Release()
	}
}

// OpenIndex on an existing index file fails with ErrIndexMetaMismatch
// when the caller's relation/attribute/datatype doesn't match what was
// persisted, mirroring BadIndexInfoException in the original
// implementation.
func testMetaMismatchOnReopen(t *testing.T) {
	dir := testutil.TempDir(t)
	bm := buffer.NewManager(8)
	idx, err := CreateIndex(bm, dir, "relation", 4, Integer, nil)
	if err != nil {
		t.Fatal("CreateIndex failed:", err)
	}
	idx.Close()

	// The index file name embeds the attribute offset, so place the
	// persisted file under the name OpenIndex derives for offset 8.
	persisted, err := os.ReadFile(dir + "/relation,4")
	if err != nil {
		t.Fatal("reading index file failed:", err)
	}
	if err := os.WriteFile(dir+"/relation,8", persisted, 0644); err != nil {
		t.Fatal("copying index file failed:", err)
	}

	bm2 := buffer.NewManager(8)
	if _, err := OpenIndex(bm2, dir, "relation", 8, Integer); err != ErrIndexMetaMismatch {
		t.Fatalf("OpenIndex with mismatched attrByteOffset = %v, want ErrIndexMetaMismatch", err)
	}

	bm3 := buffer.NewManager(8)
	reopened, err := OpenIndex(bm3, dir, "relation", 4, Integer)
	if err != nil {
		t.Fatal("OpenIndex with matching metadata failed:", err)
	}
	reopened.Close()
}
