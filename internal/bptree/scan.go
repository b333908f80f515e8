package bptree

import (
	"pagedb/pkg/recordid"
)

// StartScan begins a filtered scan of the index: lowOp must be GT or
// GTE, highOp must be LT or LTE, and lowVal must not exceed highVal.
// It descends to the leaf that would hold lowVal and positions the
// scan at the first entry satisfying the low bound, failing with
// ErrNoSuchKeyFound if the range is provably empty. Per spec.md §4.2,
// a caller with an already-executing scan is expected to EndScan it
// first; this implementation ends the prior scan for them rather than
// leaving a leaf pinned forever.
func (idx *Index) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) error {
	if lowOp != GT && lowOp != GTE {
		return ErrBadOpcodes
	}
	if highOp != LT && highOp != LTE {
		return ErrBadOpcodes
	}
	if lowVal > highVal {
		return ErrBadScanrange
	}
	if idx.scanExecuting {
		idx.EndScan()
	}

	idx.lowVal, idx.lowOp = lowVal, lowOp
	idx.highVal, idx.highOp = highVal, highOp
	idx.scanExecuting = true
	idx.curPageNo = idx.rootPageNo

	if err := idx.descendToLeaf(lowVal); err != nil {
		idx.scanExecuting = false
		return err
	}
	if err := idx.positionInLeaf(); err != nil {
		idx.scanExecuting = false
		return err
	}

	leaf := asLeaf(idx.curPage.Data)
	rid := leaf.ridAt(idx.nextEntry)
	key := leaf.keyAt(idx.nextEntry)
	if rid.IsEmpty() || key > idx.highVal || (key == idx.highVal && idx.highOp == LT) {
		idx.EndScan()
		return ErrNoSuchKeyFound
	}
	return nil
}

// descendToLeaf pins the leaf that would contain key, following the
// routing rule from the root down and unpinning each internal page
// before descending into its child.
func (idx *Index) descendToLeaf(key int32) error {
	page, err := idx.bm.Pin(idx.file, idx.curPageNo)
	if err != nil {
		return err
	}
	for !isLeafPage(page.Data) {
		node := asInternal(page.Data)
		childPageNo := node.pnAt(node.routeIndex(key))
		if err := page.Release(); err != nil {
			return err
		}
		idx.curPageNo = childPageNo
		page, err = idx.bm.Pin(idx.file, idx.curPageNo)
		if err != nil {
			return err
		}
	}
	idx.curPage = page
	return nil
}

// positionInLeaf locates the first index in the current leaf
// satisfying the low bound, crossing into right siblings (per
// rightSibPageNo) until found or the chain is exhausted.
func (idx *Index) positionInLeaf() error {
	for {
		leaf := asLeaf(idx.curPage.Data)
		var j int
		if idx.lowOp == GTE {
			j = leaf.indexOfFirstGreaterOrEqual(idx.lowVal)
		} else {
			j = leaf.indexOfFirstGreater(idx.lowVal)
		}
		if j < leaf.occupancy() {
			idx.nextEntry = j
			return nil
		}
		if err := idx.moveToNextLeaf(leaf); err != nil {
			return err
		}
	}
}

// moveToNextLeaf releases the current leaf and pins its right sibling,
// failing with ErrNoSuchKeyFound if there is none.
func (idx *Index) moveToNextLeaf(leaf *leafNode) error {
	rightSib := leaf.rightSibling()
	if err := idx.curPage.Release(); err != nil {
		return err
	}
	if rightSib == 0 {
		idx.curPage = nil
		return ErrNoSuchKeyFound
	}
	idx.curPageNo = rightSib
	page, err := idx.bm.Pin(idx.file, idx.curPageNo)
	if err != nil {
		return err
	}
	idx.curPage = page
	idx.nextEntry = 0
	return nil
}

// ScanNext returns the next matching RecordId, or ErrIndexScanCompleted
// once the high bound is reached or the leaf chain runs out.
func (idx *Index) ScanNext() (recordid.RecordId, error) {
	if !idx.scanExecuting {
		return recordid.RecordId{}, ErrScanNotInitialized
	}

	leaf := asLeaf(idx.curPage.Data)
	if idx.nextEntry >= leaf.occupancy() {
		return recordid.RecordId{}, ErrIndexScanCompleted
	}
	rid := leaf.ridAt(idx.nextEntry)
	key := leaf.keyAt(idx.nextEntry)

	if key > idx.highVal || (key == idx.highVal && idx.highOp == LT) {
		return recordid.RecordId{}, ErrIndexScanCompleted
	}

	if err := idx.advance(leaf); err != nil {
		return recordid.RecordId{}, err
	}
	return rid, nil
}

// advance moves the scan cursor to the next entry, crossing into the
// right sibling when the current leaf is exhausted. Per spec.md §7,
// running off the end of the sibling chain does NOT end the scan: it
// leaves the scan initialized with nextEntry parked at (the now
// unreachable) leaf.occupancy(), so the next ScanNext call reports
// ErrIndexScanCompleted rather than ErrScanNotInitialized, and the
// leaf stays pinned for the caller's mandatory EndScan to release.
func (idx *Index) advance(leaf *leafNode) error {
	idx.nextEntry++
	if idx.nextEntry < leaf.occupancy() {
		return nil
	}
	rightSib := leaf.rightSibling()
	if rightSib == 0 {
		return nil
	}
	if err := idx.curPage.Release(); err != nil {
		idx.curPage = nil
		idx.scanExecuting = false
		return err
	}
	page, err := idx.bm.Pin(idx.file, rightSib)
	if err != nil {
		idx.curPage = nil
		idx.scanExecuting = false
		return err
	}
	idx.curPageNo = rightSib
	idx.curPage = page
	idx.nextEntry = 0
	return nil
}

// EndScan terminates the current scan, unpinning its leaf. It fails
// with ErrScanNotInitialized if no scan is executing.
func (idx *Index) EndScan() error {
	if !idx.scanExecuting {
		return ErrScanNotInitialized
	}
	idx.scanExecuting = false
	if idx.curPage == nil {
		return nil
	}
	p := idx.curPage
	idx.curPage = nil
	return p.Release()
}
