package bptree

import (
	"encoding/binary"
	"sort"

	"pagedb/pkg/recordid"
)

// leafNode is a typed view over a leaf page's bytes. It never outlives
// the buffer frame's pin: callers obtain one from a freshly pinned
// page's Data slice and discard it once the page is released.
type leafNode struct {
	data []byte
}

func asLeaf(data []byte) *leafNode {
	return &leafNode{data: data}
}

// initLeaf zeroes data and marks it as an empty leaf with no sibling.
func initLeaf(data []byte) {
	copy(data, zeroPage())
	writeLevel(data, leafLevel)
}

// occupancy returns the number of valid (key, rid) entries, recovered
// via the compaction invariant's first-zero-slot binary search.
func (n *leafNode) occupancy() int {
	L := LeafCapacity()
	return firstZeroIndex(L, func(i int) bool { return n.ridAt(i).IsEmpty() })
}

func (n *leafNode) keyAt(i int) int32 {
	off := leafKeyOffset(i)
	return int32(binary.LittleEndian.Uint32(n.data[off : off+4]))
}

func (n *leafNode) setKeyAt(i int, key int32) {
	off := leafKeyOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(key))
}

func (n *leafNode) ridAt(i int) recordid.RecordId {
	off := leafRidOffset(i)
	pn := int32(binary.LittleEndian.Uint32(n.data[off : off+4]))
	slot := int32(binary.LittleEndian.Uint32(n.data[off+4 : off+8]))
	return recordid.RecordId{PageNum: pn, SlotNum: slot}
}

func (n *leafNode) setRidAt(i int, rid recordid.RecordId) {
	off := leafRidOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(rid.PageNum))
	binary.LittleEndian.PutUint32(n.data[off+4:off+8], uint32(rid.SlotNum))
}

func (n *leafNode) rightSibling() int64 {
	off := leafSiblingOffset()
	return int64(int32(binary.LittleEndian.Uint32(n.data[off : off+4])))
}

func (n *leafNode) setRightSibling(pn int64) {
	off := leafSiblingOffset()
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(pn))
}

// indexOfFirstGreater returns the smallest index i (within the node's
// occupancy) with keyAt(i) > key, or the occupancy if none.
func (n *leafNode) indexOfFirstGreater(key int32) int {
	k := n.occupancy()
	return sort.Search(k, func(i int) bool { return n.keyAt(i) > key })
}

// indexOfFirstGreaterOrEqual returns the smallest index i (within the
// node's occupancy) with keyAt(i) >= key, or the occupancy if none.
func (n *leafNode) indexOfFirstGreaterOrEqual(key int32) int {
	k := n.occupancy()
	return sort.Search(k, func(i int) bool { return n.keyAt(i) >= key })
}

// insertAt shifts entries [i, k) right by one slot and stores (key,
// rid) at i. Capacity must not already be exhausted.
func (n *leafNode) insertAt(i int, key int32, rid recordid.RecordId) {
	k := n.occupancy()
	for j := k - 1; j >= i; j-- {
		n.setKeyAt(j+1, n.keyAt(j))
		n.setRidAt(j+1, n.ridAt(j))
	}
	n.setKeyAt(i, key)
	n.setRidAt(i, rid)
}

// isFull reports whether the leaf has no room for one more entry.
func (n *leafNode) isFull() bool {
	return n.occupancy() >= LeafCapacity()
}
