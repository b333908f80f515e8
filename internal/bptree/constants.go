package bptree

import "pagedb/internal/diskfile"

// Byte widths of the fixed-size fields making up node and meta-page
// layouts. Keys, levels and on-disk page ids are all 32-bit, matching
// the spec's "32-bit integer keys" scope.
const (
	levelSize   = 4
	keySize     = 4
	pageIDSize  = 4
	recordSize  = 8 // RecordId{PageNum, SlotNum int32}
	nodeHdrSize = levelSize
)

// leafLevel is the sentinel stored in a node's first 4 bytes that marks
// it as a leaf; any other value marks an internal node.
const leafLevel int32 = -1

// MetaPN is the reserved page number of the index file's meta-page.
const MetaPN int64 = 0

// RootInitialPN is the page number the very first (empty, leaf) root
// node is allocated at when an index is created.
const RootInitialPN int64 = 1

// pageSize is the full size of a page, pulled from diskfile so node
// capacities stay in lockstep with the buffer pool's frame size.
var pageSize = diskfile.PageSize

// LeafCapacity (L) is the number of (key, RecordId) slots a leaf node
// holds: the page minus its level word and right-sibling pointer,
// divided by the per-entry width.
func LeafCapacity() int {
	usable := pageSize - levelSize - pageIDSize
	return int(usable / (keySize + recordSize))
}

// InternalCapacity (N) is the number of keys an internal node holds; it
// always has N+1 child pointers.
func InternalCapacity() int {
	usable := pageSize - levelSize - pageIDSize
	return int(usable / (keySize + pageIDSize))
}

// Leaf node field offsets.
func leafKeyOffset(i int) int64   { return nodeHdrSize + int64(i)*keySize }
func leafRidOffset(i int) int64 {
	L := LeafCapacity()
	return nodeHdrSize + int64(L)*keySize + int64(i)*recordSize
}
func leafSiblingOffset() int64 {
	L := LeafCapacity()
	return nodeHdrSize + int64(L)*keySize + int64(L)*recordSize
}

// Internal node field offsets.
func internalKeyOffset(i int) int64 { return nodeHdrSize + int64(i)*keySize }
func internalPNOffset(i int) int64 {
	N := InternalCapacity()
	return nodeHdrSize + int64(N)*keySize + int64(i)*pageIDSize
}
