package bptree

import (
	"encoding/binary"
	"sort"
)

// internalNode is a typed view over an internal (non-leaf) page's
// bytes: N keys routing to N+1 children.
type internalNode struct {
	data []byte
}

func asInternal(data []byte) *internalNode {
	return &internalNode{data: data}
}

// initInternal zeroes data and marks it as an internal node at the
// given level (1 = parent of leaves; the exact numeric above that is
// not load-bearing, per spec).
func initInternal(data []byte, level int32) {
	copy(data, zeroPage())
	writeLevel(data, level)
}

// occupancy returns the number of keys (and thus k+1 children) stored,
// recovered via the compaction invariant. A node with zero children
// reads as zero occupancy (only true for a page that hasn't been
// populated yet, which callers never observe).
func (n *internalNode) occupancy() int {
	N := InternalCapacity()
	z := firstZeroIndex(N+1, func(i int) bool { return n.pnAt(i) == 0 })
	if z == 0 {
		return 0
	}
	return z - 1
}

func (n *internalNode) keyAt(i int) int32 {
	off := internalKeyOffset(i)
	return int32(binary.LittleEndian.Uint32(n.data[off : off+4]))
}

func (n *internalNode) setKeyAt(i int, key int32) {
	off := internalKeyOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(key))
}

func (n *internalNode) pnAt(i int) int64 {
	off := internalPNOffset(i)
	return int64(int32(binary.LittleEndian.Uint32(n.data[off : off+4])))
}

func (n *internalNode) setPNAt(i int, pn int64) {
	off := internalPNOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], uint32(pn))
}

// routeIndex returns the routing slot for key: the smallest i with
// keyAt(i) > key, or the occupancy (rightmost child) if none exists.
// The child at that index is the one whose subtree contains key.
func (n *internalNode) routeIndex(key int32) int {
	k := n.occupancy()
	return sort.Search(k, func(i int) bool { return n.keyAt(i) > key })
}

// insertKeyAndChild inserts key at routing position i and rightChildPN
// as the child immediately to its right (position i+1), shifting the
// existing tail of keys and children over by one. Capacity must not
// already be exhausted.
func (n *internalNode) insertKeyAndChild(i int, key int32, rightChildPN int64) {
	k := n.occupancy()
	for j := k - 1; j >= i; j-- {
		n.setKeyAt(j+1, n.keyAt(j))
	}
	for j := k; j > i; j-- {
		n.setPNAt(j+1, n.pnAt(j))
	}
	n.setKeyAt(i, key)
	n.setPNAt(i+1, rightChildPN)
}

// isFull reports whether the internal node has no room for one more key.
func (n *internalNode) isFull() bool {
	return n.occupancy() >= InternalCapacity()
}
