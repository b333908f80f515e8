package bptree

import (
	"encoding/binary"
	"sort"
)

// readLevel returns the level word stored in a node page's first 4
// bytes.
func readLevel(data []byte) int32 {
	return int32(binary.LittleEndian.Uint32(data[0:4]))
}

// writeLevel sets a node page's level word.
func writeLevel(data []byte, level int32) {
	binary.LittleEndian.PutUint32(data[0:4], uint32(level))
}

// isLeafPage reports whether a page's level marks it as a leaf.
func isLeafPage(data []byte) bool {
	return readLevel(data) == leafLevel
}

// firstZeroIndex returns the smallest i in [0, n) for which isZero(i)
// is true, or n if no such index exists. It implements the compaction
// invariant's "recover occupancy via binary search for the first zero
// slot": valid entries always occupy a contiguous prefix, so the
// zero/non-zero-ness of isZero is monotonic over [0, n).
func firstZeroIndex(n int, isZero func(i int) bool) int {
	return sort.Search(n, func(i int) bool { return isZero(i) })
}

// zeroPage returns a fresh, all-zero page-sized buffer.
func zeroPage() []byte {
	return make([]byte, pageSize)
}
