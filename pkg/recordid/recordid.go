// Package recordid defines the RecordId type shared by the storage
// engine's external collaborators (the relation file and its sequential
// scan) and the B+Tree index, which stores RecordIds as the leaves'
// indirection target.
package recordid

import "fmt"

// RecordId identifies a tuple by the page it lives on and its slot
// within that page. The zero value, (0, 0), is the reserved "empty"
// sentinel: a valid record must have a non-zero PageNum, since page 0
// of a relation file is never used to store tuples.
type RecordId struct {
	PageNum int32
	SlotNum int32
}

// Empty is the sentinel value used to mark unoccupied leaf slots.
var Empty = RecordId{}

// IsEmpty reports whether rid is the (0, 0) sentinel.
func (rid RecordId) IsEmpty() bool {
	return rid == Empty
}

// New constructs a RecordId, panicking if the result would collide with
// the reserved sentinel (page 0 is never a valid tuple page).
func New(pageNum, slotNum int32) RecordId {
	if pageNum == 0 {
		panic("recordid: page 0 is reserved for the empty sentinel")
	}
	return RecordId{PageNum: pageNum, SlotNum: slotNum}
}

// String implements fmt.Stringer for diagnostic printing.
func (rid RecordId) String() string {
	return fmt.Sprintf("(%d, %d)", rid.PageNum, rid.SlotNum)
}
