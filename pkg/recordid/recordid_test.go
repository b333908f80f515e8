package recordid_test

import (
	"testing"

	"pagedb/pkg/recordid"
)

func TestRecordId(t *testing.T) {
	t.Run("ZeroValueIsEmpty", testZeroValueIsEmpty)
	t.Run("NewRejectsPageZero", testNewRejectsPageZero)
	t.Run("NewProducesNonEmpty", testNewProducesNonEmpty)
}

func testZeroValueIsEmpty(t *testing.T) {
	var rid recordid.RecordId
	if !rid.IsEmpty() {
		t.Error("zero-value RecordId should be the empty sentinel")
	}
	if !recordid.Empty.IsEmpty() {
		t.Error("recordid.Empty should report itself as empty")
	}
}

func testNewRejectsPageZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(0, _) should panic: page 0 is reserved for the empty sentinel")
		}
	}()
	recordid.New(0, 5)
}

func testNewProducesNonEmpty(t *testing.T) {
	rid := recordid.New(1, 2)
	if rid.IsEmpty() {
		t.Error("a RecordId with a non-zero page number must not report itself as empty")
	}
	if rid.PageNum != 1 || rid.SlotNum != 2 {
		t.Errorf("New(1, 2) = %+v", rid)
	}
}
