package buffer

import "pagedb/internal/diskfile"

// FrameId identifies one slot in the buffer pool's fixed frame array.
type FrameId int

// descriptor is the metadata parallel to a frame's raw bytes. A
// descriptor is "active" iff the Manager's validBits bit for its frame
// is set; every other field is meaningless otherwise.
type descriptor struct {
	file   *diskfile.File
	pageNo int64
	dirty  bool
	pinCnt int32
}

// clear resets a descriptor to its inactive state. Callers are
// responsible for clearing the frame's valid/refbit bits separately.
func (d *descriptor) clear() {
	d.file = nil
	d.pageNo = 0
	d.dirty = false
	d.pinCnt = 0
}
