// Package buffer implements the storage engine's buffer manager: a
// fixed-size pool of page frames, replaced via a clock-hand second-chance
// policy, mediating every access the B+Tree makes to disk.
package buffer

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/ncw/directio"

	"pagedb/internal/diskfile"
	"pagedb/internal/framehash"
)

// Manager owns a fixed array of frames and their descriptors, a
// frame-lookup hash index, and the clock hand used to pick eviction
// victims. It assumes exclusive access by a single caller at a time;
// see the package-level concurrency note in the module's SPEC_FULL.md.
type Manager struct {
	numBufs     int
	frames      [][]byte
	descriptors []descriptor
	validBits   *bitset.BitSet
	refBits     *bitset.BitSet
	hash        *framehash.Table
	clockHand   int
}

// NewManager allocates numBufs frames (all initially invalid) and a
// frame-lookup hash index sized proportionally to numBufs. The clock
// hand starts "one before frame 0" so the first advance lands on 0,
// matching the reference implementation's clockHand = numBufs-1.
func NewManager(numBufs int) *Manager {
	if numBufs <= 0 {
		panic("buffer: NewManager requires at least one frame")
	}
	block := directio.AlignedBlock(int(diskfile.PageSize) * numBufs)
	frames := make([][]byte, numBufs)
	for i := 0; i < numBufs; i++ {
		frames[i] = block[i*int(diskfile.PageSize) : (i+1)*int(diskfile.PageSize)]
	}
	return &Manager{
		numBufs:     numBufs,
		frames:      frames,
		descriptors: make([]descriptor, numBufs),
		validBits:   bitset.New(uint(numBufs)),
		refBits:     bitset.New(uint(numBufs)),
		hash:        framehash.New(numBufs),
		clockHand:   numBufs - 1,
	}
}

func fileID(file *diskfile.File) framehash.FileId {
	return framehash.FileId(file.Path())
}

// advanceClock moves the clock hand forward by one, wrapping around.
func (m *Manager) advanceClock() {
	m.clockHand = (m.clockHand + 1) % m.numBufs
}

// allocBuf selects a victim frame using the clock replacement policy
// described in the spec: advance the hand; take the first invalid
// frame; give referenced frames a second chance; count pinned frames
// toward the BufferExceeded threshold; evict (writing back if dirty)
// the first unreferenced, unpinned frame found. The pinned tally is
// reset every sweep of numBufs steps, so it counts distinct frames:
// ErrBufferExceeded is returned only after a sweep that found every
// frame pinned. If some frame is unpinned, a sweep either evicts it or
// clears its refbit, and the following sweep evicts it.
func (m *Manager) allocBuf() (FrameId, error) {
	pinnedCount := 0
	for step := 0; ; step++ {
		if step%m.numBufs == 0 {
			if pinnedCount >= m.numBufs {
				return 0, ErrBufferExceeded
			}
			pinnedCount = 0
		}
		m.advanceClock()
		fid := FrameId(m.clockHand)
		if !m.validBits.Test(uint(m.clockHand)) {
			m.evictSlot(fid)
			return fid, nil
		}
		if m.refBits.Test(uint(m.clockHand)) {
			m.refBits.Clear(uint(m.clockHand))
			continue
		}
		d := &m.descriptors[m.clockHand]
		if d.pinCnt > 0 {
			pinnedCount++
			continue
		}
		m.hash.Remove(framehash.Key{File: fileID(d.file), PageNo: d.pageNo})
		if d.dirty {
			if err := d.file.WritePage(d.pageNo, m.frames[m.clockHand]); err != nil {
				return 0, err
			}
		}
		m.evictSlot(fid)
		return fid, nil
	}
}

// evictSlot clears a frame's descriptor and validity/refbit state,
// leaving its data bytes untouched (they're about to be overwritten by
// the caller).
func (m *Manager) evictSlot(fid FrameId) {
	m.descriptors[fid].clear()
	m.validBits.Clear(uint(fid))
	m.refBits.Clear(uint(fid))
}

// ReadPage returns the bytes of (file, pageNo), pinning it in the
// buffer pool. If the page is already cached, its refbit is set and its
// pin count incremented; otherwise a victim frame is chosen, the page
// is read from disk, and a fresh descriptor is installed.
func (m *Manager) ReadPage(file *diskfile.File, pageNo int64) ([]byte, error) {
	key := framehash.Key{File: fileID(file), PageNo: pageNo}
	if fid, err := m.hash.Lookup(key); err == nil {
		m.refBits.Set(uint(fid))
		m.descriptors[fid].pinCnt++
		return m.frames[fid], nil
	}
	fid, err := m.allocBuf()
	if err != nil {
		return nil, err
	}
	data, err := file.ReadPage(pageNo)
	if err != nil {
		return nil, err
	}
	copy(m.frames[fid], data)
	m.hash.Insert(key, int64(fid))
	m.descriptors[fid] = descriptor{file: file, pageNo: pageNo, dirty: false, pinCnt: 1}
	m.validBits.Set(uint(fid))
	m.refBits.Set(uint(fid))
	return m.frames[fid], nil
}

// AllocPage asks file for a fresh page, installs it into a victim
// frame, and returns its page number and bytes, pinned once.
func (m *Manager) AllocPage(file *diskfile.File) (pageNo int64, data []byte, err error) {
	pageNo, newData, err := file.AllocatePage()
	if err != nil {
		return 0, nil, err
	}
	fid, err := m.allocBuf()
	if err != nil {
		return 0, nil, err
	}
	copy(m.frames[fid], newData)
	key := framehash.Key{File: fileID(file), PageNo: pageNo}
	m.hash.Insert(key, int64(fid))
	m.descriptors[fid] = descriptor{file: file, pageNo: pageNo, dirty: false, pinCnt: 1}
	m.validBits.Set(uint(fid))
	m.refBits.Set(uint(fid))
	return pageNo, m.frames[fid], nil
}

// UnpinPage decrements (file, pageNo)'s pin count and ORs dirty into
// its descriptor's dirty bit. Unpinning a page that isn't cached
// silently succeeds (tolerating double-unpin from a caller's error
// paths); unpinning one whose pin count is already zero fails with
// ErrPageNotPinned.
func (m *Manager) UnpinPage(file *diskfile.File, pageNo int64, dirty bool) error {
	key := framehash.Key{File: fileID(file), PageNo: pageNo}
	fid, err := m.hash.Lookup(key)
	if err != nil {
		return nil
	}
	d := &m.descriptors[fid]
	if d.pinCnt == 0 {
		return ErrPageNotPinned
	}
	d.pinCnt--
	if dirty {
		d.dirty = true
	}
	return nil
}

// DisposePage evicts (file, pageNo) from the pool if cached, then asks
// file to delete it. Disposing a pinned page is undefined behavior
// (callers must not do it).
func (m *Manager) DisposePage(file *diskfile.File, pageNo int64) error {
	key := framehash.Key{File: fileID(file), PageNo: pageNo}
	if fid, err := m.hash.Lookup(key); err == nil {
		m.evictSlot(FrameId(fid))
		m.hash.Remove(key)
	}
	return file.DeletePage(pageNo)
}

// FlushFile writes back every dirty frame belonging to file and evicts
// all of its frames from the pool. Fails with ErrPagePinned, performing
// no write-back, if any of the file's frames is still pinned.
func (m *Manager) FlushFile(file *diskfile.File) error {
	id := fileID(file)
	for i := 0; i < m.numBufs; i++ {
		if !m.validBits.Test(uint(i)) || fileID(m.descriptors[i].file) != id {
			continue
		}
		if m.descriptors[i].pinCnt > 0 {
			return ErrPagePinned
		}
	}
	for i := 0; i < m.numBufs; i++ {
		if !m.validBits.Test(uint(i)) || fileID(m.descriptors[i].file) != id {
			continue
		}
		d := &m.descriptors[i]
		if d.dirty {
			if err := d.file.WritePage(d.pageNo, m.frames[i]); err != nil {
				return err
			}
			d.dirty = false
		}
		m.hash.Remove(framehash.Key{File: id, PageNo: d.pageNo})
		m.evictSlot(FrameId(i))
	}
	return nil
}

// PrintSelf writes a diagnostic dump of every frame's descriptor state
// to w.
func (m *Manager) PrintSelf(w io.Writer) {
	valid := 0
	for i := 0; i < m.numBufs; i++ {
		d := m.descriptors[i]
		fmt.Fprintf(w, "frame %d: valid=%v pinCnt=%d dirty=%v refbit=%v",
			i, m.validBits.Test(uint(i)), d.pinCnt, d.dirty, m.refBits.Test(uint(i)))
		if m.validBits.Test(uint(i)) {
			fmt.Fprintf(w, " file=%s pageNo=%d", d.file.Path(), d.pageNo)
			valid++
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "total valid frames: %d\n", valid)
}
