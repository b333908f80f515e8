package buffer

import "pagedb/internal/diskfile"

// PinnedPage is a scoped-acquisition guard around a pinned frame: it
// accumulates a dirty flag as its holder mutates the page and unpins
// exactly once, with that flag, however the caller's function returns.
// This is the concrete form of the spec's "Pin safety" design note —
// every codepath that pins a page should construct one of these and
// `defer p.Release()` immediately.
type PinnedPage struct {
	mgr     *Manager
	file    *diskfile.File
	pageNo  int64
	Data    []byte
	dirty   bool
	release bool
}

// Pin pins (file, pageNo), reading it in if necessary.
func (m *Manager) Pin(file *diskfile.File, pageNo int64) (*PinnedPage, error) {
	data, err := m.ReadPage(file, pageNo)
	if err != nil {
		return nil, err
	}
	return &PinnedPage{mgr: m, file: file, pageNo: pageNo, Data: data}, nil
}

// PinNew allocates a fresh page and returns it already pinned.
func (m *Manager) PinNew(file *diskfile.File) (*PinnedPage, error) {
	pageNo, data, err := m.AllocPage(file)
	if err != nil {
		return nil, err
	}
	return &PinnedPage{mgr: m, file: file, pageNo: pageNo, Data: data, dirty: true}, nil
}

// PageNo returns the page number this guard holds pinned.
func (p *PinnedPage) PageNo() int64 {
	return p.pageNo
}

// MarkDirty records that the page has been mutated; the dirty flag is
// monotonic until the guard is released.
func (p *PinnedPage) MarkDirty() {
	p.dirty = true
}

// Release unpins the page exactly once, passing through the
// accumulated dirty flag. Calling Release more than once is a no-op
// after the first call, so it is always safe to `defer p.Release()`
// even on a codepath that also releases explicitly earlier.
func (p *PinnedPage) Release() error {
	if p.release {
		return nil
	}
	p.release = true
	return p.mgr.UnpinPage(p.file, p.pageNo, p.dirty)
}
