// Package diskfile implements the disk-resident page file that backs
// both the buffer manager and the B+Tree index. It is the "File"
// collaborator of the spec: addressable by page number, it supports
// allocating, reading, writing and deleting whole pages, plus a
// sequential scan over a base relation's tuples. Its on-disk encoding
// (a flat array of fixed-size, block-aligned pages) is opaque to every
// other package in this module.
package diskfile

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/ncw/directio"
)

// PageSize is the size in bytes of a single page. It is pinned to the
// platform's direct-I/O block size so that page-aligned reads/writes
// never require the kernel to do an extra buffered copy.
const PageSize int64 = directio.BlockSize

// NoPage is the pagenum for "no page" (Relation.AppendRecord uses it
// when the relation has no data page yet).
const NoPage int64 = -1

// ErrCorrupt is returned by Open when the backing file's length isn't a
// whole number of pages.
var ErrCorrupt = errors.New("diskfile: file length is not a multiple of PageSize")

// File is a block-addressable, page-granularity file on disk.
type File struct {
	osFile   *os.File
	path     string
	numPages atomic.Int64
}

// Open opens (creating if necessary) the page file at path.
func Open(path string) (*File, error) {
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		if err := os.MkdirAll(path[:idx], 0775); err != nil {
			return nil, err
		}
	}
	osFile, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	info, err := osFile.Stat()
	if err != nil {
		osFile.Close()
		return nil, err
	}
	if info.Size()%PageSize != 0 {
		osFile.Close()
		return nil, ErrCorrupt
	}
	f := &File{osFile: osFile, path: path}
	f.numPages.Store(info.Size() / PageSize)
	return f, nil
}

// Path returns the filesystem path backing this File.
func (f *File) Path() string {
	return f.path
}

// NumPages returns the number of pages currently allocated in the file.
func (f *File) NumPages() int64 {
	return f.numPages.Load()
}

// AllocatePage appends a fresh, zeroed page to the end of the file and
// returns its page number along with a page-sized buffer the caller owns.
func (f *File) AllocatePage() (pageNo int64, data []byte, err error) {
	pageNo = f.numPages.Load()
	data = directio.AlignedBlock(int(PageSize))
	if _, err = f.osFile.WriteAt(data, pageNo*PageSize); err != nil {
		return 0, nil, err
	}
	f.numPages.Store(pageNo + 1)
	return pageNo, data, nil
}

// ReadPage reads the bytes of page pageNo into a freshly allocated,
// aligned buffer.
func (f *File) ReadPage(pageNo int64) ([]byte, error) {
	if pageNo < 0 || pageNo >= f.numPages.Load() {
		return nil, errors.New("diskfile: page number out of range")
	}
	data := directio.AlignedBlock(int(PageSize))
	if _, err := f.osFile.ReadAt(data, pageNo*PageSize); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

// WritePage writes data (which must be exactly PageSize bytes) to page
// pageNo.
func (f *File) WritePage(pageNo int64, data []byte) error {
	if int64(len(data)) != PageSize {
		return errors.New("diskfile: page data must be exactly PageSize bytes")
	}
	_, err := f.osFile.WriteAt(data, pageNo*PageSize)
	return err
}

// DeletePage zeroes out page pageNo. Pages are never reclaimed or
// shrunk out from under a file's other page numbers, matching the
// B+Tree's "leaves and internals live indefinitely" lifecycle.
func (f *File) DeletePage(pageNo int64) error {
	if pageNo < 0 || pageNo >= f.numPages.Load() {
		return errors.New("diskfile: page number out of range")
	}
	zero := directio.AlignedBlock(int(PageSize))
	_, err := f.osFile.WriteAt(zero, pageNo*PageSize)
	return err
}

// Close closes the underlying OS file handle.
func (f *File) Close() error {
	return f.osFile.Close()
}
