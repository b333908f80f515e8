// Package framehash implements the buffer manager's frame-lookup hash
// index: a black-box associative store mapping (file, pageNo) pairs to
// the FrameId currently caching that page. It is the spec's "Hash index
// collaborator" — insert/lookup/remove plus a distinguished not-found
// failure, sized to roughly 1.2x the number of buffer frames.
package framehash

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

// ErrNotFound is returned by Lookup and is the only failure mode Remove
// and Insert's callers need to special-case; buffer.Manager translates
// it to a cache miss (ReadPage) or a silent no-op (UnpinPage,
// DisposePage) and it never otherwise escapes.
var ErrNotFound = errors.New("framehash: entry not found")

// FileId identifies the owning file of a page. The buffer manager keys
// its frame table by a File's identity, not its contents, so callers
// pass a stable per-file id (its backing path is sufficient, since two
// diskfile.Files never share a path while open).
type FileId string

// Key is a (file, pageNo) pair, the natural key for the frame table.
type Key struct {
	File   FileId
	PageNo int64
}

type entry struct {
	key     Key
	frameID int64
	next    *entry
}

// Table is a fixed-bucket-count chained hash table.
type Table struct {
	buckets []*entry
	count   int
}

// New returns a Table sized for a buffer pool of numBufs frames: the
// bucket count is the first odd number at or above 1.2x numBufs, so
// that a prime-ish, never-even modulus spreads sequential page numbers
// across buckets.
func New(numBufs int) *Table {
	size := int(float64(numBufs)*1.2) + 1
	if size%2 == 0 {
		size++
	}
	if size < 1 {
		size = 1
	}
	return &Table{buckets: make([]*entry, size)}
}

func (t *Table) bucketFor(key Key) int {
	h := xxhash.Sum64([]byte(fmt.Sprintf("%s:%d", key.File, key.PageNo)))
	return int(h % uint64(len(t.buckets)))
}

// Insert records that key maps to frameID. Inserting an already-present
// key overwrites its mapping (the buffer manager never does this, but
// it keeps the table total).
func (t *Table) Insert(key Key, frameID int64) {
	idx := t.bucketFor(key)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			e.frameID = frameID
			return
		}
	}
	t.buckets[idx] = &entry{key: key, frameID: frameID, next: t.buckets[idx]}
	t.count++
}

// Lookup returns the frameID mapped to key, or ErrNotFound.
func (t *Table) Lookup(key Key) (int64, error) {
	idx := t.bucketFor(key)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e.frameID, nil
		}
	}
	return 0, ErrNotFound
}

// Remove deletes key's mapping, if present. Removing an absent key is a
// silent no-op, matching the buffer manager's own tolerance for
// redundant cleanup.
func (t *Table) Remove(key Key) {
	idx := t.bucketFor(key)
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.count--
			return
		}
		prev = e
	}
}

// Len returns the number of entries currently stored.
func (t *Table) Len() int {
	return t.count
}
