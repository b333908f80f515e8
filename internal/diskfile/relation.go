package diskfile

import (
	"encoding/binary"
	"errors"
	"io"

	"pagedb/pkg/recordid"
)

// checksumSize is the width of the trailer every relation page reserves
// for Checksum's output.
const checksumSize = 4

// relationHeaderPN is the page number reserved for a relation file's
// header (its first 8 bytes hold the record size), mirroring the B+Tree index's own
// page-0 meta-page convention and preserving the RecordId sentinel
// invariant that page 0 never holds real tuples.
const relationHeaderPN int64 = 0

// Relation is a base table backed by a diskfile.File: a flat sequence
// of fixed-size records, packed into pages starting at page 1, with
// each page trailed by a checksum of its live bytes.
type Relation struct {
	file          *File
	recordSize    int64
	recordsPerPg  int64
}

// CreateRelation creates (or opens) a relation file at path holding
// fixed-size records of recordSize bytes.
func CreateRelation(path string, recordSize int64) (*Relation, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	recordsPerPg := (PageSize - checksumSize) / recordSize
	if recordsPerPg <= 0 {
		f.Close()
		return nil, errors.New("diskfile: recordSize too large for one page")
	}
	if f.NumPages() == 0 {
		if _, _, err := f.AllocatePage(); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeRelationHeader(f, recordSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &Relation{file: f, recordSize: recordSize, recordsPerPg: recordsPerPg}, nil
}

func writeRelationHeader(f *File, recordSize int64) error {
	hdr, err := f.ReadPage(relationHeaderPN)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(recordSize))
	return f.WritePage(relationHeaderPN, hdr)
}

// Close closes the relation's backing file.
func (r *Relation) Close() error {
	return r.file.Close()
}

// AppendRecord writes data (exactly recordSize bytes) to the next free
// slot, allocating a new page if the current last page is full, and
// returns the RecordId it was stored at. A slot whose bytes are all zero
// counts as free, so an all-zero record is skipped by Scan and its slot
// is reused by the next AppendRecord.
func (r *Relation) AppendRecord(data []byte) (recordid.RecordId, error) {
	if int64(len(data)) != r.recordSize {
		return recordid.RecordId{}, errors.New("diskfile: record has wrong size")
	}
	lastPN := r.file.NumPages() - 1
	if lastPN < 1 {
		lastPN = NoPage // force allocation below
	}
	var page []byte
	var slot int64
	if lastPN >= 1 {
		var err error
		page, err = r.file.ReadPage(lastPN)
		if err != nil {
			return recordid.RecordId{}, err
		}
		slot = firstEmptySlot(page, r.recordSize, r.recordsPerPg)
	}
	if lastPN < 1 || slot >= r.recordsPerPg {
		pn, newPage, err := r.file.AllocatePage()
		if err != nil {
			return recordid.RecordId{}, err
		}
		lastPN, page, slot = pn, newPage, 0
	}
	copy(page[slot*r.recordSize:(slot+1)*r.recordSize], data)
	binary.LittleEndian.PutUint32(page[len(page)-checksumSize:], Checksum(page[:len(page)-checksumSize]))
	if err := r.file.WritePage(lastPN, page); err != nil {
		return recordid.RecordId{}, err
	}
	return recordid.New(int32(lastPN), int32(slot)), nil
}

// firstEmptySlot returns the index of the first all-zero record slot in
// page, or recordsPerPg if the page is full.
func firstEmptySlot(page []byte, recordSize, recordsPerPg int64) int64 {
	for i := int64(0); i < recordsPerPg; i++ {
		slotBytes := page[i*recordSize : (i+1)*recordSize]
		empty := true
		for _, b := range slotBytes {
			if b != 0 {
				empty = false
				break
			}
		}
		if empty {
			return i
		}
	}
	return recordsPerPg
}

// Scan is a sequential, forward-only iterator over every live record in
// the relation, in (pageNo, slotNum) order. It is the spec's "FileScan"
// collaborator.
type Scan struct {
	rel     *Relation
	pageNo  int64
	slot    int64
	curPage []byte
}

// NewScan returns a Scan positioned just before the relation's first
// record.
func (r *Relation) NewScan() (*Scan, error) {
	return &Scan{rel: r, pageNo: relationHeaderPN, slot: r.recordsPerPg}, nil
}

// Next returns the next record's bytes and RecordId, or io.EOF once the
// relation has been fully scanned.
func (s *Scan) Next() ([]byte, recordid.RecordId, error) {
	for {
		s.slot++
		if s.slot >= s.rel.recordsPerPg {
			s.pageNo++
			if s.pageNo >= s.rel.file.NumPages() {
				return nil, recordid.RecordId{}, io.EOF
			}
			var err error
			s.curPage, err = s.rel.file.ReadPage(s.pageNo)
			if err != nil {
				return nil, recordid.RecordId{}, err
			}
			body := s.curPage[:len(s.curPage)-checksumSize]
			if binary.LittleEndian.Uint32(s.curPage[len(body):]) != Checksum(body) {
				return nil, recordid.RecordId{}, errors.New("diskfile: relation page checksum mismatch")
			}
			s.slot = 0
		}
		data := s.curPage[s.slot*s.rel.recordSize : (s.slot+1)*s.rel.recordSize]
		empty := true
		for _, b := range data {
			if b != 0 {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		return data, recordid.New(int32(s.pageNo), int32(s.slot)), nil
	}
}
