package bptree

import (
	"encoding/binary"
	"errors"
)

const (
	relationNameSize = 20
	metaRelOffset    = 0
	metaAttrOffset   = metaRelOffset + relationNameSize
	metaTypeOffset   = metaAttrOffset + 4
	metaRootOffset   = metaTypeOffset + 1
)

// Datatype tags the attribute type an index was built over. The engine
// only ever builds INTEGER indexes (spec §1: "specializes to 32-bit
// integer keys"); the tag is still persisted so a reopen can detect a
// mismatched index file the way the original BadgerDB meta-page does.
type Datatype byte

const (
	Integer Datatype = 0
)

// meta is the in-memory view of the index file's page-0 meta-record.
type meta struct {
	relationName    string
	attrByteOffset  int32
	datatype        Datatype
	rootPageNo      int64
}

var errRelationNameTooLong = errors.New("bptree: relation name longer than 20 bytes")

func marshalMeta(m meta) ([]byte, error) {
	if len(m.relationName) > relationNameSize {
		return nil, errRelationNameTooLong
	}
	buf := make([]byte, pageSize)
	copy(buf[metaRelOffset:metaRelOffset+relationNameSize], m.relationName)
	binary.LittleEndian.PutUint32(buf[metaAttrOffset:], uint32(m.attrByteOffset))
	buf[metaTypeOffset] = byte(m.datatype)
	binary.LittleEndian.PutUint32(buf[metaRootOffset:], uint32(m.rootPageNo))
	return buf, nil
}

func unmarshalMeta(buf []byte) meta {
	nameBytes := buf[metaRelOffset : metaRelOffset+relationNameSize]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	return meta{
		relationName:   string(nameBytes[:end]),
		attrByteOffset: int32(binary.LittleEndian.Uint32(buf[metaAttrOffset:])),
		datatype:       Datatype(buf[metaTypeOffset]),
		rootPageNo:     int64(int32(binary.LittleEndian.Uint32(buf[metaRootOffset:]))),
	}
}
