package bptree

import (
	"errors"
	"io"
	"log"

	"pagedb/internal/buffer"
	"pagedb/internal/diskfile"
	"pagedb/pkg/recordid"
)

// Index is a disk-resident B+Tree secondary index over 32-bit integer
// keys, indirecting to RecordIds. Every page it touches is mediated by
// a buffer.Manager; the index itself holds no page bytes across calls
// except the single leaf pinned by an active scan.
type Index struct {
	bm             *buffer.Manager
	file           *diskfile.File
	relationName   string
	attrByteOffset int32
	rootPageNo     int64

	scanExecuting bool
	curPageNo     int64
	curPage       *buffer.PinnedPage
	nextEntry     int
	lowVal        int32
	lowOp         Operator
	highVal       int32
	highOp        Operator
}

// Operator is a scan-range comparison opcode.
type Operator int

const (
	GT Operator = iota
	GTE
	LT
	LTE
)

// indexFileName mirrors the original implementation's
// "<relationName>,<attrByteOffset>" convention.
func indexFileName(relationName string, attrByteOffset int32) string {
	return relationName + "," + itoa(attrByteOffset)
}

func itoa(n int32) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// CreateIndex creates a brand-new index file for relationName at
// attrByteOffset, writes its meta-page, allocates an empty leaf as the
// initial root, then bulk-builds by scanning rel and inserting the
// integer key found at attrByteOffset of every tuple. If the index file
// already holds pages, it is opened and validated as OpenIndex does and
// rel is not scanned.
func CreateIndex(bm *buffer.Manager, dir string, relationName string, attrByteOffset int32, datatype Datatype, rel *diskfile.Relation) (*Index, error) {
	path := dir + "/" + indexFileName(relationName, attrByteOffset)
	file, err := diskfile.Open(path)
	if err != nil {
		return nil, err
	}

	idx := &Index{bm: bm, file: file, relationName: relationName, attrByteOffset: attrByteOffset}

	if file.NumPages() == 0 {
		metaPage, err := bm.PinNew(file)
		if err != nil {
			return nil, err
		}
		rootPage, err := bm.PinNew(file)
		if err != nil {
			metaPage.Release()
			return nil, err
		}
		initLeaf(rootPage.Data)
		rootPage.MarkDirty()
		if err := rootPage.Release(); err != nil {
			return nil, err
		}
		idx.rootPageNo = rootPage.PageNo()
		if idx.rootPageNo != RootInitialPN {
			log.Printf("bptree: fresh index root landed on page %d, expected %d", idx.rootPageNo, RootInitialPN)
		}

		buf, err := marshalMeta(meta{
			relationName:   relationName,
			attrByteOffset: attrByteOffset,
			datatype:       datatype,
			rootPageNo:     idx.rootPageNo,
		})
		if err != nil {
			return nil, err
		}
		copy(metaPage.Data, buf)
		metaPage.MarkDirty()
		if err := metaPage.Release(); err != nil {
			return nil, err
		}

		if rel != nil {
			if err := idx.bulkBuild(rel, attrByteOffset); err != nil {
				return nil, err
			}
		}
		return idx, nil
	}

	return openExistingIndex(bm, file, relationName, attrByteOffset, datatype)
}

// OpenIndex opens a previously created index file, validating its
// persisted meta-record against the relation/attribute/datatype the
// caller asked for.
func OpenIndex(bm *buffer.Manager, dir string, relationName string, attrByteOffset int32, datatype Datatype) (*Index, error) {
	path := dir + "/" + indexFileName(relationName, attrByteOffset)
	file, err := diskfile.Open(path)
	if err != nil {
		return nil, err
	}
	return openExistingIndex(bm, file, relationName, attrByteOffset, datatype)
}

func openExistingIndex(bm *buffer.Manager, file *diskfile.File, relationName string, attrByteOffset int32, datatype Datatype) (*Index, error) {
	metaPage, err := bm.Pin(file, MetaPN)
	if err != nil {
		return nil, err
	}
	m := unmarshalMeta(metaPage.Data)
	if err := metaPage.Release(); err != nil {
		return nil, err
	}
	if m.relationName != relationName || m.attrByteOffset != attrByteOffset || m.datatype != datatype {
		return nil, ErrIndexMetaMismatch
	}
	return &Index{
		bm:             bm,
		file:           file,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		rootPageNo:     m.rootPageNo,
	}, nil
}

// bulkBuild opens a sequential scan over rel and inserts every tuple's
// key (extracted at attrByteOffset) into the index.
func (idx *Index) bulkBuild(rel *diskfile.Relation, attrByteOffset int32) error {
	scan, err := rel.NewScan()
	if err != nil {
		return err
	}
	for {
		data, rid, err := scan.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		key := extractKey(data, attrByteOffset)
		if err := idx.InsertEntry(key, rid); err != nil {
			return err
		}
	}
}

func extractKey(data []byte, attrByteOffset int32) int32 {
	b := data[attrByteOffset : attrByteOffset+4]
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}

// InsertEntry inserts (key, rid) into the tree, splitting nodes on the
// way back up and splitting the root if necessary, per spec.md §4.2.
func (idx *Index) InsertEntry(key int32, rid recordid.RecordId) error {
	newPageNo, midVal, err := idx.insert(idx.rootPageNo, key, rid)
	if err != nil {
		return err
	}
	if newPageNo == 0 {
		return nil
	}

	newRootPage, err := idx.bm.PinNew(idx.file)
	if err != nil {
		return err
	}
	newRoot := asInternal(newRootPage.Data)
	initInternal(newRootPage.Data, 1)
	newRoot.setKeyAt(0, midVal)
	newRoot.setPNAt(0, idx.rootPageNo)
	newRoot.setPNAt(1, newPageNo)
	newRootPage.MarkDirty()
	if err := newRootPage.Release(); err != nil {
		return err
	}

	idx.rootPageNo = newRootPage.PageNo()
	return idx.writeMetaRoot()
}

func (idx *Index) writeMetaRoot() error {
	metaPage, err := idx.bm.Pin(idx.file, MetaPN)
	if err != nil {
		return err
	}
	m := unmarshalMeta(metaPage.Data)
	m.rootPageNo = idx.rootPageNo
	buf, err := marshalMeta(m)
	if err != nil {
		metaPage.Release()
		return err
	}
	copy(metaPage.Data, buf)
	metaPage.MarkDirty()
	return metaPage.Release()
}

// insert recursively descends to the leaf that should hold (key, rid),
// inserting and splitting on the way back up. It returns the page
// number of a newly allocated right sibling (0 if no split occurred)
// and, when a split did occur, the key to promote to the parent.
func (idx *Index) insert(pageNo int64, key int32, rid recordid.RecordId) (newPageNo int64, midVal int32, err error) {
	page, err := idx.bm.Pin(idx.file, pageNo)
	if err != nil {
		return 0, 0, err
	}

	if isLeafPage(page.Data) {
		return idx.insertIntoLeaf(page, key, rid)
	}

	node := asInternal(page.Data)
	childIndex := node.routeIndex(key)
	childPageNo := node.pnAt(childIndex)

	newChildPageNo, newChildMidVal, err := idx.insert(childPageNo, key, rid)
	if err != nil {
		page.Release()
		return 0, 0, err
	}

	if newChildPageNo == 0 {
		if err := page.Release(); err != nil {
			return 0, 0, err
		}
		return 0, 0, nil
	}

	insertAt := node.routeIndex(newChildMidVal)
	if !node.isFull() {
		node.insertKeyAndChild(insertAt, newChildMidVal, newChildPageNo)
		page.MarkDirty()
		if err := page.Release(); err != nil {
			return 0, 0, err
		}
		return 0, 0, nil
	}

	return idx.splitInternal(page, node, insertAt, newChildMidVal, newChildPageNo)
}

// insertIntoLeaf inserts (key, rid) into the leaf held by page,
// splitting it if it's already full.
func (idx *Index) insertIntoLeaf(page *buffer.PinnedPage, key int32, rid recordid.RecordId) (int64, int32, error) {
	leaf := asLeaf(page.Data)
	i := leaf.indexOfFirstGreater(key)

	if !leaf.isFull() {
		leaf.insertAt(i, key, rid)
		page.MarkDirty()
		if err := page.Release(); err != nil {
			return 0, 0, err
		}
		return 0, 0, nil
	}

	return idx.splitLeaf(page, leaf, i, key, rid)
}

// splitLeaf implements spec.md §4.2's leaf split arithmetic: mid =
// L/2, insertLeft := i < mid, splitPoint = mid + insertLeft.
func (idx *Index) splitLeaf(page *buffer.PinnedPage, leaf *leafNode, i int, key int32, rid recordid.RecordId) (int64, int32, error) {
	L := LeafCapacity()
	mid := L / 2
	insertLeft := i < mid
	splitPoint := mid
	if insertLeft {
		splitPoint++
	}

	newPage, err := idx.bm.PinNew(idx.file)
	if err != nil {
		page.Release()
		return 0, 0, err
	}
	initLeaf(newPage.Data)
	newLeaf := asLeaf(newPage.Data)

	for j := splitPoint; j < L; j++ {
		newLeaf.insertAt(j-splitPoint, leaf.keyAt(j), leaf.ridAt(j))
		leaf.setKeyAt(j, 0)
		leaf.setRidAt(j, recordid.RecordId{})
	}

	newLeaf.setRightSibling(leaf.rightSibling())
	leaf.setRightSibling(newPage.PageNo())

	if insertLeft {
		leaf.insertAt(i, key, rid)
	} else {
		newLeaf.insertAt(i-mid, key, rid)
	}

	midVal := newLeaf.keyAt(0)

	page.MarkDirty()
	newPage.MarkDirty()
	if err := page.Release(); err != nil {
		newPage.Release()
		return 0, 0, err
	}
	if err := newPage.Release(); err != nil {
		return 0, 0, err
	}
	return newPage.PageNo(), midVal, nil
}

// splitInternal implements spec.md §4.2's internal split arithmetic,
// including the move-key-up subcase.
func (idx *Index) splitInternal(page *buffer.PinnedPage, node *internalNode, insertAt int, newChildMidVal int32, newChildPageNo int64) (int64, int32, error) {
	N := InternalCapacity()
	mid := (N - 1) / 2
	insertLeft := insertAt < mid
	splitIndex := mid
	if insertLeft {
		splitIndex++
	}
	insertIndex := insertAt
	if !insertLeft {
		insertIndex = insertAt - mid
	}
	moveKeyUp := !insertLeft && insertIndex == 0

	var midVal int32
	if moveKeyUp {
		midVal = newChildMidVal
	} else {
		midVal = node.keyAt(splitIndex)
	}

	newPage, err := idx.bm.PinNew(idx.file)
	if err != nil {
		page.Release()
		return 0, 0, err
	}
	initInternal(newPage.Data, 1)
	newNode := asInternal(newPage.Data)

	// Move keys to the new node. In the move-key-up subcase the key at
	// splitIndex itself (not promoted from curr, since the promoted
	// value is the incoming key) moves along with the rest; otherwise
	// only [split+1..N) moves, since keyAt(splitIndex) is what's
	// promoted. Either way curr's key slots [splitIndex..N) are cleared:
	// splitIndex always leaves curr, whether promoted or relocated.
	keyStart := splitIndex + 1
	if moveKeyUp {
		keyStart = splitIndex
	}
	k := 0
	for j := keyStart; j < N; j++ {
		newNode.setKeyAt(k, node.keyAt(j))
		k++
	}
	for j := splitIndex; j < N; j++ {
		node.setKeyAt(j, 0)
	}

	// Move children [split+1..N] to the new node. In the move-key-up
	// subcase, local position 0 is reserved for the incoming child
	// pointer instead of curr's own pointer occupying it.
	destBase := 0
	if moveKeyUp {
		destBase = 1
	}
	k = 0
	for j := splitIndex + 1; j <= N; j++ {
		newNode.setPNAt(destBase+k, node.pnAt(j))
		node.setPNAt(j, 0)
		k++
	}

	if moveKeyUp {
		newNode.setPNAt(0, newChildPageNo)
	} else {
		target := node
		ins := insertIndex
		if !insertLeft {
			// newNode's slot 0 holds curr's key splitIndex+1, so the
			// incoming key lands one before insertAt-mid.
			target = newNode
			ins = insertIndex - 1
		}
		target.insertKeyAndChild(ins, newChildMidVal, newChildPageNo)
	}

	page.MarkDirty()
	newPage.MarkDirty()
	if err := page.Release(); err != nil {
		newPage.Release()
		return 0, 0, err
	}
	if err := newPage.Release(); err != nil {
		return 0, 0, err
	}
	return newPage.PageNo(), midVal, nil
}

// Find returns the RecordId of a single entry matching key, via the
// same descent a one-key inclusive scan would use. Supplemented from
// the original BadgerDB implementation's BTreeIndex::Find; spec.md
// does not name this operation but does not exclude it either.
func (idx *Index) Find(key int32) (recordid.RecordId, error) {
	if err := idx.StartScan(key, GTE, key, LTE); err != nil {
		if errors.Is(err, ErrNoSuchKeyFound) {
			return recordid.RecordId{}, ErrKeyNotFound
		}
		return recordid.RecordId{}, err
	}
	rid, err := idx.ScanNext()
	idx.EndScan()
	if err != nil {
		return recordid.RecordId{}, ErrKeyNotFound
	}
	return rid, nil
}

// Close terminates any live scan, flushes all dirty pages of the index
// file, and closes the file handle. Errors are logged, never
// propagated, per spec.md §4.2's destructor contract.
func (idx *Index) Close() {
	if idx.scanExecuting {
		if err := idx.EndScan(); err != nil {
			log.Printf("bptree: error ending scan on close: %v", err)
		}
	}
	if err := idx.bm.FlushFile(idx.file); err != nil {
		log.Printf("bptree: error flushing index file on close: %v", err)
	}
	if err := idx.file.Close(); err != nil {
		log.Printf("bptree: error closing index file: %v", err)
	}
}
