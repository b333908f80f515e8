package bptree

import (
	"fmt"
	"io"
)

// Print pretty-prints the whole tree starting at the root, in the
// teacher's indented-tree diagnostic style.
func (idx *Index) Print(w io.Writer) {
	idx.PrintPN(w, idx.rootPageNo)
}

// PrintPN pretty-prints the subtree rooted at pageNo.
func (idx *Index) PrintPN(w io.Writer, pageNo int64) {
	page, err := idx.bm.Pin(idx.file, pageNo)
	if err != nil {
		return
	}
	defer page.Release()
	idx.printNode(w, page.Data, pageNo, "", "")
}

func (idx *Index) printNode(w io.Writer, data []byte, pageNo int64, firstPrefix, prefix string) {
	if isLeafPage(data) {
		idx.printLeaf(w, asLeaf(data), pageNo, firstPrefix, prefix)
		return
	}
	idx.printInternal(w, asInternal(data), pageNo, firstPrefix, prefix)
}

func (idx *Index) printLeaf(w io.Writer, leaf *leafNode, pageNo int64, firstPrefix, prefix string) {
	k := leaf.occupancy()
	fmt.Fprintf(w, "%v[%v] Leaf size: %v\n", firstPrefix, pageNo, k)
	for i := 0; i < k; i++ {
		fmt.Fprintf(w, "%v |--> (%v, %v)\n", prefix, leaf.keyAt(i), leaf.ridAt(i))
	}
	if sib := leaf.rightSibling(); sib != 0 {
		fmt.Fprintf(w, "%v |--+\n", prefix)
		fmt.Fprintf(w, "%v    | right sibling @ [%v]\n", prefix, sib)
	}
}

func (idx *Index) printInternal(w io.Writer, node *internalNode, pageNo int64, firstPrefix, prefix string) {
	k := node.occupancy()
	fmt.Fprintf(w, "%v[%v] Internal size: %v\n", firstPrefix, pageNo, k+1)
	nextFirstPrefix := prefix + " |--> "
	nextPrefix := prefix + " |    "
	for i := 0; i <= k; i++ {
		fmt.Fprintf(w, "%v\n", nextPrefix)
		childPage, err := idx.bm.Pin(idx.file, node.pnAt(i))
		if err != nil {
			return
		}
		idx.printNode(w, childPage.Data, node.pnAt(i), nextFirstPrefix, nextPrefix)
		childPage.Release()
		if i != k {
			fmt.Fprintf(w, "\n%v[KEY] %v\n", nextPrefix, node.keyAt(i))
		}
	}
}
