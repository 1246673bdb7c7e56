package bptree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable rendering of the node to w.
func (n *LeafNode) Dump(w io.Writer) {
	fmt.Fprintf(w, "page %d (leaf) keys=%d\n", n.id, len(n.entries))
	for i, e := range n.entries {
		fmt.Fprintf(w, "  [%2d] key=%d rid=(%d,%d)\n", i, e.Key, e.RID.Page, e.RID.Slot)
	}
	fmt.Fprintf(w, "  next=%d\n", n.next)
}

func (n *LeafNode) String() string {
	var sb strings.Builder
	n.Dump(&sb)
	return sb.String()
}

// Dump writes a human-readable rendering of the node to w.
func (n *InternalNode) Dump(w io.Writer) {
	fmt.Fprintf(w, "page %d (internal) keys=%d\n", n.id, len(n.entries))
	for i, e := range n.entries {
		fmt.Fprintf(w, "  [%2d] child=%d key=%d\n", i, e.Child, e.Key)
	}
	fmt.Fprintf(w, "  last=%d\n", n.last)
}

func (n *InternalNode) String() string {
	var sb strings.Builder
	n.Dump(&sb)
	return sb.String()
}
