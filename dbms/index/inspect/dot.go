package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

// ExportDOT renders the subtree under root as a Graphviz digraph. Leaves are
// drawn on one rank with their sibling chain as dashed edges.
func ExportDOT(w io.Writer, r bptree.PageReader, root pager.PageID) error {
	fmt.Fprintln(w, "digraph BTree {")
	// Layout and Global Styling
	fmt.Fprintln(w, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(w, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(w, "  edge [arrowsize=0.8, color=\"#444444\"];")

	nodeMap := make(map[pager.PageID]string)
	var leaves []*bptree.LeafNode

	var exportRec func(id pager.PageID, depth int) (string, error)
	exportRec = func(id pager.PageID, depth int) (string, error) {
		if name, ok := nodeMap[id]; ok {
			return name, nil
		}
		if depth > maxDepth {
			return "", errors.Wrapf(bptree.ErrCorruptPage, "tree deeper than %d levels at page %d", maxDepth, id)
		}
		name := fmt.Sprintf("node%d", len(nodeMap))
		nodeMap[id] = name

		n, err := bptree.ReadNode(id, r)
		if err != nil {
			return "", err
		}
		fill := float64(n.KeyCount()) / float64(bptree.MaxKeys) * 100

		switch n := n.(type) {
		case *bptree.LeafNode:
			// LEAF NODE: Green Header
			var sb strings.Builder
			fmt.Fprintf(&sb, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
				<TR><TD COLSPAN="2" BGCOLOR="#D5E8D4"><B>PAGE %d (LEAF)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>
				<TR><TD PORT="keys" BGCOLOR="#F5F5F5" ALIGN="LEFT">`, id, fill)
			for i := 0; i < n.KeyCount(); i++ {
				k, rid, _ := n.ReadEntry(i)
				fmt.Fprintf(&sb, "<B>%d</B> <FONT COLOR='#666666'>(%d,%d)</FONT><BR/>", k, rid.Page, rid.Slot)
			}
			nextLabel := "NULL"
			if n.NextSibling() != pager.InvalidPage {
				nextLabel = fmt.Sprintf("%d", n.NextSibling())
			}
			fmt.Fprintf(&sb, `</TD><TD PORT="next" BGCOLOR="#E1F5FE" VALIGN="MIDDLE">Next: %s</TD></TR></TABLE>>`, nextLabel)
			fmt.Fprintf(w, "  %s [label=%s];\n", name, sb.String())
			leaves = append(leaves, n)

		case *bptree.InternalNode:
			// INTERNAL NODE: Blue Header
			var sb strings.Builder
			fmt.Fprintf(&sb, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
				<TR><TD COLSPAN="%d" BGCOLOR="#DAE8FC"><B>PAGE %d (INTERNAL)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR><TR>`, n.KeyCount()*2+1, id, fill)
			for i := 0; i < n.KeyCount(); i++ {
				k, child, _ := n.ReadEntry(i)
				fmt.Fprintf(&sb, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD><TD BGCOLOR="#FFFFFF"><B>%d</B></TD>`, i, child, k)
			}
			fmt.Fprintf(&sb, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD></TR></TABLE>>`, n.KeyCount(), n.LastChild())
			fmt.Fprintf(w, "  %s [label=%s];\n", name, sb.String())

			// Draw edges to children
			for i, child := range n.Children() {
				childName, err := exportRec(child, depth+1)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(w, "  %s:f%d -> %s;\n", name, i, childName)
			}
		}
		return name, nil
	}

	if _, err := exportRec(root, 0); err != nil {
		return err
	}

	// Link leaves horizontally
	if len(leaves) > 1 {
		fmt.Fprintln(w, "  { rank=same;")
		for _, l := range leaves {
			fmt.Fprintf(w, "    %s;\n", nodeMap[l.PageID()])
		}
		fmt.Fprintln(w, "  }")

		for _, l := range leaves {
			if target, ok := nodeMap[l.NextSibling()]; ok {
				fmt.Fprintf(w, "  %s:next -> %s [style=dashed, color=\"#03A9F4\", constraint=false, tailclip=false];\n", nodeMap[l.PageID()], target)
			}
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}
