// Package inspect provides read-only tooling over pages written by the
// bptree node layer: ordered scans along the leaf chain, Graphviz export and
// page occupancy reports.
package inspect

import (
	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

// maxDepth bounds a root-to-leaf descent; deeper paths mean a pointer cycle.
const maxDepth = 32

// FindLeaf descends from root to the leaf where key's leftmost occurrence
// would be.
func FindLeaf(r bptree.PageReader, root pager.PageID, key bptree.Key) (*bptree.LeafNode, error) {
	curr := root
	for depth := 0; depth < maxDepth; depth++ {
		if curr == pager.InvalidPage {
			return nil, errors.Wrapf(bptree.ErrCorruptPage, "descent for key %d hit an invalid child", key)
		}
		n, err := bptree.ReadNode(curr, r)
		if err != nil {
			return nil, err
		}
		switch n := n.(type) {
		case *bptree.LeafNode:
			return n, nil
		case *bptree.InternalNode:
			curr = n.LocateLeftmostChildPtr(key)
		}
	}
	return nil, errors.Wrapf(bptree.ErrCorruptPage, "tree under page %d deeper than %d levels", root, maxDepth)
}

// Cursor walks leaf entries in key order, following the sibling chain.
type Cursor struct {
	r    bptree.PageReader
	leaf *bptree.LeafNode
	idx  int
	end  bptree.Key
	hops int
	k    bptree.Key
	rid  bptree.RecordID
	err  error
}

// Seek returns a cursor over every entry with start <= key <= end.
func Seek(r bptree.PageReader, root pager.PageID, start, end bptree.Key) (*Cursor, error) {
	leaf, err := FindLeaf(r, root, start)
	if err != nil {
		return nil, err
	}
	idx, err := leaf.Locate(start)
	if errors.Is(err, bptree.ErrNoSuchRecord) {
		// Locate reports the last index when start follows every key
		if k, _, rerr := leaf.ReadEntry(idx); rerr == nil && k < start {
			idx++
		}
	}
	return &Cursor{r: r, leaf: leaf, idx: idx, end: end}, nil
}

// Next advances to the next entry and reports whether there is one.
func (c *Cursor) Next() bool {
	for c.leaf != nil {
		if k, rid, err := c.leaf.ReadEntry(c.idx); err == nil {
			if k > c.end {
				c.leaf = nil
				return false
			}
			c.k, c.rid = k, rid
			c.idx++
			return true
		}

		next := c.leaf.NextSibling()
		if next == pager.InvalidPage {
			c.leaf = nil
			return false
		}
		if c.hops++; c.hops > 1<<20 {
			c.err = errors.Wrapf(bptree.ErrCorruptPage, "leaf chain does not terminate at page %d", next)
			c.leaf = nil
			return false
		}
		leaf := bptree.NewLeafNode(next)
		if err := leaf.Read(next, c.r); err != nil {
			c.err = err
			c.leaf = nil
			return false
		}
		c.leaf, c.idx = leaf, 0
	}
	return false
}

func (c *Cursor) Key() bptree.Key           { return c.k }
func (c *Cursor) RecordID() bptree.RecordID { return c.rid }
func (c *Cursor) Err() error                { return c.err }

// Close releases the cursor.
func (c *Cursor) Close() error {
	c.leaf = nil
	return nil
}
