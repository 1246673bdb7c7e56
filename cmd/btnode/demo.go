package main

import (
	"fmt"
	"io"

	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

func runDemo(args []string, out io.Writer) error {
	fs := newFlagSet("demo", out)
	var sf storeFlags
	sf.register(fs)
	n := fs.Int("n", 1000, "number of keys to load")
	step := fs.Int("step", 1, "distance between consecutive keys")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 || *step <= 0 {
		return errors.New("demo: -n and -step must be positive")
	}

	s, err := sf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := loadAscending(s, *n, int32(*step))
	if err != nil {
		return err
	}
	logger.Infof("demo: loaded %d keys into %d pages, root %d, height %d", *n, s.PageCount(), m.root, m.height)
	fmt.Fprintf(out, "root=%d height=%d pages=%d\n", m.root, m.height, s.PageCount())
	return nil
}

// loadAscending writes keys step, 2*step, ... into a fresh store using the
// node primitives only. Ascending keys always land in the rightmost leaf, so
// the loader keeps that leaf and the single root in memory. It fails once
// the root itself would have to split.
func loadAscending(s pager.Store, n int, step int32) (meta, error) {
	if s.PageCount() != 0 {
		return meta{}, errors.Newf("demo: store already holds %d pages", s.PageCount())
	}
	if _, err := s.Allocate(); err != nil { // meta page
		return meta{}, err
	}

	leafID, err := s.Allocate()
	if err != nil {
		return meta{}, err
	}
	leaf := bptree.NewLeafNode(leafID)
	var root *bptree.InternalNode

	for i := 1; i <= n; i++ {
		key := bptree.Key(int32(i) * step)
		rid := bptree.RecordID{Page: pager.PageID(i / 100), Slot: int32(i % 100)}

		err := leaf.Insert(key, rid)
		if err == nil {
			continue
		}
		if !errors.Is(err, bptree.ErrNodeFull) {
			return meta{}, err
		}

		sibID, err := s.Allocate()
		if err != nil {
			return meta{}, err
		}
		sib := bptree.NewLeafNode(sibID)
		sep, err := leaf.InsertAndSplit(key, rid, sib)
		if err != nil {
			return meta{}, err
		}
		if err := leaf.Write(leaf.PageID(), s); err != nil {
			return meta{}, err
		}

		if root == nil {
			rootID, err := s.Allocate()
			if err != nil {
				return meta{}, err
			}
			root = bptree.NewInternalNode(rootID)
			root.InitializeRoot(leaf.PageID(), sep, sib.PageID())
		} else if err := root.Insert(sep, sib.PageID()); err != nil {
			return meta{}, errors.Wrapf(err, "demo: root full after %d keys", i)
		}
		leaf = sib
	}

	if err := leaf.Write(leaf.PageID(), s); err != nil {
		return meta{}, err
	}
	m := meta{root: leaf.PageID(), height: 1}
	if root != nil {
		if err := root.Write(root.PageID(), s); err != nil {
			return meta{}, err
		}
		m = meta{root: root.PageID(), height: 2}
	}
	return m, writeMeta(s, m)
}
