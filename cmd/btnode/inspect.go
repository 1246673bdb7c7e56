package main

import (
	"fmt"
	"io"

	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/index/inspect"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

func runDump(args []string, out io.Writer) error {
	fs := newFlagSet("dump", out)
	var sf storeFlags
	sf.register(fs)
	page := fs.Int("page", -1, "page to dump (default: the root)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	id := pager.PageID(*page)
	if id == pager.InvalidPage {
		m, err := readMeta(s)
		if err != nil {
			return err
		}
		id = m.root
	}
	n, err := bptree.ReadNode(id, s)
	if err != nil {
		return err
	}
	n.Dump(out)
	return nil
}

func runDOT(args []string, out io.Writer) error {
	fs := newFlagSet("dot", out)
	var sf storeFlags
	sf.register(fs)
	root := fs.Int("root", -1, "subtree root (default: the index root)")
	dst := fs.String("out", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	id := pager.PageID(*root)
	if id == pager.InvalidPage {
		m, err := readMeta(s)
		if err != nil {
			return err
		}
		id = m.root
	}

	err = writeOutput(*dst, out, func(w io.Writer) error {
		return inspect.ExportDOT(w, s, id)
	})
	if err != nil {
		return errors.Wrap(err, "dot")
	}
	if *dst != "" {
		logger.Infof("dot: wrote %s (render with: dot -Tpng %s -o tree.png)", *dst, *dst)
	}
	return nil
}

func runPlot(args []string, out io.Writer) error {
	fs := newFlagSet("plot", out)
	var sf storeFlags
	sf.register(fs)
	dst := fs.String("out", "occupancy.png", "chart file; format follows the extension")
	buckets := fs.Int("buckets", 10, "number of fill buckets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := inspect.Occupancy(s)
	if err != nil {
		return err
	}
	// page 0 of a demo index is the meta page, not a node
	if _, merr := readMeta(s); merr == nil && len(stats) > 0 {
		stats = stats[1:]
	}

	summary := inspect.Summarize(stats, *buckets)
	for _, b := range summary {
		fmt.Fprintf(out, "%-8s leaves=%d internals=%d\n", b.Label(), b.Leaves, b.Internals)
	}
	if err := inspect.PlotOccupancy(summary, *dst); err != nil {
		return err
	}
	logger.Infof("plot: wrote %s for %d pages", *dst, len(stats))
	return nil
}
