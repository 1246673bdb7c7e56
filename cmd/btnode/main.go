// Command btnode builds, inspects and benchmarks index pages written by the
// bptree node layer.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/btree-query-bench/btnode/dbms/lsm"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

const usage = `usage: btnode <command> [flags]

commands:
  demo   load ascending keys into a two-level index
  dump   print one page as text
  dot    export the tree as Graphviz DOT
  plot   chart page occupancy
  bench  time node operations and write CSV
`

var logger pebble.Logger = pebble.DefaultLogger

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Fatalf("btnode: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "demo":
		return runDemo(rest, out)
	case "dump":
		return runDump(rest, out)
	case "dot":
		return runDOT(rest, out)
	case "plot":
		return runPlot(rest, out)
	case "bench":
		return runBench(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	fmt.Fprint(out, usage)
	return errors.Newf("unknown command %q", cmd)
}

// storeFlags are shared by every command that opens a page store.
type storeFlags struct {
	backend string
	path    string
	cache   int
}

func (f *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.backend, "backend", "file", "page store: file or pebble")
	fs.StringVar(&f.path, "path", "index.pg", "page file (file) or directory (pebble)")
	fs.IntVar(&f.cache, "cache", 128, "file backend LRU cache size in pages")
}

func (f *storeFlags) open() (pager.Store, error) {
	switch f.backend {
	case "file":
		p, err := pager.Open(f.path, pager.Options{CacheSize: f.cache})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "pebble":
		s, err := lsm.Open(f.path, lsm.Options{Sync: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Newf("unknown backend %q", f.backend)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// writeOutput runs fn against path, or against out when path is empty. The
// file's close error is reported when fn succeeded.
func writeOutput(path string, out io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(out)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
