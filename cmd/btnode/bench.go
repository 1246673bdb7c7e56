package main

import (
	"encoding/csv"
	"io"
	"math/rand"
	"runtime"
	"strconv"
	"time"

	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

// BenchResult is one CSV row.
type BenchResult struct {
	Operation string
	Rounds    int
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem forces a GC so the numbers reflect live data.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

func Record(w *csv.Writer, res BenchResult) error {
	return w.Write([]string{
		res.Operation,
		strconv.Itoa(res.Rounds),
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}

// benchCase times one node operation; fn runs a single round.
type benchCase struct {
	name string
	fn   func(rng *rand.Rand)
}

func nodeBenchCases() []benchCase {
	var page pager.Page
	full := bptree.NewLeafNode(1)
	for k := bptree.Key(0); k < bptree.MaxKeys; k++ {
		_ = full.Insert(k*2, bptree.RecordID{Page: 1, Slot: int32(k)})
	}
	full.Serialize(&page)

	fullInternal := bptree.NewInternalNode(2)
	fullInternal.InitializeRoot(100, 0, 101)
	for k := bptree.Key(1); k < bptree.MaxKeys; k++ {
		_ = fullInternal.Insert(k*2, pager.PageID(101+k))
	}
	var internalPage pager.Page
	fullInternal.Serialize(&internalPage)

	return []benchCase{
		{"LeafFillRandom", func(rng *rand.Rand) {
			n := bptree.NewLeafNode(1)
			for i := 0; i < bptree.MaxKeys; i++ {
				_ = n.Insert(bptree.Key(rng.Int31()), bptree.RecordID{})
			}
		}},
		{"LeafSplit", func(rng *rand.Rand) {
			n := bptree.NewLeafNode(1)
			_ = n.Deserialize(&page)
			_, _ = n.InsertAndSplit(bptree.Key(rng.Intn(2*bptree.MaxKeys)), bptree.RecordID{}, bptree.NewLeafNode(3))
		}},
		{"InternalSplit", func(rng *rand.Rand) {
			n := bptree.NewInternalNode(2)
			_ = n.Deserialize(&internalPage)
			_, _ = n.InsertAndSplit(bptree.Key(rng.Intn(2*bptree.MaxKeys)), 999, bptree.NewInternalNode(4))
		}},
		{"LeafSerialize", func(*rand.Rand) {
			var p pager.Page
			full.Serialize(&p)
		}},
		{"LeafDeserialize", func(*rand.Rand) {
			n := bptree.NewLeafNode(1)
			_ = n.Deserialize(&page)
		}},
		{"LeafLocate", func(rng *rand.Rand) {
			_, _ = full.Locate(bptree.Key(rng.Intn(2 * bptree.MaxKeys)))
		}},
		{"InternalRoute", func(rng *rand.Rand) {
			_ = fullInternal.LocateChildPtr(bptree.Key(rng.Intn(2 * bptree.MaxKeys)))
		}},
	}
}

func runBench(args []string, out io.Writer) error {
	fs := newFlagSet("bench", out)
	rounds := fs.Int("n", 100000, "rounds per operation")
	dst := fs.String("out", "", "CSV file (default: stdout)")
	seed := fs.Int64("seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rounds <= 0 {
		return errors.New("bench: -n must be positive")
	}

	err := writeOutput(*dst, out, func(w io.Writer) error {
		return benchmark(w, nodeBenchCases(), *rounds, *seed)
	})
	return errors.Wrap(err, "bench")
}

func benchmark(w io.Writer, cases []benchCase, rounds int, seed int64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Operation", "Rounds", "LatencyNs", "MemMB", "HeapObjects"}); err != nil {
		return err
	}
	for _, c := range cases {
		rng := rand.New(rand.NewSource(seed))
		start := time.Now()
		for i := 0; i < rounds; i++ {
			c.fn(rng)
		}
		latency := time.Since(start).Nanoseconds() / int64(rounds)

		stats := GetDetailedMem()
		if err := Record(cw, BenchResult{
			Operation: c.name,
			Rounds:    rounds,
			LatencyNs: latency,
			MemMB:     stats.AllocMB,
			Objects:   stats.HeapObjects,
		}); err != nil {
			return err
		}
		logger.Infof("bench: %s %d ns/op", c.name, latency)
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
