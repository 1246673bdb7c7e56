package inspect

import (
	"fmt"

	"github.com/btree-query-bench/btnode/dbms/index/bptree"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PageKind classifies a page in an occupancy report.
type PageKind int

const (
	KindLeaf PageKind = iota
	KindInternal
	KindCorrupt
)

func (k PageKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindInternal:
		return "internal"
	default:
		return "corrupt"
	}
}

// PageStat describes one page.
type PageStat struct {
	ID   pager.PageID
	Kind PageKind
	Keys int
}

// FillPercent returns the share of MaxKeys the page uses.
func (s PageStat) FillPercent() float64 {
	return float64(s.Keys) / float64(bptree.MaxKeys) * 100
}

// PageSource is a store that can be enumerated.
type PageSource interface {
	bptree.PageReader
	PageCount() int
}

// Occupancy reads every page of s. Pages that do not decode as a node are
// reported as KindCorrupt; store failures abort the scan.
func Occupancy(s PageSource) ([]PageStat, error) {
	stats := make([]PageStat, 0, s.PageCount())
	for id := pager.PageID(0); int(id) < s.PageCount(); id++ {
		n, err := bptree.ReadNode(id, s)
		switch {
		case errors.Is(err, bptree.ErrCorruptPage):
			stats = append(stats, PageStat{ID: id, Kind: KindCorrupt})
			continue
		case err != nil:
			return nil, err
		}
		st := PageStat{ID: id, Kind: KindInternal, Keys: n.KeyCount()}
		if n.IsLeaf() {
			st.Kind = KindLeaf
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// Bucket counts pages whose fill falls in [Low, High).
type Bucket struct {
	Low, High int
	Leaves    int
	Internals int
}

func (b Bucket) Label() string {
	return fmt.Sprintf("%d-%d%%", b.Low, b.High)
}

// maxBuckets keeps every bucket at least one percent wide.
const maxBuckets = 100

// Summarize groups stats into n equal fill buckets, n clamped to
// [1, maxBuckets] with 10 used for n <= 0. Full pages land in the last
// bucket; corrupt pages are skipped.
func Summarize(stats []PageStat, n int) []Bucket {
	switch {
	case n <= 0:
		n = 10
	case n > maxBuckets:
		n = maxBuckets
	}
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Low = i * 100 / n
		buckets[i].High = (i + 1) * 100 / n
	}

	for _, s := range stats {
		if s.Kind == KindCorrupt {
			continue
		}
		i := int(s.FillPercent() * float64(n) / 100)
		if i >= n {
			i = n - 1
		}
		if s.Kind == KindLeaf {
			buckets[i].Leaves++
		} else {
			buckets[i].Internals++
		}
	}
	return buckets
}

// PlotOccupancy writes a bar chart of pages per fill bucket to path. The
// image format follows the file extension.
func PlotOccupancy(buckets []Bucket, path string) error {
	if len(buckets) == 0 {
		return errors.New("inspect: no buckets to plot")
	}
	p := plot.New()
	p.Title.Text = "Node occupancy"
	p.X.Label.Text = "fill"
	p.Y.Label.Text = "pages"

	leaves := make(plotter.Values, len(buckets))
	internals := make(plotter.Values, len(buckets))
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		leaves[i] = float64(b.Leaves)
		internals[i] = float64(b.Internals)
		labels[i] = b.Label()
	}

	w := vg.Points(12)
	leafBars, err := plotter.NewBarChart(leaves, w)
	if err != nil {
		return errors.Wrap(err, "inspect: leaf bars")
	}
	leafBars.Color = plotutil.Color(0)
	leafBars.Offset = -w / 2

	internalBars, err := plotter.NewBarChart(internals, w)
	if err != nil {
		return errors.Wrap(err, "inspect: internal bars")
	}
	internalBars.Color = plotutil.Color(1)
	internalBars.Offset = w / 2

	p.Add(leafBars, internalBars)
	p.Legend.Add("leaf", leafBars)
	p.Legend.Add("internal", internalBars)
	p.Legend.Top = true
	p.NominalX(labels...)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "inspect: save %s", path)
	}
	return nil
}
