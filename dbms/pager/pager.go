// Package pager implements the fixed-size page store that index nodes are
// persisted to. Pages are addressed by PageID and always read and written
// whole.
package pager

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

const (
	PageSize    = 1024
	InvalidPage = PageID(-1)

	defaultCacheSize = 64
)

// PageID names a page in a store. InvalidPage means "no page".
type PageID int32

// Page is a raw block read from or written to a store.
type Page [PageSize]byte

var (
	ErrPageOutOfRange = errors.New("pager: page id out of range")
	ErrClosed         = errors.New("pager: store is closed")
)

// Store is the block I/O contract shared by the file pager and the Pebble
// backed store.
type Store interface {
	Allocate() (PageID, error)
	Read(id PageID) (*Page, error)
	Write(id PageID, pg *Page) error
	PageCount() int
	Close() error
}

// Options configures a Pager.
type Options struct {
	// CacheSize is the number of pages held in the LRU cache. Zero selects
	// a default; a negative value disables caching.
	CacheSize int
}

func (o Options) cacheSize() int {
	switch {
	case o.CacheSize == 0:
		return defaultCacheSize
	case o.CacheSize < 0:
		return 0
	}
	return o.CacheSize
}

// Pager manages a file of fixed-size pages and caches recently used ones.
type Pager struct {
	file      *os.File
	cache     *pageCache
	pageCount int
}

var _ Store = (*Pager)(nil)

// Open opens (or creates) a pager backed by the given file.
func Open(path string, opts Options) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "pager: open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "pager: stat %s", path)
	}
	if info.Size()%PageSize != 0 {
		_ = f.Close()
		return nil, errors.Newf("pager: %s size %d is not a multiple of %d", path, info.Size(), PageSize)
	}

	return &Pager{
		file:      f,
		cache:     newPageCache(opts.cacheSize()),
		pageCount: int(info.Size() / PageSize),
	}, nil
}

// Allocate reserves a new zeroed page at the end of the file and returns
// its id.
func (p *Pager) Allocate() (PageID, error) {
	if p.file == nil {
		return InvalidPage, ErrClosed
	}
	id := PageID(p.pageCount)

	var blank Page
	if err := p.writePageToDisk(id, &blank); err != nil {
		return InvalidPage, err
	}
	p.pageCount++
	p.cache.put(id, &blank)
	return id, nil
}

// Read returns a copy of the page with the given id, from cache or disk.
func (p *Pager) Read(id PageID) (*Page, error) {
	if err := p.check(id); err != nil {
		return nil, err
	}
	if pg, ok := p.cache.get(id); ok {
		return pg, nil
	}
	pg, err := p.readPageFromDisk(id)
	if err != nil {
		return nil, err
	}
	p.cache.put(id, pg)
	return pg, nil
}

// Write writes a page back to disk and updates the cache.
func (p *Pager) Write(id PageID, pg *Page) error {
	if err := p.check(id); err != nil {
		return err
	}
	if err := p.writePageToDisk(id, pg); err != nil {
		return err
	}
	p.cache.put(id, pg)
	return nil
}

// Sync flushes written pages to stable storage.
func (p *Pager) Sync() error {
	if p.file == nil {
		return ErrClosed
	}
	return errors.Wrap(p.file.Sync(), "pager: sync")
}

// Close flushes and closes the underlying file.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return errors.Wrap(err, "pager: close")
}

// PageCount returns the total number of allocated pages.
func (p *Pager) PageCount() int {
	return p.pageCount
}

// --- internal helpers ---

func (p *Pager) check(id PageID) error {
	if p.file == nil {
		return ErrClosed
	}
	if id < 0 || int(id) >= p.pageCount {
		return errors.Wrapf(ErrPageOutOfRange, "page %d of %d", id, p.pageCount)
	}
	return nil
}

func (p *Pager) offset(id PageID) int64 {
	return int64(id) * PageSize
}

func (p *Pager) readPageFromDisk(id PageID) (*Page, error) {
	pg := new(Page)
	n, err := p.file.ReadAt(pg[:], p.offset(id))
	if err != nil && !(errors.Is(err, io.EOF) && n == PageSize) {
		return nil, errors.Wrapf(err, "pager: read page %d", id)
	}
	return pg, nil
}

func (p *Pager) writePageToDisk(id PageID, pg *Page) error {
	if _, err := p.file.WriteAt(pg[:], p.offset(id)); err != nil {
		return errors.Wrapf(err, "pager: write page %d", id)
	}
	return nil
}
