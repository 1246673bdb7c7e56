// Package lsm stores index pages in Pebble (CockroachDB's LSM storage
// engine), one key per page, behind the same pager.Store contract as the
// file pager.
package lsm

import (
	"encoding/binary"

	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	pagePrefix = 'p'
)

var metaKey = []byte("m/pagecount")

// Options configures a Store.
type Options struct {
	// FS overrides the filesystem; vfs.NewMem() keeps everything in memory.
	FS vfs.FS
	// Sync makes every page write durable before it returns.
	Sync bool
	// Logger receives Pebble's and the store's messages.
	Logger pebble.Logger
}

// Store is a pager.Store backed by Pebble.
type Store struct {
	db        *pebble.DB
	wo        *pebble.WriteOptions
	log       pebble.Logger
	pageCount int
}

var _ pager.Store = (*Store)(nil)

// Open opens (or creates) a Pebble page store in dir.
func Open(dir string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pebble.DefaultLogger
	}
	po := &pebble.Options{
		FS:     opts.FS,
		Logger: logger,
		// Pages are small and rewritten often; keep memtables modest.
		MemTableSize:                4 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}

	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: open %s", dir)
	}

	s := &Store{db: db, wo: pebble.NoSync, log: logger}
	if opts.Sync {
		s.wo = pebble.Sync
	}
	if err := s.loadPageCount(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Infof("lsm: opened page store %s with %d pages", dir, s.pageCount)
	return s, nil
}

// Allocate reserves a new zeroed page. The page and the new count are
// committed in one batch.
func (s *Store) Allocate() (pager.PageID, error) {
	if s.db == nil {
		return pager.InvalidPage, pager.ErrClosed
	}
	id := pager.PageID(s.pageCount)

	var blank pager.Page
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(encodePageKey(id), blank[:], nil); err != nil {
		return pager.InvalidPage, errors.Wrapf(err, "lsm: allocate page %d", id)
	}
	if err := b.Set(metaKey, encodeCount(s.pageCount+1), nil); err != nil {
		return pager.InvalidPage, errors.Wrapf(err, "lsm: allocate page %d", id)
	}
	if err := b.Commit(s.wo); err != nil {
		return pager.InvalidPage, errors.Wrapf(err, "lsm: allocate page %d", id)
	}
	s.pageCount++
	return id, nil
}

// Read returns a copy of page id.
func (s *Store) Read(id pager.PageID) (*pager.Page, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	val, closer, err := s.db.Get(encodePageKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: read page %d", id)
	}
	defer closer.Close()

	if len(val) != pager.PageSize {
		return nil, errors.Newf("lsm: page %d holds %d bytes, want %d", id, len(val), pager.PageSize)
	}
	// val is only valid until closer.Close(), so we copy it.
	pg := new(pager.Page)
	copy(pg[:], val)
	return pg, nil
}

// Write replaces page id.
func (s *Store) Write(id pager.PageID, pg *pager.Page) error {
	if err := s.check(id); err != nil {
		return err
	}
	if err := s.db.Set(encodePageKey(id), pg[:], s.wo); err != nil {
		return errors.Wrapf(err, "lsm: write page %d", id)
	}
	return nil
}

// PageCount returns the number of allocated pages.
func (s *Store) PageCount() int {
	return s.pageCount
}

// Flush forces the memtable to disk.
func (s *Store) Flush() error {
	if s.db == nil {
		return pager.ErrClosed
	}
	return errors.Wrap(s.db.Flush(), "lsm: flush")
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Wrap(err, "lsm: close")
}

func (s *Store) check(id pager.PageID) error {
	if s.db == nil {
		return pager.ErrClosed
	}
	if id < 0 || int(id) >= s.pageCount {
		return errors.Wrapf(pager.ErrPageOutOfRange, "page %d of %d", id, s.pageCount)
	}
	return nil
}

func (s *Store) loadPageCount() error {
	val, closer, err := s.db.Get(metaKey)
	if errors.Is(err, pebble.ErrNotFound) {
		s.pageCount = 0
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "lsm: read page count")
	}
	defer closer.Close()
	if len(val) != 8 {
		return errors.Newf("lsm: page count record holds %d bytes", len(val))
	}
	s.pageCount = int(binary.BigEndian.Uint64(val))
	return nil
}

// ─── Key encoding ─────────────────────────────────────────────────────────────

// encodePageKey encodes a page id big-endian behind the page prefix, so
// pages iterate in id order.
func encodePageKey(id pager.PageID) []byte {
	b := make([]byte, 5)
	b[0] = pagePrefix
	binary.BigEndian.PutUint32(b[1:], uint32(id))
	return b
}

func encodeCount(n int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}
