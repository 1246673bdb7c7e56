package main

import (
	"github.com/btree-query-bench/btnode/dbms/index/btpage"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

// Page 0 of a demo index holds the root page id and the tree height.
const (
	metaPage      = pager.PageID(0)
	metaOffRoot   = 0
	metaOffHeight = 4
)

type meta struct {
	root   pager.PageID
	height int32
}

func writeMeta(s pager.Store, m meta) error {
	var p pager.Page
	btpage.PutInt32(&p, metaOffRoot, int32(m.root))
	btpage.PutInt32(&p, metaOffHeight, m.height)
	return errors.Wrap(s.Write(metaPage, &p), "write meta page")
}

func readMeta(s pager.Store) (meta, error) {
	p, err := s.Read(metaPage)
	if err != nil {
		return meta{}, errors.Wrap(err, "read meta page")
	}
	m := meta{
		root:   pager.PageID(btpage.Int32(p, metaOffRoot)),
		height: btpage.Int32(p, metaOffHeight),
	}
	if m.height <= 0 || m.root <= metaPage || int(m.root) >= s.PageCount() {
		return meta{}, errors.Newf("meta page holds root %d height %d: not a demo index", m.root, m.height)
	}
	return m, nil
}
