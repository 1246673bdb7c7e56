// Package bptree implements the node layer of a disk-resident B+ tree.
//
// A LeafNode holds sorted (key, record id) pairs and the page id of the next
// leaf. An InternalNode holds sorted (child, key) pairs plus a last child for
// keys at or above the largest stored key. Both convert to and from a single
// fixed-size pager.Page using the btpage layout.
//
// Walking from the root, deciding when to split, and propagating separators
// upward belong to the caller. Nodes never lock and never log.
package bptree

import (
	"io"

	"github.com/btree-query-bench/btnode/dbms/index/btpage"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

const (
	MaxKeys = btpage.MaxKeys

	// SplitIndex is ceil(MaxKeys/2): the first position moved out of a node
	// during a split.
	SplitIndex = (MaxKeys + 1) / 2
)

// Key is the index key type.
type Key int32

// PageID names a node's page. pager.InvalidPage means "no page".
type PageID = pager.PageID

// RecordID identifies a stored record. Nodes copy it and never interpret it.
type RecordID struct {
	Page PageID
	Slot int32
}

var (
	// ErrNodeFull is returned by Insert on a node holding MaxKeys entries.
	ErrNodeFull = errors.New("bptree: node full")
	// ErrNoSuchRecord is returned when a searched key or an entry index is
	// absent.
	ErrNoSuchRecord = errors.New("bptree: no such record")
	// ErrInvalidPrecondition marks misuse of a split operation.
	ErrInvalidPrecondition = errors.New("bptree: invalid precondition")
	// ErrBackingStore marks failures reported by the page store.
	ErrBackingStore = errors.New("bptree: backing store error")
	// ErrCorruptPage is returned when a page does not hold a valid node.
	ErrCorruptPage = errors.New("bptree: corrupt page")
)

// PageReader reads whole pages.
type PageReader interface {
	Read(id PageID) (*pager.Page, error)
}

// PageWriter writes whole pages.
type PageWriter interface {
	Write(id PageID, pg *pager.Page) error
}

// Node is the contract shared by leaf and internal nodes.
type Node interface {
	PageID() PageID
	KeyCount() int
	IsLeaf() bool
	Serialize(p *pager.Page)
	Deserialize(p *pager.Page) error
	Write(id PageID, w PageWriter) error
	Dump(w io.Writer)
}

var (
	_ Node = (*LeafNode)(nil)
	_ Node = (*InternalNode)(nil)
)

// PeekIsLeaf reports whether p holds a leaf node.
func PeekIsLeaf(p *pager.Page) (bool, error) {
	switch f := btpage.Flag(p); f {
	case btpage.FlagLeaf:
		return true, nil
	case btpage.FlagInternal:
		return false, nil
	default:
		return false, errors.Wrapf(ErrCorruptPage, "leaf flag %d", f)
	}
}

// ReadNode reads page id and returns the leaf or internal node it holds.
func ReadNode(id PageID, r PageReader) (Node, error) {
	p, err := readPage(id, r)
	if err != nil {
		return nil, err
	}
	leaf, err := PeekIsLeaf(p)
	if err != nil {
		return nil, errors.Wrapf(err, "page %d", id)
	}
	var n Node
	if leaf {
		n = NewLeafNode(id)
	} else {
		n = NewInternalNode(id)
	}
	if err := n.Deserialize(p); err != nil {
		return nil, errors.Wrapf(err, "page %d", id)
	}
	return n, nil
}

func readPage(id PageID, r PageReader) (*pager.Page, error) {
	p, err := r.Read(id)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, ErrBackingStore), "read page %d", id)
	}
	return p, nil
}

func writePage(id PageID, p *pager.Page, w PageWriter) error {
	if err := w.Write(id, p); err != nil {
		return errors.Wrapf(errors.Mark(err, ErrBackingStore), "write page %d", id)
	}
	return nil
}

// checkLength validates the entry count stored in a page header.
func checkLength(p *pager.Page) (int, error) {
	n := btpage.Length(p)
	if n < 0 || n > MaxKeys {
		return 0, errors.Wrapf(ErrCorruptPage, "length %d outside [0, %d]", n, MaxKeys)
	}
	return int(n), nil
}
