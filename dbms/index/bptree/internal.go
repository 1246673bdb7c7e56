package bptree

import (
	"slices"
	"sort"

	"github.com/btree-query-bench/btnode/dbms/index/btpage"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

// internalEntry pairs a key with the child holding keys below it.
type internalEntry struct {
	Child PageID
	Key   Key
}

// InternalNode is an in-memory internal page. Entry i's child covers keys
// below entry i's key and at or above entry i-1's key; last covers keys at
// or above the largest key.
type InternalNode struct {
	id      PageID
	entries []internalEntry
	last    PageID
}

// NewInternalNode returns an empty internal node bound to page id.
func NewInternalNode(id PageID) *InternalNode {
	return &InternalNode{
		id:      id,
		entries: make([]internalEntry, 0, MaxKeys+1),
		last:    pager.InvalidPage,
	}
}

func (n *InternalNode) PageID() PageID { return n.id }
func (n *InternalNode) KeyCount() int  { return len(n.entries) }
func (n *InternalNode) IsLeaf() bool   { return false }

func (n *InternalNode) LastChild() PageID      { return n.last }
func (n *InternalNode) SetLastChild(id PageID) { n.last = id }

// Read loads the node from page id of r. On error the node is unchanged.
func (n *InternalNode) Read(id PageID, r PageReader) error {
	p, err := readPage(id, r)
	if err != nil {
		return err
	}
	if err := n.Deserialize(p); err != nil {
		return errors.Wrapf(err, "internal page %d", id)
	}
	n.id = id
	return nil
}

// Write stores the node into page id of w.
func (n *InternalNode) Write(id PageID, w PageWriter) error {
	var p pager.Page
	n.Serialize(&p)
	return writePage(id, &p, w)
}

// Serialize encodes the node into p, zeroing everything past the trailer.
func (n *InternalNode) Serialize(p *pager.Page) {
	btpage.Clear(p)
	btpage.SetHeader(p, btpage.FlagInternal, len(n.entries))
	for i, e := range n.entries {
		off := btpage.InternalEntry(i)
		btpage.PutInt32(p, off, int32(e.Child))
		btpage.PutInt32(p, off+btpage.IntSize, int32(e.Key))
	}
	btpage.PutInt32(p, btpage.InternalTrailer(len(n.entries)), int32(n.last))
}

// Deserialize replaces the node's entries and last child with those in p.
func (n *InternalNode) Deserialize(p *pager.Page) error {
	if f := btpage.Flag(p); f != btpage.FlagInternal {
		return errors.Wrapf(ErrCorruptPage, "flag %d, want %d", f, btpage.FlagInternal)
	}
	length, err := checkLength(p)
	if err != nil {
		return err
	}
	entries := make([]internalEntry, length, MaxKeys+1)
	for i := range entries {
		off := btpage.InternalEntry(i)
		entries[i] = internalEntry{
			Child: PageID(btpage.Int32(p, off)),
			Key:   Key(btpage.Int32(p, off+btpage.IntSize)),
		}
	}
	n.entries = entries
	n.last = PageID(btpage.Int32(p, btpage.InternalTrailer(length)))
	return nil
}

// InitializeRoot resets the node to the single separator key between left
// and right.
func (n *InternalNode) InitializeRoot(left PageID, key Key, right PageID) {
	clear(n.entries)
	n.entries = append(n.entries[:0], internalEntry{Child: left, Key: key})
	n.last = right
}

// Insert adds key with child as the subtree right of key. Returns
// ErrNodeFull when the node holds MaxKeys entries.
func (n *InternalNode) Insert(key Key, child PageID) error {
	if len(n.entries) >= MaxKeys {
		return ErrNodeFull
	}
	n.insert(key, child)
	return nil
}

// insert does the ordered insertion without a capacity check.
func (n *InternalNode) insert(key Key, child PageID) {
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].Key >= key
	})
	if i == len(n.entries) {
		// new largest key: the old last child now sits left of it
		n.entries = append(n.entries, internalEntry{Child: n.last, Key: key})
		n.last = child
		return
	}
	// the child previously left of entries[i].Key stays left of key, and
	// child takes over the range between key and entries[i].Key
	n.entries = slices.Insert(n.entries, i, internalEntry{Child: n.entries[i].Child, Key: key})
	n.entries[i+1].Child = child
}

// InsertAndSplit inserts (key, child) into a full node and splits it with
// sibling, which must be empty. The entry at SplitIndex is removed: its key
// is returned for insertion into the parent and its child becomes n's last
// child. Entries after it move to sibling, which inherits n's last child.
func (n *InternalNode) InsertAndSplit(key Key, child PageID, sibling *InternalNode) (Key, error) {
	if len(n.entries) != MaxKeys {
		return 0, errors.Wrapf(ErrInvalidPrecondition, "split of internal node %d holding %d keys", n.id, len(n.entries))
	}
	if sibling == nil || len(sibling.entries) != 0 {
		return 0, errors.Wrapf(ErrInvalidPrecondition, "internal node %d split into non-empty sibling", n.id)
	}

	n.insert(key, child)
	mid := n.entries[SplitIndex]
	sibling.entries = append(sibling.entries, n.entries[SplitIndex+1:]...)
	sibling.last = n.last

	clear(n.entries[SplitIndex:])
	n.entries = n.entries[:SplitIndex]
	n.last = mid.Child
	return mid.Key, nil
}

// LocateChildPtr returns the child of the first key greater than key, or
// the last child when there is none. An exact match routes right of the
// matching key.
func (n *InternalNode) LocateChildPtr(key Key) PageID {
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].Key > key
	})
	return n.childAt(i)
}

// LocateLeftmostChildPtr returns the child of the first key greater than or
// equal to key, or the last child when there is none. When equal keys span
// several children it lands on the leftmost one, so a forward scan along
// the leaf chain sees every occurrence.
func (n *InternalNode) LocateLeftmostChildPtr(key Key) PageID {
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].Key >= key
	})
	return n.childAt(i)
}

func (n *InternalNode) childAt(i int) PageID {
	if i == len(n.entries) {
		return n.last
	}
	return n.entries[i].Child
}

// ReadEntry returns the key and left child of entry i.
func (n *InternalNode) ReadEntry(i int) (Key, PageID, error) {
	if i < 0 || i >= len(n.entries) {
		return 0, pager.InvalidPage, errors.Wrapf(ErrNoSuchRecord, "entry %d of %d", i, len(n.entries))
	}
	e := n.entries[i]
	return e.Key, e.Child, nil
}

// Children returns every child pointer in order, last child included.
func (n *InternalNode) Children() []PageID {
	out := make([]PageID, 0, len(n.entries)+1)
	for _, e := range n.entries {
		out = append(out, e.Child)
	}
	return append(out, n.last)
}

// Keys returns a copy of the stored keys in order.
func (n *InternalNode) Keys() []Key {
	keys := make([]Key, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.Key
	}
	return keys
}
