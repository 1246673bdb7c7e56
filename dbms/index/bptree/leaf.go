package bptree

import (
	"slices"
	"sort"

	"github.com/btree-query-bench/btnode/dbms/index/btpage"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
)

type leafEntry struct {
	Key Key
	RID RecordID
}

// LeafNode is an in-memory leaf page.
type LeafNode struct {
	id      PageID
	entries []leafEntry
	next    PageID
}

// NewLeafNode returns an empty leaf bound to page id with no next leaf.
func NewLeafNode(id PageID) *LeafNode {
	return &LeafNode{
		id:      id,
		entries: make([]leafEntry, 0, MaxKeys+1),
		next:    pager.InvalidPage,
	}
}

func (n *LeafNode) PageID() PageID { return n.id }
func (n *LeafNode) KeyCount() int  { return len(n.entries) }
func (n *LeafNode) IsLeaf() bool   { return true }

// NextSibling returns the page id of the next leaf in key order.
func (n *LeafNode) NextSibling() PageID { return n.next }

// SetNextSibling points the sibling chain at id. The target is not checked.
func (n *LeafNode) SetNextSibling(id PageID) { n.next = id }

// Read loads the node from page id of r. On error the node is unchanged.
func (n *LeafNode) Read(id PageID, r PageReader) error {
	p, err := readPage(id, r)
	if err != nil {
		return err
	}
	if err := n.Deserialize(p); err != nil {
		return errors.Wrapf(err, "leaf page %d", id)
	}
	n.id = id
	return nil
}

// Write stores the node into page id of w.
func (n *LeafNode) Write(id PageID, w PageWriter) error {
	var p pager.Page
	n.Serialize(&p)
	return writePage(id, &p, w)
}

// Serialize encodes the node into p, zeroing everything past the trailer.
func (n *LeafNode) Serialize(p *pager.Page) {
	btpage.Clear(p)
	btpage.SetHeader(p, btpage.FlagLeaf, len(n.entries))
	for i, e := range n.entries {
		off := btpage.LeafEntry(i)
		btpage.PutInt32(p, off, int32(e.RID.Page))
		btpage.PutInt32(p, off+btpage.IntSize, e.RID.Slot)
		btpage.PutInt32(p, off+2*btpage.IntSize, int32(e.Key))
	}
	btpage.PutInt32(p, btpage.LeafTrailer(len(n.entries)), int32(n.next))
}

// Deserialize replaces the node's entries and next pointer with those in p.
// The page id is kept.
func (n *LeafNode) Deserialize(p *pager.Page) error {
	if f := btpage.Flag(p); f != btpage.FlagLeaf {
		return errors.Wrapf(ErrCorruptPage, "leaf flag %d, want %d", f, btpage.FlagLeaf)
	}
	length, err := checkLength(p)
	if err != nil {
		return err
	}
	entries := make([]leafEntry, length, MaxKeys+1)
	for i := range entries {
		off := btpage.LeafEntry(i)
		entries[i] = leafEntry{
			Key: Key(btpage.Int32(p, off+2*btpage.IntSize)),
			RID: RecordID{
				Page: PageID(btpage.Int32(p, off)),
				Slot: btpage.Int32(p, off+btpage.IntSize),
			},
		}
	}
	n.entries = entries
	n.next = PageID(btpage.Int32(p, btpage.LeafTrailer(length)))
	return nil
}

// Insert adds (key, rid) in key order. A key equal to existing keys goes in
// front of them. Returns ErrNodeFull when the node holds MaxKeys entries.
func (n *LeafNode) Insert(key Key, rid RecordID) error {
	if len(n.entries) >= MaxKeys {
		return ErrNodeFull
	}
	n.insert(key, rid)
	return nil
}

// insert does the ordered insertion without a capacity check. Callers must
// leave room for one entry past MaxKeys at most.
func (n *LeafNode) insert(key Key, rid RecordID) {
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].Key >= key
	})
	n.entries = slices.Insert(n.entries, i, leafEntry{Key: key, RID: rid})
}

// InsertAndSplit inserts (key, rid) into a full node and moves the upper
// half of the entries into sibling, which must be empty. sibling is linked
// into the chain after n. The returned key is sibling's first key, to be
// inserted into the parent.
func (n *LeafNode) InsertAndSplit(key Key, rid RecordID, sibling *LeafNode) (Key, error) {
	if len(n.entries) != MaxKeys {
		return 0, errors.Wrapf(ErrInvalidPrecondition, "split of leaf %d holding %d keys", n.id, len(n.entries))
	}
	if sibling == nil || len(sibling.entries) != 0 {
		return 0, errors.Wrapf(ErrInvalidPrecondition, "leaf %d split into non-empty sibling", n.id)
	}

	n.insert(key, rid)
	sibling.entries = append(sibling.entries, n.entries[SplitIndex:]...)
	clear(n.entries[SplitIndex:])
	n.entries = n.entries[:SplitIndex]

	sibling.next = n.next
	n.next = sibling.id
	return sibling.entries[0].Key, nil
}

// Locate searches for key. If found it returns the index of the first entry
// holding key. Otherwise it returns ErrNoSuchRecord with the index just past
// the largest key smaller than key: 0 when key precedes every entry, and the
// last index when key follows every entry.
func (n *LeafNode) Locate(key Key) (int, error) {
	if len(n.entries) == 0 {
		return 0, ErrNoSuchRecord
	}
	i := sort.Search(len(n.entries), func(i int) bool {
		return n.entries[i].Key >= key
	})
	switch {
	case i == len(n.entries):
		return i - 1, ErrNoSuchRecord
	case n.entries[i].Key != key:
		return i, ErrNoSuchRecord
	}
	return i, nil
}

// ReadEntry returns the entry at index i.
func (n *LeafNode) ReadEntry(i int) (Key, RecordID, error) {
	if i < 0 || i >= len(n.entries) {
		return 0, RecordID{}, errors.Wrapf(ErrNoSuchRecord, "entry %d of %d", i, len(n.entries))
	}
	e := n.entries[i]
	return e.Key, e.RID, nil
}

// Keys returns a copy of the stored keys in order.
func (n *LeafNode) Keys() []Key {
	keys := make([]Key, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.Key
	}
	return keys
}
