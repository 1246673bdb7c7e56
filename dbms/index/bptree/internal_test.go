package bptree

import (
	"slices"
	"testing"

	"github.com/btree-query-bench/btnode/dbms/index/btpage"
	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/kr/pretty"
)

// childOf is the child page paired with key k in the test fixtures.
func childOf(k Key) PageID { return PageID(1000 + k) }

func fullInternal(id, last PageID) *InternalNode {
	n := NewInternalNode(id)
	n.SetLastChild(last)
	for k := Key(1); k <= MaxKeys; k++ {
		n.entries = append(n.entries, internalEntry{Child: childOf(k), Key: k})
	}
	return n
}

func TestInternalInsertChildPlacement(t *testing.T) {
	n := NewInternalNode(0)
	n.InitializeRoot(100, 50, 101)

	// child 100 split at 30: its right half is 102
	if err := n.Insert(30, 102); err != nil {
		t.Fatal(err)
	}
	// child 101 split at 70: its right half is 103
	if err := n.Insert(70, 103); err != nil {
		t.Fatal(err)
	}
	// child 102 split at 40
	if err := n.Insert(40, 104); err != nil {
		t.Fatal(err)
	}

	if diff := pretty.Diff([]Key{30, 40, 50, 70}, n.Keys()); len(diff) > 0 {
		t.Errorf("keys: %v", diff)
	}
	if diff := pretty.Diff([]PageID{100, 102, 104, 101, 103}, n.Children()); len(diff) > 0 {
		t.Errorf("children: %v", diff)
	}
}

func TestInternalInsertKeepsOrder(t *testing.T) {
	n := NewInternalNode(0)
	n.SetLastChild(1)
	keys := []Key{9, 3, 12, 3, -4, 100, 7}
	for i, k := range keys {
		if err := n.Insert(k, PageID(10+i)); err != nil {
			t.Fatalf("Insert(%d) failed: %v", k, err)
		}
		if n.KeyCount() != i+1 {
			t.Errorf("KeyCount() = %d after %d inserts", n.KeyCount(), i+1)
		}
		if !slices.IsSorted(n.Keys()) {
			t.Fatalf("keys out of order after Insert(%d): %v", k, n.Keys())
		}
	}
	if len(n.Children()) != len(keys)+1 {
		t.Errorf("%d children for %d keys", len(n.Children()), len(keys))
	}
}

func TestInternalInsertFull(t *testing.T) {
	n := fullInternal(0, 2000)
	before := n.Children()

	if err := n.Insert(200, 5); !errors.Is(err, ErrNodeFull) {
		t.Fatalf("Insert on full node error = %v, want ErrNodeFull", err)
	}
	if diff := pretty.Diff(before, n.Children()); len(diff) > 0 {
		t.Errorf("full node changed by failed Insert: %v", diff)
	}
}

func TestInitializeRootResets(t *testing.T) {
	n := fullInternal(0, 2000)
	n.InitializeRoot(7, 33, 8)

	if n.KeyCount() != 1 {
		t.Fatalf("KeyCount() = %d, want 1", n.KeyCount())
	}
	k, child, err := n.ReadEntry(0)
	if err != nil || k != 33 || child != 7 || n.LastChild() != 8 {
		t.Errorf("root = (%d, %d, last %d), err %v; want (33, 7, last 8)", k, child, n.LastChild(), err)
	}
}

// =============================================================================
// InsertAndSplit
// =============================================================================

func TestInternalSplitAppend(t *testing.T) {
	const oldLast, newChild = PageID(2000), PageID(3000)
	n := fullInternal(1, oldLast)
	sib := NewInternalNode(2)

	mid, err := n.InsertAndSplit(76, newChild, sib)
	if err != nil {
		t.Fatalf("InsertAndSplit failed: %v", err)
	}
	if mid != 39 {
		t.Errorf("midKey = %d, want 39", mid)
	}
	if n.KeyCount() != 38 || sib.KeyCount() != 37 {
		t.Errorf("lengths = %d/%d, want 38/37", n.KeyCount(), sib.KeyCount())
	}
	if diff := pretty.Diff(keyRange(1, 38), n.Keys()); len(diff) > 0 {
		t.Errorf("left keys: %v", diff)
	}
	if diff := pretty.Diff(keyRange(40, 76), sib.Keys()); len(diff) > 0 {
		t.Errorf("right keys: %v", diff)
	}
	if n.LastChild() != childOf(39) {
		t.Errorf("left last = %d, want child paired with midKey %d", n.LastChild(), childOf(39))
	}

	// 76 was the new largest key: the old last child sits left of it and
	// the new child covers everything above
	k, child, _ := sib.ReadEntry(sib.KeyCount() - 1)
	if k != 76 || child != oldLast {
		t.Errorf("sibling tail entry = (%d, %d), want (76, %d)", k, child, oldLast)
	}
	if sib.LastChild() != newChild {
		t.Errorf("sibling last = %d, want %d", sib.LastChild(), newChild)
	}
}

func TestInternalSplitMiddleInsert(t *testing.T) {
	const oldLast, newChild = PageID(2000), PageID(3000)
	n := NewInternalNode(1)
	n.SetLastChild(oldLast)
	for k := Key(2); k <= 150; k += 2 {
		n.entries = append(n.entries, internalEntry{Child: childOf(k), Key: k})
	}
	sib := NewInternalNode(2)

	mid, err := n.InsertAndSplit(41, newChild, sib)
	if err != nil {
		t.Fatalf("InsertAndSplit failed: %v", err)
	}
	if mid != 76 {
		t.Errorf("midKey = %d, want 76", mid)
	}
	if n.KeyCount() != 38 || sib.KeyCount() != 37 {
		t.Errorf("lengths = %d/%d, want 38/37", n.KeyCount(), sib.KeyCount())
	}
	if sib.LastChild() != oldLast {
		t.Errorf("sibling last = %d, want unchanged %d", sib.LastChild(), oldLast)
	}
	if n.LastChild() != childOf(76) {
		t.Errorf("left last = %d, want %d", n.LastChild(), childOf(76))
	}
	if got := n.LocateChildPtr(41); got != newChild {
		t.Errorf("LocateChildPtr(41) = %d, want new child %d", got, newChild)
	}
	if got := n.LocateChildPtr(40); got != childOf(42) {
		t.Errorf("LocateChildPtr(40) = %d, want %d", got, childOf(42))
	}
	if sib.Keys()[0] != 78 {
		t.Errorf("sibling first key = %d, want 78", sib.Keys()[0])
	}

	// every child appears exactly once across both halves
	all := append(n.Children(), sib.Children()...)
	seen := make(map[PageID]bool)
	for _, c := range all {
		if seen[c] {
			t.Errorf("child %d duplicated after split", c)
		}
		seen[c] = true
	}
	if len(all) != MaxKeys+2 {
		t.Errorf("%d children after split, want %d", len(all), MaxKeys+2)
	}
}

func TestInternalSplitPreconditions(t *testing.T) {
	nonEmpty := NewInternalNode(9)
	nonEmpty.InitializeRoot(1, 2, 3)

	tests := []struct {
		name    string
		node    *InternalNode
		sibling *InternalNode
	}{
		{"empty", NewInternalNode(1), NewInternalNode(2)},
		{"non-empty sibling", fullInternal(1, 2000), nonEmpty},
		{"nil sibling", fullInternal(1, 2000), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.node.Children()
			var sibBefore []PageID
			if tt.sibling != nil {
				sibBefore = tt.sibling.Children()
			}

			_, err := tt.node.InsertAndSplit(500, 5, tt.sibling)
			if !errors.Is(err, ErrInvalidPrecondition) {
				t.Fatalf("error = %v, want ErrInvalidPrecondition", err)
			}
			if diff := pretty.Diff(before, tt.node.Children()); len(diff) > 0 {
				t.Errorf("node changed: %v", diff)
			}
			if tt.sibling != nil {
				if diff := pretty.Diff(sibBefore, tt.sibling.Children()); len(diff) > 0 {
					t.Errorf("sibling changed: %v", diff)
				}
			}
		})
	}
}

// =============================================================================
// Routing
// =============================================================================

func TestLocateChildPtr(t *testing.T) {
	const p0, p1, last = PageID(100), PageID(101), PageID(102)
	n := NewInternalNode(0)
	n.InitializeRoot(p0, 10, p1)
	_ = n.Insert(20, last)

	tests := []struct {
		key  Key
		want PageID
	}{
		{5, p0},
		{10, p1},
		{15, p1},
		{20, last},
		{25, last},
	}
	for _, tt := range tests {
		if got := n.LocateChildPtr(tt.key); got != tt.want {
			t.Errorf("LocateChildPtr(%d) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestLocateLeftmostChildPtr(t *testing.T) {
	n := NewInternalNode(0)
	n.SetLastChild(9)
	n.entries = append(n.entries,
		internalEntry{Child: 1, Key: 10},
		internalEntry{Child: 2, Key: 20},
		internalEntry{Child: 3, Key: 20},
	)

	tests := []struct {
		key        Key
		leftmost   PageID
		rightwards PageID
	}{
		{5, 1, 1},
		{10, 1, 2},
		{20, 2, 9},
		{21, 9, 9},
	}
	for _, tt := range tests {
		if got := n.LocateLeftmostChildPtr(tt.key); got != tt.leftmost {
			t.Errorf("LocateLeftmostChildPtr(%d) = %d, want %d", tt.key, got, tt.leftmost)
		}
		if got := n.LocateChildPtr(tt.key); got != tt.rightwards {
			t.Errorf("LocateChildPtr(%d) = %d, want %d", tt.key, got, tt.rightwards)
		}
	}
}

func TestInternalReadEntryRange(t *testing.T) {
	n := NewInternalNode(0)
	n.InitializeRoot(1, 2, 3)
	for _, i := range []int{-1, 1} {
		if _, _, err := n.ReadEntry(i); !errors.Is(err, ErrNoSuchRecord) {
			t.Errorf("ReadEntry(%d) error = %v, want ErrNoSuchRecord", i, err)
		}
	}
}

// =============================================================================
// Serialization
// =============================================================================

func TestInternalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		node *InternalNode
	}{
		{"empty", NewInternalNode(4)},
		{"root", func() *InternalNode {
			n := NewInternalNode(4)
			n.InitializeRoot(-7, -1, 12)
			return n
		}()},
		{"full", fullInternal(4, 2000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p pager.Page
			tt.node.Serialize(&p)

			got := NewInternalNode(4)
			if err := got.Deserialize(&p); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if diff := pretty.Diff(internalStateOf(tt.node), internalStateOf(got)); len(diff) > 0 {
				t.Errorf("round trip differs: %v", diff)
			}
		})
	}
}

func TestInternalByteLayout(t *testing.T) {
	n := NewInternalNode(0)
	n.InitializeRoot(11, 50, 12)
	_ = n.Insert(60, 13)

	var p pager.Page
	n.Serialize(&p)

	want := []struct {
		off int
		val int32
	}{
		{0, 0}, {4, 2},
		{8, 11}, {12, 50},
		{16, 12}, {20, 60},
		{24, 13},
	}
	for _, w := range want {
		if got := btpage.Int32(&p, w.off); got != w.val {
			t.Errorf("int32 at %d = %d, want %d", w.off, got, w.val)
		}
	}
	for i := 28; i < pager.PageSize; i++ {
		if p[i] != 0 {
			t.Fatalf("byte %d = %#x, want zero padding", i, p[i])
		}
	}
}

func TestInternalDeserializeRejectsLeaf(t *testing.T) {
	var p pager.Page
	fullLeaf(0).Serialize(&p)

	n := fullInternal(0, 2000)
	if err := n.Deserialize(&p); !errors.Is(err, ErrCorruptPage) {
		t.Fatalf("Deserialize error = %v, want ErrCorruptPage", err)
	}
	if n.KeyCount() != MaxKeys {
		t.Error("failed Deserialize changed the node")
	}
}

func TestInternalReadWrite(t *testing.T) {
	s := newMemStore()
	n := fullInternal(5, 2000)
	if err := n.Write(5, s); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := NewInternalNode(pager.InvalidPage)
	if err := got.Read(5, s); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := pretty.Diff(internalStateOf(n), internalStateOf(got)); len(diff) > 0 {
		t.Errorf("Read differs from written node: %v", diff)
	}

	s.writeErr = errors.New("read-only filesystem")
	if err := got.Write(5, s); !errors.Is(err, ErrBackingStore) {
		t.Errorf("Write error = %v, want ErrBackingStore", err)
	}
}
