// Package btpage provides the on-disk page layout shared by leaf and internal
// index nodes.
//
// Leaf page:
//
//	[0]   int32  isLeaf (1)
//	[4]   int32  length
//	[8]   length x (int32 rid page, int32 rid slot, int32 key)
//	[..]  int32  next leaf page id (or -1)
//	      zero padding
//
// Internal page:
//
//	[0]   int32  isLeaf (0)
//	[4]   int32  length
//	[8]   length x (int32 child page id, int32 key)
//	[..]  int32  last child page id
//	      zero padding
//
// Integers use the platform's native byte order.
package btpage

import (
	"encoding/binary"

	"github.com/btree-query-bench/btnode/dbms/pager"
)

const (
	// MaxFanout is the maximum number of children of an internal node.
	MaxFanout = 76
	MaxKeys   = MaxFanout - 1

	FlagInternal = int32(0)
	FlagLeaf     = int32(1)

	OffIsLeaf  = 0
	OffLength  = 4
	OffEntries = 8

	IntSize           = 4
	LeafEntrySize     = 3 * IntSize
	InternalEntrySize = 2 * IntSize
)

func init() {
	// a leaf must fit the transient overflow entry plus its trailer
	if LeafTrailer(MaxKeys+1)+IntSize > pager.PageSize {
		panic("btpage: page size too small for MaxKeys+1 leaf entries")
	}
	if InternalTrailer(MaxKeys+1)+IntSize > pager.PageSize {
		panic("btpage: page size too small for MaxKeys+1 internal entries")
	}
}

// Clear zeroes the whole page.
func Clear(p *pager.Page) {
	*p = pager.Page{}
}

func Int32(p *pager.Page, off int) int32 {
	return int32(binary.NativeEndian.Uint32(p[off : off+IntSize]))
}

func PutInt32(p *pager.Page, off int, v int32) {
	binary.NativeEndian.PutUint32(p[off:off+IntSize], uint32(v))
}

func Flag(p *pager.Page) int32 { return Int32(p, OffIsLeaf) }

func Length(p *pager.Page) int32 { return Int32(p, OffLength) }

// SetHeader writes the leaf flag and entry count.
func SetHeader(p *pager.Page, flag int32, n int) {
	PutInt32(p, OffIsLeaf, flag)
	PutInt32(p, OffLength, int32(n))
}

// LeafEntry returns the offset of leaf entry i.
func LeafEntry(i int) int { return OffEntries + i*LeafEntrySize }

// InternalEntry returns the offset of internal entry i.
func InternalEntry(i int) int { return OffEntries + i*InternalEntrySize }

// LeafTrailer returns the offset of the next-leaf pointer of a leaf with n
// entries.
func LeafTrailer(n int) int { return LeafEntry(n) }

// InternalTrailer returns the offset of the last child pointer of an
// internal node with n entries.
func InternalTrailer(n int) int { return InternalEntry(n) }
