// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The free-space tracker: an ordered map from hole offset to hole
// length, with coalescing of adjacent holes and first-fit lookup. The
// whole tracker lives in memory and is serialized as the footer's
// empty_space field, not as a chain of blocks threaded through the
// file itself.

package dccf

import "github.com/cznic/sortutil"

// freeSpace tracks disjoint holes within the block region as offset ->
// length. It never needs to know about occupied ranges; the Container
// derives that purely from what's NOT listed here.
type freeSpace struct {
	holes   map[int64]int64
	offsets sortutil.Int64Slice // kept sorted ascending, mirrors keys of holes
}

func newFreeSpace() *freeSpace {
	return &freeSpace{holes: map[int64]int64{}}
}

// loadFreeSpace reconstructs a tracker from a decoded footer's
// empty_space entries, coalescing as it inserts so a footer produced by
// an older, less aggressive coalescer still normalizes correctly.
func loadFreeSpace(entries []emptySpaceEntry) *freeSpace {
	fs := newFreeSpace()
	for _, e := range entries {
		fs.insert(e.Offset, e.Length)
	}
	return fs
}

// entries returns the holes as a sorted slice of emptySpaceEntry, the
// shape footer.go persists under empty_space.
func (fs *freeSpace) entries() []emptySpaceEntry {
	out := make([]emptySpaceEntry, len(fs.offsets))
	for i, off := range fs.offsets {
		out[i] = emptySpaceEntry{Offset: off, Length: fs.holes[off]}
	}
	return out
}

func (fs *freeSpace) idx(off int64) (int, bool) {
	i := sortutil.SearchInt64s(fs.offsets, off)
	if i < len(fs.offsets) && fs.offsets[i] == off {
		return i, true
	}
	return i, false
}

// insert adds a hole [off, off+length) and coalesces it with any
// adjacent holes on either side. No overlap is assumed, only
// adjacency.
func (fs *freeSpace) insert(off, length int64) {
	if length <= 0 {
		return
	}

	// Merge with a preceding hole that abuts off.
	i, exact := fs.idx(off)
	if !exact && i > 0 {
		pOff := fs.offsets[i-1]
		pLen := fs.holes[pOff]
		if pOff+pLen == off {
			off = pOff
			length += pLen
			fs.removeAt(i - 1)
			i--
		}
	}

	// Merge with a following hole that off+length abuts.
	j, exact2 := fs.idx(off + length)
	if exact2 {
		nLen := fs.holes[off+length]
		length += nLen
		fs.removeAt(j)
	}

	fs.set(off, length)
}

// set inserts or overwrites the hole at off, keeping offsets sorted.
func (fs *freeSpace) set(off, length int64) {
	if _, exists := fs.holes[off]; exists {
		fs.holes[off] = length
		return
	}
	fs.holes[off] = length
	i := sortutil.SearchInt64s(fs.offsets, off)
	fs.offsets = append(fs.offsets, 0)
	copy(fs.offsets[i+1:], fs.offsets[i:])
	fs.offsets[i] = off
}

func (fs *freeSpace) removeAt(i int) {
	off := fs.offsets[i]
	delete(fs.holes, off)
	fs.offsets = append(fs.offsets[:i], fs.offsets[i+1:]...)
}

// remove deletes the hole at off entirely (used when it's fully
// consumed by an allocation).
func (fs *freeSpace) remove(off int64) {
	if i, ok := fs.idx(off); ok {
		fs.removeAt(i)
	}
}

// firstFit returns the offset of the first (lowest-offset) hole at
// least `length` bytes long, and whether one was found. Scanning in
// offset order rather than size order is a deliberate bias towards
// filling low holes first, which is what keeps Defragment converging
// instead of bouncing blocks around.
func (fs *freeSpace) firstFit(length int64) (off int64, ok bool) {
	for _, o := range fs.offsets {
		if fs.holes[o] >= length {
			return o, true
		}
	}
	return 0, false
}

// take removes length bytes from the front of the hole at off (which
// must exist and have holes[off] >= length), re-inserting whatever
// remains as a new, smaller hole starting further in.
func (fs *freeSpace) take(off, length int64) {
	full := fs.holes[off]
	fs.remove(off)
	if rem := full - length; rem > 0 {
		fs.set(off+length, rem)
	}
}

// lowestOffset reports the offset of the first hole, used by
// Defragment to decide whether the block region is already compact.
func (fs *freeSpace) lowestOffset() (int64, bool) {
	if len(fs.offsets) == 0 {
		return 0, false
	}
	return fs.offsets[0], true
}

func (fs *freeSpace) empty() bool { return len(fs.offsets) == 0 }

// totalFree sums every tracked hole, the "wasted" figure
// Container.Occupancy reports.
func (fs *freeSpace) totalFree() int64 {
	var total int64
	for _, l := range fs.holes {
		total += l
	}
	return total
}

// emptySpaceEntry is the wire shape of one free-space record inside the
// footer's empty_space array.
type emptySpaceEntry struct {
	Offset int64 `codec:"offset"`
	Length int64 `codec:"length"`
}
