// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The block-region allocator. There are no used/free markers embedded
// in the file itself; every allocation decision lives in the footer's
// free-space tracker.

package dccf

// allocator reserves and releases extents within [headerSize, footerOffset)
// on behalf of a containerFooter. It never touches payload bytes — it
// only returns an extent and mutates the free-space tracker and the
// footer offset that stands in for "end of the block region."
type allocator struct {
	free   *freeSpace
	region *int64 // points at the container's current footerOffset
}

func newAllocator(free *freeSpace, region *int64) *allocator {
	return &allocator{free: free, region: region}
}

// reserve returns an extent of at least required bytes: the first
// fitting hole with no overallocation, or a fresh extent at the end of
// the block region sized under policy.
func (a *allocator) reserve(required int64, policy OverallocationPolicy) (offset, allocated int64) {
	if required == 0 {
		return 0, 0
	}
	if off, ok := a.free.firstFit(required); ok {
		a.free.take(off, required)
		return off, required
	}
	offset = *a.region
	allocated = policy.Calculate(required)
	*a.region += allocated
	return offset, allocated
}

// release returns an extent to the free-space tracker, coalescing with
// any adjacent holes. A zero-length extent (a descriptor with
// allocated_length == 0) is a no-op.
func (a *allocator) release(offset, length int64) {
	if length == 0 {
		return
	}
	a.free.insert(offset, length)
}
