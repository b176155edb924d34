// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import (
	"math"

	"github.com/cznic/mathutil"
)

// OverallocationKind selects how OverallocationPolicy.Calculate grows a
// request. It is never applied when an insert reuses an existing hole,
// only when the allocator must grow the file.
type OverallocationKind uint8

const (
	// OverallocNone reserves exactly the requested size.
	OverallocNone OverallocationKind = iota
	// OverallocBytes reserves the requested size plus a fixed number
	// of extra bytes.
	OverallocBytes
	// OverallocPercentage reserves the requested size plus a fraction
	// of it, rounded down.
	OverallocPercentage
	// OverallocPercentageCapped is OverallocPercentage with the extra
	// bytes capped at a maximum.
	OverallocPercentageCapped
)

// OverallocationPolicy is a plain value configuring how much extra room
// the allocator reserves when appending a new block at the end of the
// file, so later growth avoids relocation.
type OverallocationPolicy struct {
	kind     OverallocationKind
	extra    int64   // OverallocBytes: fixed extra bytes
	fraction float64 // OverallocPercentage(Capped): fraction of the request, e.g. 0.1 == 10%
	maxAdd   int64   // OverallocPercentageCapped: cap on added bytes
}

// NoOverallocation reserves exactly the requested size.
func NoOverallocation() OverallocationPolicy {
	return OverallocationPolicy{kind: OverallocNone}
}

// OverallocateBytes reserves the requested size plus k extra bytes.
func OverallocateBytes(k int64) OverallocationPolicy {
	return OverallocationPolicy{kind: OverallocBytes, extra: k}
}

// OverallocatePercentage reserves the requested size plus
// floor(size*fraction), saturating at math.MaxInt64. fraction is a
// direct multiplier of the request: 0.1 reserves 10% extra.
func OverallocatePercentage(fraction float64) OverallocationPolicy {
	return OverallocationPolicy{kind: OverallocPercentage, fraction: fraction}
}

// OverallocatePercentageCapped is OverallocatePercentage with the added
// bytes capped at maxAdd.
func OverallocatePercentageCapped(fraction float64, maxAdd int64) OverallocationPolicy {
	return OverallocationPolicy{kind: OverallocPercentageCapped, fraction: fraction, maxAdd: maxAdd}
}

// Calculate returns the allocated length for a request of n bytes under
// this policy.
func (p OverallocationPolicy) Calculate(n int64) int64 {
	switch p.kind {
	case OverallocNone:
		return n
	case OverallocBytes:
		return addSaturating(n, p.extra)
	case OverallocPercentage:
		return addSaturating(n, floorFraction(n, p.fraction))
	case OverallocPercentageCapped:
		extra := mathutil.MinInt64(floorFraction(n, p.fraction), p.maxAdd)
		return addSaturating(n, extra)
	default:
		panic("dccf: invalid overallocation kind")
	}
}

// floorFraction returns floor(n*fraction), saturating at math.MaxInt64
// when the product leaves the int64 range. A zero, negative or NaN
// fraction adds nothing.
func floorFraction(n int64, fraction float64) int64 {
	if n == 0 || fraction <= 0 || math.IsNaN(fraction) {
		return 0
	}
	product := float64(n) * fraction
	if product >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(product)
}

func addSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
