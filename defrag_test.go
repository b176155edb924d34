// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import (
	"bytes"
	"testing"
)

func TestDefragmentEliminatesHoles(t *testing.T) {
	s := NewMemStorage()
	c, _ := Create(s)

	a := StringID("A")
	b := StringID("B")
	d := StringID("D")
	c.Insert(a, "ma", bytes.Repeat([]byte{1}, 32), NoOverallocation())
	c.Insert(b, "mb", bytes.Repeat([]byte{2}, 32), NoOverallocation())
	c.Insert(d, "md", bytes.Repeat([]byte{3}, 32), NoOverallocation())

	if _, err := c.Delete(a); err != nil {
		t.Fatal(err)
	}

	if err := c.Defragment(); err != nil {
		t.Fatal(err)
	}

	if !c.footer.free.empty() {
		t.Fatalf("expected no holes after defragment, got %v", c.footer.free.entries())
	}

	var sum int64
	for _, bd := range c.footer.blocks {
		sum += bd.allocated
	}
	if want := headerSize + int(sum); int64(want) != c.header.footerOffset {
		t.Fatalf("footer_offset = %d, want header_end + allocated sum = %d", c.header.footerOffset, want)
	}

	for _, id := range []Identifier{b, d} {
		metadata, payload, err := c.Read(id)
		if err != nil {
			t.Fatalf("read(%v) after defragment: %v", id, err)
		}
		if len(payload) != 32 {
			t.Fatalf("read(%v) payload length = %d, want 32", id, len(payload))
		}
		_ = metadata
	}
}

func TestDefragmentNeverOverallocates(t *testing.T) {
	s := NewMemStorage()
	c, _ := Create(s)

	a := StringID("A")
	b := StringID("B")
	c.Insert(a, nil, []byte("12345678"), OverallocatePercentage(1.0))
	c.Insert(b, nil, []byte("abcdefgh"), OverallocatePercentage(1.0))
	c.Delete(a)

	if err := c.Defragment(); err != nil {
		t.Fatal(err)
	}

	bd, ok := c.descriptor(b)
	if !ok {
		t.Fatal("B missing after defragment")
	}
	if bd.allocated != bd.usedLength {
		t.Fatalf("defragment must reinsert with no overallocation, got allocated=%d used=%d", bd.allocated, bd.usedLength)
	}
}

func TestDefragmentThenTruncateShrinksStorage(t *testing.T) {
	s := NewMemStorage()
	c, _ := Create(s)

	a := StringID("A")
	b := StringID("B")
	c.Insert(a, nil, bytes.Repeat([]byte{1}, 1000), NoOverallocation())
	c.Insert(b, nil, bytes.Repeat([]byte{2}, 32), NoOverallocation())
	c.Delete(a)

	before := s.Size()
	if err := c.DefragmentThenTruncate(); err != nil {
		t.Fatal(err)
	}
	if s.Size() >= before {
		t.Fatalf("expected storage to shrink: before=%d after=%d", before, s.Size())
	}
	if s.Size() != c.header.footerOffset+c.header.footerLength {
		t.Fatalf("size %d != footer_offset+footer_length %d", s.Size(), c.header.footerOffset+c.header.footerLength)
	}
}

func TestDefragmentPunchesVacatedHoles(t *testing.T) {
	s := newHolePunchingStorage()
	c, _ := Create(s)

	a := StringID("A")
	b := StringID("B")
	c.Insert(a, nil, bytes.Repeat([]byte{1}, 32), NoOverallocation())
	c.Insert(b, nil, bytes.Repeat([]byte{2}, 32), NoOverallocation())
	bdB, _ := c.descriptor(b)
	bOffset := bdB.fileOffset

	c.Delete(a)
	s.punched = nil

	if err := c.Defragment(); err != nil {
		t.Fatal(err)
	}
	if len(s.punched) != 1 || s.punched[0].off != bOffset || s.punched[0].size != 32 {
		t.Fatalf("Defragment did not punch B's vacated extent, got %+v", s.punched)
	}
}

func TestDefragmentOnAlreadyCompactContainer(t *testing.T) {
	s := NewMemStorage()
	c, _ := Create(s)
	c.Insert(StringID("only"), nil, []byte("abc"), NoOverallocation())

	before := c.header.footerOffset
	if err := c.Defragment(); err != nil {
		t.Fatal(err)
	}
	if c.header.footerOffset != before {
		t.Fatalf("defragmenting an already-compact container moved footer_offset: %d -> %d", before, c.header.footerOffset)
	}
}
