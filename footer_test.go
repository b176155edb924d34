// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import "testing"

func TestIdentifierWireRoundTrip(t *testing.T) {
	cases := []Identifier{
		StringID("hello"),
		Uint64ID(42),
		BytesID([]byte{0, 1, 2, 3}),
		PathID(StringID("a"), Uint64ID(1), BytesID([]byte("z"))),
	}
	for _, id := range cases {
		wire := encodeIdentifier(id)
		got, err := decodeIdentifier(wire)
		if err != nil {
			t.Fatalf("decodeIdentifier(%v): %v", id, err)
		}
		if !got.Equal(id) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, id)
		}
	}
}

func TestFooterEncodeDecodeRoundTrip(t *testing.T) {
	f := newContainerFooter()
	f.metadata = map[string]interface{}{"created_by": "test"}
	f.blocks["x"] = &blockDescriptor{
		id:         Uint64ID(7),
		fileOffset: 68,
		usedLength: 10,
		allocated:  16,
		checksum:   hashBytes([]byte("0123456789")),
		metadata:   "block metadata",
	}
	f.free.insert(84, 32)

	buf, err := encodeFooter(f)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeFooter(buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.blocks) != 1 {
		t.Fatalf("decoded %d blocks, want 1", len(got.blocks))
	}
	bd, ok := got.blocks[Uint64ID(7).key()]
	if !ok {
		t.Fatal("decoded footer missing the Uint64ID(7) block")
	}
	if bd.fileOffset != 68 || bd.usedLength != 10 || bd.allocated != 16 {
		t.Fatalf("decoded descriptor mismatch: %+v", bd)
	}
	if got.free.totalFree() != 32 {
		t.Fatalf("decoded free space = %d, want 32", got.free.totalFree())
	}
}

func TestFooterChecksumDetectsCorruption(t *testing.T) {
	s := NewMemStorage()
	c, err := Create(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(StringID("k"), nil, []byte("payload"), NoOverallocation()); err != nil {
		t.Fatal(err)
	}

	h, err := readHeader(s)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 1)
	s.ReadAt(buf, h.footerOffset)
	buf[0] ^= 0xFF
	s.WriteAt(buf, h.footerOffset)

	if _, err := Open(s); err == nil {
		t.Fatal("expected FooterChecksumError after corrupting the footer")
	} else if _, ok := err.(*FooterChecksumError); !ok {
		t.Fatalf("got %T, want *FooterChecksumError", err)
	}
}
