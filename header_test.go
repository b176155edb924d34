// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := &containerHeader{
		version:        1,
		footerOffset:   200,
		footerLength:   40,
		footerChecksum: Checksum(0xDEADBEEF),
		reserved:       [4]uint64{1, 2, 3, 4},
	}
	buf := h.encode()
	if len(buf) != headerSize {
		t.Fatalf("encoded header length %d, want %d", len(buf), headerSize)
	}

	got, err := decodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	h := &containerHeader{version: 1, footerOffset: headerSize}
	buf := h.encode()
	buf[0] = 'X'
	if _, err := decodeHeader(buf); err == nil {
		t.Fatal("expected an error for corrupted magic")
	} else if ihe, ok := err.(*InvalidHeaderError); !ok || ihe.Field != "magic" {
		t.Fatalf("got %v, want InvalidHeaderError{magic}", err)
	}
}

func TestHeaderRejectsUnknownVersion(t *testing.T) {
	h := &containerHeader{version: 2, footerOffset: headerSize}
	buf := h.encode()
	if _, err := decodeHeader(buf); err == nil {
		t.Fatal("expected an error for an unknown version")
	} else if ihe, ok := err.(*InvalidHeaderError); !ok || ihe.Field != "version" {
		t.Fatalf("got %v, want InvalidHeaderError{version}", err)
	}
}

func TestHeaderRejectsShortFooterOffset(t *testing.T) {
	h := &containerHeader{version: 1, footerOffset: 3}
	buf := h.encode()
	if _, err := decodeHeader(buf); err == nil {
		t.Fatal("expected an error for footer_offset inside the header")
	}
}

func TestHeaderRejectsTruncatedBuffer(t *testing.T) {
	if _, err := decodeHeader(make([]byte, headerSize-1)); err == nil {
		t.Fatal("expected an error for a too-short buffer")
	}
}

func TestHeaderReadWriteStorage(t *testing.T) {
	s := NewMemStorage()
	h := &containerHeader{version: 1, footerOffset: headerSize, footerLength: 0}
	if err := writeHeader(s, h); err != nil {
		t.Fatal(err)
	}
	got, err := readHeader(s)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}
