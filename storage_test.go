// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMemStorageWriteReadAcrossPages(t *testing.T) {
	m := NewMemStorage()
	payload := bytes.Repeat([]byte{0xAB}, memPageSize*3+17)
	off := int64(memPageSize - 5)

	if n, err := m.WriteAt(payload, off); err != nil || n != len(payload) {
		t.Fatalf("WriteAt: n=%d err=%v", n, err)
	}

	got := make([]byte, len(payload))
	if n, err := m.ReadAt(got, off); err != nil || n != len(payload) {
		t.Fatalf("ReadAt: n=%d err=%v", n, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read back data does not match what was written")
	}
}

func TestMemStorageReadPastEOF(t *testing.T) {
	m := NewMemStorage()
	m.WriteAt([]byte("abc"), 0)
	buf := make([]byte, 10)
	n, err := m.ReadAt(buf, 0)
	if n != 3 || err != io.EOF {
		t.Fatalf("n=%d err=%v, want n=3 err=io.EOF", n, err)
	}
}

func TestMemStorageWriteZerosFreesPage(t *testing.T) {
	m := NewMemStorage()
	m.WriteAt(bytes.Repeat([]byte{1}, memPageSize), 0)
	if len(m.pages) != 1 {
		t.Fatalf("expected one stored page, got %d", len(m.pages))
	}
	m.WriteAt(make([]byte, memPageSize), 0)
	if len(m.pages) != 0 {
		t.Fatalf("an all-zero full-page write should free the page, got %d pages", len(m.pages))
	}
}

func TestMemStorageTruncate(t *testing.T) {
	m := NewMemStorage()
	m.WriteAt(bytes.Repeat([]byte{1}, memPageSize*2), 0)
	if err := m.Truncate(10); err != nil {
		t.Fatal(err)
	}
	if m.Size() != 10 {
		t.Fatalf("size after truncate = %d, want 10", m.Size())
	}
	buf := make([]byte, 10)
	if n, err := m.ReadAt(buf, 0); err != nil || n != 10 {
		t.Fatalf("ReadAt after truncate: n=%d err=%v", n, err)
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "container.dccf")
	fs, err := OpenFileStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()

	payload := []byte("hello, file storage")
	if n, err := fs.WriteAt(payload, 100); err != nil || n != len(payload) {
		t.Fatalf("WriteAt: n=%d err=%v", n, err)
	}
	if fs.Size() != 100+int64(len(payload)) {
		t.Fatalf("Size() = %d, want %d", fs.Size(), 100+int64(len(payload)))
	}

	got := make([]byte, len(payload))
	if _, err := fs.ReadAt(got, 100); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read back data does not match")
	}

	if err := fs.Flush(); err != nil {
		t.Fatal(err)
	}
}

func TestFileStorageOpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.dccf")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	fs, err := OpenFileStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fs.Close()
	if fs.Size() != 10 {
		t.Fatalf("Size() = %d, want 10", fs.Size())
	}
}
