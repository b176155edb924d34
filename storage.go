// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An abstraction of file-like (persistent or in-memory) storage: a
// seekable, read/write byte object addressed by absolute offsets, with
// truncation, flushing and hole punching as optional capabilities.

package dccf

import (
	"errors"
	"io"

	"github.com/cznic/mathutil"
)

var (
	errShortRead  = errors.New("dccf: short read")
	errShortWrite = errors.New("dccf: short write")
)

// Storage is a []byte-like model of a file or similar entity. ReadAt and
// WriteAt are always addressed by an absolute offset and are assumed to
// perform atomically. A Storage is not safe for concurrent access; it is
// designed for consumption by a single Container from one goroutine at
// a time.
type Storage interface {
	// ReadAt is like io.ReaderAt: it reads len(b) bytes starting at
	// off, returning an error if fewer bytes were available.
	ReadAt(b []byte, off int64) (n int, err error)

	// WriteAt is like io.WriterAt: it writes b at off, growing the
	// storage if off+len(b) exceeds the current Size.
	WriteAt(b []byte, off int64) (n int, err error)

	// Size reports the current size in bytes.
	Size() int64

	// Close releases any underlying resources (file descriptors and
	// similar). Close does not imply any prior flush.
	Close() error
}

// Truncater is implemented by Storage values that can shrink (or, as
// os.File.Truncate, grow) their size in place. FileStorage implements
// it; not every Storage needs to — a pure append-only in-memory buffer
// that's never asked to shrink can omit it.
type Truncater interface {
	Truncate(size int64) error
}

// Flusher is implemented by Storage values that buffer writes and need
// an explicit durability point. Container.Flush calls this when
// present; nothing else does, destruction included.
type Flusher interface {
	Flush() error
}

// HolePuncher is implemented by Storage values that can deallocate a
// byte range without changing the reported size. Container calls this,
// when present, on every extent it frees (Delete, a replacing Insert,
// Defragment) so that disk-backed storage can reclaim freed blocks
// immediately instead of merely tracking them as reusable holes in the
// footer. Purely in-memory storage has no reason to implement it.
type HolePuncher interface {
	PunchHole(off, size int64) error
}

const (
	memPageBits = 12
	memPageSize = 1 << memPageBits
	memPageMask = memPageSize - 1
)

type memPage = [memPageSize]byte

var zeroMemPage memPage

// MemStorage is a paged, memory-backed Storage. Paging keeps large
// sparse regions (the tail-zeroed slack inside an overallocated block)
// from forcing giant contiguous allocations.
type MemStorage struct {
	pages map[int64]*memPage
	size  int64
}

var _ Storage = (*MemStorage)(nil)

// NewMemStorage returns a new, empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{pages: map[int64]*memPage{}}
}

// Size implements Storage.
func (m *MemStorage) Size() int64 { return m.size }

// Close implements Storage. It is a no-op for MemStorage.
func (m *MemStorage) Close() error { return nil }

// ReadAt implements Storage.
func (m *MemStorage) ReadAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &InvalidArgumentError{"ReadAt: negative offset"}
	}
	avail := m.size - off
	if avail <= 0 {
		if len(b) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	want := len(b)
	if int64(want) > avail {
		want = int(avail)
		err = io.EOF
	}

	pgI := off >> memPageBits
	pgO := int(off & memPageMask)
	for n < want {
		pg := m.pages[pgI]
		if pg == nil {
			pg = &zeroMemPage
		}
		chunk := mathutil.Min(want-n, memPageSize-pgO)
		copy(b[n:n+chunk], pg[pgO:pgO+chunk])
		n += chunk
		pgI++
		pgO = 0
	}
	return
}

// WriteAt implements Storage.
func (m *MemStorage) WriteAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &InvalidArgumentError{"WriteAt: negative offset"}
	}
	pgI := off >> memPageBits
	pgO := int(off & memPageMask)
	for n < len(b) {
		chunk := mathutil.Min(len(b)-n, memPageSize-pgO)
		part := b[n : n+chunk]
		if pgO == 0 && chunk == memPageSize && isZero(part) {
			delete(m.pages, pgI)
		} else {
			pg := m.pages[pgI]
			if pg == nil {
				pg = &memPage{}
				m.pages[pgI] = pg
			}
			copy(pg[pgO:], part)
		}
		n += chunk
		pgI++
		pgO = 0
	}
	m.size = mathutil.MaxInt64(m.size, off+int64(n))
	return n, nil
}

// Truncate implements Truncater.
func (m *MemStorage) Truncate(size int64) error {
	if size < 0 {
		return &InvalidArgumentError{"Truncate: negative size"}
	}
	if size == 0 {
		m.pages = map[int64]*memPage{}
		m.size = 0
		return nil
	}
	first := size >> memPageBits
	if size&memPageMask != 0 {
		first++
	}
	last := m.size >> memPageBits
	if m.size&memPageMask != 0 {
		last++
	}
	for pg := first; pg < last; pg++ {
		delete(m.pages, pg)
	}
	m.size = size
	return nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
