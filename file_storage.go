// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An os.File-backed Storage.

package dccf

import (
	"os"

	"github.com/cznic/fileutil"
	"github.com/cznic/mathutil"
)

var (
	_ Storage     = (*FileStorage)(nil)
	_ Truncater   = (*FileStorage)(nil)
	_ Flusher     = (*FileStorage)(nil)
	_ HolePuncher = (*FileStorage)(nil)
)

// FileStorage is a Storage backed by an *os.File. It does not implement
// any structural-transaction safety of its own; consistency comes from
// the single footer+header rewrite at the end of every Container
// mutation, not from the Storage layer.
type FileStorage struct {
	file *os.File
	size int64
}

// OpenFileStorage opens (creating if necessary) the file at path for use
// as container storage.
func OpenFileStorage(path string) (*FileStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat", Err: err}
	}
	return &FileStorage{file: f, size: fi.Size()}, nil
}

// NewFileStorage wraps an already-open *os.File.
func NewFileStorage(f *os.File) (*FileStorage, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, &IOError{Op: "stat", Err: err}
	}
	return &FileStorage{file: f, size: fi.Size()}, nil
}

// Size implements Storage.
func (f *FileStorage) Size() int64 { return f.size }

// Close implements Storage.
func (f *FileStorage) Close() error {
	if err := f.file.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}

// ReadAt implements Storage.
func (f *FileStorage) ReadAt(b []byte, off int64) (int, error) {
	n, err := f.file.ReadAt(b, off)
	if err != nil {
		return n, err
	}
	return n, nil
}

// WriteAt implements Storage.
func (f *FileStorage) WriteAt(b []byte, off int64) (int, error) {
	n, err := f.file.WriteAt(b, off)
	if err != nil {
		return n, err
	}
	f.size = mathutil.MaxInt64(f.size, off+int64(n))
	return n, nil
}

// Truncate implements Truncater.
func (f *FileStorage) Truncate(size int64) error {
	if size < 0 {
		return &InvalidArgumentError{"Truncate: negative size"}
	}
	if err := f.file.Truncate(size); err != nil {
		return &IOError{Op: "truncate", Err: err}
	}
	f.size = size
	return nil
}

// Flush implements Flusher by fsyncing the underlying file.
func (f *FileStorage) Flush() error {
	if err := f.file.Sync(); err != nil {
		return &IOError{Op: "sync", Err: err}
	}
	return nil
}

// PunchHole implements HolePuncher: it deallocates the byte range
// [off, off+size) on filesystems that support it, without changing the
// reported file size. Container calls this on every extent it frees
// (Delete, a replacing Insert, Defragment) so that large holes don't sit
// around as unreclaimed disk space between the footer saying they're
// free and a future insert actually reusing them.
func (f *FileStorage) PunchHole(off, size int64) error {
	if size <= 0 {
		return nil
	}
	return fileutil.PunchHole(f.file, off, size)
}
