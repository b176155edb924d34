// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import "encoding/binary"

// headerSize is the size of the fixed, little-endian leading record
// every container file starts with.
const headerSize = 68

var headerMagic = [4]byte{'D', 'C', 'C', 'F'}

// Header field offsets within the 68-byte leading record.
const (
	offMagic          = 0x00 // [4]byte
	offVersion        = 0x04 // uint64
	offFooterOffset   = 0x0C // uint64
	offFooterLength   = 0x14 // uint64
	offFooterChecksum = 0x1C // uint64
	offReserved       = 0x24 // [4]uint64, 32 bytes, through offset 68
)

const headerVersion = 1

// containerHeader is the in-memory form of the 68-byte leading record.
type containerHeader struct {
	version        uint64
	footerOffset   int64
	footerLength   int64
	footerChecksum Checksum
	reserved       [4]uint64 // preserved verbatim across read/write, never validated
}

// encode serializes h to a headerSize-byte slice.
func (h *containerHeader) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[offMagic:], headerMagic[:])
	binary.LittleEndian.PutUint64(buf[offVersion:], h.version)
	binary.LittleEndian.PutUint64(buf[offFooterOffset:], uint64(h.footerOffset))
	binary.LittleEndian.PutUint64(buf[offFooterLength:], uint64(h.footerLength))
	binary.LittleEndian.PutUint64(buf[offFooterChecksum:], uint64(h.footerChecksum))
	for i, w := range h.reserved {
		binary.LittleEndian.PutUint64(buf[offReserved+8*i:], w)
	}
	return buf
}

// decodeHeader parses a headerSize-byte slice, rejecting an invalid
// magic or a buffer too short to hold every field.
func decodeHeader(buf []byte) (*containerHeader, error) {
	if len(buf) < headerSize {
		return nil, &InvalidHeaderError{Field: "other"}
	}
	if string(buf[offMagic:offMagic+4]) != string(headerMagic[:]) {
		return nil, &InvalidHeaderError{Field: "magic"}
	}

	h := &containerHeader{}
	h.version = binary.LittleEndian.Uint64(buf[offVersion:])
	h.footerOffset = int64(binary.LittleEndian.Uint64(buf[offFooterOffset:]))
	h.footerLength = int64(binary.LittleEndian.Uint64(buf[offFooterLength:]))
	h.footerChecksum = Checksum(binary.LittleEndian.Uint64(buf[offFooterChecksum:]))
	for i := range h.reserved {
		h.reserved[i] = binary.LittleEndian.Uint64(buf[offReserved+8*i:])
	}

	if h.version != headerVersion {
		return nil, &InvalidHeaderError{Field: "version"}
	}
	if h.footerOffset < headerSize {
		return nil, &InvalidHeaderError{Field: "footer_offset"}
	}
	if h.footerLength < 0 {
		return nil, &InvalidHeaderError{Field: "footer_length"}
	}
	return h, nil
}

// readHeader reads and decodes the header from s at offset 0.
func readHeader(s Storage) (*containerHeader, error) {
	buf := make([]byte, headerSize)
	n, err := s.ReadAt(buf, 0)
	if err != nil || n != headerSize {
		if err == nil {
			err = errShortRead
		}
		return nil, &IOError{Op: "read header", Err: err}
	}
	return decodeHeader(buf)
}

// writeHeader writes h to s at offset 0.
func writeHeader(s Storage, h *containerHeader) error {
	buf := h.encode()
	n, err := s.WriteAt(buf, 0)
	if err != nil {
		return &IOError{Op: "write header", Err: err}
	}
	if n != len(buf) {
		return &IOError{Op: "write header", Err: errShortWrite}
	}
	return nil
}
