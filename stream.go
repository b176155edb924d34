// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The streaming view: a seekable read/write cursor over one block,
// with an in-place fast path that streams a checksum update instead of
// materializing the whole payload.

package dccf

// SeekWhence selects the reference point for View.Seek, mirroring
// io.Seeker's three origins.
type SeekWhence int

const (
	SeekStart   SeekWhence = iota // offset is absolute
	SeekCurrent                   // offset is relative to the cursor
	SeekEnd                       // offset is relative to used_length
)

// View is a cursor bound to one Container and one Identifier. A
// Container allows at most one outstanding View at a time; OpenView
// fails if one is already checked out.
type View struct {
	c      *Container
	id     Identifier
	cursor int64
	policy OverallocationPolicy
	closed bool
}

// OpenView checks out a View for id, bound to c. policy governs any
// allocation growth performed by the view's rebuild write path.
func (c *Container) OpenView(id Identifier, policy OverallocationPolicy) (*View, error) {
	if c.view != nil {
		return nil, &InvalidArgumentError{"OpenView: a view is already checked out"}
	}
	v := &View{c: c, id: id, policy: policy}
	c.view = v
	return v, nil
}

// Close releases the view's exclusive hold on its Container. A closed
// View must not be used again.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.c.view == v {
		v.c.view = nil
	}
	return nil
}

func (v *View) checkOpen() error {
	if v.closed {
		return &InvalidArgumentError{"view: use after Close"}
	}
	return nil
}

// Seek moves the cursor per whence. A negative resulting position is
// rejected without modifying the cursor; seeking past end is permitted
// and never grows the block.
func (v *View) Seek(offset int64, whence SeekWhence) (int64, error) {
	if err := v.checkOpen(); err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = v.cursor
	case SeekEnd:
		base = v.usedLength()
	default:
		return 0, &InvalidArgumentError{"Seek: invalid whence"}
	}

	pos := base + offset
	if pos < 0 {
		return 0, &InvalidArgumentError{"Seek: resulting position is negative"}
	}
	v.cursor = pos
	return pos, nil
}

func (v *View) usedLength() int64 {
	if bd, ok := v.c.descriptor(v.id); ok {
		return bd.usedLength
	}
	return 0
}

// Read delegates to ReadSlice at the cursor, advancing it by the number
// of bytes read. Reading past the used length returns 0. A read
// against a block that does not exist is an error, not a zero-length
// success.
func (v *View) Read(buf []byte) (int, error) {
	if err := v.checkOpen(); err != nil {
		return 0, err
	}
	if _, ok := v.c.descriptor(v.id); !ok {
		return 0, &BlockNotFoundError{ID: v.id}
	}
	n, err := v.c.ReadSlice(v.id, v.cursor, buf)
	v.cursor += int64(n)
	return n, err
}

// Write writes p at the cursor: an in-place fast path that streams a
// checksum update when the new bytes fit the current allocation, and a
// rebuild path (delegated to Container.WriteAt's sibling logic)
// otherwise. The cursor advances by exactly len(p) on success. An
// empty write is a no-op that never creates a block.
func (v *View) Write(p []byte) (int, error) {
	if err := v.checkOpen(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	bd, exists := v.c.descriptor(v.id)
	if exists && bd.allocated > 0 && v.cursor+int64(len(p)) <= bd.allocated {
		if err := v.writeInPlace(bd, p); err != nil {
			return 0, err
		}
		v.cursor += int64(len(p))
		return len(p), nil
	}

	n, err := v.c.writeAtLocked(v.id, v.cursor, p, v.policy)
	if err != nil {
		return 0, err
	}
	v.cursor += int64(n)
	return n, nil
}

// writeInPlace implements the fast path: zero-fill any gap between the
// old used_length and the cursor, write p, then recompute the checksum
// by streaming over [file_offset, file_offset+new_used) rather than
// materializing the whole payload.
func (v *View) writeInPlace(bd *blockDescriptor, p []byte) error {
	if v.cursor > bd.usedLength {
		if err := v.c.zeroFill(bd.fileOffset+bd.usedLength, v.cursor-bd.usedLength); err != nil {
			return err
		}
	}

	if _, err := v.c.s.WriteAt(p, bd.fileOffset+v.cursor); err != nil {
		return &IOError{Op: "view write", Err: err}
	}

	newUsed := bd.usedLength
	if want := v.cursor + int64(len(p)); want > newUsed {
		newUsed = want
	}

	checksum, err := v.c.streamChecksum(bd.fileOffset, newUsed)
	if err != nil {
		return err
	}

	bd.usedLength = newUsed
	bd.checksum = checksum
	return v.c.persist()
}

// streamChecksum computes the checksum of [off, off+n) by reading and
// hashing it in bounded chunks, the streaming counterpart to hashBytes
// that the in-place write path needs so it never materializes an
// arbitrarily large block just to refresh its checksum.
func (c *Container) streamChecksum(off, n int64) (Checksum, error) {
	h := newStreamingHasher()
	buf := make([]byte, zeroChunkSize)
	for n > 0 {
		w := int64(len(buf))
		if n < w {
			w = n
		}
		if _, err := c.s.ReadAt(buf[:w], off); err != nil {
			return 0, &IOError{Op: "stream checksum", Err: err}
		}
		h.Write(buf[:w])
		off += w
		n -= w
	}
	return h.Sum(), nil
}

// Flush flushes the underlying container.
func (v *View) Flush() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	return v.c.Flush()
}
