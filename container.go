// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The block engine: the single writer to container storage, turning
// identifier-keyed insert/delete/read/partial-read/partial-write calls
// into allocator reservations plus a terminal footer+header rewrite.

package dccf

// zeroChunkSize bounds how much zero-fill is materialized in memory at
// once when clearing a tail or a write gap.
const zeroChunkSize = 64 * 1024

// Container is the single-writer block engine bound to one Storage. It
// is not safe for concurrent use.
type Container struct {
	s      Storage
	header *containerHeader
	footer *containerFooter
	alloc  *allocator

	view *View // the single outstanding streaming view, if any
}

// Create initializes a brand-new container on s: an empty footer
// immediately after the header, and both written out.
func Create(s Storage) (*Container, error) {
	c := &Container{
		s:      s,
		header: &containerHeader{version: headerVersion, footerOffset: headerSize},
		footer: newContainerFooter(),
	}
	c.alloc = newAllocator(c.footer.free, &c.header.footerOffset)
	if err := c.persist(); err != nil {
		return nil, err
	}
	return c, nil
}

// Open reads and validates the header and footer of an existing
// container on s.
func Open(s Storage) (*Container, error) {
	h, err := readHeader(s)
	if err != nil {
		return nil, err
	}
	f, err := readFooter(s, h)
	if err != nil {
		return nil, err
	}
	c := &Container{s: s, header: h, footer: f}
	c.alloc = newAllocator(c.footer.free, &c.header.footerOffset)
	return c, nil
}

// persist serializes and checksums the footer, then writes the header
// carrying the footer's new length and checksum. Storage is
// absolute-offset addressed, so there is no stream position to restore.
func (c *Container) persist() error {
	length, checksum, err := writeFooter(c.s, c.footer, c.header.footerOffset)
	if err != nil {
		return err
	}
	c.header.footerLength = length
	c.header.footerChecksum = checksum
	return writeHeader(c.s, c.header)
}

// Flush calls the underlying Storage's Flush method, if it implements
// Flusher. Container destruction never implies a flush; callers must
// call this explicitly.
func (c *Container) Flush() error {
	if f, ok := c.s.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying Storage. It does not flush first; call
// Flush before Close when durability matters.
func (c *Container) Close() error {
	return c.s.Close()
}

func (c *Container) descriptor(id Identifier) (*blockDescriptor, bool) {
	bd, ok := c.footer.blocks[id.key()]
	return bd, ok
}

// release returns an extent to the free-space tracker and, when the
// underlying Storage implements HolePuncher, asks it to reclaim the
// range on disk immediately. Errors from PunchHole are intentionally
// swallowed: it's a best-effort reclamation, and the footer's free-space
// tracker remains the authoritative record of what's free.
func (c *Container) release(off, length int64) {
	c.alloc.release(off, length)
	c.punchHole(off, length)
}

func (c *Container) punchHole(off, length int64) {
	if length <= 0 {
		return
	}
	if hp, ok := c.s.(HolePuncher); ok {
		_ = hp.PunchHole(off, length)
	}
}

// zeroFill writes n zero bytes at off, in bounded chunks.
func (c *Container) zeroFill(off, n int64) error {
	if n <= 0 {
		return nil
	}
	chunk := make([]byte, zeroChunkSize)
	for n > 0 {
		w := int64(len(chunk))
		if n < w {
			w = n
		}
		if _, err := c.s.WriteAt(chunk[:w], off); err != nil {
			return &IOError{Op: "zero-fill", Err: err}
		}
		off += w
		n -= w
	}
	return nil
}

// Insert stores payload under id with replace-or-add semantics, zeroes
// any allocated tail past the payload, and persists the footer and
// header. policy governs only the case where the allocator must grow
// the block region; it has no effect when an existing hole is reused.
func (c *Container) Insert(id Identifier, metadata interface{}, payload []byte, policy OverallocationPolicy) error {
	if c.view != nil {
		return &InvalidArgumentError{"Insert: a view is checked out on this container"}
	}
	if err := c.insertLocked(id, metadata, payload, policy); err != nil {
		return err
	}
	return c.persist()
}

// insertLocked performs the replace-or-add bookkeeping and payload I/O
// of insert without the terminal persist, shared by Insert, WriteAt's
// rebuild path, and Defragment's per-block relocation.
func (c *Container) insertLocked(id Identifier, metadata interface{}, payload []byte, policy OverallocationPolicy) error {
	checksum := hashBytes(payload)

	if old, ok := c.descriptor(id); ok {
		if old.allocated > 0 {
			c.release(old.fileOffset, old.allocated)
		}
		delete(c.footer.blocks, id.key())
	}

	bd := &blockDescriptor{id: id, checksum: checksum, metadata: metadata}
	if len(payload) == 0 {
		c.footer.blocks[id.key()] = bd
		return nil
	}

	off, allocated := c.alloc.reserve(int64(len(payload)), policy)
	bd.fileOffset = off
	bd.usedLength = int64(len(payload))
	bd.allocated = allocated

	if _, err := c.s.WriteAt(payload, off); err != nil {
		return &IOError{Op: "write block", Err: err}
	}
	if err := c.zeroFill(off+int64(len(payload)), allocated-int64(len(payload))); err != nil {
		return err
	}

	c.footer.blocks[id.key()] = bd
	return nil
}

// Delete drops id's descriptor and returns its extent to the
// free-space tracker. Does not write the file or flush;
// the next footer write (Insert, SetContainerMetadata, UpdateMetadata,
// Defragment, or an explicit persist) commits it.
func (c *Container) Delete(id Identifier) (deleted bool, err error) {
	if c.view != nil {
		return false, &InvalidArgumentError{"Delete: a view is checked out on this container"}
	}
	bd, ok := c.descriptor(id)
	if !ok {
		return false, &BlockNotFoundError{ID: id}
	}
	if bd.allocated > 0 {
		c.release(bd.fileOffset, bd.allocated)
	}
	delete(c.footer.blocks, id.key())
	return true, nil
}

// SetContainerMetadata replaces the footer's metadata field and
// immediately persists.
func (c *Container) SetContainerMetadata(value interface{}) error {
	if c.view != nil {
		return &InvalidArgumentError{"SetContainerMetadata: a view is checked out on this container"}
	}
	c.footer.metadata = value
	return c.persist()
}

// ContainerMetadata returns the footer's container-wide metadata value.
func (c *Container) ContainerMetadata() interface{} { return c.footer.metadata }

// Read returns id's metadata and its whole payload, verifying the
// payload against the descriptor's checksum.
func (c *Container) Read(id Identifier) (metadata interface{}, payload []byte, err error) {
	bd, ok := c.descriptor(id)
	if !ok {
		return nil, nil, &BlockNotFoundError{ID: id}
	}
	if bd.allocated == 0 {
		return bd.metadata, []byte{}, nil
	}
	buf := make([]byte, bd.usedLength)
	if _, err := c.s.ReadAt(buf, bd.fileOffset); err != nil {
		return nil, nil, &IOError{Op: "read block", Err: err}
	}
	if hashBytes(buf) != bd.checksum {
		return nil, nil, &BlockChecksumError{ID: id}
	}
	return bd.metadata, buf, nil
}

// ReadSlice reads up to len(buf) payload bytes starting at start. The
// checksum covers the whole used range, so partial reads are not
// verified; spot-verifying is the caller's responsibility.
func (c *Container) ReadSlice(id Identifier, start int64, buf []byte) (int, error) {
	bd, ok := c.descriptor(id)
	if !ok {
		return 0, &BlockNotFoundError{ID: id}
	}
	if bd.allocated == 0 || start >= bd.usedLength {
		return 0, nil
	}
	n := bd.usedLength - start
	if int64(len(buf)) < n {
		n = int64(len(buf))
	}
	if n <= 0 {
		return 0, nil
	}
	got, err := c.s.ReadAt(buf[:n], bd.fileOffset+start)
	if err != nil {
		return got, &IOError{Op: "read_slice", Err: err}
	}
	return got, nil
}

// WriteAt writes data at offset within id's payload, growing the block
// when offset+len(data) exceeds its used length. The payload is rebuilt
// and reinserted, so metadata and tail-zeroing behave identically to a
// fresh insert, and any gap below offset reads back as zeros.
func (c *Container) WriteAt(id Identifier, offset int64, data []byte, policy OverallocationPolicy) (int, error) {
	if c.view != nil {
		return 0, &InvalidArgumentError{"WriteAt: a view is checked out on this container"}
	}
	return c.writeAtLocked(id, offset, data, policy)
}

// writeAtLocked performs write_at's rebuild-and-reinsert logic without
// the view guard, shared by the public WriteAt and by View.Write's
// rebuild path, which is itself the thing the view guard exists to
// block callers other than the view from reaching.
func (c *Container) writeAtLocked(id Identifier, offset int64, data []byte, policy OverallocationPolicy) (int, error) {
	if offset < 0 {
		return 0, &InvalidArgumentError{"WriteAt: negative offset"}
	}

	var oldUsed int64
	var metadata interface{}
	var old []byte
	if bd, ok := c.descriptor(id); ok {
		metadata = bd.metadata
		oldUsed = bd.usedLength
		if bd.allocated > 0 {
			old = make([]byte, bd.usedLength)
			if _, err := c.s.ReadAt(old, bd.fileOffset); err != nil {
				return 0, &IOError{Op: "write_at: read old payload", Err: err}
			}
		}
	}

	newUsed := oldUsed
	if want := offset + int64(len(data)); want > newUsed {
		newUsed = want
	}

	buf := make([]byte, newUsed)
	copy(buf, old)
	copy(buf[offset:], data)

	if err := c.insertLocked(id, metadata, buf, policy); err != nil {
		return 0, err
	}
	if err := c.persist(); err != nil {
		return 0, err
	}
	return len(data), nil
}

// UpdateMetadata replaces id's metadata without touching its payload,
// then persists.
func (c *Container) UpdateMetadata(id Identifier, metadata interface{}) error {
	if c.view != nil {
		return &InvalidArgumentError{"UpdateMetadata: a view is checked out on this container"}
	}
	bd, ok := c.descriptor(id)
	if !ok {
		return &BlockNotFoundError{ID: id}
	}
	bd.metadata = metadata
	return c.persist()
}

// BlockStat reports the caller-visible extent of a block without
// reading or verifying its payload.
type BlockStat struct {
	ID              Identifier
	UsedLength      int64
	AllocatedLength int64
}

// Stat reports id's extent without reading or verifying its payload.
func (c *Container) Stat(id Identifier) (BlockStat, error) {
	bd, ok := c.descriptor(id)
	if !ok {
		return BlockStat{}, &BlockNotFoundError{ID: id}
	}
	return BlockStat{ID: id, UsedLength: bd.usedLength, AllocatedLength: bd.allocated}, nil
}

// Each calls fn once per block with its identifier and metadata, in
// ascending Identifier order, stopping early if fn returns false. No
// payloads are read.
func (c *Container) Each(fn func(id Identifier, metadata interface{}) bool) {
	ids := make([]Identifier, 0, len(c.footer.blocks))
	byKey := map[string]*blockDescriptor{}
	for k, bd := range c.footer.blocks {
		ids = append(ids, bd.id)
		byKey[k] = bd
	}
	sortIdentifiers(ids)
	for _, id := range ids {
		bd := byKey[id.key()]
		if !fn(id, bd.metadata) {
			return
		}
	}
}

// ContainerStat summarizes container-wide occupancy.
type ContainerStat struct {
	BlockCount   int
	HeaderEnd    int64
	FooterOffset int64
	FooterLength int64
	FreeBytes    int64
}

// Occupancy reports container-wide occupancy figures: a convenience
// roll-up over state the footer already holds, useful when deciding
// whether a Defragment is worthwhile.
func (c *Container) Occupancy() ContainerStat {
	return ContainerStat{
		BlockCount:   len(c.footer.blocks),
		HeaderEnd:    headerSize,
		FooterOffset: c.header.footerOffset,
		FooterLength: c.header.footerLength,
		FreeBytes:    c.footer.free.totalFree(),
	}
}
