// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The defragmenter: repeatedly relocates the block just past the first
// hole into that hole (or an earlier one), then slides the footer left
// once no holes remain. Every iteration strictly decreases the hole
// area preceding the last block, so the loop terminates.

package dccf

// Defragment eliminates all holes and repositions the footer
// immediately after the last block. Relocated blocks are always
// reinserted with NoOverallocation, regardless of the Container's usual
// growth policy, so defragmentation never grows an allocation. It is
// not crash-safe between iterations.
func (c *Container) Defragment() error {
	if c.view != nil {
		return &InvalidArgumentError{"Defragment: a view is checked out on this container"}
	}
	for {
		holeOff, ok := c.footer.free.lowestOffset()
		if !ok {
			break
		}

		bd := c.blockJustPast(holeOff)
		if bd == nil {
			break
		}

		metadata, payload, err := c.Read(bd.id)
		if err != nil {
			return err
		}
		c.release(bd.fileOffset, bd.allocated)
		delete(c.footer.blocks, bd.id.key())

		if err := c.insertLocked(bd.id, metadata, payload, NoOverallocation()); err != nil {
			return err
		}
	}

	if off, ok := c.footer.free.lowestOffset(); ok {
		c.header.footerOffset = off
		c.footer.free.remove(off)
	}

	return c.persist()
}

// blockJustPast returns the descriptor with the smallest fileOffset
// strictly greater than off, among blocks with a nonzero allocation, or
// nil if none exists.
func (c *Container) blockJustPast(off int64) *blockDescriptor {
	var best *blockDescriptor
	for _, bd := range c.footer.blocks {
		if bd.allocated == 0 || bd.fileOffset <= off {
			continue
		}
		if best == nil || bd.fileOffset < best.fileOffset {
			best = bd
		}
	}
	return best
}

// DefragmentThenTruncate defragments and then truncates the underlying
// storage to header.footerOffset + footer.footerLength. Truncation
// failure is reported as-is, without rolling back the defragment that
// already completed and was already persisted.
func (c *Container) DefragmentThenTruncate() error {
	if err := c.Defragment(); err != nil {
		return err
	}
	t, ok := c.s.(Truncater)
	if !ok {
		return &InvalidArgumentError{"DefragmentThenTruncate: storage does not support truncation"}
	}
	newSize := c.header.footerOffset + c.header.footerLength
	if err := t.Truncate(newSize); err != nil {
		return &IOError{Op: "truncate", Err: err}
	}
	return nil
}
