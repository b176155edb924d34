// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import "github.com/cespare/xxhash/v2"

// checksumSeed is the fixed seed folded into every checksum this
// package computes, over both block payloads and the serialized footer.
const checksumSeed uint64 = 4321

// Checksum is a 64-bit value produced by the fixed-seed streaming hash
// over a byte range.
type Checksum uint64

var seedBytes = func() [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(checksumSeed >> (56 - 8*i))
	}
	return b
}()

// hashBytes computes the one-shot checksum of b.
func hashBytes(b []byte) Checksum {
	d := xxhash.New()
	d.Write(seedBytes[:])
	d.Write(b)
	return Checksum(d.Sum64())
}

// streamingHasher accumulates a checksum incrementally. Its Sum() after
// any sequence of Write calls equals hashBytes of the concatenation of
// everything written, so finalizing a partial write never needs to
// materialize the whole payload in memory.
type streamingHasher struct {
	d *xxhash.Digest
}

// newStreamingHasher returns a hasher already primed with the fixed
// seed, ready to accept payload bytes.
func newStreamingHasher() *streamingHasher {
	d := xxhash.New()
	d.Write(seedBytes[:])
	return &streamingHasher{d: d}
}

func (h *streamingHasher) Write(p []byte) (int, error) { return h.d.Write(p) }

func (h *streamingHasher) Sum() Checksum { return Checksum(h.d.Sum64()) }
