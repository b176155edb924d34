// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dccf implements a single-file mutable block container: a
// storage format and engine for a file holding an arbitrary collection
// of independently addressable, mutable binary blocks plus one
// container-wide metadata value.
//
// A container is conceptually a zip-or-tar archive that supports
// in-place replacement, deletion and growth of its members without
// rewriting the whole file. Reads are checksum-verified; free space left
// behind by deletes and shrinking replacements is tracked explicitly and
// reused by later inserts.
//
// The package does not interpret block payloads or the container's
// metadata values beyond treating them as, respectively, opaque bytes
// and a self-describing dynamic value (nil, bool, integer, float,
// string, []byte, slice or map). Typed (de)serialization, compression
// and any command-line wrapping live one layer above this package.
//
// A Container is not safe for concurrent use by multiple goroutines,
// and is not crash-safe: a process that dies mid-write can leave the
// footer corrupted, which Open detects via checksum on the next open
// rather than repairing.
package dccf
