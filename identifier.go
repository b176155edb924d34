// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// IdentifierKind discriminates the variant carried by an Identifier.
type IdentifierKind uint8

const (
	// IdentString addresses a block by a UTF-8 string.
	IdentString IdentifierKind = iota
	// IdentUint64 addresses a block by a 64-bit unsigned integer.
	IdentUint64
	// IdentBytes addresses a block by an arbitrary byte string.
	IdentBytes
	// IdentPath addresses a block by a finite ordered sequence of
	// identifiers.
	IdentPath
)

// Identifier is the key under which a block is stored in a container. It
// is a tagged value over four variants (string, u64, bytes, path of
// identifiers). Equality and ordering are structural: identifiers of
// different variants are never equal even when they stringify the same,
// per the discriminant-first comparison below.
type Identifier struct {
	kind  IdentifierKind
	str   string
	u64   uint64
	bytes []byte
	path  []Identifier
}

// StringID returns a string-variant Identifier.
func StringID(s string) Identifier { return Identifier{kind: IdentString, str: s} }

// Uint64ID returns a u64-variant Identifier.
func Uint64ID(n uint64) Identifier { return Identifier{kind: IdentUint64, u64: n} }

// BytesID returns a byte-string-variant Identifier. b is copied.
func BytesID(b []byte) Identifier {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Identifier{kind: IdentBytes, bytes: cp}
}

// PathID returns a path-variant Identifier: a finite ordered sequence of
// identifiers, addressed recursively.
func PathID(elems ...Identifier) Identifier {
	cp := make([]Identifier, len(elems))
	copy(cp, elems)
	return Identifier{kind: IdentPath, path: cp}
}

// Kind reports which variant id carries.
func (id Identifier) Kind() IdentifierKind { return id.kind }

// StringValue returns the string payload; valid only if Kind() == IdentString.
func (id Identifier) StringValue() string { return id.str }

// Uint64Value returns the u64 payload; valid only if Kind() == IdentUint64.
func (id Identifier) Uint64Value() uint64 { return id.u64 }

// BytesValue returns the byte-string payload; valid only if Kind() == IdentBytes.
func (id Identifier) BytesValue() []byte { return id.bytes }

// PathValue returns the path elements; valid only if Kind() == IdentPath.
func (id Identifier) PathValue() []Identifier { return id.path }

// Equal reports whether id and other address the same block. Identifiers
// of different variants are never equal.
func (id Identifier) Equal(other Identifier) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case IdentString:
		return id.str == other.str
	case IdentUint64:
		return id.u64 == other.u64
	case IdentBytes:
		return bytes.Equal(id.bytes, other.bytes)
	case IdentPath:
		if len(id.path) != len(other.path) {
			return false
		}
		for i := range id.path {
			if !id.path[i].Equal(other.path[i]) {
				return false
			}
		}
		return true
	default:
		panic("dccf: invalid identifier kind")
	}
}

// Less orders identifiers: by variant discriminant first, then by
// payload. Paths compare lexicographically over their element sequence.
func (id Identifier) Less(other Identifier) bool {
	if id.kind != other.kind {
		return id.kind < other.kind
	}
	switch id.kind {
	case IdentString:
		return id.str < other.str
	case IdentUint64:
		return id.u64 < other.u64
	case IdentBytes:
		return bytes.Compare(id.bytes, other.bytes) < 0
	case IdentPath:
		for i := 0; i < len(id.path) && i < len(other.path); i++ {
			if id.path[i].Equal(other.path[i]) {
				continue
			}
			return id.path[i].Less(other.path[i])
		}
		return len(id.path) < len(other.path)
	default:
		panic("dccf: invalid identifier kind")
	}
}

// String renders a debugging representation; it is not used for equality
// or persistence.
func (id Identifier) String() string {
	switch id.kind {
	case IdentString:
		return strconv.Quote(id.str)
	case IdentUint64:
		return strconv.FormatUint(id.u64, 10)
	case IdentBytes:
		return fmt.Sprintf("%x", id.bytes)
	case IdentPath:
		parts := make([]string, len(id.path))
		for i, e := range id.path {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%v", parts)
	default:
		return "<invalid identifier>"
	}
}

// key returns a canonical, variant-injective byte string used only as an
// in-process map key for the block table. It is never persisted; the
// wire encoding of an Identifier is produced by encodeIdentifier in
// footer.go.
func (id Identifier) key() string {
	var b bytes.Buffer
	id.writeKey(&b)
	return b.String()
}

func (id Identifier) writeKey(b *bytes.Buffer) {
	b.WriteByte(byte(id.kind))
	switch id.kind {
	case IdentString:
		writeLenPrefixed(b, []byte(id.str))
	case IdentUint64:
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(id.u64 >> (56 - 8*i))
		}
		b.Write(tmp[:])
	case IdentBytes:
		writeLenPrefixed(b, id.bytes)
	case IdentPath:
		var tmp [8]byte
		n := uint64(len(id.path))
		for i := 0; i < 8; i++ {
			tmp[i] = byte(n >> (56 - 8*i))
		}
		b.Write(tmp[:])
		for _, e := range id.path {
			e.writeKey(b)
		}
	default:
		panic("dccf: invalid identifier kind")
	}
}

func writeLenPrefixed(b *bytes.Buffer, v []byte) {
	var tmp [8]byte
	n := uint64(len(v))
	for i := 0; i < 8; i++ {
		tmp[i] = byte(n >> (56 - 8*i))
	}
	b.Write(tmp[:])
	b.Write(v)
}

// sortIdentifiers sorts a slice of identifiers using Identifier.Less.
func sortIdentifiers(ids []Identifier) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
