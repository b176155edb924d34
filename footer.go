// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The self-describing trailing index: container-wide metadata, the
// block table, and the free-space map, encoded as MessagePack via
// github.com/ugorji/go/codec. The codec round-trips bare interface{}
// trees, so metadata values pass through without any schema imposed by
// this package.

package dccf

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// WriteExt selects the current MessagePack spec's distinct str and bin
// wire types, and with it str decodes back into a Go string while bin
// decodes into []byte, so the identifier union's "try string, then
// bytes" order stays decidable. RawToString is left off: it would decode
// bin as a string too, and a Bytes identifier would come back as a
// String one.
var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	return &codec.MsgpackHandle{WriteExt: true}
}

// blockDescriptor is the in-memory per-block record: where the payload
// lives, how much of the allocation is valid for reads, its checksum
// and its metadata.
type blockDescriptor struct {
	id         Identifier
	fileOffset int64
	usedLength int64
	allocated  int64
	checksum   Checksum
	metadata   interface{}
}

// containerFooter is the in-memory index persisted at header.footerOffset.
type containerFooter struct {
	metadata interface{}
	blocks   map[string]*blockDescriptor // keyed by Identifier.key()
	free     *freeSpace
}

func newContainerFooter() *containerFooter {
	return &containerFooter{blocks: map[string]*blockDescriptor{}, free: newFreeSpace()}
}

// wire shapes, exported-field structs so codec can (de)serialize them
// by their codec field tags.

type wireBlockEntry struct {
	ID        interface{} `codec:"id"`
	Offset    int64       `codec:"offset"`
	Used      int64       `codec:"used"`
	Allocated int64       `codec:"allocated"`
	Checksum  uint64      `codec:"checksum"`
	Metadata  interface{} `codec:"metadata"`
}

type wireFooter struct {
	Metadata   interface{}       `codec:"metadata"`
	Blocks     []wireBlockEntry  `codec:"blocks"`
	EmptySpace []emptySpaceEntry `codec:"empty_space"`
}

// encodeIdentifier renders id as a bare interface{} value suitable for
// msgpack's untagged-union wire shape: decoders recover the variant by
// trying string, then uint64, then []byte, then []interface{}, in that
// declared order.
func encodeIdentifier(id Identifier) interface{} {
	switch id.Kind() {
	case IdentString:
		return id.StringValue()
	case IdentUint64:
		return id.Uint64Value()
	case IdentBytes:
		return id.BytesValue()
	case IdentPath:
		elems := id.PathValue()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = encodeIdentifier(e)
		}
		return out
	default:
		panic("dccf: invalid identifier kind")
	}
}

// decodeIdentifier recovers an Identifier from a decoded bare interface{}
// value, trying variants in the declared order (string, u64, bytes,
// path) and accepting the first that parses.
func decodeIdentifier(v interface{}) (Identifier, error) {
	switch x := v.(type) {
	case string:
		return StringID(x), nil
	case uint64:
		return Uint64ID(x), nil
	case int64:
		if x < 0 {
			return Identifier{}, &InvalidArgumentError{"identifier: negative integer"}
		}
		return Uint64ID(uint64(x)), nil
	case []byte:
		return BytesID(x), nil
	case []interface{}:
		elems := make([]Identifier, len(x))
		for i, e := range x {
			sub, err := decodeIdentifier(e)
			if err != nil {
				return Identifier{}, err
			}
			elems[i] = sub
		}
		return PathID(elems...), nil
	default:
		return Identifier{}, &InvalidArgumentError{"identifier: unrecognized wire shape"}
	}
}

// encodeFooter serializes f into the MessagePack byte stream persisted
// at footer_offset.
func encodeFooter(f *containerFooter) ([]byte, error) {
	w := wireFooter{
		Metadata: f.metadata,
		Blocks:   make([]wireBlockEntry, 0, len(f.blocks)),
	}
	for _, bd := range f.blocks {
		w.Blocks = append(w.Blocks, wireBlockEntry{
			ID:        encodeIdentifier(bd.id),
			Offset:    bd.fileOffset,
			Used:      bd.usedLength,
			Allocated: bd.allocated,
			Checksum:  uint64(bd.checksum),
			Metadata:  bd.metadata,
		})
	}
	w.EmptySpace = f.free.entries()

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, msgpackHandle)
	if err := enc.Encode(w); err != nil {
		return nil, &IOError{Op: "encode footer", Err: err}
	}
	return buf.Bytes(), nil
}

// decodeFooter parses the MessagePack byte stream read from
// [footer_offset, footer_offset+footer_length) back into a
// containerFooter.
func decodeFooter(buf []byte) (*containerFooter, error) {
	var w wireFooter
	dec := codec.NewDecoderBytes(buf, msgpackHandle)
	if err := dec.Decode(&w); err != nil {
		return nil, &IOError{Op: "decode footer", Err: err}
	}

	f := newContainerFooter()
	f.metadata = w.Metadata
	for _, e := range w.Blocks {
		id, err := decodeIdentifier(e.ID)
		if err != nil {
			return nil, err
		}
		f.blocks[id.key()] = &blockDescriptor{
			id:         id,
			fileOffset: e.Offset,
			usedLength: e.Used,
			allocated:  e.Allocated,
			checksum:   Checksum(e.Checksum),
			metadata:   e.Metadata,
		}
	}
	f.free = loadFreeSpace(w.EmptySpace)
	return f, nil
}

// readFooter reads and decodes the footer from s per h, verifying its
// checksum against h.footerChecksum.
func readFooter(s Storage, h *containerHeader) (*containerFooter, error) {
	buf := make([]byte, h.footerLength)
	if len(buf) > 0 {
		n, err := s.ReadAt(buf, h.footerOffset)
		if err != nil || int64(n) != h.footerLength {
			if err == nil {
				err = errShortRead
			}
			return nil, &IOError{Op: "read footer", Err: err}
		}
	}
	if hashBytes(buf) != h.footerChecksum {
		return nil, &FooterChecksumError{}
	}
	return decodeFooter(buf)
}

// writeFooter serializes f, writes it at offset, and returns its
// (length, checksum) for the caller to fold into the header before the
// header is rewritten.
func writeFooter(s Storage, f *containerFooter, offset int64) (length int64, checksum Checksum, err error) {
	buf, err := encodeFooter(f)
	if err != nil {
		return 0, 0, err
	}
	checksum = hashBytes(buf)
	if len(buf) > 0 {
		n, err := s.WriteAt(buf, offset)
		if err != nil {
			return 0, 0, &IOError{Op: "write footer", Err: err}
		}
		if n != len(buf) {
			return 0, 0, &IOError{Op: "write footer", Err: errShortWrite}
		}
	}
	return int64(len(buf)), checksum, nil
}
