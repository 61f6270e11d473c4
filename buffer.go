// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"encoding/binary"
	"io"
)

// Sink is what the Legacy and Zen writers emit into. Both writers use a
// two-pass strategy (placeholder summary, then back-patch), so a sink must
// support seeking in addition to writing (see DESIGN.md, §9 design note).
type Sink interface {
	io.Writer
	io.Seeker
}

// Source is a seekable byte source. The Legacy and Zen readers in this
// package do not take one: they parse in-memory byte slices through
// byteReader, whose bounds-checked reads report a short read as
// ErrTableOutOfBounds (KindMalformedInput).
type Source interface {
	io.Reader
	io.Seeker
}

// BufferSink is the canonical in-memory Sink: a growable byte buffer
// addressed by an explicit write cursor.
type BufferSink struct {
	buf []byte
	pos int64
}

// NewBufferSink returns an empty BufferSink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *BufferSink) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.pos + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return 0, ErrSourceClosed
	}
	if next < 0 {
		return 0, ErrSourceClosed
	}
	s.pos = next
	return s.pos, nil
}

// Bytes returns the buffer accumulated so far.
func (s *BufferSink) Bytes() []byte { return s.buf }

// Len returns the current buffer length, independent of the write cursor.
func (s *BufferSink) Len() int { return len(s.buf) }

// byteReader is a bounds-checked cursor over a read-only buffer, the shape
// saferwall-pe's ReadUint32/ReadUint16/ReadBytesAtOffset take over a mmap'd
// file (helper.go in the teacher repo); here it's a free-standing cursor
// rather than a method set on a big File struct, since both Legacy and Zen
// models parse several independent tables from the same buffer.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) remaining() int { return len(r.buf) - r.pos }

func (r *byteReader) seek(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return newError(KindMalformedInput, ErrTableOutOfBounds, "seek to %d out of bounds (len=%d)", pos, len(r.buf))
	}
	r.pos = pos
	return nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, newError(KindMalformedInput, ErrTableOutOfBounds, "read %d bytes at %d exceeds buffer len %d", n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u16be() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// writeU16, writeU32, writeU64, writeU16BE append little/big endian integers
// to a Sink at its current write cursor.
func writeU8(w Sink, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeU16(w Sink, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU16BE(w Sink, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI32(w Sink, v int32) error { return writeU32(w, uint32(v)) }

func writeU32(w Sink, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI64(w Sink, v int64) error { return writeU64(w, uint64(v)) }

func writeU64(w Sink, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}
