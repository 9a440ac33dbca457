// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta_test

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/geotiffkit/tiffmeta"
)

// testEntry is a directory entry to be written by tiffBuilder.
type testEntry struct {
	code  uint16
	typ   tiffmeta.FieldType
	count uint64
	data  any

	// offset, if set, is written to the value slot instead of the data.
	offset uint64
	// sub, if set, is written as a private IFD the entry points to.
	sub []testEntry
}

func shortTag(code uint16, v ...uint16) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeShort, count: uint64(len(v)), data: v}
}

func longTag(code uint16, v ...uint32) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeLong, count: uint64(len(v)), data: v}
}

func long8Tag(code uint16, v ...uint64) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeLong8, count: uint64(len(v)), data: v}
}

func doubleTag(code uint16, v ...float64) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeDouble, count: uint64(len(v)), data: v}
}

func floatTag(code uint16, v ...float32) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeFloat, count: uint64(len(v)), data: v}
}

// rationalTag takes numerator/denominator pairs.
func rationalTag(code uint16, v ...uint32) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeRational, count: uint64(len(v) / 2), data: v}
}

func asciiTag(code uint16, s string) testEntry {
	b := append([]byte(s), 0)
	return testEntry{code: code, typ: tiffmeta.TypeASCII, count: uint64(len(b)), data: b}
}

func undefinedTag(code uint16, b []byte) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeUndefined, count: uint64(len(b)), data: b}
}

func subIFDTag(code uint16, entries ...testEntry) testEntry {
	return testEntry{code: code, typ: tiffmeta.TypeLong, count: 1, sub: entries}
}

// imageTags returns the tags of a minimal uncompressed 8 bit grayscale image
// followed by extra.
func imageTags(w, h uint16, extra ...testEntry) []testEntry {
	tags := []testEntry{
		shortTag(tiffmeta.TagImageWidth, w),
		shortTag(tiffmeta.TagImageLength, h),
		shortTag(tiffmeta.TagBitsPerSample, 8),
		shortTag(tiffmeta.TagCompression, 1),
		shortTag(tiffmeta.TagPhotometric, 1),
		longTag(tiffmeta.TagStripOffsets, 8),
		shortTag(tiffmeta.TagSamplesPerPixel, 1),
		shortTag(tiffmeta.TagRowsPerStrip, h),
		longTag(tiffmeta.TagStripByteCounts, uint32(w)*uint32(h)),
	}
	return append(tags, extra...)
}

// byteOrder is implemented by binary.LittleEndian and binary.BigEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// tiffBuilder writes a TIFF or BigTIFF file with the given IFDs and no pixel data.
type tiffBuilder struct {
	order byteOrder
	big   bool
	ifds  [][]testEntry

	// cycle links the last IFD back to the first.
	cycle bool
}

func newTIFF(ifds ...[]testEntry) *tiffBuilder {
	return &tiffBuilder{order: binary.LittleEndian, ifds: ifds}
}

func (b *tiffBuilder) bigEndian() *tiffBuilder {
	b.order = binary.BigEndian
	return b
}

func (b *tiffBuilder) bigTIFF() *tiffBuilder {
	b.big = true
	return b
}

func (b *tiffBuilder) withCycle() *tiffBuilder {
	b.cycle = true
	return b
}

func (b *tiffBuilder) bytes() []byte {
	w := &tiffWriter{order: b.order, big: b.big}
	if b.order == binary.BigEndian {
		w.buf = append(w.buf, 'M', 'M')
	} else {
		w.buf = append(w.buf, 'I', 'I')
	}
	if b.big {
		w.u16(43)
		w.u16(8)
		w.u16(0)
		w.u64(0)
	} else {
		w.u16(42)
		w.u32(0)
	}

	next := len(w.buf) - w.offsetSize()
	var first int
	for i, entries := range b.ifds {
		off, nextPos := w.writeIFD(entries)
		if i == 0 {
			first = off
		}
		w.putOffset(next, uint64(off))
		next = nextPos
	}
	if b.cycle {
		w.putOffset(next, uint64(first))
	}
	return w.buf
}

func (b *tiffBuilder) reader() *bytes.Reader {
	return bytes.NewReader(b.bytes())
}

type tiffWriter struct {
	order byteOrder
	big   bool
	buf   []byte
}

func (w *tiffWriter) offsetSize() int {
	if w.big {
		return 8
	}
	return 4
}

func (w *tiffWriter) u16(v uint16) { w.buf = w.order.AppendUint16(w.buf, v) }
func (w *tiffWriter) u32(v uint32) { w.buf = w.order.AppendUint32(w.buf, v) }
func (w *tiffWriter) u64(v uint64) { w.buf = w.order.AppendUint64(w.buf, v) }

func (w *tiffWriter) align() {
	if len(w.buf)%2 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *tiffWriter) putOffset(pos int, off uint64) {
	if w.big {
		w.order.PutUint64(w.buf[pos:], off)
	} else {
		w.order.PutUint32(w.buf[pos:], uint32(off))
	}
}

func (w *tiffWriter) encode(data any) []byte {
	var bb bytes.Buffer
	if err := binary.Write(&bb, w.order, data); err != nil {
		panic(fmt.Sprintf("encode %T: %v", data, err))
	}
	return bb.Bytes()
}

// writeIFD writes an entry table followed by its out of line values and
// returns its offset and the position of its next IFD offset.
func (w *tiffWriter) writeIFD(entries []testEntry) (int, int) {
	w.align()
	off := len(w.buf)
	if w.big {
		w.u64(uint64(len(entries)))
	} else {
		w.u16(uint16(len(entries)))
	}
	slots := make([]int, len(entries))
	for i, e := range entries {
		w.u16(e.code)
		w.u16(uint16(e.typ))
		if w.big {
			w.u64(e.count)
		} else {
			w.u32(uint32(e.count))
		}
		slots[i] = len(w.buf)
		w.buf = append(w.buf, make([]byte, w.offsetSize())...)
	}
	nextPos := len(w.buf)
	w.buf = append(w.buf, make([]byte, w.offsetSize())...)

	for i, e := range entries {
		w.writeValue(slots[i], e)
	}
	return off, nextPos
}

func (w *tiffWriter) writeValue(slot int, e testEntry) {
	if e.sub != nil {
		sub, _ := w.writeIFD(e.sub)
		copy(w.buf[slot:], w.encode(uint32(sub)))
		return
	}
	if e.offset != 0 {
		w.putOffset(slot, e.offset)
		return
	}
	data := w.encode(e.data)
	if len(data) <= w.offsetSize() {
		copy(w.buf[slot:], data)
		return
	}
	w.align()
	pos := len(w.buf)
	w.buf = append(w.buf, data...)
	w.putOffset(slot, uint64(pos))
}
