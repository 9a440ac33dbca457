// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"encoding/binary"
	"io"
	"math"
)

const (
	byteOrderBigEndian    = 0x4d4d
	byteOrderLittleEndian = 0x4949

	magicClassic = 42
	magicBigTIFF = 43
)

func newStreamReader(r io.ReaderAt, size int64) *streamReader {
	return &streamReader{
		r:         io.NewSectionReader(r, 0, size),
		size:      size,
		byteOrder: binary.BigEndian,
	}
}

// streamReader is a wrapper around a ReadSeeker that provides methods to read binary data.
// Reads that fail panic with errStop; use catch to contain them.
// Note that this is not thread safe.
type streamReader struct {
	r         io.ReadSeeker
	size      int64
	byteOrder binary.ByteOrder
	bigTIFF   bool

	buf []byte

	readErr error
}

func (e *streamReader) allocateBuf(length int) {
	if length > cap(e.buf) {
		e.buf = make([]byte, length)
	}
}

func (e *streamReader) pos() int64 {
	n, _ := e.r.Seek(0, io.SeekCurrent)
	return n
}

func (e *streamReader) read2() uint16 {
	const n = 2
	e.readNIntoBuf(n)
	return e.byteOrder.Uint16(e.buf[:n])
}

func (e *streamReader) read4() uint32 {
	const n = 4
	e.readNIntoBuf(n)
	return e.byteOrder.Uint32(e.buf[:n])
}

func (e *streamReader) read8() uint64 {
	const n = 8
	e.readNIntoBuf(n)
	return e.byteOrder.Uint64(e.buf[:n])
}

// readOffset reads a file offset, which is 8 bytes wide in BigTIFF and 4 bytes otherwise.
func (e *streamReader) readOffset() uint64 {
	if e.bigTIFF {
		return e.read8()
	}
	return uint64(e.read4())
}

// readEntryCount reads the number of entries in an IFD.
func (e *streamReader) readEntryCount() uint64 {
	if e.bigTIFF {
		return e.read8()
	}
	return uint64(e.read2())
}

// inlineSize is the size of the value slot in a directory entry.
func (e *streamReader) inlineSize() uint64 {
	if e.bigTIFF {
		return 8
	}
	return 4
}

// readBytes reads n bytes into a new slice owned by the caller.
func (e *streamReader) readBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(e.r, b); err != nil {
		e.stop(err)
	}
	return b
}

func (e *streamReader) readNIntoBuf(n int) {
	if err := e.readNIntoBufE(n); err != nil {
		e.stop(err)
	}
}

func (e *streamReader) readNIntoBufE(n int) error {
	e.allocateBuf(n)
	n2, err := io.ReadFull(e.r, e.buf[:n])
	if err != nil {
		return err
	}
	if n != n2 {
		return errShortRead
	}
	return nil
}

func (e *streamReader) preservePos(f func()) {
	pos := e.pos()
	defer e.seek(pos)
	f()
}

func (e *streamReader) seek(pos int64) {
	if pos < 0 || pos > e.size {
		e.stop(newInvalidFormatErrorf("offset %d outside of file (size %d)", pos, e.size))
	}
	if _, err := e.r.Seek(pos, io.SeekStart); err != nil {
		e.stop(err)
	}
}

// seekOffset seeks to an offset read from the file.
func (e *streamReader) seekOffset(off uint64) {
	if off > math.MaxInt64 {
		e.stop(newInvalidFormatErrorf("offset %d overflows", off))
	}
	e.seek(int64(off))
}

func (e *streamReader) skip(n int64) {
	if _, err := e.r.Seek(n, io.SeekCurrent); err != nil {
		e.stop(err)
	}
}

func (e *streamReader) stop(err error) {
	if err != nil {
		e.readErr = err
	}
	panic(errStop)
}

// catch runs f and converts a stop (or any other panic) into an error.
func (e *streamReader) catch(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if r == errStop {
			err = e.readErr
			e.readErr = nil
			if err == nil {
				err = errShortRead
			}
			return
		}
		err = errFromRecover(r)
	}()
	f()
	return nil
}
