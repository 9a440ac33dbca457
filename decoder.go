// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func newTIFFDecoder(src Source, opts Options) *tiffDecoder {
	return &tiffDecoder{
		streamReader: newStreamReader(src, src.Size()),
		opts:         opts,
		log:          opts.Logger,
	}
}

type tiffDecoder struct {
	*streamReader
	opts Options
	log  *zap.Logger
}

// rawEntry is a directory entry before its value has been decoded.
//
// A classic TIFF entry is 12 bytes:
//   - 2 bytes for the tag ID
//   - 2 bytes for the field type
//   - 4 bytes for the number of values of the specified type
//   - 4 bytes for the value itself, if it fits, otherwise an offset to where the data may be found.
//
// BigTIFF widens the count and the value slot to 8 bytes each, 20 bytes in total.
type rawEntry struct {
	code  uint16
	typ   FieldType
	count uint64
	slot  []byte
}

// decodeHeader reads the byte order mark and magic number and returns the offset of IFD 0.
func (e *tiffDecoder) decodeHeader() (uint64, error) {
	var first uint64
	err := e.catch(func() {
		switch e.read2() {
		case byteOrderBigEndian:
			e.byteOrder = binary.BigEndian
		case byteOrderLittleEndian:
			e.byteOrder = binary.LittleEndian
		default:
			e.stop(newInvalidFormatErrorf("unknown byte order mark"))
		}

		switch e.read2() {
		case magicClassic:
		case magicBigTIFF:
			e.bigTIFF = true
			if offsetSize := e.read2(); offsetSize != 8 {
				e.stop(newInvalidFormatErrorf("unsupported BigTIFF offset size %d", offsetSize))
			}
			e.skip(2)
		default:
			e.stop(newInvalidFormatErrorf("unknown magic number"))
		}
		first = e.readOffset()
	})
	if err != nil {
		if isInvalidFormatErrorCandidate(err) {
			return 0, errors.Wrap(ErrInvalidFormat, "truncated header")
		}
		return 0, err
	}
	headerSize := uint64(8)
	if e.bigTIFF {
		headerSize = 16
	}
	if first < headerSize {
		return 0, newInvalidFormatErrorf("first IFD offset %d inside header", first)
	}
	return first, nil
}

// decode walks the IFD chain.
func (e *tiffDecoder) decode() ([]*Ifd, error) {
	off, err := e.decodeHeader()
	if err != nil {
		return nil, err
	}

	var ifds []*Ifd
	visited := make(map[uint64]bool)

	for off != 0 {
		if len(ifds) >= e.opts.LimitIFDs {
			e.log.Warn("IFD limit reached", zap.Int("limit", e.opts.LimitIFDs))
			break
		}
		if visited[off] {
			e.log.Warn("IFD chain cycle detected", zap.Uint64("offset", off))
			break
		}
		visited[off] = true

		index := len(ifds)
		tags, next, err := e.decodeIFD(index, off)
		if err != nil {
			if !errors.Is(err, ErrInvalidFormat) && !isInvalidFormatErrorCandidate(err) {
				return nil, &ResourceError{Op: "read", Err: err}
			}
			e.log.Warn("skipping unreadable IFD", fieldIFD(index), zap.Uint64("offset", off), zap.Error(err))
			break
		}
		if index == 0 {
			tags = enrichMainIFD(tags, e.opts.Raster, e.log)
		}
		ifds = append(ifds, newIfd(index, off, e.opts.Scope, tags))
		off = next
	}

	if len(ifds) == 0 {
		return nil, ErrNoIFDs
	}
	return ifds, nil
}

// decodeIFD decodes the IFD at off and returns its tags and the offset of the next IFD.
// A failing entry is skipped; only an unreadable entry table fails the IFD.
func (e *tiffDecoder) decodeIFD(index int, off uint64) ([]TiffTag, uint64, error) {
	entries, err := e.readEntries(off)
	if err != nil {
		return nil, 0, err
	}

	var next uint64
	if err := e.catch(func() { next = e.readOffset() }); err != nil {
		// The entries are intact; treat the chain as terminated.
		e.log.Debug("could not read next IFD offset", fieldIFD(index), zap.Error(err))
		next = 0
	}

	tags := make([]TiffTag, 0, len(entries))
	for _, re := range entries {
		t, err := e.decodeTag(index, re)
		if err != nil {
			e.tagError(index, re.code, err)
			continue
		}
		tags = append(tags, t)
	}
	return tags, next, nil
}

// readEntries reads the entry table of the IFD at off, leaving the
// reader positioned at the next-IFD offset.
func (e *tiffDecoder) readEntries(off uint64) ([]rawEntry, error) {
	var entries []rawEntry
	err := e.catch(func() {
		e.seekOffset(off)
		n := e.readEntryCount()
		if n > uint64(e.opts.LimitNumTags) {
			e.stop(newInvalidFormatErrorf("IFD has %d entries, limit is %d", n, e.opts.LimitNumTags))
		}
		entries = make([]rawEntry, n)
		for i := range entries {
			entries[i] = e.readEntry()
		}
	})
	return entries, err
}

func (e *tiffDecoder) readEntry() rawEntry {
	var re rawEntry
	re.code = e.read2()
	re.typ = FieldType(e.read2())
	if e.bigTIFF {
		re.count = e.read8()
	} else {
		re.count = uint64(e.read4())
	}
	re.slot = e.readBytes(int(e.inlineSize()))
	return re
}

// readEntryValue decodes the value of re, following the offset when the
// value does not fit in the inline slot.
func (e *tiffDecoder) readEntryValue(re rawEntry) (TagValue, error) {
	size, found := fieldTypeSize[re.typ]
	if !found {
		return nil, fmt.Errorf("unknown field type %d", re.typ)
	}
	if re.count == 0 {
		return nil, fmt.Errorf("zero count")
	}
	if re.count > uint64(e.opts.LimitTagSize)/size {
		return nil, fmt.Errorf("value of %d x %s exceeds limit of %d bytes", re.count, re.typ, e.opts.LimitTagSize)
	}
	n := size * re.count

	if n <= e.inlineSize() {
		return decodeValue(re.typ, re.count, re.slot[:n], e.byteOrder), nil
	}

	var off uint64
	if e.bigTIFF {
		off = e.byteOrder.Uint64(re.slot)
	} else {
		off = uint64(e.byteOrder.Uint32(re.slot))
	}
	if off+n > uint64(e.size) {
		return nil, fmt.Errorf("value at offset %d (%d bytes) extends past end of file", off, n)
	}

	var b []byte
	if err := e.catch(func() {
		e.preservePos(func() {
			e.seekOffset(off)
			b = e.readBytes(int(n))
		})
	}); err != nil {
		return nil, err
	}
	return decodeValue(re.typ, re.count, b, e.byteOrder), nil
}

func (e *tiffDecoder) decodeTag(index int, re rawEntry) (t TiffTag, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFromRecover(r)
		}
	}()

	v, err := e.readEntryValue(re)
	if err != nil {
		return t, err
	}

	t = TiffTag{
		Code:  re.code,
		Name:  TagName(re.code),
		Type:  re.typ,
		Count: re.count,
	}

	if convert, found := valueConverterMap[re.code]; found {
		ctx := valueConverterContext{d: e, ifd: index, code: re.code}
		v, t.Interpretation, err = convert(ctx, v)
		if err != nil {
			return t, err
		}
	} else {
		v, t.Interpretation = converters.convertGeneric(re.code, v)
	}
	t.Value = v

	return t, nil
}

// decodeSubIFD decodes the private EXIF, GPS or Interoperability IFD at off.
// Entries get the same conversions as top level tags. Nested pointers are
// not followed.
func (e *tiffDecoder) decodeSubIFD(index int, pointer uint16, off uint64) ([]TiffTag, error) {
	var entries []rawEntry
	var err error
	e.preservePos(func() {
		entries, err = e.readEntries(off)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read sub-IFD at offset %d", off)
	}

	names := subIFDTagNames(pointer)
	tags := make([]TiffTag, 0, len(entries))
	for _, re := range entries {
		v, err := e.readEntryValue(re)
		if err != nil {
			e.log.Debug("skipping sub-IFD entry", fieldIFD(index), fieldTag(pointer), zap.Uint16("entry", re.code), zap.Error(err))
			continue
		}
		name, found := names[re.code]
		if !found {
			name = fmt.Sprintf("UnknownTag (%d)", re.code)
		}
		t := TiffTag{Code: re.code, Name: name, Type: re.typ, Count: re.count}
		if convert, found := valueConverterMap[re.code]; found && !subIFDPointerTags[re.code] {
			ctx := valueConverterContext{d: e, ifd: index, code: re.code}
			if v, t.Interpretation, err = convert(ctx, v); err != nil {
				e.log.Debug("skipping sub-IFD entry", fieldIFD(index), fieldTag(pointer), zap.Uint16("entry", re.code), zap.Error(err))
				continue
			}
		} else {
			v, t.Interpretation = converters.convertGeneric(re.code, v)
		}
		t.Value = v
		tags = append(tags, t)
	}
	return tags, nil
}

func (e *tiffDecoder) tagError(index int, code uint16, err error) {
	tagErr := &TagDecodeError{IFD: index, Code: code, Err: err}
	e.log.Warn("skipping tag", fieldIFD(index), fieldTag(code), zap.String("name", TagName(code)), zap.Error(err))
	if e.opts.OnTagError != nil {
		e.opts.OnTagError(tagErr)
	}
}

func fieldIFD(index int) zap.Field {
	return zap.Int("ifd", index)
}

func fieldTag(code uint16) zap.Field {
	return zap.Uint16("tag", code)
}
