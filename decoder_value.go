// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"encoding/binary"
	"math"
)

// decodeValue decodes count values of type typ from b.
// b must hold exactly count*fieldTypeSize[typ] bytes.
//
// Single numeric values become Integer or Float, multiple values
// IntegerArray or FloatArray. Rationals are never divided: they are kept
// as numerator/denominator pairs in an IntegerArray. ASCII becomes Text,
// unsanitized, and BYTE/UNDEFINED sequences become RawBytes.
func decodeValue(typ FieldType, count uint64, b []byte, bo binary.ByteOrder) TagValue {
	n := int(count)
	switch typ {
	case TypeASCII:
		return Text(decodeUTF8(b))
	case TypeByte, TypeUndefined:
		if n == 1 {
			return Integer(b[0])
		}
		return RawBytes(append([]byte(nil), b...))
	case TypeSByte:
		return intValues(n, func(i int) int64 { return int64(int8(b[i])) })
	case TypeShort:
		return intValues(n, func(i int) int64 { return int64(bo.Uint16(b[i*2:])) })
	case TypeSShort:
		return intValues(n, func(i int) int64 { return int64(int16(bo.Uint16(b[i*2:]))) })
	case TypeLong, TypeIFD:
		return intValues(n, func(i int) int64 { return int64(bo.Uint32(b[i*4:])) })
	case TypeSLong:
		return intValues(n, func(i int) int64 { return int64(int32(bo.Uint32(b[i*4:]))) })
	case TypeLong8, TypeIFD8, TypeSLong8:
		// LONG8 values above math.MaxInt64 wrap; no real file uses them.
		return intValues(n, func(i int) int64 { return int64(bo.Uint64(b[i*8:])) })
	case TypeRational:
		v := make(IntegerArray, 2*n)
		for i := range v {
			v[i] = int64(bo.Uint32(b[i*4:]))
		}
		return v
	case TypeSRational:
		v := make(IntegerArray, 2*n)
		for i := range v {
			v[i] = int64(int32(bo.Uint32(b[i*4:])))
		}
		return v
	case TypeFloat:
		return floatValues(n, func(i int) float64 { return float64(math.Float32frombits(bo.Uint32(b[i*4:]))) })
	case TypeDouble:
		return floatValues(n, func(i int) float64 { return math.Float64frombits(bo.Uint64(b[i*8:])) })
	}
	return RawBytes(append([]byte(nil), b...))
}

func intValues(n int, at func(i int) int64) TagValue {
	if n == 1 {
		return Integer(at(0))
	}
	v := make(IntegerArray, n)
	for i := range v {
		v[i] = at(i)
	}
	return v
}

func floatValues(n int, at func(i int) float64) TagValue {
	if n == 1 {
		return Float(at(0))
	}
	v := make(FloatArray, n)
	for i := range v {
		v[i] = at(i)
	}
	return v
}
