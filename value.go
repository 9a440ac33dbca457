// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TagValue is a decoded tag value.
// It is one of Integer, Float, Text, RawBytes, IntegerArray or FloatArray.
type TagValue interface {
	// String returns a display form of the value.
	String() string

	isTagValue()
}

var (
	_ TagValue = Integer(0)
	_ TagValue = Float(0)
	_ TagValue = Text("")
	_ TagValue = RawBytes(nil)
	_ TagValue = IntegerArray(nil)
	_ TagValue = FloatArray(nil)
)

// Integer is a single integer value (BYTE, SHORT, LONG, LONG8 and their signed variants).
type Integer int64

// Float is a single FLOAT or DOUBLE value.
type Float float64

// Text is a decoded, sanitized string.
type Text string

// RawBytes is an opaque byte payload.
type RawBytes []byte

// IntegerArray holds multiple integer values.
// RATIONAL and SRATIONAL values are stored as interleaved numerator/denominator pairs.
type IntegerArray []int64

// FloatArray holds multiple FLOAT or DOUBLE values.
type FloatArray []float64

func (Integer) isTagValue()      {}
func (Float) isTagValue()        {}
func (Text) isTagValue()         {}
func (RawBytes) isTagValue()     {}
func (IntegerArray) isTagValue() {}
func (FloatArray) isTagValue()   {}

func (v Integer) String() string {
	return strconv.FormatInt(int64(v), 10)
}

func (v Float) String() string {
	return formatFloat(float64(v))
}

func (v Text) String() string {
	return string(v)
}

func (v RawBytes) String() string {
	return fmt.Sprintf("binary data (%d bytes)", len(v))
}

func (v IntegerArray) String() string {
	return "[" + joinInts(v, ", ") + "]"
}

func (v FloatArray) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatFloat(f))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Int returns v as a single integer.
// An IntegerArray of length 1 is accepted.
func Int(v TagValue) (int64, bool) {
	switch vv := v.(type) {
	case Integer:
		return int64(vv), true
	case IntegerArray:
		if len(vv) == 1 {
			return vv[0], true
		}
	}
	return 0, false
}

// Ints returns v as a slice of integers.
// A scalar Integer is returned as a slice of length 1.
func Ints(v TagValue) ([]int64, bool) {
	switch vv := v.(type) {
	case Integer:
		return []int64{int64(vv)}, true
	case IntegerArray:
		return vv, true
	}
	return nil, false
}

// Floats returns v as a slice of floats.
// Scalars and integer values are converted.
func Floats(v TagValue) ([]float64, bool) {
	switch vv := v.(type) {
	case Float:
		return []float64{float64(vv)}, true
	case FloatArray:
		return vv, true
	case Integer:
		return []float64{float64(vv)}, true
	case IntegerArray:
		f := make([]float64, len(vv))
		for i, n := range vv {
			f[i] = float64(n)
		}
		return f, true
	}
	return nil, false
}

// formatFloat uses plain decimal notation for values in [1e-4, 1e21)
// and exponent notation otherwise.
func formatFloat(f float64) string {
	if a := math.Abs(f); a == 0 || (a >= 1e-4 && a < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinInts(v []int64, sep string) string {
	var sb strings.Builder
	for i, n := range v {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.FormatInt(n, 10))
	}
	return sb.String()
}
