// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Scope selects which tags Ifd.Tags returns.
type Scope int

const (
	// ScopeComplete includes all tags.
	ScopeComplete Scope = iota
	// ScopeCompact leaves out raw strip/tile layout and raw georeferencing tags.
	ScopeCompact
)

func (s Scope) String() string {
	switch s {
	case ScopeComplete:
		return "complete"
	case ScopeCompact:
		return "compact"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// ParseScope parses "complete" or "compact".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", "complete":
		return ScopeComplete, nil
	case "compact":
		return ScopeCompact, nil
	}
	return 0, fmt.Errorf("unknown tag scope %q", s)
}

// IfdKind is the role of an IFD in the file.
type IfdKind int

const (
	KindMainImage IfdKind = iota
	KindOverview
	KindMask
	KindPage
)

func (k IfdKind) String() string {
	switch k {
	case KindMainImage:
		return "Main Image"
	case KindOverview:
		return "Overview"
	case KindMask:
		return "Mask"
	case KindPage:
		return "Page"
	}
	return fmt.Sprintf("IfdKind(%d)", int(k))
}

func (k IfdKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ifdKindFor derives the kind of the IFD at index from its NewSubfileType flags.
func ifdKindFor(index int, subfileType int64, hasSubfileType bool) IfdKind {
	if index == 0 {
		return KindMainImage
	}
	if hasSubfileType {
		switch {
		case subfileType&1 != 0:
			return KindOverview
		case subfileType&2 != 0:
			return KindPage
		case subfileType&4 != 0:
			return KindMask
		}
	}
	return KindOverview
}

// TiffTag is a decoded directory entry.
type TiffTag struct {
	Code  uint16
	Name  string
	Type  FieldType
	Count uint64
	// Value is the full decoded value. It must not be modified.
	Value TagValue
	// Interpretation is a human readable meaning of Value, if known.
	Interpretation string
}

// Display returns the value formatted for reports.
// Large strip and tile arrays are shortened here only; Value always holds all entries.
func (t TiffTag) Display() string {
	if truncatedTags[t.Code] {
		if v, ok := t.Value.(IntegerArray); ok {
			return truncateInts(v)
		}
	}
	if t.Type.IsRational() {
		if v, ok := t.Value.(IntegerArray); ok {
			return formatRationals(v)
		}
	}
	if t.Code == TagSampleFormat && t.Interpretation != "" {
		if _, ok := t.Value.(IntegerArray); ok {
			return t.Interpretation
		}
	}
	return t.Value.String()
}

const (
	truncateThreshold = 8
	truncateHead      = 5
)

func truncateInts(v []int64) string {
	if len(v) <= truncateThreshold {
		return joinInts(v, ", ")
	}
	return fmt.Sprintf("[%s, ...] (%d total)", joinInts(v[:truncateHead], ", "), len(v))
}

func formatRationals(v []int64) string {
	if len(v)%2 != 0 {
		return IntegerArray(v).String()
	}
	parts := make([]string, 0, len(v)/2)
	for i := 0; i < len(v); i += 2 {
		num, den := v[i], v[i+1]
		if den == 1 {
			parts = append(parts, strconv.FormatInt(num, 10))
		} else {
			parts = append(parts, fmt.Sprintf("%d/%d", num, den))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Ifd is one decoded image file directory.
// It is immutable once returned from Parse.
type Ifd struct {
	Index  int
	Kind   IfdKind
	Offset uint64

	scope Scope
	tags  map[uint16]TiffTag
	codes []uint16 // sorted ascending
}

func newIfd(index int, offset uint64, scope Scope, tags []TiffTag) *Ifd {
	d := &Ifd{
		Index:  index,
		Offset: offset,
		scope:  scope,
		tags:   make(map[uint16]TiffTag, len(tags)),
	}
	for _, t := range tags {
		if _, found := d.tags[t.Code]; found {
			// First entry wins.
			continue
		}
		d.tags[t.Code] = t
		d.codes = append(d.codes, t.Code)
	}
	slices.Sort(d.codes)

	sft, ok := d.Int(TagNewSubfileType)
	d.Kind = ifdKindFor(index, sft, ok)
	return d
}

// Tags returns the tags in the parse scope, sorted by code.
func (d *Ifd) Tags() []TiffTag {
	tags := make([]TiffTag, 0, len(d.codes))
	for _, code := range d.codes {
		if d.scope == ScopeCompact && compactExcludedTags[code] {
			continue
		}
		tags = append(tags, d.tags[code])
	}
	return tags
}

// AllTags returns every decoded tag regardless of scope, sorted by code.
func (d *Ifd) AllTags() []TiffTag {
	tags := make([]TiffTag, len(d.codes))
	for i, code := range d.codes {
		tags[i] = d.tags[code]
	}
	return tags
}

// Tag returns the tag with the given code.
// Lookups are not restricted by scope.
func (d *Ifd) Tag(code uint16) (TiffTag, bool) {
	t, found := d.tags[code]
	return t, found
}

// Has reports whether the tag with the given code is present.
func (d *Ifd) Has(code uint16) bool {
	_, found := d.tags[code]
	return found
}

// Int returns the value of the given tag as a single integer.
func (d *Ifd) Int(code uint16) (int64, bool) {
	t, found := d.tags[code]
	if !found {
		return 0, false
	}
	return Int(t.Value)
}

// Ints returns the value of the given tag as a slice of integers.
func (d *Ifd) Ints(code uint16) ([]int64, bool) {
	t, found := d.tags[code]
	if !found {
		return nil, false
	}
	return Ints(t.Value)
}

// Floats returns the value of the given tag as a slice of floats.
func (d *Ifd) Floats(code uint16) ([]float64, bool) {
	t, found := d.tags[code]
	if !found {
		return nil, false
	}
	return Floats(t.Value)
}

// Dimensions returns ImageWidth and ImageLength.
func (d *Ifd) Dimensions() (width, height int64, ok bool) {
	w, okw := d.Int(TagImageWidth)
	h, okh := d.Int(TagImageLength)
	if !okw || !okh || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// SamplesPerPixel returns the band count, defaulting to 1.
func (d *Ifd) SamplesPerPixel() int64 {
	if n, ok := d.Int(TagSamplesPerPixel); ok && n > 0 {
		return n
	}
	return 1
}

// IsTiled reports whether the IFD declares a tile width.
func (d *Ifd) IsTiled() bool {
	return d.Has(TagTileWidth)
}

// IsGeoTIFF reports whether the IFD carries GeoTIFF georeferencing.
func (d *Ifd) IsGeoTIFF() bool {
	return d.Has(TagGeoKeyDirectory) || d.Has(TagModelTiepoint) || d.Has(TagModelTransformation)
}

// GeoTransform returns the affine transform in GDAL order
// (originX, pixelWidth, rowRotation, originY, columnRotation, pixelHeight),
// derived from ModelTransformation or from ModelTiepoint and ModelPixelScale.
func (d *Ifd) GeoTransform() ([6]float64, bool) {
	var gt [6]float64
	if m, ok := d.Floats(TagModelTransformation); ok && len(m) >= 16 {
		gt = [6]float64{m[3], m[0], m[1], m[7], m[4], m[5]}
		return gt, true
	}
	tp, ok1 := d.Floats(TagModelTiepoint)
	sc, ok2 := d.Floats(TagModelPixelScale)
	if !ok1 || !ok2 || len(tp) < 6 || len(sc) < 2 {
		return gt, false
	}
	gt = [6]float64{tp[3] - tp[0]*sc[0], sc[0], 0, tp[4] + tp[1]*sc[1], 0, -sc[1]}
	return gt, true
}

// DataTypeName returns the GDAL style data type name of the samples,
// e.g. "Byte", "UInt16", "Float32" or "CInt16".
func (d *Ifd) DataTypeName() string {
	var bits int64
	if b, ok := d.Ints(TagBitsPerSample); ok && len(b) > 0 {
		bits = b[0]
	}
	format := int64(1)
	if f, ok := d.Ints(TagSampleFormat); ok && len(f) > 0 {
		format = f[0]
	}
	return dataTypeName(format, bits)
}

func dataTypeName(sampleFormat, bits int64) string {
	if bits == 1 {
		return "Bit"
	}
	switch sampleFormat {
	case 1:
		switch bits {
		case 8:
			return "Byte"
		case 16, 32, 64:
			return fmt.Sprintf("UInt%d", bits)
		}
	case 2:
		switch bits {
		case 8, 16, 32, 64:
			return fmt.Sprintf("Int%d", bits)
		}
	case 3:
		switch bits {
		case 32, 64:
			return fmt.Sprintf("Float%d", bits)
		}
	case 4:
		return "Undefined"
	case 5:
		switch bits {
		case 16, 32:
			return fmt.Sprintf("CInt%d", bits)
		}
	case 6:
		switch bits {
		case 32, 64:
			return fmt.Sprintf("CFloat%d", bits)
		}
	}
	return "Invalid"
}

// IfdSummary is a one-row overview of an IFD.
type IfdSummary struct {
	Index         int     `json:"ifd"`
	Kind          IfdKind `json:"type"`
	Width         int64   `json:"width"`
	Height        int64   `json:"height"`
	BlockSize     string  `json:"blockSize"`
	Bands         int64   `json:"bands"`
	BitsPerSample []int64 `json:"bitsPerSample"`
	DataType      string  `json:"dataType"`
	Photometric   string  `json:"photometric,omitempty"`
	Compression   string  `json:"compression,omitempty"`
	Predictor     string  `json:"predictor,omitempty"`
	Tiled         bool    `json:"tiled"`
}

// Summary returns a one-row overview of the IFD.
func (d *Ifd) Summary() IfdSummary {
	s := IfdSummary{
		Index:    d.Index,
		Kind:     d.Kind,
		DataType: d.DataTypeName(),
		Tiled:    d.IsTiled(),
	}
	s.Width, _ = d.Int(TagImageWidth)
	s.Height, _ = d.Int(TagImageLength)
	s.Bands, _ = d.Int(TagSamplesPerPixel)
	s.BitsPerSample, _ = d.Ints(TagBitsPerSample)
	if t, ok := d.Tag(TagPhotometric); ok {
		s.Photometric = t.Interpretation
	}
	if t, ok := d.Tag(TagCompression); ok {
		s.Compression = t.Interpretation
	}
	s.BlockSize = d.blockSize(s.Width, s.Height)
	s.Predictor = d.predictorLabel(s.Compression)
	return s
}

func (d *Ifd) blockSize(w, h int64) string {
	if d.IsTiled() {
		tw, ok1 := d.Int(TagTileWidth)
		tl, ok2 := d.Int(TagTileLength)
		if !ok1 || !ok2 || tw == 0 || tl == 0 {
			return ""
		}
		return fmt.Sprintf("%d x %d", tw, tl)
	}
	rps, ok := d.Int(TagRowsPerStrip)
	if !ok {
		rps = h
	}
	if h > 0 {
		rps = min(max(rps, 1), h)
	}
	return fmt.Sprintf("%d x %d", w, rps)
}

func (d *Ifd) predictorLabel(compression string) string {
	if p, ok := d.Int(TagPredictor); ok {
		if s, found := PredictorAbbrev(p); found {
			return s
		}
	}
	c := strings.ToLower(compression)
	for _, k := range []string{"jxl", "jpeg", "lerc", "webp"} {
		if strings.Contains(c, k) {
			return ""
		}
	}
	for _, k := range []string{"lzw", "deflate", "zstd"} {
		if strings.Contains(c, k) {
			return "None"
		}
	}
	return ""
}
