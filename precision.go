// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	sigfigsFloat32 = 7
	sigfigsFloat64 = 15

	// Values needing more digits than this are not analyzed.
	maxPrecisionDigits = 30
)

// Sampling controls how many rows of a raster are inspected.
// It is a tuning knob, not a coverage guarantee.
type Sampling struct {
	// TargetPixels is the approximate number of pixels to inspect per band.
	TargetPixels int
	// MinRows is the minimum number of rows to inspect.
	MinRows int
}

// DefaultSampling inspects about 10000 pixels in at least 10 rows.
var DefaultSampling = Sampling{TargetPixels: 10000, MinRows: 10}

func (s Sampling) withDefaults() Sampling {
	if s.TargetPixels <= 0 {
		s.TargetPixels = DefaultSampling.TargetPixels
	}
	if s.MinRows <= 0 {
		s.MinRows = DefaultSampling.MinRows
	}
	return s
}

// rowStep returns the stride between sampled rows so that the sample
// spans the whole height.
func (s Sampling) rowStep(width, height int) int {
	s = s.withDefaults()
	targetRows := max(s.MinRows, (s.TargetPixels+width-1)/width)
	if targetRows >= height {
		return 1
	}
	return max(1, height/targetRows)
}

// PrecisionResult holds the detected precision per band.
type PrecisionResult []int

// Max returns the largest precision over all bands.
func (r PrecisionResult) Max() int {
	var m int
	for _, p := range r {
		m = max(m, p)
	}
	return m
}

// String returns "2" for a single band and "[2, 3]" for multiple bands.
func (r PrecisionResult) String() string {
	if len(r) == 1 {
		return strconv.Itoa(r[0])
	}
	parts := make([]string, len(r))
	for i, p := range r {
		parts[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func sigfigsFor(bitWidth int) int {
	if bitWidth == 32 {
		return sigfigsFloat32
	}
	return sigfigsFloat64
}

// DetectPrecision returns the number of decimal places the values were
// rounded to. bitWidth is 32 or 64 and limits the result to 7 or 15.
// Values equal to noData (or NaN, if noData is NaN) and non-finite values
// are ignored.
func DetectPrecision(values []float64, bitWidth int, noData *float64) int {
	sigfigs := sigfigsFor(bitWidth)
	var maxFound int
	for _, v := range values {
		if isExcluded(v, noData) {
			continue
		}
		p := valuePrecision(v, bitWidth, sigfigs)
		if p > maxFound {
			maxFound = p
			if maxFound == sigfigs {
				return sigfigs
			}
		}
	}
	return maxFound
}

func isExcluded(v float64, noData *float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	return noData != nil && v == *noData
}

// valuePrecision quantizes v to sigfigs decimal places in base 10, which
// removes binary representation noise, and returns the smallest number of
// decimal places that reproduces the quantized value.
func valuePrecision(v float64, bitWidth, sigfigs int) int {
	var d decimal.Decimal
	if bitWidth == 32 {
		d = decimal.NewFromFloat32(float32(v))
	} else {
		d = decimal.NewFromFloat(v)
	}
	if d.Abs().GreaterThanOrEqual(decimal.New(1, int32(maxPrecisionDigits-sigfigs))) {
		return 0
	}
	clean := d.RoundBank(int32(sigfigs))
	for n := 0; n <= sigfigs; n++ {
		if clean.RoundBank(int32(n)).Equal(clean) {
			return n
		}
	}
	return sigfigs
}

// DetectBandPrecision samples rows of the given 0-based band and detects
// their precision. Non floating point bands give 0.
func DetectBandPrecision(p RasterProvider, band int, s Sampling) (int, error) {
	bands := p.Bands()
	if band < 0 || band >= len(bands) {
		return 0, fmt.Errorf("band %d out of range", band)
	}
	info := bands[band]
	if !info.Float {
		return 0, nil
	}
	width, height := p.RasterSize()
	if width <= 0 || height <= 0 {
		return 0, nil
	}

	var noData *float64
	if info.HasNoData {
		nd := info.NoData
		noData = &nd
	}
	sigfigs := sigfigsFor(info.BitWidth)
	step := s.rowStep(width, height)
	row := make([]float64, width)

	var maxFound int
	for y := 0; y < height; y += step {
		if err := p.ReadRow(band, y, row); err != nil {
			return 0, errors.Wrapf(err, "read band %d row %d", band, y)
		}
		if prec := DetectPrecision(row, info.BitWidth, noData); prec > maxFound {
			maxFound = prec
			if maxFound == sigfigs {
				break
			}
		}
	}
	return maxFound, nil
}

// DetectRasterPrecision detects the precision of every band.
func DetectRasterPrecision(p RasterProvider, s Sampling) (PrecisionResult, error) {
	bands := p.Bands()
	r := make(PrecisionResult, len(bands))
	for i := range bands {
		prec, err := DetectBandPrecision(p, i, s)
		if err != nil {
			return nil, err
		}
		r[i] = prec
	}
	return r, nil
}

// Page is the decoded pixel data of one IFD.
type Page struct {
	Width, Height, Bands int
	// Planar reports band planar layout (B, H, W). Otherwise samples are
	// pixel interleaved (H, W, B).
	Planar bool
	// Float reports floating point samples of BitWidth bits.
	Float    bool
	BitWidth int
	NoData   *float64
	Data     []float64
}

// NewPage describes the decoded pixel data of d, taking the layout,
// sample type and NoData from its tags.
func NewPage(d *Ifd, data []float64) (Page, error) {
	w, h, ok := d.Dimensions()
	if !ok {
		return Page{}, errors.New("IFD has no dimensions")
	}
	p := Page{
		Width:  int(w),
		Height: int(h),
		Bands:  int(d.SamplesPerPixel()),
		Data:   data,
	}
	if pc, ok := d.Int(TagPlanarConfiguration); ok && pc == planarConfigurationPlanar {
		p.Planar = true
	}
	if bits, ok := d.Ints(TagBitsPerSample); ok && len(bits) > 0 {
		p.BitWidth = int(bits[0])
	}
	if f, ok := d.Ints(TagSampleFormat); ok && len(f) > 0 && f[0] == 3 {
		p.Float = true
	}
	if t, ok := d.Tag(TagGDALNoData); ok {
		p.NoData = pageNoData(t.Value)
	}
	if len(data) < p.Width*p.Height*p.Bands {
		return Page{}, fmt.Errorf("page data has %d samples, need %d", len(data), p.Width*p.Height*p.Bands)
	}
	return p, nil
}

func pageNoData(v TagValue) *float64 {
	var f float64
	switch vv := v.(type) {
	case Float:
		f = float64(vv)
	case FloatArray:
		if len(vv) == 0 {
			return nil
		}
		f = vv[0]
	default:
		fields := strings.Fields(v.String())
		if len(fields) == 0 {
			return nil
		}
		var err error
		if f, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil
		}
	}
	return &f
}

func (p Page) at(y, x, b int) float64 {
	if p.Planar {
		return p.Data[(b*p.Height+y)*p.Width+x]
	}
	return p.Data[(y*p.Width+x)*p.Bands+b]
}

// DetectPagePrecision detects the precision of every band of an in memory page.
// Non floating point pages give 0 for each band.
func DetectPagePrecision(page Page, s Sampling) PrecisionResult {
	bands := max(page.Bands, 1)
	r := make(PrecisionResult, bands)
	if !page.Float || page.Width <= 0 || page.Height <= 0 || len(page.Data) < page.Width*page.Height*bands {
		return r
	}
	page.Bands = bands
	sigfigs := sigfigsFor(page.BitWidth)
	step := s.rowStep(page.Width, page.Height)
	row := make([]float64, page.Width)

	for y := 0; y < page.Height; y += step {
		for b := 0; b < bands; b++ {
			if r[b] == sigfigs {
				continue
			}
			for x := range row {
				row[x] = page.at(y, x, b)
			}
			if prec := DetectPrecision(row, page.BitWidth, page.NoData); prec > r[b] {
				r[b] = prec
			}
		}
	}
	return r
}
