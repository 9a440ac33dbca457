// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Package tiffmeta reads the directory structure of TIFF, BigTIFF and
// GeoTIFF files without decoding pixel data, resolves GeoTIFF keys and
// derives compression and precision metrics.
package tiffmeta

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DomainImageStructure is the GDAL metadata domain holding codec settings.
const DomainImageStructure = "IMAGE_STRUCTURE"

const (
	defaultLimitNumTags = 5000
	defaultLimitTagSize = 64 << 20
	defaultLimitIFDs    = 4096
)

// Source is a random access byte source with a known size,
// e.g. a *bytes.Reader, an *io.SectionReader or an osio reader.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Options contains the options for Parse and Open.
type Options struct {
	// Scope selects which tags Ifd.Tags returns.
	// Default is ScopeComplete.
	Scope Scope

	// Logger receives contained decode failures.
	// Default is a no-op logger.
	Logger *zap.Logger

	// Raster is an optional raster decode backend used to cross check
	// NoData and to resolve LERC parameters.
	Raster RasterProvider

	// Components and CRS are optional catalogs used to name GeoKey values.
	Components ComponentCatalog
	CRS        CRSCatalog

	// LimitNumTags is the maximum number of entries in one IFD.
	// Default value is 5000.
	LimitNumTags int

	// LimitTagSize is the maximum size in bytes of one tag value.
	// Larger values are skipped.
	// Default value is 64 MiB.
	LimitTagSize int64

	// LimitIFDs is the maximum number of IFDs to read.
	// Default value is 4096.
	LimitIFDs int

	// OnTagError, if set, is called for each directory entry that could not be decoded.
	OnTagError func(err *TagDecodeError)
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimitNumTags <= 0 {
		o.LimitNumTags = defaultLimitNumTags
	}
	if o.LimitTagSize <= 0 {
		o.LimitTagSize = defaultLimitTagSize
	}
	if o.LimitIFDs <= 0 {
		o.LimitIFDs = defaultLimitIFDs
	}
	return o
}

// Parse reads all IFDs from src.
//
// Malformed entries, IFDs and chain links are skipped and logged. The
// returned error is ErrInvalidFormat for a bad header, ErrNoIFDs if not a
// single IFD could be read, or a *ResourceError if src could not be read.
func Parse(src Source, opts Options) (ifds []*Ifd, err error) {
	if src == nil {
		return nil, errors.New("no source provided")
	}
	opts = opts.withDefaults()

	defer func() {
		if r := recover(); r != nil {
			err = errFromRecover(r)
		}
		if err == nil || errors.Is(err, ErrInvalidFormat) || errors.Is(err, ErrNoIFDs) {
			return
		}
		var re *ResourceError
		if errors.As(err, &re) {
			return
		}
		if isInvalidFormatErrorCandidate(err) {
			err = errors.Wrap(ErrInvalidFormat, err.Error())
			return
		}
		err = &ResourceError{Op: "read", Err: err}
	}()

	dec := newTIFFDecoder(src, opts)
	return dec.decode()
}

// RasterProvider is a raster decode backend.
type RasterProvider interface {
	// RasterSize returns the size of the full resolution raster.
	RasterSize() (width, height int)
	// Bands describes each band of the raster.
	Bands() []BandInfo
	// ReadRow reads row y of the given 0-based band into dst, which has room for width values.
	ReadRow(band, y int, dst []float64) error
	// Metadata returns the metadata item key in the given domain, or "" if not set.
	Metadata(key, domain string) string
}

// BandInfo describes one raster band.
type BandInfo struct {
	// Float reports whether the samples are floating point.
	Float bool
	// BitWidth is the size of one sample in bits.
	BitWidth  int
	NoData    float64
	HasNoData bool
}

// ComponentCategory is the kind of coordinate system component a GeoKey refers to.
type ComponentCategory string

const (
	ComponentGeodeticDatum ComponentCategory = "geodetic_datum"
	ComponentPrimeMeridian ComponentCategory = "prime_meridian"
	ComponentUnitOfMeasure ComponentCategory = "unit_of_measure"
	ComponentEllipsoid     ComponentCategory = "ellipsoid"
	ComponentVerticalDatum ComponentCategory = "vertical_datum"
)

// ComponentCatalog names coordinate system components by EPSG code.
type ComponentCatalog interface {
	ComponentName(c ComponentCategory, code int) (string, bool)
}

// CRSCatalog names coordinate reference systems by EPSG code.
type CRSCatalog interface {
	CRSName(code int) (string, bool)
}

// File is a parsed TIFF file.
// It owns its byte source until Close is called.
type File struct {
	opts Options
	ifds []*Ifd

	closer io.Closer
	closed bool

	geoKeysOnce sync.Once
	geoKeys     GeoKeyDirectory
}

// Open opens and parses the named file.
func Open(filename string, opts Options) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ResourceError{Op: "open", Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &ResourceError{Op: "stat", Err: err}
	}
	tf, err := newFile(io.NewSectionReader(f, 0, fi.Size()), f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return tf, nil
}

// NewFile parses src. If src implements io.Closer, it is closed by Close.
func NewFile(src Source, opts Options) (*File, error) {
	closer, _ := src.(io.Closer)
	return newFile(src, closer, opts)
}

func newFile(src Source, closer io.Closer, opts Options) (*File, error) {
	opts = opts.withDefaults()
	ifds, err := Parse(src, opts)
	if err != nil {
		return nil, err
	}
	return &File{opts: opts, ifds: ifds, closer: closer}, nil
}

// IFDs returns all IFDs in file order.
func (f *File) IFDs() []*Ifd {
	return f.ifds
}

// IFD returns the IFD at index i.
func (f *File) IFD(i int) (*Ifd, bool) {
	if i < 0 || i >= len(f.ifds) {
		return nil, false
	}
	return f.ifds[i], true
}

// GeoKeys decodes the GeoKey directory of IFD 0 on first use.
func (f *File) GeoKeys() GeoKeyDirectory {
	f.geoKeysOnce.Do(func() {
		f.geoKeys = DecodeGeoKeys(f.ifds[0], GeoKeyOptions{
			Components: f.opts.Components,
			CRS:        f.opts.CRS,
			Logger:     f.opts.Logger,
		})
	})
	return f.geoKeys
}

// Compression computes the compression metrics over all IFDs.
func (f *File) Compression() CompressionMetrics {
	return ComputeCompression(f.ifds)
}

// Precision samples the raster provider given in Options and detects the
// decimal precision of each floating point band.
func (f *File) Precision(s Sampling) (PrecisionResult, error) {
	if f.opts.Raster == nil {
		return nil, errors.New("precision detection requires a raster provider")
	}
	return DetectRasterPrecision(f.opts.Raster, s)
}

// Close releases the byte source.
// Calls after the first are no-ops and return nil.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer == nil {
		return nil
	}
	if err := f.closer.Close(); err != nil {
		return &ResourceError{Op: "close", Err: err}
	}
	return nil
}
