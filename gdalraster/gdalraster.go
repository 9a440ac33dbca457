// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Package gdalraster provides the GDAL backed raster decode backend and CRS
// catalog for tiffmeta.
package gdalraster

import (
	"fmt"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"

	"github.com/geotiffkit/tiffmeta"
)

var registerOnce sync.Once

// Register registers the GDAL drivers. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

var errLogger = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("GDAL %d: %s", code, msg)
})

var (
	_ tiffmeta.RasterProvider = (*Provider)(nil)
	_ tiffmeta.CRSCatalog     = CRSCatalog{}
)

// Provider reads rasters through GDAL.
type Provider struct {
	ds    *godal.Dataset
	bands []tiffmeta.BandInfo
}

// Open opens filename with GDAL. Any GDAL path is accepted, e.g. /vsis3/bucket/key.tif.
func Open(filename string) (*Provider, error) {
	Register()
	ds, err := godal.Open(filename, errLogger)
	if err != nil {
		return nil, errors.Wrapf(err, "gdal open %s", filename)
	}
	p := &Provider{ds: ds}
	for _, band := range ds.Bands() {
		info := tiffmeta.BandInfo{}
		switch band.Structure().DataType {
		case godal.Float32:
			info.Float, info.BitWidth = true, 32
		case godal.Float64:
			info.Float, info.BitWidth = true, 64
		}
		info.NoData, info.HasNoData = band.NoData()
		p.bands = append(p.bands, info)
	}
	return p, nil
}

// RasterSize implements tiffmeta.RasterProvider.
func (p *Provider) RasterSize() (width, height int) {
	st := p.ds.Structure()
	return st.SizeX, st.SizeY
}

// Bands implements tiffmeta.RasterProvider.
func (p *Provider) Bands() []tiffmeta.BandInfo {
	return p.bands
}

// ReadRow implements tiffmeta.RasterProvider.
func (p *Provider) ReadRow(band, y int, dst []float64) error {
	bands := p.ds.Bands()
	if band < 0 || band >= len(bands) {
		return fmt.Errorf("band %d out of range", band)
	}
	width, _ := p.RasterSize()
	if len(dst) < width {
		return fmt.Errorf("row buffer too small: %d < %d", len(dst), width)
	}
	return bands[band].Read(0, y, dst[:width], width, 1)
}

// Metadata implements tiffmeta.RasterProvider.
func (p *Provider) Metadata(key, domain string) string {
	return p.ds.Metadata(key, godal.Domain(domain))
}

// Close closes the dataset.
func (p *Provider) Close() error {
	return p.ds.Close()
}

// CRSCatalog names CRSs by importing their EPSG code with GDAL.
type CRSCatalog struct{}

// CRSName implements tiffmeta.CRSCatalog.
func (CRSCatalog) CRSName(code int) (string, bool) {
	Register()
	sr, err := godal.NewSpatialRefFromEPSG(code)
	if err != nil {
		return "", false
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil {
		return "", false
	}
	name := wktName(wkt)
	return name, name != ""
}

// wktName returns the name of the root WKT node, i.e. its first quoted string.
func wktName(wkt string) string {
	start := strings.IndexByte(wkt, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(wkt[start+1:], '"')
	if end < 0 {
		return ""
	}
	return wkt[start+1 : start+1+end]
}
