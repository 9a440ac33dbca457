// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// enrichMainIFD runs the checks on IFD 0 that need the raster backend.
// It runs after structural decoding and never fails; without a backend
// the tags are only normalized.
func enrichMainIFD(tags []TiffTag, p RasterProvider, log *zap.Logger) []TiffTag {
	for i, t := range tags {
		if t.Code == TagGDALNoData {
			tags[i].Value = resolveNoData(t.Value, p, log)
		}
	}
	return tags
}

// resolveNoData cross checks the GDAL_NODATA string against the per band
// NoData of the raster backend. A single band file gets a Float, a multi
// band file a FloatArray with one value per band. On any mismatch the
// trimmed raw string is kept.
func resolveNoData(v TagValue, p RasterProvider, log *zap.Logger) TagValue {
	raw := strings.TrimSpace(v.String())
	if p == nil {
		return Text(raw)
	}
	bands := p.Bands()
	switch len(bands) {
	case 0:
		return Text(raw)
	case 1:
		if bands[0].HasNoData {
			return Float(bands[0].NoData)
		}
		return Text(raw)
	}

	tokens := strings.Fields(raw)
	values := make(FloatArray, len(bands))
	for i, b := range bands {
		if b.HasNoData {
			values[i] = b.NoData
			continue
		}
		if i >= len(tokens) {
			log.Warn("GDAL_NODATA has fewer values than bands", fieldTag(TagGDALNoData), zap.Int("bands", len(bands)), zap.String("value", raw))
			return Text(raw)
		}
		f, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			log.Warn("could not parse GDAL_NODATA", fieldTag(TagGDALNoData), zap.String("value", raw), zap.Error(err))
			return Text(raw)
		}
		values[i] = f
	}
	return values
}
