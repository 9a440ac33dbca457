// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	_ "embed" // needed for the embedded registry JSON
	"encoding/json"
	"fmt"
	"sync"
)

// Sources: TIFF 6.0, the Library of Congress TIFF tag list, OGC GeoTIFF 1.1 (19-008r4).
//
//go:embed registry.json
var registryJSON []byte

type registry struct {
	Tags              map[uint16]string           `json:"tags"`
	TagValues         map[uint16]map[int64]string `json:"tagValues"`
	PredictorAbbrev   map[int64]string            `json:"predictorAbbrev"`
	ExifTags          map[uint16]string           `json:"exifTags"`
	GPSTags           map[uint16]string           `json:"gpsTags"`
	InteropTags       map[uint16]string           `json:"interopTags"`
	GeoKeys           map[uint16]string           `json:"geoKeys"`
	GeoKeysV10        map[string]string           `json:"geoKeysV10"`
	GeoKeyValues      map[uint16]map[int64]string `json:"geoKeyValues"`
	ProjectionMethods map[int64]string            `json:"projectionMethods"`
}

// getRegistry returns the process wide tag interpretation registry.
// It is built once and never mutated.
var getRegistry = sync.OnceValue(func() *registry {
	var r registry
	if err := json.Unmarshal(registryJSON, &r); err != nil {
		panic(fmt.Sprintf("tiffmeta: invalid embedded registry: %v", err))
	}
	return &r
})

// TagName returns the name of the TIFF tag with the given code,
// or "UnknownTag (code)" if it is not known.
func TagName(code uint16) string {
	if name, found := getRegistry().Tags[code]; found {
		return name
	}
	return fmt.Sprintf("UnknownTag (%d)", code)
}

// ValueName returns the registered meaning of value v for the tag with the given code.
func ValueName(code uint16, v int64) (string, bool) {
	m, found := getRegistry().TagValues[code]
	if !found {
		return "", false
	}
	s, found := m[v]
	return s, found
}

// CompressionName returns the name of the given Compression (259) code.
func CompressionName(code int64) (string, bool) {
	return ValueName(TagCompression, code)
}

// PredictorAbbrev returns a short label for the given Predictor (317) code, e.g. "2-Horizontal".
func PredictorAbbrev(code int64) (string, bool) {
	s, found := getRegistry().PredictorAbbrev[code]
	return s, found
}

// GeoKeyName returns the name of the GeoKey with the given id for the given
// directory version. Version "1.0" uses the legacy names for the keys that
// were renamed in GeoTIFF 1.1.
func GeoKeyName(id uint16, version string) string {
	r := getRegistry()
	name, found := r.GeoKeys[id]
	if !found {
		return fmt.Sprintf("UnknownGeoKey (%d)", id)
	}
	if version == "1.0" {
		if legacy, found := r.GeoKeysV10[name]; found {
			return legacy
		}
	}
	return name
}

// ProjectionMethodName returns the CT_* name for a ProjMethodGeoKey (3075) value.
func ProjectionMethodName(code int64) (string, bool) {
	s, found := getRegistry().ProjectionMethods[code]
	return s, found
}

func geoKeyValueName(id uint16, v int64) (string, bool) {
	m, found := getRegistry().GeoKeyValues[id]
	if !found {
		return "", false
	}
	s, found := m[v]
	return s, found
}

// subIFDTagNames returns the tag name table for the private IFD behind the given pointer tag.
func subIFDTagNames(pointer uint16) map[uint16]string {
	r := getRegistry()
	switch pointer {
	case TagExifIFD:
		return r.ExifTags
	case TagGPSInfo:
		return r.GPSTags
	case TagInteroperabilityIFD:
		return r.InteropTags
	}
	return nil
}
