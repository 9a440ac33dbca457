// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Package catalog names EPSG coordinate system components and CRSs from a
// small embedded table. It covers the codes found in most GeoTIFFs and
// computes the names of the common UTM zone CRSs.
package catalog

import (
	_ "embed" // needed for the embedded catalog JSON
	"encoding/json"
	"fmt"
	"sync"

	"github.com/geotiffkit/tiffmeta"
)

//go:embed catalog.json
var catalogJSON []byte

var (
	_ tiffmeta.ComponentCatalog = (*Static)(nil)
	_ tiffmeta.CRSCatalog       = (*Static)(nil)
	_ tiffmeta.CRSCatalog       = Chain(nil)
)

// Static is a catalog backed by fixed tables.
type Static struct {
	Components map[tiffmeta.ComponentCategory]map[int]string `json:"components"`
	CRS        map[int]string                                `json:"crs"`
}

var loadDefault = sync.OnceValue(func() *Static {
	var s Static
	if err := json.Unmarshal(catalogJSON, &s); err != nil {
		panic(fmt.Sprintf("catalog: invalid embedded catalog: %v", err))
	}
	return &s
})

// Default returns the embedded catalog. It must not be modified.
func Default() *Static {
	return loadDefault()
}

// ComponentName implements tiffmeta.ComponentCatalog.
func (s *Static) ComponentName(c tiffmeta.ComponentCategory, code int) (string, bool) {
	name, found := s.Components[c][code]
	return name, found
}

// CRSName implements tiffmeta.CRSCatalog.
func (s *Static) CRSName(code int) (string, bool) {
	if name, found := s.CRS[code]; found {
		return name, true
	}
	return utmName(code)
}

// utmName computes the names of the WGS 84, NAD83 and ETRS89 UTM zone CRSs.
func utmName(code int) (string, bool) {
	switch {
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("WGS 84 / UTM zone %dN", code-32600), true
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("WGS 84 / UTM zone %dS", code-32700), true
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("NAD83 / UTM zone %dN", code-26900), true
	case code >= 25828 && code <= 25838:
		return fmt.Sprintf("ETRS89 / UTM zone %dN", code-25800), true
	}
	return "", false
}

// Chain asks each CRS catalog in turn and returns the first match.
type Chain []tiffmeta.CRSCatalog

// CRSName implements tiffmeta.CRSCatalog.
func (c Chain) CRSName(code int) (string, bool) {
	for _, cat := range c {
		if cat == nil {
			continue
		}
		if name, found := cat.CRSName(code); found {
			return name, true
		}
	}
	return "", false
}
