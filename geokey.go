// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const geoKeyUserDefined = 32767

// GeoKey ids with special handling.
const (
	GeoKeyModelType         uint16 = 1024
	GeoKeyRasterType        uint16 = 1025
	GeoKeyCitation          uint16 = 1026
	GeoKeyGeodeticCRS       uint16 = 2048
	GeoKeyGeodeticCitation  uint16 = 2049
	GeoKeyGeodeticDatum     uint16 = 2050
	GeoKeyPrimeMeridian     uint16 = 2051
	GeoKeyGeogLinearUnits   uint16 = 2052
	GeoKeyGeogAngularUnits  uint16 = 2054
	GeoKeyEllipsoid         uint16 = 2056
	GeoKeyGeogAzimuthUnits  uint16 = 2060
	GeoKeyProjectedCRS      uint16 = 3072
	GeoKeyProjectedCitation uint16 = 3073
	GeoKeyProjMethod        uint16 = 3075
	GeoKeyProjLinearUnits   uint16 = 3076
	GeoKeyVertical          uint16 = 4096
	GeoKeyVerticalCitation  uint16 = 4097
	GeoKeyVerticalDatum     uint16 = 4098
	GeoKeyVerticalUnits     uint16 = 4099
)

var citationGeoKeys = map[uint16]bool{
	GeoKeyCitation:          true,
	GeoKeyGeodeticCitation:  true,
	GeoKeyProjectedCitation: true,
	GeoKeyVerticalCitation:  true,
}

var crsGeoKeys = map[uint16]bool{
	GeoKeyGeodeticCRS:  true,
	GeoKeyProjectedCRS: true,
	GeoKeyVertical:     true,
}

var componentGeoKeys = map[uint16]ComponentCategory{
	GeoKeyGeodeticDatum:    ComponentGeodeticDatum,
	GeoKeyPrimeMeridian:    ComponentPrimeMeridian,
	GeoKeyGeogLinearUnits:  ComponentUnitOfMeasure,
	GeoKeyGeogAngularUnits: ComponentUnitOfMeasure,
	GeoKeyEllipsoid:        ComponentEllipsoid,
	GeoKeyGeogAzimuthUnits: ComponentUnitOfMeasure,
	GeoKeyProjLinearUnits:  ComponentUnitOfMeasure,
	GeoKeyVerticalDatum:    ComponentVerticalDatum,
	GeoKeyVerticalUnits:    ComponentUnitOfMeasure,
}

// GeoKey is one resolved GeoTIFF key.
type GeoKey struct {
	ID    uint16
	Name  string
	Value TagValue
	// Interpretation is the name of an integer value, if known.
	// It is always empty for citation keys.
	Interpretation string
	IsCitation     bool

	// Location is the tag holding the value, 0 for inline values.
	Location uint16
	Count    uint16
}

// Display returns the value with its interpretation in parentheses, if any.
func (k GeoKey) Display() string {
	if k.Interpretation == "" {
		return k.Value.String()
	}
	return fmt.Sprintf("%s (%s)", k.Value, k.Interpretation)
}

// GeoKeyDirectory is the decoded GeoKey directory of IFD 0.
// Version is empty if the file has no usable directory.
type GeoKeyDirectory struct {
	Version string
	Keys    []GeoKey
}

// Key returns the key with the given id.
func (d GeoKeyDirectory) Key(id uint16) (GeoKey, bool) {
	for _, k := range d.Keys {
		if k.ID == id {
			return k, true
		}
	}
	return GeoKey{}, false
}

// GeoKeyOptions holds the optional collaborators used by DecodeGeoKeys.
type GeoKeyOptions struct {
	Components ComponentCatalog
	CRS        CRSCatalog
	Logger     *zap.Logger
}

// DecodeGeoKeys resolves the GeoKey directory stored in ifd0.
// It reads nothing but the already decoded tags. A missing directory tag or
// a header shorter than 4 values gives an empty directory; malformed key
// entries are skipped.
func DecodeGeoKeys(ifd0 *Ifd, opts GeoKeyOptions) GeoKeyDirectory {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if ifd0 == nil {
		return GeoKeyDirectory{}
	}
	dir, ok := ifd0.Ints(TagGeoKeyDirectory)
	if !ok || len(dir) < 4 {
		return GeoKeyDirectory{}
	}

	g := geoKeyDecoder{
		opts:    opts,
		version: fmt.Sprintf("%d.%d", dir[1], dir[2]),
	}
	g.doubles, _ = ifd0.Floats(TagGeoDoubleParams)
	if t, ok := ifd0.Tag(TagGeoASCIIParams); ok {
		if s, ok := t.Value.(Text); ok {
			g.ascii = []rune(string(s))
			g.hasASCII = true
		}
	}

	numKeys := int(dir[3])
	keys := make([]GeoKey, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		start := 4 + i*4
		if start+4 > len(dir) {
			opts.Logger.Debug("skipping malformed GeoKey entry", zap.Int("index", i), zap.Int("declared", numKeys))
			continue
		}
		e := dir[start : start+4]
		k, ok := g.decodeKey(uint16(e[0]), uint16(e[1]), uint16(e[2]), int(e[3]))
		if !ok {
			opts.Logger.Debug("skipping unresolvable GeoKey", zap.Int64("key", e[0]), zap.Int64("location", e[1]))
			continue
		}
		keys = append(keys, k)
	}

	return GeoKeyDirectory{Version: g.version, Keys: keys}
}

type geoKeyDecoder struct {
	opts     GeoKeyOptions
	version  string
	doubles  []float64
	ascii    []rune
	hasASCII bool
}

func (g *geoKeyDecoder) decodeKey(id, location, count uint16, offset int) (GeoKey, bool) {
	v, ok := g.value(location, count, offset)
	if !ok {
		return GeoKey{}, false
	}
	k := GeoKey{
		ID:         id,
		Name:       GeoKeyName(id, g.version),
		Value:      v,
		IsCitation: citationGeoKeys[id],
		Location:   location,
		Count:      count,
	}
	if n, isInt := v.(Integer); isInt && !k.IsCitation {
		k.Interpretation = g.interpret(id, int64(n))
	}
	return k, true
}

// value resolves the value of a key. Values are copied out of the
// parameter tags.
func (g *geoKeyDecoder) value(location, count uint16, offset int) (TagValue, bool) {
	switch location {
	case 0:
		return Integer(offset), true
	case TagGeoDoubleParams:
		if len(g.doubles) == 0 {
			return nil, false
		}
		// Out of range parts are dropped, as for the ASCII pool.
		start := min(offset, len(g.doubles))
		end := min(offset+int(count), len(g.doubles))
		if end-start == 1 {
			return Float(g.doubles[start]), true
		}
		return append(FloatArray{}, g.doubles[start:end]...), true
	case TagGeoASCIIParams:
		if !g.hasASCII || offset > len(g.ascii) {
			return nil, false
		}
		end := min(offset+int(count), len(g.ascii))
		s := strings.TrimRight(string(g.ascii[offset:end]), "\x00|")
		return Text(s), true
	}
	return nil, false
}

func (g *geoKeyDecoder) interpret(id uint16, v int64) string {
	if s, found := geoKeyValueName(id, v); found {
		return s
	}
	if v == geoKeyUserDefined {
		return "User-Defined"
	}
	if id == GeoKeyProjMethod {
		s, _ := ProjectionMethodName(v)
		return s
	}
	if c, found := componentGeoKeys[id]; found {
		if g.opts.Components == nil {
			return ""
		}
		s, _ := g.opts.Components.ComponentName(c, int(v))
		return s
	}
	if crsGeoKeys[id] && g.opts.CRS != nil {
		name, found := g.opts.CRS.CRSName(int(v))
		if found && name != "" && name != strconv.FormatInt(v, 10) {
			return name
		}
	}
	return ""
}
