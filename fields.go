// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import "fmt"

// Tag codes referenced by this package.
const (
	TagNewSubfileType      uint16 = 254
	TagSubfileType         uint16 = 255
	TagImageWidth          uint16 = 256
	TagImageLength         uint16 = 257
	TagBitsPerSample       uint16 = 258
	TagCompression         uint16 = 259
	TagPhotometric         uint16 = 262
	TagFillOrder           uint16 = 266
	TagStripOffsets        uint16 = 273
	TagOrientation         uint16 = 274
	TagSamplesPerPixel     uint16 = 277
	TagRowsPerStrip        uint16 = 278
	TagStripByteCounts     uint16 = 279
	TagPlanarConfiguration uint16 = 284
	TagResolutionUnit      uint16 = 296
	TagPredictor           uint16 = 317
	TagTileWidth           uint16 = 322
	TagTileLength          uint16 = 323
	TagTileOffsets         uint16 = 324
	TagTileByteCounts      uint16 = 325
	TagExtraSamples        uint16 = 338
	TagSampleFormat        uint16 = 339
	TagJPEGTables          uint16 = 347
	TagYCbCrPositioning    uint16 = 531
	TagXMP                 uint16 = 700
	TagModelPixelScale     uint16 = 33550
	TagModelTiepoint       uint16 = 33922
	TagModelTransformation uint16 = 34264
	TagExifIFD             uint16 = 34665
	TagGeoKeyDirectory     uint16 = 34735
	TagGeoDoubleParams     uint16 = 34736
	TagGeoASCIIParams      uint16 = 34737
	TagGPSInfo             uint16 = 34853
	TagInteroperabilityIFD uint16 = 40965
	TagGDALMetadata        uint16 = 42112
	TagGDALNoData          uint16 = 42113
	TagLercParameters      uint16 = 50674
	TagGeoMetadata         uint16 = 50909
)

const (
	compressionNone           = 1
	planarConfigurationPlanar = 2
)

// FieldType is the TIFF field type of a directory entry.
type FieldType uint16

const (
	TypeByte      FieldType = 1
	TypeASCII     FieldType = 2
	TypeShort     FieldType = 3
	TypeLong      FieldType = 4
	TypeRational  FieldType = 5
	TypeSByte     FieldType = 6
	TypeUndefined FieldType = 7
	TypeSShort    FieldType = 8
	TypeSLong     FieldType = 9
	TypeSRational FieldType = 10
	TypeFloat     FieldType = 11
	TypeDouble    FieldType = 12
	TypeIFD       FieldType = 13
	TypeLong8     FieldType = 16
	TypeSLong8    FieldType = 17
	TypeIFD8      FieldType = 18
)

// Size in bytes of each type.
var fieldTypeSize = map[FieldType]uint64{
	TypeByte:      1,
	TypeASCII:     1,
	TypeShort:     2,
	TypeLong:      4,
	TypeRational:  8,
	TypeSByte:     1,
	TypeUndefined: 1,
	TypeSShort:    2,
	TypeSLong:     4,
	TypeSRational: 8,
	TypeFloat:     4,
	TypeDouble:    8,
	TypeIFD:       4,
	TypeLong8:     8,
	TypeSLong8:    8,
	TypeIFD8:      8,
}

var fieldTypeNames = map[FieldType]string{
	TypeByte:      "BYTE",
	TypeASCII:     "ASCII",
	TypeShort:     "SHORT",
	TypeLong:      "LONG",
	TypeRational:  "RATIONAL",
	TypeSByte:     "SBYTE",
	TypeUndefined: "UNDEFINED",
	TypeSShort:    "SSHORT",
	TypeSLong:     "SLONG",
	TypeSRational: "SRATIONAL",
	TypeFloat:     "FLOAT",
	TypeDouble:    "DOUBLE",
	TypeIFD:       "IFD",
	TypeLong8:     "LONG8",
	TypeSLong8:    "SLONG8",
	TypeIFD8:      "IFD8",
}

func (t FieldType) String() string {
	if s, found := fieldTypeNames[t]; found {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", uint16(t))
}

// IsRational reports whether t is RATIONAL or SRATIONAL.
func (t FieldType) IsRational() bool {
	return t == TypeRational || t == TypeSRational
}

// compactExcludedTags are left out of the compact scope: raw strip/tile
// layout tags and raw georeferencing tags covered by the GeoKey view.
var compactExcludedTags = map[uint16]bool{
	TagStripOffsets:        true,
	TagRowsPerStrip:        true,
	TagStripByteCounts:     true,
	TagPlanarConfiguration: true,
	TagTileOffsets:         true,
	TagTileByteCounts:      true,
	TagExtraSamples:        true,
	TagModelPixelScale:     true,
	TagModelTiepoint:       true,
	TagModelTransformation: true,
	TagGeoKeyDirectory:     true,
	TagGeoDoubleParams:     true,
	TagGeoASCIIParams:      true,
}

// truncatedTags are displayed in shortened form when large.
var truncatedTags = map[uint16]bool{
	TagStripOffsets:    true,
	TagStripByteCounts: true,
	TagTileOffsets:     true,
	TagTileByteCounts:  true,
}

var xmlTags = map[uint16]bool{
	TagXMP:          true,
	TagGDALMetadata: true,
	TagGeoMetadata:  true,
}

var subIFDPointerTags = map[uint16]bool{
	TagExifIFD:             true,
	TagGPSInfo:             true,
	TagInteroperabilityIFD: true,
}
