// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geotiffkit/tiffmeta"
)

// minimalTIFF returns a little endian TIFF with one LZW compressed 100x100
// IFD and a GeoKey directory with one key.
func minimalTIFF() []byte {
	type entry struct {
		code, typ uint16
		count     uint32
		value     uint32
	}
	entries := []entry{
		{256, 3, 1, 100},
		{257, 3, 1, 100},
		{258, 3, 1, 8},
		{259, 3, 1, 5},
		{279, 4, 1, 2500},
		{34735, 3, 8, 0}, // patched below
	}
	le := binary.LittleEndian
	b := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	b = le.AppendUint16(b, uint16(len(entries)))
	dirOffset := 8 + 2 + len(entries)*12 + 4
	for _, e := range entries {
		b = le.AppendUint16(b, e.code)
		b = le.AppendUint16(b, e.typ)
		b = le.AppendUint32(b, e.count)
		if e.code == 34735 {
			e.value = uint32(dirOffset)
		}
		b = le.AppendUint32(b, e.value)
	}
	b = le.AppendUint32(b, 0)
	for _, v := range []uint16{1, 1, 1, 1, 1024, 0, 1, 1} {
		b = le.AppendUint16(b, v)
	}
	return b
}

func TestBuildReport(t *testing.T) {
	f, err := tiffmeta.NewFile(bytes.NewReader(minimalTIFF()), tiffmeta.Options{Scope: tiffmeta.ScopeCompact})
	require.NoError(t, err)
	defer f.Close()

	r, err := buildReport("test.tif", f, -1)
	require.NoError(t, err)
	assert.Equal(t, "test.tif", r.File)
	assert.Equal(t, "1.1", r.GeoKeysVersion)
	require.Len(t, r.GeoKeys, 1)
	assert.Equal(t, "1 (ModelTypeProjected)", r.GeoKeys[0].Value)
	assert.Equal(t, "75.00% (4.00x)", r.Compression.Efficiency)
	assert.True(t, r.Compression.Compressed)

	require.Len(t, r.IFDs, 1)
	ifd := r.IFDs[0]
	assert.Equal(t, "LZW", ifd.Summary.Compression)
	assert.Equal(t, "100 x 100", ifd.Summary.BlockSize)
	assert.Empty(t, ifd.LercMaxZError)
	var codes []uint16
	for _, tag := range ifd.Tags {
		codes = append(codes, tag.Code)
	}
	assert.Equal(t, []uint16{256, 257, 258, 259}, codes)

	_, err = buildReport("test.tif", f, 3)
	assert.EqualError(t, err, "IFD 3 not found, file has 1")

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "compression")
	assert.Contains(t, decoded, "ifds")
}

func TestGdalPath(t *testing.T) {
	assert.Equal(t, "/vsis3/bucket/key.tif", gdalPath("s3://bucket/key.tif"))
	assert.Equal(t, "/vsigs/bucket/key.tif", gdalPath("gs://bucket/key.tif"))
	assert.Equal(t, "/data/key.tif", gdalPath("/data/key.tif"))
}
