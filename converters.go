// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	interpretationMalformedXML = "Malformed XML (treated as text)"
	subIFDSeparator            = "<br>"
)

var (
	markerDQT = []byte{0xff, 0xdb}
	markerDHT = []byte{0xff, 0xc4}
)

type valueConverterContext struct {
	d    *tiffDecoder
	ifd  int
	code uint16
}

// valueConverter turns the generically decoded value of a tag into its
// final value and interpretation.
type valueConverter func(ctx valueConverterContext, v TagValue) (TagValue, string, error)

type vc struct{}

var (
	converters        = &vc{}
	valueConverterMap map[uint16]valueConverter
)

func init() {
	valueConverterMap = map[uint16]valueConverter{
		TagJPEGTables:          converters.convertJPEGTables,
		TagLercParameters:      converters.convertLercParameters,
		TagSampleFormat:        converters.convertSampleFormat,
		TagExifIFD:             converters.convertSubIFD,
		TagGPSInfo:             converters.convertSubIFD,
		TagInteroperabilityIFD: converters.convertSubIFD,
		TagGeoASCIIParams:      converters.convertGeoASCIIParams,
	}
	for code := range xmlTags {
		valueConverterMap[code] = converters.convertXML
	}
}

// convertGeneric sanitizes text values and looks up the registered interpretation.
func (c *vc) convertGeneric(code uint16, v TagValue) (TagValue, string) {
	switch vv := v.(type) {
	case Text:
		v = Text(sanitizeText(string(vv)))
	case RawBytes:
		if looksLikeText(vv) {
			v = Text(decodeText(vv))
		}
	}
	return v, c.interpret(code, v)
}

func (c *vc) interpret(code uint16, v TagValue) string {
	switch code {
	case TagNewSubfileType:
		n, ok := Int(v)
		if !ok {
			return ""
		}
		return newSubfileTypeFlags(n)
	case TagExtraSamples:
		vals, ok := Ints(v)
		if !ok || len(vals) == 0 {
			return ""
		}
		names := make([]string, len(vals))
		for i, n := range vals {
			s, found := ValueName(code, n)
			if !found {
				s = "Unknown"
			}
			names[i] = s
		}
		return strings.Join(names, " + ")
	}
	n, ok := v.(Integer)
	if !ok {
		return ""
	}
	s, _ := ValueName(code, int64(n))
	return s
}

func newSubfileTypeFlags(n int64) string {
	if n == 0 {
		return "Default"
	}
	var flags []string
	if n&1 != 0 {
		flags = append(flags, "Reduced resolution version")
	}
	if n&2 != 0 {
		flags = append(flags, "Single page of multi-page")
	}
	if n&4 != 0 {
		flags = append(flags, "Transparency mask")
	}
	return strings.Join(flags, " + ")
}

func (c *vc) convertJPEGTables(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	b, ok := v.(RawBytes)
	if !ok {
		return Text(v.String()), "", nil
	}
	var found []string
	if bytes.Contains(b, markerDQT) {
		found = append(found, "DQT")
	}
	if bytes.Contains(b, markerDHT) {
		found = append(found, "DHT")
	}
	if len(found) == 0 {
		return Text(fmt.Sprintf("binary data (%d bytes)", len(b))), "", nil
	}
	return Text(fmt.Sprintf("Contains %s tables (%d bytes)", strings.Join(found, " and "), len(b))), "", nil
}

// convertLercParameters asks the raster provider for the LERC codec settings.
// Without a provider the value is empty.
func (c *vc) convertLercParameters(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	p := ctx.d.opts.Raster
	if p == nil {
		return Text(""), "", nil
	}
	var params []string
	if s := p.Metadata("MAX_Z_ERROR", DomainImageStructure); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			params = append(params, "MAX_Z_ERROR="+strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	if s := p.Metadata("LERC_VERSION", DomainImageStructure); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			params = append(params, "LERC_VERSION="+strconv.Itoa(int(f)))
		} else {
			ctx.d.log.Warn("could not parse LERC_VERSION", fieldIFD(ctx.ifd), fieldTag(ctx.code))
		}
	}
	return Text(strings.Join(params, ", ")), "", nil
}

const compressionLERC = 34887

var maxZErrorRe = regexp.MustCompile(`MAX_Z_ERROR=([0-9.]+(?:[eE][-+]?[0-9]+)?)`)

// LercMaxZError returns the LERC MAX_Z_ERROR of a LERC compressed IFD,
// "0" (lossless) if the LercParameters tag does not name one.
// The second return value is false if the IFD is not LERC compressed.
func (d *Ifd) LercMaxZError() (string, bool) {
	if c, ok := d.Int(TagCompression); !ok || c != compressionLERC {
		return "", false
	}
	t, ok := d.Tag(TagLercParameters)
	if !ok {
		return "", false
	}
	s, ok := t.Value.(Text)
	if !ok {
		return "", false
	}
	m := maxZErrorRe.FindStringSubmatch(string(s))
	if m == nil {
		return "0", true
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "0", true
	}
	return formatFloat(f), true
}

// convertSampleFormat names each band's format. The value is kept as is,
// the per band names go into the interpretation.
func (c *vc) convertSampleFormat(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	vals, ok := v.(IntegerArray)
	if !ok {
		v, interp := c.convertGeneric(ctx.code, v)
		return v, interp, nil
	}
	parts := make([]string, len(vals))
	for i, n := range vals {
		s, found := ValueName(TagSampleFormat, n)
		if !found {
			s = "Unknown"
		}
		parts[i] = fmt.Sprintf("%d: %s", n, s)
	}
	return vals, "[" + strings.Join(parts, ", ") + "]", nil
}

// convertSubIFD decodes the private IFD the pointer refers to and renders
// it as "name: value" lines.
func (c *vc) convertSubIFD(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	off, ok := Int(v)
	if !ok || off <= 0 {
		return nil, "", fmt.Errorf("invalid sub-IFD pointer %s", v)
	}
	tags, err := ctx.d.decodeSubIFD(ctx.ifd, ctx.code, uint64(off))
	if err != nil {
		return nil, "", err
	}
	lines := make([]string, len(tags))
	for i, t := range tags {
		lines[i] = t.Name + ": " + t.Display()
		if t.Interpretation != "" && t.Interpretation != t.Display() {
			lines[i] += " (" + t.Interpretation + ")"
		}
	}
	return Text(strings.Join(lines, subIFDSeparator)), "", nil
}

// convertGeoASCIIParams keeps the ASCII pool intact, as GeoKeys refer to
// it by character offset. Only trailing NULs are removed.
func (c *vc) convertGeoASCIIParams(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	s, ok := v.(Text)
	if !ok {
		return nil, "", fmt.Errorf("expected ASCII, got %T", v)
	}
	return Text(strings.TrimRight(string(s), "\x00")), "", nil
}

func (c *vc) convertXML(ctx valueConverterContext, v TagValue) (TagValue, string, error) {
	v, interp := c.convertGeneric(ctx.code, v)
	s, ok := v.(Text)
	if !ok {
		return v, interp, nil
	}
	if !isPlausibleXML(string(s)) {
		interp = interpretationMalformedXML
	}
	return v, interp, nil
}

// isPlausibleXML reports whether s starts with '<', ends with '>' and
// parses with a non-strict XML decoder.
func isPlausibleXML(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return false
	}
	dec := xml.NewDecoder(strings.NewReader(s))
	dec.Strict = false
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return true
		}
		if err != nil {
			return false
		}
	}
}
