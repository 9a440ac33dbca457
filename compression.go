// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"math"
)

// CompressionMetrics is the compression efficiency of a file over all its IFDs.
type CompressionMetrics struct {
	PerIfd []IfdCompression

	// AggregateEfficiencyPercent is (1 - compressed/uncompressed) * 100 over
	// all included IFDs. It is exactly 0 when no IFD is compressed.
	AggregateEfficiencyPercent float64
	// AggregateRatio is uncompressed/compressed expressed as 100 / (100 - efficiency).
	AggregateRatio float64

	HasCompressedData bool
}

// IfdCompression is the contribution of one IFD.
// IFDs without dimensions or byte counts are not included.
type IfdCompression struct {
	Index             int
	CompressedBytes   uint64
	UncompressedBytes uint64
	// Compressed reports whether the IFD declares a compression other than none.
	Compressed bool
}

// EfficiencyPercent returns the space saved by compression in percent.
func (c IfdCompression) EfficiencyPercent() float64 {
	if !c.Compressed {
		return 0
	}
	return efficiencyPercent(c.CompressedBytes, c.UncompressedBytes)
}

// Ratio returns the compression ratio, 1 for uncompressed IFDs.
func (c IfdCompression) Ratio() float64 {
	if !c.Compressed {
		return 1
	}
	return ratio(c.EfficiencyPercent())
}

// DisplayEfficiency formats the efficiency as "45.20%".
func (c IfdCompression) DisplayEfficiency() string {
	return fmt.Sprintf("%.2f%%", c.EfficiencyPercent())
}

// DisplayRatio formats the ratio as "1.82x".
func (c IfdCompression) DisplayRatio() string {
	return fmt.Sprintf("%.2fx", c.Ratio())
}

// Display formats the aggregate as "45.20% (1.82x)".
func (m CompressionMetrics) Display() string {
	return fmt.Sprintf("%.2f%% (%.2fx)", m.AggregateEfficiencyPercent, m.AggregateRatio)
}

// ComputeCompression sums compressed and uncompressed sizes over ifds.
func ComputeCompression(ifds []*Ifd) CompressionMetrics {
	var (
		m                 CompressionMetrics
		totalCompressed   uint64
		totalUncompressed uint64
	)
	for _, d := range ifds {
		c, ok := ifdCompression(d)
		if !ok {
			continue
		}
		m.PerIfd = append(m.PerIfd, c)
		totalCompressed += c.CompressedBytes
		totalUncompressed += c.UncompressedBytes
		if c.Compressed {
			m.HasCompressedData = true
		}
	}

	if m.HasCompressedData && totalUncompressed > 0 {
		m.AggregateEfficiencyPercent = efficiencyPercent(totalCompressed, totalUncompressed)
		m.AggregateRatio = ratio(m.AggregateEfficiencyPercent)
	} else {
		m.AggregateRatio = 1
	}
	return m
}

func ifdCompression(d *Ifd) (IfdCompression, bool) {
	w, h, ok := d.Dimensions()
	if !ok {
		return IfdCompression{}, false
	}

	countsTag := TagStripByteCounts
	if d.IsTiled() {
		countsTag = TagTileByteCounts
	}
	counts, ok := d.Ints(countsTag)
	if !ok {
		return IfdCompression{}, false
	}

	var compressed uint64
	for _, n := range counts {
		if n > 0 {
			compressed += uint64(n)
		}
	}

	compression, ok := d.Int(TagCompression)
	if !ok {
		compression = compressionNone
	}

	return IfdCompression{
		Index:             d.Index,
		CompressedBytes:   compressed,
		UncompressedBytes: uint64(w) * uint64(h) * bitsPerPixel(d) / 8,
		Compressed:        compression != compressionNone,
	}, true
}

// bitsPerPixel sums BitsPerSample over all bands. A scalar is multiplied by
// the band count, as is an array shorter than the band count. A missing
// BitsPerSample counts as 8 bits per band.
func bitsPerPixel(d *Ifd) uint64 {
	bands := uint64(d.SamplesPerPixel())
	bits, ok := d.Ints(TagBitsPerSample)
	if !ok || len(bits) == 0 {
		return 8 * bands
	}
	var sum uint64
	for _, b := range bits {
		if b > 0 {
			sum += uint64(b)
		}
	}
	if len(bits) == 1 || uint64(len(bits)) < bands {
		if sum == 0 {
			return 8 * bands
		}
		return sum * bands
	}
	return sum
}

func efficiencyPercent(compressed, uncompressed uint64) float64 {
	if uncompressed == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(uncompressed)) * 100
}

func ratio(efficiency float64) float64 {
	if efficiency >= 100 {
		return math.Inf(1)
	}
	return 100 / (100 - efficiency)
}
