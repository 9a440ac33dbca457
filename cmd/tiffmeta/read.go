// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geotiffkit/tiffmeta"
)

var readCmd = &cobra.Command{
	Use:   "read <file|s3://bucket/key|gs://bucket/key>",
	Short: "Print IFDs, GeoKeys and compression metrics as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	readCmd.Flags().String("scope", "complete", "tag scope: complete or compact")
	readCmd.Flags().Int("ifd", -1, "only print the IFD with this index")
	viper.BindPFlag("scope", readCmd.Flags().Lookup("scope"))
	rootCmd.AddCommand(readCmd)
}

type tagReport struct {
	Code           uint16 `json:"code"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Count          uint64 `json:"count"`
	Value          string `json:"value"`
	Interpretation string `json:"interpretation,omitempty"`
}

type ifdReport struct {
	Summary tiffmeta.IfdSummary `json:"summary"`
	Offset  uint64              `json:"offset"`
	Tags    []tagReport         `json:"tags"`
	// LercMaxZError is set for LERC compressed IFDs.
	LercMaxZError string `json:"lercMaxZError,omitempty"`
}

type geoKeyReport struct {
	ID         uint16 `json:"id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	IsCitation bool   `json:"isCitation,omitempty"`
}

type compressionReport struct {
	Efficiency string                 `json:"efficiency"`
	Compressed bool                   `json:"compressed"`
	PerIfd     []ifdCompressionReport `json:"perIfd"`
}

type ifdCompressionReport struct {
	IFD               int    `json:"ifd"`
	CompressedBytes   uint64 `json:"compressedBytes"`
	UncompressedBytes uint64 `json:"uncompressedBytes"`
	Efficiency        string `json:"efficiency"`
	Ratio             string `json:"ratio"`
}

type readReport struct {
	File           string            `json:"file"`
	GeoKeysVersion string            `json:"geoKeysVersion,omitempty"`
	GeoKeys        []geoKeyReport    `json:"geoKeys,omitempty"`
	Compression    compressionReport `json:"compression"`
	IFDs           []ifdReport       `json:"ifds"`
}

func runRead(cmd *cobra.Command, args []string) error {
	scope, err := tiffmeta.ParseScope(viper.GetString("scope"))
	if err != nil {
		return err
	}
	only, _ := cmd.Flags().GetInt("ifd")

	f, cleanup, err := openFile(cmd.Context(), args[0], scope)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := buildReport(args[0], f, only)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, report)
}

func buildReport(name string, f *tiffmeta.File, only int) (readReport, error) {
	r := readReport{File: name}

	ifds := f.IFDs()
	if only >= 0 {
		d, ok := f.IFD(only)
		if !ok {
			return r, fmt.Errorf("IFD %d not found, file has %d", only, len(ifds))
		}
		ifds = []*tiffmeta.Ifd{d}
	}
	for _, d := range ifds {
		r.IFDs = append(r.IFDs, newIfdReport(d))
	}

	dir := f.GeoKeys()
	r.GeoKeysVersion = dir.Version
	for _, k := range dir.Keys {
		r.GeoKeys = append(r.GeoKeys, geoKeyReport{
			ID:         k.ID,
			Name:       k.Name,
			Value:      k.Display(),
			IsCitation: k.IsCitation,
		})
	}

	m := f.Compression()
	r.Compression = compressionReport{
		Efficiency: m.Display(),
		Compressed: m.HasCompressedData,
	}
	for _, c := range m.PerIfd {
		r.Compression.PerIfd = append(r.Compression.PerIfd, ifdCompressionReport{
			IFD:               c.Index,
			CompressedBytes:   c.CompressedBytes,
			UncompressedBytes: c.UncompressedBytes,
			Efficiency:        c.DisplayEfficiency(),
			Ratio:             c.DisplayRatio(),
		})
	}
	return r, nil
}

func newIfdReport(d *tiffmeta.Ifd) ifdReport {
	r := ifdReport{Summary: d.Summary(), Offset: d.Offset}
	for _, t := range d.Tags() {
		r.Tags = append(r.Tags, tagReport{
			Code:           t.Code,
			Name:           t.Name,
			Type:           t.Type.String(),
			Count:          t.Count,
			Value:          t.Display(),
			Interpretation: t.Interpretation,
		})
	}
	r.LercMaxZError, _ = d.LercMaxZError()
	return r
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
