// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geotiffkit/tiffmeta"
)

var precisionCmd = &cobra.Command{
	Use:   "precision <file>",
	Short: "Detect the decimal precision of floating point bands (requires --gdal)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrecision,
}

func init() {
	precisionCmd.Flags().Int("target-pixels", tiffmeta.DefaultSampling.TargetPixels, "approximate number of pixels to sample per band")
	precisionCmd.Flags().Int("min-rows", tiffmeta.DefaultSampling.MinRows, "minimum number of rows to sample")
	viper.BindPFlag("sampling.target_pixels", precisionCmd.Flags().Lookup("target-pixels"))
	viper.BindPFlag("sampling.min_rows", precisionCmd.Flags().Lookup("min-rows"))
	rootCmd.AddCommand(precisionCmd)
}

type precisionReport struct {
	File      string `json:"file"`
	Bands     []int  `json:"bands"`
	Precision string `json:"precision"`
}

func runPrecision(cmd *cobra.Command, args []string) error {
	if !viper.GetBool("gdal") {
		return errors.New("precision detection needs pixel data: run with --gdal")
	}
	f, cleanup, err := openFile(cmd.Context(), args[0], tiffmeta.ScopeCompact)
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := f.Precision(sampling())
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, precisionReport{File: args[0], Bands: r, Precision: r.String()})
}
