// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/geotiffkit/tiffmeta"
	"github.com/geotiffkit/tiffmeta/catalog"
	"github.com/geotiffkit/tiffmeta/gdalraster"
	"github.com/geotiffkit/tiffmeta/internal/log"
	"github.com/geotiffkit/tiffmeta/source"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:           "tiffmeta",
		Short:         "Inspect TIFF and GeoTIFF metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging()
		},
	}
)

// Execute runs the root command.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default $HOME/.tiffmeta/config.yaml)")
	pf.String("loglevel", "", "log level: debug, info, warn or error")
	pf.Bool("console", false, "human readable logs instead of JSON")
	pf.Bool("gdal", false, "use GDAL to cross check NoData, LERC parameters and CRS names")
	pf.String("block-size", "1Mb", "object storage block size")
	pf.Int("cached-blocks", 500, "number of cached object storage blocks")
	pf.String("aws-region", "", "S3 region")
	pf.String("aws-endpoint", "", "S3 endpoint")

	viper.BindPFlag("loglevel", pf.Lookup("loglevel"))
	viper.BindPFlag("console", pf.Lookup("console"))
	viper.BindPFlag("gdal", pf.Lookup("gdal"))
	viper.BindPFlag("storage.block_size", pf.Lookup("block-size"))
	viper.BindPFlag("storage.cached_blocks", pf.Lookup("cached-blocks"))
	viper.BindPFlag("storage.aws_region", pf.Lookup("aws-region"))
	viper.BindPFlag("storage.aws_endpoint", pf.Lookup("aws-endpoint"))

	viper.SetDefault("sampling.target_pixels", tiffmeta.DefaultSampling.TargetPixels)
	viper.SetDefault("sampling.min_rows", tiffmeta.DefaultSampling.MinRows)
}

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".tiffmeta"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("tiffmeta")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || configFile != "" {
			fmt.Fprintf(os.Stderr, "reading config file: %v\n", err)
		}
	}
}

func initLogging() error {
	lvl := viper.GetString("loglevel")
	if viper.GetBool("console") {
		return log.Console(lvl)
	}
	return log.Structured(lvl)
}

func sourceOptions() []source.Option {
	return []source.Option{
		source.BlockSize(viper.GetString("storage.block_size")),
		source.NumCachedBlocks(viper.GetInt("storage.cached_blocks")),
		source.AWS(viper.GetString("storage.aws_region"), viper.GetString("storage.aws_endpoint")),
	}
}

func sampling() tiffmeta.Sampling {
	return tiffmeta.Sampling{
		TargetPixels: viper.GetInt("sampling.target_pixels"),
		MinRows:      viper.GetInt("sampling.min_rows"),
	}
}

// gdalPath maps object storage URIs to GDAL virtual file system paths.
func gdalPath(uri string) string {
	for prefix, vsi := range map[string]string{"s3://": "/vsis3/", "gs://": "/vsigs/"} {
		if strings.HasPrefix(uri, prefix) {
			return vsi + strings.TrimPrefix(uri, prefix)
		}
	}
	return uri
}

// openFile opens uri and parses it. The returned cleanup closes everything opened.
func openFile(ctx context.Context, uri string, scope tiffmeta.Scope) (*tiffmeta.File, func(), error) {
	logger := log.Logger(log.With(ctx, "file", uri))
	opts := tiffmeta.Options{
		Scope:      scope,
		Logger:     logger,
		Components: catalog.Default(),
		CRS:        catalog.Default(),
	}

	var provider *gdalraster.Provider
	if viper.GetBool("gdal") {
		p, err := gdalraster.Open(gdalPath(uri))
		if err != nil {
			logger.Warn("GDAL could not open file, continuing without it", zap.Error(err))
		} else {
			provider = p
			opts.Raster = p
			opts.CRS = catalog.Chain{gdalraster.CRSCatalog{}, catalog.Default()}
		}
	}

	src, err := source.Open(ctx, uri, sourceOptions()...)
	if err != nil {
		if provider != nil {
			provider.Close()
		}
		return nil, nil, err
	}
	f, err := tiffmeta.NewFile(src, opts)
	if err != nil {
		src.Close()
		if provider != nil {
			provider.Close()
		}
		return nil, nil, err
	}
	return f, func() {
		f.Close()
		if provider != nil {
			provider.Close()
		}
	}, nil
}
