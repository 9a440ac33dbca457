// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Package source opens random access byte sources for tiffmeta from local
// paths, s3:// and gs:// URIs. Object storage is read through a block cache.
package source

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/airbusgeo/osio"
	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	aws3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/geotiffkit/tiffmeta"
)

// Source is a tiffmeta.Source that must be closed after use.
type Source interface {
	tiffmeta.Source
	io.Closer
}

// Options configures access to object storage.
type Options struct {
	// BlockSize is the size of a cached block, e.g. "1Mb".
	BlockSize string
	// NumCachedBlocks is the number of blocks kept in memory.
	NumCachedBlocks int
	// AWSRegion and AWSEndpoint override the default S3 configuration.
	AWSRegion   string
	AWSEndpoint string
}

// Option sets an option.
type Option func(*Options)

// BlockSize sets Options.BlockSize.
func BlockSize(s string) Option {
	return func(o *Options) { o.BlockSize = s }
}

// NumCachedBlocks sets Options.NumCachedBlocks.
func NumCachedBlocks(n int) Option {
	return func(o *Options) { o.NumCachedBlocks = n }
}

// AWS sets the S3 region and endpoint. Empty values keep the defaults.
func AWS(region, endpoint string) Option {
	return func(o *Options) {
		o.AWSRegion = region
		o.AWSEndpoint = endpoint
	}
}

const (
	schemeS3  = "s3"
	schemeGCS = "gs"
)

// Open opens uri, which is a local path or an s3:// or gs:// URI.
func Open(ctx context.Context, uri string, opts ...Option) (Source, error) {
	o := Options{BlockSize: "1Mb", NumCachedBlocks: 500}
	for _, opt := range opts {
		opt(&o)
	}

	switch scheme(uri) {
	case "":
		return openLocal(uri)
	case schemeS3:
		h, err := s3Handler(ctx, o)
		if err != nil {
			return nil, err
		}
		return openObject(h, uri, o)
	case schemeGCS:
		h, err := osioGcs.Handle(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "gcs handler")
		}
		return openObject(h, uri, o)
	default:
		return nil, errors.Errorf("unsupported scheme in %q", uri)
	}
}

// scheme returns the lower case URI scheme of uri, or "" for a local path.
func scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

type localFile struct {
	*io.SectionReader
	f *os.File
}

func (l localFile) Close() error {
	return l.f.Close()
}

func openLocal(filename string) (Source, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &tiffmeta.ResourceError{Op: "open", Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &tiffmeta.ResourceError{Op: "stat", Err: err}
	}
	return localFile{SectionReader: io.NewSectionReader(f, 0, fi.Size()), f: f}, nil
}

func s3Handler(ctx context.Context, o Options) (*osioS3.Handler, error) {
	cfgOpts := []func(*awsConfig.LoadOptions) error{}
	if o.AWSRegion != "" {
		cfgOpts = append(cfgOpts, awsConfig.WithRegion(o.AWSRegion))
	}
	if o.AWSEndpoint != "" {
		resolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               o.AWSEndpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		})
		cfgOpts = append(cfgOpts, awsConfig.WithEndpointResolver(resolver))
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	h, err := osioS3.Handle(ctx, osioS3.S3Client(aws3.NewFromConfig(cfg)))
	if err != nil {
		return nil, errors.Wrap(err, "s3 handler")
	}
	return h, nil
}

type objectReader struct {
	*osio.Reader
}

func (objectReader) Close() error {
	return nil
}

func openObject(h osio.KeyStreamerAt, uri string, o Options) (Source, error) {
	a, err := osio.NewAdapter(h,
		osio.BlockSize(o.BlockSize),
		osio.NumCachedBlocks(o.NumCachedBlocks))
	if err != nil {
		return nil, errors.Wrap(err, "block cache")
	}
	r, err := a.Reader(uri)
	if err != nil {
		return nil, &tiffmeta.ResourceError{Op: "open", Err: err}
	}
	return objectReader{r}, nil
}
