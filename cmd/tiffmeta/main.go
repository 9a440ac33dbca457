// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Command tiffmeta prints the directory structure, GeoKeys, compression
// and precision metrics of TIFF and GeoTIFF files as JSON.
package main

func main() {
	Execute()
}
