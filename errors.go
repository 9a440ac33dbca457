// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidFormat is returned when the byte source is not a TIFF or BigTIFF container.
	ErrInvalidFormat = errors.New("tiffmeta: invalid format")

	// ErrNoIFDs is returned when no image file directory could be read.
	ErrNoIFDs = errors.New("tiffmeta: no valid IFDs found")

	// Internal error to signal that we should stop any further processing.
	errStop = errors.New("stop")

	errShortRead = errors.New("short read")
)

// ResourceError is returned when the underlying byte source cannot be opened or read.
// This is the only fatal error condition besides ErrNoIFDs.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("tiffmeta: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// TagDecodeError describes a single directory entry that could not be decoded.
// These are never returned from Parse; the tag is skipped and the error is
// logged and passed to Options.OnTagError, if set.
type TagDecodeError struct {
	IFD  int
	Code uint16
	Err  error
}

func (e *TagDecodeError) Error() string {
	return fmt.Sprintf("tiffmeta: IFD %d: tag %d: %v", e.IFD, e.Code, e.Err)
}

func (e *TagDecodeError) Unwrap() error {
	return e.Err
}

func newInvalidFormatErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidFormat, format, args...)
}

// isInvalidFormatErrorCandidate reports whether err was caused by reading
// past the end of the data, which for a random access source means a
// structurally broken file rather than an I/O failure.
func isInvalidFormatErrorCandidate(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errShortRead)
}

// errFromRecover converts a recovered panic value into an error.
func errFromRecover(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("unknown panic: %v", r)
}
