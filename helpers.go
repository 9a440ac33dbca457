// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package tiffmeta

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
)

// decodeUTF8 decodes b as UTF-8, replacing invalid sequences with U+FFFD.
// NUL bytes are kept.
func decodeUTF8(b []byte) string {
	s, err := xunicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		s = bytes.ToValidUTF8(b, []byte("\uFFFD"))
	}
	return string(s)
}

// decodeText decodes b as UTF-8 and sanitizes the result.
func decodeText(b []byte) string {
	return sanitizeText(decodeUTF8(b))
}

// sanitizeText removes NUL bytes and control characters other than whitespace,
// collapses whitespace runs into a single space and removes spaces following
// a closing angle bracket.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if unicode.IsSpace(r) {
			return r
		}
		if unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.ReplaceAll(s, "> ", ">"))
}

// looksLikeText reports whether b, minus NUL padding, is valid UTF-8
// without control characters other than whitespace.
func looksLikeText(b []byte) bool {
	b = trimBytesNulls(b)
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == 0 {
			continue
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func trimBytesNulls(b []byte) []byte {
	var lo, hi int
	for lo = 0; lo < len(b) && b[lo] == 0; lo++ {
	}
	for hi = len(b) - 1; hi >= 0 && b[hi] == 0; hi-- {
	}
	if lo > hi {
		return nil
	}
	return b[lo : hi+1]
}
