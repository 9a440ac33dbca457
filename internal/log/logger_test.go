// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

package log

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func installLogger() *observer.ObservedLogs {
	c, o := observer.New(zapcore.DebugLevel)
	setLogger(zap.New(c))
	return o
}

func testEntry(t *testing.T, e observer.LoggedEntry, flds []zapcore.Field) {
	t.Helper()
	if len(e.Context) != len(flds) {
		t.Errorf("got %d fields, expected %d", len(e.Context), len(flds))
	}
	for _, fld := range flds {
		ok := false
		for _, f := range e.Context {
			if reflect.DeepEqual(f, fld) {
				ok = true
				break
			}
		}
		if !ok {
			t.Errorf("missing field %v", fld)
		}
	}
}

func TestLogger(t *testing.T) {
	o := installLogger()
	defer resetLogger()
	ctx := context.Background()
	lg := Logger(ctx)
	lg.Info("")
	e := o.TakeAll()[0]
	if len(e.Context) > 0 {
		t.Errorf("got %d fields, expected 0", len(e.Context))
	}

	ctx1 := With(ctx, "file", "a.tif")
	Logger(ctx1).Info("")
	testEntry(t, o.TakeAll()[0], []zapcore.Field{zap.Any("file", "a.tif")})

	ctx1 = With(ctx1, "ifd", 1)
	Logger(ctx1).Info("")
	testEntry(t, o.TakeAll()[0], []zapcore.Field{zap.Any("file", "a.tif"), zap.Any("ifd", 1)})

	// Siblings must not share fields.
	ctxA := With(ctx1, "tag", 256)
	ctxB := With(ctx1, "tag", 257)
	Logger(ctxA).Info("")
	testEntry(t, o.TakeAll()[0], []zapcore.Field{zap.Any("file", "a.tif"), zap.Any("ifd", 1), zap.Any("tag", 256)})
	Logger(ctxB).Info("")
	testEntry(t, o.TakeAll()[0], []zapcore.Field{zap.Any("file", "a.tif"), zap.Any("ifd", 1), zap.Any("tag", 257)})

	Logger(ctx).Info("")
	e = o.TakeAll()[0]
	if len(e.Context) > 0 {
		t.Errorf("got %d fields, expected 0", len(e.Context))
	}
}

func TestLevel(t *testing.T) {
	t.Setenv("LOGLEVEL", "")
	if got := level("").Level(); got != zap.InfoLevel {
		t.Errorf("got %s, expected info", got)
	}
	if got := level("warn").Level(); got != zap.WarnLevel {
		t.Errorf("got %s, expected warn", got)
	}
	if got := level("nonsense").Level(); got != zap.DebugLevel {
		t.Errorf("got %s, expected debug", got)
	}
	t.Setenv("LOGLEVEL", "error")
	if got := level("").Level(); got != zap.ErrorLevel {
		t.Errorf("got %s, expected error", got)
	}
}
