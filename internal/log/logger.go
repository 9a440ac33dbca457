// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Package log sets up the process wide zap logger used by the command line tool.
package log

import (
	"context"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_logger       *zap.Logger
	defaultlogger *zap.Logger
)

type contextKey int

const (
	contextKeyFields contextKey = iota
)

func init() {
	_logger = zap.NewNop()
	defaultlogger = _logger
}

func setLogger(l *zap.Logger) {
	defaultlogger = l
}

func resetLogger() {
	defaultlogger = _logger
}

// level parses lvl, falling back to the LOGLEVEL environment variable and then to info.
func level(lvl string) zap.AtomicLevel {
	if lvl == "" {
		lvl = os.Getenv("LOGLEVEL")
	}
	l := zap.NewAtomicLevelAt(zap.InfoLevel)
	if lvl != "" {
		if err := l.UnmarshalText([]byte(lvl)); err != nil {
			l = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
	}
	return l
}

// Structured sets output to be JSON encoded on stderr.
func Structured(lvl string) error {
	cfg := zap.NewProductionConfig()
	enc := zap.NewProductionEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = level(lvl)
	return build(cfg)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000"))
}

// Console sets output to be human-readable on stderr.
func Console(lvl string) error {
	cfg := zap.NewDevelopmentConfig()
	enc := zap.NewDevelopmentEncoderConfig()
	enc.LevelKey = "severity"
	enc.TimeKey = "timestamp"
	enc.EncodeTime = timeEncoder
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = level(lvl)
	return build(cfg)
}

func build(cfg zap.Config) error {
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	_logger = l
	defaultlogger = l
	return nil
}

// Logger returns a logger that will print fields previously added to the context.
func Logger(ctx context.Context) *zap.Logger {
	flds := ctx.Value(contextKeyFields)
	if flds != nil {
		return defaultlogger.With(flds.([]zap.Field)...)
	}
	return defaultlogger
}

// With adds a key=value field to the returned context.
func With(ctx context.Context, key string, value any) context.Context {
	return WithFields(ctx, zap.Any(key, value))
}

// WithFields adds fields to the returned context.
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	var fflds []zap.Field
	if flds := ctx.Value(contextKeyFields); flds != nil {
		fflds = flds.([]zap.Field)
	}
	fflds = append(slices.Clip(fflds), fields...)
	return context.WithValue(ctx, contextKeyFields, fflds)
}

// Sync flushes the default logger.
func Sync() {
	_ = defaultlogger.Sync()
}
