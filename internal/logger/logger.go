// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logger provides the structured logger used by every component of
// the scheduler. It wraps log/slog so that call sites log through a small
// interface (Info/Debug/Warn/Error, plus printf-style variants) while still
// getting accurate source-file:line attribution — the wrapper layer itself
// is skipped when computing the caller frame.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the interface every component depends on. It is intentionally
// small: components should not reach for the underlying *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// wrapperDepth is how many stack frames logger.go itself contributes above
// the slog.Logger call; used to report the caller's source location instead
// of this file's.
const wrapperDepth = 3

type logger struct {
	base  *slog.Logger
	debug bool
}

// Default is a logger with baseline settings, suitable for package-level
// helpers and tests that don't construct their own.
var Default Logger = NewLogger()

type options struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

// Option configures NewLogger.
type Option func(*options)

// WithDebug enables debug-level logging and source location reporting.
func WithDebug() Option { return func(o *options) { o.debug = true } }

// WithFormat selects "text" (default) or "json" output.
func WithFormat(format string) Option { return func(o *options) { o.format = format } }

// WithWriter overrides the log sink (default os.Stdout).
func WithWriter(w io.Writer) Option { return func(o *options) { o.writer = w } }

// WithQuiet suppresses the secondary stdout sink used in production, so
// tests observe only the explicit writer.
func WithQuiet() Option { return func(o *options) { o.quiet = true } }

// NewLogger builds a Logger. Multiple sinks (the supplied writer, plus
// stdout unless WithQuiet is set) are fanned out via slog-multi, mirroring
// how the scheduler ships logs to both the console and a file.
func NewLogger(opts ...Option) Logger {
	o := options{format: "text", writer: os.Stdout}
	for _, fn := range opts {
		fn(&o)
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: o.debug,
	}

	newHandler := func(w io.Writer) slog.Handler {
		if o.format == "json" {
			return slog.NewJSONHandler(w, handlerOpts)
		}
		return slog.NewTextHandler(w, handlerOpts)
	}

	var sinks []slog.Handler
	sinks = append(sinks, newHandler(o.writer))
	if !o.quiet && o.writer != os.Stdout {
		sinks = append(sinks, newHandler(os.Stdout))
	}

	var handler slog.Handler
	if len(sinks) == 1 {
		handler = sinks[0]
	} else {
		handler = slogmulti.Fanout(sinks...)
	}

	return &logger{base: slog.New(handler), debug: o.debug}
}

func (l *logger) log(level slog.Level, msg string, args ...any) {
	if !l.base.Enabled(context.Background(), level) {
		return
	}
	var pcs [2]uintptr
	runtime.Callers(wrapperDepth, pcs[:])
	pc := pcs[0]
	// The package-level helpers in context.go add one frame between the
	// caller and this method; step over it so the caller is reported.
	if f, _ := runtime.CallersFrames(pcs[:1]).Next(); strings.HasSuffix(f.File, "internal/logger/context.go") {
		pc = pcs[1]
	}
	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.Add(args...)
	_ = l.base.Handler().Handle(context.Background(), r)
}

func (l *logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *logger) Debugf(format string, args ...any) { l.log(slog.LevelDebug, fmt.Sprintf(format, args...)) }
func (l *logger) Infof(format string, args ...any)  { l.log(slog.LevelInfo, fmt.Sprintf(format, args...)) }
func (l *logger) Warnf(format string, args ...any)  { l.log(slog.LevelWarn, fmt.Sprintf(format, args...)) }
func (l *logger) Errorf(format string, args ...any) { l.log(slog.LevelError, fmt.Sprintf(format, args...)) }

func (l *logger) With(args ...any) Logger {
	return &logger{base: l.base.With(args...), debug: l.debug}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{base: l.base.WithGroup(name), debug: l.debug}
}
