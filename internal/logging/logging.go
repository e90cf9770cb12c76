// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package logging provides the logger shared by the frame
// loop and its collaborators.
// By default, nothing is logged.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records.
// Enabled returns false so that callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() { loggerPtr.Store(Nop()) }

// Set replaces the shared logger.
// Passing nil restores the default, silent logger.
// It is safe for concurrent use.
func Set(l *slog.Logger) {
	if l == nil {
		l = Nop()
	}
	loggerPtr.Store(l)
}

// Get returns the shared logger.
// It is safe for concurrent use.
func Get() *slog.Logger { return loggerPtr.Load() }

// Or returns l if it is not nil and the shared logger
// otherwise.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Get()
}
