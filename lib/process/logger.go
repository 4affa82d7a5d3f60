// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger writing to output. When output
// is a terminal the handler is slog.TextHandler; when it is piped (the
// usual case for a worker whose stderr the bridge inherits or
// captures) the handler is slog.JSONHandler.
//
// verbose lowers the level from Info to Debug.
func NewLogger(output io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isTerminal(output) {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	return slog.New(handler)
}

// IsTerminal reports whether output is an *os.File attached to a
// terminal.
func IsTerminal(output io.Writer) bool {
	return isTerminal(output)
}

func isTerminal(output io.Writer) bool {
	file, ok := output.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
