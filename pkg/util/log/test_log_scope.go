// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package log

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogScope represents the lifetime of a logging output redirection for
// a single test.
type TestLogScope struct {
	prevLogger    *zap.Logger
	prevVerbosity int32
	closed        bool
}

// Scope redirects all log output to the test's own log until Close is
// called. Typical use:
//
//	defer log.Scope(t).Close(t)
func Scope(t testing.TB) *TestLogScope {
	return &TestLogScope{
		prevLogger:    SetLogger(zaptest.NewLogger(t)),
		prevVerbosity: logging.verbosity.Load(),
	}
}

// Close restores the logging configuration that was in place before the
// scope was created.
func (l *TestLogScope) Close(t testing.TB) {
	t.Helper()
	if l == nil || l.closed {
		return
	}
	SetLogger(l.prevLogger)
	SetVerbosity(l.prevVerbosity)
	l.closed = true
}
