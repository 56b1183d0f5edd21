// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package log is a thin leveled logging facade used throughout the vectorized
// join code. Messages carry the logging tags attached to their context and
// are written through a zap logger.
package log

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity identifies the importance of a log entry.
type Severity int

const (
	// SeverityInfo is used for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is used for situations that might need attention.
	SeverityWarning
	// SeverityError is used for errors that do not stop the process.
	SeverityError
	// SeverityFatal is used right before the process exits.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	}
	return "UNKNOWN"
}

var logging struct {
	verbosity atomic.Int32

	mu struct {
		sync.Mutex
		logger *zap.Logger
		exitFn func(int)
	}
}

func init() {
	logging.mu.logger = newDefaultLogger()
}

func newDefaultLogger() *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
}

func getLogger() *zap.Logger {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	return logging.mu.logger
}

// SetLogger replaces the process-wide logger and returns the previous one.
func SetLogger(l *zap.Logger) *zap.Logger {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.logger
	logging.mu.logger = l
	return prev
}

// SetVerbosity sets the global verbosity level consulted by V and VEventf
// and returns the previous level.
func SetVerbosity(level int32) int32 {
	return logging.verbosity.Swap(level)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return logging.verbosity.Load() >= level
}

// SetExitFunc allows setting a function that will be called to exit the
// process when a Fatal message is generated.
//
// Call with a nil function to undo.
func SetExitFunc(f func(int)) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.exitFn = f
}

// ResetExitFunc undoes any prior call to SetExitFunc.
func ResetExitFunc() {
	SetExitFunc(nil)
}

func exit(code int) {
	logging.mu.Lock()
	f := logging.mu.exitFn
	logging.mu.Unlock()
	if f == nil {
		f = os.Exit
	}
	f(code)
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityInfo, 1, format, args)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityWarning, 1, format, args)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityError, 1, format, args)
}

// Fatalf logs to the FATAL severity and then exits the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityFatal, 1, format, args)
	exit(255)
}

// VEventf logs to the INFO severity if the verbosity is at least level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		addStructured(ctx, SeverityInfo, 1, format, args)
	}
}
