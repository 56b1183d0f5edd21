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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/logtags"
	"go.uber.org/zap"
)

// FormatWithContextTags formats the string and prepends the context
// tags.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	formatTags(ctx, true /* brackets */, &buf)
	fmt.Fprintf(&buf, format, args...)
	return buf.String()
}

// formatTags appends the tags attached to ctx to buf, in the
// "[tag1,tag2=val] " form. Returns false if there were no tags.
func formatTags(ctx context.Context, brackets bool, buf *strings.Builder) bool {
	tags := logtags.FromContext(ctx)
	if tags == nil || len(tags.Get()) == 0 {
		return false
	}
	if brackets {
		buf.WriteByte('[')
	}
	tags.FormatToString(buf)
	if brackets {
		buf.WriteString("] ")
	}
	return true
}

// addStructured creates a log entry for the given severity and hands it to
// the current logger.
func addStructured(
	ctx context.Context, sev Severity, depth int, format string, args []interface{},
) {
	msg := FormatWithContextTags(ctx, format, args...)
	l := getLogger().WithOptions(zap.AddCallerSkip(depth - 1))
	switch sev {
	case SeverityInfo:
		l.Info(msg)
	case SeverityWarning:
		l.Warn(msg)
	case SeverityError:
		l.Error(msg)
	default:
		// Fatal entries are written at ERROR level; the exit is performed by
		// Fatalf so that tests can intercept it.
		l.Error(msg, zap.String("severity", sev.String()))
	}
}
