// Package stacktrace shortens panic stacks to the frames of this module.
package stacktrace

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
)

// Frames lists the calling goroutine's frames that belong to a module package
// under internal/, innermost first, as "internal/<path>.go:<line>".
func Frames() []string {
	pcs := make([]uintptr, 64)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])

	var out []string
	for {
		f, more := frames.Next()
		if keep(f) {
			_, rel, _ := strings.Cut(f.File, "/internal/")
			out = append(out, fmt.Sprintf("internal/%s:%d", rel, f.Line))
		}
		if !more {
			return out
		}
	}
}

// Attr is the "stack" log attribute for a recovered panic. It carries the full
// stack when no module frame was found.
func Attr() slog.Attr {
	if frames := Frames(); len(frames) > 0 {
		return slog.Any("stack", frames)
	}
	return slog.String("stack", string(debug.Stack()))
}

func keep(f runtime.Frame) bool {
	// Standard library packages have no dot in their first path element.
	root, _, _ := strings.Cut(f.Function, "/")
	if !strings.Contains(root, ".") {
		return false
	}
	return strings.Contains(f.File, "/internal/") && !strings.HasSuffix(f.File, "/stacktrace/stacktrace.go")
}
