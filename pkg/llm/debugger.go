package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type debugDirKey struct{}

// DebugDirContextKey groups raw dumps of one agent turn under one directory.
var DebugDirContextKey = debugDirKey{}

// WithDebugDir returns a context whose raw dumps land under dir.
func WithDebugDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, DebugDirContextKey, dir)
}

// DebugDirFrom returns the debug directory stored in ctx, if any.
func DebugDirFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	dir, _ := ctx.Value(DebugDirContextKey).(string)
	return dir
}

// ResponseDebugger appends raw provider payloads to a file under
// <root>/<debug dir>/<provider>/. A disabled debugger is a no-op.
type ResponseDebugger struct {
	file    *os.File
	enabled bool
}

// DebugRoot is the directory receiving raw dumps.
var DebugRoot = filepath.Join("debug", "responses")

// NewResponseDebugger opens the dump file when enabled is true.
func NewResponseDebugger(ctx context.Context, provider string, enabled bool) *ResponseDebugger {
	if !enabled {
		return &ResponseDebugger{}
	}

	debugDir := filepath.Join(DebugRoot, provider)
	if dir := DebugDirFrom(ctx); dir != "" {
		debugDir = filepath.Join(DebugRoot, dir, provider)
	}

	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		slog.Error("Failed to create debug directory", "dir", debugDir, "error", err)
		return &ResponseDebugger{}
	}

	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", time.Now().Format("20060102_150405.000")))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("Failed to open debug file", "file", filename, "error", err)
		return &ResponseDebugger{}
	}

	slog.Debug("Response debugging on", "provider", provider, "file", filename)
	return &ResponseDebugger{file: f, enabled: true}
}

// Write appends data followed by a newline.
func (d *ResponseDebugger) Write(data []byte) {
	if !d.enabled || d.file == nil {
		return
	}
	if _, err := d.file.Write(append(data, '\n')); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// WriteJSON marshals v and appends it.
func (d *ResponseDebugger) WriteJSON(v any) {
	if !d.enabled {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal debug payload", "error", err)
		return
	}
	d.Write(data)
}

// Close closes the dump file.
func (d *ResponseDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}
