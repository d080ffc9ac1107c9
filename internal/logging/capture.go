package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is one captured log record, flattened for assertions.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler is a slog.Handler that records everything it receives.
// Tests install it to assert on what the code under test logged.
type CaptureHandler struct {
	mu      sync.Mutex
	entries []Entry
	attrs   []slog.Attr
}

// NewCaptureHandler creates an empty capture handler.
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{}
}

// Enabled reports true for every level so nothing is missed.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle records the entry.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
	return nil
}

// WithAttrs returns a handler that records the given attrs on every entry.
// Captured entries still land in the parent handler.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureChild{parent: h, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

// WithGroup is accepted but groups are flattened into plain keys.
func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Entries returns a copy of everything captured so far.
func (h *CaptureHandler) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset discards captured entries.
func (h *CaptureHandler) Reset() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

type captureChild struct {
	parent *CaptureHandler
	attrs  []slog.Attr
}

func (c *captureChild) Enabled(context.Context, slog.Level) bool { return true }

func (c *captureChild) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Message: r.Message, Attrs: map[string]any{}}
	for _, a := range c.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})

	c.parent.mu.Lock()
	c.parent.entries = append(c.parent.entries, e)
	c.parent.mu.Unlock()
	return nil
}

func (c *captureChild) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureChild{parent: c.parent, attrs: append(append([]slog.Attr{}, c.attrs...), attrs...)}
}

func (c *captureChild) WithGroup(string) slog.Handler { return c }
