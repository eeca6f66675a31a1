package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// colorHandler renders each record through a text handler into a buffer and
// writes the finished line wrapped in an ANSI color for the record's level.
// The escape codes are added outside the text handler so they reach the
// terminal as real bytes instead of being quoted inside msg="...".
type colorHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	w     io.Writer
	inner slog.Handler
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	buf := &bytes.Buffer{}
	return &colorHandler{
		mu:    &sync.Mutex{},
		buf:   buf,
		w:     w,
		inner: slog.NewTextHandler(buf, opts),
	}
}

func (h *colorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := bytes.TrimRight(h.buf.Bytes(), "\n")
	out := make([]byte, 0, len(line)+12)
	out = append(out, levelColor(r.Level)...)
	out = append(out, line...)
	out = append(out, "\033[0m\n"...)
	_, err := h.w.Write(out)
	return err
}

// WithAttrs and WithGroup share the buffer and lock with the parent so
// derived loggers still write whole lines atomically.
func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{mu: h.mu, buf: h.buf, w: h.w, inner: h.inner.WithAttrs(attrs)}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{mu: h.mu, buf: h.buf, w: h.w, inner: h.inner.WithGroup(name)}
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return "\033[32m"
	default:
		return "\033[36m"
	}
}
