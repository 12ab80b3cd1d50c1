package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/forge/internal/ui/output"
	"go.trai.ch/forge/internal/ui/style"
)

// PrettyHandler renders each record as a single colored line: an icon
// prefix for warnings and errors, the message, then any attributes as
// key=value pairs.
type PrettyHandler struct {
	out     *termenv.Output
	minimum slog.Level
	prefix  string
	attrs   []slog.Attr
}

// NewPrettyHandler creates a PrettyHandler writing to w. A nil writer
// falls back to stderr.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	h := &PrettyHandler{out: output.New(w), minimum: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.minimum = opts.Level.Level()
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minimum
}

// Handle writes one line per record. Handler-bound attributes render
// before the record's own.
//
//nolint:gocritic // slog.Handler takes the record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	color := style.Slate

	switch r.Level {
	case slog.LevelWarn:
		line.WriteString(style.Warning + " ")
		color = style.Yellow
	case slog.LevelError:
		line.WriteString(style.Cross + " ")
		color = style.Red
	}
	line.WriteString(r.Message)

	for _, attr := range h.attrs {
		h.appendAttr(&line, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&line, attr)
		return true
	})

	styled := h.out.String(line.String()).Foreground(termenv.RGBColor(string(color)))
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

// appendAttr renders one attribute as " key=value". A group set via
// WithGroup prefixes the key.
func (h *PrettyHandler) appendAttr(line *strings.Builder, attr slog.Attr) {
	line.WriteString(" ")
	if h.prefix != "" {
		line.WriteString(h.prefix + ".")
	}
	line.WriteString(attr.Key + "=" + attr.Value.String())
}

// WithAttrs returns a handler whose records carry the given attributes.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return &clone
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.prefix = name
	return &clone
}
