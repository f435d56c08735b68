package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

// taskKey is lifted out of the attribute list and printed as a "[task]" tag,
// matching the notifier's report lines.
const taskKey = "task"

// PrettyHandler is a slog.Handler that prints one colored line per record:
// an optional level glyph, an optional "[task]" tag, the message and then
// key=value attributes.
type PrettyHandler struct {
	out    *termenv.Output
	level  slog.Leveler
	task   string
	fields []string
	prefix string
}

// NewPrettyHandler creates a new PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and outputs the log record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	glyph, color := levelStyle(r.Level)

	task := h.task
	fields := h.fields
	if r.NumAttrs() > 0 {
		fields = append([]string(nil), h.fields...)
		r.Attrs(func(attr slog.Attr) bool {
			if h.prefix == "" && attr.Key == taskKey {
				task = attr.Value.String()
				return true
			}
			fields = appendAttr(fields, h.prefix, attr)
			return true
		})
	}

	var b strings.Builder
	if glyph != "" {
		b.WriteString(glyph)
		b.WriteByte(' ')
	}
	if task != "" {
		b.WriteString("[" + task + "] ")
	}
	b.WriteString(r.Message)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}

	styled := h.out.String(b.String()).Foreground(color)
	_, err := h.out.WriteString(styled.String() + "\n")
	return err
}

// WithAttrs returns a new Handler with attrs rendered once up front.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, attr := range attrs {
		if h.prefix == "" && attr.Key == taskKey {
			next.task = attr.Value.String()
			continue
		}
		next.fields = appendAttr(next.fields, h.prefix, attr)
	}
	return next
}

// WithGroup returns a new Handler that qualifies later keys with name.
// Nested groups are joined with dots.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		out:    h.out,
		level:  h.level,
		task:   h.task,
		fields: append([]string(nil), h.fields...),
		prefix: h.prefix,
	}
}

func levelStyle(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	case level >= slog.LevelInfo:
		return "", termenv.RGBColor(string(style.Ash))
	default:
		return style.Dot, termenv.RGBColor(string(style.Smoke))
	}
}

// appendAttr renders attr as key=value, flattening group values.
func appendAttr(fields []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return fields
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner += attr.Key + "."
		}
		for _, a := range attr.Value.Group() {
			fields = appendAttr(fields, inner, a)
		}
		return fields
	}
	return append(fields, prefix+attr.Key+"="+attr.Value.String())
}
