package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/adapters/logger"
)

func newTestHandler(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler), buf
}

func TestPrettyHandler_Handle_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		goldenName string
	}{
		{name: "info level", level: slog.LevelInfo, msg: "information message", goldenName: "handler_info"},
		{name: "warn level", level: slog.LevelWarn, msg: "warning message", goldenName: "handler_warn"},
		{name: "error level", level: slog.LevelError, msg: "error message", goldenName: "handler_error"},
		{name: "debug level filtered", level: slog.LevelDebug, msg: "debug message", goldenName: "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestHandler(t)
			lg.Log(t.Context(), tt.level, tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	lg, buf := newTestHandler(t)
	lg.Info("compiled", "task", "css", "ms", 12)

	g := goldie.New(t)
	g.Assert(t, "handler_attrs", buf.Bytes())
}

func TestPrettyHandler_Group(t *testing.T) {
	lg, buf := newTestHandler(t)
	lg.WithGroup("watch").Info("dispatch", "tasks", 2)

	g := goldie.New(t)
	g.Assert(t, "handler_group", buf.Bytes())
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	lg, buf := newTestHandler(t)
	lg.With("task", "js").Warn("slow")

	assert.Equal(t, "! [js] slow\n", buf.String())
}

func TestPrettyHandler_NestedGroups(t *testing.T) {
	lg, buf := newTestHandler(t)
	lg.WithGroup("watch").WithGroup("batch").Info("flushed",
		"paths", 3,
		slog.Group("rule", "reload", true),
		"task", "css",
	)

	assert.Equal(t, "flushed watch.batch.paths=3 watch.batch.rule.reload=true watch.batch.task=css\n", buf.String())
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	h := logger.NewPrettyHandler(nil, nil)
	assert.True(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, h.Enabled(t.Context(), slog.LevelDebug))
}
