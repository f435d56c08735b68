package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for console progress output.
// It decouples telemetry collection from presentation logic.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events.
	// It flushes any buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called when the runner has planned a set of top-level tasks.
	OnPlanEmit(tasks []string)

	// OnTaskStart is called when a task action begins.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output.
	// data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task action finishes.
	// err is nil if successful.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
