package domain

import (
	"context"
	"io"
	"time"
)

// Action is the unit of work behind a task.
// It blocks until the work completes and reports failure through the returned error.
type Action func(ctx context.Context) error

type outputKey struct{}

// WithOutput returns a context whose actions write diagnostics to w.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// Output returns the diagnostics writer of ctx, or io.Discard.
func Output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}
	return io.Discard
}

// Task represents a named, independently invocable unit of build work.
// A task without an Action is a composite task: it succeeds once all of its
// dependencies succeed.
type Task struct {
	Name         string
	Action       Action
	Dependencies []string
	// Outputs are the paths (relative to the project root) the action writes.
	// They are announced to live-reload clients after a successful run.
	Outputs []string
	// Message is the text reported to the operator on success.
	Message string
	// Sources are the paths the action reads. Clean tasks refuse to remove them.
	Sources []string
}

// IsComposite reports whether the task only groups its dependencies.
func (t *Task) IsComposite() bool {
	return t.Action == nil
}

// WatchRule maps filesystem path patterns to the tasks re-run on change.
type WatchRule struct {
	Patterns []string
	Tasks    []string
	// Reload announces the changed path to live-reload clients directly.
	Reload bool
}

// Outcome is the result kind of a task invocation.
type Outcome uint8

const (
	// Success indicates the task and all of its dependencies completed.
	Success Outcome = iota
	// Failure indicates the task or one of its dependencies failed.
	Failure
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// BuildResult is the outcome of one task invocation.
// For a failure, Task names the task that originated the error.
type BuildResult struct {
	Task     string
	Outcome  Outcome
	Err      error
	Message  string
	Duration time.Duration
}

// NewSuccess creates a successful BuildResult.
func NewSuccess(task, message string, d time.Duration) BuildResult {
	return BuildResult{Task: task, Outcome: Success, Message: message, Duration: d}
}

// NewFailure creates a failed BuildResult originating from task.
func NewFailure(task string, err error, d time.Duration) BuildResult {
	return BuildResult{Task: task, Outcome: Failure, Err: err, Duration: d}
}

// OK reports whether the result is a success.
func (r BuildResult) OK() bool {
	return r.Outcome == Success
}

// Text returns the operator-facing message: the success message, or the error text.
func (r BuildResult) Text() string {
	if r.Outcome == Success {
		return r.Message
	}
	if r.Err == nil {
		return "task failed"
	}
	return r.Err.Error()
}
