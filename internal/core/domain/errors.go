package domain

import (
	"errors"
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrDuplicateTask is returned when registering a task whose name is already taken.
	ErrDuplicateTask = zerr.New("task already registered")

	// ErrUnknownTask is returned when a task name does not resolve in the registry.
	ErrUnknownTask = zerr.New("unknown task")

	// ErrInvalidTaskName is returned when a task has an empty name.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrRegistrySealed is returned when registering after the startup phase has ended.
	ErrRegistrySealed = zerr.New("task registry is sealed")

	// ErrCycleDetected is returned when task dependencies form a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrCompile is returned when a source cannot be compiled or minified.
	ErrCompile = zerr.New("compile failed")

	// ErrIO is returned when a source cannot be read or an output cannot be written.
	ErrIO = zerr.New("i/o failure")

	// ErrTaskPanicked is returned when a task action panics.
	ErrTaskPanicked = zerr.New("task panicked")

	// ErrDependencyFailed marks a task that was skipped because a dependency failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrBuildFailed is returned when at least one top-level task failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrNoSources is returned when a task's source patterns match no files.
	ErrNoSources = zerr.New("no source files matched")

	// ErrOutputPathOutsideRoot is returned when a generated path is outside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrCleanSourcePath is returned when a clean path overlaps a source path.
	ErrCleanSourcePath = zerr.New("refusing to clean a source path")

	// ErrConfigNotFound is returned when no configuration file can be found.
	ErrConfigNotFound = zerr.New("could not find kiln.yaml")

	// ErrConfigReadFailed is returned when the configuration file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the configuration file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidTaskKind is returned when a task declares an unknown kind.
	ErrInvalidTaskKind = zerr.New("invalid task kind, expected style, script, copy, page or clean")

	// ErrMissingTaskField is returned when a task lacks a field its kind requires.
	ErrMissingTaskField = zerr.New("missing required task field")

	// ErrInvalidDebounce is returned when the debounce window cannot be parsed.
	ErrInvalidDebounce = zerr.New("invalid debounce duration")

	// ErrEnvFileFailed is returned when the .env file exists but cannot be loaded.
	ErrEnvFileFailed = zerr.New("failed to load .env file")

	// ErrLiveReloadListen is returned when the live-reload server cannot bind its port.
	ErrLiveReloadListen = zerr.New("failed to start live-reload server")

	// ErrWatcherStart is returned when the filesystem watcher cannot be started.
	ErrWatcherStart = zerr.New("failed to start file watcher")
)

// FailureKind classifies task failures.
type FailureKind string

const (
	// KindCompile is a malformed source or a failing compiler.
	KindCompile FailureKind = "compile"
	// KindIO is a missing source or an unwritable output.
	KindIO FailureKind = "io"
	// KindDependency is a task skipped because a dependency failed.
	KindDependency FailureKind = "dependency"
	// KindOther is any other failure.
	KindOther FailureKind = "other"
)

// KindOf classifies err.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCompile):
		return KindCompile
	case errors.Is(err, ErrIO), errors.Is(err, ErrNoSources):
		return KindIO
	case errors.Is(err, ErrDependencyFailed):
		return KindDependency
	default:
		return KindOther
	}
}

// Classify marks cause with a failure sentinel such as ErrCompile or ErrIO.
// The result matches both with errors.Is and reads "<sentinel>: <cause>".
func Classify(sentinel, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
