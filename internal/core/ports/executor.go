// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Executor defines the interface for running external commands such as the style compiler.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs argv in dir and waits for it to complete.
	// Standard output and standard error are kept apart so a compiler's
	// result can be captured while its diagnostics are streamed elsewhere.
	Execute(ctx context.Context, argv []string, dir string, stdout, stderr io.Writer) error
}
