package ports

import "go.trai.ch/kiln/internal/core/domain"

// Notifier surfaces per-task outcomes to the operator.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	// Report publishes one result. It never fails; delivery problems are logged.
	Report(result domain.BuildResult)
}
