package ports

import (
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

// Metrics records pipeline activity.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// ObserveTask records one executed task.
	ObserveTask(task string, outcome domain.Outcome, kind domain.FailureKind, d time.Duration)
	// ObserveDispatch records one watch dispatch and the number of tasks it ran.
	ObserveDispatch(tasks int)
	// ObserveAnnounce records one path announced to live-reload clients.
	ObserveAnnounce()
	// SetReloadClients records the number of connected live-reload clients.
	SetReloadClients(n int)
}
