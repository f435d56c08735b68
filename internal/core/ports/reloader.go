package ports

import "context"

// Reloader signals connected browser clients that a path changed.
//
//go:generate mockgen -source=reloader.go -destination=mocks/mock_reloader.go -package=mocks
type Reloader interface {
	// Announce queues path for every connected client without blocking.
	// Clients connecting later never see it.
	Announce(path string)
}

// LiveReloadServer is a Reloader with a network lifecycle.
type LiveReloadServer interface {
	Reloader
	// Start listens on the configured address and serves until ctx is
	// cancelled or Close is called.
	Start(ctx context.Context) error
	// Close disconnects every client and releases the port.
	Close() error
	// Clients returns the number of connected clients.
	Clients() int
}
