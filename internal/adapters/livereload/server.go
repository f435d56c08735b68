// Package livereload serves a Server-Sent Events stream that tells browsers
// which generated files changed.
package livereload

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	clientBuffer     = 16
	defaultHeartbeat = 30 * time.Second
)

var _ ports.LiveReloadServer = (*Server)(nil)

type client struct {
	id   uuid.UUID
	ch   chan []byte
	done chan struct{}
}

// Server implements ports.LiveReloadServer.
type Server struct {
	addr      string
	logger    ports.Logger
	metrics   ports.Metrics
	metricsH  http.Handler
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool
	srv     *http.Server
	bound   net.Addr
	ready   chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics reports the client count to m and serves h at /metrics.
func WithMetrics(m ports.Metrics, h http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsH = h
	}
}

// WithHeartbeat sets the interval of keep-alive comments on idle streams.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// New creates a server for cfg. Nothing listens until Start.
func New(cfg domain.LiveReload, logger ports.Logger, opts ...Option) *Server {
	s := &Server{
		addr:      cfg.Addr(),
		logger:    logger,
		heartbeat: defaultHeartbeat,
		clients:   make(map[uuid.UUID]*client),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livereload", s.serveEvents)
	mux.HandleFunc("GET /livereload.js", serveScript)
	if s.metricsH != nil {
		mux.Handle("GET /metrics", s.metricsH)
	}
	return cors(mux)
}

// Start listens on the configured address and serves until ctx is cancelled
// or Close is called.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return zerr.With(domain.Classify(domain.ErrLiveReloadListen, err), "addr", s.addr)
	}

	// SSE streams are long-lived, so no read or write timeouts.
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.bound = ln.Addr()
	close(s.ready)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logger.Info("live reload listening on http://" + ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, "live reload server failed")
	}
	return nil
}

// Ready is closed once Start is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bound != nil {
		return s.bound.String()
	}
	return s.addr
}

// Close disconnects every client and releases the port.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[uuid.UUID]*client)
	srv := s.srv
	s.mu.Unlock()

	for _, c := range clients {
		close(c.done)
	}
	s.reportClients(0)

	if srv == nil {
		return nil
	}
	return srv.Close()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Announce queues path for every connected client without blocking.
// Clients whose buffer is full are dropped.
func (s *Server) Announce(path string) {
	payload, err := json.Marshal(struct {
		Path string `json:"path"`
	}{Path: path})
	if err != nil {
		s.logger.Error(zerr.Wrap(err, "failed to encode live reload event"))
		return
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	snapshot := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.RUnlock()

	for _, c := range snapshot {
		select {
		case c.ch <- payload:
		default:
			s.logger.Debug("live reload client " + c.id.String() + " is not keeping up, dropping it")
			s.removeClient(c.id)
		}
	}
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{
		id:   uuid.New(),
		ch:   make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "live reload shutting down", http.StatusServiceUnavailable)
		return
	}
	s.clients[c.id] = c
	n := len(s.clients)
	s.mu.Unlock()
	s.reportClients(n)
	defer s.removeClient(c.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(chunks ...string) bool {
		for _, chunk := range chunks {
			if _, err := bw.WriteString(chunk); err != nil {
				return false
			}
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(": connected " + c.id.String() + "\n\n") {
		return
	}

	hb := time.NewTicker(s.heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case payload := <-c.ch:
			if !send("data: ", string(payload), "\n\n") {
				return
			}
		}
	}
}

func (s *Server) removeClient(id uuid.UUID) {
	s.mu.Lock()
	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
		close(c.done)
	}
	n := len(s.clients)
	s.mu.Unlock()

	if ok {
		s.reportClients(n)
	}
}

func (s *Server) reportClients(n int) {
	if s.metrics != nil {
		s.metrics.SetReloadClients(n)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
