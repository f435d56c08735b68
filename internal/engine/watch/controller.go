// Package watch re-runs tasks when files matching watch rules change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/runner"
	"go.trai.ch/zerr"
)

// State is the dispatch state of a Controller.
type State int32

const (
	// StateIdle waits for a matching change.
	StateIdle State = iota
	// StateDebouncing collects changes until the window expires.
	StateDebouncing
	// StateDispatching runs the triggered tasks.
	StateDispatching
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// ErrControllerRunning is returned when a rule is added after Run started.
var ErrControllerRunning = zerr.New("watch rules are fixed once the controller runs")

// Runner executes a named task.
type Runner interface {
	Run(ctx context.Context, name string) domain.BuildResult
}

// Controller maps changed paths to tasks and runs them, debounced.
type Controller struct {
	root     string
	registry *domain.Registry
	watcher  ports.Watcher
	runner   Runner
	logger   ports.Logger
	reloader ports.Reloader
	metrics  ports.Metrics
	window   time.Duration

	mu      sync.Mutex
	rules   []domain.WatchRule
	index   map[string][]int
	order   []string
	running bool

	state atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the window used to coalesce bursts of changes.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithReloader announces paths matched by reload rules.
func WithReloader(reloader ports.Reloader) Option {
	return func(c *Controller) { c.reloader = reloader }
}

// WithMetrics records every dispatch.
func WithMetrics(metrics ports.Metrics) Option {
	return func(c *Controller) { c.metrics = metrics }
}

// New creates a Controller watching root.
func New(
	root string,
	registry *domain.Registry,
	watcher ports.Watcher,
	runner Runner,
	logger ports.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		root:     root,
		registry: registry,
		watcher:  watcher,
		runner:   runner,
		logger:   logger,
		window:   domain.DefaultDebounce,
		index:    make(map[string][]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Watch registers a rule. Rules must be registered before Run.
func (c *Controller) Watch(rule domain.WatchRule) error {
	if err := c.registry.ValidateRules([]domain.WatchRule{rule}); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return zerr.With(zerr.Wrap(ErrControllerRunning, "watch"), "patterns", rule.Patterns)
	}

	patterns := make([]string, 0, len(rule.Patterns))
	for _, p := range rule.Patterns {
		p = c.relPattern(p)
		if !doublestar.ValidatePattern(p) {
			return zerr.With(zerr.Wrap(doublestar.ErrBadPattern, "watch pattern"), "pattern", p)
		}
		patterns = append(patterns, p)
	}

	idx := len(c.rules)
	c.rules = append(c.rules, domain.WatchRule{
		Patterns: patterns,
		Tasks:    slices.Clone(rule.Tasks),
		Reload:   rule.Reload,
	})
	for _, p := range patterns {
		if _, ok := c.index[p]; !ok {
			c.order = append(c.order, p)
		}
		if !slices.Contains(c.index[p], idx) {
			c.index[p] = append(c.index[p], idx)
		}
	}
	return nil
}

// State returns the current dispatch state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run watches the root and dispatches tasks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if err := c.watcher.Start(ctx, c.root); err != nil {
		return err
	}
	defer func() {
		if err := c.watcher.Stop(); err != nil {
			c.logger.Warn(fmt.Sprintf("stop watcher: %v", err))
		}
	}()

	source := c.watcher.Events()
	events := make(chan ports.WatchEvent)
	go func() {
		defer close(events)
		for ev := range source {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	batches := make(chan []string)
	debouncer := NewDebouncer(c.window, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})
	defer debouncer.Stop()

	ctx = runner.WithTrigger(ctx, runner.TriggerWatch)
	c.logger.Info(fmt.Sprintf("watching %s", c.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return zerr.Wrap(domain.ErrWatcherStart, "watcher stopped")
			}
			if c.matches(ev) {
				c.state.Store(int32(StateDebouncing))
				debouncer.Add(ev.Path)
			}
		case paths := <-batches:
			c.state.Store(int32(StateDispatching))
			c.dispatch(ctx, paths)
			if debouncer.Pending() > 0 {
				c.state.Store(int32(StateDebouncing))
			} else {
				c.state.Store(int32(StateIdle))
			}
		}
	}
}

// matches reports whether ev triggers any task or reload.
func (c *Controller) matches(ev ports.WatchEvent) bool {
	rel, ok := c.rel(ev.Path)
	if !ok {
		return false
	}
	tasks, reload := c.triggered(rel)
	if len(tasks) == 0 && !reload {
		return false
	}
	c.logger.Debug(fmt.Sprintf("%s %s", ev.Operation, rel))
	return true
}

// dispatch runs the tasks triggered by paths in first-triggered order, then
// announces the paths matched by reload rules.
func (c *Controller) dispatch(ctx context.Context, paths []string) {
	var tasks, reloads []string
	for _, path := range paths {
		rel, ok := c.rel(path)
		if !ok {
			continue
		}
		triggered, reload := c.triggered(rel)
		for _, name := range triggered {
			if !slices.Contains(tasks, name) {
				tasks = append(tasks, name)
			}
		}
		if reload && !slices.Contains(reloads, rel) {
			reloads = append(reloads, rel)
		}
	}

	for _, name := range tasks {
		if ctx.Err() != nil {
			return
		}
		c.runner.Run(ctx, name)
	}

	if c.reloader != nil {
		for _, rel := range reloads {
			c.reloader.Announce(rel)
			if c.metrics != nil {
				c.metrics.ObserveAnnounce()
			}
		}
	}

	if c.metrics != nil {
		c.metrics.ObserveDispatch(len(tasks))
	}
}

// triggered returns the tasks rel triggers and whether a reload rule matched it.
// Each unique pattern is matched once.
func (c *Controller) triggered(rel string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var tasks []string
	reload := false
	seen := make(map[int]bool)
	for _, pattern := range c.order {
		if !doublestar.MatchUnvalidated(pattern, rel) {
			continue
		}
		for _, idx := range c.index[pattern] {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			rule := c.rules[idx]
			reload = reload || rule.Reload
			for _, name := range rule.Tasks {
				if c.produces(name, rel) || slices.Contains(tasks, name) {
					continue
				}
				tasks = append(tasks, name)
			}
		}
	}
	return tasks, reload
}

// produces reports whether rel lies inside a declared output of the task or
// of one of its dependencies.
func (c *Controller) produces(name, rel string) bool {
	seen := make(map[string]bool)
	var visit func(name string) bool
	visit = func(name string) bool {
		if seen[name] {
			return false
		}
		seen[name] = true

		task, err := c.registry.Resolve(name)
		if err != nil {
			return false
		}
		for _, out := range task.Outputs {
			if rel == out || strings.HasPrefix(rel, strings.TrimSuffix(out, "/")+"/") {
				return true
			}
		}
		return slices.ContainsFunc(task.Dependencies, visit)
	}
	return visit(name)
}

// rel returns path relative to the root in slash form.
func (c *Controller) rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), true
	}
	r, err := filepath.Rel(c.root, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func (c *Controller) relPattern(pattern string) string {
	if filepath.IsAbs(pattern) {
		if r, ok := c.rel(pattern); ok {
			return r
		}
	}
	return filepath.ToSlash(pattern)
}
