// Package runner executes named tasks with their dependencies.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// TriggerCLI and TriggerWatch name what started an invocation.
const (
	TriggerCLI   = "cli"
	TriggerWatch = "watch"
)

type triggerKey struct{}

// WithTrigger records what started the invocations made with ctx.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerOf(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return TriggerCLI
}

// Runner executes tasks from a registry.
// Invocations are serialized: a run that overlaps an in-flight run waits for it.
type Runner struct {
	registry *domain.Registry
	root     string
	notifier ports.Notifier
	logger   ports.Logger

	tracer   ports.Tracer
	reloader ports.Reloader
	cache    ports.OutputCache
	verifier ports.Verifier
	metrics  ports.Metrics

	mu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithTracer runs every action inside a span of tracer.
func WithTracer(tracer ports.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithReloader announces the outputs of successful tasks to reloader.
func WithReloader(reloader ports.Reloader) Option {
	return func(r *Runner) { r.reloader = reloader }
}

// WithOutputCache suppresses announcements for outputs whose content is unchanged.
func WithOutputCache(cache ports.OutputCache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithVerifier fails tasks whose declared outputs are missing after the action.
func WithVerifier(verifier ports.Verifier) Option {
	return func(r *Runner) { r.verifier = verifier }
}

// WithMetrics records task outcomes and announcements.
func WithMetrics(metrics ports.Metrics) Option {
	return func(r *Runner) { r.metrics = metrics }
}

// New creates a Runner for the tasks of registry. Outputs are relative to root.
func New(registry *domain.Registry, root string, notifier ports.Notifier, logger ports.Logger, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		root:     root,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named task after its dependencies.
func (r *Runner) Run(ctx context.Context, name string) domain.BuildResult {
	return r.RunAll(ctx, []string{name})[0]
}

// RunAll executes several top-level tasks in order within one invocation.
// A task shared by several of them runs at most once.
func (r *Runner) RunAll(ctx context.Context, names []string) []domain.BuildResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tracer != nil {
		r.tracer.EmitPlan(ctx, names)
	}

	inv := &invocation{
		Runner:  r,
		ctx:     ctx,
		trigger: triggerOf(ctx),
		memo:    make(map[string]domain.BuildResult),
		active:  make(map[string]bool),
	}

	results := make([]domain.BuildResult, 0, len(names))
	for _, name := range names {
		results = append(results, inv.run(name))
	}
	return results
}

// invocation holds the memo of one Run or RunAll call.
type invocation struct {
	*Runner
	ctx     context.Context
	trigger string
	memo    map[string]domain.BuildResult
	active  map[string]bool
}

func (inv *invocation) run(name string) domain.BuildResult {
	if res, ok := inv.memo[name]; ok {
		return res
	}

	task, err := inv.registry.Resolve(name)
	if err != nil {
		return domain.NewFailure(name, err, 0)
	}
	if inv.active[name] {
		return domain.NewFailure(name, zerr.With(zerr.Wrap(domain.ErrCycleDetected, name), "task", name), 0)
	}
	inv.active[name] = true
	defer delete(inv.active, name)

	start := time.Now()
	// A composite task starts every dependency even after one fails; a task
	// with an action stops at the first failure.
	var failed *domain.BuildResult
	for _, dep := range task.Dependencies {
		res := inv.run(dep)
		if res.OK() || failed != nil {
			continue
		}
		failed = &res
		if !task.IsComposite() {
			break
		}
	}
	if failed != nil {
		inv.logger.Warn(fmt.Sprintf("skipping %s: dependency %s failed", name, failed.Task))
		inv.observe(name, domain.Failure, domain.KindDependency, time.Since(start))
		inv.memo[name] = *failed
		return *failed
	}

	var res domain.BuildResult
	if task.IsComposite() {
		res = domain.NewSuccess(name, task.Message, time.Since(start))
	} else {
		res = inv.execute(task)
	}

	inv.notifier.Report(res)
	inv.observe(name, res.Outcome, domain.KindOf(res.Err), res.Duration)
	if res.OK() {
		inv.announce(task)
	}

	inv.memo[name] = res
	return res
}

// execute runs the action of task inside a span.
func (inv *invocation) execute(task *domain.Task) domain.BuildResult {
	ctx := inv.ctx
	var span ports.Span
	if inv.tracer != nil {
		ctx, span = inv.tracer.Start(ctx, task.Name, ports.WithTrigger(inv.trigger))
		defer span.End()
		ctx = domain.WithOutput(ctx, span)
	}

	start := time.Now()
	err := safeRun(ctx, task)
	if err == nil {
		err = inv.verify(task)
	}
	d := time.Since(start)

	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return domain.NewFailure(task.Name, err, d)
	}
	return domain.NewSuccess(task.Name, task.Message, d)
}

// safeRun converts a panicking action into an error.
func safeRun(ctx context.Context, task *domain.Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = zerr.With(domain.Classify(domain.ErrTaskPanicked, fmt.Errorf("%v", p)), "task", task.Name)
		}
	}()
	return task.Action(ctx)
}

func (inv *invocation) verify(task *domain.Task) error {
	if inv.verifier == nil || len(task.Outputs) == 0 {
		return nil
	}
	ok, err := inv.verifier.VerifyOutputs(inv.root, task.Outputs)
	if err != nil {
		return domain.Classify(domain.ErrIO, err)
	}
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrIO, "declared outputs missing"), "outputs", task.Outputs)
	}
	return nil
}

// announce passes the changed outputs of task to the reloader.
func (inv *invocation) announce(task *domain.Task) {
	if inv.reloader == nil {
		return
	}
	for _, out := range task.Outputs {
		if inv.cache != nil {
			changed, err := inv.cache.Changed(filepath.Join(inv.root, filepath.FromSlash(out)))
			if err != nil {
				inv.logger.Warn(fmt.Sprintf("fingerprint %s: %v", out, err))
			} else if !changed {
				continue
			}
		}
		inv.reloader.Announce(out)
		if inv.metrics != nil {
			inv.metrics.ObserveAnnounce()
		}
	}
}

func (inv *invocation) observe(name string, outcome domain.Outcome, kind domain.FailureKind, d time.Duration) {
	if inv.metrics != nil {
		inv.metrics.ObserveTask(name, outcome, kind, d)
	}
}
