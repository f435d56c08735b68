// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.trai.ch/kiln/internal/adapters/assets"
	"go.trai.ch/kiln/internal/adapters/livereload"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/runner"
	"go.trai.ch/kiln/internal/engine/watch"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	notifier     ports.Notifier
	renderer     ports.Renderer
	assets       *assets.Factory
	watcher      ports.Watcher
	cache        ports.OutputCache
	verifier     ports.Verifier
	metrics      *metrics.PrometheusRecorder
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	notifier ports.Notifier,
	renderer ports.Renderer,
	factory *assets.Factory,
	watcher ports.Watcher,
	cache ports.OutputCache,
	verifier ports.Verifier,
	recorder *metrics.PrometheusRecorder,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		notifier:     notifier,
		renderer:     renderer,
		assets:       factory,
		watcher:      watcher,
		cache:        cache,
		verifier:     verifier,
		metrics:      recorder,
	}
}

// Options are the command line overrides shared by all commands.
type Options struct {
	// ConfigPath is kiln.yaml or a directory to search upward from.
	ConfigPath string
	// Minify overrides options.minify when set.
	Minify *bool
	// LiveReloadScript overrides options.appendLiveReloadScript when set.
	LiveReloadScript *bool
	// Port overrides the live-reload port when positive.
	Port int
	// Verbose shows debug logs and task lifecycle lines.
	Verbose bool
	// JSON switches log output to JSON.
	JSON bool
}

// Build runs the named tasks, or the default task, once.
func (a *App) Build(ctx context.Context, names []string, opts Options) error {
	pipeline, registry, err := a.setup(opts)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		names = []string{domain.DefaultTaskName}
	}
	for _, name := range names {
		if _, err := registry.Resolve(name); err != nil {
			return err
		}
	}

	return a.session(ctx, func(ctx context.Context, tracer ports.Tracer) error {
		run := a.newRunner(pipeline, registry, tracer, nil)
		return buildError(run.RunAll(ctx, names))
	})
}

// Clean runs the clean task.
func (a *App) Clean(ctx context.Context, opts Options) error {
	return a.Build(ctx, []string{domain.CleanTaskName}, opts)
}

// Watch builds the default task, then rebuilds on change and serves live
// reload until ctx is cancelled.
func (a *App) Watch(ctx context.Context, opts Options) error {
	pipeline, registry, err := a.setup(opts)
	if err != nil {
		return err
	}

	server := livereload.New(pipeline.LiveReload, a.logger, livereload.WithMetrics(a.metrics, a.metrics.Handler()))

	return a.session(ctx, func(ctx context.Context, tracer ports.Tracer) error {
		run := a.newRunner(pipeline, registry, tracer, server)

		controller := watch.New(pipeline.Root, registry, a.watcher, run, a.logger,
			watch.WithDebounce(pipeline.Debounce),
			watch.WithReloader(server),
			watch.WithMetrics(a.metrics),
		)
		for _, rule := range pipeline.Rules {
			if err := controller.Watch(rule); err != nil {
				return err
			}
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})
		g.Go(func() error {
			select {
			case <-server.Ready():
			case <-ctx.Done():
				return nil
			}
			if _, err := registry.Resolve(domain.DefaultTaskName); err == nil {
				run.Run(runner.WithTrigger(ctx, runner.TriggerWatch), domain.DefaultTaskName)
			}
			return controller.Run(ctx)
		})
		return g.Wait()
	})
}

// Tasks writes the registered tasks and their dependencies to w.
func (a *App) Tasks(_ context.Context, w io.Writer, opts Options) error {
	_, registry, err := a.setup(opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, task := range registry.Tasks() {
		deps := "-"
		if len(task.Dependencies) > 0 {
			deps = strings.Join(task.Dependencies, ", ")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", task.Name, deps, task.Message)
	}
	return tw.Flush()
}

// setup loads the configuration, applies the overrides and registers the tasks.
func (a *App) setup(opts Options) (*domain.Pipeline, *domain.Registry, error) {
	a.configureOutput(opts)

	path := opts.ConfigPath
	if path == "" {
		path = "."
	}
	pipeline, err := a.configLoader.Load(path)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	if opts.Minify != nil {
		pipeline.Options.Minify = *opts.Minify
	}
	if opts.LiveReloadScript != nil {
		pipeline.Options.AppendLiveReloadScript = *opts.LiveReloadScript
	}
	if opts.Port > 0 {
		pipeline.LiveReload.Port = opts.Port
	}

	tasks, err := a.assets.NewBuilder(pipeline).BuildAll(pipeline.Tasks)
	if err != nil {
		return nil, nil, err
	}

	registry := domain.NewRegistry()
	for _, task := range tasks {
		if err := registry.Register(task); err != nil {
			return nil, nil, err
		}
	}
	if err := registry.Seal(); err != nil {
		return nil, nil, err
	}
	if err := registry.ValidateRules(pipeline.Rules); err != nil {
		return nil, nil, err
	}

	a.logger.Debug(fmt.Sprintf("loaded %d tasks from %s", len(tasks), pipeline.ConfigPath))
	return pipeline, registry, nil
}

func (a *App) newRunner(
	pipeline *domain.Pipeline,
	registry *domain.Registry,
	tracer ports.Tracer,
	reloader ports.Reloader,
) *runner.Runner {
	opts := []runner.Option{
		runner.WithTracer(tracer),
		runner.WithVerifier(a.verifier),
		runner.WithMetrics(a.metrics),
	}
	if reloader != nil {
		opts = append(opts, runner.WithReloader(reloader), runner.WithOutputCache(a.cache))
	}
	return runner.New(registry, pipeline.Root, a.notifier, a.logger, opts...)
}

// session runs fn with a tracer whose spans are rendered to the console.
func (a *App) session(ctx context.Context, fn func(context.Context, ports.Tracer) error) error {
	bridge := telemetry.NewBridge(a.renderer)
	shutdown := telemetry.Setup(bridge)
	defer func() {
		_ = shutdown(context.WithoutCancel(ctx))
	}()

	tracer := telemetry.NewOTelTracer("kiln").WithRenderer(a.renderer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.renderer.Start(ctx); err != nil {
			return err
		}
		return a.renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = a.renderer.Stop()
		}()
		return fn(ctx, tracer)
	})

	return g.Wait()
}

// configureOutput applies the verbosity and format switches to the adapters
// that support them.
func (a *App) configureOutput(opts Options) {
	type verboser interface{ SetVerbose(bool) }
	type jsoner interface{ SetJSON(bool) }

	if v, ok := a.logger.(verboser); ok {
		v.SetVerbose(opts.Verbose)
	}
	if j, ok := a.logger.(jsoner); ok {
		j.SetJSON(opts.JSON)
	}
	if v, ok := a.renderer.(verboser); ok {
		v.SetVerbose(opts.Verbose)
	}
}

// buildError joins the failures of results under domain.ErrBuildFailed.
func buildError(results []domain.BuildResult) error {
	var errs error
	for _, res := range results {
		if !res.OK() {
			errs = errors.Join(errs, res.Err)
		}
	}
	if errs != nil {
		return errors.Join(domain.ErrBuildFailed, errs)
	}
	return nil
}
