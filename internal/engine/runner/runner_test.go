package runner_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/runner"
	"go.uber.org/mock/gomock"
)

// recordingNotifier keeps every reported result.
type recordingNotifier struct {
	mu      sync.Mutex
	results []domain.BuildResult
}

func (n *recordingNotifier) Report(r domain.BuildResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
}

func (n *recordingNotifier) Tasks() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.results))
	for _, r := range n.results {
		names = append(names, r.Task)
	}
	return names
}

func newRegistry(t *testing.T, tasks ...*domain.Task) *domain.Registry {
	t.Helper()
	reg := domain.NewRegistry()
	for _, task := range tasks {
		require.NoError(t, reg.Register(task))
	}
	require.NoError(t, reg.Seal())
	return reg
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	return logger
}

func writeAction(path, content string) domain.Action {
	return func(context.Context) error {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(content), domain.FilePerm)
	}
}

// counter returns an action that counts its invocations.
func counter(n *atomic.Int32) domain.Action {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestRunner_Run_WritesOutput(t *testing.T) {
	root := t.TempDir()
	reg := newRegistry(t, &domain.Task{
		Name:    "css",
		Action:  writeAction(filepath.Join(root, "out", "style.css"), "body{}"),
		Outputs: []string{"out/style.css"},
		Message: "compiled styles",
	})
	notifier := &recordingNotifier{}
	r := runner.New(reg, root, notifier, quietLogger(t), runner.WithVerifier(fs.NewVerifier()))

	res := r.Run(context.Background(), "css")

	assert.True(t, res.OK())
	assert.Equal(t, "css", res.Task)
	assert.Equal(t, "compiled styles", res.Text())
	assert.FileExists(t, filepath.Join(root, "out", "style.css"))
	require.Len(t, notifier.results, 1)
	assert.Equal(t, res, notifier.results[0])
}

func TestRunner_Run_FailingDependency(t *testing.T) {
	root := t.TempDir()
	errLint := domain.Classify(domain.ErrCompile, errors.New("unexpected token"))
	var jsRuns atomic.Int32
	reg := newRegistry(t,
		&domain.Task{
			Name:   "lint",
			Action: func(context.Context) error { return errLint },
		},
		&domain.Task{
			Name:         "js",
			Dependencies: []string{"lint"},
			Action: func(ctx context.Context) error {
				jsRuns.Add(1)
				return writeAction(filepath.Join(root, "out", "script.js"), "x")(ctx)
			},
			Outputs: []string{"out/script.js"},
		},
	)

	logger := quietLogger(t)
	logger.EXPECT().Warn("skipping js: dependency lint failed").Times(1)

	ctrl := gomock.NewController(t)
	metrics := mocks.NewMockMetrics(ctrl)
	metrics.EXPECT().ObserveTask("lint", domain.Failure, domain.KindCompile, gomock.Any()).Times(1)
	metrics.EXPECT().ObserveTask("js", domain.Failure, domain.KindDependency, gomock.Any()).Times(1)

	notifier := &recordingNotifier{}
	r := runner.New(reg, root, notifier, logger, runner.WithMetrics(metrics))

	res := r.Run(context.Background(), "js")

	assert.False(t, res.OK())
	assert.Equal(t, "lint", res.Task)
	require.ErrorIs(t, res.Err, domain.ErrCompile)
	assert.Equal(t, "compile failed: unexpected token", res.Text())
	assert.Zero(t, jsRuns.Load())
	assert.NoFileExists(t, filepath.Join(root, "out", "script.js"))
	assert.Equal(t, []string{"lint"}, notifier.Tasks(), "skipped dependents are not reported")
}

func TestRunner_Run_DependenciesRunOnce(t *testing.T) {
	var shared, left, right, top atomic.Int32
	reg := newRegistry(t,
		&domain.Task{Name: "shared", Action: counter(&shared)},
		&domain.Task{Name: "left", Action: counter(&left), Dependencies: []string{"shared"}},
		&domain.Task{Name: "right", Action: counter(&right), Dependencies: []string{"shared"}},
		&domain.Task{Name: "top", Action: counter(&top), Dependencies: []string{"left", "right"}},
	)
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t))

	res := r.Run(context.Background(), "top")

	require.True(t, res.OK())
	assert.Equal(t, int32(1), shared.Load())
	assert.Equal(t, int32(1), left.Load())
	assert.Equal(t, int32(1), right.Load())
	assert.Equal(t, int32(1), top.Load())
	assert.Equal(t, []string{"shared", "left", "right", "top"}, notifier.Tasks())

	// Memoization is per invocation.
	r.Run(context.Background(), "top")
	assert.Equal(t, int32(2), shared.Load())
}

func TestRunner_RunAll_SharesMemo(t *testing.T) {
	var clean, css, js atomic.Int32
	reg := newRegistry(t,
		&domain.Task{Name: "clean", Action: counter(&clean)},
		&domain.Task{Name: "css", Action: counter(&css), Dependencies: []string{"clean"}},
		&domain.Task{Name: "js", Action: counter(&js), Dependencies: []string{"clean"}},
	)
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t))

	results := r.RunAll(context.Background(), []string{"css", "js", "css"})

	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.OK())
	}
	assert.Equal(t, int32(1), clean.Load())
	assert.Equal(t, int32(1), css.Load())
	assert.Equal(t, int32(1), js.Load())
	assert.Equal(t, []string{"clean", "css", "js"}, notifier.Tasks())
}

func TestRunner_Run_DefaultRunsEveryDependency(t *testing.T) {
	var js, images atomic.Int32
	reg := newRegistry(t,
		&domain.Task{Name: "css", Action: func(context.Context) error {
			return domain.Classify(domain.ErrCompile, errors.New("missing brace"))
		}},
		&domain.Task{Name: "js", Action: counter(&js)},
		&domain.Task{Name: "images", Action: counter(&images)},
		&domain.Task{Name: "default", Dependencies: []string{"css", "js", "images"}},
	)
	logger := quietLogger(t)
	logger.EXPECT().Warn("skipping default: dependency css failed").Times(1)
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, logger)

	res := r.Run(context.Background(), domain.DefaultTaskName)

	assert.False(t, res.OK())
	assert.Equal(t, "css", res.Task)
	assert.ErrorIs(t, res.Err, domain.ErrCompile)
	assert.Equal(t, int32(1), js.Load())
	assert.Equal(t, int32(1), images.Load())
	assert.Equal(t, []string{"css", "js", "images"}, notifier.Tasks())
}

func TestRunner_Run_ActionStopsAtFirstFailedDependency(t *testing.T) {
	var images, bundle atomic.Int32
	reg := newRegistry(t,
		&domain.Task{Name: "lint", Action: func(context.Context) error {
			return domain.Classify(domain.ErrCompile, errors.New("unexpected token"))
		}},
		&domain.Task{Name: "images", Action: counter(&images)},
		&domain.Task{Name: "bundle", Dependencies: []string{"lint", "images"}, Action: counter(&bundle)},
	)
	logger := quietLogger(t)
	logger.EXPECT().Warn("skipping bundle: dependency lint failed").Times(1)
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, logger)

	res := r.Run(context.Background(), "bundle")

	assert.False(t, res.OK())
	assert.Equal(t, "lint", res.Task)
	assert.Zero(t, images.Load())
	assert.Zero(t, bundle.Load())
	assert.Equal(t, []string{"lint"}, notifier.Tasks())
}

func TestRunner_Run_CompositeSucceeds(t *testing.T) {
	var order []string
	step := func(name string) domain.Action {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	reg := newRegistry(t,
		&domain.Task{Name: "css", Action: step("css")},
		&domain.Task{Name: "js", Action: step("js")},
		&domain.Task{Name: "images", Action: step("images")},
		&domain.Task{Name: "default", Dependencies: []string{"css", "js", "images"}, Message: "built"},
	)
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t))

	res := r.Run(context.Background(), "default")

	assert.True(t, res.OK())
	assert.Equal(t, "default", res.Task)
	assert.Equal(t, "built", res.Text())
	assert.Equal(t, []string{"css", "js", "images"}, order)
	assert.Equal(t, []string{"css", "js", "images", "default"}, notifier.Tasks())
}

func TestRunner_Run_RecoversPanic(t *testing.T) {
	reg := newRegistry(t, &domain.Task{
		Name:   "boom",
		Action: func(context.Context) error { panic("nil map") },
	})
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t))

	var res domain.BuildResult
	require.NotPanics(t, func() {
		res = r.Run(context.Background(), "boom")
	})

	assert.False(t, res.OK())
	require.ErrorIs(t, res.Err, domain.ErrTaskPanicked)
	assert.Contains(t, res.Text(), "nil map")
	assert.Len(t, notifier.results, 1)
}

func TestRunner_Run_UnknownTask(t *testing.T) {
	notifier := &recordingNotifier{}
	r := runner.New(newRegistry(t), t.TempDir(), notifier, quietLogger(t))

	res := r.Run(context.Background(), "missing")

	assert.False(t, res.OK())
	require.ErrorIs(t, res.Err, domain.ErrUnknownTask)
	assert.Empty(t, notifier.results)
}

func TestRunner_Run_MissingOutput(t *testing.T) {
	reg := newRegistry(t, &domain.Task{
		Name:    "css",
		Action:  func(context.Context) error { return nil },
		Outputs: []string{"out/style.css"},
	})
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t), runner.WithVerifier(fs.NewVerifier()))

	res := r.Run(context.Background(), "css")

	assert.False(t, res.OK())
	require.ErrorIs(t, res.Err, domain.ErrIO)
	assert.Equal(t, domain.KindIO, domain.KindOf(res.Err))
}

func TestRunner_Run_VerifiesDeclaredOutputs(t *testing.T) {
	root := t.TempDir()
	reg := newRegistry(t,
		&domain.Task{Name: "css", Action: func(context.Context) error { return nil }, Outputs: []string{"out/style.css"}},
		&domain.Task{Name: "js", Action: func(context.Context) error { return nil }, Outputs: []string{"out/script.js"}},
		&domain.Task{Name: "clean", Action: func(context.Context) error { return nil }},
	)

	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().VerifyOutputs(root, []string{"out/style.css"}).Return(true, nil)
	verifier.EXPECT().VerifyOutputs(root, []string{"out/script.js"}).Return(false, errors.New("permission denied"))

	notifier := &recordingNotifier{}
	r := runner.New(reg, root, notifier, quietLogger(t), runner.WithVerifier(verifier))

	assert.True(t, r.Run(context.Background(), "css").OK())

	res := r.Run(context.Background(), "js")
	assert.False(t, res.OK())
	require.ErrorIs(t, res.Err, domain.ErrIO)
	assert.Contains(t, res.Err.Error(), "permission denied")

	// Tasks without declared outputs are not verified.
	assert.True(t, r.Run(context.Background(), "clean").OK())
}

func TestRunner_Run_AnnouncesChangedOutputs(t *testing.T) {
	root := t.TempDir()
	content := "body{color:red}"
	reg := newRegistry(t, &domain.Task{
		Name: "css",
		Action: func(ctx context.Context) error {
			return writeAction(filepath.Join(root, "out", "style.css"), content)(ctx)
		},
		Outputs: []string{"out/style.css"},
	})

	ctrl := gomock.NewController(t)
	reloader := mocks.NewMockReloader(ctrl)
	metrics := mocks.NewMockMetrics(ctrl)
	metrics.EXPECT().ObserveTask("css", domain.Success, domain.FailureKind(""), gomock.Any()).Times(3)

	cache := watcher.NewFingerprintCache(fs.NewHasher(fs.NewWalker()))
	r := runner.New(reg, root, &recordingNotifier{}, quietLogger(t),
		runner.WithReloader(reloader),
		runner.WithOutputCache(cache),
		runner.WithMetrics(metrics),
	)

	reloader.EXPECT().Announce("out/style.css").Times(1)
	metrics.EXPECT().ObserveAnnounce().Times(1)
	require.True(t, r.Run(context.Background(), "css").OK())

	// Same content: nothing to reload.
	require.True(t, r.Run(context.Background(), "css").OK())

	content = "body{color:blue}"
	reloader.EXPECT().Announce("out/style.css").Times(1)
	metrics.EXPECT().ObserveAnnounce().Times(1)
	require.True(t, r.Run(context.Background(), "css").OK())
}

func TestRunner_Run_FailureIsNotAnnounced(t *testing.T) {
	reg := newRegistry(t, &domain.Task{
		Name:    "css",
		Action:  func(context.Context) error { return domain.ErrCompile },
		Outputs: []string{"out/style.css"},
	})
	ctrl := gomock.NewController(t)
	reloader := mocks.NewMockReloader(ctrl)

	r := runner.New(reg, t.TempDir(), &recordingNotifier{}, quietLogger(t), runner.WithReloader(reloader))

	assert.False(t, r.Run(context.Background(), "css").OK())
}

func TestRunner_Run_Span(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)

	errCompile := domain.Classify(domain.ErrCompile, errors.New("exit status 1"))
	reg := newRegistry(t, &domain.Task{
		Name: "css",
		Action: func(ctx context.Context) error {
			_, _ = fmt.Fprint(domain.Output(ctx), "ParseError: missing brace\n")
			return errCompile
		},
	})

	var cfg ports.SpanConfig
	tracer.EXPECT().EmitPlan(gomock.Any(), []string{"css"})
	tracer.EXPECT().Start(gomock.Any(), "css", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, opts ...ports.SpanOption) (context.Context, ports.Span) {
			for _, opt := range opts {
				opt(&cfg)
			}
			return ctx, span
		},
	)
	gomock.InOrder(
		span.EXPECT().Write([]byte("ParseError: missing brace\n")).Return(26, nil),
		span.EXPECT().RecordError(errCompile),
		span.EXPECT().End(),
	)

	r := runner.New(reg, t.TempDir(), &recordingNotifier{}, quietLogger(t), runner.WithTracer(tracer))
	res := r.Run(runner.WithTrigger(context.Background(), runner.TriggerWatch), "css")

	assert.False(t, res.OK())
	assert.Equal(t, runner.TriggerWatch, cfg.Trigger)
}

func TestRunner_Run_Serialized(t *testing.T) {
	var active, peak atomic.Int32
	reg := newRegistry(t, &domain.Task{
		Name: "slow",
		Action: func(context.Context) error {
			n := active.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		},
	})
	notifier := &recordingNotifier{}
	r := runner.New(reg, t.TempDir(), notifier, quietLogger(t))

	var wg sync.WaitGroup
	for range 3 {
		wg.Go(func() {
			r.Run(context.Background(), "slow")
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Len(t, notifier.results, 3)
}
