package app_test

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/assets"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type recordingNotifier struct {
	mu       sync.Mutex
	results  []domain.BuildResult
	reported chan domain.BuildResult
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{reported: make(chan domain.BuildResult, 16)}
}

func (n *recordingNotifier) Report(r domain.BuildResult) {
	n.mu.Lock()
	n.results = append(n.results, r)
	n.mu.Unlock()
	n.reported <- r
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

type testEnv struct {
	root     string
	app      *app.App
	loader   *mocks.MockConfigLoader
	watcher  *mocks.MockWatcher
	notifier *recordingNotifier
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

// newPipeline declares images, js, clean and a default group over root.
func newPipeline(root string) *domain.Pipeline {
	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	return &domain.Pipeline{
		Root:       root,
		Options:    domain.Options{Minify: true},
		LiveReload: domain.LiveReload{Host: "127.0.0.1", Port: 0},
		Debounce:   10 * time.Millisecond,
		ConfigPath: abs(domain.ConfigFileName),
		Tasks: []domain.TaskSpec{
			{Name: "clean", Kind: domain.KindClean, Paths: []string{abs("out")}},
			{Name: "default", DependsOn: []string{"images", "js"}, Message: "site built"},
			{
				Name:    "images",
				Kind:    domain.KindCopy,
				Sources: []string{abs("src/img/**/*.png")},
				Base:    abs("src/img"),
				Dest:    abs("out/img"),
			},
			{
				Name:    "js",
				Kind:    domain.KindScript,
				Sources: []string{abs("src/js/a.js"), abs("src/js/b.js")},
				Out:     abs("out/script.js"),
			},
		},
		Rules: []domain.WatchRule{{Patterns: []string{"src/js/*.js"}, Tasks: []string{"js"}}},
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/img/icons/logo.png": "png",
		"src/js/a.js":            "var greeting = 'hello';",
		"src/js/b.js":            "console.log( greeting );",
	})

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	env := &testEnv{
		root:     root,
		loader:   mocks.NewMockConfigLoader(ctrl),
		watcher:  mocks.NewMockWatcher(ctrl),
		notifier: newRecordingNotifier(),
	}
	env.app = app.New(
		env.loader,
		log,
		env.notifier,
		linear.NewRenderer(io.Discard, false),
		&assets.Factory{Executor: mocks.NewMockExecutor(ctrl), Resolver: fs.NewResolver()},
		env.watcher,
		watcher.NewFingerprintCache(fs.NewHasher(fs.NewWalker())),
		fs.NewVerifier(),
		metrics.NewPrometheusRecorder(nil),
	)
	return env
}

func TestApp_Build_Default(t *testing.T) {
	env := setup(t)
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	err := env.app.Build(context.Background(), nil, app.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"images", "js", "default"}, env.notifier.Tasks())
	assert.FileExists(t, filepath.Join(env.root, "out", "img", "icons", "logo.png"))

	script, err := os.ReadFile(filepath.Join(env.root, "out", "script.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(script), "console.log( greeting )", "minified by default")
}

func TestApp_Build_FlagOverrides(t *testing.T) {
	env := setup(t)
	configPath := filepath.Join(env.root, domain.ConfigFileName)
	env.loader.EXPECT().Load(configPath).Return(newPipeline(env.root), nil)

	minify := false
	err := env.app.Build(context.Background(), []string{"js"}, app.Options{ConfigPath: configPath, Minify: &minify})
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(env.root, "out", "script.js"))
	require.NoError(t, err)
	assert.Equal(t, "var greeting = 'hello';\nconsole.log( greeting );", string(script))
}

func TestApp_Build_Failure(t *testing.T) {
	env := setup(t)
	require.NoError(t, os.Remove(filepath.Join(env.root, "src", "js", "b.js")))
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	err := env.app.Build(context.Background(), []string{"default"}, app.Options{})

	require.ErrorIs(t, err, domain.ErrBuildFailed)
	require.ErrorIs(t, err, domain.ErrNoSources)
	assert.Equal(t, []string{"images", "js"}, env.notifier.Tasks())
	assert.NoFileExists(t, filepath.Join(env.root, "out", "script.js"))
}

func TestApp_Build_UnknownTask(t *testing.T) {
	env := setup(t)
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	err := env.app.Build(context.Background(), []string{"lint"}, app.Options{})

	require.ErrorIs(t, err, domain.ErrUnknownTask)
	assert.Empty(t, env.notifier.Tasks())
}

func TestApp_Build_ConfigError(t *testing.T) {
	env := setup(t)
	env.loader.EXPECT().Load(".").Return(nil, zerr.Wrap(domain.ErrConfigNotFound, "search"))

	err := env.app.Build(context.Background(), nil, app.Options{})

	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestApp_Build_UnknownRuleTask(t *testing.T) {
	env := setup(t)
	pipeline := newPipeline(env.root)
	pipeline.Rules = append(pipeline.Rules, domain.WatchRule{Patterns: []string{"src/**/*.less"}, Tasks: []string{"css"}})
	env.loader.EXPECT().Load(".").Return(pipeline, nil)

	err := env.app.Build(context.Background(), nil, app.Options{})

	require.ErrorIs(t, err, domain.ErrUnknownTask)
}

func TestApp_Clean(t *testing.T) {
	env := setup(t)
	writeTree(t, env.root, map[string]string{"out/script.js": "stale"})
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	require.NoError(t, env.app.Clean(context.Background(), app.Options{}))

	assert.NoDirExists(t, filepath.Join(env.root, "out"))
	assert.DirExists(t, filepath.Join(env.root, "src"))
	assert.Equal(t, []string{"clean"}, env.notifier.Tasks())
}

func TestApp_Tasks(t *testing.T) {
	env := setup(t)
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	var buf bytes.Buffer
	require.NoError(t, env.app.Tasks(context.Background(), &buf, app.Options{}))

	want := "" +
		"clean    -           removed generated files\n" +
		"default  images, js  site built\n" +
		"images   -           copied files\n" +
		"js       -           compiled scripts\n"
	assert.Equal(t, want, buf.String())
}

func TestApp_Watch(t *testing.T) {
	env := setup(t)
	env.loader.EXPECT().Load(".").Return(newPipeline(env.root), nil)

	stopped := make(chan struct{})
	env.watcher.EXPECT().Start(gomock.Any(), env.root).Return(nil)
	env.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(func(ports.WatchEvent) bool) {
		<-stopped
	}))
	env.watcher.EXPECT().Stop().DoAndReturn(func() error {
		close(stopped)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- env.app.Watch(ctx, app.Options{}) }()

	// The initial build runs the default task.
	for _, want := range []string{"images", "js", "default"} {
		select {
		case res := <-env.notifier.reported:
			assert.Equal(t, want, res.Task)
			assert.True(t, res.OK())
		case err := <-errc:
			t.Fatalf("watch returned early: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the initial build")
		}
	}

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
