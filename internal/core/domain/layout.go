package domain

import (
	"net"
	"strconv"
	"time"
)

const (
	// ConfigFileName is the name of the pipeline configuration file.
	ConfigFileName = "kiln.yaml"

	// EnvFileName is the name of the optional environment override file.
	EnvFileName = ".env"

	// DefaultTaskName is the task built when no task is named on the command line.
	DefaultTaskName = "default"

	// CleanTaskName is the task run by the clean command.
	CleanTaskName = "clean"

	// DefaultLiveReloadHost is the interface the live-reload server binds to.
	DefaultLiveReloadHost = "127.0.0.1"

	// DefaultLiveReloadPort is the conventional live-reload port.
	DefaultLiveReloadPort = 35729

	// DefaultDebounce is the window used to coalesce bursts of change events.
	DefaultDebounce = 100 * time.Millisecond

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// Options are the pipeline-wide switches.
type Options struct {
	// Minify enables output compression of styles and scripts.
	Minify bool
	// AppendLiveReloadScript injects the live-reload client into copied HTML pages.
	AppendLiveReloadScript bool
}

// LiveReload configures the live-reload server.
type LiveReload struct {
	Host string
	Port int
}

// Pipeline is the fully resolved build definition produced by the config loader.
type Pipeline struct {
	Root       string
	Options    Options
	LiveReload LiveReload
	Debounce   time.Duration
	Tasks      []TaskSpec
	Rules      []WatchRule
	// ConfigPath is the file the pipeline was loaded from.
	ConfigPath string
}

// TaskKind selects how a TaskSpec becomes an Action.
type TaskKind string

const (
	// KindGroup is a composite task without an action.
	KindGroup TaskKind = ""
	// KindStyle compiles style sources through an external compiler.
	KindStyle TaskKind = "style"
	// KindScript concatenates scripts into one bundle.
	KindScript TaskKind = "script"
	// KindCopy copies files matching globs.
	KindCopy TaskKind = "copy"
	// KindPage copies HTML pages, optionally injecting the live-reload client.
	KindPage TaskKind = "page"
	// KindClean removes generated paths.
	KindClean TaskKind = "clean"
)

// TaskSpec is the declarative form of a task, before its action is built.
// Paths are absolute after loading.
type TaskSpec struct {
	Name      string
	Kind      TaskKind
	Sources   []string
	Base      string
	Dest      string
	Out       string
	Compiler  []string
	Paths     []string
	DependsOn []string
	Message   string
}

// Addr returns the host:port the live-reload server listens on.
func (l LiveReload) Addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// ScriptURL returns the address of the live-reload client script.
func (l LiveReload) ScriptURL() string {
	return "http://" + l.Addr() + "/livereload.js"
}
