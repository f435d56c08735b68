// Package config provides the configuration loader for kiln.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the configuration file.
const (
	EnvMinify           = "KILN_MINIFY"
	EnvLiveReloadScript = "KILN_LIVERELOAD_SCRIPT"
	EnvLiveReloadPort   = "KILN_LIVERELOAD_PORT"
)

var validTaskNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the pipeline. cwd is either a directory, searched upward
// for kiln.yaml, or the path of a configuration file.
func (l *Loader) Load(cwd string) (*domain.Pipeline, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var kilnfile Kilnfile
	if err := readAndUnmarshalYAML(configPath, &kilnfile); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	if kilnfile.Version == "" {
		l.Logger.Warn("no version set in " + configPath + ", assuming 1")
	}

	root := resolvePath(filepath.Dir(configPath), kilnfile.Root)
	pipeline := &domain.Pipeline{
		Root:       root,
		ConfigPath: configPath,
		Options:    resolveOptions(kilnfile.Options),
		LiveReload: resolveLiveReload(kilnfile.LiveReload),
	}

	if pipeline.Debounce, err = parseDebounce(kilnfile.Debounce); err != nil {
		return nil, err
	}

	if err := l.applyEnv(filepath.Dir(configPath), pipeline); err != nil {
		return nil, err
	}

	if pipeline.Tasks, err = buildTaskSpecs(root, kilnfile.Tasks); err != nil {
		return nil, err
	}
	pipeline.Rules = buildRules(kilnfile.Watch)

	return pipeline, nil
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	if info, err := os.Stat(cwd); err == nil && !info.IsDir() {
		return filepath.Abs(cwd)
	}

	currentDir, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve working directory")
	}

	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, ""), "cwd", cwd)
}

// applyEnv reads the .env file next to the configuration. Variables set in
// the process environment win over the file.
func (l *Loader) applyEnv(dir string, pipeline *domain.Pipeline) error {
	envPath := filepath.Join(dir, domain.EnvFileName)
	fileEnv, err := godotenv.Read(envPath)
	switch {
	case err == nil:
		l.Logger.Debug("loaded " + envPath)
	case os.IsNotExist(err):
		fileEnv = nil
	default:
		return zerr.With(domain.Classify(domain.ErrEnvFileFailed, err), "path", envPath)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	if v, ok := lookup(EnvMinify); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvMinify, v, err)
		}
		pipeline.Options.Minify = b
	}
	if v, ok := lookup(EnvLiveReloadScript); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvLiveReloadScript, v, err)
		}
		pipeline.Options.AppendLiveReloadScript = b
	}
	if v, ok := lookup(EnvLiveReloadPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return envError(EnvLiveReloadPort, v, err)
		}
		pipeline.LiveReload.Port = port
	}
	return nil
}

func envError(key, value string, cause error) error {
	err := zerr.Wrap(domain.ErrConfigParseFailed, "invalid value for "+key)
	if cause != nil {
		err = zerr.With(err, "cause", cause.Error())
	}
	return zerr.With(zerr.With(err, "variable", key), "value", value)
}

func resolveOptions(dto OptionsDTO) domain.Options {
	opts := domain.Options{Minify: true}
	if dto.Minify != nil {
		opts.Minify = *dto.Minify
	}
	if dto.AppendLiveReloadScript != nil {
		opts.AppendLiveReloadScript = *dto.AppendLiveReloadScript
	}
	return opts
}

func resolveLiveReload(dto LiveReloadDTO) domain.LiveReload {
	lr := domain.LiveReload{Host: dto.Host, Port: dto.Port}
	if lr.Host == "" {
		lr.Host = domain.DefaultLiveReloadHost
	}
	if lr.Port == 0 {
		lr.Port = domain.DefaultLiveReloadPort
	}
	return lr
}

func parseDebounce(value string) (time.Duration, error) {
	if value == "" {
		return domain.DefaultDebounce, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, zerr.With(zerr.Wrap(domain.ErrInvalidDebounce, strconv.Quote(value)), "debounce", value)
	}
	return d, nil
}

func buildTaskSpecs(root string, tasks map[string]*TaskDTO) ([]domain.TaskSpec, error) {
	// Sort names so specs come out in a stable order.
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	specs := make([]domain.TaskSpec, 0, len(names))
	for _, name := range names {
		if !validTaskNameRegex.MatchString(name) {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidTaskName, strconv.Quote(name)), "task", name)
		}

		dto := tasks[name]
		if dto == nil {
			dto = &TaskDTO{}
		}

		kind := domain.TaskKind(dto.Kind)
		if !validKind(kind) {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidTaskKind, dto.Kind), "task", name), "kind", dto.Kind)
		}

		specs = append(specs, domain.TaskSpec{
			Name:      name,
			Kind:      kind,
			Sources:   resolvePaths(root, dto.Src),
			Base:      resolveOptionalPath(root, dto.Base),
			Dest:      resolveOptionalPath(root, dto.Dest),
			Out:       resolveOptionalPath(root, dto.Out),
			Compiler:  slices.Clone(dto.Compiler),
			Paths:     resolvePaths(root, dto.Paths),
			DependsOn: slices.Clone(dto.DependsOn),
			Message:   dto.Message,
		})
	}
	return specs, nil
}

func buildRules(watch []WatchDTO) []domain.WatchRule {
	rules := make([]domain.WatchRule, 0, len(watch))
	for _, w := range watch {
		patterns := make([]string, len(w.Patterns))
		for i, p := range w.Patterns {
			patterns[i] = filepath.ToSlash(filepath.Clean(p))
		}
		rules = append(rules, domain.WatchRule{
			Patterns: patterns,
			Tasks:    slices.Clone(w.Tasks),
			Reload:   w.Reload,
		})
	}
	return rules
}

func validKind(kind domain.TaskKind) bool {
	switch kind {
	case domain.KindGroup, domain.KindStyle, domain.KindScript, domain.KindCopy, domain.KindPage, domain.KindClean:
		return true
	default:
		return false
	}
}

func resolvePaths(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = resolvePath(root, p)
	}
	return out
}

func resolveOptionalPath(root, path string) string {
	if path == "" {
		return ""
	}
	return resolvePath(root, path)
}

// resolvePath makes path absolute relative to base.
func resolvePath(base, path string) string {
	if path == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered or given by the operator
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return domain.Classify(domain.ErrConfigReadFailed, err)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return domain.Classify(domain.ErrConfigParseFailed, parseErr)
	}

	return nil
}
