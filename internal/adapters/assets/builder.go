// Package assets turns declarative task specs into build actions.
package assets

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Default success messages per task kind.
const (
	styleMessage  = "compiled styles"
	scriptMessage = "compiled scripts"
	copyMessage   = "copied files"
	pageMessage   = "copied pages"
	cleanMessage  = "removed generated files"
)

// DefaultCompiler compiles one LESS source to standard output.
var DefaultCompiler = []string{"lessc", "{src}"}

// Builder creates task actions for one pipeline.
type Builder struct {
	root       string
	opts       domain.Options
	liveReload domain.LiveReload
	executor   ports.Executor
	resolver   ports.SourceResolver
	minifier   *Minifier
}

// NewBuilder returns a Builder for the pipeline rooted at root.
func NewBuilder(
	root string,
	opts domain.Options,
	liveReload domain.LiveReload,
	executor ports.Executor,
	resolver ports.SourceResolver,
) *Builder {
	return &Builder{
		root:       root,
		opts:       opts,
		liveReload: liveReload,
		executor:   executor,
		resolver:   resolver,
		minifier:   NewMinifier(),
	}
}

// BuildAll builds every spec and checks clean tasks against the sources of
// the others.
func (b *Builder) BuildAll(specs []domain.TaskSpec) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(specs))
	for i := range specs {
		task, err := b.Build(&specs[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	for i := range specs {
		if specs[i].Kind != domain.KindClean {
			continue
		}
		if err := b.checkClean(&specs[i], specs); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// Build turns one spec into a task.
func (b *Builder) Build(spec *domain.TaskSpec) (*domain.Task, error) {
	task := &domain.Task{
		Name:         spec.Name,
		Dependencies: slices.Clone(spec.DependsOn),
		Message:      spec.Message,
	}

	var defaultMessage string
	switch spec.Kind {
	case domain.KindGroup:
	case domain.KindStyle:
		if err := require(spec, "dest", spec.Dest); err != nil {
			return nil, err
		}
		task.Action = b.styleAction(spec)
		task.Outputs = b.styleOutputs(spec)
		defaultMessage = styleMessage
	case domain.KindScript:
		if err := require(spec, "out", spec.Out); err != nil {
			return nil, err
		}
		task.Action = b.scriptAction(spec)
		task.Outputs = []string{b.rel(spec.Out)}
		defaultMessage = scriptMessage
	case domain.KindCopy:
		if err := require(spec, "dest", spec.Dest); err != nil {
			return nil, err
		}
		task.Action = b.copyAction(spec, nil)
		task.Outputs = []string{b.rel(spec.Dest)}
		defaultMessage = copyMessage
	case domain.KindPage:
		if err := require(spec, "dest", spec.Dest); err != nil {
			return nil, err
		}
		var transform func([]byte) ([]byte, error)
		if b.opts.AppendLiveReloadScript {
			url := b.liveReload.ScriptURL()
			transform = func(page []byte) ([]byte, error) {
				return InjectScript(page, url)
			}
		}
		task.Action = b.copyAction(spec, transform)
		task.Outputs = []string{b.rel(spec.Dest)}
		defaultMessage = pageMessage
	case domain.KindClean:
		if len(spec.Paths) == 0 {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrMissingTaskField, "paths"), "task", spec.Name), "field", "paths")
		}
		task.Action = b.cleanAction(spec)
		defaultMessage = cleanMessage
	default:
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidTaskKind, string(spec.Kind)), "task", spec.Name), "kind", string(spec.Kind))
	}

	if spec.Kind != domain.KindGroup && spec.Kind != domain.KindClean && len(spec.Sources) == 0 {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrMissingTaskField, "src"), "task", spec.Name), "field", "src")
	}

	for _, src := range spec.Sources {
		task.Sources = append(task.Sources, b.rel(src))
	}
	if task.Message == "" {
		task.Message = defaultMessage
	}
	return task, nil
}

func require(spec *domain.TaskSpec, field, value string) error {
	if value != "" {
		return nil
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrMissingTaskField, field), "task", spec.Name), "field", field)
}

// rel returns path relative to the root in slash form, or path itself when
// it lies outside.
func (b *Builder) rel(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	r, err := filepath.Rel(b.root, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}

func (b *Builder) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(b.root, path)
}
