package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func (b *Builder) cleanAction(spec *domain.TaskSpec) domain.Action {
	paths := make([]string, len(spec.Paths))
	for i, p := range spec.Paths {
		paths[i] = b.abs(p)
	}

	return func(_ context.Context) error {
		for _, p := range paths {
			if err := os.RemoveAll(p); err != nil {
				return domain.Classify(domain.ErrIO, zerr.With(zerr.Wrap(err, "failed to remove"), "path", b.rel(p)))
			}
		}
		return nil
	}
}

// checkClean rejects clean paths outside the root and paths that overlap the
// sources of any other task.
func (b *Builder) checkClean(clean *domain.TaskSpec, specs []domain.TaskSpec) error {
	for _, p := range clean.Paths {
		target := b.abs(p)
		if target == b.root || !within(b.root, target) {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, p), "task", clean.Name), "path", p)
		}

		for i := range specs {
			other := &specs[i]
			if other.Name == clean.Name {
				continue
			}
			for _, src := range other.Sources {
				root := sourceRoot(b.abs(src))
				if within(target, root) || within(root, target) {
					return zerr.With(
						zerr.With(zerr.Wrap(domain.ErrCleanSourcePath, b.rel(target)), "task", clean.Name),
						"source", other.Name,
					)
				}
			}
		}
	}
	return nil
}

// sourceRoot returns the literal directory prefix of a glob, or the pattern
// itself when it has no wildcards.
func sourceRoot(pattern string) string {
	if !hasMeta(pattern) {
		return pattern
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

// within reports whether path equals dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
