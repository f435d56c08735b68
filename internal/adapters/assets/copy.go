package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// copyAction copies the matched files below base into dest. transform, when
// set, rewrites HTML pages on the way.
func (b *Builder) copyAction(spec *domain.TaskSpec, transform func([]byte) ([]byte, error)) domain.Action {
	sources := spec.Sources
	dest := b.abs(spec.Dest)
	base := b.root
	if spec.Base != "" {
		base = b.abs(spec.Base)
	}

	return func(_ context.Context) error {
		files, err := b.resolver.ResolveSources(sources, b.root)
		if err != nil {
			return domain.Classify(domain.ErrIO, err)
		}

		for _, file := range files {
			target := filepath.Join(dest, relativeTo(base, file))

			if transform == nil || !isHTML(file) {
				if err := copyFile(file, target); err != nil {
					return domain.Classify(domain.ErrIO, err)
				}
				continue
			}

			page, err := os.ReadFile(file) //nolint:gosec // resolved from configured globs
			if err != nil {
				return domain.Classify(domain.ErrIO, zerr.With(zerr.Wrap(err, "failed to read page"), "source", b.rel(file)))
			}
			page, err = transform(page)
			if err != nil {
				return domain.Classify(domain.ErrCompile, zerr.With(err, "source", b.rel(file)))
			}
			if err := writeFile(target, page); err != nil {
				return domain.Classify(domain.ErrIO, err)
			}
		}
		return nil
	}
}

// relativeTo returns file relative to base, or its base name when file is
// not below base.
func relativeTo(base, file string) string {
	rel, err := filepath.Rel(base, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(file)
	}
	return rel
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
