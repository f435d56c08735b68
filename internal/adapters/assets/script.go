package assets

import (
	"bytes"
	"context"
	"os"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func (b *Builder) scriptAction(spec *domain.TaskSpec) domain.Action {
	sources := spec.Sources
	out := b.abs(spec.Out)

	return func(_ context.Context) error {
		files, err := b.resolver.ResolveSources(sources, b.root)
		if err != nil {
			return domain.Classify(domain.ErrIO, err)
		}

		var bundle bytes.Buffer
		for i, file := range files {
			data, err := os.ReadFile(file) //nolint:gosec // resolved from configured globs
			if err != nil {
				return domain.Classify(domain.ErrIO, zerr.With(zerr.Wrap(err, "failed to read script"), "source", b.rel(file)))
			}
			if i > 0 {
				bundle.WriteByte('\n')
			}
			bundle.Write(data)
		}

		data := bundle.Bytes()
		if b.opts.Minify {
			if data, err = b.minifier.Minify(MediaJS, data); err != nil {
				return err
			}
		}

		if err := writeFile(out, data); err != nil {
			return domain.Classify(domain.ErrIO, err)
		}
		return nil
	}
}
