package assets

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

const srcPlaceholder = "{src}"

func (b *Builder) styleAction(spec *domain.TaskSpec) domain.Action {
	compiler := spec.Compiler
	if len(compiler) == 0 {
		compiler = DefaultCompiler
	}
	sources := spec.Sources
	dest := b.abs(spec.Dest)

	return func(ctx context.Context) error {
		files, err := b.resolver.ResolveSources(sources, b.root)
		if err != nil {
			return domain.Classify(domain.ErrIO, err)
		}

		diag := domain.Output(ctx)
		for _, src := range files {
			var css bytes.Buffer
			argv := expandCompiler(compiler, src)
			if err := b.executor.Execute(ctx, argv, filepath.Dir(src), &css, diag); err != nil {
				return domain.Classify(domain.ErrCompile, zerr.With(err, "source", b.rel(src)))
			}

			out := css.Bytes()
			if b.opts.Minify {
				if out, err = b.minifier.Minify(MediaCSS, out); err != nil {
					return zerr.With(err, "source", b.rel(src))
				}
			}

			if err := writeFile(filepath.Join(dest, styleName(src)), out); err != nil {
				return domain.Classify(domain.ErrIO, err)
			}
		}
		return nil
	}
}

// styleOutputs lists one stylesheet per literal source, or the destination
// directory when a pattern could match files that do not exist yet.
func (b *Builder) styleOutputs(spec *domain.TaskSpec) []string {
	dest := b.abs(spec.Dest)
	outputs := make([]string, 0, len(spec.Sources))
	for _, src := range spec.Sources {
		if hasMeta(src) {
			return []string{b.rel(dest)}
		}
		outputs = append(outputs, b.rel(filepath.Join(dest, styleName(src))))
	}
	return outputs
}

func expandCompiler(compiler []string, src string) []string {
	argv := make([]string, len(compiler))
	for i, arg := range compiler {
		argv[i] = strings.ReplaceAll(arg, srcPlaceholder, src)
	}
	return argv
}

func styleName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".css"
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
