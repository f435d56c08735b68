package assets

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Media types understood by the Minifier.
const (
	MediaCSS = "text/css"
	MediaJS  = "application/javascript"
)

// Minifier compresses stylesheets and scripts.
type Minifier struct {
	m *minify.M
}

// NewMinifier registers the CSS and JavaScript minifiers.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(MediaCSS, css.Minify)
	m.AddFunc(MediaJS, js.Minify)
	return &Minifier{m: m}
}

// Minify compresses data of the given media type. A syntax error is an ErrCompile.
func (m *Minifier) Minify(mediaType string, data []byte) ([]byte, error) {
	out, err := m.m.Bytes(mediaType, data)
	if err != nil {
		return nil, domain.Classify(domain.ErrCompile, zerr.With(zerr.Wrap(err, "minify"), "media_type", mediaType))
	}
	return out, nil
}
