package notifier_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/adapters/notifier"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestConsole_Report(t *testing.T) {
	tests := []struct {
		name   string
		result domain.BuildResult
	}{
		{
			name:   "success",
			result: domain.NewSuccess("css", "compiled out/style.css", 12*time.Millisecond),
		},
		{
			name:   "success_without_message",
			result: domain.NewSuccess("default", "", 0),
		},
		{
			name:   "failure",
			result: domain.NewFailure("lint", domain.Classify(domain.ErrCompile, errors.New("exit status 1")), 0),
		},
		{
			name: "failure_multiline",
			result: domain.NewFailure("css",
				domain.Classify(domain.ErrCompile, errors.New("ParseError: missing '}'\n  in src/style.less on line 4")), 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")
			var buf bytes.Buffer

			notifier.New(&buf, nil).Report(tt.result)

			g := goldie.New(t)
			g.Assert(t, "report_"+tt.name, buf.Bytes())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestConsole_ReportSwallowsWriteErrors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorContains(t, err, "broken pipe")
	})

	assert.NotPanics(t, func() {
		notifier.New(failingWriter{}, logger).Report(domain.NewSuccess("css", "done", 0))
	})
}
