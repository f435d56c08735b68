// Package notifier reports task outcomes on the console.
package notifier

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
	"go.trai.ch/zerr"
)

var _ ports.Notifier = (*Console)(nil)

// Console implements ports.Notifier by printing one line per result.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	logger ports.Logger

	ok      lipgloss.Style
	fail    lipgloss.Style
	task    lipgloss.Style
	message lipgloss.Style
	errText lipgloss.Style
}

// New creates a Console writing to w. A nil writer defaults to os.Stdout.
// Write failures are reported to logger.
func New(w io.Writer, logger ports.Logger) *Console {
	if w == nil {
		w = os.Stdout
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(output.ColorProfile())

	return &Console{
		w:       w,
		logger:  logger,
		ok:      r.NewStyle().Foreground(style.Green).Bold(true),
		fail:    r.NewStyle().Foreground(style.Red).Bold(true),
		task:    r.NewStyle().Foreground(style.Ember).Bold(true),
		message: r.NewStyle(),
		errText: r.NewStyle().Foreground(style.Red),
	}
}

// Report prints "✓ [task] message" or "✗ [task] error".
func (c *Console) Report(result domain.BuildResult) {
	defer func() {
		if r := recover(); r != nil && c.logger != nil {
			c.logger.Warn("notifier panicked while reporting " + result.Task)
		}
	}()

	line := c.format(result)

	c.mu.Lock()
	_, err := io.WriteString(c.w, line)
	c.mu.Unlock()

	if err != nil && c.logger != nil {
		c.logger.Error(zerr.With(zerr.Wrap(err, "failed to write notification"), "task", result.Task))
	}
}

func (c *Console) format(result domain.BuildResult) string {
	icon := c.ok.Render(style.Check)
	textStyle := c.message
	if !result.OK() {
		icon = c.fail.Render(style.Cross)
		textStyle = c.errText
	}

	prefix := icon + " " + c.task.Render("["+result.Task+"]")

	text := result.Text()
	if text == "" {
		return prefix + "\n"
	}

	// Continuation lines line up under the first character of the text.
	indent := strings.Repeat(" ", lipgloss.Width(prefix)+1)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = textStyle.Render(l)
	}
	return prefix + " " + strings.Join(lines, "\n"+indent) + "\n"
}
