package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"firestige.xyz/ipsniff/internal/core"
)

// StatusLine renders the running per-category totals.
// On a terminal the line is rewritten in place; otherwise each update is a new line.
type StatusLine struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	interval time.Duration
	last     time.Time
	label    lipgloss.Style
	dirty    bool
}

// NewStatusLine writes to out, at most once per interval (0 = every update).
func NewStatusLine(out io.Writer, interval time.Duration) *StatusLine {
	if out == nil {
		out = os.Stdout
	}
	s := &StatusLine{out: out, interval: interval}
	if f, ok := out.(*os.File); ok {
		s.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	s.label = lipgloss.NewRenderer(out).NewStyle().Bold(true)
	return s
}

// FormatStatus returns the plain status line for st.
func FormatStatus(st Stats) string {
	parts := make([]string, 0, len(core.Categories)+1)
	for _, c := range core.Categories {
		parts = append(parts, fmt.Sprintf("%s : %d", c, st.Count(c)))
	}
	parts = append(parts, fmt.Sprintf("Total : %d", st.Total))
	return strings.Join(parts, "   ")
}

func (s *StatusLine) render(st Stats) string {
	if !s.tty {
		return FormatStatus(st)
	}
	parts := make([]string, 0, len(core.Categories)+1)
	for _, c := range core.Categories {
		parts = append(parts, fmt.Sprintf("%s : %d", s.label.Render(c.String()), st.Count(c)))
	}
	parts = append(parts, fmt.Sprintf("%s : %d", s.label.Render("Total"), st.Total))
	return strings.Join(parts, "   ")
}

// Update redraws the line unless the last draw is newer than the interval.
func (s *StatusLine) Update(st Stats, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval > 0 && !s.last.IsZero() && now.Sub(s.last) < s.interval {
		s.dirty = true
		return
	}
	s.draw(st)
	s.last = now
}

// Finish draws the final totals and terminates the line.
func (s *StatusLine) Finish(st Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tty {
		fmt.Fprintf(s.out, "\r%s\n", s.render(st))
	} else if s.dirty || s.last.IsZero() {
		fmt.Fprintf(s.out, "%s\n", s.render(st))
	}
	s.dirty = false
}

func (s *StatusLine) draw(st Stats) {
	if s.tty {
		fmt.Fprintf(s.out, "\r%s", s.render(st))
	} else {
		fmt.Fprintf(s.out, "%s\n", s.render(st))
	}
	s.dirty = false
}
