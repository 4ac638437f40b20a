package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"edspec/internal/relay"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var toneColors = map[relay.Tone]lipgloss.Color{
	relay.ToneGray:   lipgloss.Color("245"),
	relay.ToneOrange: lipgloss.Color("214"),
	relay.ToneGreen:  lipgloss.Color("42"),
	relay.ToneRed:    lipgloss.Color("196"),
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Console prints one line per status change. Styling is only applied when
// the writer is a terminal.
type Console struct {
	w      io.Writer
	styled bool
	now    func() time.Time

	label lipgloss.Style
	tones map[relay.Tone]lipgloss.Style

	mu   sync.Mutex
	last relay.View
}

func NewConsole(w io.Writer, styled bool) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{
		w:      w,
		styled: styled,
		now:    time.Now,
		label:  r.NewStyle().Bold(true),
		tones:  make(map[relay.Tone]lipgloss.Style, len(toneColors)),
	}
	for tone, color := range toneColors {
		c.tones[tone] = r.NewStyle().Foreground(color)
	}
	return c
}

// NewStdoutConsole styles output when stdout is a terminal.
func NewStdoutConsole() *Console {
	return NewConsole(os.Stdout, IsTerminal(os.Stdout))
}

func (c *Console) ShowStatus(v relay.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == c.last {
		return
	}
	c.last = v
	fmt.Fprintln(c.w, c.Render(v))
}

func (c *Console) Render(v relay.View) string {
	ts := c.now().Format("15:04:05")
	if !c.styled {
		return fmt.Sprintf("%s %s: %s", ts, relay.PluginName, v.Text)
	}
	style, ok := c.tones[v.Tone]
	if !ok {
		style = c.tones[relay.ToneGray]
	}
	return fmt.Sprintf("%s %s %s", ts, c.label.Render(relay.PluginName+":"), style.Render(v.Text))
}
