package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects the terminal background; otherwise a standard
// style name such as "dark" or "notty" is used.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(120))
	if err != nil {
		return nil, err
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// StyleFor picks the renderer style for w: the requested style when set,
// "notty" when w is not a terminal, and auto-detection otherwise.
func StyleFor(w io.Writer, requested string) string {
	if requested != "" {
		return requested
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ""
	}
	return styles.NoTTYStyle
}
