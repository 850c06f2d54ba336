package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowgen banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.Profile
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _                           ", "#818cf8"},
		{"  / _| | _____      ____ _  ___ _ __  ", "#a78bfa"},
		{" | |_| |/ _ \\ \\ /\\ / / _` |/ _ \\ '_ \\ ", "#c084fc"},
		{" |  _| | (_) \\ V  V / (_| |  __/ | | |", "#e879f9"},
		{" |_| |_|\\___/ \\_/\\_/ \\__, |\\___|_| |_|", "#f472b6"},
		{"                     |___/  v" + version, "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
