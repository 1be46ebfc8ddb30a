package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	colorError   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
	colorStar    = lipgloss.AdaptiveColor{Light: "#BF8700", Dark: "#E3B341"}
)

// styles are bound to one writer so color support is detected per stream.
type styles struct {
	renderer *lipgloss.Renderer
	Header   lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Star     lipgloss.Style
	Cell     lipgloss.Style
	Border   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		renderer: r,
		Header:   r.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1),
		Label:    r.NewStyle().Bold(true).Width(12),
		Muted:    r.NewStyle().Foreground(colorMuted),
		Success:  r.NewStyle().Foreground(colorSuccess),
		Error:    r.NewStyle().Bold(true).Foreground(colorError),
		Star:     r.NewStyle().Foreground(colorStar),
		Cell:     r.NewStyle().Padding(0, 1),
		Border:   r.NewStyle().Foreground(colorMuted),
	}
}
