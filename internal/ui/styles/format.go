package styles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// TruncateString truncates a string to fit within maxWidth cells, adding
// an ellipsis if needed. Wide characters count as two cells.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// PadRight pads s with spaces to exactly width cells, truncating first.
func PadRight(s string, width int) string {
	return runewidth.FillRight(TruncateString(s, width), width)
}

// FormatCountdown renders d as m:ss, or h:mm:ss from an hour up. Negative
// durations render as 0:00.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(math.Ceil(d.Seconds()))
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Bar renders v in [0, max] as a horizontal gauge of width cells.
func Bar(v, max float64, width int) string {
	if width < 1 || max <= 0 {
		return ""
	}
	filled := int(math.Round(math.Max(0, math.Min(v/max, 1)) * float64(width)))
	on := lipgloss.NewStyle().Foreground(BarFilledColor).Render(strings.Repeat("█", filled))
	off := lipgloss.NewStyle().Foreground(BarEmptyColor).Render(strings.Repeat("░", width-filled))
	return on + off
}
