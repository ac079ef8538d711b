// Package logoverlay provides an in-app log viewer overlay that shows
// recent log entries without leaving the control panel.
package logoverlay

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/ui/overlay"
	"github.com/entwined/remote/internal/ui/styles"
)

const (
	viewportMaxHeight = 20  // Fixed viewport height in lines
	viewportMinHeight = 5   // Minimum viewport height for very small screens
	boxMaxWidth       = 140 // Maximum box width in characters
	boxMinWidth       = 40  // Minimum box width in characters

	// DefaultCapacity is how many entries the overlay keeps.
	DefaultCapacity = 500
)

// CloseMsg is sent when the overlay should be closed.
type CloseMsg struct{}

// Model is the log overlay component state. It keeps its own ring of the
// most recent entries, fed by Append from the log listener.
type Model struct {
	visible  bool
	minLevel log.Level
	width    int
	height   int
	capacity int
	entries  []string
	viewport viewport.Model
}

// New creates a new log overlay model.
func New() Model {
	return Model{
		minLevel: log.LevelDebug,
		capacity: DefaultCapacity,
	}
}

// NewWithCapacity creates an overlay that keeps at most n entries.
func NewWithCapacity(n int) Model {
	m := New()
	if n > 0 {
		m.capacity = n
	}
	return m
}

// Append records one log entry, dropping the oldest past capacity.
func (m Model) Append(entry string) Model {
	entry = strings.TrimSuffix(entry, "\n")
	if entry == "" {
		return m
	}
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]string(nil), m.entries[over:]...)
	}
	if m.visible {
		atBottom := m.viewport.AtBottom()
		m.refreshViewport()
		if !atBottom {
			return m
		}
		m.viewport.GotoBottom()
	}
	return m
}

// Entries returns the buffered entries, oldest first.
func (m Model) Entries() []string {
	return m.entries
}

// Update handles messages for the log overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "c":
			m.entries = nil
			m.refreshViewport()
		case "d":
			m.setLevel(log.LevelDebug)
		case "i":
			m.setLevel(log.LevelInfo)
		case "w":
			m.setLevel(log.LevelWarn)
		case "e":
			m.setLevel(log.LevelError)
		case "j", "down":
			m.viewport.ScrollDown(1)
		case "k", "up":
			m.viewport.ScrollUp(1)
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		case "ctrl+c":
			return m, tea.Quit
		case "l", "esc", "q":
			m.visible = false
			return m, func() tea.Msg { return CloseMsg{} }
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}

	return m, nil
}

func (m *Model) setLevel(level log.Level) {
	m.minLevel = level
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// MinLevel returns the active filter level.
func (m Model) MinLevel() log.Level {
	return m.minLevel
}

// View renders the log overlay content.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := m.boxWidth()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.OverlayTitleColor).
		PaddingLeft(1)
	dividerStyle := lipgloss.NewStyle().
		Foreground(styles.OverlayBorderColor)
	divider := dividerStyle.Render(strings.Repeat("─", boxWidth))

	var result strings.Builder
	result.WriteString(titleStyle.Render("Logs"))
	result.WriteString("\n")
	result.WriteString(divider)
	result.WriteString("\n")
	result.WriteString(m.viewport.View())
	result.WriteString("\n")
	result.WriteString(divider)
	result.WriteString("\n")
	result.WriteString(m.buildFilterHint())

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(boxWidth)

	return boxStyle.Render(result.String())
}

// filtered returns entries matching the current filter level.
func (m Model) filtered() []string {
	var out []string
	for _, entry := range m.entries {
		if entryLevel(entry) >= m.minLevel {
			out = append(out, entry)
		}
	}
	return out
}

func (m Model) buildLogContent(contentWidth int) string {
	filtered := m.filtered()
	if len(filtered) == 0 {
		return lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			Italic(true).
			Render("No logs to display")
	}

	lines := make([]string, 0, len(filtered))
	for _, entry := range filtered {
		lines = append(lines, colorize(entry, contentWidth))
	}
	return strings.Join(lines, "\n")
}

// refreshViewport rebuilds the viewport with current log content.
func (m *Model) refreshViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}

	contentWidth := m.contentWidth()

	// Header (2 lines), footer (2 lines) and borders (2 lines) = 6 lines overhead
	viewportHeight := min(viewportMaxHeight, m.height-6)
	viewportHeight = max(viewportHeight, viewportMinHeight)

	yOffset := m.viewport.YOffset
	m.viewport = viewport.New(contentWidth, viewportHeight)
	m.viewport.SetContent(m.buildLogContent(contentWidth))
	m.viewport.SetYOffset(yOffset)
}

// Overlay renders the log overlay centered on the given background.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), bg)
}

// Visible returns whether the overlay is currently visible.
func (m Model) Visible() bool {
	return m.visible
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

func (m Model) contentWidth() int {
	return m.boxWidth() - 2
}

// Show makes the overlay visible, scrolled to the newest entry.
func (m *Model) Show() {
	m.visible = true
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// Hide makes the overlay invisible.
func (m *Model) Hide() {
	m.visible = false
}

// Toggle toggles the overlay visibility.
func (m *Model) Toggle() {
	if m.visible {
		m.Hide()
		return
	}
	m.Show()
}

// SetSize updates the overlay's knowledge of screen size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.refreshViewport()
}

// entryLevel reads the level tag of a formatted entry. Unknown entries
// count as errors so no filter hides them.
func entryLevel(entry string) log.Level {
	for _, level := range []log.Level{log.LevelError, log.LevelWarn, log.LevelInfo, log.LevelDebug} {
		if strings.Contains(entry, "["+level.String()+"]") {
			return level
		}
	}
	return log.LevelError
}

func colorize(entry string, maxWidth int) string {
	if ansi.StringWidth(entry) > maxWidth {
		entry = ansi.Truncate(entry, maxWidth-3, "...")
	}

	var color lipgloss.AdaptiveColor
	switch {
	case strings.Contains(entry, "[ERROR]"):
		color = styles.LogErrorColor
	case strings.Contains(entry, "[WARN]"):
		color = styles.LogWarnColor
	case strings.Contains(entry, "[INFO]"):
		color = styles.LogInfoColor
	case strings.Contains(entry, "[DEBUG]"):
		color = styles.LogDebugColor
	default:
		color = styles.TextPrimaryColor
	}
	return lipgloss.NewStyle().Foreground(color).Render(entry)
}

// buildFilterHint creates the footer hint; the active level is bold.
func (m Model) buildFilterHint() string {
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimaryColor).
		Bold(true)

	hints := []string{hintStyle.Render("[c] Clear")}
	for _, f := range []struct {
		level log.Level
		label string
	}{
		{log.LevelDebug, "[d] Debug"},
		{log.LevelInfo, "[i] Info"},
		{log.LevelWarn, "[w] Warn"},
		{log.LevelError, "[e] Error"},
	} {
		if m.minLevel == f.level {
			hints = append(hints, activeStyle.Render(f.label))
		} else {
			hints = append(hints, hintStyle.Render(f.label))
		}
	}
	return strings.Join(hints, "  ")
}
