// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F2933", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#52606D", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#9AA5B1", Dark: "#696969"} // Hints, help text, footers

	// Borders
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#54A0FF"}

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Rig accents
	AccentColor    = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
	BreakColor     = lipgloss.AdaptiveColor{Light: "#FE640B", Dark: "#FAB387"}
	BarFilledColor = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	BarEmptyColor  = lipgloss.AdaptiveColor{Light: "#DCE0E8", Dark: "#45475A"}

	// Overlays
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#1F2933", Dark: "#FFFFFF"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#9AA5B1", Dark: "#8C8C8C"}

	// Toasts
	ToastBorderSuccessColor = StatusSuccessColor
	ToastBorderErrorColor   = StatusErrorColor
	ToastBorderInfoColor    = BorderFocusColor
	ToastBorderWarnColor    = StatusWarningColor

	// Log levels
	LogDebugColor = TextMutedColor
	LogInfoColor  = TextPrimaryColor
	LogWarnColor  = StatusWarningColor
	LogErrorColor = StatusErrorColor
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
	LabelStyle    = lipgloss.NewStyle().Foreground(TextSecondaryColor).Width(12)
	ValueStyle    = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(TextMutedColor)
	ErrorStyle    = lipgloss.NewStyle().Foreground(StatusErrorColor)
	SuccessStyle  = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	WarningStyle  = lipgloss.NewStyle().Foreground(StatusWarningColor)
	BreakStyle    = lipgloss.NewStyle().Bold(true).Foreground(BreakColor)
	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)

	// SelectionIndicatorStyle is used for the ">" prefix in lists.
	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderDefaultColor).
			Padding(0, 1)
)
