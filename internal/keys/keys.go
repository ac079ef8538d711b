// Package keys contains keybinding definitions for the control panel.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the control panel.
type KeyMap struct {
	// Rig controls
	Autoplay       key.Binding
	BrightnessDown key.Binding
	BrightnessUp   key.Binding
	NextEffect     key.Binding

	// Channel editing
	NextChannel    key.Binding
	PrevChannel    key.Binding
	PrevPattern    key.Binding
	NextPattern    key.Binding
	VisibilityUp   key.Binding
	VisibilityDown key.Binding

	// Timer and breaks
	TimerPause key.Binding
	TimerRun   key.Binding
	StartBreak key.Binding
	StopBreak  key.Binding

	// General
	Hostname key.Binding
	Logs     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// Panel holds the control panel bindings.
var Panel = DefaultKeyMap()

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Autoplay: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle autoplay"),
		),
		BrightnessDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "dimmer"),
		),
		BrightnessUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "brighter"),
		),
		NextEffect: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "next effect"),
		),

		NextChannel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next channel"),
		),
		PrevChannel: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous channel"),
		),
		PrevPattern: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "previous pattern"),
		),
		NextPattern: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next pattern"),
		),
		VisibilityUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "raise visibility"),
		),
		VisibilityDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "lower visibility"),
		),

		TimerPause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "reset timer to pause"),
		),
		TimerRun: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset timer to run"),
		),
		StartBreak: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "start break"),
		),
		StopBreak: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop break"),
		),

		Hostname: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "change hostname"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "logs"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Autoplay, k.NextChannel, k.NextPattern, k.StartBreak, k.Hostname, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Autoplay, k.BrightnessDown, k.BrightnessUp, k.NextEffect},
		{k.NextChannel, k.PrevChannel, k.PrevPattern, k.NextPattern, k.VisibilityUp, k.VisibilityDown},
		{k.TimerPause, k.TimerRun, k.StartBreak, k.StopBreak},
		{k.Hostname, k.Logs, k.Help, k.Quit},
	}
}

// BreakKeyMap is active while a break is running: only the countdown is
// shown, so only stopping the break and leaving are offered.
type BreakKeyMap struct {
	StopBreak key.Binding
	Quit      key.Binding
}

// Break holds the break-mode bindings.
var Break = BreakKeyMap{
	StopBreak: Panel.StopBreak,
	Quit:      Panel.Quit,
}

// ShortHelp returns keybindings for the short help view.
func (k BreakKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.StopBreak, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k BreakKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// HostnameKeyMap drives the hostname text input.
type HostnameKeyMap struct {
	Save   key.Binding
	Cancel key.Binding
}

// Hostname holds the hostname editor bindings.
var Hostname = HostnameKeyMap{
	Save: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "connect"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// ShortHelp returns keybindings for the short help view.
func (k HostnameKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view.
func (k HostnameKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
