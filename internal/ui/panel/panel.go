// Package panel renders the rig state as the control panel body.
// Rendering is pure: everything it shows comes from the snapshot and the
// time passed in, so countdowns are extrapolated from the last fetch.
package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/ui/styles"
)

const (
	minWidth  = 40
	barWidth  = 20
	nameWidth = 24
	// patternWindow is how many catalog entries are listed around the
	// selected channel's current pattern.
	patternWindow = 7
)

// View is what the panel needs to render one frame.
type View struct {
	Snapshot model.Snapshot
	// LastKnown is the host's cached catalog, shown until the rig loads.
	LastKnown *cachemanager.Catalog
	Now       time.Time
	Hostname  string
	Port      int
	Width     int
}

// Render draws the panel.
func Render(v View) string {
	width := max(v.Width, minWidth)
	s := v.Snapshot

	sections := []string{header(v)}
	switch {
	case s.OnBreak(v.Now):
		sections = append(sections, breakView(s, v.Now))
	case !s.Loaded:
		sections = append(sections, waiting(s.Connection))
		if v.LastKnown != nil && !v.LastKnown.Empty() {
			sections = append(sections, lastKnown(*v.LastKnown, v.Now, width-4))
		}
	default:
		sections = append(sections,
			globals(s),
			timer(s, v.Now),
			channels(s),
			patterns(s),
		)
	}

	return styles.PanelStyle.Width(width - 2).Render(strings.Join(sections, "\n\n"))
}

func header(v View) string {
	host := v.Hostname
	if v.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, v.Port)
	}
	return styles.TitleStyle.Render("Entwined") + "  " +
		styles.MutedStyle.Render(styles.TruncateString(host, nameWidth+8)) + "  " +
		connection(v.Snapshot.Connection)
}

func connection(c model.Connection) string {
	switch c {
	case model.Connected:
		return styles.SuccessStyle.Render("● " + c.String())
	case model.Connecting:
		return styles.WarningStyle.Render("◌ " + c.String())
	default:
		return styles.ErrorStyle.Render("○ " + c.String())
	}
}

func waiting(c model.Connection) string {
	if c == model.Connected {
		return styles.MutedStyle.Render("Loading rig state…")
	}
	return styles.MutedStyle.Render("Waiting for the rig…")
}

// lastKnown lists the catalog cached from an earlier sync with this host.
func lastKnown(c cachemanager.Catalog, now time.Time, width int) string {
	names := func(label string, list []string) string {
		value := styles.MutedStyle.Render("none")
		if len(list) > 0 {
			value = styles.ValueStyle.Render(styles.TruncateString(strings.Join(list, ", "), max(width-12, 8)))
		}
		return row(label, value)
	}
	patterns := make([]string, len(c.Patterns))
	for i, p := range c.Patterns {
		patterns[i] = p.Name
	}
	effects := make([]string, len(c.Effects))
	for i, e := range c.Effects {
		effects[i] = e.Name
	}
	return styles.MutedStyle.Render("Last seen "+styles.FormatCountdown(now.Sub(c.SeenAt))+" ago") + "\n" +
		names("Patterns", patterns) + "\n" +
		names("Effects", effects)
}

func breakView(s model.Snapshot, now time.Time) string {
	return styles.BreakStyle.Render("On break") + "\n" +
		styles.LabelStyle.Render("Resumes in") + styles.ValueStyle.Render(styles.FormatCountdown(s.BreakEndsAt.Sub(now)))
}

func row(label, value string) string {
	return styles.LabelStyle.Render(label) + value
}

func globals(s model.Snapshot) string {
	autoplay := styles.MutedStyle.Render("off")
	if s.Autoplay {
		autoplay = styles.SuccessStyle.Render("on")
	}
	effect := styles.MutedStyle.Render("none")
	if s.ActiveColorEffect != nil {
		effect = styles.ValueStyle.Render(styles.TruncateString(s.ActiveColorEffect.Name, nameWidth))
	}

	lines := []string{
		row("Autoplay", autoplay),
		row("Brightness", styles.Bar(s.Brightness, model.MaxBrightness, barWidth)+" "+
			styles.ValueStyle.Render(fmt.Sprintf("%3.0f%%", s.Brightness/model.MaxBrightness*100))),
		row("Effect", effect),
		row("Speed", number(s.Speed)) + "  " + row("Spin", number(s.Spin)),
		row("Blur", number(s.Blur)) + "  " + row("Hue", number(s.Hue)),
	}
	return strings.Join(lines, "\n")
}

func number(v float64) string {
	return styles.ValueStyle.Render(styles.PadRight(fmt.Sprintf("%.2f", v), 8))
}

func timer(s model.Snapshot, now time.Time) string {
	p := s.PauseTimer
	state := styles.SuccessStyle.Render("running")
	if p.State == model.TimerPause {
		state = styles.WarningStyle.Render("paused")
	}
	return row("Timer", state+" "+styles.ValueStyle.Render(styles.FormatCountdown(p.Remaining(now)))+
		styles.MutedStyle.Render(fmt.Sprintf("  (run %s / pause %s)",
			styles.FormatCountdown(seconds(p.RunSeconds)),
			styles.FormatCountdown(seconds(p.PauseSeconds)))))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func channels(s model.Snapshot) string {
	if len(s.Channels) == 0 {
		return styles.MutedStyle.Render("No channels")
	}
	lines := make([]string, 0, len(s.Channels))
	for i, ch := range s.Channels {
		indicator := "  "
		label := styles.LabelStyle.Render(fmt.Sprintf("Channel %d", i))
		if i == s.SelectedChannel {
			indicator = styles.SelectionIndicatorStyle.Render("> ")
			label = styles.SelectedStyle.Width(12).Render(fmt.Sprintf("Channel %d", i))
		}
		name := "—"
		if ch.CurrentPattern != nil {
			name = ch.CurrentPattern.Name
		}
		lines = append(lines, indicator+label+
			styles.ValueStyle.Render(styles.PadRight(name, nameWidth))+" "+
			styles.Bar(ch.Visibility, 1, barWidth/2))
	}
	return strings.Join(lines, "\n")
}

func patterns(s model.Snapshot) string {
	catalog := s.Patterns()
	if len(catalog) == 0 {
		return styles.MutedStyle.Render("No patterns")
	}
	current := s.PatternPosition(s.SelectedChannel)
	start, end := window(current, len(catalog), patternWindow)

	lines := []string{styles.LabelStyle.Render("Patterns") +
		styles.MutedStyle.Render(fmt.Sprintf("%d/%d", current+1, len(catalog)))}
	for i := start; i < end; i++ {
		name := styles.TruncateString(catalog[i].Name, nameWidth)
		if i == current {
			lines = append(lines, styles.SelectionIndicatorStyle.Render("> ")+styles.SelectedStyle.Render(name))
		} else {
			lines = append(lines, "  "+styles.ValueStyle.Render(name))
		}
	}
	return strings.Join(lines, "\n")
}

// window returns [start, end) of size at most n around position pos.
func window(pos, total, n int) (start, end int) {
	if total <= n {
		return 0, total
	}
	start = max(pos-n/2, 0)
	end = start + n
	if end > total {
		end = total
		start = total - n
	}
	return start, end
}
