// Package model holds the client-side mirror of the lighting rig's state.
//
// All mutations happen inside a transaction: Sync applies server-confirmed
// state and never causes outbound commands, Edit applies local interactive
// changes that the session forwards to the server. Each committed change is
// delivered to synchronous observers and then published on a broker for
// views.
package model

import (
	"errors"
	"slices"
	"time"
)

// MaxBrightness is the ceiling for the rig's global brightness.
const MaxBrightness = 0.75

// NoPattern is the wire value for "no current pattern" and "no effect".
const NoPattern = -1

var (
	// ErrNoSuchChannel is returned when a channel position is out of range.
	ErrNoSuchChannel = errors.New("no such channel")
	// ErrPatternOutOfRange is returned when a pattern position does not
	// exist in channel 0's catalog.
	ErrPatternOutOfRange = errors.New("pattern index out of range")
)

// Pattern is a named lighting sequence. Index is assigned by the server.
type Pattern struct {
	Index int
	Name  string
}

// Effect is a named global color effect.
type Effect struct {
	Index int
	Name  string
}

// Channel is one independently controllable lighting track. Channel 0 owns
// the pattern catalog; every channel's CurrentPattern is an entry of that
// catalog.
type Channel struct {
	Index          int
	Patterns       []Pattern
	CurrentPattern *Pattern
	Visibility     float64
}

// CurrentPatternIndex returns the server index of the current pattern, or
// NoPattern.
func (c Channel) CurrentPatternIndex() int {
	if c.CurrentPattern == nil {
		return NoPattern
	}
	return c.CurrentPattern.Index
}

func (c Channel) clone() Channel {
	out := c
	out.Patterns = slices.Clone(c.Patterns)
	if c.CurrentPattern != nil {
		p := *c.CurrentPattern
		out.CurrentPattern = &p
	}
	return out
}

func cloneChannels(in []Channel) []Channel {
	if in == nil {
		return nil
	}
	out := make([]Channel, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}

// TimerState is the phase of the pause timer.
type TimerState string

const (
	TimerRun   TimerState = "run"
	TimerPause TimerState = "pause"
)

// Valid reports whether s is a known phase.
func (s TimerState) Valid() bool {
	return s == TimerRun || s == TimerPause
}

// PauseTimer is the rig's run/pause duty cycle as last reported.
type PauseTimer struct {
	RunSeconds    float64
	PauseSeconds  float64
	TimeRemaining float64
	State         TimerState

	// TimeRemainingFetched is when TimeRemaining was last set. Together
	// they give the phase end independent of how stale the value is.
	TimeRemainingFetched time.Time
}

// NextStateChangeDate extrapolates when the current phase ends. If the
// remaining time has never been set, now is used as the base.
func (p PauseTimer) NextStateChangeDate(now time.Time) time.Time {
	base := p.TimeRemainingFetched
	if base.IsZero() {
		base = now
	}
	return base.Add(seconds(p.TimeRemaining))
}

// Remaining returns the time left in the current phase at now, never
// negative.
func (p PauseTimer) Remaining(now time.Time) time.Duration {
	left := p.NextStateChangeDate(now).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Connection mirrors the session's reconnect state for observers.
type Connection int

const (
	Disconnected Connection = iota
	Connecting
	Connected
)

func (c Connection) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Snapshot is a deep copy of the model at one instant.
type Snapshot struct {
	Loaded     bool
	Connection Connection

	Autoplay   bool
	Brightness float64

	Channels        []Channel
	SelectedChannel int

	ColorEffects           []Effect
	ActiveColorEffectIndex int
	ActiveColorEffect      *Effect

	Speed float64
	Spin  float64
	Blur  float64
	Hue   float64

	PauseTimer PauseTimer

	// BreakEndsAt is the expected end of a running break, zero if none.
	BreakEndsAt time.Time
}

// Patterns returns channel 0's catalog.
func (s Snapshot) Patterns() []Pattern {
	if len(s.Channels) == 0 {
		return nil
	}
	return s.Channels[0].Patterns
}

// PatternPosition returns the catalog position of the channel's current
// pattern, or NoPattern if it has none or is out of range.
func (s Snapshot) PatternPosition(channel int) int {
	if channel < 0 || channel >= len(s.Channels) {
		return NoPattern
	}
	current := s.Channels[channel].CurrentPattern
	if current == nil {
		return NoPattern
	}
	for i, p := range s.Patterns() {
		if p.Index == current.Index {
			return i
		}
	}
	return NoPattern
}

// OnBreak reports whether a break is running at now.
func (s Snapshot) OnBreak(now time.Time) bool {
	return !s.BreakEndsAt.IsZero() && now.Before(s.BreakEndsAt)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Channels = cloneChannels(s.Channels)
	out.ColorEffects = slices.Clone(s.ColorEffects)
	if s.ActiveColorEffect != nil {
		e := *s.ActiveColorEffect
		out.ActiveColorEffect = &e
	}
	return out
}

// initial is the state before the first sync.
func initial() Snapshot {
	return Snapshot{
		Brightness:             MaxBrightness,
		ActiveColorEffectIndex: NoPattern,
		PauseTimer:             PauseTimer{State: TimerRun},
	}
}
