package model

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/pubsub"
)

// Observer is called synchronously, in commit order, for every change.
type Observer func(Change)

// CommitObserver is called synchronously once per transaction with all of
// its changes.
type CommitObserver func([]Change)

// Model is the single process-wide mirror of the rig. Construct one with
// New at startup and pass it to the session and views.
type Model struct {
	mu      sync.RWMutex
	state   Snapshot
	initing atomic.Bool

	clock clock.Clock

	obsMu     sync.RWMutex
	observers map[int]CommitObserver
	nextObs   int

	broker *pubsub.Broker[Change]
}

// New creates a model in its pre-sync state.
func New(c clock.Clock) *Model {
	return &Model{
		state:     initial(),
		clock:     c,
		observers: make(map[int]CommitObserver),
		broker:    pubsub.NewBroker[Change](pubsub.WithBuffer(256), pubsub.WithTimeSource(c.Now)),
	}
}

// Sync runs fn as a server-sync transaction. IsIniting is true while fn
// runs, and every change is tagged OriginSync.
func (m *Model) Sync(fn func(w *Writer)) []Change {
	return m.transact(OriginSync, fn)
}

// Edit runs fn as an interactive transaction whose changes are tagged
// OriginLocal.
func (m *Model) Edit(fn func(w *Writer)) []Change {
	return m.transact(OriginLocal, fn)
}

func (m *Model) transact(origin Origin, fn func(w *Writer)) []Change {
	m.mu.Lock()
	if origin == OriginSync {
		m.initing.Store(true)
	}
	w := &Writer{m: m, origin: origin}
	func() {
		defer func() {
			if origin == OriginSync {
				m.initing.Store(false)
			}
			m.mu.Unlock()
		}()
		fn(w)
	}()

	if len(w.changes) > 0 {
		log.Debug(log.CatModel, "transaction committed", "origin", origin, "changes", len(w.changes))
	}
	m.dispatch(w.changes)
	return w.changes
}

func (m *Model) dispatch(changes []Change) {
	if len(changes) == 0 {
		return
	}
	m.obsMu.RLock()
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]CommitObserver, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, m.observers[id])
	}
	m.obsMu.RUnlock()

	for _, o := range observers {
		o(changes)
	}
	for _, c := range changes {
		kind := pubsub.ChangedEvent
		if c.Origin == OriginSync {
			kind = pubsub.SyncedEvent
		}
		m.broker.Publish(kind, c)
	}
}

// Observe registers o for every committed change and returns a function
// that removes it.
func (m *Model) Observe(o Observer) func() {
	return m.ObserveCommits(func(changes []Change) {
		for _, c := range changes {
			o(c)
		}
	})
}

// ObserveCommits registers o for every non-empty transaction and returns
// a function that removes it.
func (m *Model) ObserveCommits(o CommitObserver) func() {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = o
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// Subscribe streams committed changes until ctx is cancelled. Slow
// subscribers miss events, so views should re-read Snapshot on each one.
func (m *Model) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return m.broker.Subscribe(ctx)
}

// Close releases subscribers.
func (m *Model) Close() {
	m.broker.Close()
}

// IsIniting reports whether a sync transaction is in progress.
func (m *Model) IsIniting() bool {
	return m.initing.Load()
}

// Snapshot returns a deep copy of the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Loaded reports whether a full sync has completed since the last
// disconnect.
func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Loaded
}

// Autoplay reports whether the server is driving the rig.
func (m *Model) Autoplay() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Autoplay
}

// Brightness returns the global brightness.
func (m *Model) Brightness() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Brightness
}

// PauseTimer returns the pause timer state.
func (m *Model) PauseTimer() PauseTimer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.PauseTimer
}

// Now returns the model's clock time.
func (m *Model) Now() time.Time {
	return m.clock.Now()
}

// Writer mutates the model inside one transaction.
type Writer struct {
	m       *Model
	origin  Origin
	changes []Change
}

// Origin returns the transaction scope.
func (w *Writer) Origin() Origin { return w.origin }

// IsIniting reports whether this is a sync transaction.
func (w *Writer) IsIniting() bool { return w.origin == OriginSync }

// State returns a copy of the in-transaction state.
func (w *Writer) State() Snapshot { return w.m.state.clone() }

func (w *Writer) record(f Field, channel int, v any) {
	w.changes = append(w.changes, Change{Field: f, Origin: w.origin, Channel: channel, Value: v})
}

func (w *Writer) setFloat(f Field, dst *float64, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Warn(log.CatModel, "ignoring non-finite value", "field", f, "origin", w.origin)
		return
	}
	*dst = v
	w.record(f, -1, v)
}

// SetLoaded sets the loaded flag.
func (w *Writer) SetLoaded(v bool) {
	w.m.state.Loaded = v
	w.record(FieldLoaded, -1, v)
}

// SetConnection mirrors the session's connection state.
func (w *Writer) SetConnection(c Connection) {
	w.m.state.Connection = c
	w.record(FieldConnection, -1, c)
}

// SetAutoplay sets autoplay. Turning it off interactively also selects
// channel 0 and hides channels 3 and up, which the panel cannot drive.
func (w *Writer) SetAutoplay(v bool) {
	w.m.state.Autoplay = v
	w.record(FieldAutoplay, -1, v)

	if v || w.origin != OriginLocal {
		return
	}
	w.SelectChannel(0)
	for i := range w.m.state.Channels {
		if i >= 3 {
			_ = w.SetChannelVisibility(i, 0)
		}
	}
}

// SetBrightness stores v clamped to [0, MaxBrightness].
func (w *Writer) SetBrightness(v float64) {
	w.setFloat(FieldBrightness, &w.m.state.Brightness, ClampBrightness(v))
}

// ClampBrightness limits v to [0, MaxBrightness].
func ClampBrightness(v float64) float64 {
	return math.Max(0, math.Min(v, MaxBrightness))
}

// SetSpeed sets the speed amount.
func (w *Writer) SetSpeed(v float64) { w.setFloat(FieldSpeed, &w.m.state.Speed, v) }

// SetSpin sets the spin amount.
func (w *Writer) SetSpin(v float64) { w.setFloat(FieldSpin, &w.m.state.Spin, v) }

// SetBlur sets the blur amount.
func (w *Writer) SetBlur(v float64) { w.setFloat(FieldBlur, &w.m.state.Blur, v) }

// SetHue sets the hue amount.
func (w *Writer) SetHue(v float64) { w.setFloat(FieldHue, &w.m.state.Hue, v) }

// SetChannels replaces the channel list. The selection is kept in range.
func (w *Writer) SetChannels(channels []Channel) {
	w.m.state.Channels = cloneChannels(channels)
	w.record(FieldChannels, -1, nil)
	if sel := w.m.state.SelectedChannel; sel >= len(channels) && sel != 0 {
		w.SelectChannel(0)
	}
}

// SetChannelPattern points the channel at position channel to entry
// patternPos of channel 0's catalog, or clears it when patternPos is
// NoPattern.
func (w *Writer) SetChannelPattern(channel, patternPos int) error {
	chs := w.m.state.Channels
	if channel < 0 || channel >= len(chs) {
		return ErrNoSuchChannel
	}
	if patternPos == NoPattern {
		chs[channel].CurrentPattern = nil
		w.record(FieldChannelPattern, channel, NoPattern)
		return nil
	}
	catalog := chs[0].Patterns
	if patternPos < 0 || patternPos >= len(catalog) {
		return ErrPatternOutOfRange
	}
	p := catalog[patternPos]
	chs[channel].CurrentPattern = &p
	w.record(FieldChannelPattern, channel, p.Index)
	return nil
}

// SetChannelVisibility sets the channel's visibility clamped to [0, 1].
func (w *Writer) SetChannelVisibility(channel int, v float64) error {
	chs := w.m.state.Channels
	if channel < 0 || channel >= len(chs) {
		return ErrNoSuchChannel
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Warn(log.CatModel, "ignoring non-finite visibility", "channel", channel)
		return nil
	}
	v = math.Max(0, math.Min(v, 1))
	chs[channel].Visibility = v
	w.record(FieldChannelVisibility, channel, v)
	return nil
}

// SelectChannel sets the channel the panel is editing.
func (w *Writer) SelectChannel(channel int) {
	w.m.state.SelectedChannel = channel
	w.record(FieldSelectedChannel, channel, channel)
}

// SetColorEffects replaces the effect catalog.
func (w *Writer) SetColorEffects(effects []Effect) {
	w.m.state.ColorEffects = slices.Clone(effects)
	w.record(FieldColorEffects, -1, nil)
	w.resolveActiveEffect()
}

// SetActiveColorEffectIndex selects an effect by position, NoPattern for
// none.
func (w *Writer) SetActiveColorEffectIndex(i int) {
	w.m.state.ActiveColorEffectIndex = i
	w.record(FieldActiveColorEffectIndex, -1, i)
	w.resolveActiveEffect()
}

// resolveActiveEffect keeps ActiveColorEffect in step with the index and
// catalog. An index outside the catalog resolves to no effect.
func (w *Writer) resolveActiveEffect() {
	s := &w.m.state
	i := s.ActiveColorEffectIndex
	if i < 0 || i >= len(s.ColorEffects) {
		if i != NoPattern {
			log.Warn(log.CatModel, "active effect index outside catalog", "index", i, "effects", len(s.ColorEffects))
		}
		s.ActiveColorEffect = nil
		return
	}
	e := s.ColorEffects[i]
	s.ActiveColorEffect = &e
}

// SetRunSeconds sets the run phase length.
func (w *Writer) SetRunSeconds(v float64) {
	w.setFloat(FieldRunSeconds, &w.m.state.PauseTimer.RunSeconds, v)
}

// SetPauseSeconds sets the pause phase length.
func (w *Writer) SetPauseSeconds(v float64) {
	w.setFloat(FieldPauseSeconds, &w.m.state.PauseTimer.PauseSeconds, v)
}

// SetTimeRemaining sets the seconds left in the current phase and stamps
// when it was set.
func (w *Writer) SetTimeRemaining(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	w.m.state.PauseTimer.TimeRemainingFetched = w.m.clock.Now()
	w.setFloat(FieldTimeRemaining, &w.m.state.PauseTimer.TimeRemaining, v)
}

// SetTimerState sets the timer phase.
func (w *Writer) SetTimerState(s TimerState) {
	w.m.state.PauseTimer.State = s
	w.record(FieldTimerState, -1, s)
}

// SetBreakEndsAt records when a running break ends; zero clears it.
func (w *Writer) SetBreakEndsAt(t time.Time) {
	w.m.state.BreakEndsAt = t
	w.record(FieldBreakEndsAt, -1, t)
}
