// Package app contains the root control panel model.
package app

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/config"
	"github.com/entwined/remote/internal/keys"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/pubsub"
	"github.com/entwined/remote/internal/ui/logoverlay"
	"github.com/entwined/remote/internal/ui/panel"
	"github.com/entwined/remote/internal/ui/styles"
	"github.com/entwined/remote/internal/ui/toaster"
)

const (
	brightnessStep = 0.05
	visibilityStep = 0.1
	tickInterval   = time.Second
)

// Session is the part of the session controller the panel drives.
type Session interface {
	Model() *model.Model
	Hostname() string
	Port() int
	SetHostname(hostname string) error
	LastKnownCatalog(hostname string) (cachemanager.Catalog, bool)

	SetAutoplay(on bool)
	SetBrightness(v float64)
	SetActiveColorEffect(i int)
	SetChannelPattern(channel, patternPos int) error
	SetChannelVisibility(channel int, v float64) error
	SelectChannel(channel int) error

	ResetTimerToPause()
	ResetTimerToRun()
	StartBreak(d time.Duration) error
	StopBreak()
}

// Config configures the control panel.
type Config struct {
	Session Session
	Clock   clock.Clock

	// ConfigPath is where hostname changes are saved; empty disables saving.
	ConfigPath string
	// ConfigChanged signals that the config file was modified on disk.
	ConfigChanged <-chan struct{}

	BreakDuration time.Duration
	ShowLog       bool
}

// Messages

type tickMsg time.Time

type configChangedMsg struct{}

type configLoadedMsg struct {
	cfg config.Config
	err error
}

type hostnameSavedMsg struct {
	hostname string
	err      error
}

// Model is the root application state.
type Model struct {
	session Session
	clock   clock.Clock

	configPath    string
	configChanged <-chan struct{}
	breakDuration time.Duration

	snap model.Snapshot
	// lastKnown is the current host's cached catalog, kept only while
	// the rig has not loaded.
	lastKnown *cachemanager.Catalog

	width  int
	height int

	help     help.Model
	hostname textinput.Model
	editing  bool

	toaster    toaster.Model
	logOverlay logoverlay.Model

	ctx           context.Context
	cancel        context.CancelFunc
	modelListener *pubsub.ContinuousListener[model.Change]
	logListener   *log.LogListener
}

// New creates the control panel model. Subscriptions live until Close.
func New(cfg Config) Model {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.BreakDuration <= 0 {
		cfg.BreakDuration = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Prompt = "Hostname: "
	input.Placeholder = "10.0.0.3"
	input.CharLimit = 253
	input.PromptStyle = styles.TitleStyle

	m := Model{
		session:       cfg.Session,
		clock:         cfg.Clock,
		configPath:    cfg.ConfigPath,
		configChanged: cfg.ConfigChanged,
		breakDuration: cfg.BreakDuration,
		help:          help.New(),
		hostname:      input,
		toaster:       toaster.New(),
		logOverlay:    logoverlay.New(),
		ctx:           ctx,
		cancel:        cancel,
		modelListener: pubsub.NewContinuousListener[model.Change](ctx, cfg.Session.Model()),
		logListener:   log.NewListener(ctx),
	}
	if cfg.ShowLog {
		m.logOverlay.Show()
	}
	m.refresh()
	return m
}

// refresh re-reads the model, and the catalog cache while not loaded.
func (m *Model) refresh() {
	m.snap = m.session.Model().Snapshot()
	m.lastKnown = nil
	if m.snap.Loaded {
		return
	}
	if c, ok := m.session.LastKnownCatalog(m.session.Hostname()); ok {
		m.lastKnown = &c
	}
}

// Init implements tea.Model. It starts listening for model changes, log
// entries and config edits.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.modelListener.Listen(),
		m.tick(),
	}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	if m.configChanged != nil {
		cmds = append(cmds, m.waitForConfigChange())
	}
	return tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForConfigChange() tea.Cmd {
	ch, ctx := m.configChanged, m.ctx
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return configChangedMsg{}
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.logOverlay.SetSize(msg.Width, msg.Height)
		return m, nil

	case pubsub.Event[model.Change]:
		m.refresh()
		return m, m.modelListener.Listen()

	case log.LogEvent:
		m.logOverlay = m.logOverlay.Append(msg.Payload)
		if m.logListener == nil {
			return m, nil
		}
		return m, m.logListener.Listen()

	case tickMsg:
		// Countdowns are extrapolated, so re-render even without changes.
		m.refresh()
		return m, m.tick()

	case configChangedMsg:
		return m, tea.Batch(m.loadConfig(), m.waitForConfigChange())

	case configLoadedMsg:
		return m.handleConfigLoaded(msg)

	case hostnameSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatConfig, "Failed to save hostname", msg.err, "hostname", msg.hostname)
			return m.showToast("Could not save hostname: "+msg.err.Error(), toaster.StyleError)
		}
		return m.showToast("Saved hostname "+msg.hostname, toaster.StyleSuccess)

	case toaster.ShowMsg:
		return m.showToast(msg.Message, msg.Style)

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case logoverlay.CloseMsg:
		m.logOverlay.Hide()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.hostname, cmd = m.hostname.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) showToast(message string, style toaster.Style) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(message, style, toaster.DefaultDuration)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleHostnameKey(msg)
	}

	if m.logOverlay.Visible() {
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd
	}

	now := m.clock.Now()
	switch {
	case key.Matches(msg, keys.Panel.Quit):
		return m, tea.Quit
	case m.snap.OnBreak(now):
		if key.Matches(msg, keys.Break.StopBreak) {
			m.session.StopBreak()
		}
		return m, nil
	case key.Matches(msg, keys.Panel.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.Panel.Logs):
		m.logOverlay.Toggle()
		return m, nil
	case key.Matches(msg, keys.Panel.Hostname):
		m.editing = true
		m.hostname.SetValue(m.session.Hostname())
		m.hostname.CursorEnd()
		return m, m.hostname.Focus()
	}

	// Everything below edits the rig and needs a loaded model.
	if !m.snap.Loaded {
		return m, nil
	}
	return m, m.handleControl(msg)
}

func (m Model) handleControl(msg tea.KeyMsg) tea.Cmd {
	s := m.snap
	sel := s.SelectedChannel

	var err error
	switch {
	case key.Matches(msg, keys.Panel.Autoplay):
		m.session.SetAutoplay(!s.Autoplay)
	case key.Matches(msg, keys.Panel.BrightnessUp):
		m.session.SetBrightness(step(s.Brightness, brightnessStep, model.MaxBrightness))
	case key.Matches(msg, keys.Panel.BrightnessDown):
		m.session.SetBrightness(step(s.Brightness, -brightnessStep, model.MaxBrightness))
	case key.Matches(msg, keys.Panel.NextEffect):
		m.session.SetActiveColorEffect(nextEffect(s.ActiveColorEffectIndex, len(s.ColorEffects)))
	case key.Matches(msg, keys.Panel.NextChannel):
		if n := len(s.Channels); n > 0 {
			err = m.session.SelectChannel((sel + 1) % n)
		}
	case key.Matches(msg, keys.Panel.PrevChannel):
		if n := len(s.Channels); n > 0 {
			err = m.session.SelectChannel((sel - 1 + n) % n)
		}
	case key.Matches(msg, keys.Panel.NextPattern):
		if pos := s.PatternPosition(sel); pos+1 < len(s.Patterns()) {
			err = m.session.SetChannelPattern(sel, pos+1)
		}
	case key.Matches(msg, keys.Panel.PrevPattern):
		if pos := s.PatternPosition(sel); pos > model.NoPattern {
			err = m.session.SetChannelPattern(sel, pos-1)
		}
	case key.Matches(msg, keys.Panel.VisibilityUp):
		err = m.adjustVisibility(visibilityStep)
	case key.Matches(msg, keys.Panel.VisibilityDown):
		err = m.adjustVisibility(-visibilityStep)
	case key.Matches(msg, keys.Panel.TimerPause):
		m.session.ResetTimerToPause()
	case key.Matches(msg, keys.Panel.TimerRun):
		m.session.ResetTimerToRun()
	case key.Matches(msg, keys.Panel.StartBreak):
		err = m.session.StartBreak(m.breakDuration)
	}

	if err != nil {
		log.ErrorErr(log.CatUI, "Control failed", err, "key", msg.String())
		return toaster.Show(err.Error(), toaster.StyleError)
	}
	return nil
}

func (m Model) adjustVisibility(delta float64) error {
	sel := m.snap.SelectedChannel
	if sel < 0 || sel >= len(m.snap.Channels) {
		return model.ErrNoSuchChannel
	}
	return m.session.SetChannelVisibility(sel, step(m.snap.Channels[sel].Visibility, delta, 1))
}

// step moves v by delta within [0, upper], rounded to hundredths so
// repeated steps land on round values.
func step(v, delta, upper float64) float64 {
	v = math.Round((v+delta)*100) / 100
	return math.Max(0, math.Min(v, upper))
}

// nextEffect cycles none, 0, 1, ... n-1, none.
func nextEffect(current, n int) int {
	if n == 0 || current+1 >= n || current < model.NoPattern {
		return model.NoPattern
	}
	return current + 1
}

func (m Model) handleHostnameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Hostname.Cancel):
		m.editing = false
		m.hostname.Blur()
		return m, nil

	case key.Matches(msg, keys.Hostname.Save):
		hostname := strings.TrimSpace(m.hostname.Value())
		if err := m.session.SetHostname(hostname); err != nil {
			log.Warn(log.CatUI, "Rejected hostname", "hostname", hostname, "error", err)
			return m.showToast("Hostname must not be empty", toaster.StyleError)
		}
		m.editing = false
		m.hostname.Blur()
		log.Info(log.CatUI, "Hostname changed", "hostname", hostname)
		return m, m.saveHostname(hostname)

	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.hostname, cmd = m.hostname.Update(msg)
	return m, cmd
}

func (m Model) saveHostname(hostname string) tea.Cmd {
	path := m.configPath
	if path == "" {
		return toaster.Show("Connecting to "+hostname, toaster.StyleInfo)
	}
	return func() tea.Msg {
		return hostnameSavedMsg{hostname: hostname, err: config.SaveHostname(path, hostname)}
	}
}

func (m Model) loadConfig() tea.Cmd {
	path := m.configPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		cfg, err := config.Load(path)
		return configLoadedMsg{cfg: cfg, err: err}
	}
}

// handleConfigLoaded follows hostname edits made to the config file while
// the panel is running. Other settings apply on the next start.
func (m Model) handleConfigLoaded(msg configLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Warn(log.CatConfig, "Ignoring invalid config change", "path", m.configPath, "error", msg.err)
		return m.showToast("Config not reloaded: "+msg.err.Error(), toaster.StyleWarn)
	}
	hostname := strings.TrimSpace(msg.cfg.Server.Hostname)
	if hostname == m.session.Hostname() {
		return m, nil
	}
	if err := m.session.SetHostname(hostname); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to apply hostname from config", err)
		return m, nil
	}
	log.Info(log.CatConfig, "Hostname changed on disk", "hostname", hostname)
	return m.showToast("Connecting to "+hostname, toaster.StyleInfo)
}

// View implements tea.Model.
func (m Model) View() string {
	body := panel.Render(panel.View{
		Snapshot:  m.snap,
		LastKnown: m.lastKnown,
		Now:       m.clock.Now(),
		Hostname:  m.session.Hostname(),
		Port:      m.session.Port(),
		Width:     m.width,
	})

	var footer string
	switch {
	case m.editing:
		footer = m.hostname.View() + "\n" + m.help.View(keys.Hostname)
	case m.snap.OnBreak(m.clock.Now()):
		footer = m.help.View(keys.Break)
	default:
		footer = m.help.View(keys.Panel)
	}
	view := lipgloss.JoinVertical(lipgloss.Left, body, footer)

	if m.toaster.Visible() {
		view = m.toaster.Overlay(view, m.width, m.height)
	}
	if m.logOverlay.Visible() {
		view = m.logOverlay.Overlay(view)
	}
	return view
}

// Close releases the model and log subscriptions.
func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}
