package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/config"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/protocol"
	"github.com/entwined/remote/internal/pubsub"
	"github.com/entwined/remote/internal/session"
	"github.com/entwined/remote/internal/transport"
	"github.com/entwined/remote/internal/ui/toaster"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var epoch = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

const rig = `{
	"autoplay": true,
	"brightness": 0.5,
	"colorEffects": [{"index":0,"name":"Rainbow"},{"index":1,"name":"Strobe"}],
	"channels": [
		{"index":0,"currentPatternIndex":1,"visibility":1,"patterns":[{"index":10,"name":"Twister"},{"index":11,"name":"Rain"},{"index":12,"name":"Fire"}]},
		{"index":1,"currentPatternIndex":0,"visibility":0.5,"patterns":[]},
		{"index":2,"currentPatternIndex":-1,"visibility":0.25,"patterns":[]}
	],
	"activeColorEffectIndex": 1,
	"pauseTimer": {"runSeconds":600,"pauseSeconds":300,"timeRemaining":120,"state":"run"}
}`

type fixture struct {
	app        Model
	ctrl       *session.Controller
	lb         *transport.Loopback
	clock      *clock.FakeClock
	configPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.Fake(epoch)
	lb := transport.NewLoopback()
	ctrl := session.New(model.New(clk), lb, session.Options{Hostname: "tree.local"}, session.WithClock(clk))
	t.Cleanup(ctrl.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))

	m := New(Config{Session: ctrl, Clock: clk, ConfigPath: path})
	t.Cleanup(m.Close)
	f := &fixture{app: m, ctrl: ctrl, lb: lb, clock: clk, configPath: path}
	f.update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return f
}

// load connects and syncs the rig, then forgets what was sent.
func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.ctrl.Connect()
	f.lb.Accept()
	msg, err := protocol.Parse([]byte(`{"method":"model","params":` + rig + `}`))
	require.NoError(t, err)
	f.lb.Deliver(msg)
	f.lb.Reset()
	f.refresh()
	require.True(t, f.app.snap.Loaded)
}

func (f *fixture) update(msg tea.Msg) tea.Cmd {
	next, cmd := f.app.Update(msg)
	f.app = next.(Model)
	return cmd
}

func (f *fixture) refresh() {
	f.update(pubsub.Event[model.Change]{Type: pubsub.SyncedEvent})
}

func (f *fixture) press(k string) tea.Cmd {
	cmd := f.update(keyMsg(k))
	f.refresh()
	return cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func (f *fixture) last(t *testing.T) protocol.Message {
	t.Helper()
	sent := f.lb.Sent()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1]
}

func param[T any](t *testing.T, msg protocol.Message, key string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Params[key], &v))
	return v
}

func TestApp_WindowSize(t *testing.T) {
	f := newFixture(t)

	f.update(tea.WindowSizeMsg{Width: 120, Height: 50})

	require.Equal(t, 120, f.app.width)
	require.Equal(t, 50, f.app.height)
}

func TestApp_ControlsIgnoredUntilLoaded(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Connect()
	f.lb.Accept()
	f.lb.Reset()

	for _, k := range []string{"a", "]", "e", "tab", "down", "+", "p", "b"} {
		f.press(k)
	}

	require.Empty(t, f.lb.Sent())
	require.Contains(t, f.app.View(), "Loading rig state")
}

func TestApp_ToggleAutoplay(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("a")

	first := f.lb.Sent()[0]
	require.Equal(t, protocol.MethodSetAutoplay, first.Method)
	require.False(t, param[bool](t, first, "autoplay"))
	require.False(t, f.app.snap.Autoplay)
}

func TestApp_Brightness(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("]")
	require.InDelta(t, 0.55, param[float64](t, f.last(t), "brightness"), 1e-9)

	f.press("[")
	f.press("[")
	require.InDelta(t, 0.45, param[float64](t, f.last(t), "brightness"), 1e-9)

	for range 10 {
		f.press("]")
	}
	require.InDelta(t, model.MaxBrightness, param[float64](t, f.last(t), "brightness"), 1e-9)
}

func TestApp_NextEffectCyclesThroughNone(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("e")
	require.Equal(t, model.NoPattern, param[int](t, f.last(t), "effectIndex"))

	f.press("e")
	require.Equal(t, 0, param[int](t, f.last(t), "effectIndex"))
	require.Equal(t, "Rainbow", f.app.snap.ActiveColorEffect.Name)
}

func TestApp_ChannelSelectionIsLocal(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("tab")
	require.Equal(t, 1, f.app.snap.SelectedChannel)

	f.press("shift+tab")
	f.press("shift+tab")
	require.Equal(t, 2, f.app.snap.SelectedChannel)

	require.Empty(t, f.lb.Sent())
}

func TestApp_PatternNavigation(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("down")
	msg := f.last(t)
	require.Equal(t, protocol.MethodSetChannelPattern, msg.Method)
	require.Equal(t, 0, param[int](t, msg, "channelIndex"))
	require.Equal(t, 12, param[int](t, msg, "patternIndex"))

	f.lb.Reset()
	f.press("down")
	require.Empty(t, f.lb.Sent(), "already at the last pattern")

	f.press("up")
	require.Equal(t, 11, param[int](t, f.last(t), "patternIndex"))
}

func TestApp_PatternNavigationFromNone(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.press("tab")
	f.press("tab")
	require.Equal(t, 2, f.app.snap.SelectedChannel)

	f.press("up")
	require.Empty(t, f.lb.Sent())

	f.press("down")
	msg := f.last(t)
	require.Equal(t, 2, param[int](t, msg, "channelIndex"))
	require.Equal(t, 10, param[int](t, msg, "patternIndex"))
}

func TestApp_Visibility(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.press("tab")

	f.press("+")
	msg := f.last(t)
	require.Equal(t, protocol.MethodSetChannelVisibility, msg.Method)
	require.Equal(t, 1, param[int](t, msg, "channelIndex"))
	require.InDelta(t, 0.6, param[float64](t, msg, "visibility"), 1e-9)

	f.press("-")
	f.press("-")
	require.InDelta(t, 0.4, param[float64](t, f.last(t), "visibility"), 1e-9)
}

func TestApp_TimerResets(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("p")
	require.Equal(t, protocol.MethodResetTimerPause, f.last(t).Method)

	f.press("r")
	require.Equal(t, protocol.MethodResetTimerRun, f.last(t).Method)
}

func TestApp_BreakShowsCountdownAndOnlyStops(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press("b")
	msg := f.last(t)
	require.Equal(t, protocol.MethodStartBreak, msg.Method)
	require.InDelta(t, 300, param[float64](t, msg, "seconds"), 1e-9)

	view := f.app.View()
	require.Contains(t, view, "On break")
	require.Contains(t, view, "5:00")
	require.NotContains(t, view, "Autoplay")

	f.lb.Reset()
	f.press("a")
	f.press("down")
	require.Empty(t, f.lb.Sent())

	f.clock.Advance(time.Minute)
	f.update(tickMsg(f.clock.Now()))
	require.Contains(t, f.app.View(), "4:00")

	f.press("s")
	require.Equal(t, protocol.MethodStopBreak, f.last(t).Method)
	require.NotContains(t, f.app.View(), "On break")
}

func TestApp_HostnameEdit(t *testing.T) {
	f := newFixture(t)

	f.press("h")
	require.True(t, f.app.editing)
	require.Equal(t, "tree.local", f.app.hostname.Value())

	f.press("q")
	require.True(t, f.app.editing, "typing must not trigger panel keys")

	f.app.hostname.SetValue("  dome.local ")
	cmd := f.press("enter")
	require.False(t, f.app.editing)
	require.Equal(t, "dome.local", f.ctrl.Hostname())
	host, _ := f.lb.Target()
	require.Equal(t, "dome.local", host)

	require.NotNil(t, cmd)
	saved := cmd()
	require.Equal(t, hostnameSavedMsg{hostname: "dome.local"}, saved)
	cfg, err := config.Load(f.configPath)
	require.NoError(t, err)
	require.Equal(t, "dome.local", cfg.Server.Hostname)

	f.update(saved)
	require.True(t, f.app.toaster.Visible())
	require.Contains(t, f.app.toaster.Message(), "dome.local")
}

func TestApp_HostnameEmptyRejected(t *testing.T) {
	f := newFixture(t)

	f.press("h")
	f.app.hostname.SetValue("   ")
	f.press("enter")

	require.True(t, f.app.editing)
	require.Equal(t, "tree.local", f.ctrl.Hostname())
	require.True(t, f.app.toaster.Visible())
	require.Contains(t, f.app.toaster.Message(), "must not be empty")
}

func TestApp_HostnameCancel(t *testing.T) {
	f := newFixture(t)

	f.press("h")
	f.app.hostname.SetValue("dome.local")
	f.press("esc")

	require.False(t, f.app.editing)
	require.Equal(t, "tree.local", f.ctrl.Hostname())
}

func TestApp_ConfigReloadFollowsHostname(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, config.SaveHostname(f.configPath, "dome.local"))

	loaded := f.app.loadConfig()()
	f.update(loaded)

	require.Equal(t, "dome.local", f.ctrl.Hostname())
	require.True(t, f.app.toaster.Visible())

	f.app.toaster = f.app.toaster.Hide()
	f.update(f.app.loadConfig()())
	require.False(t, f.app.toaster.Visible(), "unchanged hostname is not announced")
}

func TestApp_ConfigReloadInvalidKeepsSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.configPath, []byte("server:\n  port: 0\n"), 0o600))

	f.update(f.app.loadConfig()())

	require.Equal(t, "tree.local", f.ctrl.Hostname())
	require.Contains(t, f.app.toaster.Message(), "Config not reloaded")
}

func TestApp_LogOverlay(t *testing.T) {
	f := newFixture(t)

	f.press("l")
	require.True(t, f.app.logOverlay.Visible())

	cmd := f.update(log.LogEvent{Payload: "2026-10-17T20:00:00 [INFO] [session] connected host=tree.local\n"})
	require.Nil(t, cmd)
	require.Contains(t, f.app.View(), "connected host=tree.local")

	f.press("a")
	require.Empty(t, f.lb.Sent(), "keys go to the overlay while it is open")

	f.press("esc")
	require.False(t, f.app.logOverlay.Visible())
}

func TestApp_ControlErrorShowsToast(t *testing.T) {
	f := newFixture(t)

	f.update(toaster.ShowMsg{Message: "no such channel", Style: toaster.StyleError})

	require.True(t, f.app.toaster.Visible())
	require.Contains(t, f.app.View(), "no such channel")
}

func TestApp_Quit(t *testing.T) {
	f := newFixture(t)

	cmd := f.press("q")

	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_ShowsLastKnownCatalogWhileReconnecting(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.Nil(t, f.app.lastKnown)

	f.lb.Fail(errors.New("connection reset"))
	f.refresh()

	require.False(t, f.app.snap.Loaded)
	require.NotNil(t, f.app.lastKnown)
	view := f.app.View()
	require.Contains(t, view, "Last seen 0:00 ago")
	require.Contains(t, view, "Twister, Rain, Fire")
	require.Contains(t, view, "Rainbow, Strobe")

	require.NoError(t, f.ctrl.SetHostname("dome.local"))
	f.refresh()
	require.Nil(t, f.app.lastKnown, "nothing cached for a new host")
	require.NotContains(t, f.app.View(), "Last seen")
}

func TestApp_ViewShowsPanelAndHelp(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	view := f.app.View()
	require.Contains(t, view, "tree.local:5204")
	require.Contains(t, view, "connected")
	require.Contains(t, view, "> Rain")
	require.Contains(t, view, "toggle autoplay")
}

func TestStep(t *testing.T) {
	require.InDelta(t, 0.1, step(0.05, 0.05, 1), 1e-9)
	require.Zero(t, step(0.02, -0.05, 1))
	require.InDelta(t, 0.75, step(0.74, 0.05, 0.75), 1e-9)
}

func TestNextEffect(t *testing.T) {
	require.Equal(t, 0, nextEffect(model.NoPattern, 2))
	require.Equal(t, 1, nextEffect(0, 2))
	require.Equal(t, model.NoPattern, nextEffect(1, 2))
	require.Equal(t, model.NoPattern, nextEffect(model.NoPattern, 0))
	require.Equal(t, model.NoPattern, nextEffect(5, 2))
}
