package panel

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/model"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var now = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

func loadedSnapshot() model.Snapshot {
	catalog := []model.Pattern{{Index: 10, Name: "Twister"}, {Index: 11, Name: "Rain"}, {Index: 12, Name: "Fire"}}
	rain := catalog[1]
	return model.Snapshot{
		Loaded:     true,
		Connection: model.Connected,
		Autoplay:   true,
		Brightness: 0.375,
		Channels: []model.Channel{
			{Index: 0, Patterns: catalog, Visibility: 1},
			{Index: 1, CurrentPattern: &rain, Visibility: 0.5},
		},
		SelectedChannel:        1,
		ColorEffects:           []model.Effect{{Index: 0, Name: "Rainbow"}},
		ActiveColorEffectIndex: 0,
		ActiveColorEffect:      &model.Effect{Index: 0, Name: "Rainbow"},
		Speed:                  1.5,
		PauseTimer: model.PauseTimer{
			RunSeconds:           600,
			PauseSeconds:         300,
			TimeRemaining:        120,
			State:                model.TimerRun,
			TimeRemainingFetched: now.Add(-30 * time.Second),
		},
	}
}

func render(s model.Snapshot) string {
	return Render(View{Snapshot: s, Now: now, Hostname: "tree.local", Port: 5204, Width: 100})
}

func TestRender_Header(t *testing.T) {
	out := render(model.Snapshot{Connection: model.Connecting})

	require.Contains(t, out, "Entwined")
	require.Contains(t, out, "tree.local:5204")
	require.Contains(t, out, "connecting")
}

func TestRender_HidesControlsUntilLoaded(t *testing.T) {
	s := loadedSnapshot()
	s.Loaded = false
	s.Connection = model.Disconnected

	out := render(s)
	require.Contains(t, out, "Waiting for the rig")
	require.NotContains(t, out, "Autoplay")
	require.NotContains(t, out, "Rain")

	s.Connection = model.Connected
	require.Contains(t, render(s), "Loading rig state")
}

func TestRender_Loaded(t *testing.T) {
	out := render(loadedSnapshot())

	require.Contains(t, out, "Autoplay")
	require.Contains(t, out, "on")
	require.Contains(t, out, " 50%")
	require.Contains(t, out, "Rainbow")
	require.Contains(t, out, "1.50")
	require.Contains(t, out, "running 1:30")
	require.Contains(t, out, "(run 10:00 / pause 5:00)")
	require.Contains(t, out, "Channel 0")
	require.Contains(t, out, "> Channel 1")
	require.Contains(t, out, "Patterns")
	require.Contains(t, out, "2/3")
	require.Contains(t, out, "> Rain")
	require.Contains(t, out, "Twister")
}

func TestRender_PausedTimerNeverNegative(t *testing.T) {
	s := loadedSnapshot()
	s.PauseTimer.State = model.TimerPause
	s.PauseTimer.TimeRemaining = 10

	require.Contains(t, render(s), "paused 0:00")
}

func TestRender_BreakShowsCountdownOnly(t *testing.T) {
	s := loadedSnapshot()
	s.BreakEndsAt = now.Add(4*time.Minute + 30*time.Second)

	out := render(s)
	require.Contains(t, out, "On break")
	require.Contains(t, out, "4:30")
	require.NotContains(t, out, "Autoplay")
	require.NotContains(t, out, "Channel 1")

	s.BreakEndsAt = now
	require.NotContains(t, render(s), "On break")
}

func TestRender_NoCatalog(t *testing.T) {
	s := loadedSnapshot()
	s.Channels = nil
	s.ActiveColorEffect = nil

	out := render(s)
	require.Contains(t, out, "No channels")
	require.Contains(t, out, "No patterns")
	require.Contains(t, out, "none")
}

func TestRender_FitsWidth(t *testing.T) {
	s := loadedSnapshot()
	long := model.Pattern{Index: 99, Name: strings.Repeat("Very Long Pattern Name ", 5)}
	s.Channels[0].Patterns = append(s.Channels[0].Patterns, long)
	s.Channels[1].CurrentPattern = &long

	for _, line := range strings.Split(render(s), "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 100)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		pos, total, n int
		start, end    int
	}{
		{0, 3, 7, 0, 3},
		{-1, 20, 7, 0, 7},
		{0, 20, 7, 0, 7},
		{10, 20, 7, 7, 14},
		{19, 20, 7, 13, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.pos, tt.total), func(t *testing.T) {
			start, end := window(tt.pos, tt.total, tt.n)
			require.Equal(t, tt.start, start)
			require.Equal(t, tt.end, end)
		})
	}
}

// Run with -update to rewrite golden files: go test ./internal/ui/panel -update
func TestRender_Golden_Disconnected(t *testing.T) {
	got := Render(View{
		Snapshot: model.Snapshot{Connection: model.Disconnected},
		Now:      now,
		Hostname: "tree.local",
		Port:     5204,
		Width:    60,
	})
	teatest.RequireEqualOutput(t, []byte(got))
}

func TestRender_Golden_OnBreak(t *testing.T) {
	s := loadedSnapshot()
	s.BreakEndsAt = now.Add(4 * time.Minute)

	got := Render(View{Snapshot: s, Now: now, Hostname: "tree.local", Port: 5204, Width: 60})
	teatest.RequireEqualOutput(t, []byte(got))
}

func TestRender_LastKnownCatalogWhileWaiting(t *testing.T) {
	cached := &cachemanager.Catalog{
		Patterns: []model.Pattern{{Index: 10, Name: "Twister"}, {Index: 11, Name: "Rain"}},
		Effects:  []model.Effect{{Index: 0, Name: "Rainbow"}},
		SeenAt:   now.Add(-90 * time.Second),
	}
	v := View{
		Snapshot:  model.Snapshot{Connection: model.Connecting},
		LastKnown: cached,
		Now:       now,
		Hostname:  "tree.local",
		Port:      5204,
		Width:     100,
	}

	out := Render(v)
	require.Contains(t, out, "Waiting for the rig")
	require.Contains(t, out, "Last seen 1:30 ago")
	require.Contains(t, out, "Twister, Rain")
	require.Contains(t, out, "Rainbow")

	v.LastKnown = &cachemanager.Catalog{Patterns: cached.Patterns, SeenAt: cached.SeenAt}
	require.Contains(t, Render(v), "none", "missing effects render as none")

	v.Snapshot = loadedSnapshot()
	require.NotContains(t, Render(v), "Last seen", "cache is ignored once loaded")

	v.Snapshot = model.Snapshot{Connection: model.Connecting}
	v.LastKnown = &cachemanager.Catalog{}
	require.NotContains(t, Render(v), "Last seen")
}
