package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/entwined/remote/internal/clock"
)

var epoch = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

func catalog() []Pattern {
	return []Pattern{{Index: 0, Name: "A"}, {Index: 1, Name: "B"}, {Index: 2, Name: "C"}}
}

func channels(n int) []Channel {
	out := make([]Channel, n)
	for i := range out {
		out[i] = Channel{Index: i, Visibility: 1}
	}
	out[0].Patterns = catalog()
	return out
}

func newTestModel() (*Model, *clock.FakeClock) {
	c := clock.Fake(epoch)
	return New(c), c
}

func TestNew_InitialState(t *testing.T) {
	m, _ := newTestModel()
	s := m.Snapshot()

	require.False(t, s.Loaded)
	require.Equal(t, MaxBrightness, s.Brightness)
	require.Equal(t, NoPattern, s.ActiveColorEffectIndex)
	require.Nil(t, s.ActiveColorEffect)
	require.Equal(t, TimerRun, s.PauseTimer.State)
	require.Equal(t, Disconnected, s.Connection)
	require.False(t, m.IsIniting())
}

func TestSync_TagsChangesAndSetsIniting(t *testing.T) {
	m, _ := newTestModel()
	var sawIniting bool

	changes := m.Sync(func(w *Writer) {
		sawIniting = m.IsIniting()
		w.SetSpeed(0.5)
	})

	require.True(t, sawIniting)
	require.False(t, m.IsIniting())
	require.Len(t, changes, 1)
	require.Equal(t, OriginSync, changes[0].Origin)
	require.Equal(t, FieldSpeed, changes[0].Field)
}

func TestEdit_NotIniting(t *testing.T) {
	m, _ := newTestModel()
	var sawIniting bool
	changes := m.Edit(func(w *Writer) {
		sawIniting = m.IsIniting()
		w.SetHue(0.2)
	})
	require.False(t, sawIniting)
	require.Equal(t, OriginLocal, changes[0].Origin)
}

func TestProperty_BrightnessNeverExceedsCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, _ := newTestModel()
		b := rapid.Float64Range(-2, 5).Draw(t, "brightness")
		local := rapid.Bool().Draw(t, "local")

		apply := m.Sync
		if local {
			apply = m.Edit
		}
		changes := apply(func(w *Writer) { w.SetBrightness(b) })

		want := b
		if want > MaxBrightness {
			want = MaxBrightness
		}
		if want < 0 {
			want = 0
		}
		require.Equal(t, want, m.Brightness())
		got, ok := changes[0].Float()
		require.True(t, ok)
		require.Equal(t, want, got, "change carries the clamped value")
	})
}

func TestProperty_OneChangePerMutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, _ := newTestModel()
		n := rapid.IntRange(0, 20).Draw(t, "mutations")
		local := rapid.Bool().Draw(t, "local")

		var observed []Change
		stop := m.Observe(func(c Change) { observed = append(observed, c) })
		defer stop()

		apply := m.Sync
		want := OriginSync
		if local {
			apply = m.Edit
			want = OriginLocal
		}
		apply(func(w *Writer) {
			for i := 0; i < n; i++ {
				switch i % 4 {
				case 0:
					w.SetSpeed(float64(i))
				case 1:
					w.SetSpin(float64(i))
				case 2:
					w.SetBlur(float64(i))
				case 3:
					w.SetHue(float64(i))
				}
			}
		})

		require.Len(t, observed, n)
		for _, c := range observed {
			require.Equal(t, want, c.Origin)
		}
	})
}

func TestSetAutoplay_OffLocallyHidesUncontrollableChannels(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) {
		w.SetChannels(channels(6))
		w.SelectChannel(2)
		w.SetAutoplay(true)
	})

	changes := m.Edit(func(w *Writer) { w.SetAutoplay(false) })

	s := m.Snapshot()
	require.False(t, s.Autoplay)
	require.Equal(t, 0, s.SelectedChannel)
	for i, ch := range s.Channels {
		if i >= 3 {
			require.Zero(t, ch.Visibility, "channel %d", i)
		} else {
			require.Equal(t, 1.0, ch.Visibility, "channel %d", i)
		}
	}

	var fields []Field
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	require.Equal(t, []Field{
		FieldAutoplay, FieldSelectedChannel,
		FieldChannelVisibility, FieldChannelVisibility, FieldChannelVisibility,
	}, fields)
}

func TestSetAutoplay_OffInSyncHasNoSideEffects(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) {
		w.SetChannels(channels(5))
		w.SelectChannel(1)
	})
	changes := m.Sync(func(w *Writer) { w.SetAutoplay(false) })

	require.Len(t, changes, 1)
	require.Equal(t, 1, m.Snapshot().SelectedChannel)
	require.Equal(t, 1.0, m.Snapshot().Channels[4].Visibility)
}

func TestSetChannelPattern_ResolvesIntoMasterCatalog(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) { w.SetChannels(channels(2)) })

	var err error
	changes := m.Edit(func(w *Writer) { err = w.SetChannelPattern(1, 2) })
	require.NoError(t, err)

	ch := m.Snapshot().Channels[1]
	require.NotNil(t, ch.CurrentPattern)
	require.Equal(t, Pattern{Index: 2, Name: "C"}, *ch.CurrentPattern)
	require.Equal(t, 2, changes[0].Value)
	require.Equal(t, 1, changes[0].Channel)
}

func TestSetChannelPattern_None(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) {
		w.SetChannels(channels(2))
		_ = w.SetChannelPattern(1, 0)
	})

	changes := m.Edit(func(w *Writer) { require.NoError(t, w.SetChannelPattern(1, NoPattern)) })
	require.Nil(t, m.Snapshot().Channels[1].CurrentPattern)
	require.Equal(t, NoPattern, changes[0].Value)
}

func TestSetChannelPattern_Errors(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) { w.SetChannels(channels(2)) })

	changes := m.Edit(func(w *Writer) {
		require.ErrorIs(t, w.SetChannelPattern(5, 0), ErrNoSuchChannel)
		require.ErrorIs(t, w.SetChannelPattern(1, 3), ErrPatternOutOfRange)
		require.ErrorIs(t, w.SetChannelPattern(1, -2), ErrPatternOutOfRange)
	})
	require.Empty(t, changes)
}

func TestSetChannelVisibility_Clamps(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) { w.SetChannels(channels(2)) })
	m.Edit(func(w *Writer) { require.NoError(t, w.SetChannelVisibility(1, 1.5)) })
	require.Equal(t, 1.0, m.Snapshot().Channels[1].Visibility)
}

func TestActiveColorEffect_FollowsIndexAndCatalog(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) {
		w.SetActiveColorEffectIndex(1)
		w.SetColorEffects([]Effect{{Index: 0, Name: "none"}, {Index: 1, Name: "rainbow"}})
	})
	s := m.Snapshot()
	require.NotNil(t, s.ActiveColorEffect)
	require.Equal(t, "rainbow", s.ActiveColorEffect.Name)

	m.Edit(func(w *Writer) { w.SetActiveColorEffectIndex(NoPattern) })
	require.Nil(t, m.Snapshot().ActiveColorEffect)

	m.Edit(func(w *Writer) { w.SetActiveColorEffectIndex(9) })
	require.Nil(t, m.Snapshot().ActiveColorEffect, "out of range resolves to none")
}

func TestSetTimeRemaining_StampsFetchTime(t *testing.T) {
	m, c := newTestModel()
	c.Advance(10 * time.Second)

	m.Sync(func(w *Writer) { w.SetTimeRemaining(45) })

	pt := m.PauseTimer()
	require.Equal(t, epoch.Add(10*time.Second), pt.TimeRemainingFetched)
	require.Equal(t, epoch.Add(55*time.Second), pt.NextStateChangeDate(c.Now()))

	c.Advance(40 * time.Second)
	require.Equal(t, 5*time.Second, pt.Remaining(c.Now()))
	c.Advance(time.Minute)
	require.Zero(t, pt.Remaining(c.Now()))
}

func TestNextStateChangeDate_NeverFetched(t *testing.T) {
	pt := PauseTimer{TimeRemaining: 3}
	require.Equal(t, epoch.Add(3*time.Second), pt.NextStateChangeDate(epoch))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) { w.SetChannels(channels(1)) })

	s := m.Snapshot()
	s.Channels[0].Patterns[0].Name = "mutated"
	require.Equal(t, "A", m.Snapshot().Channels[0].Patterns[0].Name)
}

func TestNonFiniteValuesIgnored(t *testing.T) {
	m, _ := newTestModel()
	zero := 0.0
	changes := m.Edit(func(w *Writer) {
		w.SetSpeed(1 / zero)
		w.SetHue(zero / zero)
	})
	require.Empty(t, changes)
}

func TestObserve_Unsubscribe(t *testing.T) {
	m, _ := newTestModel()
	count := 0
	stop := m.Observe(func(Change) { count++ })
	m.Edit(func(w *Writer) { w.SetSpeed(1) })
	stop()
	m.Edit(func(w *Writer) { w.SetSpeed(2) })
	require.Equal(t, 1, count)
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	m, _ := newTestModel()
	defer m.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := m.Subscribe(ctx)
	m.Sync(func(w *Writer) { w.SetLoaded(true) })

	select {
	case ev := <-ch:
		require.Equal(t, FieldLoaded, ev.Payload.Field)
		require.Equal(t, epoch, ev.Timestamp)
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for change")
	}
}

func TestOnBreak(t *testing.T) {
	s := Snapshot{BreakEndsAt: epoch.Add(time.Minute)}
	require.True(t, s.OnBreak(epoch))
	require.False(t, s.OnBreak(epoch.Add(time.Minute)))
	require.False(t, Snapshot{}.OnBreak(epoch))
}

func TestObserveCommits_OncePerTransaction(t *testing.T) {
	m, _ := newTestModel()
	var batches [][]Change
	stop := m.ObserveCommits(func(cs []Change) { batches = append(batches, cs) })
	defer stop()

	m.Edit(func(w *Writer) {
		w.SetSpeed(1)
		w.SetSpin(2)
	})
	m.Sync(func(*Writer) {})

	require.Len(t, batches, 1, "empty transactions are not delivered")
	require.Len(t, batches[0], 2)
}

func TestPatternPosition(t *testing.T) {
	m, _ := newTestModel()
	m.Sync(func(w *Writer) {
		chs := channels(3)
		chs[0].Patterns = []Pattern{{Index: 10, Name: "Twister"}, {Index: 11, Name: "Rain"}}
		w.SetChannels(chs)
		require.NoError(t, w.SetChannelPattern(1, 1))
	})
	s := m.Snapshot()

	require.Equal(t, 1, s.PatternPosition(1))
	require.Equal(t, NoPattern, s.PatternPosition(2))
	require.Equal(t, NoPattern, s.PatternPosition(7))
	require.Equal(t, NoPattern, s.PatternPosition(-1))
}
