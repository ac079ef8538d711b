package session

import (
	"slices"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/protocol"
	"github.com/entwined/remote/internal/tracing"
)

// propagate forwards one committed transaction. Sync changes are never
// sent. Turning autoplay off also requests a full reload once the rest of
// the transaction has been sent.
func (c *Controller) propagate(changes []model.Change) {
	var (
		snap   model.Snapshot
		loaded bool
		reload bool
	)
	channelIndex := func(pos int) int {
		if !loaded {
			snap, loaded = c.model.Snapshot(), true
		}
		if pos >= 0 && pos < len(snap.Channels) {
			return snap.Channels[pos].Index
		}
		return pos
	}

	for _, ch := range changes {
		if ch.Origin != model.OriginLocal {
			continue
		}
		switch ch.Field {
		case model.FieldAutoplay:
			on, _ := ch.Bool()
			c.send(protocol.SetAutoplay(on))
			c.send(protocol.GetTimer())
			reload = !on
		case model.FieldBrightness:
			v, _ := ch.Float()
			c.send(protocol.SetBrightness(v))
		case model.FieldActiveColorEffectIndex:
			i, _ := ch.Int()
			c.send(protocol.SetActiveColorEffect(i))
		case model.FieldSpeed:
			v, _ := ch.Float()
			c.send(protocol.SetSpeed(v))
		case model.FieldSpin:
			v, _ := ch.Float()
			c.send(protocol.SetSpin(v))
		case model.FieldBlur:
			v, _ := ch.Float()
			c.send(protocol.SetBlur(v))
		case model.FieldHue:
			v, _ := ch.Float()
			c.send(protocol.SetHue(v))
		case model.FieldChannelPattern:
			i, _ := ch.Int()
			c.send(protocol.SetChannelPattern(channelIndex(ch.Channel), i))
		case model.FieldChannelVisibility:
			v, _ := ch.Float()
			c.send(protocol.SetChannelVisibility(channelIndex(ch.Channel), v))
		}
	}
	if reload {
		c.send(protocol.LoadModel())
	}
}

func (c *Controller) send(msg protocol.Message) {
	attempt, _ := c.sendAttempt.Load().(string)
	keys := make([]string, 0, len(msg.Params))
	for k := range msg.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	log.Debug(log.CatSession, "sending", "method", msg.Method, "params", keys)
	c.transport.Send(msg)
	tracing.RecordCommand(c.tracer, attempt, msg.Method, keys)
}

// edit runs fn as an interactive transaction inside the session context.
func (c *Controller) edit(fn func(w *model.Writer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.model.Edit(func(w *model.Writer) { err = fn(w) })
	return err
}

// LoadModel requests a full sync.
func (c *Controller) LoadModel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send(protocol.LoadModel())
}

// LoadPauseTimer requests the pause timer.
func (c *Controller) LoadPauseTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send(protocol.GetTimer())
}

// SetAutoplay hands the rig to the server or takes it back.
func (c *Controller) SetAutoplay(on bool) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetAutoplay(on)
		return nil
	})
}

// SetBrightness sets global brightness, capped at model.MaxBrightness.
func (c *Controller) SetBrightness(v float64) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetBrightness(v)
		return nil
	})
}

// SetActiveColorEffect selects an effect by position, model.NoPattern for
// none.
func (c *Controller) SetActiveColorEffect(i int) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetActiveColorEffectIndex(i)
		return nil
	})
}

// SetSpeed sets the speed amount.
func (c *Controller) SetSpeed(v float64) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetSpeed(v)
		return nil
	})
}

// SetSpin sets the spin amount.
func (c *Controller) SetSpin(v float64) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetSpin(v)
		return nil
	})
}

// SetBlur sets the blur amount.
func (c *Controller) SetBlur(v float64) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetBlur(v)
		return nil
	})
}

// SetHue sets the hue amount.
func (c *Controller) SetHue(v float64) {
	_ = c.edit(func(w *model.Writer) error {
		w.SetHue(v)
		return nil
	})
}

// SetChannelPattern selects entry patternPos of the master catalog on the
// channel at position channel, or clears it with model.NoPattern.
func (c *Controller) SetChannelPattern(channel, patternPos int) error {
	return c.edit(func(w *model.Writer) error {
		return w.SetChannelPattern(channel, patternPos)
	})
}

// SetChannelVisibility sets a channel's blend in [0, 1].
func (c *Controller) SetChannelVisibility(channel int, v float64) error {
	return c.edit(func(w *model.Writer) error {
		return w.SetChannelVisibility(channel, v)
	})
}

// SelectChannel changes which channel the panel edits. It is display
// state and is not sent.
func (c *Controller) SelectChannel(channel int) error {
	return c.edit(func(w *model.Writer) error {
		if channel < 0 || channel >= len(w.State().Channels) {
			return model.ErrNoSuchChannel
		}
		w.SelectChannel(channel)
		return nil
	})
}
