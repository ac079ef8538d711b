package session

import (
	"context"
	"errors"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/protocol"
	"github.com/entwined/remote/internal/tracing"
)

func (c *Controller) receive(attempt string, msg protocol.Message) {
	if msg.Params == nil {
		log.Debug(log.CatProtocol, "ignoring message without params", "method", msg.Method)
		return
	}

	switch msg.Method {
	case protocol.MethodModel:
		c.applyModel(attempt, msg)
	case protocol.MethodPauseTimer:
		c.applyPauseTimer(attempt, msg)
	default:
		log.Debug(log.CatProtocol, "ignoring unknown method", "method", msg.Method)
	}
}

func (c *Controller) applyModel(attempt string, msg protocol.Message) {
	payload, err := protocol.DecodeModel(msg.Params)
	rejected := rejectedFields(err)
	if err != nil {
		log.Warn(log.CatProtocol, "skipping invalid model fields", "fields", rejected, "error", err)
	}

	changes := c.model.Sync(func(w *model.Writer) {
		applyModelFields(w, payload)
		w.SelectChannel(0)
		w.SetLoaded(true)
	})
	log.Debug(log.CatSession, "model synced", "changes", len(changes))
	tracing.RecordSync(c.tracer, attempt, msg.Method, len(changes), rejected, err)

	if payload.HasChannels || payload.HasColorEffects {
		c.catalogs.Remember(context.Background(), c.opts.Hostname, c.model.Snapshot(), c.clock.Now())
	}
}

func (c *Controller) applyPauseTimer(attempt string, msg protocol.Message) {
	payload, err := protocol.DecodeTimer(msg.Params)
	rejected := rejectedFields(err)
	if err != nil {
		log.Warn(log.CatProtocol, "skipping invalid timer fields", "fields", rejected, "error", err)
	}

	changes := c.model.Sync(func(w *model.Writer) {
		applyTimerFields(w, payload)
	})
	tracing.RecordSync(c.tracer, attempt, msg.Method, len(changes), rejected, err)
}

// applyModelFields writes every decoded field. Absent fields keep their
// current values.
func applyModelFields(w *model.Writer, p protocol.ModelPayload) {
	if p.Autoplay != nil {
		w.SetAutoplay(*p.Autoplay)
	}
	if p.Brightness != nil {
		w.SetBrightness(*p.Brightness)
	}
	if p.HasColorEffects {
		w.SetColorEffects(p.ColorEffects)
	}
	if p.HasChannels {
		w.SetChannels(p.Channels)
	}
	if p.ActiveColorEffectIndex != nil {
		w.SetActiveColorEffectIndex(*p.ActiveColorEffectIndex)
	}
	if p.Speed != nil {
		w.SetSpeed(*p.Speed)
	}
	if p.Spin != nil {
		w.SetSpin(*p.Spin)
	}
	if p.Blur != nil {
		w.SetBlur(*p.Blur)
	}
	if p.Hue != nil {
		w.SetHue(*p.Hue)
	}
	if p.PauseTimer != nil {
		applyTimerFields(w, *p.PauseTimer)
	}
}

func applyTimerFields(w *model.Writer, p protocol.TimerPayload) {
	if p.RunSeconds != nil {
		w.SetRunSeconds(*p.RunSeconds)
	}
	if p.PauseSeconds != nil {
		w.SetPauseSeconds(*p.PauseSeconds)
	}
	if p.TimeRemaining != nil {
		w.SetTimeRemaining(*p.TimeRemaining)
	}
	if p.State != nil {
		w.SetTimerState(*p.State)
	}
}

func rejectedFields(err error) []string {
	var derr protocol.DecodeErrors
	if errors.As(err, &derr) {
		return derr.Fields()
	}
	return nil
}
