package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/entwined/remote/internal/model"
)

var (
	// ErrNull is returned for a parameter that is present but null.
	ErrNull = errors.New("null value")
	// ErrNotInteger is returned when a number with a fractional part is
	// given where an integer is expected.
	ErrNotInteger = errors.New("not an integer")
	// ErrPatternIndex is returned when a channel's current pattern index
	// does not exist in the catalog it resolves into.
	ErrPatternIndex = errors.New("current pattern index outside catalog")
	// ErrMasterChannel is returned when channel index 0, which owns the
	// pattern catalog, is not the first entry of the channel list.
	ErrMasterChannel = errors.New("channel 0 must come first")
)

var validate = validator.New()

// FieldError records why one parameter was skipped.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error { return e.Err }

// DecodeErrors collects the fields of one message that failed to decode.
// Decoding continues past a bad field, so the payload returned alongside
// is still usable.
type DecodeErrors []FieldError

func (e DecodeErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "decode: " + strings.Join(parts, "; ")
}

// Fields returns the names of the rejected fields.
func (e DecodeErrors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

func (e DecodeErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// TimerPayload is a decoded pause timer update. Nil fields were absent or
// rejected.
type TimerPayload struct {
	RunSeconds    *float64
	PauseSeconds  *float64
	TimeRemaining *float64
	State         *model.TimerState
}

// Empty reports whether no field decoded.
func (p TimerPayload) Empty() bool {
	return p.RunSeconds == nil && p.PauseSeconds == nil && p.TimeRemaining == nil && p.State == nil
}

// ModelPayload is a decoded full sync. Nil fields were absent or rejected.
type ModelPayload struct {
	Autoplay               *bool
	Brightness             *float64
	ColorEffects           []model.Effect
	HasColorEffects        bool
	Channels               []model.Channel
	HasChannels            bool
	ActiveColorEffectIndex *int
	Speed                  *float64
	Spin                   *float64
	Blur                   *float64
	Hue                    *float64
	PauseTimer             *TimerPayload
}

// DecodeTimer decodes the parameters of a pauseTimer message, or the
// pauseTimer object inside a model message.
func DecodeTimer(params Params) (TimerPayload, error) {
	var (
		out  TimerPayload
		errs DecodeErrors
	)
	decodeTimerInto(params, "", &out, &errs)
	return out, errs.orNil()
}

func decodeTimerInto(params Params, prefix string, out *TimerPayload, errs *DecodeErrors) {
	fail := func(key string, err error) {
		*errs = append(*errs, FieldError{Field: prefix + key, Err: err})
	}
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"runSeconds", &out.RunSeconds},
		{"pauseSeconds", &out.PauseSeconds},
		{"timeRemaining", &out.TimeRemaining},
	} {
		raw, ok := params[f.key]
		if !ok {
			continue
		}
		v, err := decodeFloat(raw)
		if err != nil {
			fail(f.key, err)
			continue
		}
		*f.dst = &v
	}

	if raw, ok := params["state"]; ok {
		var s string
		if err := decodeStrict(raw, &s); err != nil {
			fail("state", err)
		} else if err := validate.Var(s, "oneof=run pause"); err != nil {
			fail("state", fmt.Errorf("unknown timer state %q", s))
		} else {
			st := model.TimerState(s)
			out.State = &st
		}
	}
}

// DecodeModel decodes the parameters of a model message. Every field is
// decoded independently; the returned payload holds the ones that
// succeeded and the error, if non-nil, is a DecodeErrors naming the rest.
func DecodeModel(params Params) (ModelPayload, error) {
	var (
		out  ModelPayload
		errs DecodeErrors
	)
	fail := func(key string, err error) {
		errs = append(errs, FieldError{Field: key, Err: err})
	}

	if raw, ok := params["autoplay"]; ok {
		var b bool
		if err := decodeStrict(raw, &b); err != nil {
			fail("autoplay", err)
		} else {
			out.Autoplay = &b
		}
	}

	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"brightness", &out.Brightness},
		{"speed", &out.Speed},
		{"spin", &out.Spin},
		{"blur", &out.Blur},
		{"hue", &out.Hue},
	} {
		raw, ok := params[f.key]
		if !ok {
			continue
		}
		v, err := decodeFloat(raw)
		if err != nil {
			fail(f.key, err)
			continue
		}
		*f.dst = &v
	}

	if raw, ok := params["activeColorEffectIndex"]; ok {
		var i wireInt
		if err := decodeStrict(raw, &i); err != nil {
			fail("activeColorEffectIndex", err)
		} else if err := validate.Var(int(i), "min=-1"); err != nil {
			fail("activeColorEffectIndex", fmt.Errorf("index %d below -1", i))
		} else {
			v := int(i)
			out.ActiveColorEffectIndex = &v
		}
	}

	if raw, ok := params["colorEffects"]; ok {
		effects, err := decodeEffects(raw)
		if err != nil {
			fail("colorEffects", err)
		} else {
			out.ColorEffects = effects
			out.HasColorEffects = true
		}
	}

	if raw, ok := params["channels"]; ok {
		channels, err := decodeChannels(raw)
		if err != nil {
			fail("channels", err)
		} else {
			out.Channels = channels
			out.HasChannels = true
		}
	}

	if raw, ok := params["pauseTimer"]; ok {
		var sub Params
		if err := decodeStrict(raw, &sub); err != nil {
			fail("pauseTimer", err)
		} else {
			var pt TimerPayload
			decodeTimerInto(sub, "pauseTimer.", &pt, &errs)
			out.PauseTimer = &pt
		}
	}

	return out, errs.orNil()
}

type namedEntry struct {
	Index *wireInt `json:"index" validate:"required"`
	Name  *string  `json:"name" validate:"required"`
}

type channelEntry struct {
	Index               *wireInt     `json:"index" validate:"required,min=0"`
	CurrentPatternIndex *wireInt     `json:"currentPatternIndex" validate:"required,min=-1"`
	Visibility          *float64     `json:"visibility"`
	Patterns            []namedEntry `json:"patterns" validate:"required,dive"`
}

func decodeEffects(raw json.RawMessage) ([]model.Effect, error) {
	var entries []namedEntry
	if err := decodeStrict(raw, &entries); err != nil {
		return nil, err
	}
	effects := make([]model.Effect, 0, len(entries))
	for i := range entries {
		if err := validate.Struct(&entries[i]); err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		effects = append(effects, model.Effect{Index: int(*entries[i].Index), Name: *entries[i].Name})
	}
	return effects, nil
}

// decodeChannels parses the channel list and resolves each current pattern.
// Channel 0 resolves into its own list; every other channel resolves into
// channel 0's list, which must head the list. A bad entry rejects the list.
func decodeChannels(raw json.RawMessage) ([]model.Channel, error) {
	var entries []channelEntry
	if err := decodeStrict(raw, &entries); err != nil {
		return nil, err
	}
	channels := make([]model.Channel, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		if *e.Index == 0 && i > 0 {
			return nil, fmt.Errorf("channel %d: %w", i, ErrMasterChannel)
		}
		ch := model.Channel{
			Index:      int(*e.Index),
			Patterns:   make([]model.Pattern, len(e.Patterns)),
			Visibility: 1,
		}
		for j, p := range e.Patterns {
			ch.Patterns[j] = model.Pattern{Index: int(*p.Index), Name: *p.Name}
		}
		if e.Visibility != nil {
			ch.Visibility = *e.Visibility
		}

		cur := int(*e.CurrentPatternIndex)
		if cur != model.NoPattern {
			catalog := ch.Patterns
			if ch.Index != 0 {
				if len(channels) == 0 || channels[0].Index != 0 {
					return nil, fmt.Errorf("channel %d: %w", i, ErrMasterChannel)
				}
				catalog = channels[0].Patterns
			}
			if cur >= len(catalog) {
				return nil, fmt.Errorf("channel %d: %w: %d of %d", i, ErrPatternIndex, cur, len(catalog))
			}
			p := catalog[cur]
			ch.CurrentPattern = &p
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// decodeStrict unmarshals raw into dst, rejecting null.
func decodeStrict(raw json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return ErrNull
	}
	return json.Unmarshal(raw, dst)
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := decodeStrict(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// wireInt accepts integral JSON numbers in any notation, such as 2 or 2.0.
type wireInt int

func (i *wireInt) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%w: %v", ErrNotInteger, f)
	}
	*i = wireInt(f)
	return nil
}
