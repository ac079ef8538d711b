// Package protocol defines the JSON messages exchanged with the lighting
// server: a required "method" string and an optional "params" object.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Inbound methods.
const (
	MethodModel      = "model"
	MethodPauseTimer = "pauseTimer"
)

// Outbound methods.
const (
	MethodLoadModel            = "loadModel"
	MethodGetTimer             = "getTimer"
	MethodSetAutoplay          = "setAutoplay"
	MethodSetBrightness        = "setBrightness"
	MethodSetChannelPattern    = "setChannelPattern"
	MethodSetChannelVisibility = "setChannelVisibility"
	MethodSetActiveColorEffect = "setActiveColorEffect"
	MethodSetSpeed             = "setSpeed"
	MethodSetSpin              = "setSpin"
	MethodSetBlur              = "setBlur"
	MethodSetHue               = "setHue"
	MethodResetTimerPause      = "resetTimerPause"
	MethodResetTimerRun        = "resetTimerRun"
	MethodStartBreak           = "startBreak"
	MethodStopBreak            = "stopBreak"
)

// ErrNotAMessage is returned for JSON values that are not method objects.
var ErrNotAMessage = errors.New("not a method message")

// Params holds the undecoded value of each parameter so fields can be
// decoded and rejected one at a time.
type Params map[string]json.RawMessage

// Message is one unit on the wire.
type Message struct {
	Method string `json:"method"`
	Params Params `json:"params,omitempty"`
}

// Has reports whether the message carries parameter key.
func (m Message) Has(key string) bool {
	_, ok := m.Params[key]
	return ok
}

// Parse decodes one JSON value into a Message. The value must be an object
// with a non-empty string method; params, when present, must be an object.
func Parse(data []byte) (Message, error) {
	var raw struct {
		Method *string         `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrNotAMessage, err)
	}
	if raw.Method == nil || *raw.Method == "" {
		return Message{}, fmt.Errorf("%w: missing method", ErrNotAMessage)
	}
	msg := Message{Method: *raw.Method}
	if len(raw.Params) == 0 || string(raw.Params) == "null" {
		return msg, nil
	}
	if err := json.Unmarshal(raw.Params, &msg.Params); err != nil {
		return Message{}, fmt.Errorf("%w: params of %s: %v", ErrNotAMessage, msg.Method, err)
	}
	return msg, nil
}

// Marshal encodes m for the wire.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func (m Message) String() string {
	if len(m.Params) == 0 {
		return m.Method
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return m.Method + "(" + strings.Join(keys, ",") + ")"
}

type param struct {
	key   string
	value any
}

func newMessage(method string, params ...param) Message {
	msg := Message{Method: method}
	if len(params) == 0 {
		return msg
	}
	msg.Params = make(Params, len(params))
	for _, p := range params {
		// Values are bools, ints and finite floats, which always encode.
		data, _ := json.Marshal(p.value)
		msg.Params[p.key] = data
	}
	return msg
}

// LoadModel requests a full model sync.
func LoadModel() Message { return newMessage(MethodLoadModel) }

// GetTimer requests a pause timer refresh.
func GetTimer() Message { return newMessage(MethodGetTimer) }

// SetAutoplay toggles server-driven mode.
func SetAutoplay(on bool) Message {
	return newMessage(MethodSetAutoplay, param{"autoplay", on})
}

// SetBrightness sets global brightness.
func SetBrightness(v float64) Message {
	return newMessage(MethodSetBrightness, param{"brightness", v})
}

// SetChannelPattern selects a pattern by server index, -1 for none.
func SetChannelPattern(channelIndex, patternIndex int) Message {
	return newMessage(MethodSetChannelPattern,
		param{"channelIndex", channelIndex}, param{"patternIndex", patternIndex})
}

// SetChannelVisibility sets a channel's blend.
func SetChannelVisibility(channelIndex int, visibility float64) Message {
	return newMessage(MethodSetChannelVisibility,
		param{"channelIndex", channelIndex}, param{"visibility", visibility})
}

// SetActiveColorEffect selects a color effect, -1 for none.
func SetActiveColorEffect(effectIndex int) Message {
	return newMessage(MethodSetActiveColorEffect, param{"effectIndex", effectIndex})
}

// SetSpeed sets the speed amount.
func SetSpeed(amount float64) Message {
	return newMessage(MethodSetSpeed, param{"amount", amount})
}

// SetSpin sets the spin amount.
func SetSpin(amount float64) Message {
	return newMessage(MethodSetSpin, param{"amount", amount})
}

// SetBlur sets the blur amount.
func SetBlur(amount float64) Message {
	return newMessage(MethodSetBlur, param{"amount", amount})
}

// SetHue sets the hue amount.
func SetHue(amount float64) Message {
	return newMessage(MethodSetHue, param{"amount", amount})
}

// ResetTimerPause restarts the pause phase.
func ResetTimerPause() Message { return newMessage(MethodResetTimerPause) }

// ResetTimerRun restarts the run phase.
func ResetTimerRun() Message { return newMessage(MethodResetTimerRun) }

// StartBreak blacks out the rig for seconds.
func StartBreak(seconds float64) Message {
	return newMessage(MethodStartBreak, param{"seconds", seconds})
}

// StopBreak ends a running break.
func StopBreak() Message { return newMessage(MethodStopBreak) }
