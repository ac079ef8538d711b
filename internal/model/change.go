package model

// Field names one observable property of the model.
type Field string

const (
	FieldLoaded                 Field = "loaded"
	FieldConnection             Field = "connection"
	FieldAutoplay               Field = "autoplay"
	FieldBrightness             Field = "brightness"
	FieldChannels               Field = "channels"
	FieldChannelPattern         Field = "channelPattern"
	FieldChannelVisibility      Field = "channelVisibility"
	FieldSelectedChannel        Field = "selectedChannel"
	FieldColorEffects           Field = "colorEffects"
	FieldActiveColorEffectIndex Field = "activeColorEffectIndex"
	FieldSpeed                  Field = "speed"
	FieldSpin                   Field = "spin"
	FieldBlur                   Field = "blur"
	FieldHue                    Field = "hue"
	FieldRunSeconds             Field = "runSeconds"
	FieldPauseSeconds           Field = "pauseSeconds"
	FieldTimeRemaining          Field = "timeRemaining"
	FieldTimerState             Field = "timerState"
	FieldBreakEndsAt            Field = "breakEndsAt"
)

// Origin says which transaction scope produced a change.
type Origin int

const (
	// OriginSync changes mirror server state and are never sent back.
	OriginSync Origin = iota
	// OriginLocal changes are interactive edits to be forwarded.
	OriginLocal
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "sync"
}

// Change describes one committed mutation.
//
// Channel is the channel position for per-channel fields and -1 otherwise.
// Value holds the committed value: bool, float64, int, TimerState,
// Connection, time.Time, or nil for catalog replacements. For
// FieldChannelPattern it is the pattern's server index (NoPattern for none);
// for FieldChannelVisibility it is the visibility.
type Change struct {
	Field   Field
	Origin  Origin
	Channel int
	Value   any
}

// Float returns Value as a float64 and whether it was one.
func (c Change) Float() (float64, bool) {
	v, ok := c.Value.(float64)
	return v, ok
}

// Int returns Value as an int and whether it was one.
func (c Change) Int() (int, bool) {
	v, ok := c.Value.(int)
	return v, ok
}

// Bool returns Value as a bool and whether it was one.
func (c Change) Bool() (bool, bool) {
	v, ok := c.Value.(bool)
	return v, ok
}
