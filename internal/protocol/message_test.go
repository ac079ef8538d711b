package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		method  string
		params  int
		wantErr bool
	}{
		{name: "no params", input: `{"method":"loadModel"}`, method: "loadModel"},
		{name: "null params", input: `{"method":"loadModel","params":null}`, method: "loadModel"},
		{name: "with params", input: `{"method":"setHue","params":{"amount":0.5}}`, method: "setHue", params: 1},
		{name: "unknown extra keys", input: `{"method":"x","id":3}`, method: "x"},
		{name: "missing method", input: `{"params":{}}`, wantErr: true},
		{name: "empty method", input: `{"method":""}`, wantErr: true},
		{name: "method not string", input: `{"method":4}`, wantErr: true},
		{name: "params not object", input: `{"method":"x","params":[1]}`, wantErr: true},
		{name: "not an object", input: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNotAMessage)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.method, msg.Method)
			require.Len(t, msg.Params, tt.params)
		})
	}
}

func TestMarshal_Builders(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{LoadModel(), `{"method":"loadModel"}`},
		{GetTimer(), `{"method":"getTimer"}`},
		{SetAutoplay(true), `{"method":"setAutoplay","params":{"autoplay":true}}`},
		{SetBrightness(0.75), `{"method":"setBrightness","params":{"brightness":0.75}}`},
		{SetChannelPattern(1, -1), `{"method":"setChannelPattern","params":{"channelIndex":1,"patternIndex":-1}}`},
		{SetChannelVisibility(2, 0.5), `{"method":"setChannelVisibility","params":{"channelIndex":2,"visibility":0.5}}`},
		{SetActiveColorEffect(3), `{"method":"setActiveColorEffect","params":{"effectIndex":3}}`},
		{SetSpeed(0.1), `{"method":"setSpeed","params":{"amount":0.1}}`},
		{SetSpin(0.2), `{"method":"setSpin","params":{"amount":0.2}}`},
		{SetBlur(0.3), `{"method":"setBlur","params":{"amount":0.3}}`},
		{SetHue(0.4), `{"method":"setHue","params":{"amount":0.4}}`},
		{ResetTimerPause(), `{"method":"resetTimerPause"}`},
		{ResetTimerRun(), `{"method":"resetTimerRun"}`},
		{StartBreak(300), `{"method":"startBreak","params":{"seconds":300}}`},
		{StopBreak(), `{"method":"stopBreak"}`},
	}

	for _, tt := range tests {
		t.Run(tt.msg.Method, func(t *testing.T) {
			data, err := Marshal(tt.msg)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestMessage_String(t *testing.T) {
	require.Equal(t, "loadModel", LoadModel().String())
	require.Equal(t, "setChannelPattern(channelIndex,patternIndex)", SetChannelPattern(0, 1).String())
}
