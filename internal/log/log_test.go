package log

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func useBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	UseWriter(&buf)
	t.Cleanup(func() { UseWriter(io.Discard) })
	return &buf
}

func TestWrite_FormatsFields(t *testing.T) {
	buf := useBuffer(t)

	Info(CatSession, "connected", "host", "tree.local", "attempt", 3)

	line := buf.String()
	require.Contains(t, line, "[INFO] [session] connected host=tree.local attempt=3\n")
}

func TestWrite_OddFields(t *testing.T) {
	buf := useBuffer(t)

	Warn(CatProtocol, "field rejected", "field")

	require.Contains(t, buf.String(), "field rejected field=<missing>")
}

func TestErrorErr(t *testing.T) {
	buf := useBuffer(t)

	ErrorErr(CatTransport, "dial failed", os.ErrDeadlineExceeded, "host", "x")
	ErrorErr(CatTransport, "no error", nil)

	out := buf.String()
	require.Contains(t, out, "[ERROR] [transport] dial failed host=x error=i/o timeout")
	require.Contains(t, out, "no error error=<nil>")
}

func TestSetMinLevel(t *testing.T) {
	buf := useBuffer(t)
	SetMinLevel(LevelWarn)

	Debug(CatModel, "hidden")
	Info(CatModel, "hidden too")
	Error(CatModel, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestSetEnabled(t *testing.T) {
	buf := useBuffer(t)

	SetEnabled(false)
	Info(CatUI, "muted")
	SetEnabled(true)
	Info(CatUI, "audible")

	require.NotContains(t, buf.String(), "muted")
	require.Contains(t, buf.String(), "audible")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelDebug},
		{"loud", LevelDebug},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
	require.Equal(t, "UNKNOWN", Level(9).String())
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 10, 17, 10, 45, 0, 0, time.UTC)
	got := format(ts, LevelWarn, CatCache, "stale catalog", "age", "2m")
	require.Equal(t, "2026-10-17T10:45:00 [WARN] [cache] stale catalog age=2m\n", got)
}

func TestNewListener_ReceivesEntries(t *testing.T) {
	useBuffer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := current().broker.Subscribe(ctx)
	Info(CatConfig, "reloaded")

	select {
	case ev := <-events:
		require.Contains(t, ev.Payload, "[config] reloaded")
	case <-time.After(time.Second):
		t.Fatal("no log event")
	}
	require.NotNil(t, NewListener(ctx))
}

func TestNewListener_NilBeforeInit(t *testing.T) {
	defaultMu.Lock()
	saved := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLogger = saved
		defaultMu.Unlock()
	})

	require.Nil(t, NewListener(context.Background()))
	Info(CatUI, "dropped")
}

func TestInit_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	cleanup, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(func() { UseWriter(io.Discard) })

	Info(CatWatcher, "watching config")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[watcher] watching config")
}

func TestInit_BadPath(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing", "debug.log"))
	require.Error(t, err)
}
