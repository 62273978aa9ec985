package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Options{Output: &buf, Level: LevelDebug}), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var e map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	return e
}

func TestContextRoundTrip(t *testing.T) {
	l, _ := capture()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContextWithoutLoggerFallsBack(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFieldsAppearInOutput(t *testing.T) {
	l, buf := capture()
	l.With(Component("test")).Info("hello",
		Operation("DoThing"), Latency(250*time.Millisecond))

	e := lastEntry(t, buf)
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "hello", e["message"])

	fields, ok := e["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, "DoThing", fields["operation"])
	assert.Equal(t, "250ms", fields["latency"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelWarn})

	l.Debug("dropped")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
