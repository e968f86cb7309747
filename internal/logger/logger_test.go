package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	require.Contains(t, buf.String(), "test message")
}

func TestNewFromConfig(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, NewFromConfig("DEBUG", "json").GetLevel())
	require.Equal(t, zerolog.InfoLevel, NewFromConfig("chatty", "console").GetLevel())
	require.Equal(t, zerolog.InfoLevel, NewFromConfig("", "console").GetLevel())
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	fromCtx := FromContext(ctx)
	fromCtx.Info().Msg("test")

	require.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLoggerIsSilent(t *testing.T) {
	log := FromContext(context.Background())
	require.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"run_id": "123",
		"mode":   "preview",
	})
	log.Info().Msg("test message")

	out := buf.String()
	require.Contains(t, out, `"run_id":"123"`)
	require.Contains(t, out, `"mode":"preview"`)
}
