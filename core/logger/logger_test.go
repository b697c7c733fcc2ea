package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := L
	L = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { L = prev })
	return &buf
}

func TestEventAppendsContextCorrelation(t *testing.T) {
	buf := captureLogger(t)

	ctx := WithUserID(WithRID(context.Background(), "42:9:7"), 7)
	Info(ctx, "dialog", "transition.commit", slog.String("state", "authenticated_idle"))

	out := buf.String()
	assert.Contains(t, out, `"component":"dialog"`)
	assert.Contains(t, out, `"event":"transition.commit"`)
	assert.Contains(t, out, `"rid":"42:9:7"`)
	assert.Contains(t, out, `"user_id":7`)
}

func TestEventWithoutCorrelationOmitsFields(t *testing.T) {
	buf := captureLogger(t)

	Warn(context.Background(), "gateway", "api.call", slog.String("op", "verify_identity"))

	out := buf.String()
	assert.Contains(t, out, `"op":"verify_identity"`)
	assert.NotContains(t, out, `"rid"`)
	assert.NotContains(t, out, `"user_id"`)
}

func TestEventBeforeInitIsNoop(t *testing.T) {
	prev := L
	L = nil
	t.Cleanup(func() { L = prev })

	// Must not panic with no configured handler.
	Error(context.Background(), "tg", "tg.panic")
}
