package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNewWithWriter_AddsServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("eligibility-service", &buf)

	log.Info().Msg("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "eligibility-service", line["service"])
	assert.Equal(t, "hello", line["message"])
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", &buf).
		WithRequestID("req-1").
		WithPartnerKey("partner-a").
		WithCorrelationID("corr-1").
		WithComponent("scoring").
		WithError(errors.New("boom"))

	log.Warn().Msg("x")

	line := decodeLine(t, &buf)
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "partner-a", line["partner_key"])
	assert.Equal(t, "corr-1", line["correlation_id"])
	assert.Equal(t, "scoring", line["component"])
	assert.Equal(t, "boom", line["error"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", &buf).SetLevel("warn")

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Error().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestSetLevel_UnknownKeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", &buf).SetLevel("chatty")

	log.Info().Msg("still here")
	assert.NotZero(t, buf.Len())
}
