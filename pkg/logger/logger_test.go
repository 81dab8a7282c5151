package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cases := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"mixed case", "WARN", zerolog.WarnLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
		{"unknown falls back to info", "chatty", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.want, zerolog.GlobalLevel())
		})
	}
}

func TestNewRespectsLevelFilter(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	log := New(Config{Level: "error"}).Output(&buf)

	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNewPrettyOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	log := New(Config{Level: "info", Pretty: true}).Output(&buf)
	log.Info().Str("key", "value").Msg("pretty line")

	assert.Contains(t, buf.String(), "pretty line")
}

func TestSetGlobalLogger(t *testing.T) {
	orig := log.Logger
	defer SetGlobalLogger(orig)

	var buf bytes.Buffer
	SetGlobalLogger(zerolog.New(&buf))
	log.Info().Msg("routed through the global")

	assert.Contains(t, buf.String(), "routed through the global")
}

func TestComponentTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	comp := Component(base, "riskmodel")
	comp.Info().Msg("model ready")

	assert.Contains(t, buf.String(), `"component":"riskmodel"`)
	assert.Contains(t, buf.String(), "model ready")
}
