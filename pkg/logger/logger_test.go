package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Output: &buf})

	logger.Info().Str("run_id", "abc").Msg("pipeline finished")

	assert.Contains(t, buf.String(), "pipeline finished")
	assert.Contains(t, buf.String(), `"run_id":"abc"`)
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"uppercase warn", "WARN", zerolog.WarnLevel},
		{"error with spaces", " error ", zerolog.ErrorLevel},
		{"trace", "trace", zerolog.TraceLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
		{"unknown defaults to info", "chatty", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.level))
		})
	}
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	New(Config{Level: "error", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestNew_ErrorLevelFiltersLower(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := New(Config{Level: "error", Output: &buf})

	logger.Info().Msg("should not appear")
	assert.NotContains(t, buf.String(), "should not appear")

	logger.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Msg("pretty message")

	assert.Contains(t, buf.String(), "pretty message")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := Component(base, "pipeline")
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"pipeline"`)
}

func TestSetGlobalLogger(t *testing.T) {
	previous := log.Logger
	defer func() { log.Logger = previous }()

	var buf bytes.Buffer
	SetGlobalLogger(zerolog.New(&buf))
	log.Info().Msg("through the global logger")

	assert.Contains(t, buf.String(), "through the global logger")
}
