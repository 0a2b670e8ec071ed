package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerJSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "pretty"})
	logger.Info("started", "port", 8080)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "started", line["msg"])
	require.NotContains(t, line, "source")
}

func TestLoggerPrettyTextInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "development", LogFormat: "pretty"})
	logger.Info("started")

	out := buf.String()
	require.Contains(t, out, "msg=started")
	require.Contains(t, out, "source=")
}
