package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("prod", &buf).Info("payment resolved", "state", "SUCCESSFUL")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "SUCCESSFUL", line["state"])
}

func TestProdLoggerDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("prod", &buf).Debug("response body")
	assert.Empty(t, buf.String())
}

func TestDevLoggerKeepsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("dev", &buf).Debug("response body", "status", 202)
	assert.Contains(t, buf.String(), "status=202")
}
