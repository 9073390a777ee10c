package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docsearch/internal/logging"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	entry := logging.NewWithOutput(&buf, "debug", "json")

	entry.WithField("component", "test").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "docsearch", line["service"])
	assert.Equal(t, "test", line["component"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewWithOutput_Levels(t *testing.T) {
	var buf bytes.Buffer

	entry := logging.NewWithOutput(&buf, "warn", "text")
	assert.Equal(t, logrus.WarnLevel, entry.Logger.GetLevel())
	entry.Info("dropped")
	assert.Empty(t, buf.String())

	entry = logging.NewWithOutput(&buf, "bogus", "text")
	assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())
	entry.Info("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "service=docsearch")
}
