package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/askdocs/pkg/config"
)

func TestNewLevels(t *testing.T) {
	log := New(config.LogConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	log = New(config.LogConfig{Level: "nonsense", Format: "json"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askdocs.log")
	log := New(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})

	log.WithField("url", "https://example.com").Info("scraped page")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"scraped page"`)
	assert.Contains(t, string(data), `"url":"https://example.com"`)
}
