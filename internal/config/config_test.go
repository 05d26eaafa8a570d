package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "unii:\n  host: 192.168.1.10\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.UNii.Host)
	assert.Equal(t, 6502, cfg.UNii.Port)
	assert.Equal(t, "standard", cfg.UNii.Variant)
	assert.False(t, cfg.UNii.SkipCRCCheck)
	assert.Equal(t, "unii2mqtt", cfg.MQTT.ClientID)
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, 60, cfg.MQTT.Keepalive)
	assert.Equal(t, "unii2mqtt", cfg.MQTT.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Listen)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
unii:
  host: panel.local
  port: 7000
  shared_key: secret123
  user_code: "1234"
  variant: legacy
  skip_crc_check: true
mqtt:
  host: broker.local
  port: 8883
  username: alarm
  password: hunter2
  qos: 1
  retain: true
  prefix: alarm
metrics:
  listen: ":9641"
log:
  level: debug
  file: /var/log/unii2mqtt.log
cache: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "panel.local", cfg.UNii.Host)
	assert.Equal(t, 7000, cfg.UNii.Port)
	assert.Equal(t, "secret123", cfg.UNii.SharedKey)
	assert.Equal(t, "1234", cfg.UNii.UserCode)
	assert.Equal(t, "legacy", cfg.UNii.Variant)
	assert.True(t, cfg.UNii.SkipCRCCheck)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, 1, cfg.MQTT.QOS)
	assert.True(t, cfg.MQTT.Retain)
	assert.Equal(t, "alarm", cfg.MQTT.Prefix)
	assert.Equal(t, ":9641", cfg.Metrics.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/unii2mqtt.log", cfg.Log.File)
	assert.True(t, cfg.Cache)
}

func TestLoadConfigRejectsUnknownVariant(t *testing.T) {
	path := writeConfig(t, "unii:\n  host: panel.local\n  variant: ancient\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unii.variant")
}

func TestLoadConfigMissingHost(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  host: broker.local\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unii.host is required")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "unii: [not a map\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}
