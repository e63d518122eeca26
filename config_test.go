package mqttlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
client:
  broker: tcp://broker.local:1883
  client_id: sensor-7
  username: user
  password: secret
  keep_alive: 30
  protocol_version: 4
  read_timeout: 500ms
  publish_rate: 5
  publish_burst: 2
  will:
    topic: sensors/7/status
    payload: offline
    qos: 1
    retain: true
limits:
  max_topic: 128
  pending_publishes: 4
log:
  level: debug
  format: json
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.local:1883", cfg.Client.Broker)
	assert.Equal(t, "sensor-7", cfg.Client.ClientID)
	assert.Equal(t, uint16(30), cfg.Client.KeepAlive)
	assert.Equal(t, ProtocolV311, cfg.Client.ProtocolVersion)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.ReadTimeout)
	assert.Equal(t, DefaultPollInterval, cfg.Client.PollInterval)
	require.NotNil(t, cfg.Client.Will)
	assert.Equal(t, "sensors/7/status", cfg.Client.Will.Topic)
	assert.True(t, cfg.Client.Will.Retain)

	assert.Equal(t, 128, cfg.Limits.MaxTopic)
	assert.Equal(t, 4, cfg.Limits.PendingPublishes)
	assert.Equal(t, DefaultLimits().MaxPayload, cfg.Limits.MaxPayload)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("client:\n  client_id: x\n"))
	require.NoError(t, err)

	assert.Equal(t, uint16(60), cfg.Client.KeepAlive)
	assert.Equal(t, ProtocolV5, cfg.Client.ProtocolVersion)
	assert.Equal(t, DefaultReadTimeout, cfg.Client.ReadTimeout)
	assert.Equal(t, DefaultLimits(), cfg.Limits)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, LogFormatConsole, cfg.Log.Format)
	assert.Nil(t, cfg.Client.Will)
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("MQTTLITE_BROKER", "tls://override:8883")
	t.Setenv("MQTTLITE_CLIENT_ID", "from-env")
	t.Setenv("MQTTLITE_USERNAME", "env-user")
	t.Setenv("MQTTLITE_PASSWORD", "env-pass")
	t.Setenv("MQTTLITE_LOG_LEVEL", "warn")

	cfg, err := ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "tls://override:8883", cfg.Client.Broker)
	assert.Equal(t, "from-env", cfg.Client.ClientID)
	assert.Equal(t, "env-user", cfg.Client.Username)
	assert.Equal(t, "env-pass", cfg.Client.Password)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "protocol version", yaml: "client:\n  protocol_version: 3\n"},
		{name: "negative timeout", yaml: "client:\n  read_timeout: -1s\n"},
		{name: "negative rate", yaml: "client:\n  publish_rate: -1\n"},
		{name: "will qos", yaml: "client:\n  will:\n    topic: a\n    qos: 3\n"},
		{name: "will topic", yaml: "client:\n  will:\n    topic: a/+\n"},
		{name: "negative limit", yaml: "limits:\n  max_topic: -5\n"},
		{name: "log level", yaml: "log:\n  level: loud\n"},
		{name: "log format", yaml: "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := ParseConfig([]byte("client: [not a map"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sensor-7", cfg.Client.ClientID)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	o := defaultOptions()
	for _, opt := range cfg.Options() {
		opt(o)
	}

	assert.Equal(t, "sensor-7", o.clientID)
	assert.Equal(t, "user", o.username)
	assert.Equal(t, []byte("secret"), o.password)
	assert.Equal(t, uint16(30), o.keepAlive)
	assert.Equal(t, ProtocolV311, o.protocolVersion)
	assert.Equal(t, 500*time.Millisecond, o.readTimeout)
	assert.Equal(t, "sensors/7/status", o.willTopic)
	assert.Equal(t, []byte("offline"), o.willPayload)
	assert.Equal(t, byte(1), o.willQoS)
	assert.Equal(t, 128, o.limits.MaxTopic)
	require.NotNil(t, o.publishLimiter)
	assert.Equal(t, 2, o.publishLimiter.Burst())
}
