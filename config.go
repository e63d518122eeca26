package mqttlite

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the file form of the client configuration.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Limits Limits       `yaml:"limits"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig holds connection settings.
type ClientConfig struct {
	// Broker is the URL passed to DialStream, e.g. tcp://broker:1883.
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	KeepAlive       uint16        `yaml:"keep_alive"`
	ProtocolVersion byte          `yaml:"protocol_version"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	Will            *WillConfig   `yaml:"will"`

	// PublishRate is the publish limit per second; zero disables it.
	PublishRate  float64 `yaml:"publish_rate"`
	PublishBurst int     `yaml:"publish_burst"`
}

// WillConfig holds the will message.
type WillConfig struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	QoS     byte   `yaml:"qos"`
	Retain  bool   `yaml:"retain"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			KeepAlive:       60,
			ProtocolVersion: ProtocolV5,
			ReadTimeout:     DefaultReadTimeout,
			PollInterval:    DefaultPollInterval,
		},
		Limits: DefaultLimits(),
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatConsole,
		},
	}
}

// LoadConfig reads a YAML file, applies environment overrides and validates
// the result. Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for YAML already in memory.
func ParseConfig(data []byte) (*Config, error) {
	cfg := defaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Limits = cfg.Limits.WithDefaults()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MQTTLITE_BROKER"); v != "" {
		cfg.Client.Broker = v
	}
	if v := os.Getenv("MQTTLITE_CLIENT_ID"); v != "" {
		cfg.Client.ClientID = v
	}
	if v := os.Getenv("MQTTLITE_USERNAME"); v != "" {
		cfg.Client.Username = v
	}
	if v := os.Getenv("MQTTLITE_PASSWORD"); v != "" {
		cfg.Client.Password = v
	}
	if v := os.Getenv("MQTTLITE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Client.ProtocolVersion {
	case ProtocolV311, ProtocolV5:
	default:
		return fmt.Errorf("%w: protocol_version must be 4 or 5, got %d", ErrInvalidConfig, c.Client.ProtocolVersion)
	}

	if c.Client.ReadTimeout < 0 || c.Client.PollInterval < 0 {
		return fmt.Errorf("%w: negative read timing", ErrInvalidConfig)
	}
	if c.Client.PublishRate < 0 || c.Client.PublishBurst < 0 {
		return fmt.Errorf("%w: negative publish rate", ErrInvalidConfig)
	}

	if w := c.Client.Will; w != nil {
		if w.QoS > 2 {
			return fmt.Errorf("%w: will qos %d", ErrInvalidConfig, w.QoS)
		}
		if err := ValidateTopicName(w.Topic); err != nil {
			return fmt.Errorf("%w: will topic: %w", ErrInvalidConfig, err)
		}
	}

	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "", LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// Options converts the configuration into client options. The logger is
// not included; build one from Log with the logging extension.
func (c *Config) Options() []Option {
	cc := c.Client
	opts := []Option{
		WithClientID(cc.ClientID),
		WithKeepAlive(cc.KeepAlive),
		WithProtocolVersion(cc.ProtocolVersion),
		WithReadTimeout(cc.ReadTimeout),
		WithPollInterval(cc.PollInterval),
		WithLimits(c.Limits),
	}
	if cc.Username != "" || cc.Password != "" {
		opts = append(opts, WithCredentials(cc.Username, cc.Password))
	}
	if w := cc.Will; w != nil {
		opts = append(opts, WithWill(w.Topic, []byte(w.Payload), w.QoS, w.Retain))
	}
	if cc.PublishRate > 0 {
		opts = append(opts, WithPublishRateLimit(rate.Limit(cc.PublishRate), cc.PublishBurst))
	}
	return opts
}
