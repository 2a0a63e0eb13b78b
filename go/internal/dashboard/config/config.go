package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config is the dashboard client configuration
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	Transport      string        `yaml:"transport"`
	NATSURL        string        `yaml:"nats_url"`
	NATSSubject    string        `yaml:"nats_subject"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	ResyncDelay    time.Duration `yaml:"resync_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ServerURL:      "http://localhost:8000",
		Transport:      TransportWebSocket,
		NATSURL:        "nats://localhost:4222",
		NATSSubject:    "traffic.lights.state",
		ReconnectDelay: 3 * time.Second,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		TickInterval:   100 * time.Millisecond,
		ResyncDelay:    time.Second,
		RequestTimeout: 10 * time.Second,
		ListenAddr:     "",
		LogLevel:       "info",
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ServerURL = getEnv("TRAFFICDASH_SERVER_URL", c.ServerURL)
	c.Transport = getEnv("TRAFFICDASH_TRANSPORT", c.Transport)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSSubject = getEnv("TRAFFICDASH_NATS_SUBJECT", c.NATSSubject)
	c.ReconnectDelay = getEnvAsDuration("TRAFFICDASH_RECONNECT_DELAY", c.ReconnectDelay)
	c.PingInterval = getEnvAsDuration("TRAFFICDASH_PING_INTERVAL", c.PingInterval)
	c.ReadTimeout = getEnvAsDuration("TRAFFICDASH_READ_TIMEOUT", c.ReadTimeout)
	c.TickInterval = getEnvAsDuration("TRAFFICDASH_TICK_INTERVAL", c.TickInterval)
	c.ResyncDelay = getEnvAsDuration("TRAFFICDASH_RESYNC_DELAY", c.ResyncDelay)
	c.RequestTimeout = getEnvAsDuration("TRAFFICDASH_REQUEST_TIMEOUT", c.RequestTimeout)
	c.ListenAddr = getEnv("TRAFFICDASH_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL)
	}

	switch c.Transport {
	case TransportWebSocket:
	case TransportNATS:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return errors.New("nats transport requires nats_url and nats_subject")
		}
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportWebSocket, TransportNATS, c.Transport)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"reconnect_delay", c.ReconnectDelay},
		{"ping_interval", c.PingInterval},
		{"read_timeout", c.ReadTimeout},
		{"tick_interval", c.TickInterval},
		{"resync_delay", c.ResyncDelay},
		{"request_timeout", c.RequestTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.ReadTimeout <= c.PingInterval {
		return fmt.Errorf("read_timeout (%s) must exceed ping_interval (%s)", c.ReadTimeout, c.PingInterval)
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// bare numbers are milliseconds
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
