package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("NATS_URL", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, time.Second, cfg.ResyncDelay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trafficdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://signals.example.com
transport: nats
nats_subject: city.lights
reconnect_delay: 5s
tick_interval: 250ms
log_level: debug
`), 0o600))

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("TRAFFICDASH_RESYNC_DELAY", "1500")
	t.Setenv("TRAFFICDASH_LISTEN_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://signals.example.com", cfg.ServerURL)
	assert.Equal(t, TransportNATS, cfg.Transport)
	assert.Equal(t, "city.lights", cfg.NATSSubject)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.ResyncDelay)
	assert.Equal(t, ":9090", cfg.ListenAddr)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad url", func(c *Config) { c.ServerURL = "localhost:8000" }},
		{"bad transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"nats without subject", func(c *Config) { c.Transport = TransportNATS; c.NATSSubject = "" }},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"read timeout below ping", func(c *Config) { c.ReadTimeout = c.PingInterval }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
