package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
gateway:
  address: "192.168.1.10"
  identity: "user1545000000"
  psk: "s3cret"
  request_timeout: 5
bridge:
  skip_groups: true
  observe: false
logging:
  level: debug
http:
  address: ":7995"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.Gateway.Address)
	assert.True(t, cfg.Gateway.HasCredentials())
	assert.Equal(t, 5*time.Second, cfg.Gateway.GetRequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.Gateway.GetAuthTimeout())
	assert.Equal(t, 15*time.Second, cfg.Gateway.GetDiscoveryTimeout())
	assert.True(t, cfg.Bridge.SkipGroups)
	assert.False(t, cfg.Bridge.Observe)
	assert.Equal(t, logging.LogLevelDebug, cfg.Logging.LogLevel())
	assert.Equal(t, ":7995", cfg.HTTP.Address)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "gateway:\n  code: \"abcd1234efgh5678\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Gateway.Address)
	assert.False(t, cfg.Gateway.HasCredentials())
	assert.True(t, cfg.Bridge.Observe)
	assert.Equal(t, logging.LogLevelInfo, cfg.Logging.LogLevel())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "gateway: [unclosed"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRADFRIGW_GATEWAY_ADDRESS", "10.0.0.2:5684")
	t.Setenv("TRADFRIGW_GATEWAY_IDENTITY", "user1")
	t.Setenv("TRADFRIGW_GATEWAY_PSK", "from-env")
	t.Setenv("TRADFRIGW_GATEWAY_CODE", "")

	cfg, err := Load(writeConfig(t, "gateway:\n  identity: \"user0\"\n  psk: \"from-file\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:5684", cfg.Gateway.Address)
	assert.Equal(t, "user1", cfg.Gateway.Identity)
	assert.Equal(t, "from-env", cfg.Gateway.PSK)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("TRADFRIGW_GATEWAY_CODE", "abcd1234efgh5678")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234efgh5678", cfg.Gateway.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"code only", func(c *Config) { c.Gateway.Code = "x" }, ""},
		{"credentials only", func(c *Config) { c.Gateway.Identity, c.Gateway.PSK = "u", "k" }, ""},
		{"nothing", func(c *Config) {}, "gateway.code or gateway.identity"},
		{"identity without psk", func(c *Config) { c.Gateway.Identity = "u" }, "gateway.psk is required"},
		{"psk without identity", func(c *Config) { c.Gateway.PSK = "k"; c.Gateway.Code = "x" }, "gateway.identity is required"},
		{"zero auth timeout", func(c *Config) { c.Gateway.Code = "x"; c.Gateway.AuthTimeout = 0 }, "auth_timeout"},
		{"negative request timeout", func(c *Config) { c.Gateway.Code = "x"; c.Gateway.RequestTimeout = -1 }, "request_timeout"},
		{"unbounded requests", func(c *Config) { c.Gateway.Code = "x"; c.Gateway.RequestTimeout = 0 }, ""},
		{"bad level", func(c *Config) { c.Gateway.Code = "x"; c.Logging.Level = "loud" }, "logging.level"},
		{"level case", func(c *Config) { c.Gateway.Code = "x"; c.Logging.Level = "WARN" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
