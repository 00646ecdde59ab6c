// Package config loads the configuration of the tradfrigw command.
//
// Values are read from a YAML file and can be overridden by environment
// variables, which is the preferred way of passing the gateway key:
//
//	TRADFRIGW_GATEWAY_ADDRESS
//	TRADFRIGW_GATEWAY_IDENTITY
//	TRADFRIGW_GATEWAY_PSK
//	TRADFRIGW_GATEWAY_CODE
//
// The configuration is never written back. After pairing with a security
// code the issued key is logged once and has to be stored by the operator.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// GatewayConfig selects the gateway and how to authenticate with it. An
// empty address means the gateway is discovered over mDNS.
type GatewayConfig struct {
	Address  string `yaml:"address"`
	Identity string `yaml:"identity"`
	PSK      string `yaml:"psk"`
	Code     string `yaml:"code"`

	// Timeouts in seconds. Zero disables the request timeout.
	DiscoveryTimeout int `yaml:"discovery_timeout"`
	AuthTimeout      int `yaml:"auth_timeout"`
	RequestTimeout   int `yaml:"request_timeout"`
}

type BridgeConfig struct {
	SkipGroups bool `yaml:"skip_groups"`
	SkipBulbs  bool `yaml:"skip_bulbs"`
	Observe    bool `yaml:"observe"`
}

type LoggingConfig struct {
	// Level is one of error, warn, info, debug or trace.
	Level string `yaml:"level"`
}

// HTTPConfig enables the status page when Address is set.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// Load reads the file at path on top of the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			DiscoveryTimeout: 15,
			AuthTimeout:      10,
			RequestTimeout:   10,
		},
		Bridge: BridgeConfig{
			Observe: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADFRIGW_GATEWAY_ADDRESS"); v != "" {
		cfg.Gateway.Address = v
	}
	if v := os.Getenv("TRADFRIGW_GATEWAY_IDENTITY"); v != "" {
		cfg.Gateway.Identity = v
	}
	if v := os.Getenv("TRADFRIGW_GATEWAY_PSK"); v != "" {
		cfg.Gateway.PSK = v
	}
	if v := os.Getenv("TRADFRIGW_GATEWAY_CODE"); v != "" {
		cfg.Gateway.Code = v
	}
}

var logLevels = map[string]logging.LogLevel{
	"disabled": logging.LogLevelDisabled,
	"error":    logging.LogLevelError,
	"warn":     logging.LogLevelWarn,
	"info":     logging.LogLevelInfo,
	"debug":    logging.LogLevelDebug,
	"trace":    logging.LogLevelTrace,
}

// Validate checks that the gateway can be authenticated with and that all
// values are in range.
func (c *Config) Validate() error {
	var errs []string

	g := c.Gateway
	switch {
	case g.Identity != "" && g.PSK == "":
		errs = append(errs, "gateway.psk is required with gateway.identity")
	case g.Identity == "" && g.PSK != "":
		errs = append(errs, "gateway.identity is required with gateway.psk")
	case g.Identity == "" && g.Code == "":
		errs = append(errs, "gateway.code or gateway.identity and gateway.psk are required")
	}
	if g.DiscoveryTimeout <= 0 {
		errs = append(errs, "gateway.discovery_timeout must be positive")
	}
	if g.AuthTimeout <= 0 {
		errs = append(errs, "gateway.auth_timeout must be positive")
	}
	if g.RequestTimeout < 0 {
		errs = append(errs, "gateway.request_timeout must not be negative")
	}
	if _, ok := logLevels[strings.ToLower(c.Logging.Level)]; !ok {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a known level", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasCredentials reports whether a pre-shared key is configured, in which
// case the security code is not used.
func (g GatewayConfig) HasCredentials() bool {
	return g.Identity != "" && g.PSK != ""
}

func (g GatewayConfig) GetDiscoveryTimeout() time.Duration {
	return time.Duration(g.DiscoveryTimeout) * time.Second
}

func (g GatewayConfig) GetAuthTimeout() time.Duration {
	return time.Duration(g.AuthTimeout) * time.Second
}

func (g GatewayConfig) GetRequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeout) * time.Second
}

// LogLevel returns the configured level. It must only be called on a
// validated Config.
func (l LoggingConfig) LogLevel() logging.LogLevel {
	return logLevels[strings.ToLower(l.Level)]
}
