package alpacastream

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvKeyID     = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
)

// Config is the connection surface of one streaming session.
type Config struct {
	Host string `yaml:"host"`
	Path string `yaml:"path"`
	Port int    `yaml:"port"`
	// TLS selects wss:// when true and ws:// otherwise.
	TLS bool `yaml:"tls"`
	// Protocol is the WebSocket sub-protocol offered during the upgrade.
	Protocol string `yaml:"protocol"`

	KeyID     string `yaml:"key_id"`
	SecretKey string `yaml:"secret_key"`

	Streams []string `yaml:"streams"`
}

// DefaultConfig returns the public Alpaca data stream endpoint listening to
// minute bars for SPY. Credentials are left empty.
func DefaultConfig() Config {
	return Config{
		Host:     "data.alpaca.markets",
		Path:     "/stream",
		Port:     443,
		TLS:      true,
		Protocol: "chat",
		Streams:  []string{MinuteBars("SPY")},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides credentials with the APCA_* environment variables when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvKeyID); v != "" {
		c.KeyID = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.SecretKey = v
	}
}

// Credentials returns the configured key pair.
func (c Config) Credentials() Credentials {
	return Credentials{KeyID: c.KeyID, SecretKey: c.SecretKey}
}

// Validate checks that the config can produce a session.
func (c Config) Validate() error {
	if c.Host == "" {
		return newError(KindInvalidConfig, "empty host", nil)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return newError(KindInvalidConfig, "port out of range: "+strconv.Itoa(c.Port), nil)
	}
	if c.KeyID == "" || c.SecretKey == "" {
		return newError(KindInvalidConfig, "missing credentials", nil)
	}
	if len(c.Streams) == 0 {
		return newError(KindInvalidConfig, "no streams", nil)
	}
	return nil
}

// URL returns the WebSocket URL of the endpoint.
func (c Config) URL() string {
	scheme := "ws"
	if c.TLS {
		scheme = "wss"
	}
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   path,
	}
	return u.String()
}

// origin is sent as the Origin header, matching the host.
func (c Config) origin() string {
	scheme := "http"
	if c.TLS {
		scheme = "https"
	}
	host := c.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return (&url.URL{Scheme: scheme, Host: host}).String()
}

func (c Config) clone() Config {
	c.Streams = append([]string(nil), c.Streams...)
	return c
}
