// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config provides YAML-backed configuration for the ObscuraProto
// demo server and client binaries. The protocol core owns no
// configuration of its own; everything here is demonstration/integration
// glue (spec §6: "Environment / files / CLI: none. The core owns no
// configuration").
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the top-level configuration for cmd/obscura-server and
// cmd/obscura-client.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Client  ClientConfig  `yaml:"client" json:"client"`
	Keys    KeysConfig    `yaml:"keys" json:"keys"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ServerConfig configures the demo WebSocket server.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" json:"listen_addr"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
	MaxSessions     int           `yaml:"max_sessions" json:"max_sessions"`
}

// ClientConfig configures the demo WebSocket client.
type ClientConfig struct {
	ServerURL  string        `yaml:"server_url" json:"server_url"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// KeysConfig locates the long-term key material. The core defines no
// persistence format of its own (spec §1 Non-goals: "no certificate
// PKI"), so these are raw files an operator manages out-of-band.
type KeysConfig struct {
	// ServerSigningKeyFile holds the server's raw 96-byte Ed25519
	// keypair (32-byte public key || 64-byte private key), base64-encoded.
	ServerSigningKeyFile string `yaml:"server_signing_key_file,omitempty" json:"server_signing_key_file,omitempty"`
	// TrustedServerKeyFile holds the client's trusted server signing
	// public key (32 raw bytes, base64-encoded).
	TrustedServerKeyFile string `yaml:"trusted_server_key_file,omitempty" json:"trusted_server_key_file,omitempty"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text, json; validated only, internal/logger always writes JSON
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// Default returns a Config with the same defaults the demo binaries fall
// back to when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:       "127.0.0.1:8443",
			HandshakeTimeout: 10 * time.Second,
			MaxSessions:      1024,
		},
		Client: ClientConfig{
			ServerURL:   "ws://127.0.0.1:8443/obscura",
			DialTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9443",
		},
	}
}

// Load reads and parses a YAML config file, applying defaults for any
// field the file leaves zero, then environment overrides, then
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := mergeFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	applyEnvironmentOverrides(cfg)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("config: invalid configuration: %s", errs[0])
	}

	return cfg, nil
}

// applyEnvironmentOverrides lets deployment environments override file
// configuration without editing it, mirroring the teacher's env-override
// layering (file < env). No cmd/ flag overrides a config field.
func applyEnvironmentOverrides(cfg *Config) {
	if addr := os.Getenv("OBSCURA_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if url := os.Getenv("OBSCURA_SERVER_URL"); url != "" {
		cfg.Client.ServerURL = url
	}
	if level := os.Getenv("OBSCURA_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if v := os.Getenv("OBSCURA_METRICS_ENABLED"); v == "true" {
		cfg.Metrics.Enabled = true
	} else if v == "false" {
		cfg.Metrics.Enabled = false
	}
}
