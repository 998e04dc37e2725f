// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding, except Metrics.Enabled is
// a pointer so an omitted key is distinguishable from an explicit false.
type fileConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Keys    KeysConfig    `yaml:"keys"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// mergeFromFile decodes the YAML file at path over cfg's defaults. Only
// fields present in the file are overwritten: an omitted key leaves the
// default standing.
func mergeFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fromFile fileConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fromFile.Server.ListenAddr != "" {
		cfg.Server.ListenAddr = fromFile.Server.ListenAddr
	}
	if fromFile.Server.HandshakeTimeout != 0 {
		cfg.Server.HandshakeTimeout = fromFile.Server.HandshakeTimeout
	}
	if fromFile.Server.MaxSessions != 0 {
		cfg.Server.MaxSessions = fromFile.Server.MaxSessions
	}
	if fromFile.Client.ServerURL != "" {
		cfg.Client.ServerURL = fromFile.Client.ServerURL
	}
	if fromFile.Client.DialTimeout != 0 {
		cfg.Client.DialTimeout = fromFile.Client.DialTimeout
	}
	if fromFile.Keys.ServerSigningKeyFile != "" {
		cfg.Keys.ServerSigningKeyFile = fromFile.Keys.ServerSigningKeyFile
	}
	if fromFile.Keys.TrustedServerKeyFile != "" {
		cfg.Keys.TrustedServerKeyFile = fromFile.Keys.TrustedServerKeyFile
	}
	if fromFile.Logging.Level != "" {
		cfg.Logging.Level = fromFile.Logging.Level
	}
	if fromFile.Logging.Format != "" {
		cfg.Logging.Format = fromFile.Logging.Format
	}
	if fromFile.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fromFile.Metrics.Enabled
	}
	if fromFile.Metrics.Addr != "" {
		cfg.Metrics.Addr = fromFile.Metrics.Addr
	}

	return nil
}
