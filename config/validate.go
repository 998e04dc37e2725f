// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import "fmt"

// Validate checks a Config for internal consistency, returning every
// violation found rather than stopping at the first.
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, "server.listen_addr must not be empty")
	}
	if cfg.Server.MaxSessions < 0 {
		errs = append(errs, "server.max_sessions must not be negative")
	}
	if cfg.Server.HandshakeTimeout < 0 {
		errs = append(errs, "server.handshake_timeout must not be negative")
	}
	if cfg.Client.ServerURL == "" {
		errs = append(errs, "client.server_url must not be empty")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug/info/warn/error/fatal", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is not one of text/json", cfg.Logging.Format))
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr must not be empty when metrics.enabled is true")
	}

	return errs
}
