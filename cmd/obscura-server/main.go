// SPDX-License-Identifier: LGPL-3.0-or-later

// Command obscura-server is a demonstration WebSocket carrier for
// ObscuraProto: it loads the server's long-term signing key, accepts
// connections, drives the server side of the handshake on each, and
// echoes every decrypted payload back to its sender. It is integration
// glue, not part of the wire-compatibility surface (spec §6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obscura-project/obscuraproto/config"
	obscuracrypto "github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/health"
	"github.com/obscura-project/obscuraproto/internal/logger"
	"github.com/obscura-project/obscuraproto/internal/metrics"
	"github.com/obscura-project/obscuraproto/payload"
	"github.com/obscura-project/obscuraproto/transport/ws"
)

var (
	configPath string
	genKeyPath string
)

var rootCmd = &cobra.Command{
	Use:   "obscura-server",
	Short: "ObscuraProto demo server: accepts WebSocket connections and drives the session protocol",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket server",
	RunE:  runServe,
}

var genKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Generate a server signing keypair and write it to a file",
	RunE:  runGenerateKey,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)

	genKeyCmd.Flags().StringVarP(&genKeyPath, "out", "o", "server.key", "output path for the generated signing key")
	rootCmd.AddCommand(genKeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runGenerateKey(cmd *cobra.Command, args []string) error {
	obscuracrypto.Init()
	kp, err := obscuracrypto.GenerateSignKeyPair()
	if err != nil {
		return fmt.Errorf("generate signing keypair: %w", err)
	}
	if err := config.SaveServerSigningKeyPair(genKeyPath, kp); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote signing keypair to %s\n", genKeyPath)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	obscuracrypto.Init()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewLogger(os.Stdout, parseLevel(cfg.Logging.Level))
	log.Info("starting obscura-server", logger.String("addr", cfg.Server.ListenAddr))

	if cfg.Keys.ServerSigningKeyFile == "" {
		return fmt.Errorf("keys.server_signing_key_file must be set")
	}
	signKeys, err := config.LoadServerSigningKeyPair(cfg.Keys.ServerSigningKeyFile)
	if err != nil {
		return err
	}

	server := ws.NewServer(signKeys)
	server.SetLogger(log)
	server.SetTimeouts(cfg.Server.HandshakeTimeout, 60*time.Second)
	server.HandleDefault(func(ctx context.Context, conn *ws.Conn, p payload.Payload) error {
		log.Debug("echoing payload",
			logger.Int("op_code", int(p.OpCode)),
			logger.String("session_id", conn.Session().ID()),
		)
		return conn.Send(p)
	})

	checker := health.NewHealthChecker(5 * time.Second)
	checker.SetLogger(log)
	checker.RegisterCheck("signing_key", health.SigningKeyHealthCheck(func() bool { return true }))
	checker.RegisterCheck("listener", health.ListenerHealthCheck(server.Bound))
	checker.RegisterCheck("active_sessions", health.ActiveSessionsHealthCheck(server.ActiveConnections, cfg.Server.MaxSessions))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				status := checker.GetOverallStatus(r.Context())
				if status != health.StatusHealthy {
					w.WriteHeader(http.StatusServiceUnavailable)
				}
				fmt.Fprintf(w, "%s\n", status)
			})
			log.Info("metrics server listening", logger.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
	}

	return server.Serve(ctx, cfg.Server.ListenAddr, "/obscura")
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	case "fatal":
		return logger.FatalLevel
	default:
		return logger.InfoLevel
	}
}
