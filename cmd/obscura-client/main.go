// SPDX-License-Identifier: LGPL-3.0-or-later

// Command obscura-client is a demonstration WebSocket carrier client for
// ObscuraProto: it loads the server's trusted signing public key, dials
// the server, drives the client side of the handshake, sends one
// opaque-string payload, and prints whatever comes back.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obscura-project/obscuraproto/config"
	obscuracrypto "github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/payload"
	"github.com/obscura-project/obscuraproto/transport/ws"
)

var (
	configPath string
	opCode     uint16
	message    string
)

var rootCmd = &cobra.Command{
	Use:   "obscura-client",
	Short: "ObscuraProto demo client: dials a server and exchanges one encrypted payload",
	RunE:  runSend,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.Flags().Uint16VarP(&opCode, "op-code", "o", 0x0001, "opcode for the outgoing payload")
	rootCmd.Flags().StringVarP(&message, "message", "m", "hello from obscura-client", "string parameter to send")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	obscuracrypto.Init()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Keys.TrustedServerKeyFile == "" {
		return fmt.Errorf("keys.trusted_server_key_file must be set")
	}
	trustedPK, err := config.LoadTrustedServerPublicKey(cfg.Keys.TrustedServerKeyFile)
	if err != nil {
		return err
	}

	client := ws.NewClient(cfg.Client.ServerURL, trustedPK)
	client.SetDialTimeout(cfg.Client.DialTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.DialTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	version, _ := client.Session().GetSelectedVersion()
	fmt.Fprintf(os.Stdout, "handshake complete: negotiated version %d\n", version)

	p := payload.NewPayloadBuilder(opCode).AddString(message).Build()
	if err := client.Send(p); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	resp, err := client.Recv()
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}

	reader := payload.NewPayloadReader(resp)
	text, err := reader.ReadString()
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Fprintf(os.Stdout, "received op_code=0x%04x message=%q\n", resp.OpCode, text)
	return nil
}
