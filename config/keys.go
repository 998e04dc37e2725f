// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/obscura-project/obscuraproto/crypto"
)

// LoadServerSigningKeyPair reads the server's long-term Ed25519 signing
// keypair from path: a base64-encoded 96-byte blob (32-byte public half
// followed by the 64-byte private half), since the core owns no PKI or
// key-file format of its own (spec §1 Non-goals: "no certificate PKI").
func LoadServerSigningKeyPair(path string) (crypto.SignKeyPair, error) {
	raw, err := readBase64File(path)
	if err != nil {
		return crypto.SignKeyPair{}, fmt.Errorf("load server signing key: %w", err)
	}
	if len(raw) != 32+64 {
		return crypto.SignKeyPair{}, fmt.Errorf("load server signing key: expected %d bytes, got %d", 32+64, len(raw))
	}

	var kp crypto.SignKeyPair
	copy(kp.Public[:], raw[:32])
	copy(kp.Private[:], raw[32:])
	return kp, nil
}

// SaveServerSigningKeyPair writes kp to path in the format
// LoadServerSigningKeyPair reads.
func SaveServerSigningKeyPair(path string, kp crypto.SignKeyPair) error {
	raw := make([]byte, 0, 32+64)
	raw = append(raw, kp.Public[:]...)
	raw = append(raw, kp.Private[:]...)
	return writeBase64File(path, raw)
}

// LoadTrustedServerPublicKey reads the client's trusted server signing
// public key from path: a base64-encoded 32-byte blob, distributed
// out-of-band per spec §3 invariant 4.
func LoadTrustedServerPublicKey(path string) (crypto.PublicKey, error) {
	raw, err := readBase64File(path)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("load trusted server key: %w", err)
	}
	if len(raw) != 32 {
		return crypto.PublicKey{}, fmt.Errorf("load trusted server key: expected 32 bytes, got %d", len(raw))
	}

	var pk crypto.PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// SaveTrustedServerPublicKey writes pk to path in the format
// LoadTrustedServerPublicKey reads.
func SaveTrustedServerPublicKey(path string, pk crypto.PublicKey) error {
	return writeBase64File(path, pk[:])
}

func readBase64File(path string) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(trimTrailingNewline(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return raw, nil
}

func writeBase64File(path string, raw []byte) error {
	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func trimTrailingNewline(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
