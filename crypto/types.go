// Copyright (C) 2025 obscura-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package crypto is the stateless primitive façade ObscuraProto sessions are
// built on: X25519 key exchange, Ed25519 signing, HKDF session-key
// derivation and XChaCha20-Poly1305 record encryption. Nothing here retains
// state across calls beyond the one-time Init.
package crypto

import "errors"

// PublicKey is shared by both the KX and signing key families: both are
// 32 bytes on the wire.
type PublicKey [32]byte

// KXPrivateKey is the private half of an X25519 ephemeral pair.
type KXPrivateKey [32]byte

// SignPrivateKey is the private half of an Ed25519 long-term pair, the
// conventional 64-byte seed||public encoding.
type SignPrivateKey [64]byte

// Signature is a detached Ed25519 signature.
type Signature [64]byte

// SessionKey is one direction's symmetric AEAD key.
type SessionKey [32]byte

// SessionKeys holds the two keys a handshake derives, already split by
// direction from this endpoint's point of view.
type SessionKeys struct {
	Rx SessionKey
	Tx SessionKey
}

// KXKeyPair is an ephemeral X25519 keypair, generated fresh per handshake
// and discarded afterward.
type KXKeyPair struct {
	Public  PublicKey
	Private KXPrivateKey
}

// SignKeyPair is a long-term Ed25519 keypair.
type SignKeyPair struct {
	Public  PublicKey
	Private SignPrivateKey
}

// Errors returned by this package. Callers wrap these with context via
// fmt.Errorf("...: %w", ...); the sentinel identity is what matters for
// errors.Is checks further up the stack.
var (
	ErrAuthFailure    = errors.New("crypto: authentication failure")
	ErrInvalidKey     = errors.New("crypto: invalid key material")
	ErrInvalidNonce   = errors.New("crypto: invalid nonce input")
	ErrCounterExhausted = errors.New("crypto: counter exhausted")
)
