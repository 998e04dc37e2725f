// SPDX-License-Identifier: LGPL-3.0-or-later

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/obscura-project/obscuraproto/crypto"
)

// ErrMalformedMessage is returned when a handshake message is truncated,
// carries a trailing tail, or declares a zero-length version list.
var ErrMalformedMessage = errors.New("wire: malformed message")

const publicKeySize = 32
const signatureSize = 64

// ClientHello is the client's first handshake message.
type ClientHello struct {
	SupportedVersions []Version
	EphemeralPK       crypto.PublicKey
}

// Serialize emits the wire layout:
//
//	u16  n = len(supported_versions)
//	u16  versions[n]
//	byte ephemeral_pk[32]
func (h ClientHello) Serialize() []byte {
	out := make([]byte, 2+2*len(h.SupportedVersions)+publicKeySize)
	binary.BigEndian.PutUint16(out[0:2], uint16(len(h.SupportedVersions)))
	offset := 2
	for _, v := range h.SupportedVersions {
		binary.BigEndian.PutUint16(out[offset:offset+2], uint16(v))
		offset += 2
	}
	copy(out[offset:], h.EphemeralPK[:])
	return out
}

// DeserializeClientHello parses the bytes Serialize produces, failing with
// ErrMalformedMessage on truncation, a trailing tail, or n == 0.
func DeserializeClientHello(data []byte) (ClientHello, error) {
	if len(data) < 2 {
		return ClientHello{}, fmt.Errorf("client hello: %w", ErrMalformedMessage)
	}
	n := binary.BigEndian.Uint16(data[0:2])
	if n == 0 {
		return ClientHello{}, fmt.Errorf("client hello: zero version list: %w", ErrMalformedMessage)
	}

	want := 2 + int(n)*2 + publicKeySize
	if len(data) != want {
		return ClientHello{}, fmt.Errorf("client hello: %w", ErrMalformedMessage)
	}

	versions := make([]Version, n)
	offset := 2
	for i := 0; i < int(n); i++ {
		versions[i] = Version(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
	}

	var pk crypto.PublicKey
	copy(pk[:], data[offset:offset+publicKeySize])

	return ClientHello{SupportedVersions: versions, EphemeralPK: pk}, nil
}

// ServerHello is the server's (only) handshake reply.
type ServerHello struct {
	SelectedVersion Version
	EphemeralPK     crypto.PublicKey
	Signature       crypto.Signature
}

// Serialize emits the wire layout:
//
//	u16  selected_version
//	byte ephemeral_pk[32]
//	byte signature[64]
func (h ServerHello) Serialize() []byte {
	out := make([]byte, 2+publicKeySize+signatureSize)
	binary.BigEndian.PutUint16(out[0:2], uint16(h.SelectedVersion))
	copy(out[2:2+publicKeySize], h.EphemeralPK[:])
	copy(out[2+publicKeySize:], h.Signature[:])
	return out
}

// DeserializeServerHello parses the bytes Serialize produces.
func DeserializeServerHello(data []byte) (ServerHello, error) {
	want := 2 + publicKeySize + signatureSize
	if len(data) != want {
		return ServerHello{}, fmt.Errorf("server hello: %w", ErrMalformedMessage)
	}

	version := Version(binary.BigEndian.Uint16(data[0:2]))

	var pk crypto.PublicKey
	copy(pk[:], data[2:2+publicKeySize])

	var sig crypto.Signature
	copy(sig[:], data[2+publicKeySize:])

	return ServerHello{SelectedVersion: version, EphemeralPK: pk, Signature: sig}, nil
}
