// SPDX-License-Identifier: LGPL-3.0-or-later

package session

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/internal/metrics"
	"github.com/obscura-project/obscuraproto/payload"
	"github.com/obscura-project/obscuraproto/wire"
)

// frameCounterSize is the length, in bytes, of the big-endian counter
// prefix on every record frame.
const frameCounterSize = 8

// Session is an owned, non-shared state machine: one handshake, then
// record traffic until dropped. Per the protocol's concurrency model,
// calls on a single Session must be totally ordered by the caller;
// concurrent use from multiple goroutines is undefined.
type Session struct {
	// id is a diagnostic correlation handle for logs and metrics. It
	// never appears on the wire.
	id string

	role  Role
	state State

	// trustedServerPK is populated for RoleClient: the server's
	// long-term signing public key, distributed out-of-band.
	trustedServerPK crypto.PublicKey
	// serverSignKeys is populated for RoleServer: the server's own
	// long-term signing keypair.
	serverSignKeys crypto.SignKeyPair

	ephemeralKX crypto.KXKeyPair

	selectedVersion wire.Version
	versionSet      bool

	sessionKeys crypto.SessionKeys

	txCounter uint64
	rxCounter uint64
}

// NewClientSession constructs a Session for the client role. trustedServerPK
// is the server's long-term signing public key, obtained out-of-band; the
// core owns no PKI to establish it.
func NewClientSession(trustedServerPK crypto.PublicKey) *Session {
	return &Session{
		id:              uuid.NewString(),
		role:            RoleClient,
		state:           StateInit,
		trustedServerPK: trustedServerPK,
	}
}

// NewServerSession constructs a Session for the server role, holding its
// own long-term signing keypair.
func NewServerSession(signKeys crypto.SignKeyPair) *Session {
	return &Session{
		id:             uuid.NewString(),
		role:           RoleServer,
		state:          StateInit,
		serverSignKeys: signKeys,
	}
}

// ID returns the session's diagnostic correlation handle.
func (s *Session) ID() string {
	return s.id
}

// Role returns the session's role.
func (s *Session) Role() Role {
	return s.role
}

// State returns the session's current state machine position.
func (s *Session) State() State {
	return s.state
}

// fail drives the session to its terminal failed state; every subsequent
// operation refuses with ErrInvalidState.
func (s *Session) fail() {
	s.state = StateFailed
}

// ClientInitiateHandshake generates the client's ephemeral KX pair and
// returns the first handshake message. Requires StateInit; transitions to
// StateAwaitServerHello.
func (s *Session) ClientInitiateHandshake() (wire.ClientHello, error) {
	if s.role != RoleClient {
		return wire.ClientHello{}, fmt.Errorf("client_initiate_handshake: %w", ErrInvalidState)
	}
	if s.state != StateInit {
		return wire.ClientHello{}, fmt.Errorf("client_initiate_handshake: %w", ErrInvalidState)
	}

	kx, err := crypto.GenerateKXKeyPair()
	if err != nil {
		s.fail()
		return wire.ClientHello{}, fmt.Errorf("client_initiate_handshake: %w", err)
	}
	s.ephemeralKX = kx
	s.state = StateAwaitServerHello

	return wire.ClientHello{
		SupportedVersions: wire.SupportedVersions,
		EphemeralPK:       kx.Public,
	}, nil
}

// ServerRespondToHandshake negotiates a version, derives session keys,
// signs the transcript, and completes the handshake in one round trip.
// Requires StateInit; transitions to StateEstablished on success, or
// StateFailed on any error.
func (s *Session) ServerRespondToHandshake(hello wire.ClientHello) (wire.ServerHello, error) {
	if s.role != RoleServer {
		return wire.ServerHello{}, fmt.Errorf("server_respond_to_handshake: %w", ErrInvalidState)
	}
	if s.state != StateInit {
		return wire.ServerHello{}, fmt.Errorf("server_respond_to_handshake: %w", ErrInvalidState)
	}

	selected, ok := wire.Negotiate(hello.SupportedVersions, wire.SupportedVersions)
	if !ok {
		s.fail()
		return wire.ServerHello{}, fmt.Errorf("server_respond_to_handshake: %w", ErrVersionMismatch)
	}

	serverKX, err := crypto.GenerateKXKeyPair()
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("generate_kx").Inc()
		s.fail()
		return wire.ServerHello{}, fmt.Errorf("server_respond_to_handshake: %w", err)
	}

	kxStart := time.Now()
	sessionKeys, err := crypto.ServerComputeSessionKeys(serverKX, hello.EphemeralPK)
	metrics.CryptoOperationDuration.WithLabelValues("kx", "x25519").Observe(time.Since(kxStart).Seconds())
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("kx", "x25519").Inc()
		metrics.CryptoErrors.WithLabelValues("kx").Inc()
		s.fail()
		return wire.ServerHello{}, fmt.Errorf("server_respond_to_handshake: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("kx", "x25519").Inc()

	transcript := append(append([]byte{}, hello.EphemeralPK[:]...), serverKX.Public[:]...)
	signStart := time.Now()
	signature := crypto.Sign(transcript, s.serverSignKeys.Private)
	metrics.CryptoOperations.WithLabelValues("sign", "ed25519").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("sign", "ed25519").Observe(time.Since(signStart).Seconds())

	s.ephemeralKX = serverKX
	s.selectedVersion = selected
	s.versionSet = true
	s.sessionKeys = sessionKeys
	s.txCounter = 0
	s.rxCounter = 0
	s.state = StateEstablished

	return wire.ServerHello{
		SelectedVersion: selected,
		EphemeralPK:     serverKX.Public,
		Signature:       signature,
	}, nil
}

// ClientFinalizeHandshake verifies the server's signature over the
// handshake transcript, derives session keys, and completes the
// handshake. Requires StateAwaitServerHello; transitions to
// StateEstablished on success, or StateFailed on any error.
func (s *Session) ClientFinalizeHandshake(hello wire.ServerHello) error {
	if s.role != RoleClient {
		return fmt.Errorf("client_finalize_handshake: %w", ErrInvalidState)
	}
	if s.state != StateAwaitServerHello {
		return fmt.Errorf("client_finalize_handshake: %w", ErrInvalidState)
	}

	supported := false
	for _, v := range wire.SupportedVersions {
		if v == hello.SelectedVersion {
			supported = true
			break
		}
	}
	if !supported {
		s.fail()
		return fmt.Errorf("client_finalize_handshake: %w", ErrVersionMismatch)
	}

	transcript := append(append([]byte{}, s.ephemeralKX.Public[:]...), hello.EphemeralPK[:]...)
	verifyStart := time.Now()
	ok := crypto.Verify(hello.Signature, transcript, s.trustedServerPK)
	metrics.CryptoOperations.WithLabelValues("verify", "ed25519").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("verify", "ed25519").Observe(time.Since(verifyStart).Seconds())
	if !ok {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		s.fail()
		return fmt.Errorf("client_finalize_handshake: %w", ErrAuthFailure)
	}

	kxStart := time.Now()
	sessionKeys, err := crypto.ClientComputeSessionKeys(s.ephemeralKX, hello.EphemeralPK)
	metrics.CryptoOperationDuration.WithLabelValues("kx", "x25519").Observe(time.Since(kxStart).Seconds())
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("kx", "x25519").Inc()
		metrics.CryptoErrors.WithLabelValues("kx").Inc()
		s.fail()
		return fmt.Errorf("client_finalize_handshake: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("kx", "x25519").Inc()

	s.selectedVersion = hello.SelectedVersion
	s.versionSet = true
	s.sessionKeys = sessionKeys
	s.txCounter = 0
	s.rxCounter = 0
	s.state = StateEstablished

	return nil
}

// EncryptPayload serializes and encrypts p under the current tx key and
// counter, returning the wire frame u64_be(counter) || ciphertext || tag.
// Requires the handshake to be complete; fails with ErrCounterExhausted
// before emitting if tx_counter would overflow.
func (s *Session) EncryptPayload(p payload.Payload) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, fmt.Errorf("encrypt_payload: %w", ErrInvalidState)
	}
	if s.txCounter == math.MaxUint64 {
		s.fail()
		return nil, fmt.Errorf("encrypt_payload: %w", ErrCounterExhausted)
	}

	encryptStart := time.Now()
	ciphertext, err := crypto.Encrypt(p.Serialize(), s.txCounter, s.sessionKeys.Tx)
	metrics.CryptoOperationDuration.WithLabelValues("encrypt", "xchacha20poly1305").Observe(time.Since(encryptStart).Seconds())
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("encrypt", "xchacha20poly1305").Inc()
		metrics.CryptoErrors.WithLabelValues("encrypt").Inc()
		s.fail()
		return nil, fmt.Errorf("encrypt_payload: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("encrypt", "xchacha20poly1305").Inc()

	frame := make([]byte, frameCounterSize+len(ciphertext))
	binary.BigEndian.PutUint64(frame[:frameCounterSize], s.txCounter)
	copy(frame[frameCounterSize:], ciphertext)

	metrics.SessionMessageSize.WithLabelValues("outbound").Observe(float64(len(frame)))
	s.txCounter++
	return frame, nil
}

// DecryptPacket parses and authenticates a record frame, enforcing strict
// in-order delivery on rx_counter. Requires the handshake to be complete.
// A counter mismatch rejects only the offending frame with
// ErrReplayOrReorder, leaving rx_counter and the session state untouched so
// the next in-order frame still decrypts; every other failure (malformed
// frame, AEAD auth failure, payload decode failure) drives the session to
// StateFailed.
func (s *Session) DecryptPacket(frame []byte) (payload.Payload, error) {
	if s.state != StateEstablished {
		return payload.Payload{}, fmt.Errorf("decrypt_packet: %w", ErrInvalidState)
	}
	if len(frame) < frameCounterSize {
		s.fail()
		return payload.Payload{}, fmt.Errorf("decrypt_packet: %w", ErrAuthFailure)
	}

	counter := binary.BigEndian.Uint64(frame[:frameCounterSize])
	if counter != s.rxCounter {
		metrics.ReplayAttacksDetected.Inc()
		return payload.Payload{}, fmt.Errorf("decrypt_packet: %w", ErrReplayOrReorder)
	}

	decryptStart := time.Now()
	plaintext, err := crypto.Decrypt(frame[frameCounterSize:], counter, s.sessionKeys.Rx)
	metrics.CryptoOperationDuration.WithLabelValues("decrypt", "xchacha20poly1305").Observe(time.Since(decryptStart).Seconds())
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("decrypt", "xchacha20poly1305").Inc()
		metrics.CryptoErrors.WithLabelValues("decrypt").Inc()
		s.fail()
		return payload.Payload{}, fmt.Errorf("decrypt_packet: %w", ErrAuthFailure)
	}
	metrics.CryptoOperations.WithLabelValues("decrypt", "xchacha20poly1305").Inc()

	p, err := payload.Deserialize(plaintext)
	if err != nil {
		s.fail()
		return payload.Payload{}, fmt.Errorf("decrypt_packet: %w", err)
	}

	metrics.SessionMessageSize.WithLabelValues("inbound").Observe(float64(len(frame)))
	s.rxCounter++
	return p, nil
}

// GetSelectedVersion returns the negotiated version after handshake
// completion, and whether one has been set.
func (s *Session) GetSelectedVersion() (wire.Version, bool) {
	return s.selectedVersion, s.versionSet
}

// IsHandshakeComplete reports whether the session has reached
// StateEstablished.
func (s *Session) IsHandshakeComplete() bool {
	return s.state == StateEstablished
}

// RxCounter exposes the current rx_counter for integrators that need
// counter inspection, without changing DecryptPacket's return shape.
func (s *Session) RxCounter() uint64 {
	return s.rxCounter
}

// TxCounter exposes the current tx_counter, mirroring RxCounter.
func (s *Session) TxCounter() uint64 {
	return s.txCounter
}

// Close wipes session key material. The session is left in StateFailed so
// any use after Close refuses with ErrInvalidState.
func (s *Session) Close() {
	for i := range s.sessionKeys.Rx {
		s.sessionKeys.Rx[i] = 0
	}
	for i := range s.sessionKeys.Tx {
		s.sessionKeys.Tx[i] = 0
	}
	for i := range s.ephemeralKX.Private {
		s.ephemeralKX.Private[i] = 0
	}
	s.state = StateFailed
}
