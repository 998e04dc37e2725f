// SPDX-License-Identifier: LGPL-3.0-or-later

package crypto

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var initOnce sync.Once

// Init performs one-time global initialization of the underlying primitive
// suite. The stdlib/x-crypto primitives used here need none, so this is a
// no-op beyond the once-guard, but callers get the same idempotent-init
// contract the protocol requires.
func Init() {
	initOnce.Do(func() {})
}

// GenerateKXKeyPair produces a fresh X25519 ephemeral pair.
func GenerateKXKeyPair() (KXKeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return KXKeyPair{}, fmt.Errorf("generate kx keypair: %w", err)
	}

	var kp KXKeyPair
	copy(kp.Private[:], priv.Bytes())
	copy(kp.Public[:], priv.PublicKey().Bytes())
	return kp, nil
}

// GenerateSignKeyPair produces a fresh Ed25519 long-term pair.
func GenerateSignKeyPair() (SignKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SignKeyPair{}, fmt.Errorf("generate sign keypair: %w", err)
	}

	var kp SignKeyPair
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv)
	return kp, nil
}

// Sign signs message with an Ed25519 private key.
func Sign(message []byte, sk SignPrivateKey) Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(sk[:]), message)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify checks sig over message against pk in constant time.
func Verify(sig Signature, message []byte, pk PublicKey) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), message, sig[:])
}

// kxSharedSecret runs X25519 ECDH between a private and a peer public key.
func kxSharedSecret(priv KXPrivateKey, peerPub PublicKey) ([]byte, error) {
	curve := ecdh.X25519()
	privKey, err := curve.NewPrivateKey(priv[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pubKey, err := curve.NewPublicKey(peerPub[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	secret, err := privKey.ECDH(pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

// deriveDirectionalKeys expands the DH shared secret into the two
// directional session keys, labelled client-to-server and
// server-to-client. Both peers compute identical values because the salt
// is the pair of ephemeral public keys in a fixed order and the info
// strings are fixed.
func deriveDirectionalKeys(sharedSecret []byte, clientEphemeralPK, serverEphemeralPK PublicKey) (c2s, s2c SessionKey, err error) {
	salt := make([]byte, 0, 64)
	salt = append(salt, clientEphemeralPK[:]...)
	salt = append(salt, serverEphemeralPK[:]...)

	c2sReader := hkdf.New(sha256.New, sharedSecret, salt, []byte("ObscuraProto c2s"))
	if _, rerr := io.ReadFull(c2sReader, c2s[:]); rerr != nil {
		return c2s, s2c, fmt.Errorf("derive c2s key: %w", rerr)
	}

	s2cReader := hkdf.New(sha256.New, sharedSecret, salt, []byte("ObscuraProto s2c"))
	if _, rerr := io.ReadFull(s2cReader, s2c[:]); rerr != nil {
		return c2s, s2c, fmt.Errorf("derive s2c key: %w", rerr)
	}

	return c2s, s2c, nil
}

// ClientComputeSessionKeys derives this client's {rx, tx} pair. The
// client's tx is the c2s key and its rx is the s2c key.
func ClientComputeSessionKeys(clientKX KXKeyPair, serverEphemeralPK PublicKey) (SessionKeys, error) {
	secret, err := kxSharedSecret(clientKX.Private, serverEphemeralPK)
	if err != nil {
		return SessionKeys{}, err
	}
	c2s, s2c, err := deriveDirectionalKeys(secret, clientKX.Public, serverEphemeralPK)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Tx: c2s, Rx: s2c}, nil
}

// ServerComputeSessionKeys derives this server's {rx, tx} pair. The
// server's rx is the c2s key and its tx is the s2c key, mirroring the
// client's labelling so the two sides agree.
func ServerComputeSessionKeys(serverKX KXKeyPair, clientEphemeralPK PublicKey) (SessionKeys, error) {
	secret, err := kxSharedSecret(serverKX.Private, clientEphemeralPK)
	if err != nil {
		return SessionKeys{}, err
	}
	c2s, s2c, err := deriveDirectionalKeys(secret, clientEphemeralPK, serverKX.Public)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Rx: c2s, Tx: s2c}, nil
}

// nonceFromCounter builds the 24-byte XChaCha20-Poly1305 nonce: counter
// little-endian in the low 8 bytes, the rest zero.
func nonceFromCounter(counter uint64) [chacha20poly1305.NonceSizeX]byte {
	var nonce [chacha20poly1305.NonceSizeX]byte
	for i := 0; i < 8; i++ {
		nonce[i] = byte(counter >> (8 * i))
	}
	return nonce
}

// Encrypt seals plaintext under key using the nonce derived from counter.
// The output is ciphertext||tag, with no associated data.
func Encrypt(plaintext []byte, counter uint64, key SessionKey) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	nonce := nonceFromCounter(counter)
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// Decrypt opens ciphertext (as produced by Encrypt) under key using the
// nonce derived from counter. Any tampering surfaces as ErrAuthFailure.
func Decrypt(ciphertext []byte, counter uint64, key SessionKey) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	nonce := nonceFromCounter(counter)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}
