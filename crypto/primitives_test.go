package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)

	msg := []byte("transcript bytes")
	sig := Sign(msg, kp.Private)

	assert.True(t, Verify(sig, msg, kp.Public))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)

	msg := []byte("transcript bytes")
	sig := Sign(msg, kp.Private)
	sig[0] ^= 0xFF

	assert.False(t, Verify(sig, msg, kp.Public))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)
	other, err := GenerateSignKeyPair()
	require.NoError(t, err)

	msg := []byte("transcript bytes")
	sig := Sign(msg, kp.Private)

	assert.False(t, Verify(sig, msg, other.Public))
}

func TestSessionKeysAgree(t *testing.T) {
	clientKX, err := GenerateKXKeyPair()
	require.NoError(t, err)
	serverKX, err := GenerateKXKeyPair()
	require.NoError(t, err)

	clientKeys, err := ClientComputeSessionKeys(clientKX, serverKX.Public)
	require.NoError(t, err)
	serverKeys, err := ServerComputeSessionKeys(serverKX, clientKX.Public)
	require.NoError(t, err)

	assert.Equal(t, clientKeys.Tx, serverKeys.Rx, "client tx must equal server rx")
	assert.Equal(t, clientKeys.Rx, serverKeys.Tx, "client rx must equal server tx")
	assert.NotEqual(t, clientKeys.Tx, clientKeys.Rx, "directional keys must differ")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	clientKX, err := GenerateKXKeyPair()
	require.NoError(t, err)
	serverKX, err := GenerateKXKeyPair()
	require.NoError(t, err)

	clientKeys, err := ClientComputeSessionKeys(clientKX, serverKX.Public)
	require.NoError(t, err)

	plaintext := []byte("hello obscura")
	ct, err := Encrypt(plaintext, 0, clientKeys.Tx)
	require.NoError(t, err)

	pt, err := Decrypt(ct, 0, clientKeys.Tx)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	kp, err := GenerateKXKeyPair()
	require.NoError(t, err)
	peer, err := GenerateKXKeyPair()
	require.NoError(t, err)

	keys, err := ClientComputeSessionKeys(kp, peer.Public)
	require.NoError(t, err)

	ct, err := Encrypt([]byte("payload"), 7, keys.Tx)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x01

	_, err = Decrypt(ct, 7, keys.Tx)
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestDecryptFailsOnWrongCounter(t *testing.T) {
	kp, err := GenerateKXKeyPair()
	require.NoError(t, err)
	peer, err := GenerateKXKeyPair()
	require.NoError(t, err)

	keys, err := ClientComputeSessionKeys(kp, peer.Public)
	require.NoError(t, err)

	ct, err := Encrypt([]byte("payload"), 3, keys.Tx)
	require.NoError(t, err)

	_, err = Decrypt(ct, 4, keys.Tx)
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
}
