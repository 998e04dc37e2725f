package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-project/obscuraproto/crypto"
)

func TestClientHelloRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKXKeyPair()
	require.NoError(t, err)

	in := ClientHello{SupportedVersions: []Version{V1_0}, EphemeralPK: kp.Public}
	out, err := DeserializeClientHello(in.Serialize())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestClientHelloRejectsZeroVersionList(t *testing.T) {
	data := []byte{0x00, 0x00}
	data = append(data, make([]byte, publicKeySize)...)
	_, err := DeserializeClientHello(data)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestClientHelloRejectsTruncated(t *testing.T) {
	kp, err := crypto.GenerateKXKeyPair()
	require.NoError(t, err)
	in := ClientHello{SupportedVersions: []Version{V1_0}, EphemeralPK: kp.Public}
	data := in.Serialize()

	_, err = DeserializeClientHello(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestClientHelloRejectsTrailingBytes(t *testing.T) {
	kp, err := crypto.GenerateKXKeyPair()
	require.NoError(t, err)
	in := ClientHello{SupportedVersions: []Version{V1_0}, EphemeralPK: kp.Public}
	data := append(in.Serialize(), 0xFF)

	_, err = DeserializeClientHello(data)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestServerHelloRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKXKeyPair()
	require.NoError(t, err)
	signer, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)

	sig := crypto.Sign(kp.Public[:], signer.Private)
	in := ServerHello{SelectedVersion: V1_0, EphemeralPK: kp.Public, Signature: sig}

	out, err := DeserializeServerHello(in.Serialize())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestServerHelloRejectsTruncated(t *testing.T) {
	_, err := DeserializeServerHello(make([]byte, 10))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
