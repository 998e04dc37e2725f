// SPDX-License-Identifier: LGPL-3.0-or-later

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/payload"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, crypto.SignKeyPair) {
	t.Helper()

	signKeys, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)

	server := NewServer(signKeys)
	httpServer := httptest.NewServer(server.HTTPHandler())
	t.Cleanup(httpServer.Close)

	return server, httpServer, signKeys
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClientServerHandshakeAndRoundTrip(t *testing.T) {
	server, httpServer, signKeys := newTestServer(t)

	received := make(chan payload.Payload, 1)
	server.HandleDefault(func(ctx context.Context, conn *Conn, p payload.Payload) error {
		received <- p
		return conn.Send(p)
	})

	client := NewClient(wsURL(httpServer.URL), signKeys.Public)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	assert.True(t, client.Session().IsHandshakeComplete())

	p := payload.NewPayloadBuilder(0x01).AddString("hello").Build()
	require.NoError(t, client.Send(p))

	select {
	case got := <-received:
		assert.Equal(t, p.OpCode, got.OpCode)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received payload")
	}

	echo, err := client.Recv()
	require.NoError(t, err)
	reader := payload.NewPayloadReader(echo)
	s, err := reader.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestClientRejectsWrongSigningKey(t *testing.T) {
	_, httpServer, _ := newTestServer(t)

	wrongKeys, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)

	client := NewClient(wsURL(httpServer.URL), wrongKeys.Public)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
}

func TestServerTracksActiveConnections(t *testing.T) {
	server, httpServer, signKeys := newTestServer(t)
	server.HandleDefault(func(ctx context.Context, conn *Conn, p payload.Payload) error {
		return nil
	})

	client := NewClient(wsURL(httpServer.URL), signKeys.Public)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	require.Eventually(t, func() bool {
		return server.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())

	require.Eventually(t, func() bool {
		return server.ActiveConnections() == 0
	}, time.Second, 10*time.Millisecond)
}
