// SPDX-License-Identifier: LGPL-3.0-or-later

package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/internal/logger"
	"github.com/obscura-project/obscuraproto/internal/metrics"
	"github.com/obscura-project/obscuraproto/payload"
	"github.com/obscura-project/obscuraproto/session"
	"github.com/obscura-project/obscuraproto/wire"
)

// Client dials a WebSocket URL, drives the client side of the handshake,
// and then exposes Send/Recv over the established Session.
type Client struct {
	url             string
	trustedServerPK crypto.PublicKey
	dialTimeout     time.Duration

	log logger.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	session *session.Session
}

// NewClient constructs a Client that will trust trustedServerPK (the
// server's long-term Ed25519 signing public key, obtained out-of-band)
// when verifying the ServerHello transcript signature.
func NewClient(url string, trustedServerPK crypto.PublicKey) *Client {
	return &Client{
		url:             url,
		trustedServerPK: trustedServerPK,
		dialTimeout:     10 * time.Second,
		log:             logger.GetDefaultLogger(),
	}
}

// SetLogger overrides the client's logger.
func (c *Client) SetLogger(l logger.Logger) {
	c.log = l
}

// SetDialTimeout overrides the WebSocket dial/handshake timeout.
func (c *Client) SetDialTimeout(d time.Duration) {
	c.dialTimeout = d
}

// Connect dials the server, exchanges ClientHello/ServerHello, and
// leaves the Client ready for Send/Recv.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		return fmt.Errorf("ws: client already connected")
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ws: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("ws: dial failed: %w", err)
	}

	handshakeStart := time.Now()
	sess := session.NewClientSession(c.trustedServerPK)
	metrics.HandshakesInitiated.WithLabelValues("client").Inc()

	clientHello, err := sess.ClientInitiateHandshake()
	if err != nil {
		_ = conn.Close()
		metrics.HandshakesFailed.WithLabelValues("invalid_state").Inc()
		return fmt.Errorf("ws: client initiate handshake: %w", err)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.dialTimeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ws: set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, clientHello.Serialize()); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ws: write client hello: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.dialTimeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ws: set read deadline: %w", err)
	}
	_, helloBytes, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("ws: read server hello: %w", err)
	}

	serverHello, err := wire.DeserializeServerHello(helloBytes)
	if err != nil {
		_ = conn.Close()
		metrics.HandshakesFailed.WithLabelValues("malformed_message").Inc()
		return fmt.Errorf("ws: decode server hello: %w", err)
	}

	if err := sess.ClientFinalizeHandshake(serverHello); err != nil {
		_ = conn.Close()
		metrics.HandshakesFailed.WithLabelValues("auth_failure").Inc()
		return fmt.Errorf("ws: client finalize handshake: %w", err)
	}

	metrics.HandshakesCompleted.WithLabelValues("success").Inc()
	metrics.HandshakeDuration.WithLabelValues("client_finalize").Observe(time.Since(handshakeStart).Seconds())
	metrics.SessionsActive.Inc()

	c.ws = conn
	c.session = sess
	return nil
}

// Send encrypts p under the session and writes it as one binary frame.
func (c *Client) Send(p payload.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return fmt.Errorf("ws: client not connected")
	}

	frame, err := c.session.EncryptPayload(p)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("outbound", "failure").Inc()
		return fmt.Errorf("ws: encrypt payload: %w", err)
	}
	metrics.MessagesProcessed.WithLabelValues("outbound", "success").Inc()

	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// Recv blocks for the next frame and returns its decrypted Payload.
func (c *Client) Recv() (payload.Payload, error) {
	c.mu.Lock()
	ws := c.ws
	sess := c.session
	c.mu.Unlock()

	if ws == nil {
		return payload.Payload{}, fmt.Errorf("ws: client not connected")
	}

	_, frame, err := ws.ReadMessage()
	if err != nil {
		return payload.Payload{}, fmt.Errorf("ws: read frame: %w", err)
	}

	p, err := sess.DecryptPacket(frame)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("inbound", "failure").Inc()
		return payload.Payload{}, fmt.Errorf("ws: decrypt packet: %w", err)
	}
	metrics.MessagesProcessed.WithLabelValues("inbound", "success").Inc()
	return p, nil
}

// Session returns the underlying client Session, for callers that want
// GetSelectedVersion/IsHandshakeComplete/RxCounter/TxCounter directly.
func (c *Client) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Close closes the WebSocket connection and wipes session key material.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return nil
	}
	c.session.Close()
	metrics.SessionsActive.Dec()
	metrics.SessionsClosed.Inc()
	err := c.ws.Close()
	c.ws = nil
	return err
}
