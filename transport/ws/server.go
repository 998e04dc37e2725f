// SPDX-License-Identifier: LGPL-3.0-or-later

// Package ws is the optional WebSocket carrier layer spec.md §1 mentions:
// "the visible source treats bytes in / bytes out as the boundary, with
// an optional WebSocket carrier layer". It is peripheral to the core by
// design — the core only contracts that whatever transport is used
// delivers whole ciphertext frames in order on a given connection, and
// this package is one way to satisfy that contract. It owns no protocol
// semantics of its own: it drives a session.Session through its
// handshake and then shuttles binary frames to/from DecryptPacket and
// EncryptPayload.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/obscura-project/obscuraproto/crypto"
	"github.com/obscura-project/obscuraproto/internal/logger"
	"github.com/obscura-project/obscuraproto/internal/metrics"
	"github.com/obscura-project/obscuraproto/payload"
	"github.com/obscura-project/obscuraproto/session"
	"github.com/obscura-project/obscuraproto/wire"
)

// Handler processes one decoded Payload arriving on a Conn. A nil error
// lets the server keep reading; returning an error tears the connection
// down. The core itself never invokes this: DecryptPacket is a pure
// function of session state and wire bytes (spec §6). Handler dispatch
// lives entirely in this transport layer.
type Handler func(ctx context.Context, conn *Conn, p payload.Payload) error

// Conn is one accepted WebSocket connection paired with its established
// Session. It is the unit a Handler receives and the unit Server tracks
// for liveness/readiness reporting.
type Conn struct {
	ws      *websocket.Conn
	session *session.Session

	writeMu sync.Mutex
}

// Session returns the established Session backing this connection.
func (c *Conn) Session() *session.Session {
	return c.session
}

// Send encrypts p under the connection's Session and writes the
// resulting frame as a single binary WebSocket message.
func (c *Conn) Send(p payload.Payload) error {
	frame, err := c.session.EncryptPayload(p)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("outbound", "failure").Inc()
		return fmt.Errorf("ws: encrypt payload: %w", err)
	}
	metrics.MessagesProcessed.WithLabelValues("outbound", "success").Inc()
	metrics.MessageSize.Observe(float64(len(frame)))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("ws: write frame: %w", err)
	}
	return nil
}

// Close closes the underlying WebSocket connection and wipes the
// session's key material.
func (c *Conn) Close() error {
	c.session.Close()
	return c.ws.Close()
}

// Server accepts WebSocket connections, runs the server side of the
// handshake on each, and dispatches decrypted payloads through a
// host-supplied opcode → Handler map plus an optional default.
type Server struct {
	signKeys crypto.SignKeyPair

	handlers       map[uint16]Handler
	defaultHandler Handler

	upgrader websocket.Upgrader

	handshakeTimeout time.Duration
	readTimeout      time.Duration

	log logger.Logger

	mu        sync.RWMutex
	conns     map[*Conn]struct{}
	listening bool
}

// NewServer constructs a Server holding the long-term Ed25519 signing
// keypair every accepted connection's ServerRespondToHandshake call
// signs the transcript with.
func NewServer(signKeys crypto.SignKeyPair) *Server {
	return &Server{
		signKeys: signKeys,
		handlers: make(map[uint16]Handler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handshakeTimeout: 10 * time.Second,
		readTimeout:      60 * time.Second,
		log:              logger.GetDefaultLogger(),
		conns:            make(map[*Conn]struct{}),
	}
}

// SetLogger overrides the server's logger.
func (s *Server) SetLogger(l logger.Logger) {
	s.log = l
}

// SetTimeouts overrides the handshake and idle-read timeouts.
func (s *Server) SetTimeouts(handshake, read time.Duration) {
	s.handshakeTimeout = handshake
	s.readTimeout = read
}

// Handle registers the handler invoked for payloads carrying opCode.
func (s *Server) Handle(opCode uint16, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[opCode] = h
}

// HandleDefault registers the fallback handler for opcodes with no
// specific registration.
func (s *Server) HandleDefault(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultHandler = h
}

// ActiveConnections returns the number of connections currently tracked,
// for health.ActiveSessionsHealthCheck.
func (s *Server) ActiveConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Bound reports whether the server has accepted at least one upgrade
// request, for health.ListenerHealthCheck wiring at the cmd/ layer (the
// listener itself is owned by net/http, not this type).
func (s *Server) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listening
}

// HTTPHandler upgrades incoming requests to WebSocket connections and
// drives each one to completion. Mount it at the path the client dials.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", logger.Error(err))
			return
		}

		s.mu.Lock()
		s.listening = true
		s.mu.Unlock()

		if err := s.serveConn(r.Context(), wsConn); err != nil {
			s.log.Debug("connection closed", logger.Error(err))
		}
	})
}

func (s *Server) serveConn(ctx context.Context, wsConn *websocket.Conn) error {
	defer func() { _ = wsConn.Close() }()

	handshakeStart := time.Now()
	sess := session.NewServerSession(s.signKeys)
	metrics.HandshakesInitiated.WithLabelValues("server").Inc()
	established := false
	defer func() {
		if !established {
			metrics.SessionsCreated.WithLabelValues("failure").Inc()
		}
	}()

	if err := wsConn.SetReadDeadline(time.Now().Add(s.handshakeTimeout)); err != nil {
		return fmt.Errorf("ws: set handshake read deadline: %w", err)
	}
	_, helloBytes, err := wsConn.ReadMessage()
	if err != nil {
		metrics.HandshakesFailed.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("ws: read client hello: %w", err)
	}

	clientHello, err := wire.DeserializeClientHello(helloBytes)
	if err != nil {
		metrics.HandshakesFailed.WithLabelValues("malformed_message").Inc()
		return fmt.Errorf("ws: decode client hello: %w", err)
	}

	serverHello, err := sess.ServerRespondToHandshake(clientHello)
	if err != nil {
		metrics.HandshakesFailed.WithLabelValues("version_mismatch").Inc()
		return fmt.Errorf("ws: server handshake: %w", err)
	}

	if err := wsConn.WriteMessage(websocket.BinaryMessage, serverHello.Serialize()); err != nil {
		return fmt.Errorf("ws: write server hello: %w", err)
	}
	metrics.HandshakesCompleted.WithLabelValues("success").Inc()
	metrics.HandshakeDuration.WithLabelValues("server_respond").Observe(time.Since(handshakeStart).Seconds())
	established = true
	metrics.SessionsCreated.WithLabelValues("success").Inc()

	conn := &Conn{ws: wsConn, session: sess}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	metrics.SessionsActive.Inc()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		metrics.SessionsActive.Dec()
		metrics.SessionsClosed.Inc()
	}()

	for {
		if err := wsConn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return fmt.Errorf("ws: set read deadline: %w", err)
		}
		msgType, frame, err := wsConn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws: read frame: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		decryptStart := time.Now()
		p, err := sess.DecryptPacket(frame)
		metrics.SessionDuration.WithLabelValues("decrypt").Observe(time.Since(decryptStart).Seconds())
		if err != nil {
			metrics.MessagesProcessed.WithLabelValues("inbound", "failure").Inc()
			return fmt.Errorf("ws: decrypt packet: %w", err)
		}
		metrics.MessagesProcessed.WithLabelValues("inbound", "success").Inc()

		s.mu.RLock()
		handler, ok := s.handlers[p.OpCode]
		if !ok {
			handler = s.defaultHandler
		}
		s.mu.RUnlock()
		if handler == nil {
			s.log.Warn("no handler for opcode", logger.Int("op_code", int(p.OpCode)))
			continue
		}
		if err := handler(ctx, conn, p); err != nil {
			s.log.Warn("handler returned error", logger.Error(err))
			return fmt.Errorf("ws: handler: %w", err)
		}
	}
}

// Serve runs an HTTP server mounting HTTPHandler at path and blocks until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.HTTPHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.log.Info("websocket server listening", logger.String("addr", addr), logger.String("path", path))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ws: listen and serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
