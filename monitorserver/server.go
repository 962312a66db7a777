// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitorserver implements the Monitor Server: a listener that
// accepts WebSocket clients, decodes each peer's binary frame stream
// into [wire.MonitorMsg] values, and hands them to a per-client
// [store.ClientInfoStore] (§4.5 of the governing specification).
//
// Grounded on `ribir-monitor/src/net.rs`'s WsListener/StreamHandle: the
// accept-handshake-decode shape is carried over, adapted to Go's
// goroutine-per-connection idiom in place of the original's
// single-threaded cooperative executor (spec.md §5 frames the executor
// choice as implementation guidance, not a testable invariant: the
// invariant enforced here is store ownership exclusivity, which one
// goroutine per client satisfies equally well).
package monitorserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bassosimone/tracemon/store"
	"github.com/bassosimone/tracemon/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultListenAddr is the default bind address (§6 of the governing
// specification).
const DefaultListenAddr = "127.0.0.1:31813"

// DefaultPath is the default WebSocket upgrade path.
const DefaultPath = "/socket"

// Config holds the server's tunables.
type Config struct {
	// ListenAddr is the TCP address to bind. Defaults to
	// [DefaultListenAddr].
	ListenAddr string

	// Path is the HTTP path the WebSocket upgrade is served on.
	// Defaults to [DefaultPath].
	Path string

	// HandshakeTimeout bounds the WebSocket upgrade handshake.
	HandshakeTimeout time.Duration

	// Logger receives lifecycle and per-frame log events.
	Logger SLogger

	// ErrClassifier classifies transport errors for structured logging.
	ErrClassifier ErrClassifier

	// NewStoreConfig builds the [store.Config] for a newly accepted
	// client named clientName. A nil value uses [store.NewConfig]'s
	// defaults for every client.
	NewStoreConfig func(clientName string) *store.Config

	// OnClient, if set, is invoked synchronously once per accepted
	// client, before its message loop starts, with the client's name,
	// remote address, and the [*store.ClientInfoStore] backing it. This
	// is the extension point a monitor UI or test harness uses to
	// observe per-client reconstruction.
	OnClient func(clientName string, remoteAddr net.Addr, st *store.ClientInfoStore)
}

// NewConfig returns a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ListenAddr:       DefaultListenAddr,
		Path:             DefaultPath,
		HandshakeTimeout: 10 * time.Second,
		Logger:           DefaultSLogger(),
		ErrClassifier:    DefaultErrClassifier,
	}
}

// Server accepts WebSocket clients and reconstructs each one's
// client info store.
type Server struct {
	cfg        *Config
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
}

// New returns a [*Server]. cfg may be nil to use [NewConfig]'s defaults.
// The listener is not bound until [Server.ListenAndServe] is called.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// Addr returns the bound listener's address. Valid only after
// [Server.ListenAndServe] has started listening.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds cfg.ListenAddr and runs the accept loop until ctx
// is cancelled or an unrecoverable listener error occurs. A WebSocket
// handshake failure on one peer drops that peer and the accept loop
// continues (§4.5, S6 of the governing specification).
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("monitorserver: listen: %w", err)
	}
	s.listener = ln
	s.cfg.Logger.Info("monitorserver: listening", "addr", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}

	stop := context.AfterFunc(ctx, func() {
		s.httpServer.Close()
	})
	defer stop()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close immediately shuts down the listener and any in-flight upgrade,
// without waiting for per-client handlers to drain.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// handleUpgrade performs the WebSocket handshake for one incoming HTTP
// request. A failed handshake drops the connection and leaves the
// accept loop (the surrounding [*http.Server]) untouched (§4.5).
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.cfg.Logger.Info("monitorserver: handshake failed",
			"err", err, "errClass", s.cfg.ErrClassifier.Classify(err))
		return
	}
	s.cfg.Logger.Info("monitorserver: connection established", "addr", conn.RemoteAddr().String())
	go s.serveClient(conn)
}

// serveClient owns one [*store.ClientInfoStore] for the lifetime of one
// accepted peer: reads frames, decodes, and records, until the peer
// closes or a hard transport error occurs (§4.5, §5: "each store is
// owned by exactly one task").
func (s *Server) serveClient(conn *websocket.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr()
	clientName := defaultClientName(uuid.NewString())

	storeCfg := store.NewConfig()
	if s.cfg.NewStoreConfig != nil {
		if cc := s.cfg.NewStoreConfig(clientName); cc != nil {
			storeCfg = cc
		}
	}
	st := store.New(storeCfg)

	if s.cfg.OnClient != nil {
		s.cfg.OnClient(clientName, remoteAddr, st)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err) {
				s.cfg.Logger.Info("monitorserver: connection error",
					"addr", remoteAddr.String(), "err", err,
					"errClass", s.cfg.ErrClassifier.Classify(err))
			} else {
				s.cfg.Logger.Info("monitorserver: connection closed", "addr", remoteAddr.String())
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			// Text frames and ping/pong control frames (handled
			// transparently by gorilla/websocket's read loop) carry no
			// MonitorMsg payload and are ignored (§4.5, §6).
			continue
		}

		msg, err := wire.Decode(data)
		if err != nil {
			// A decode failure must not poison the stream: log and move
			// on to the next frame (§4.2, §7).
			s.cfg.Logger.Debug("monitorserver: decode failed",
				"addr", remoteAddr.String(), "err", err)
			continue
		}
		s.cfg.Logger.Debug("monitorserver: recorded message", "addr", remoteAddr.String())
		st.Record(msg)
	}
}

func defaultClientName(id string) string {
	return "client-" + id
}
