// SPDX-License-Identifier: GPL-3.0-or-later

// Package remote implements the Remote Sender Consumer: a
// [pipeline.Consumer] that encodes batches and writes them to a
// persistent client-side WebSocket connection, with connect/disconnect
// lifecycle and the write-failure policy of the governing specification's
// §4.4.
//
// Grounded on the upstream source's WSHandle (an atomically-swapped
// connection cell with a CAS-retry lifecycle discipline); reimplemented
// here over [gorilla/websocket] with an [atomic.Pointer] connection cell
// in place of epoch-based reclamation, since Go's garbage collector makes
// hazard tracking unnecessary once no goroutine still holds the old
// connection.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bassosimone/tracemon/wire"
	"github.com/gorilla/websocket"
)

// maxMessageSize is the largest single encoded MonitorMsg this sender will
// attempt to write as-is; larger payloads trigger the capacity-exceeded
// fallback (§4.4, §7).
const maxMessageSize = 64 * 1024

// Config holds the sender's tunables.
type Config struct {
	// Logger receives lifecycle and per-message log events.
	Logger SLogger

	// ErrClassifier classifies transport errors for structured logging.
	ErrClassifier ErrClassifier

	// DialTimeout bounds the WebSocket handshake performed by Connect.
	DialTimeout time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
}

// NewConfig returns a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Logger:        DefaultSLogger(),
		ErrClassifier: DefaultErrClassifier,
		DialTimeout:   10 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// Sender wraps a persistent client-side WebSocket connection and presents
// a [pipeline.Consumer]-compatible callback ([Sender.Consume]) to the log
// pipeline.
//
// The connection cell is mutated by both lifecycle operations (Connect,
// Disconnect, called from any goroutine) and the drain goroutine's writes
// (Consume); both go through [Sender.conn], an [atomic.Pointer], so
// neither side needs a mutex on the hot write path (§4.4, §5).
type Sender struct {
	addr string
	cfg  *Config
	conn atomic.Pointer[remoteConn]
}

type remoteConn struct {
	ws *websocket.Conn
}

// New returns a [*Sender] targeting addr (e.g. "ws://localhost:31813/socket").
// cfg may be nil to use [NewConfig]'s defaults. The connection is not
// opened until [Sender.Connect] is called.
func New(addr string, cfg *Config) *Sender {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Sender{addr: addr, cfg: cfg}
}

// Connect opens the connection if not already open. Connect is idempotent:
// calling it while already connected is a no-op that returns nil.
func (s *Sender) Connect(ctx context.Context) error {
	if s.conn.Load() != nil {
		return nil
	}
	if _, err := url.Parse(s.addr); err != nil {
		return fmt.Errorf("remote: invalid address %q: %w", s.addr, err)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: s.cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, s.addr, nil)
	if err != nil {
		s.cfg.Logger.Info("remote: connect failed",
			"addr", s.addr, "err", err, "errClass", s.cfg.ErrClassifier.Classify(err))
		return fmt.Errorf("remote: connect: %w", err)
	}

	s.conn.Store(&remoteConn{ws: ws})
	s.cfg.Logger.Info("remote: connected", "addr", s.addr)
	return nil
}

// Disconnect closes the connection if open. Disconnect is idempotent.
func (s *Sender) Disconnect() error {
	old := s.conn.Swap(nil)
	if old == nil {
		return nil
	}
	s.cfg.Logger.Info("remote: disconnected", "addr", s.addr)
	return old.ws.Close()
}

// Close is an alias for Disconnect, satisfying the "Drop MUST also close"
// requirement of §4.4 in Go terms (no destructors: callers defer Close).
func (s *Sender) Close() error {
	return s.Disconnect()
}

// IsConnected reports whether the connection is currently open.
func (s *Sender) IsConnected() bool {
	return s.conn.Load() != nil
}

// Consume implements the pipeline.Consumer signature: it encodes each
// message in batch and writes one binary frame per message. If the
// connection is not open, Consume is a successful no-op (§4.4).
func (s *Sender) Consume(batch []wire.MonitorMsg) {
	for _, msg := range batch {
		s.SendToRemote(msg)
	}
}

// SendToRemote encodes and writes a single message, applying the
// write-failure policy of §4.4/§7:
//
//  1. Capacity exceeded (encoded payload larger than [maxMessageSize]):
//     substitute a MonitorError frame in its place.
//  2. First write failure: retry the write once.
//  3. The substitution/retry logic applies at most twice per message.
//  4. If the retried write also fails, the connection is closed: any
//     write error on [gorilla/websocket] leaves the connection's write
//     side unusable, so there is no genuinely transient condition to
//     distinguish it from a hard transport error (unlike, say, a
//     send-queue-full signal on a different stack). Subsequent calls are
//     no-ops until Connect succeeds again.
func (s *Sender) SendToRemote(msg wire.MonitorMsg) {
	cell := s.conn.Load()
	if cell == nil {
		return
	}

	payload, err := wire.Encode(msg)
	if err != nil {
		s.cfg.Logger.Info("remote: encode failed", "err", err)
		return
	}

	var writeErr error
	for attempt := 0; attempt < 2; attempt++ {
		if len(payload) > maxMessageSize {
			payload, err = wire.Encode(wire.MonitorError{
				Reason: fmt.Sprintf("message too large: %d bytes", len(payload)),
			})
			if err != nil {
				return
			}
		}

		writeErr = s.writeFrame(cell, payload)
		if writeErr == nil {
			return
		}

		s.cfg.Logger.Debug("remote: write failed", "attempt", attempt,
			"err", writeErr, "errClass", s.cfg.ErrClassifier.Classify(writeErr))
	}

	// Both attempts failed: close the connection so IsConnected and later
	// SendToRemote calls reflect reality instead of silently dropping
	// messages on a socket that is never coming back (§4.4 item 4).
	s.conn.CompareAndSwap(cell, nil)
	cell.ws.Close()
	s.cfg.Logger.Info("remote: connection closed after write failure",
		"err", writeErr, "errClass", s.cfg.ErrClassifier.Classify(writeErr))
}

func (s *Sender) writeFrame(cell *remoteConn, payload []byte) error {
	if s.cfg.WriteTimeout > 0 {
		cell.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return cell.ws.WriteMessage(websocket.BinaryMessage, payload)
}
