// SPDX-License-Identifier: GPL-3.0-or-later

package remote_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bassosimone/tracemon/remote"
	"github.com/bassosimone/tracemon/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer is a minimal echo-capture WebSocket server used to
// observe what the sender actually writes, adapted from the upstream
// source's own local TCP+WS capture test.
type captureServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	// killOnAccept, when set, makes the server reset the raw TCP
	// connection (SO_LINGER 0, then Close) right after the WebSocket
	// handshake instead of serving it, simulating a hard transport error
	// on the client's next write.
	killOnAccept bool

	mu       sync.Mutex
	received [][]byte
	killed   bool
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cs.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		if cs.killOnAccept {
			if tcp, ok := conn.UnderlyingConn().(*net.TCPConn); ok {
				tcp.SetLinger(0)
			}
			conn.UnderlyingConn().Close()
			cs.mu.Lock()
			cs.killed = true
			cs.mu.Unlock()
			return
		}

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			cs.mu.Lock()
			cs.received = append(cs.received, data)
			cs.mu.Unlock()
		}
	}))
	t.Cleanup(cs.server.Close)
	return cs
}

func (cs *captureServer) wasKilled() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.killed
}

func (cs *captureServer) wsURL() string {
	return "ws" + strings.TrimPrefix(cs.server.URL, "http") + "/socket"
}

func (cs *captureServer) countReceived() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.received)
}

func (cs *captureServer) last() []byte {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.received) == 0 {
		return nil
	}
	return cs.received[len(cs.received)-1]
}

func TestConnectSendDisconnect(t *testing.T) {
	cs := newCaptureServer(t)
	s := remote.New(cs.wsURL(), remote.NewConfig())

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())

	s.SendToRemote(wire.MonitorError{Reason: "hello"})

	require.Eventually(t, func() bool {
		return cs.countReceived() == 1
	}, time.Second, 5*time.Millisecond)

	decoded, err := wire.Decode(cs.last())
	require.NoError(t, err)
	assert.Equal(t, wire.MonitorError{Reason: "hello"}, decoded)

	// P6: after disconnect, IsConnected is false and SendToRemote is a
	// no-op until the next Connect.
	require.NoError(t, s.Disconnect())
	assert.False(t, s.IsConnected())

	s.SendToRemote(wire.MonitorError{Reason: "dropped"})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, cs.countReceived(), "no-op send after disconnect must not reach the server")

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())
}

// TestWriteFailureClosesConnection exercises §4.4 item 4: a hard
// transport error (here, the peer abruptly resetting the TCP connection
// mid-stream, not a clean WebSocket close) must close the sender's
// connection so IsConnected reflects reality, rather than being silently
// retried forever on a socket that is never coming back.
func TestWriteFailureClosesConnection(t *testing.T) {
	cs := newCaptureServer(t)
	cs.killOnAccept = true
	s := remote.New(cs.wsURL(), remote.NewConfig())

	require.NoError(t, s.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return cs.wasKilled()
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		s.SendToRemote(wire.MonitorError{Reason: "probe"})
		return !s.IsConnected()
	}, time.Second, 5*time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	cs := newCaptureServer(t)
	s := remote.New(cs.wsURL(), remote.NewConfig())

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())
}

// TestCapacityFallback exercises S5: an oversized message triggers a
// MonitorError substitution whose body is non-empty.
func TestCapacityFallback(t *testing.T) {
	cs := newCaptureServer(t)
	s := remote.New(cs.wsURL(), remote.NewConfig())
	require.NoError(t, s.Connect(context.Background()))

	huge := wire.MonitorError{Reason: strings.Repeat("x", 128*1024)}
	s.SendToRemote(huge)

	require.Eventually(t, func() bool {
		return cs.countReceived() == 1
	}, time.Second, 5*time.Millisecond)

	decoded, err := wire.Decode(cs.last())
	require.NoError(t, err)
	substituted, ok := decoded.(wire.MonitorError)
	require.True(t, ok)
	assert.NotEmpty(t, substituted.Reason)
}

func TestSendToRemoteNoOpWhenNotConnected(t *testing.T) {
	s := remote.New("ws://127.0.0.1:1/socket", remote.NewConfig())
	assert.False(t, s.IsConnected())
	s.SendToRemote(wire.MonitorError{Reason: "ignored"}) // must not panic or block
}
