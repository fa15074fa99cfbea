package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nibblemarket/go-chatclient/internal/api"
	"github.com/nibblemarket/go-chatclient/internal/testutil"
	"github.com/nibblemarket/go-chatclient/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	connects    chan struct{}
	disconnects chan error
	messages    chan types.Message
	rooms       chan types.Room
	errors      chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		connects:    make(chan struct{}, 8),
		disconnects: make(chan error, 8),
		messages:    make(chan types.Message, 8),
		rooms:       make(chan types.Room, 8),
		errors:      make(chan string, 8),
	}
}

func (h *recordingHandler) HandleConnected() {
	select {
	case h.connects <- struct{}{}:
	default:
	}
}

func (h *recordingHandler) HandleDisconnected(err error) {
	select {
	case h.disconnects <- err:
	default:
	}
}

func (h *recordingHandler) HandleNewMessage(m types.Message) { h.messages <- m }
func (h *recordingHandler) HandleRoomUpdate(r types.Room)    { h.rooms <- r }
func (h *recordingHandler) HandleSocketError(msg string)     { h.errors <- msg }

// newSocketServer starts a websocket test server. Each accepted connection is
// handed to serve; the returned counter tracks accepted connections.
func newSocketServer(t *testing.T, serve func(ws *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()

	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Log("upgrade:", err)
			return
		}
		accepted.Add(1)
		serve(ws)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), &accepted
}

// holdOpen keeps the server side of a connection reading until the peer goes
// away, discarding anything received.
func holdOpen(ws *websocket.Conn) {
	defer ws.Close()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestConn(t *testing.T, url string, handler EventHandler) *Conn {
	t.Helper()

	c := NewConn(url, api.StaticToken("testtoken"), handler, 3, 10*time.Millisecond, testutil.TestLogger(t))
	t.Cleanup(c.Close)
	return c
}

func TestConnect(t *testing.T) {
	handler := newRecordingHandler()
	url, accepted := newSocketServer(t, holdOpen)

	c := newTestConn(t, url, handler)

	err := c.Connect()
	assert.NoError(t, err, "expected connect to succeed")
	assert.True(t, c.Connected(), "expected connection to report connected")

	select {
	case <-handler.connects:
	case <-time.After(time.Second):
		t.Fatal("expected HandleConnected to be called")
	}

	assert.Equal(t, int32(1), accepted.Load(), "expected exactly one server-side connection")
}

func TestConnectIdempotent(t *testing.T) {
	handler := newRecordingHandler()
	url, accepted := newSocketServer(t, holdOpen)

	c := newTestConn(t, url, handler)

	require.NoError(t, c.Connect(), "expected first connect to succeed")
	require.NoError(t, c.Connect(), "expected second connect to be a no-op")

	assert.Equal(t, int32(1), accepted.Load(), "expected no duplicate socket for a repeated connect")
}

func TestConnectFailure(t *testing.T) {
	handler := newRecordingHandler()

	c := newTestConn(t, "ws://127.0.0.1:1/ws", handler)

	err := c.Connect()
	assert.Error(t, err, "expected connect to an unreachable server to fail")
	assert.False(t, c.Connected(), "expected connection to report not connected")
}

func TestRetryAfterFailedInitialConnect(t *testing.T) {
	handler := newRecordingHandler()

	var requests, accepted atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The backend is not up yet when the very first attempt lands.
		if requests.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		holdOpen(ws)
	}))
	t.Cleanup(srv.Close)

	c := newTestConn(t, "ws"+strings.TrimPrefix(srv.URL, "http"), handler)

	require.Error(t, c.Connect(), "expected the first connect to fail")

	select {
	case <-handler.connects:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a background retry to establish the connection")
	}

	assert.True(t, c.Connected(), "expected connection established by the retry loop")
	assert.Equal(t, int32(1), accepted.Load(), "expected exactly one live connection")
}

func TestJoinRoomEventSent(t *testing.T) {
	handler := newRecordingHandler()
	received := make(chan Envelope, 1)

	url, _ := newSocketServer(t, func(ws *websocket.Conn) {
		defer ws.Close()
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			received <- env
		}
		holdOpen(ws)
	})

	c := newTestConn(t, url, handler)
	require.NoError(t, c.Connect(), "expected connect to succeed")

	assert.True(t, c.JoinRoom(9), "expected join event to queue")

	select {
	case env := <-received:
		assert.Equal(t, EventJoinRoom, env.Event, "expected join-room event")
		assert.NotEmpty(t, env.Id, "expected a correlation id")

		var payload JoinRoomPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload), "expected payload to decode")
		assert.Equal(t, 9, payload.ChatroomId, "expected chatroom id in payload")
	case <-time.After(time.Second):
		t.Fatal("expected the server to receive the join event")
	}
}

func TestQueueEventWhileDisconnected(t *testing.T) {
	handler := newRecordingHandler()

	c := newTestConn(t, "ws://127.0.0.1:1/ws", handler)

	assert.False(t, c.JoinRoom(9), "expected join to be refused while disconnected")
	assert.False(t, c.SendMessage(types.Message{MessageId: 1, ChatroomId: 9}), "expected send to be refused while disconnected")
}

func TestInboundDispatch(t *testing.T) {
	handler := newRecordingHandler()

	url, _ := newSocketServer(t, func(ws *websocket.Conn) {
		defer ws.Close()

		writeEvent := func(event string, payload any) {
			data, _ := json.Marshal(payload)
			raw, _ := json.Marshal(Envelope{Event: event, Data: data})
			ws.WriteMessage(websocket.TextMessage, raw)
		}

		writeEvent(EventNewMessage, types.Message{MessageId: 5, ChatroomId: 9, Content: "hi"})
		writeEvent(EventRoomUpdate, types.Room{ChatroomId: 9, CustomerId: 10, SellerId: 20})
		writeEvent(EventError, ErrorPayload{Message: "rate limited"})
		holdOpen(ws)
	})

	c := newTestConn(t, url, handler)
	require.NoError(t, c.Connect(), "expected connect to succeed")

	select {
	case msg := <-handler.messages:
		assert.Equal(t, 5, msg.MessageId, "expected pushed message id")
		assert.Equal(t, 9, msg.ChatroomId, "expected pushed message room")
	case <-time.After(time.Second):
		t.Fatal("expected a new-message event to be dispatched")
	}

	select {
	case room := <-handler.rooms:
		assert.Equal(t, 9, room.ChatroomId, "expected pushed room id")
	case <-time.After(time.Second):
		t.Fatal("expected a room-update event to be dispatched")
	}

	select {
	case msg := <-handler.errors:
		assert.Equal(t, "rate limited", msg, "expected socket error message")
	case <-time.After(time.Second):
		t.Fatal("expected an error event to be dispatched")
	}

	// An error event must not terminate the connection.
	assert.True(t, c.Connected(), "expected connection to stay up after an error event")
}

func TestReconnectAfterServerClose(t *testing.T) {
	handler := newRecordingHandler()

	url, accepted := newSocketServer(t, func(ws *websocket.Conn) {
		// Server-initiated drop: send a close frame and hang up.
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseServiceRestart, "restarting"),
			time.Now().Add(time.Second))
		ws.Close()
	})

	c := newTestConn(t, url, handler)
	require.NoError(t, c.Connect(), "expected initial connect to succeed")

	// First connect.
	select {
	case <-handler.connects:
	case <-time.After(time.Second):
		t.Fatal("expected initial HandleConnected")
	}

	// The server closes every connection, so the client keeps retrying until
	// its bounded attempts run out.
	select {
	case <-handler.disconnects:
	case <-time.After(time.Second):
		t.Fatal("expected HandleDisconnected after server close")
	}

	assert.Eventually(t, func() bool {
		return accepted.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "expected at least one reconnect attempt to reach the server")
}

func TestCloseStopsReconnect(t *testing.T) {
	handler := newRecordingHandler()
	url, accepted := newSocketServer(t, holdOpen)

	c := newTestConn(t, url, handler)
	require.NoError(t, c.Connect(), "expected connect to succeed")

	c.Close()
	assert.False(t, c.Connected(), "expected not connected after close")

	// Give any stray reconnect a chance to run; none should.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), accepted.Load(), "expected no reconnect after a deliberate close")
}
