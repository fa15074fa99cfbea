package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nibblemarket/go-chatclient/internal/api"
	"github.com/nibblemarket/go-chatclient/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// EventHandler receives inbound socket events and connection lifecycle
// changes. Handlers are invoked from the connection's goroutines; any state
// they need (the active room in particular) must be read at call time, not
// captured when the connection was built.
type EventHandler interface {
	HandleConnected()
	HandleDisconnected(err error)
	HandleNewMessage(msg types.Message)
	HandleRoomUpdate(room types.Room)
	HandleSocketError(msg string)
}

// Socket is the outbound surface the session uses. Conn implements it.
type Socket interface {
	Connected() bool
	JoinRoom(roomId int) bool
	SendMessage(msg types.Message) bool
}

// Conn owns the single live socket connection of a page session and its
// lifecycle: connect, bounded reconnection with a fixed delay, teardown, and
// dispatch of inbound envelopes to the handler.
type Conn struct {
	url            string
	token          api.TokenSource
	handler        EventHandler
	log            *log.Logger
	dialer         *websocket.Dialer
	maxReconnects  int
	reconnectDelay time.Duration

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	send      chan *Envelope
	stop      chan struct{}
	attempts  int
	closed    bool
}

func NewConn(socketURL string, token api.TokenSource, handler EventHandler, maxReconnects int, reconnectDelay time.Duration, logger *log.Logger) *Conn {
	return &Conn{
		url:            socketURL,
		token:          token,
		handler:        handler,
		log:            logger,
		dialer:         websocket.DefaultDialer,
		maxReconnects:  maxReconnects,
		reconnectDelay: reconnectDelay,
	}
}

// Connect establishes the socket connection. Idempotent: if a live connection
// already exists nothing happens. A stale, no-longer-connected socket is torn
// down before redialing so no connection object leaks. A failed dial returns
// the error and leaves the bounded retry loop running in the background; the
// retry policy covers the first connect the same as any later drop.
func (c *Conn) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.closed = false
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		go c.reconnect()
		return err
	}

	return nil
}

func (c *Conn) dial() error {
	header := http.Header{}
	if token := c.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := c.dialer.Dial(c.url, header)
	if err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed || c.connected {
		// Close or another dial raced this one; drop the fresh socket.
		c.mu.Unlock()
		ws.Close()
		return fmt.Errorf("connection superseded")
	}
	c.ws = ws
	c.connected = true
	c.attempts = 0
	c.send = make(chan *Envelope, 256)
	c.stop = make(chan struct{})
	send, stop := c.send, c.stop
	c.mu.Unlock()

	go c.writeLoop(ws, send, stop)
	go c.readLoop(ws)

	c.handler.HandleConnected()
	return nil
}

// Close tears the connection down deliberately. No reconnect is attempted.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.teardownLocked()
}

func (c *Conn) teardownLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.connected = false
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// JoinRoom signals the server to route the room's push events to this
// connection. Join is idempotent server-side, so re-issuing it on reconnect
// or on repeated activation is safe.
func (c *Conn) JoinRoom(roomId int) bool {
	env, err := NewJoinRoomEvent(roomId)
	if err != nil {
		c.log.Println("join room event:", err)
		return false
	}

	return c.queueEvent(env)
}

// SendMessage broadcasts a confirmed message so other participants' push
// paths pick it up. Only server-confirmed messages belong here; placeholders
// never leave the local timeline.
func (c *Conn) SendMessage(msg types.Message) bool {
	env, err := NewSendMessageEvent(msg)
	if err != nil {
		c.log.Println("send message event:", err)
		return false
	}

	return c.queueEvent(env)
}

func (c *Conn) queueEvent(env *Envelope) bool {
	c.mu.Lock()
	send := c.send
	connected := c.connected
	c.mu.Unlock()

	if !connected || send == nil {
		return false
	}

	select {
	case send <- env:
		return true
	default:
		c.log.Println("failed to queue event, channel is full")
		return false
	}
}

func (c *Conn) writeLoop(ws *websocket.Conn, send chan *Envelope, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case env := <-send:
			raw, err := json.Marshal(env)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.log.Println("write event:", err)
				return
			}
		case <-stop:
			return
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	defer c.log.Println("read exiting")

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(appData string) error { ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.handleReadExit(ws, err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Println("error parsing event:", err)
			continue
		}

		c.dispatch(&env)
	}
}

func (c *Conn) dispatch(env *Envelope) {
	switch env.Event {
	case EventNewMessage:
		msg, ok := decodeMessage(env.Data)
		if !ok {
			c.log.Println("dropping malformed new-message event")
			return
		}
		c.handler.HandleNewMessage(msg)
	case EventRoomUpdate:
		room, ok := decodeRoom(env.Data)
		if !ok {
			c.log.Println("dropping malformed room-update event")
			return
		}
		c.handler.HandleRoomUpdate(room)
	case EventError:
		// An error event does not terminate the connection.
		c.handler.HandleSocketError(decodeError(env.Data))
	default:
		c.log.Printf("unknown event %q", env.Event)
	}
}

func (c *Conn) handleReadExit(ws *websocket.Conn, err error) {
	c.mu.Lock()
	// Another connection may have replaced this one already; only the owner
	// of the current socket gets to flip state and reconnect.
	if c.ws != ws {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	deliberate := c.closed
	c.mu.Unlock()

	c.handler.HandleDisconnected(err)

	if deliberate {
		return
	}

	// A close frame from the server means the drop was server-initiated;
	// schedule a delayed redial rather than giving up. Transport-level errors
	// go through the same bounded retry policy.
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Println("ws: read:", err)
	}

	go c.reconnect()
}

func (c *Conn) reconnect() {
	for {
		c.mu.Lock()
		if c.closed || c.connected || c.attempts >= c.maxReconnects {
			c.mu.Unlock()
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		time.Sleep(c.reconnectDelay)

		if err := c.dial(); err != nil {
			c.log.Printf("reconnect attempt %d/%d: %v", attempt, c.maxReconnects, err)
			continue
		}
		return
	}
}
