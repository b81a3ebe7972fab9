// Package socketio is a minimal Socket.IO v5 client (Engine.IO v4, websocket
// transport only) for the device control channel.
package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Local events fired by the client itself.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

const (
	writeWait           = 10 * time.Second
	handshakeTimeout    = 15 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	sendBufferSize      = 64
	maxMessageSize      = 1 << 20
)

var (
	ErrNotConnected = errors.New("socketio: not connected")
	ErrClosed       = errors.New("socketio: client closed")
	ErrSendBuffer   = errors.New("socketio: send buffer full")
)

// Handler receives the JSON arguments of an event.
type Handler func(args []json.RawMessage)

// Client is a single-use connection. After Disconnect a new Client is needed.
type Client struct {
	url    string
	dialer *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	handlers  map[string]Handler
	started   bool
	send      chan []byte
	connected bool
}

// New prepares a client for serverURL. query is added to the handshake URL.
func New(serverURL string, query url.Values) (*Client, error) {
	u, err := BuildURL(serverURL, query)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:      u,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]Handler),
	}, nil
}

// BuildURL turns a server address into the Engine.IO websocket endpoint.
func BuildURL(serverURL string, query url.Values) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) On(event string, handler func(args []json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Off removes every handler.
func (c *Client) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = make(map[string]Handler)
}

// Connect dials in the background. Outcome is reported through the connect
// and connect_error handlers.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.ctx.Err() != nil {
		return
	}
	c.started = true
	go c.run()
}

// Emit sends an event with JSON-encodable args.
func (c *Client) Emit(event string, args ...any) error {
	payload, err := json.Marshal(append([]any{event}, args...))
	if err != nil {
		return fmt.Errorf("socketio: encode %s: %w", event, err)
	}

	c.mu.Lock()
	send := c.send
	c.mu.Unlock()

	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if send == nil {
		return ErrNotConnected
	}
	select {
	case send <- append([]byte("42"), payload...):
		return nil
	default:
		return ErrSendBuffer
	}
}

// Disconnect closes the connection. No further handlers are fired.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.handlers = make(map[string]Handler)
	c.mu.Unlock()
	c.cancel()
	return nil
}

func (c *Client) fire(event string, args ...json.RawMessage) {
	if c.ctx.Err() != nil {
		return
	}
	c.mu.Lock()
	h := c.handlers[event]
	c.mu.Unlock()
	if h != nil {
		h(args)
	}
}

func (c *Client) fail(err error) {
	msg, _ := sjson.Set("", "message", err.Error())
	c.fire(EventConnectError, json.RawMessage(msg))
}

func (c *Client) run() {
	conn, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		log.Printf("❌ Socket.IO dial %s failed: %v", c.url, err)
		c.fail(err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	heartbeat, err := c.handshake(conn)
	if err != nil {
		conn.Close()
		c.fail(err)
		return
	}

	send := make(chan []byte, sendBufferSize)
	send <- []byte("40")
	c.mu.Lock()
	c.send = send
	c.mu.Unlock()

	go c.writePump(conn, send)
	c.readPump(conn, send, heartbeat)
}

// handshake reads the Engine.IO open packet and returns the read deadline window.
func (c *Client) handshake(conn *websocket.Conn) (time.Duration, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read open packet: %w", err)
	}
	msg := string(data)
	if !strings.HasPrefix(msg, "0") {
		return 0, fmt.Errorf("unexpected open packet %q", msg)
	}

	open := gjson.Parse(msg[1:])
	interval := defaultPingInterval
	if v := open.Get("pingInterval"); v.Exists() {
		interval = time.Duration(v.Int()) * time.Millisecond
	}
	timeout := defaultPingTimeout
	if v := open.Get("pingTimeout"); v.Exists() {
		timeout = time.Duration(v.Int()) * time.Millisecond
	}
	log.Printf("🤝 Engine.IO session %s opened", open.Get("sid").String())
	return interval + timeout, nil
}

func (c *Client) readPump(conn *websocket.Conn, send chan []byte, heartbeat time.Duration) {
	defer func() {
		c.cancel()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(heartbeat))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			log.Printf("Socket.IO read error: %v", err)
			c.lost(err)
			return
		}

		msg := string(data)
		if msg == "" {
			continue
		}
		switch msg[0] {
		case '2': // ping
			select {
			case send <- []byte("3"):
			default:
				log.Println("⚠️ Send buffer full, skipping pong")
			}
		case '1': // close
			c.lost(errors.New("server closed the session"))
			return
		case '4':
			if !c.handlePacket(msg[1:]) {
				return
			}
		}
	}
}

// lost reports the end of the connection.
func (c *Client) lost(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if wasConnected {
		reason, _ := json.Marshal(err.Error())
		c.fire(EventDisconnect, reason)
		return
	}
	c.fail(err)
}

// handlePacket dispatches one Socket.IO packet. It returns false when the
// session ended.
func (c *Client) handlePacket(p string) bool {
	if p == "" {
		return true
	}
	body := p[1:]
	switch p[0] {
	case '0':
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.fire(EventConnect)
	case '1':
		c.lost(errors.New("server disconnect"))
		return false
	case '2':
		// Skip namespace and ack id up to the argument array.
		i := strings.IndexByte(body, '[')
		if i < 0 {
			log.Printf("⚠️ Malformed event packet: %s", p)
			return true
		}
		items := gjson.Parse(body[i:]).Array()
		if len(items) == 0 || items[0].Type != gjson.String {
			log.Printf("⚠️ Event packet without a name: %s", p)
			return true
		}
		args := make([]json.RawMessage, 0, len(items)-1)
		for _, item := range items[1:] {
			args = append(args, json.RawMessage(item.Raw))
		}
		c.fire(items[0].String(), args...)
	case '4':
		i := strings.IndexByte(body, '{')
		if i < 0 {
			c.fail(errors.New("connection refused"))
			return false
		}
		c.fire(EventConnectError, json.RawMessage(body[i:]))
		return false
	}
	return true
}

func (c *Client) writePump(conn *websocket.Conn, send chan []byte) {
	defer conn.Close()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Socket.IO write error: %v", err)
				return
			}

		case <-c.ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.TextMessage, []byte("41"))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
