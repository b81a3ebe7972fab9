package service

import (
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"

	"androidagent/models"

	"github.com/tidwall/gjson"
)

// Control channel event names.
const (
	EventConnect        = "connect"
	EventDisconnect     = "disconnect"
	EventConnectError   = "connect_error"
	EventReceiveCommand = "receiveCommand"
	EventCommandResult  = "commandResult"
)

// Channel is a persistent, event-based connection to the control server.
// Handlers run on the channel's own goroutine.
type Channel interface {
	On(event string, handler func(args []json.RawMessage))
	// Off removes every registered handler.
	Off()
	// Connect starts connecting in the background and returns immediately.
	Connect()
	Emit(event string, args ...any) error
	Disconnect() error
}

// ChannelFactory creates an unconnected Channel for serverURL.
type ChannelFactory func(serverURL string, query url.Values) (Channel, error)

// CommandSink accepts raw command payloads received on the channel.
type CommandSink interface {
	Submit(raw string) error
}

// ConnectionManager owns the single control channel of a session.
//
// Connect, Send and Disconnect run on one worker goroutine, so they never race
// on the channel handle. Listener notifications are delivered through a
// separate Dispatcher in the order the transitions happened.
type ConnectionManager struct {
	serverURL  string
	newChannel ChannelFactory
	sink       CommandSink

	worker      *SerialQueue
	notifier    Dispatcher
	ownNotifier *SerialQueue
	listeners   ListenerRegistry

	notifyMu sync.Mutex // held across a transition and the posting of its notification
	mu       sync.Mutex
	state    models.ConnectionState
	gen      uint64 // bumped whenever the current channel is replaced or torn down

	channel Channel // only touched on the worker goroutine
}

type Option func(*ConnectionManager)

// WithDispatcher delivers listener notifications through d instead of the
// manager's own notification goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(m *ConnectionManager) {
		m.notifier = d
	}
}

func NewConnectionManager(serverURL string, newChannel ChannelFactory, sink CommandSink, opts ...Option) *ConnectionManager {
	m := &ConnectionManager{
		serverURL:  serverURL,
		newChannel: newChannel,
		sink:       sink,
		worker:     NewSerialQueue("channel", 64),
		state:      models.ConnectionState{Status: models.StatusDisconnected},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.ownNotifier = NewSerialQueue("notify", 256)
		m.notifier = m.ownNotifier
	}
	return m
}

func (m *ConnectionManager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionManager) IsConnected() bool {
	return m.State().Connected()
}

// AddListener subscribes l to state changes.
func (m *ConnectionManager) AddListener(l ConnectionListener) *Subscription {
	s := m.listeners.Add(l)
	log.Printf("👂 Listener added. Total listeners: %d", m.listeners.Len())
	return s
}

func (m *ConnectionManager) RemoveListener(l ConnectionListener) {
	m.listeners.Remove(l)
	log.Printf("👋 Listener removed. Total listeners: %d", m.listeners.Len())
}

// Connect opens the channel for identity in the background. It is a no-op
// when already connected or when identity has no device id.
func (m *ConnectionManager) Connect(identity models.DeviceIdentity) {
	if m.IsConnected() {
		log.Println("Already connected. Skipping Connect().")
		return
	}
	if identity.DeviceID == "" {
		log.Println("⚠️ Device ID is empty. Cannot connect to control channel.")
		return
	}
	deviceID := identity.DeviceID
	m.worker.Post(func() { m.open(deviceID) })
}

func (m *ConnectionManager) open(deviceID string) {
	state := m.State()
	if m.channel != nil && (state.Status == models.StatusConnected || state.Status == models.StatusConnecting) {
		log.Printf("Channel already %s. Skipping open.", state.Status)
		return
	}
	// A channel left over from an error or a server-side disconnect.
	m.closeChannel()

	ch, err := m.newChannel(m.serverURL, url.Values{"deviceId": {deviceID}})
	if err != nil {
		log.Printf("❌ Control channel setup failed: %v", err)
		m.advance(models.ConnectionState{Status: models.StatusError, Reason: err.Error()})
		return
	}

	log.Printf("🔗 Connecting to %s with deviceId=%s", m.serverURL, deviceID)
	gen := m.advance(models.ConnectionState{Status: models.StatusConnecting})
	m.channel = ch

	ch.On(EventConnect, func([]json.RawMessage) {
		log.Printf("✅ Control channel connected to %s with deviceId=%s", m.serverURL, deviceID)
		m.transition(gen, models.ConnectionState{Status: models.StatusConnected})
	})
	ch.On(EventDisconnect, func([]json.RawMessage) {
		log.Printf("Control channel disconnected from %s", m.serverURL)
		m.transition(gen, models.ConnectionState{Status: models.StatusDisconnected})
	})
	ch.On(EventConnectError, func(args []json.RawMessage) {
		reason := joinArgs(args)
		log.Printf("❌ Control channel connection error: %s", reason)
		m.transition(gen, models.ConnectionState{Status: models.StatusError, Reason: reason})
	})
	ch.On(EventReceiveCommand, func(args []json.RawMessage) {
		if m.current(gen) {
			m.handleCommand(args)
		}
	})
	ch.Connect()
}

// handleCommand hands the payload to the sink; execution happens off the channel goroutine.
func (m *ConnectionManager) handleCommand(args []json.RawMessage) {
	if len(args) == 0 {
		return
	}
	raw := commandPayload(args[0])
	if raw == "" {
		return
	}
	log.Printf("📥 Received command from channel: %s", raw)

	if m.sink == nil {
		log.Println("⚠️ No command sink configured, dropping command")
		return
	}
	if err := m.sink.Submit(raw); err != nil {
		log.Printf("⚠️ Failed to queue command: %v", err)
	}
}

// commandPayload accepts either a JSON string holding the command or the command object itself.
func commandPayload(arg json.RawMessage) string {
	r := gjson.ParseBytes(arg)
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.JSON:
		return r.Raw
	default:
		return ""
	}
}

func joinArgs(args []json.RawMessage) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		r := gjson.ParseBytes(a)
		if msg := r.Get("message"); msg.Exists() {
			parts = append(parts, msg.String())
			continue
		}
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

// Send emits an event on the channel. Delivery is best effort; failures are only logged.
func (m *ConnectionManager) Send(event string, payload any) {
	m.worker.Post(func() {
		if m.channel == nil {
			log.Printf("⚠️ No channel, dropping event '%s'", event)
			return
		}
		log.Printf("📤 Emitting event '%s'", event)
		if err := m.channel.Emit(event, payload); err != nil {
			log.Printf("❌ Send error for event '%s': %v", event, err)
		}
	})
}

// Disconnect tears down the channel. It is safe in any state and always
// produces exactly one Disconnected notification.
func (m *ConnectionManager) Disconnect() {
	m.worker.Post(func() {
		log.Println("🔌 Disconnecting control channel and cleaning up resources.")
		m.closeChannel()
		m.advance(models.ConnectionState{Status: models.StatusDisconnected})
	})
}

// Close disconnects and stops the manager's goroutines after pending work drains.
func (m *ConnectionManager) Close() {
	m.Disconnect()
	m.worker.Close()
	if m.ownNotifier != nil {
		m.ownNotifier.Close()
	}
}

func (m *ConnectionManager) closeChannel() {
	if m.channel == nil {
		return
	}
	ch := m.channel
	m.channel = nil

	m.mu.Lock()
	m.gen++
	m.mu.Unlock()

	ch.Off()
	if err := ch.Disconnect(); err != nil {
		log.Printf("⚠️ Channel disconnect error: %v", err)
	}
}

func (m *ConnectionManager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// advance starts a new generation with state and notifies.
func (m *ConnectionManager) advance(state models.ConnectionState) uint64 {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state = state
	m.mu.Unlock()

	m.notify(state)
	return gen
}

// transition applies state if gen is still current. Late callbacks from a
// replaced channel are dropped.
func (m *ConnectionManager) transition(gen uint64, state models.ConnectionState) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.mu.Unlock()

	m.notify(state)
}

func (m *ConnectionManager) notify(state models.ConnectionState) {
	listeners := m.listeners.Snapshot()
	if len(listeners) == 0 {
		return
	}
	m.notifier.Post(func() {
		for _, l := range listeners {
			deliver(l, state)
		}
	})
}

func deliver(l ConnectionListener, state models.ConnectionState) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("❌ Connection listener panicked: %v", p)
		}
	}()
	l.OnConnectionStateChanged(state)
}
