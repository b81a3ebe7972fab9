package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"androidagent/models"
)

var ErrNotRegistered = errors.New("device is not registered")

// AgentOptions configures an Agent.
type AgentOptions struct {
	BaseURL      string
	SocketHost   string
	ServerSecret string
	DeviceModel  string

	QueueSize     int
	ReportResults bool

	NewChannel ChannelFactory
	// Dispatcher receives listener notifications; nil uses a dedicated goroutine.
	Dispatcher Dispatcher
}

// Agent is one device session: identity, registration, the control channel
// and command execution. Create it with NewAgent and release it with Close.
type Agent struct {
	store        IdentityStore
	registration *RegistrationClient
	conn         *ConnectionManager
	router       *CommandRouter

	serverSecret string
	deviceModel  string
}

func NewAgent(store IdentityStore, capability InputCapability, opts AgentOptions) *Agent {
	router := NewCommandRouter(capability, opts.QueueSize)

	var connOpts []Option
	if opts.Dispatcher != nil {
		connOpts = append(connOpts, WithDispatcher(opts.Dispatcher))
	}
	conn := NewConnectionManager(opts.SocketHost, opts.NewChannel, router, connOpts...)

	if opts.ReportResults {
		router.OnResult(func(result models.CommandResult) {
			conn.Send(EventCommandResult, result)
		})
	}

	return &Agent{
		store:        store,
		registration: NewRegistrationClient(opts.BaseURL, opts.ServerSecret, opts.DeviceModel, store),
		conn:         conn,
		router:       router,
		serverSecret: opts.ServerSecret,
		deviceModel:  opts.DeviceModel,
	}
}

// Register registers the device under name and marks it registered.
func (a *Agent) Register(ctx context.Context, name string) (models.DeviceIdentity, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		if err := a.store.SaveDeviceName(name); err != nil {
			return models.DeviceIdentity{}, fmt.Errorf("save device name: %w", err)
		}
	}

	identity, err := a.registration.Register(ctx, name)
	if err != nil {
		return models.DeviceIdentity{}, err
	}

	if err := a.store.SetRegistered(true); err != nil {
		return models.DeviceIdentity{}, fmt.Errorf("mark registered: %w", err)
	}
	log.Printf("✅ Device registered successfully as %q (%s)", identity.DeviceName, identity.DeviceID)
	return identity, nil
}

// Registered reports whether a registration has completed on this installation.
func (a *Agent) Registered() (bool, error) {
	return a.store.IsRegistered()
}

// Identity loads the stored identity. It returns ErrNotRegistered when no device id is stored.
func (a *Agent) Identity() (models.DeviceIdentity, error) {
	id, err := a.store.DeviceID()
	if err != nil {
		return models.DeviceIdentity{}, err
	}
	if id == "" {
		return models.DeviceIdentity{}, ErrNotRegistered
	}
	name, err := a.store.DeviceName()
	if err != nil {
		return models.DeviceIdentity{}, err
	}
	return models.DeviceIdentity{
		DeviceID:    id,
		DeviceName:  name,
		DeviceModel: a.deviceModel,
		SecretKey:   ClientSecretKey(a.serverSecret),
	}, nil
}

// Connect opens the control channel with the stored identity.
func (a *Agent) Connect() error {
	identity, err := a.Identity()
	if err != nil {
		return err
	}
	a.conn.Connect(identity)
	return nil
}

func (a *Agent) Disconnect() {
	a.conn.Disconnect()
}

func (a *Agent) State() models.ConnectionState {
	return a.conn.State()
}

func (a *Agent) Subscribe(l ConnectionListener) *Subscription {
	return a.conn.AddListener(l)
}

func (a *Agent) Unsubscribe(l ConnectionListener) {
	a.conn.RemoveListener(l)
}

// OnResult registers a handler for every executed command.
func (a *Agent) OnResult(h ResultHandler) {
	a.router.OnResult(h)
}

// Execute decodes and runs a command payload synchronously.
func (a *Agent) Execute(raw string) (models.CommandResult, error) {
	return a.router.HandleRaw(raw)
}

// Reset disconnects and forgets the stored identity.
func (a *Agent) Reset() error {
	a.conn.Disconnect()
	return a.store.Clear()
}

// Close tears the session down. Queued commands finish first.
func (a *Agent) Close() {
	a.conn.Close()
	a.router.Close()
}
