package models

import (
	"fmt"
	"time"
)

// DeviceIdentity is the registered identity of this device.
type DeviceIdentity struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	DeviceModel string `json:"device_model"`
	SecretKey   string `json:"-"`
}

// ConnectionStatus is the lifecycle state of the control channel
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s ConnectionStatus) String() string {
	return [...]string{"DISCONNECTED", "CONNECTING", "CONNECTED", "ERROR"}[s]
}

func (s ConnectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "DISCONNECTED":
		*s = StatusDisconnected
	case "CONNECTING":
		*s = StatusConnecting
	case "CONNECTED":
		*s = StatusConnected
	case "ERROR":
		*s = StatusError
	default:
		return fmt.Errorf("unknown connection status %q", text)
	}
	return nil
}

// ConnectionState is a snapshot of the control channel state.
// Reason is only set for StatusError.
type ConnectionState struct {
	Status ConnectionStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

func (s ConnectionState) Connected() bool {
	return s.Status == StatusConnected
}

func (s ConnectionState) String() string {
	if s.Reason != "" {
		return s.Status.String() + "(" + s.Reason + ")"
	}
	return s.Status.String()
}

// CommandResult is the outcome of executing one RemoteCommand.
type CommandResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CommandType string `json:"commandType"`
	Timestamp   int64  `json:"timestamp"` // epoch millis
}

// NewCommandResult stamps the result with the current time.
func NewCommandResult(success bool, message, commandType string) CommandResult {
	return CommandResult{
		Success:     success,
		Message:     message,
		CommandType: commandType,
		Timestamp:   time.Now().UnixMilli(),
	}
}
