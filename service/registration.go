package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"androidagent/models"
)

const (
	RegisterDeviceEndpoint = "/register-device"

	deviceIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	deviceIDLength   = 8

	// Must match the salt the control server uses to derive client keys.
	secretSalt = "G7tkQ2mP1!zW9bX"
)

var ErrEmptyDeviceName = errors.New("device name is required")

// IdentityStore persists the device identity.
type IdentityStore interface {
	DeviceID() (string, error)
	SaveDeviceID(id string) error
	DeviceName() (string, error)
	SaveDeviceName(name string) error
	IsRegistered() (bool, error)
	SetRegistered(registered bool) error
	Clear() error
}

// RegistrationError describes a failed registration attempt. StatusCode is 0
// when the request never got a response.
type RegistrationError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RegistrationError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("registration failed (%d): %s: %v", e.StatusCode, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("registration failed: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("registration failed (%d): %s", e.StatusCode, e.Message)
	}
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// RegistrationClient registers this device with the control server.
type RegistrationClient struct {
	baseURL      string
	serverSecret string
	deviceModel  string
	store        IdentityStore
	httpClient   *http.Client
}

func NewRegistrationClient(baseURL, serverSecret, deviceModel string, store IdentityStore) *RegistrationClient {
	return &RegistrationClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serverSecret: serverSecret,
		deviceModel:  deviceModel,
		store:        store,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Register creates a fresh device id and registers it under deviceName. The id
// is persisted only when the server accepts the registration, so a failed
// attempt can simply be retried.
func (c *RegistrationClient) Register(ctx context.Context, deviceName string) (models.DeviceIdentity, error) {
	deviceName = strings.TrimSpace(deviceName)
	if deviceName == "" {
		return models.DeviceIdentity{}, &RegistrationError{Message: "invalid device name", Err: ErrEmptyDeviceName}
	}

	deviceID, err := GenerateShortID(deviceIDLength)
	if err != nil {
		return models.DeviceIdentity{}, &RegistrationError{Message: "generate device id", Err: err}
	}

	identity := models.DeviceIdentity{
		DeviceID:    deviceID,
		DeviceName:  deviceName,
		DeviceModel: c.deviceModel,
		SecretKey:   ClientSecretKey(c.serverSecret),
	}

	resp, err := c.post(ctx, models.RegistrationRequest{
		UserDeviceID:    identity.DeviceID,
		DeviceName:      identity.DeviceName,
		DeviceModel:     identity.DeviceModel,
		ClientSecretKey: identity.SecretKey,
	})
	if err != nil {
		return models.DeviceIdentity{}, err
	}
	log.Printf("📝 Device %s registered: %s", deviceID, resp.StatusMessage)

	if err := c.store.SaveDeviceID(deviceID); err != nil {
		return models.DeviceIdentity{}, &RegistrationError{StatusCode: http.StatusOK, Message: "persist device id", Err: err}
	}
	return identity, nil
}

func (c *RegistrationClient) post(ctx context.Context, body models.RegistrationRequest) (models.NetworkResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NetworkResponse{}, &RegistrationError{Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RegisterDeviceEndpoint, bytes.NewReader(payload))
	if err != nil {
		return models.NetworkResponse{}, &RegistrationError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NetworkResponse{}, &RegistrationError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.NetworkResponse{}, &RegistrationError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var envelope models.NetworkResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &envelope); err != nil && resp.StatusCode == http.StatusOK {
			return models.NetworkResponse{}, &RegistrationError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg := envelope.StatusMessage
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return models.NetworkResponse{}, &RegistrationError{StatusCode: resp.StatusCode, Message: msg}
	}
	// The envelope repeats the status; a body-level failure wins over HTTP 200.
	if envelope.StatusCode != 0 && envelope.StatusCode != http.StatusOK {
		return models.NetworkResponse{}, &RegistrationError{StatusCode: envelope.StatusCode, Message: envelope.StatusMessage}
	}
	return envelope, nil
}

// GenerateShortID returns a random alphanumeric id of the given length.
func GenerateShortID(length int) (string, error) {
	alphabetSize := big.NewInt(int64(len(deviceIDAlphabet)))
	id := make([]byte, length)
	for i := range id {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		id[i] = deviceIDAlphabet[n.Int64()]
	}
	return string(id), nil
}

// ClientSecretKey derives the pre-shared client key: the first 16 hex
// characters of SHA-256(serverSecret + salt).
func ClientSecretKey(serverSecret string) string {
	sum := sha256.Sum256([]byte(serverSecret + secretSalt))
	return hex.EncodeToString(sum[:])[:16]
}
