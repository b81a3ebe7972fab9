package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	keyDeviceID   = "device_id"
	keyDeviceName = "device_name"
	keyRegistered = "is_registered"
)

// IdentityStore persists the device identity as key/value rows in SQLite.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// DeviceID returns the stored device id, or "" if none has been saved.
func (s *IdentityStore) DeviceID() (string, error) {
	return s.get(keyDeviceID)
}

func (s *IdentityStore) SaveDeviceID(id string) error {
	return s.put(keyDeviceID, id)
}

func (s *IdentityStore) DeviceName() (string, error) {
	return s.get(keyDeviceName)
}

func (s *IdentityStore) SaveDeviceName(name string) error {
	return s.put(keyDeviceName, name)
}

func (s *IdentityStore) IsRegistered() (bool, error) {
	v, err := s.get(keyRegistered)
	if err != nil || v == "" {
		return false, err
	}
	registered, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", keyRegistered, err)
	}
	return registered, nil
}

func (s *IdentityStore) SetRegistered(registered bool) error {
	return s.put(keyRegistered, strconv.FormatBool(registered))
}

// Clear removes every stored identity value.
func (s *IdentityStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM identity`); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM identity WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (s *IdentityStore) put(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO identity (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
