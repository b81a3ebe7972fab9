package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"androidagent/config"
	"androidagent/models"

	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := config.InitDatabase(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIdentityStoreEmpty(t *testing.T) {
	store := NewIdentityStore(openTestDB(t))

	id, err := store.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
	registered, err := store.IsRegistered()
	if err != nil {
		t.Fatalf("is registered: %v", err)
	}
	if registered {
		t.Fatal("fresh store should not be registered")
	}
}

func TestIdentityStoreRoundTrip(t *testing.T) {
	store := NewIdentityStore(openTestDB(t))

	if err := store.SaveDeviceID("aB3dE5gH"); err != nil {
		t.Fatalf("save id: %v", err)
	}
	if err := store.SaveDeviceName("Phone A"); err != nil {
		t.Fatalf("save name: %v", err)
	}
	if err := store.SetRegistered(true); err != nil {
		t.Fatalf("set registered: %v", err)
	}
	// Overwrite keeps a single row per key.
	if err := store.SaveDeviceName("Phone B"); err != nil {
		t.Fatalf("save name: %v", err)
	}

	id, _ := store.DeviceID()
	name, _ := store.DeviceName()
	registered, _ := store.IsRegistered()
	if id != "aB3dE5gH" || name != "Phone B" || !registered {
		t.Fatalf("unexpected identity: id=%q name=%q registered=%v", id, name, registered)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	id, _ = store.DeviceID()
	registered, _ = store.IsRegistered()
	if id != "" || registered {
		t.Fatalf("expected cleared identity, got id=%q registered=%v", id, registered)
	}
}

func TestResultLogRecent(t *testing.T) {
	log := NewResultLog(openTestDB(t))

	first := models.CommandResult{Success: true, Message: "tap dispatched", CommandType: "tap", Timestamp: 1000}
	second := models.CommandResult{Success: false, Message: "swipe rejected", CommandType: "swipe", Timestamp: 2000}

	for _, r := range []models.CommandResult{first, second} {
		id, err := log.Record(r)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}
	}

	records, err := log.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	got := []models.CommandResult{records[0].CommandResult, records[1].CommandResult}
	want := []models.CommandResult{second, first}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	limited, err := log.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(limited) != 1 || limited[0].CommandType != "swipe" {
		t.Fatalf("expected newest record only, got %+v", limited)
	}
}
