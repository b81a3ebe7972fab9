package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"androidagent/config"
	"androidagent/models"
	"androidagent/service"
	"androidagent/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		BaseURL:          "http://unused.invalid",
		SocketHost:       "ws://unused.invalid",
		ServerSecret:     "pQ8!xR5zL2@vN7",
		DatabasePath:     filepath.Join(t.TempDir(), "agent.db"),
		ADBPath:          "adb",
		DeviceModel:      "Pixel 7",
		CommandQueueSize: 4,
	}
}

func TestNewAppRecordsResults(t *testing.T) {
	a, err := newApp(testConfig(t), false)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if _, err := a.agent.Identity(); !errors.Is(err, service.ErrNotRegistered) {
		t.Fatalf("expected a fresh database to be unregistered, got %v", err)
	}

	// A payload that fails to decode produces no result.
	if _, err := a.agent.Execute(`{"type":"pinch"}`); err == nil {
		t.Fatal("expected decode error")
	}
	a.recordResult(models.NewCommandResult(true, "text copied to clipboard", "input_text"))

	records, err := a.results.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].CommandType != "input_text" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestNewAppUsesStoredIdentity(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg, false)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if err := a.identity.SaveDeviceID("Ab3dE6gH"); err != nil {
		t.Fatalf("SaveDeviceID: %v", err)
	}
	if err := a.identity.SaveDeviceName("tablet"); err != nil {
		t.Fatalf("SaveDeviceName: %v", err)
	}
	a.Close()

	a, err = newApp(cfg, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer a.Close()

	identity, err := a.agent.Identity()
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	want := models.DeviceIdentity{
		DeviceID:    "Ab3dE6gH",
		DeviceName:  "tablet",
		DeviceModel: "Pixel 7",
		SecretKey:   "e50b94e6f878fb66",
	}
	if identity != want {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestNewSocketChannelRejectsBadURL(t *testing.T) {
	if _, err := newSocketChannel("ftp://control.example", nil); err == nil {
		t.Fatal("expected error for an unsupported scheme")
	}
	ch, err := newSocketChannel("https://control.example", nil)
	if err != nil || ch == nil {
		t.Fatalf("expected a channel, got %v, %v", ch, err)
	}
}

func TestRenderIdentity(t *testing.T) {
	out := renderIdentity(models.DeviceIdentity{}, false)
	if !strings.Contains(out, "Not registered") {
		t.Fatalf("unexpected output %q", out)
	}

	out = renderIdentity(models.DeviceIdentity{DeviceID: "Ab3dE6gH", DeviceName: "tablet", DeviceModel: "Pixel 7"}, true)
	for _, want := range []string{"Ab3dE6gH", "tablet", "Pixel 7", "true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q is missing %q", out, want)
		}
	}
}

func TestRenderResults(t *testing.T) {
	if out := renderResults(nil); !strings.Contains(out, "No commands executed yet") {
		t.Fatalf("unexpected output %q", out)
	}

	out := renderResults([]storage.ResultRecord{
		{ID: "1", CommandResult: models.CommandResult{Success: true, CommandType: "tap", Message: "tap dispatched", Timestamp: 1700000000000}},
		{ID: "2", CommandResult: models.CommandResult{Success: false, CommandType: "swipe", Message: "swipe rejected", Timestamp: 1700000001000}},
	})
	for _, want := range []string{"Command", "tap", "swipe", "ok", "failed", "swipe rejected"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	dir := filepath.Join(t.TempDir(), "log")
	f, err := setupLogging(dir)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer f.Close()

	log.Printf("hello from the agent")
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from the agent") {
		t.Fatalf("log file does not contain the message:\n%s", data)
	}
}
