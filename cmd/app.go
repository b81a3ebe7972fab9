package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"

	"androidagent/adb"
	"androidagent/config"
	"androidagent/models"
	"androidagent/service"
	"androidagent/socketio"
	"androidagent/storage"
)

const unknownModel = "unknown"

// app holds the wired components shared by the commands.
type app struct {
	db       *sql.DB
	identity *storage.IdentityStore
	results  *storage.ResultLog
	device   *adb.Client
	agent    *service.Agent
}

// newApp opens the database and builds the agent session. With probeDevice
// the attached device is resolved and asked for its model.
func newApp(cfg *config.Config, probeDevice bool) (*app, error) {
	db, err := config.InitDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		db:       db,
		identity: storage.NewIdentityStore(db),
		results:  storage.NewResultLog(db),
		device:   adb.NewClient(cfg.ADBPath, cfg.ADBSerial),
	}

	model := cfg.DeviceModel
	if probeDevice {
		model = a.probe(model)
	}
	if model == "" {
		model = unknownModel
	}

	a.agent = service.NewAgent(a.identity, a.device, service.AgentOptions{
		BaseURL:       cfg.BaseURL,
		SocketHost:    cfg.SocketHost,
		ServerSecret:  cfg.ServerSecret,
		DeviceModel:   model,
		QueueSize:     cfg.CommandQueueSize,
		ReportResults: cfg.ReportResults,
		NewChannel:    newSocketChannel,
	})
	a.agent.OnResult(a.recordResult)
	return a, nil
}

// probe pins the adb serial and fills in the model when it is not configured.
func (a *app) probe(model string) string {
	if err := a.device.ResolveSerial(); err != nil {
		log.Printf("⚠️ No usable device: %v", err)
		return model
	}
	if model != "" {
		return model
	}
	detected, err := a.device.DeviceModel()
	if err != nil {
		log.Printf("⚠️ Failed to read device model: %v", err)
		return ""
	}
	return detected
}

func (a *app) recordResult(result models.CommandResult) {
	if _, err := a.results.Record(result); err != nil {
		log.Printf("❌ Failed to record command result: %v", err)
	}
}

func (a *app) Close() error {
	a.agent.Close()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func newSocketChannel(serverURL string, query url.Values) (service.Channel, error) {
	c, err := socketio.New(serverURL, query)
	if err != nil {
		return nil, err
	}
	return c, nil
}
