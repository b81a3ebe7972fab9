package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the agent's configuration. Defaults point at the production control server.
type Config struct {
	BaseURL      string `env:"AGENT_BASE_URL" envDefault:"https://monitorappbe-production.up.railway.app"`
	SocketHost   string `env:"AGENT_SOCKET_HOST" envDefault:"wss://monitorappbe-production.up.railway.app"`
	ServerSecret string `env:"AGENT_SERVER_SECRET" envDefault:"pQ8!xR5zL2@vN7"`

	HTTPAddr     string `env:"AGENT_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	DatabasePath string `env:"AGENT_DB_PATH" envDefault:"./data/androidagent.db"`
	LogDir       string `env:"AGENT_LOG_DIR" envDefault:"log"`

	ADBPath     string `env:"AGENT_ADB_PATH" envDefault:"adb"`
	ADBSerial   string `env:"AGENT_ADB_SERIAL"`
	DeviceModel string `env:"AGENT_DEVICE_MODEL"` // empty: read from the device via getprop

	// ReportResults emits a "commandResult" event over the control channel after each command.
	ReportResults bool `env:"AGENT_REPORT_RESULTS" envDefault:"false"`

	CommandQueueSize    int           `env:"AGENT_COMMAND_QUEUE_SIZE" envDefault:"100"`
	RegistrationTimeout time.Duration `env:"AGENT_REGISTRATION_TIMEOUT" envDefault:"15s"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
