package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Runner executes a host command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client runs input and query commands on one device through the adb binary.
type Client struct {
	ADBPath string
	Serial  string
	Timeout time.Duration

	run Runner
}

// NewClient creates a client for serial. An empty serial lets adb pick the
// only attached device.
func NewClient(adbPath, serial string) *Client {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &Client{
		ADBPath: adbPath,
		Serial:  serial,
		Timeout: defaultTimeout,
		run:     execRunner,
	}
}

// WithRunner replaces the command runner.
func (c *Client) WithRunner(r Runner) *Client {
	c.run = r
	return c
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

func (c *Client) command(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	full := make([]string, 0, len(args)+2)
	if c.Serial != "" {
		full = append(full, "-s", c.Serial)
	}
	full = append(full, args...)
	return c.run(ctx, c.ADBPath, full...)
}

func (c *Client) shell(args ...string) ([]byte, error) {
	return c.command(append([]string{"shell"}, args...)...)
}

// ListDevices returns the serials of attached devices that are online.
func (c *Client) ListDevices() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	output, err := c.run(ctx, c.ADBPath, "devices")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return parseDeviceList(string(output)), nil
}

// parseDeviceList parses the output of 'adb devices'.
func parseDeviceList(output string) []string {
	var serials []string
	for i, line := range strings.Split(output, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		if parts[1] != "device" {
			log.Printf("⚠️ Skipping device %s because state is %s", parts[0], parts[1])
			continue
		}
		serials = append(serials, parts[0])
	}
	return serials
}

// ResolveSerial pins the client to a device when none was configured.
func (c *Client) ResolveSerial() error {
	if c.Serial != "" {
		return nil
	}
	serials, err := c.ListDevices()
	if err != nil {
		return err
	}
	switch len(serials) {
	case 0:
		return errors.New("no online device attached")
	case 1:
		c.Serial = serials[0]
		log.Printf("📱 Using device %s", c.Serial)
		return nil
	default:
		return fmt.Errorf("%d devices attached, set a serial: %s", len(serials), strings.Join(serials, ", "))
	}
}

func (c *Client) getProperty(property string) (string, error) {
	output, err := c.shell("getprop", property)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// DeviceModel returns a human readable model, e.g. "Google Pixel 7".
func (c *Client) DeviceModel() (string, error) {
	manufacturer, err := c.getProperty("ro.product.manufacturer")
	if err != nil {
		return "", fmt.Errorf("read manufacturer: %w", err)
	}
	model, err := c.getProperty("ro.product.model")
	if err != nil {
		return "", fmt.Errorf("read model: %w", err)
	}
	return formatModel(manufacturer, model), nil
}

func formatModel(manufacturer, model string) string {
	switch {
	case manufacturer == "":
		return model
	case model == "":
		return manufacturer
	case strings.HasPrefix(strings.ToLower(model), strings.ToLower(manufacturer)):
		return model
	}
	return manufacturer + " " + model
}

// shellQuote wraps s for the device shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
