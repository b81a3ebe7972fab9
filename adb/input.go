package adb

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"androidagent/models"
)

// Android key codes for the global actions.
const (
	keycodeHome      = 3
	keycodeBack      = 4
	keycodeAppSwitch = 187
	keycodeSleep     = 223
)

// tapDurationMs is the length of the stationary press used for a tap.
const tapDurationMs = "100"

var ErrNotEditableField = errors.New("surface is not an editable field")

func coord(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}

// Tap presses screen pixel (x, y) for tapDurationMs.
func (c *Client) Tap(x, y float64) bool {
	px, py := coord(x), coord(y)
	if _, err := c.shell("input", "swipe", px, py, px, py, tapDurationMs); err != nil {
		log.Printf("❌ Tap failed: %v", err)
		return false
	}
	return true
}

// Swipe sends a straight swipe lasting durationMs.
func (c *Client) Swipe(startX, startY, endX, endY float64, durationMs int64) bool {
	_, err := c.shell("input", "swipe",
		coord(startX), coord(startY),
		coord(endX), coord(endY),
		strconv.FormatInt(durationMs, 10))
	if err != nil {
		log.Printf("❌ Swipe failed: %v", err)
		return false
	}
	return true
}

// FindEditableSurface returns the focused text field, or the first one on
// screen. It returns nil when the screen has none.
func (c *Client) FindEditableSurface() (any, error) {
	output, err := c.command("exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return nil, fmt.Errorf("dump window hierarchy: %w", err)
	}
	field, err := findEditableField(output)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, nil
	}
	return *field, nil
}

// SetText focuses field and types text into it.
func (c *Client) SetText(surface any, text string) bool {
	field, ok := surface.(EditableField)
	if !ok {
		log.Printf("❌ Set text failed: %v (%T)", ErrNotEditableField, surface)
		return false
	}

	x, y := field.Bounds.Center()
	if _, err := c.shell("input", "tap", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		log.Printf("❌ Focus field %s failed: %v", field.ResourceID, err)
		return false
	}
	if text == "" {
		return true
	}
	if _, err := c.shell("input", "text", shellQuote(strings.ReplaceAll(text, " ", "%s"))); err != nil {
		log.Printf("❌ Text input failed: %v", err)
		return false
	}
	return true
}

// CopyToClipboard puts text on the device clipboard through the Clipper
// broadcast receiver, which must be installed on the device.
func (c *Client) CopyToClipboard(text string) error {
	output, err := c.shell("am", "broadcast", "-a", "clipper.set", "-e", "text", shellQuote(text))
	if err != nil {
		return fmt.Errorf("clipboard broadcast failed: %w", err)
	}
	if !strings.Contains(string(output), "result=-1") {
		return fmt.Errorf("clipboard receiver not available: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

// TriggerGlobalAction maps kind to a key event.
func (c *Client) TriggerGlobalAction(kind models.GlobalActionKind) bool {
	keycode, ok := globalKeycode(kind)
	if !ok {
		log.Printf("⚠️ No key event for global action %s", kind)
		return false
	}
	if _, err := c.shell("input", "keyevent", strconv.Itoa(keycode)); err != nil {
		log.Printf("❌ Key event %d failed: %v", keycode, err)
		return false
	}
	return true
}

func globalKeycode(kind models.GlobalActionKind) (int, bool) {
	switch kind {
	case models.ActionHome:
		return keycodeHome, true
	case models.ActionBack:
		return keycodeBack, true
	case models.ActionRecents:
		return keycodeAppSwitch, true
	case models.ActionLockScreen:
		return keycodeSleep, true
	}
	return 0, false
}
