package service

import "androidagent/models"

// Surface is an opaque handle to an editable input field found on screen.
type Surface = any

// InputCapability performs gestures and input on the device's UI.
// Implementations are platform specific; see package adb.
type InputCapability interface {
	// Tap presses a single point for a short fixed duration.
	Tap(x, y float64) bool
	Swipe(startX, startY, endX, endY float64, durationMs int64) bool
	// FindEditableSurface returns the first editable field reachable from the current screen.
	FindEditableSurface() (Surface, error)
	SetText(surface Surface, text string) bool
	CopyToClipboard(text string) error
	TriggerGlobalAction(action models.GlobalActionKind) bool
}
