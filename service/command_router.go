package service

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"androidagent/models"
)

var (
	ErrQueueFull         = errors.New("command queue full")
	ErrRouterClosed      = errors.New("command router closed")
	ErrNoEditableSurface = errors.New("editable field not found")
)

// ResultHandler receives every CommandResult produced from a queued command.
type ResultHandler func(models.CommandResult)

// CommandRouter decodes inbound command payloads and executes them against an InputCapability.
// Queued payloads are processed one at a time, in receipt order, on the router's own goroutine.
type CommandRouter struct {
	capability InputCapability
	queue      chan string
	done       chan struct{}

	mu       sync.RWMutex
	closed   bool
	handlers []ResultHandler
}

func NewCommandRouter(capability InputCapability, queueSize int) *CommandRouter {
	if queueSize <= 0 {
		queueSize = 100
	}
	router := &CommandRouter{
		capability: capability,
		queue:      make(chan string, queueSize),
		done:       make(chan struct{}),
	}

	go router.ProcessCommandQueue()

	return router
}

// OnResult registers a handler that is called after each queued command executes.
func (r *CommandRouter) OnResult(h ResultHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Submit queues a raw payload without blocking.
func (r *CommandRouter) Submit(raw string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRouterClosed
	}
	select {
	case r.queue <- raw:
		return nil
	default:
		return ErrQueueFull
	}
}

// ProcessCommandQueue drains the queue until Close is called.
func (r *CommandRouter) ProcessCommandQueue() {
	defer close(r.done)
	for raw := range r.queue {
		if _, err := r.HandleRaw(raw); err != nil {
			log.Printf("⚠️ Dropping command: %v", err)
		}
	}
}

// HandleRaw decodes and executes a single payload. Decode failures produce no result.
func (r *CommandRouter) HandleRaw(raw string) (models.CommandResult, error) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		return models.CommandResult{}, err
	}

	result := r.Execute(cmd)
	log.Printf("🎯 Command %s: success=%v, %s", result.CommandType, result.Success, result.Message)

	r.mu.RLock()
	handlers := make([]ResultHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		h(result)
	}
	return result, nil
}

// Execute runs cmd against the capability layer. It never panics; failures
// become a result with Success=false.
func (r *CommandRouter) Execute(cmd models.RemoteCommand) (result models.CommandResult) {
	commandType := "unknown"
	if cmd != nil {
		commandType = cmd.Type()
	}

	defer func() {
		if p := recover(); p != nil {
			log.Printf("❌ Command %s panicked: %v", commandType, p)
			result = models.NewCommandResult(false, fmt.Sprintf("execution failed: %v", p), commandType)
		}
	}()

	switch c := cmd.(type) {
	case models.Tap:
		if !r.capability.Tap(c.X, c.Y) {
			return models.NewCommandResult(false, fmt.Sprintf("tap at (%g, %g) rejected", c.X, c.Y), commandType)
		}
		return models.NewCommandResult(true, fmt.Sprintf("tap dispatched at (%g, %g)", c.X, c.Y), commandType)

	case models.Swipe:
		if !r.capability.Swipe(c.StartX, c.StartY, c.EndX, c.EndY, c.DurationMs) {
			return models.NewCommandResult(false, "swipe rejected", commandType)
		}
		return models.NewCommandResult(true, fmt.Sprintf("swipe dispatched from (%g, %g) to (%g, %g) over %dms",
			c.StartX, c.StartY, c.EndX, c.EndY, c.DurationMs), commandType)

	case models.InputText:
		return r.inputText(c.Text, commandType)

	case models.GlobalAction:
		// The platform's own return value does not affect the result.
		if !r.capability.TriggerGlobalAction(c.Action) {
			log.Printf("⚠️ Global action %s was not accepted by the platform", c.Action)
		}
		return models.NewCommandResult(true, fmt.Sprintf("global action %s dispatched", c.Action), commandType)

	default:
		return models.NewCommandResult(false, fmt.Sprintf("unsupported command %T", cmd), commandType)
	}
}

// inputText sets text on the first editable field, or puts it on the clipboard
// when no field can be used. The clipboard path always reports success.
func (r *CommandRouter) inputText(text, commandType string) models.CommandResult {
	ok, err := r.findAndSetText(text)
	if err == nil {
		log.Printf("⌨️ Set text success: %v", ok)
		if !ok {
			return models.NewCommandResult(false, "editable field rejected text", commandType)
		}
		return models.NewCommandResult(true, "text set on editable field", commandType)
	}

	log.Printf("📋 Unable to set text (%v), copying to clipboard instead", err)
	if cerr := r.capability.CopyToClipboard(text); cerr != nil {
		log.Printf("❌ Clipboard copy failed: %v", cerr)
		return models.NewCommandResult(true, "clipboard fallback failed: "+cerr.Error(), commandType)
	}
	return models.NewCommandResult(true, "text copied to clipboard", commandType)
}

func (r *CommandRouter) findAndSetText(text string) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("set text: %v", p)
		}
	}()

	surface, err := r.capability.FindEditableSurface()
	if err != nil {
		return false, err
	}
	if surface == nil {
		return false, ErrNoEditableSurface
	}
	return r.capability.SetText(surface, text), nil
}

// Close stops accepting payloads and waits for queued ones to finish.
func (r *CommandRouter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}
