package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"androidagent/models"
)

type fakeCapability struct {
	mu sync.Mutex

	tapOK    bool
	swipeOK  bool
	setOK    bool
	globalOK bool

	surface   Surface
	findErr   error
	findPanic bool
	clipErr   error
	block     chan struct{}

	taps      [][2]float64
	swipes    [][5]float64
	setTexts  []string
	clipboard []string
	globals   []models.GlobalActionKind
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{tapOK: true, swipeOK: true, setOK: true, globalOK: true, surface: "field"}
}

func (f *fakeCapability) Tap(x, y float64) bool {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taps = append(f.taps, [2]float64{x, y})
	return f.tapOK
}

func (f *fakeCapability) Swipe(sx, sy, ex, ey float64, durationMs int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swipes = append(f.swipes, [5]float64{sx, sy, ex, ey, float64(durationMs)})
	return f.swipeOK
}

func (f *fakeCapability) FindEditableSurface() (Surface, error) {
	if f.findPanic {
		panic("accessibility tree unavailable")
	}
	return f.surface, f.findErr
}

func (f *fakeCapability) SetText(_ Surface, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTexts = append(f.setTexts, text)
	return f.setOK
}

func (f *fakeCapability) CopyToClipboard(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clipboard = append(f.clipboard, text)
	return f.clipErr
}

func (f *fakeCapability) TriggerGlobalAction(kind models.GlobalActionKind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globals = append(f.globals, kind)
	return f.globalOK
}

func newTestRouter(t *testing.T, capability InputCapability, size int) *CommandRouter {
	t.Helper()
	r := NewCommandRouter(capability, size)
	t.Cleanup(r.Close)
	return r
}

func TestHandleRawTap(t *testing.T) {
	capability := newFakeCapability()
	r := newTestRouter(t, capability, 0)

	before := time.Now().UnixMilli()
	result, err := r.HandleRaw(`{"type":"tap","x":120.5,"y":340.0}`)
	if err != nil {
		t.Fatalf("HandleRaw: %v", err)
	}
	if !result.Success || result.CommandType != "tap" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Timestamp < before {
		t.Fatalf("timestamp %d predates the call (%d)", result.Timestamp, before)
	}
	if len(capability.taps) != 1 || capability.taps[0] != [2]float64{120.5, 340} {
		t.Fatalf("expected one tap at (120.5, 340), got %v", capability.taps)
	}
}

func TestHandleRawDecodeFailureProducesNoResult(t *testing.T) {
	r := newTestRouter(t, newFakeCapability(), 0)
	called := false
	r.OnResult(func(models.CommandResult) { called = true })

	if _, err := r.HandleRaw(`{"type":"pinch"}`); err == nil {
		t.Fatal("expected decode error")
	}
	if called {
		t.Fatal("result handler should not run for an undecodable payload")
	}
}

func TestExecuteTapAndSwipeFailures(t *testing.T) {
	capability := newFakeCapability()
	capability.tapOK = false
	capability.swipeOK = false
	r := newTestRouter(t, capability, 0)

	if res := r.Execute(models.Tap{X: 1, Y: 2}); res.Success {
		t.Fatalf("expected rejected tap, got %+v", res)
	}
	res := r.Execute(models.Swipe{StartX: 1, StartY: 2, EndX: 3, EndY: 4, DurationMs: 300})
	if res.Success || res.CommandType != "swipe" {
		t.Fatalf("expected rejected swipe, got %+v", res)
	}
	if got := capability.swipes[0][4]; got != 300 {
		t.Fatalf("expected duration 300 forwarded, got %v", got)
	}
}

func TestExecuteInputText(t *testing.T) {
	t.Run("editable field accepts", func(t *testing.T) {
		capability := newFakeCapability()
		r := newTestRouter(t, capability, 0)

		res := r.Execute(models.InputText{Text: "hello"})
		if !res.Success {
			t.Fatalf("expected success, got %+v", res)
		}
		if len(capability.setTexts) != 1 || len(capability.clipboard) != 0 {
			t.Fatalf("expected set text only, got set=%v clip=%v", capability.setTexts, capability.clipboard)
		}
	})

	t.Run("editable field rejects", func(t *testing.T) {
		capability := newFakeCapability()
		capability.setOK = false
		r := newTestRouter(t, capability, 0)

		if res := r.Execute(models.InputText{Text: "hello"}); res.Success {
			t.Fatalf("expected failure, got %+v", res)
		}
		if len(capability.clipboard) != 0 {
			t.Fatal("a rejected field must not fall back to the clipboard")
		}
	})

	fallbacks := []struct {
		name  string
		setup func(*fakeCapability)
	}{
		{"no field", func(f *fakeCapability) { f.surface = nil }},
		{"lookup error", func(f *fakeCapability) { f.findErr = errors.New("no window") }},
		{"lookup panic", func(f *fakeCapability) { f.findPanic = true }},
	}
	for _, tc := range fallbacks {
		t.Run(tc.name+" falls back to clipboard", func(t *testing.T) {
			capability := newFakeCapability()
			tc.setup(capability)
			r := newTestRouter(t, capability, 0)

			res := r.Execute(models.InputText{Text: "copied"})
			if !res.Success || res.CommandType != "input_text" {
				t.Fatalf("expected clipboard success, got %+v", res)
			}
			if len(capability.clipboard) != 1 || capability.clipboard[0] != "copied" {
				t.Fatalf("expected clipboard write, got %v", capability.clipboard)
			}
		})
	}

	t.Run("clipboard failure still reports success", func(t *testing.T) {
		capability := newFakeCapability()
		capability.surface = nil
		capability.clipErr = errors.New("clipboard service gone")
		r := newTestRouter(t, capability, 0)

		if res := r.Execute(models.InputText{Text: "x"}); !res.Success {
			t.Fatalf("expected success, got %+v", res)
		}
	})
}

// The platform's answer to a global action is logged but never changes the result.
func TestExecuteGlobalActionAlwaysSucceeds(t *testing.T) {
	for _, accepted := range []bool{true, false} {
		capability := newFakeCapability()
		capability.globalOK = accepted
		r := newTestRouter(t, capability, 0)

		res := r.Execute(models.GlobalAction{Action: models.ActionRecents})
		if !res.Success || res.CommandType != "launch_app_drawer" {
			t.Fatalf("accepted=%v: expected success, got %+v", accepted, res)
		}
		if len(capability.globals) != 1 || capability.globals[0] != models.ActionRecents {
			t.Fatalf("expected RECENTS triggered, got %v", capability.globals)
		}
	}
}

func TestExecuteUnsupportedCommand(t *testing.T) {
	r := newTestRouter(t, newFakeCapability(), 0)
	res := r.Execute(unsupportedCommand{})
	if res.Success || res.CommandType != "pinch" {
		t.Fatalf("expected unsupported failure, got %+v", res)
	}
}

func TestSubmitProcessesInOrder(t *testing.T) {
	capability := newFakeCapability()
	r := NewCommandRouter(capability, 10)

	var mu sync.Mutex
	var got []string
	r.OnResult(func(res models.CommandResult) {
		mu.Lock()
		got = append(got, res.CommandType)
		mu.Unlock()
	})

	payloads := []string{
		`{"type":"tap","x":1,"y":1}`,
		`{"type":"swipe","startX":1,"startY":2,"endX":3,"endY":4}`,
		`{"type":"launch_app_drawer","appAction":"performBackAction"}`,
	}
	for _, p := range payloads {
		if err := r.Submit(p); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	r.Close()

	want := []string{"tap", "swipe", "launch_app_drawer"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if err := r.Submit(payloads[0]); !errors.Is(err, ErrRouterClosed) {
		t.Fatalf("expected ErrRouterClosed after Close, got %v", err)
	}
	r.Close()
}

func TestSubmitQueueFull(t *testing.T) {
	capability := newFakeCapability()
	capability.block = make(chan struct{})
	r := NewCommandRouter(capability, 1)

	tap := `{"type":"tap","x":1,"y":1}`
	// The first payload is picked up and blocks in Tap; the second fills the queue.
	if err := r.Submit(tap); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(r.queue) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("router never picked up the first payload")
		}
		time.Sleep(time.Millisecond)
	}
	if err := r.Submit(tap); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if err := r.Submit(tap); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(capability.block)
	r.Close()
	if len(capability.taps) != 2 {
		t.Fatalf("expected 2 taps after drain, got %d", len(capability.taps))
	}
}
