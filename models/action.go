package models

// Wire discriminants for the "type" field of a command payload.
const (
	CommandTypeTap          = "tap"
	CommandTypeSwipe        = "swipe"
	CommandTypeInputText    = "input_text"
	CommandTypeGlobalAction = "launch_app_drawer"
)

// DefaultSwipeDurationMs is used when a swipe payload omits "duration".
const DefaultSwipeDurationMs int64 = 300

// RemoteCommand is a single action pushed by the control server.
// The set of implementations is closed: Tap, Swipe, InputText and GlobalAction.
type RemoteCommand interface {
	// Type returns the wire discriminant for the command.
	Type() string
	remoteCommand()
}

type Tap struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Swipe struct {
	StartX     float64 `json:"startX"`
	StartY     float64 `json:"startY"`
	EndX       float64 `json:"endX"`
	EndY       float64 `json:"endY"`
	DurationMs int64   `json:"duration"`
}

type InputText struct {
	Text string `json:"text"`
}

// GlobalAction triggers a system-wide navigation action (home, back, ...).
type GlobalAction struct {
	Action GlobalActionKind `json:"appAction"`
}

func (Tap) Type() string          { return CommandTypeTap }
func (Swipe) Type() string        { return CommandTypeSwipe }
func (InputText) Type() string    { return CommandTypeInputText }
func (GlobalAction) Type() string { return CommandTypeGlobalAction }

func (Tap) remoteCommand()          {}
func (Swipe) remoteCommand()        {}
func (InputText) remoteCommand()    {}
func (GlobalAction) remoteCommand() {}

// GlobalActionKind enumerates the supported global actions.
type GlobalActionKind int

const (
	ActionHome GlobalActionKind = iota
	ActionBack
	ActionRecents
	ActionLockScreen
)

var globalActionValues = [...]string{
	ActionHome:       "performHomeAction",
	ActionBack:       "performBackAction",
	ActionRecents:    "performRecentsAction",
	ActionLockScreen: "performLockScreenAction",
}

var globalActionNames = [...]string{"HOME", "BACK", "RECENTS", "LOCK_SCREEN"}

// WireValue returns the "appAction" string used on the wire.
func (a GlobalActionKind) WireValue() string {
	if a < 0 || int(a) >= len(globalActionValues) {
		return ""
	}
	return globalActionValues[a]
}

func (a GlobalActionKind) String() string {
	if a < 0 || int(a) >= len(globalActionNames) {
		return "UNKNOWN"
	}
	return globalActionNames[a]
}

// ParseGlobalAction maps a wire value to its kind. ok is false for unknown values.
func ParseGlobalAction(value string) (kind GlobalActionKind, ok bool) {
	for i, v := range globalActionValues {
		if v == value {
			return GlobalActionKind(i), true
		}
	}
	return ActionHome, false
}
