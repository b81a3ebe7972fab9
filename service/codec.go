package service

import (
	"fmt"

	"androidagent/models"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DecodeError reports a command payload that could not be turned into a RemoteCommand.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode command: " + e.Reason
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// DecodeCommand parses a flat command payload such as {"type":"tap","x":1,"y":2}.
//
// Decoding is strict except for two documented fallbacks: a swipe without
// "duration" uses DefaultSwipeDurationMs, and an unrecognized "appAction"
// resolves to ActionHome.
func DecodeCommand(raw string) (models.RemoteCommand, error) {
	if !gjson.Valid(raw) {
		return nil, decodeErrorf("invalid json")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, decodeErrorf("payload is not an object")
	}

	typ := doc.Get("type")
	if !typ.Exists() || typ.Type == gjson.Null {
		return nil, decodeErrorf("missing type")
	}
	if typ.Type != gjson.String {
		return nil, decodeErrorf("type must be a string")
	}

	switch typ.String() {
	case models.CommandTypeTap:
		var c models.Tap
		if err := readNumbers(doc, []numberField{{"x", &c.X}, {"y", &c.Y}}); err != nil {
			return nil, err
		}
		return c, nil

	case models.CommandTypeSwipe:
		var c models.Swipe
		err := readNumbers(doc, []numberField{
			{"startX", &c.StartX},
			{"startY", &c.StartY},
			{"endX", &c.EndX},
			{"endY", &c.EndY},
		})
		if err != nil {
			return nil, err
		}
		c.DurationMs = models.DefaultSwipeDurationMs
		if d := doc.Get("duration"); d.Exists() && d.Type != gjson.Null {
			if d.Type != gjson.Number {
				return nil, decodeErrorf("field duration must be a number")
			}
			c.DurationMs = d.Int()
		}
		return c, nil

	case models.CommandTypeInputText:
		text := doc.Get("text")
		if !text.Exists() || text.Type == gjson.Null {
			return nil, decodeErrorf("missing field text")
		}
		if text.Type != gjson.String {
			return nil, decodeErrorf("field text must be a string")
		}
		return models.InputText{Text: text.String()}, nil

	case models.CommandTypeGlobalAction:
		action := doc.Get("appAction")
		if !action.Exists() || action.Type == gjson.Null {
			return nil, decodeErrorf("missing field appAction")
		}
		kind, ok := models.ParseGlobalAction(action.String())
		if !ok {
			kind = models.ActionHome
		}
		return models.GlobalAction{Action: kind}, nil

	default:
		return nil, decodeErrorf("unknown type: %s", typ.String())
	}
}

type numberField struct {
	name string
	dst  *float64
}

func readNumbers(doc gjson.Result, fields []numberField) error {
	for _, f := range fields {
		v := doc.Get(f.name)
		if !v.Exists() || v.Type == gjson.Null {
			return decodeErrorf("missing field %s", f.name)
		}
		if v.Type != gjson.Number {
			return decodeErrorf("field %s must be a number", f.name)
		}
		*f.dst = v.Float()
	}
	return nil
}

type wireField struct {
	name  string
	value any
}

// EncodeCommand is the inverse of DecodeCommand.
func EncodeCommand(cmd models.RemoteCommand) (string, error) {
	var fields []wireField

	switch c := cmd.(type) {
	case models.Tap:
		fields = []wireField{{"x", c.X}, {"y", c.Y}}
	case models.Swipe:
		fields = []wireField{
			{"startX", c.StartX},
			{"startY", c.StartY},
			{"endX", c.EndX},
			{"endY", c.EndY},
			{"duration", c.DurationMs},
		}
	case models.InputText:
		fields = []wireField{{"text", c.Text}}
	case models.GlobalAction:
		value := c.Action.WireValue()
		if value == "" {
			return "", fmt.Errorf("encode command: unknown global action %d", c.Action)
		}
		fields = []wireField{{"appAction", value}}
	default:
		return "", fmt.Errorf("encode command: unsupported command %T", cmd)
	}

	out, err := sjson.Set("", "type", cmd.Type())
	if err != nil {
		return "", fmt.Errorf("encode command: %w", err)
	}
	for _, f := range fields {
		if out, err = sjson.Set(out, f.name, f.value); err != nil {
			return "", fmt.Errorf("encode command field %s: %w", f.name, err)
		}
	}
	return out, nil
}
