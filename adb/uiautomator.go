package adb

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

const editTextClass = "android.widget.EditText"

// Rect is a view's on-screen bounds in pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Center() (int, int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// EditableField is a text input found in the window hierarchy.
type EditableField struct {
	ResourceID string
	Text       string
	Focused    bool
	Bounds     Rect
}

type uiNode struct {
	Class      string   `xml:"class,attr"`
	ResourceID string   `xml:"resource-id,attr"`
	Text       string   `xml:"text,attr"`
	Focused    string   `xml:"focused,attr"`
	Bounds     string   `xml:"bounds,attr"`
	Nodes      []uiNode `xml:"node"`
}

type uiHierarchy struct {
	Nodes []uiNode `xml:"node"`
}

var boundsPattern = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// parseBounds parses "[left,top][right,bottom]".
func parseBounds(s string) (Rect, error) {
	m := boundsPattern.FindStringSubmatch(s)
	if m == nil {
		return Rect{}, fmt.Errorf("invalid bounds %q", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Rect{}, fmt.Errorf("invalid bounds %q: %w", s, err)
		}
		v[i] = n
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// findEditableField picks the focused EditText, else the first in document
// order. The dump may carry trailing text after the XML document.
func findEditableField(dump []byte) (*EditableField, error) {
	start := bytes.Index(dump, []byte("<?xml"))
	if start < 0 {
		start = bytes.Index(dump, []byte("<hierarchy"))
	}
	end := bytes.LastIndex(dump, []byte("</hierarchy>"))
	if start < 0 || end < start {
		return nil, fmt.Errorf("no window hierarchy in dump output")
	}

	var h uiHierarchy
	if err := xml.Unmarshal(dump[start:end+len("</hierarchy>")], &h); err != nil {
		return nil, fmt.Errorf("parse window hierarchy: %w", err)
	}

	var first *EditableField
	var walk func(nodes []uiNode) (*EditableField, error)
	walk = func(nodes []uiNode) (*EditableField, error) {
		for _, n := range nodes {
			if n.Class == editTextClass {
				bounds, err := parseBounds(n.Bounds)
				if err != nil {
					return nil, err
				}
				field := &EditableField{
					ResourceID: n.ResourceID,
					Text:       n.Text,
					Focused:    n.Focused == "true",
					Bounds:     bounds,
				}
				if field.Focused {
					return field, nil
				}
				if first == nil {
					first = field
				}
			}
			if f, err := walk(n.Nodes); f != nil || err != nil {
				return f, err
			}
		}
		return nil, nil
	}

	focused, err := walk(h.Nodes)
	if err != nil {
		return nil, err
	}
	if focused != nil {
		return focused, nil
	}
	return first, nil
}
