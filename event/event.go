// Package event defines the physical and synthesized events that flow
// through the dispatch pipeline.
package event

import "github.com/keytokey/keytokey/keycode"

// Kind tags which variant an Event holds.
type Kind uint8

const (
	KeyPress Kind = iota
	KeyRelease
	TimeOut
)

func (k Kind) String() string {
	switch k {
	case KeyPress:
		return "KeyPress"
	case KeyRelease:
		return "KeyRelease"
	case TimeOut:
		return "TimeOut"
	default:
		return "Unknown"
	}
}

// Event is a tagged value carrying a physical or synthesized occurrence.
// Code is meaningless for TimeOut.
type Event struct {
	Kind        Kind
	Code        keycode.Code
	MsSinceLast uint16
}

// NewKeyPress constructs a KeyPress event.
func NewKeyPress(code keycode.Code, msSinceLast uint16) Event {
	return Event{Kind: KeyPress, Code: code, MsSinceLast: msSinceLast}
}

// NewKeyRelease constructs a KeyRelease event.
func NewKeyRelease(code keycode.Code, msSinceLast uint16) Event {
	return Event{Kind: KeyRelease, Code: code, MsSinceLast: msSinceLast}
}

// NewTimeOut constructs a TimeOut event.
func NewTimeOut(msSinceLast uint16) Event {
	return Event{Kind: TimeOut, MsSinceLast: msSinceLast}
}

// IsKeyPress reports whether e is a KeyPress carrying the given code.
func (e Event) IsKeyPress(code keycode.Code) bool {
	return e.Kind == KeyPress && e.Code == code
}

// IsKeyRelease reports whether e is a KeyRelease carrying the given code.
func (e Event) IsKeyRelease(code keycode.Code) bool {
	return e.Kind == KeyRelease && e.Code == code
}
