package handlers

import "github.com/keytokey/keytokey/keycode"

// ModifierTracker is the shared, mutable modifier state referenced by
// several handlers (Layer, SendString, AutoShift, USBKeyboard) without
// giving any of them ownership of each other. Spec §9's design note
// resolves the "layer-action output-type leak" by threading the output
// port by reference rather than as a type parameter; ModifierTracker
// applies the same idea to the one other piece of cross-handler state the
// catalogue needs — "is shift currently held" — instead of plumbing it
// through every ProcessEvents call.
//
// USBKeyboard owns the tracker it's constructed with and updates it as the
// authoritative source of truth for the modifier byte it reports; other
// handlers hold the same pointer read-only.
type ModifierTracker struct {
	bits uint8
}

// NewModifierTracker returns a zeroed tracker (no modifiers held).
func NewModifierTracker() *ModifierTracker {
	return &ModifierTracker{}
}

// Observe updates the tracker from a KeyPress/KeyRelease of a modifier HID
// usage code. Non-modifier codes and TimeOut are no-ops.
func (m *ModifierTracker) Observe(kind eventKind, code keycode.Code) {
	if !keycode.IsHIDUsage(code) {
		return
	}
	usage := keycode.UsageID(code)
	bit := keycode.ModifierBit(usage)
	if bit == 0 {
		return
	}
	switch kind {
	case eventKindPress:
		m.bits |= bit
	case eventKindRelease:
		m.bits &^= bit
	}
}

// Bits returns the current modifier bitmap.
func (m *ModifierTracker) Bits() uint8 { return m.bits }

// ShiftHeld reports whether either shift modifier is currently held.
func (m *ModifierTracker) ShiftHeld() bool {
	return m.bits&(keycode.ModLeftShift|keycode.ModRightShift) != 0
}

type eventKind uint8

const (
	eventKindPress eventKind = iota
	eventKindRelease
)
