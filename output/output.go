// Package output defines the capability the pipeline is driven against: a
// host-provided sink for HID keyboard/consumer reports and OS-specific
// Unicode entry sequences (spec §6, "Output port").
package output

import (
	"errors"

	"github.com/keytokey/keytokey/keycode"
)

// ErrBusy is returned by a Port method when the transport cannot accept a
// report right now. It is transient: the caller (the USBKeyboard assembler)
// must preserve its pending state and retry on the next dispatch pass,
// never dropping state.
var ErrBusy = errors.New("output: busy")

// Error wraps a persistent failure of the underlying transport. Unlike
// ErrBusy it is not expected to resolve itself; the driver logs it and
// continues, per spec §7.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "output: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// OS identifies the host operating system, which changes the code point
// entry sequence a Port's SendUnicode produces for
// UnicodeKeyboard (handlers.UnicodeKeyboard).
type OS uint8

const (
	OSLinux OS = iota
	OSWindows
	OSMac
	OSUnknown
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSWindows:
		return "windows"
	case OSMac:
		return "mac"
	default:
		return "unknown"
	}
}

// Port is the capability a host provides to the pipeline. USBKeyboard and
// UnicodeKeyboard are the catalogue handlers that send through it; the
// callback-driven handlers (PressReleaseMacro, TapDance, Layer's callback
// entries) pass it on to user callbacks.
type Port interface {
	// SendKeys transmits a keyboard report: the current modifier bitmap
	// (keycode.ModXxx bits OR'd together) and the ordered set of
	// non-modifier HID usage codes currently held.
	SendKeys(modifiers uint8, keys []uint8) error
	// SendConsumer transmits a consumer-control report naming the usage
	// currently held, or 0 to clear it.
	SendConsumer(usage uint16) error
	// SendUnicode transmits an OS-specific Unicode code point entry
	// sequence (Linux: Ctrl+Shift+U + hex + Space; Windows: Alt-numpad or
	// WinCompose, depending on configuration).
	SendUnicode(cp keycode.Code) error
	// BootKeyboardOnly reports whether the host only supports the 6-key
	// boot keyboard protocol, constraining USBKeyboard's active-key count.
	BootKeyboardOnly() bool
	// GetOS reports the host operating system.
	GetOS() OS
}
