// Package report models the HID reports the USBKeyboard assembler
// (handlers.USBKeyboard) accumulates and compares against what was last
// sent, so it emits at most one of each per dispatch pass (spec §4.11).
package report

// BootKeyLimit is the number of simultaneously-reported non-modifier keys
// in the 8-byte USB HID boot keyboard protocol report. Simultaneous-key
// count enforcement beyond this is explicitly out of scope (spec §1,
// Non-goals) — USBKeyboard truncates to this limit only when the Output
// port reports BootKeyboardOnly(); otherwise all active keys are reported.
const BootKeyLimit = 6

// Keyboard is the accumulated state of a keyboard report: the modifier
// bitmap and the ordered set of currently-active non-modifier HID usage
// codes. Order matters for "most recent wins" policies downstream (spec §3,
// ActiveKeys) even though the report itself is order-insensitive to the
// host.
type Keyboard struct {
	Modifiers uint8
	Keys      []uint8
}

// Equal reports whether k and other describe the same modifier state and
// active-key set, ignoring order — two reports with the same keys in a
// different sequence are the same report.
func (k Keyboard) Equal(other Keyboard) bool {
	if k.Modifiers != other.Modifiers {
		return false
	}
	if len(k.Keys) != len(other.Keys) {
		return false
	}
	for _, a := range k.Keys {
		found := false
		for _, b := range other.Keys {
			if a == b {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// BuildReport encodes k as an 8-byte USB HID boot keyboard report: modifier
// byte, a reserved zero byte, and up to BootKeyLimit key usage codes
// (zero-padded). Keys beyond the limit are silently dropped — callers that
// need NKRO should not rely on this encoding and should instead send
// k.Keys directly through output.Port.SendKeys, which is not bounded to six.
func (k Keyboard) BuildReport() []byte {
	b := make([]byte, 2+BootKeyLimit)
	b[0] = k.Modifiers
	for i := 0; i < BootKeyLimit && i < len(k.Keys); i++ {
		b[2+i] = k.Keys[i]
	}
	return b
}

// Consumer is the accumulated state of a consumer-control report: a single
// active usage, or 0 for none.
type Consumer struct {
	Usage uint16
}

// Equal reports whether c and other hold the same usage.
func (c Consumer) Equal(other Consumer) bool {
	return c.Usage == other.Usage
}

// BuildReport encodes c as a 2-byte little-endian consumer usage report.
func (c Consumer) BuildReport() []byte {
	return []byte{byte(c.Usage), byte(c.Usage >> 8)}
}
