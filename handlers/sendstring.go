package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/queue"
)

type asciiEntry struct {
	code  keycode.Code
	shift bool
}

// asciiTable maps the printable ASCII range to a (HID code, needs-shift)
// pair, following the standard US QWERTY layout assumed throughout the
// catalogue (spec §4.9).
var asciiTable = buildASCIITable()

func buildASCIITable() map[rune]asciiEntry {
	t := make(map[rune]asciiEntry, 96)
	for i := 0; i < 26; i++ {
		lower := rune('a' + i)
		upper := rune('A' + i)
		code := keycode.HIDUsage(uint8(keycode.UsageA + i))
		t[lower] = asciiEntry{code: code, shift: false}
		t[upper] = asciiEntry{code: code, shift: true}
	}
	digitCodes := []uint8{
		keycode.Usage1, keycode.Usage2, keycode.Usage3, keycode.Usage4, keycode.Usage5,
		keycode.Usage6, keycode.Usage7, keycode.Usage8, keycode.Usage9, keycode.Usage0,
	}
	digitShifted := []rune{'!', '@', '#', '$', '%', '^', '&', '*', '(', ')'}
	for i, usage := range digitCodes {
		code := keycode.HIDUsage(usage)
		t[rune('1'+i)] = asciiEntry{code: code, shift: false}
		if i == 9 {
			t['0'] = asciiEntry{code: code, shift: false}
		}
		t[digitShifted[i]] = asciiEntry{code: code, shift: true}
	}

	type punct struct {
		usage         uint8
		plain, shifted rune
	}
	for _, p := range []punct{
		{keycode.UsageMinus, '-', '_'},
		{keycode.UsageEqual, '=', '+'},
		{keycode.UsageLBracket, '[', '{'},
		{keycode.UsageRBracket, ']', '}'},
		{keycode.UsageBackslash, '\\', '|'},
		{keycode.UsageSemicolon, ';', ':'},
		{keycode.UsageApostophe, '\'', '"'},
		{keycode.UsageGrave, '`', '~'},
		{keycode.UsageComma, ',', '<'},
		{keycode.UsageDot, '.', '>'},
		{keycode.UsageSlash, '/', '?'},
	} {
		code := keycode.HIDUsage(p.usage)
		t[p.plain] = asciiEntry{code: code, shift: false}
		t[p.shifted] = asciiEntry{code: code, shift: true}
	}

	t[' '] = asciiEntry{code: keycode.Space, shift: false}
	t['\n'] = asciiEntry{code: keycode.Enter, shift: false}
	t['\t'] = asciiEntry{code: keycode.Tab, shift: false}
	return t
}

// SendString expands a UTF-8 string into one press+release pair per code
// point (spec §4.9). ASCII characters with a known HID mapping go through
// USBKeyboard, wrapped in a synthesized Shift press/release when the glyph
// needs it; everything else is forwarded as a raw Unicode code point for
// UnicodeKeyboard to pick up.
//
// A whole string's worth of presses and releases can't be handed to q.Emit
// in one call: USBKeyboard assembles at most one report per dispatch pass, so
// a press and its matching release landing in the same pass would net to no
// change and the keystroke would never be reported at all. SendString
// instead queues every transition but the first, and drains one more per
// pass — the same press-now/release-deferred split AutoShift uses for its
// own single-key burst, generalized to an arbitrary run of events.
type SendString struct {
	shiftUsage keycode.Code
	pending    []queuedStage
}

// queuedStage is one deferred transition, tagged with the handlerIndex it
// should be emitted under — SendString is shared by several handlers
// (Layer, Leader), so a stage queued by one may end up drained by whichever
// of them runs first on a later pass.
type queuedStage struct {
	handlerIndex int
	ev           event.Event
}

// NewSendString returns a SendString helper. shiftUsage is the modifier
// code injected to produce uppercase/shifted ASCII output; pass
// keycode.LeftShift for the common case.
func NewSendString(shiftUsage keycode.Code) *SendString {
	return &SendString{shiftUsage: shiftUsage}
}

// Inject queues the press/release burst for text, attributed to
// handlerIndex (the calling handler — each event is pre-marked observed by
// it so it never reinterprets its own synthesized output as fresh input).
// forceShift, when true, wraps every character in a Shift press/release
// regardless of the table lookup — the "caller-supplied shifted? flag"
// spec §4.9 mentions, useful for callers that pre-apply case themselves.
// The first event is emitted immediately; the rest drain one per pass via
// Flush, so typing "hi" produces a distinct report for every one of H's and
// I's presses and releases instead of collapsing them together.
func (s *SendString) Inject(q *queue.Queue, handlerIndex int, text string, forceShift bool) error {
	var evs []event.Event
	for _, r := range text {
		evs = append(evs, runeEvents(s.shiftUsage, r, forceShift)...)
	}
	if len(evs) == 0 {
		return nil
	}
	for _, ev := range evs[1:] {
		s.pending = append(s.pending, queuedStage{handlerIndex: handlerIndex, ev: ev})
	}
	return q.Emit(handlerIndex, evs[0])
}

func runeEvents(shiftUsage keycode.Code, r rune, forceShift bool) []event.Event {
	entry, ok := asciiTable[r]
	if !ok {
		cp := keycode.Code(r)
		return []event.Event{event.NewKeyPress(cp, 0), event.NewKeyRelease(cp, 0)}
	}

	needsShift := entry.shift || forceShift
	var evs []event.Event
	if needsShift {
		evs = append(evs, event.NewKeyPress(shiftUsage, 0))
	}
	evs = append(evs, event.NewKeyPress(entry.code, 0), event.NewKeyRelease(entry.code, 0))
	if needsShift {
		evs = append(evs, event.NewKeyRelease(shiftUsage, 0))
	}
	return evs
}

// Flush emits the next queued stage from a prior Inject call, if any.
// Every handler holding a reference to a shared SendString (Layer, Leader)
// must call this unconditionally at the top of its own ProcessEvents, since
// a stage queued by one of them still has to drain on passes where that
// particular handler has no fresh input of its own.
func (s *SendString) Flush(q *queue.Queue) error {
	if len(s.pending) == 0 {
		return nil
	}
	stage := s.pending[0]
	s.pending = s.pending[1:]
	return q.Emit(stage.handlerIndex, stage.ev)
}
