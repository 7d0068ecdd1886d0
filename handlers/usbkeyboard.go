package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
	"github.com/keytokey/keytokey/report"
)

// USBKeyboard implements spec §4.11: the terminal handler that accumulates
// HID usage codes into keyboard and consumer reports and sends at most one
// of each per dispatch pass, only when the accumulated state actually
// changed. It must be last (or close to last) in the pipeline, since
// anything reaching it is taken at face value as a real HID usage, a
// consumer usage, or — if neither — an unrouted code the rest of the
// pipeline failed to translate.
type USBKeyboard struct {
	name      string
	modifiers *ModifierTracker
	active    []uint8

	consumerUsage uint16

	lastSent         report.Keyboard
	lastSentConsumer report.Consumer

	unroutedUnicode uint64
	unroutedOther   uint64
}

// NewUSBKeyboard builds a USBKeyboard that updates modifiers (shared with
// any handler that needs to know whether shift is currently held) as its
// authoritative source.
func NewUSBKeyboard(name string, modifiers *ModifierTracker) *USBKeyboard {
	return &USBKeyboard{name: name, modifiers: modifiers}
}

func (u *USBKeyboard) Name() string { return u.name }

// UnroutedUnicode returns the running count of plain Unicode code points
// that reached USBKeyboard unconsumed — a misconfigured pipeline missing a
// UnicodeKeyboard handler, per spec §7's counters.
func (u *USBKeyboard) UnroutedUnicode() uint64 { return u.unroutedUnicode }

// UnroutedOther returns the running count of action/user-private/
// handler-private codes that reached USBKeyboard unconsumed.
func (u *USBKeyboard) UnroutedOther() uint64 { return u.unroutedOther }

func (u *USBKeyboard) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		q.Mark(idx, handlerIndex, queue.Handle)
		if ev.Kind == event.TimeOut {
			continue
		}

		switch {
		case keycode.IsHIDUsage(ev.Code):
			u.applyHIDUsage(ev)
		case keycode.IsConsumerUsage(ev.Code):
			u.applyConsumerUsage(ev)
		case keycode.IsUnicode(ev.Code):
			u.unroutedUnicode++
		default:
			u.unroutedOther++
		}
	}

	if err := u.maybeSendKeyboard(out); err != nil {
		return err
	}
	return u.maybeSendConsumer(out)
}

func (u *USBKeyboard) applyHIDUsage(ev event.Event) {
	usage := keycode.UsageID(ev.Code)
	if keycode.IsModifierUsage(usage) {
		kind := eventKindRelease
		if ev.Kind == event.KeyPress {
			kind = eventKindPress
		}
		if u.modifiers != nil {
			u.modifiers.Observe(kind, ev.Code)
		}
		return
	}
	if ev.Kind == event.KeyPress {
		u.addActiveKey(usage)
	} else {
		u.removeActiveKey(usage)
	}
}

func (u *USBKeyboard) applyConsumerUsage(ev event.Event) {
	usage := keycode.ConsumerUsageID(ev.Code)
	if ev.Kind == event.KeyPress {
		u.consumerUsage = usage
	} else if u.consumerUsage == usage {
		u.consumerUsage = 0
	}
}

func (u *USBKeyboard) addActiveKey(usage uint8) {
	for _, k := range u.active {
		if k == usage {
			return
		}
	}
	u.active = append(u.active, usage)
}

func (u *USBKeyboard) removeActiveKey(usage uint8) {
	for i, k := range u.active {
		if k == usage {
			u.active = append(u.active[:i], u.active[i+1:]...)
			return
		}
	}
}

func (u *USBKeyboard) maybeSendKeyboard(out output.Port) error {
	modifiers := uint8(0)
	if u.modifiers != nil {
		modifiers = u.modifiers.Bits()
	}
	keys := u.active
	if out.BootKeyboardOnly() && len(keys) > report.BootKeyLimit {
		keys = keys[len(keys)-report.BootKeyLimit:]
	}
	current := report.Keyboard{Modifiers: modifiers, Keys: keys}
	if current.Equal(u.lastSent) {
		return nil
	}
	if err := out.SendKeys(modifiers, keys); err != nil {
		return err
	}
	u.lastSent = report.Keyboard{Modifiers: modifiers, Keys: append([]uint8(nil), keys...)}
	return nil
}

func (u *USBKeyboard) maybeSendConsumer(out output.Port) error {
	current := report.Consumer{Usage: u.consumerUsage}
	if current.Equal(u.lastSentConsumer) {
		return nil
	}
	if err := out.SendConsumer(u.consumerUsage); err != nil {
		return err
	}
	u.lastSentConsumer = current
	return nil
}
