package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// AutoShift implements the teacher's Rust source's AutoShift handler:
// letters, digits, and punctuation held past thresholdMs are reported
// shifted; a quick tap reports them plain. Both outcomes are fully-formed
// press+release bursts fired on release, since whether shift applies isn't
// known until the key comes back up.
type AutoShift struct {
	name        string
	shiftUsage  keycode.Code
	thresholdMs uint16

	shiftLetters bool
	shiftNumbers bool
	shiftSpecial bool

	pressedAt     map[keycode.Code]uint64
	pendingBursts []pendingBurst
}

type pendingBurst struct {
	evs []event.Event
}

// NewAutoShift builds an AutoShift with all three ranges (letters, digits,
// punctuation) enabled. Use the ShiftXxx fields to narrow it.
func NewAutoShift(name string, shiftUsage keycode.Code, thresholdMs uint16) *AutoShift {
	return &AutoShift{
		name:         name,
		shiftUsage:   shiftUsage,
		thresholdMs:  thresholdMs,
		shiftLetters: true,
		shiftNumbers: true,
		shiftSpecial: true,
		pressedAt:    make(map[keycode.Code]uint64),
	}
}

func (a *AutoShift) Name() string { return a.name }

// SetRanges narrows which code ranges auto-shift applies to.
func (a *AutoShift) SetRanges(letters, numbers, special bool) {
	a.shiftLetters, a.shiftNumbers, a.shiftSpecial = letters, numbers, special
}

func (a *AutoShift) eligible(code keycode.Code) bool {
	if !keycode.IsHIDUsage(code) {
		return false
	}
	usage := keycode.UsageID(code)
	switch {
	case a.shiftLetters && usage >= keycode.UsageA && usage <= keycode.UsageZ:
		return true
	case a.shiftNumbers && usage >= keycode.Usage1 && usage <= keycode.Usage0:
		return true
	case a.shiftSpecial && usage >= keycode.UsageMinus && usage <= keycode.UsageSlash:
		return true
	default:
		return false
	}
}

func (a *AutoShift) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	// A burst queued by a release processed in a prior pass surfaces here,
	// one pass after it was queued, so it lands in the queue on its own
	// pass rather than collapsing into the same report as the press burst.
	if len(a.pendingBursts) > 0 {
		burst := a.pendingBursts[0]
		a.pendingBursts = a.pendingBursts[1:]
		if err := q.Emit(handlerIndex, burst.evs...); err != nil {
			return err
		}
	}

	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.KeyPress:
			if !a.eligible(ev.Code) {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			a.pressedAt[ev.Code] = clock.UptimeMs
			q.Mark(idx, handlerIndex, queue.Handle)
		case event.KeyRelease:
			if !a.eligible(ev.Code) {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			pressedAt, ok := a.pressedAt[ev.Code]
			if !ok {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			delete(a.pressedAt, ev.Code)
			q.Mark(idx, handlerIndex, queue.Handle)

			held := clock.UptimeMs - pressedAt
			var press, release []event.Event
			if held >= uint64(a.thresholdMs) {
				press = []event.Event{event.NewKeyPress(a.shiftUsage, 0), event.NewKeyPress(ev.Code, 0)}
				release = []event.Event{event.NewKeyRelease(ev.Code, 0), event.NewKeyRelease(a.shiftUsage, ev.MsSinceLast)}
			} else {
				press = []event.Event{event.NewKeyPress(ev.Code, 0)}
				release = []event.Event{event.NewKeyRelease(ev.Code, ev.MsSinceLast)}
			}
			a.pendingBursts = append(a.pendingBursts, pendingBurst{evs: release})
			if err := q.Emit(handlerIndex, press...); err != nil {
				return err
			}
		default:
			q.Mark(idx, handlerIndex, queue.Ignore)
		}
	}
	return nil
}
