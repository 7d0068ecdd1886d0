package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

type tapAndLongTapState uint8

const (
	tapAndLongTapIdle tapAndLongTapState = iota
	tapAndLongTapPending
	tapAndLongTapLong
)

// TapAndLongTap implements spec §4.8: a short tap of the trigger emits
// shortAction; holding past longTimeoutMs before releasing emits
// longAction instead. Unlike SpaceCadet, both outputs are complete
// press/release bursts fired on release — neither action is held live
// while the trigger is down.
type TapAndLongTap struct {
	name    string
	trigger keycode.Code
	short   keycode.Code
	long    keycode.Code

	longTimeoutMs uint16

	state     tapAndLongTapState
	enteredAt uint64

	pendingBursts []pendingBurst
}

// NewTapAndLongTap builds a TapAndLongTap bound to trigger.
func NewTapAndLongTap(name string, trigger, shortAction, longAction keycode.Code, longTimeoutMs uint16) *TapAndLongTap {
	return &TapAndLongTap{name: name, trigger: trigger, short: shortAction, long: longAction, longTimeoutMs: longTimeoutMs}
}

func (t *TapAndLongTap) Name() string { return t.name }

func (t *TapAndLongTap) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	// A burst queued by a release processed in a prior pass surfaces here,
	// one pass after it was queued — see AutoShift's ProcessEvents for why.
	if len(t.pendingBursts) > 0 {
		burst := t.pendingBursts[0]
		t.pendingBursts = t.pendingBursts[1:]
		if err := q.Emit(handlerIndex, burst.evs...); err != nil {
			return err
		}
	}

	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.TimeOut:
			q.Mark(idx, handlerIndex, queue.Ignore)
			if t.state == tapAndLongTapPending && clock.UptimeMs-t.enteredAt >= uint64(t.longTimeoutMs) {
				t.state = tapAndLongTapLong
			}
		case event.KeyPress:
			if ev.Code != t.trigger {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			if t.state != tapAndLongTapIdle {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			t.state = tapAndLongTapPending
			t.enteredAt = clock.UptimeMs
			q.Mark(idx, handlerIndex, queue.Handle)
		case event.KeyRelease:
			if ev.Code != t.trigger {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			if err := t.handleTriggerRelease(q, idx, handlerIndex, ev, clock); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *TapAndLongTap) handleTriggerRelease(q *queue.Queue, idx, handlerIndex int, ev event.Event, clock pipeline.Clock) error {
	action := t.short
	switch t.state {
	case tapAndLongTapPending:
		action = t.short
		if clock.UptimeMs-t.enteredAt >= uint64(t.longTimeoutMs) {
			action = t.long
		}
	case tapAndLongTapLong:
		action = t.long
	default:
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	t.state = tapAndLongTapIdle
	q.Mark(idx, handlerIndex, queue.Handle)
	t.pendingBursts = append(t.pendingBursts, pendingBurst{evs: []event.Event{event.NewKeyRelease(action, ev.MsSinceLast)}})
	return q.Emit(handlerIndex, event.NewKeyPress(action, 0))
}
