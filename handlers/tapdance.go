package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// TapDanceEnd is why a run of taps resolved.
type TapDanceEnd uint8

const (
	// TapDanceTimeout means the taps stopped and timeoutMs elapsed with no
	// further press of the trigger.
	TapDanceTimeout TapDanceEnd = iota
	// TapDanceOtherKey means a different key was pressed while a tap count
	// was pending, ending the run early.
	TapDanceOtherKey
)

// TapDanceAction is notified once a run of trigger taps resolves.
type TapDanceAction interface {
	OnTapDance(out output.Port, tapCount int, end TapDanceEnd) error
}

// TapDanceFunc adapts a plain function to TapDanceAction.
type TapDanceFunc func(out output.Port, tapCount int, end TapDanceEnd) error

func (f TapDanceFunc) OnTapDance(out output.Port, tapCount int, end TapDanceEnd) error {
	return f(out, tapCount, end)
}

// TapDance counts consecutive taps of trigger and reports the run's length
// to action once it resolves — grounded on the teacher's Rust source's
// TapDance handler. Unlike the catalogue's other stateful handlers, its
// action fires as a direct output.Port side effect rather than a
// synthesized key event, since "what N taps means" is entirely up to the
// caller (send a code, cycle a layer, anything).
type TapDance struct {
	name      string
	trigger   keycode.Code
	action    TapDanceAction
	timeoutMs uint16

	tapCount  int
	enteredAt uint64
}

// NewTapDance builds a TapDance bound to trigger.
func NewTapDance(name string, trigger keycode.Code, action TapDanceAction, timeoutMs uint16) *TapDance {
	return &TapDance{name: name, trigger: trigger, action: action, timeoutMs: timeoutMs}
}

func (t *TapDance) Name() string { return t.name }

func (t *TapDance) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.KeyRelease:
			if ev.Code == t.trigger {
				q.Mark(idx, handlerIndex, queue.Handle)
			} else {
				q.Mark(idx, handlerIndex, queue.Ignore)
			}
		case event.KeyPress:
			if ev.Code != t.trigger {
				q.Mark(idx, handlerIndex, queue.Ignore)
				if t.tapCount > 0 {
					count := t.tapCount
					t.tapCount = 0
					if err := t.action.OnTapDance(out, count, TapDanceOtherKey); err != nil {
						return err
					}
				}
				continue
			}
			t.tapCount++
			t.enteredAt = clock.UptimeMs
			q.Mark(idx, handlerIndex, queue.Handle)
		case event.TimeOut:
			q.Mark(idx, handlerIndex, queue.Ignore)
			if t.tapCount > 0 && clock.UptimeMs-t.enteredAt >= uint64(t.timeoutMs) {
				count := t.tapCount
				t.tapCount = 0
				if err := t.action.OnTapDance(out, count, TapDanceTimeout); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
