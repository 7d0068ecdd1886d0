package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// PressReleaseMacro implements the callback half of spec §4.9: trigger's
// press and release invoke action's OnActivate/OnDeactivate directly
// against the output port, for side effects that aren't themselves key
// codes (toggling a status LED, sending a raw vendor report). It does not
// route through the synthesized-event mechanism the key-emitting handlers
// use, so it must not be used for anything USBKeyboard needs to know about.
type PressReleaseMacro struct {
	name    string
	trigger keycode.Code
	action  OnOff
}

// NewPressReleaseMacro builds a PressReleaseMacro bound to trigger.
func NewPressReleaseMacro(name string, trigger keycode.Code, action OnOff) *PressReleaseMacro {
	return &PressReleaseMacro{name: name, trigger: trigger, action: action}
}

func (m *PressReleaseMacro) Name() string { return m.name }

func (m *PressReleaseMacro) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		if ev.Code != m.trigger || ev.Kind == event.TimeOut {
			q.Mark(idx, handlerIndex, queue.Ignore)
			continue
		}
		q.Mark(idx, handlerIndex, queue.Handle)
		var err error
		if ev.Kind == event.KeyPress {
			err = m.action.OnActivate(out)
		} else {
			err = m.action.OnDeactivate(out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
