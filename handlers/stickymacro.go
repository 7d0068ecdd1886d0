package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// StickyMacro implements spec §4.6: a full press-and-release of the
// trigger toggles action on or off — odd taps activate, even taps
// deactivate. Unlike OneShot, it ignores everything else going on around
// it; it only counts completed taps of its own trigger.
type StickyMacro struct {
	name    string
	trigger keycode.Code
	action  keycode.Code
	active  bool
}

// NewStickyMacro builds a StickyMacro bound to trigger, toggling a
// synthetic press/release of action.
func NewStickyMacro(name string, trigger, action keycode.Code) *StickyMacro {
	return &StickyMacro{name: name, trigger: trigger, action: action}
}

func (s *StickyMacro) Name() string { return s.name }

// Active reports whether the action is currently held.
func (s *StickyMacro) Active() bool { return s.active }

func (s *StickyMacro) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch {
		case ev.Kind == event.TimeOut:
			q.Mark(idx, handlerIndex, queue.Ignore)
		case ev.IsKeyPress(s.trigger):
			q.Mark(idx, handlerIndex, queue.Handle)
		case ev.IsKeyRelease(s.trigger):
			s.active = !s.active
			if s.active {
				if err := q.Replace(idx, handlerIndex, event.NewKeyPress(s.action, ev.MsSinceLast)); err != nil {
					return err
				}
			} else {
				if err := q.Replace(idx, handlerIndex, event.NewKeyRelease(s.action, ev.MsSinceLast)); err != nil {
					return err
				}
			}
		default:
			q.Mark(idx, handlerIndex, queue.Ignore)
		}
	}
	return nil
}
