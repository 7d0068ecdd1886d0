package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// Sequence implements the fixed-macro half of spec §4.9: pressing trigger
// fires a press+release burst for each code in order; the trigger's own
// release is swallowed, since the burst already completed on press.
type Sequence struct {
	name    string
	trigger keycode.Code
	codes   []keycode.Code

	pending []event.Event
}

// NewSequence builds a Sequence bound to trigger, emitting codes in order.
func NewSequence(name string, trigger keycode.Code, codes []keycode.Code) *Sequence {
	return &Sequence{name: name, trigger: trigger, codes: codes}
}

func (s *Sequence) Name() string { return s.name }

func (s *Sequence) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	// A press/release queued by a trigger processed in a prior pass drains
	// here, one event per pass — see AutoShift's ProcessEvents for why a
	// whole burst can't land in a single q.Emit call.
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		if err := q.Emit(handlerIndex, ev); err != nil {
			return err
		}
	}

	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		if ev.Code != s.trigger || ev.Kind == event.TimeOut {
			q.Mark(idx, handlerIndex, queue.Ignore)
			continue
		}
		if ev.Kind == event.KeyRelease {
			q.Mark(idx, handlerIndex, queue.Handle)
			continue
		}
		q.Mark(idx, handlerIndex, queue.Handle)
		var evs []event.Event
		for _, code := range s.codes {
			evs = append(evs, event.NewKeyPress(code, 0), event.NewKeyRelease(code, 0))
		}
		if len(evs) == 0 {
			continue
		}
		s.pending = append(s.pending, evs[1:]...)
		if err := q.Emit(handlerIndex, evs[0]); err != nil {
			return err
		}
	}
	return nil
}
