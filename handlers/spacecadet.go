package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

type spaceCadetState uint8

const (
	spaceCadetIdle spaceCadetState = iota
	spaceCadetPending
	spaceCadetHeld
)

// SpaceCadet implements spec §4.7: a key that behaves as tapCode on a quick
// tap and as holdCode while held past tapTimeoutMs, the classic
// space-cadet-shift binding. A key press arriving before the trigger
// resolves promotes it straight to held, on the theory that the trigger is
// being used as a chord modifier rather than tapped.
type SpaceCadet struct {
	name    string
	trigger keycode.Code
	tap     keycode.Code
	hold    keycode.Code

	tapTimeoutMs uint16

	state     spaceCadetState
	enteredAt uint64

	pendingBursts []pendingBurst
}

// NewSpaceCadet builds a SpaceCadet bound to trigger.
func NewSpaceCadet(name string, trigger, tap, hold keycode.Code, tapTimeoutMs uint16) *SpaceCadet {
	return &SpaceCadet{name: name, trigger: trigger, tap: tap, hold: hold, tapTimeoutMs: tapTimeoutMs}
}

func (s *SpaceCadet) Name() string { return s.name }

func (s *SpaceCadet) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	// A burst queued by a release processed in a prior pass surfaces here,
	// one pass after it was queued — see AutoShift's ProcessEvents for why.
	if len(s.pendingBursts) > 0 {
		burst := s.pendingBursts[0]
		s.pendingBursts = s.pendingBursts[1:]
		if err := q.Emit(handlerIndex, burst.evs...); err != nil {
			return err
		}
	}

	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.TimeOut:
			if err := s.handleTimeOut(q, idx, handlerIndex, clock); err != nil {
				return err
			}
		case event.KeyPress:
			if ev.Code == s.trigger {
				if err := s.handleTriggerPress(q, idx, handlerIndex, clock); err != nil {
					return err
				}
				continue
			}
			if err := s.handleOtherPress(q, idx, handlerIndex); err != nil {
				return err
			}
		case event.KeyRelease:
			if ev.Code == s.trigger {
				if err := s.handleTriggerRelease(q, idx, handlerIndex, ev); err != nil {
					return err
				}
				continue
			}
			q.Mark(idx, handlerIndex, queue.Ignore)
		}
	}
	return nil
}

func (s *SpaceCadet) handleTriggerPress(q *queue.Queue, idx, handlerIndex int, clock pipeline.Clock) error {
	if s.state != spaceCadetIdle {
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	s.state = spaceCadetPending
	s.enteredAt = clock.UptimeMs
	q.Mark(idx, handlerIndex, queue.Handle)
	return nil
}

func (s *SpaceCadet) handleOtherPress(q *queue.Queue, idx, handlerIndex int) error {
	q.Mark(idx, handlerIndex, queue.Ignore)
	if s.state != spaceCadetPending {
		return nil
	}
	s.state = spaceCadetHeld
	return q.Emit(handlerIndex, event.NewKeyPress(s.hold, 0))
}

func (s *SpaceCadet) handleTriggerRelease(q *queue.Queue, idx, handlerIndex int, ev event.Event) error {
	switch s.state {
	case spaceCadetPending:
		s.state = spaceCadetIdle
		q.Mark(idx, handlerIndex, queue.Handle)
		s.pendingBursts = append(s.pendingBursts, pendingBurst{evs: []event.Event{event.NewKeyRelease(s.tap, ev.MsSinceLast)}})
		return q.Emit(handlerIndex, event.NewKeyPress(s.tap, 0))
	case spaceCadetHeld:
		s.state = spaceCadetIdle
		return q.Replace(idx, handlerIndex, event.NewKeyRelease(s.hold, ev.MsSinceLast))
	default:
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
}

func (s *SpaceCadet) handleTimeOut(q *queue.Queue, idx, handlerIndex int, clock pipeline.Clock) error {
	q.Mark(idx, handlerIndex, queue.Ignore)
	if s.state != spaceCadetPending || clock.UptimeMs-s.enteredAt < uint64(s.tapTimeoutMs) {
		return nil
	}
	s.state = spaceCadetHeld
	return q.Emit(handlerIndex, event.NewKeyPress(s.hold, 0))
}
