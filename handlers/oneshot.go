package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

type oneShotState uint8

const (
	oneShotIdle oneShotState = iota
	oneShotPrimed
	oneShotArmed
	oneShotHeldModifier
)

// OneShot implements spec §4.5's one-shot modifier state machine: tapping
// the trigger key arms its action for exactly the next key press, without
// requiring the trigger to be held down throughout. It must appear earlier
// in the pipeline than any layer or USB handler that needs to see the
// action active while the consuming press goes by — the spec's ordering
// invariant, since OneShot's injected action press/release are themselves
// ordinary synthesized key events that those later handlers observe.
type OneShot struct {
	name    string
	trigger keycode.Code
	action  keycode.Code

	holdTimeoutMs    uint16
	releaseTimeoutMs uint16

	state     oneShotState
	enteredAt uint64
}

// NewOneShot builds a OneShot bound to trigger, producing a synthetic
// press/release of action. holdTimeoutMs bounds how long the trigger may be
// held before it's treated as a plain modifier instead of a one-shot;
// releaseTimeoutMs bounds how long Armed waits for a consuming press before
// giving up and releasing the action on its own.
func NewOneShot(name string, trigger, action keycode.Code, holdTimeoutMs, releaseTimeoutMs uint16) *OneShot {
	return &OneShot{
		name:             name,
		trigger:          trigger,
		action:           action,
		holdTimeoutMs:    holdTimeoutMs,
		releaseTimeoutMs: releaseTimeoutMs,
	}
}

func (o *OneShot) Name() string { return o.name }

func (o *OneShot) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.TimeOut:
			if err := o.handleTimeOut(q, idx, handlerIndex, ev, clock); err != nil {
				return err
			}
		case event.KeyPress:
			if ev.Code == o.trigger {
				if err := o.handleTriggerPress(q, idx, handlerIndex, ev, clock); err != nil {
					return err
				}
				continue
			}
			if err := o.handleOtherPress(q, idx, handlerIndex, ev); err != nil {
				return err
			}
		case event.KeyRelease:
			if ev.Code == o.trigger {
				if err := o.handleTriggerRelease(q, idx, handlerIndex, ev, clock); err != nil {
					return err
				}
				continue
			}
			q.Mark(idx, handlerIndex, queue.Ignore)
		}
	}
	return nil
}

func (o *OneShot) handleTriggerPress(q *queue.Queue, idx, handlerIndex int, ev event.Event, clock pipeline.Clock) error {
	if o.state != oneShotIdle {
		// A second trigger press before the first resolved; ignore it
		// rather than restart the sequence mid-flight.
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	o.state = oneShotPrimed
	o.enteredAt = clock.UptimeMs
	return q.Replace(idx, handlerIndex, event.NewKeyPress(o.action, ev.MsSinceLast))
}

func (o *OneShot) handleTriggerRelease(q *queue.Queue, idx, handlerIndex int, ev event.Event, clock pipeline.Clock) error {
	switch o.state {
	case oneShotPrimed:
		if clock.UptimeMs-o.enteredAt >= uint64(o.holdTimeoutMs) {
			o.state = oneShotIdle
			return q.Replace(idx, handlerIndex, event.NewKeyRelease(o.action, ev.MsSinceLast))
		}
		o.state = oneShotArmed
		o.enteredAt = clock.UptimeMs
		q.Mark(idx, handlerIndex, queue.Handle)
		return nil
	case oneShotHeldModifier:
		o.state = oneShotIdle
		return q.Replace(idx, handlerIndex, event.NewKeyRelease(o.action, ev.MsSinceLast))
	default:
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
}

func (o *OneShot) handleOtherPress(q *queue.Queue, idx, handlerIndex int, ev event.Event) error {
	if o.state != oneShotArmed {
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	o.state = oneShotIdle
	q.Mark(idx, handlerIndex, queue.Ignore)
	return q.Emit(handlerIndex, event.NewKeyRelease(o.action, 0))
}

func (o *OneShot) handleTimeOut(q *queue.Queue, idx, handlerIndex int, ev event.Event, clock pipeline.Clock) error {
	q.Mark(idx, handlerIndex, queue.Ignore)
	switch o.state {
	case oneShotPrimed:
		if clock.UptimeMs-o.enteredAt >= uint64(o.holdTimeoutMs) {
			o.state = oneShotHeldModifier
		}
	case oneShotArmed:
		if clock.UptimeMs-o.enteredAt >= uint64(o.releaseTimeoutMs) {
			o.state = oneShotIdle
			return q.Emit(handlerIndex, event.NewKeyRelease(o.action, 0))
		}
	}
	return nil
}
