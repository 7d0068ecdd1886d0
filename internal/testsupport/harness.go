package testsupport

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// EventCollector is a terminal pipeline.Handler that records every event it
// sees, in the order it sees them, and marks each Handled. It exists for
// handler tests that want to assert the raw code/kind sequence a handler
// upstream produces without assembling it into HID reports at all — a
// narrower check than running the same events through a Recorder and a real
// USBKeyboard, which is what actually proves a burst reaches the wire as
// distinct reports rather than collapsing across passes.
type EventCollector struct {
	Seen []event.Event
}

func (c *EventCollector) Name() string { return "collector" }

func (c *EventCollector) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		c.Seen = append(c.Seen, q.Peek(idx))
		q.Mark(idx, handlerIndex, queue.Handle)
	}
	return nil
}

var _ pipeline.Handler = (*EventCollector)(nil)

// RunPipeline builds a single-use Pipeline from handlers in order, pushes
// events onto a fresh Queue, and runs Dispatch to quiescence against port.
// It mirrors the shape of driver.Driver's own Dispatch call without pulling
// in the rest of the driver (timer bookkeeping, queue reuse across calls)
// that handler-level tests don't need.
func RunPipeline(handlers []pipeline.Handler, port output.Port, events ...event.Event) error {
	return RunPipelineWithClock(handlers, port, pipeline.Clock{}, events...)
}

// RunPipelineWithClock is RunPipeline with an explicit Clock, for handlers
// like AutoShift that key off the driver's absolute uptime rather than a
// per-event delta.
func RunPipelineWithClock(handlers []pipeline.Handler, port output.Port, clock pipeline.Clock, events ...event.Event) error {
	p := pipeline.New(handlers, pipeline.DefaultMaxPasses)
	q := p.NewQueue(32)
	for _, ev := range events {
		if err := q.Push(ev); err != nil {
			return err
		}
	}
	return p.Dispatch(q, port, clock)
}
