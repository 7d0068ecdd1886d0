// Package queue implements the bounded, ordered event buffer each dispatch
// pass walks (spec §4.1): a fixed-capacity slice of events, each carrying a
// per-handler consumption vector so a handler never observes the same event
// instance twice.
package queue

import (
	"errors"

	"github.com/keytokey/keytokey/event"
)

// ErrQueueFull is returned by Push when the queue is at capacity. The
// caller (normally the driver loop) must drop the incoming event and
// increment a counter; this is non-fatal for the device.
var ErrQueueFull = errors.New("queue: full")

// Status records what a single handler has done with a single event.
type Status uint8

const (
	// StatusNew means the owning handler has not yet observed this event.
	StatusNew Status = iota
	// StatusIgnored means the handler observed the event and passed it
	// through unchanged.
	StatusIgnored
	// StatusHandled means the handler consumed the event. Once any handler
	// marks an event Handled, every handler from that position onward is
	// considered to have observed it too — the event is invisible to them,
	// this pass and every pass after.
	StatusHandled
)

type entry struct {
	ev       event.Event
	status   []Status
	deleted  bool
	freshly  bool // injected during the pass currently in progress
}

// Queue is the bounded (Event, per-handler status) buffer shared by the
// pipeline across a dispatch pass.
type Queue struct {
	capacity  int
	nHandlers int
	entries   []*entry
}

// New returns a Queue with the given capacity (total events it may hold at
// once) sized for a pipeline of nHandlers handlers.
func New(capacity, nHandlers int) *Queue {
	if capacity <= 0 {
		capacity = 32
	}
	return &Queue{
		capacity:  capacity,
		nHandlers: nHandlers,
		entries:   make([]*entry, 0, capacity),
	}
}

// Len returns the number of events currently buffered.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Push appends ev as an externally-arrived event, fully visible to every
// handler starting with the pass in progress. Only the driver loop should
// call this directly; handlers synthesizing events use Emit.
func (q *Queue) Push(ev event.Event) error {
	if len(q.entries) >= q.capacity {
		return ErrQueueFull
	}
	q.entries = append(q.entries, &entry{ev: ev, status: make([]Status, q.nHandlers)})
	return nil
}

// Emit appends evs as events synthesized by handlerIndex. They are
// pre-marked observed-and-ignored by handlerIndex itself, so the
// synthesizing handler never reprocesses its own output as a fresh
// trigger (this matters whenever a handler's synthetic output can share a
// code with its own trigger, e.g. SpaceCadet's tap output). They are also
// invisible to every handler, including handlerIndex's own later
// siblings, for the remainder of the pass currently in progress — spec
// §4.1's "so earlier handlers do not reprocess them in this pass" is
// generalized here to "no handler observes a synthesized event before the
// next pass", which is what keeps multi-step handler output (e.g. OneShot's
// action press followed later by its action release) from collapsing into
// a single coalesced report instead of the sequence of reports each step
// implies.
func (q *Queue) Emit(handlerIndex int, evs ...event.Event) error {
	for _, ev := range evs {
		if len(q.entries) >= q.capacity {
			return ErrQueueFull
		}
		status := make([]Status, q.nHandlers)
		status[handlerIndex] = StatusIgnored
		q.entries = append(q.entries, &entry{ev: ev, status: status, freshly: true})
	}
	return nil
}

// Peek returns the event at idx, as returned by IterFor.
func (q *Queue) Peek(idx int) event.Event {
	return q.entries[idx].ev
}

// IterFor returns the indices of events handler handlerIndex has not yet
// observed and that were not synthesized during the pass currently in
// progress, in arrival order.
func (q *Queue) IterFor(handlerIndex int) []int {
	var out []int
	for i, e := range q.entries {
		if e.deleted || e.freshly {
			continue
		}
		if e.status[handlerIndex] == StatusNew {
			out = append(out, i)
		}
	}
	return out
}

// Outcome is a handler's disposition of a single event, passed to Mark.
type Outcome uint8

const (
	// Ignore marks the event observed-but-passed-through by this handler;
	// this handler will not see it again, while later handlers still do.
	Ignore Outcome = iota
	// Handle consumes the event: it becomes invisible to every handler from
	// this position onward, this pass and every pass after.
	Handle
	// Delete removes the event from the queue unconditionally, regardless
	// of what any other handler has or hasn't observed.
	Delete
)

// Mark records handlerIndex's disposition of the event at idx (as returned
// by IterFor).
func (q *Queue) Mark(idx, handlerIndex int, outcome Outcome) {
	e := q.entries[idx]
	switch outcome {
	case Ignore:
		e.status[handlerIndex] = StatusIgnored
	case Handle:
		for i := handlerIndex; i < len(e.status); i++ {
			e.status[i] = StatusHandled
		}
	case Delete:
		e.deleted = true
		for i := handlerIndex; i < len(e.status); i++ {
			e.status[i] = StatusHandled
		}
	}
}

// Replace marks the event at idx Handled by handlerIndex and emits evs as
// handlerIndex's synthesized output, per spec §4.1's replacement outcome.
func (q *Queue) Replace(idx, handlerIndex int, evs ...event.Event) error {
	q.Mark(idx, handlerIndex, Handle)
	return q.Emit(handlerIndex, evs...)
}

// DropHandled removes every event that has been observed (Ignored or
// Handled) by every handler, or explicitly Deleted, preserving the order of
// what remains. It returns the number of events removed.
func (q *Queue) DropHandled() int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.deleted || fullyObserved(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

func fullyObserved(e *entry) bool {
	for _, s := range e.status {
		if s == StatusNew {
			return false
		}
	}
	return true
}

// AnyUnobserved reports whether any buffered event still has a handler that
// has not observed it. The dispatch loop uses this to decide whether
// another pass is warranted.
func (q *Queue) AnyUnobserved() bool {
	for _, e := range q.entries {
		if e.deleted {
			continue
		}
		if !fullyObserved(e) {
			return true
		}
	}
	return false
}

// SettlePass clears the "synthesized this pass" flag on every entry, making
// events injected during the pass just finished visible to every handler
// starting with the next pass. The dispatch loop calls this once between
// passes.
func (q *Queue) SettlePass() {
	for _, e := range q.entries {
		e.freshly = false
	}
}

// Clear empties the queue, discarding all buffered events. Used by the
// driver loop after DispatchDiverged.
func (q *Queue) Clear() {
	q.entries = q.entries[:0]
}
