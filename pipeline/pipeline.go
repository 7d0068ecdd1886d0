// Package pipeline implements the ordered handler pipeline and the
// multi-pass dispatch algorithm described in spec §4.1-§4.2.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/queue"
)

// ErrDiverged is returned by Dispatch when the pipeline exceeded MaxPasses
// without reaching quiescence. The caller must treat this as
// spec.DispatchDiverged: clear the queue and raise a counter. It signals a
// handler-pipeline configuration bug (e.g. two handlers perpetually
// re-injecting events at each other), not a transient condition.
var ErrDiverged = errors.New("pipeline: dispatch diverged")

// DefaultMaxPasses is the compile-time bound on dispatch passes per spec
// §4.1. Exceeding it is ErrDiverged.
const DefaultMaxPasses = 10

// Clock exposes elapsed time to handlers without giving them access to the
// driver itself. UptimeMs is the monotonically increasing sum of every
// ms_since_last seen by the driver (spec §9, "absolute vs relative time").
type Clock struct {
	UptimeMs uint64
}

// Handler is a stateful pipeline element. ProcessEvents is called once per
// dispatch pass with the handler's fixed position in the pipeline
// (handlerIndex), which it must use for every Queue call so the
// consumption vector is keyed correctly.
//
// A handler must, for every event index returned by q.IterFor(handlerIndex),
// call q.Mark with that same index before returning — per spec's
// "single observation" property, the dispatch loop does not re-present an
// event to a handler that has already seen it, so failing to mark it simply
// leaves it perpetually pending for this handler and starves quiescence.
type Handler interface {
	ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock Clock) error
	// Name identifies the handler for logging and diagnostics.
	Name() string
}

// Pipeline is the frozen, ordered list of handlers a dispatch pass walks.
type Pipeline struct {
	handlers  []Handler
	maxPasses int
}

// New builds a Pipeline from handlers in the given order. Order is
// significant and fixed for the pipeline's lifetime (spec §6,
// "Configuration": "pipeline layout is built once at startup ... then
// frozen").
func New(handlers []Handler, maxPasses int) *Pipeline {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	return &Pipeline{handlers: handlers, maxPasses: maxPasses}
}

// Len returns the number of handlers in the pipeline.
func (p *Pipeline) Len() int { return len(p.handlers) }

// Handlers returns the pipeline's handlers in order. Callers must not
// mutate the returned slice.
func (p *Pipeline) Handlers() []Handler { return p.handlers }

// NewQueue returns a Queue sized for this pipeline's handler count.
func (p *Pipeline) NewQueue(capacity int) *queue.Queue {
	return queue.New(capacity, len(p.handlers))
}

// Dispatch walks the pipeline in order, repeating until quiescence: every
// buffered event has been observed by every handler. It returns ErrDiverged
// if that doesn't happen within MaxPasses.
//
// A "pass" is a single walk, handler 0 through handler n-1, followed by
// DropHandled. Events a handler injects mid-pass (queue.Emit) stay invisible
// to every handler, including later ones in the same walk, until the next
// pass — SettlePass lifts that once a pass completes without reaching
// quiescence. This is what turns a handler's multi-step output (activate a
// modifier now, deactivate it once some later condition holds) into the
// sequence of distinct output states spec scenarios expect, rather than a
// single collapsed end state.
func (p *Pipeline) Dispatch(q *queue.Queue, out output.Port, clock Clock) error {
	for pass := 0; pass < p.maxPasses; pass++ {
		for i, h := range p.handlers {
			if err := h.ProcessEvents(q, i, out, clock); err != nil {
				return fmt.Errorf("pipeline: handler %q (index %d): %w", h.Name(), i, err)
			}
		}

		q.DropHandled()

		if !q.AnyUnobserved() {
			return nil
		}

		q.SettlePass()
	}
	q.Clear()
	return ErrDiverged
}
