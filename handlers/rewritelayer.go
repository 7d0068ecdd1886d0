package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// RewriteLayer implements spec §4.4: a memory-compact layer variant doing
// static code-to-code remapping only, with the same press/release-tracking
// invariant as Layer (§4.3) but no callbacks or string emission, so its
// per-key table is just a map[keycode.Code]keycode.Code.
type RewriteLayer struct {
	name    string
	enabled bool
	table   map[keycode.Code]keycode.Code
	held    map[keycode.Code]keycode.Code
}

// NewRewriteLayer builds a RewriteLayer named name with the given static
// remap table.
func NewRewriteLayer(name string, table map[keycode.Code]keycode.Code) *RewriteLayer {
	return &RewriteLayer{name: name, table: table, held: make(map[keycode.Code]keycode.Code)}
}

func (r *RewriteLayer) Name() string { return r.name }

// Enabled reports whether the layer is currently active.
func (r *RewriteLayer) Enabled() bool { return r.enabled }

// SetEnabled implements LayerController.
func (r *RewriteLayer) SetEnabled(enabled bool) { r.enabled = enabled }

// Toggle implements LayerController.
func (r *RewriteLayer) Toggle() { r.enabled = !r.enabled }

func (r *RewriteLayer) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.TimeOut:
			q.Mark(idx, handlerIndex, queue.Ignore)
		case event.KeyPress:
			if !r.enabled {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			to, ok := r.table[ev.Code]
			if !ok {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			r.held[ev.Code] = to
			if err := q.Replace(idx, handlerIndex, event.NewKeyPress(to, ev.MsSinceLast)); err != nil {
				return err
			}
		case event.KeyRelease:
			to, ok := r.held[ev.Code]
			if !ok {
				q.Mark(idx, handlerIndex, queue.Ignore)
				continue
			}
			delete(r.held, ev.Code)
			if err := q.Replace(idx, handlerIndex, event.NewKeyRelease(to, ev.MsSinceLast)); err != nil {
				return err
			}
		}
	}
	return nil
}
