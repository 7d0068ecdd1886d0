package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// LayerController is the subset of Layer/RewriteLayer that LayerToggle
// drives. Both concrete layer types implement it.
type LayerController interface {
	SetEnabled(enabled bool)
	Toggle()
}

// ToggleOp selects what a trigger code does to its target layer.
type ToggleOp uint8

const (
	// ToggleEnable enables the target on press; release is a no-op.
	ToggleEnable ToggleOp = iota
	// ToggleDisable disables the target on press; release is a no-op.
	ToggleDisable
	// ToggleFlip flips the target's enabled state on press; release is a
	// no-op.
	ToggleFlip
	// ToggleMomentary enables the target on press and disables it on
	// release — the common "hold for layer" binding.
	ToggleMomentary
)

type toggleBinding struct {
	target LayerController
	op     ToggleOp
}

// LayerToggle is the pseudo-handler spec §4.3 describes: special action
// codes that enable/disable/toggle layers. It must appear earlier in the
// pipeline than the layers it drives, so its injected enable/disable takes
// effect before the layer itself next inspects an event — in practice
// LayerToggle only flips a flag, so ordering relative to the *current*
// event doesn't matter, but earlier placement keeps the mental model
// consistent with OneShot's ordering invariant (spec §4.5).
type LayerToggle struct {
	name     string
	bindings map[keycode.Code]toggleBinding
}

// NewLayerToggle builds a LayerToggle with no bindings; use Bind to add
// them.
func NewLayerToggle(name string) *LayerToggle {
	return &LayerToggle{name: name, bindings: make(map[keycode.Code]toggleBinding)}
}

// Bind registers trigger to perform op against target.
func (t *LayerToggle) Bind(trigger keycode.Code, target LayerController, op ToggleOp) {
	t.bindings[trigger] = toggleBinding{target: target, op: op}
}

func (t *LayerToggle) Name() string { return t.name }

func (t *LayerToggle) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		binding, ok := t.bindings[ev.Code]
		if !ok {
			q.Mark(idx, handlerIndex, queue.Ignore)
			continue
		}
		switch ev.Kind {
		case event.KeyPress:
			switch binding.op {
			case ToggleEnable:
				binding.target.SetEnabled(true)
			case ToggleDisable:
				binding.target.SetEnabled(false)
			case ToggleFlip:
				binding.target.Toggle()
			case ToggleMomentary:
				binding.target.SetEnabled(true)
			}
			q.Mark(idx, handlerIndex, queue.Handle)
		case event.KeyRelease:
			if binding.op == ToggleMomentary {
				binding.target.SetEnabled(false)
			}
			q.Mark(idx, handlerIndex, queue.Handle)
		default:
			q.Mark(idx, handlerIndex, queue.Ignore)
		}
	}
	return nil
}
