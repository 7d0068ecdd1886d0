package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// LayerActionKind selects which of Layer's four per-key behaviours
// (spec §4.3) an entry performs.
type LayerActionKind uint8

const (
	// LayerRemap statically rewrites the physical code to To.
	LayerRemap LayerActionKind = iota
	// LayerShiftAware rewrites to Shifted if shift is currently held (per
	// the pipeline's ModifierTracker), otherwise to Unshifted.
	LayerShiftAware
	// LayerString emits a SendString burst of Text on press; the matching
	// release is consumed with no further output.
	LayerString
	// LayerCallback invokes Callback on both press and release, with
	// pressed indicating which.
	LayerCallback
)

// LayerAction is one entry of a Layer's per-key mapping table.
type LayerAction struct {
	Kind      LayerActionKind
	To        keycode.Code
	Unshifted keycode.Code
	Shifted   keycode.Code
	Text      string
	Callback  func(out output.Port, pressed bool) error
}

// Remap returns a LayerRemap action.
func Remap(to keycode.Code) LayerAction {
	return LayerAction{Kind: LayerRemap, To: to}
}

// ShiftAware returns a LayerShiftAware action.
func ShiftAware(unshifted, shifted keycode.Code) LayerAction {
	return LayerAction{Kind: LayerShiftAware, Unshifted: unshifted, Shifted: shifted}
}

// EmitString returns a LayerString action.
func EmitString(text string) LayerAction {
	return LayerAction{Kind: LayerString, Text: text}
}

// Callback returns a LayerCallback action.
func Callback(fn func(out output.Port, pressed bool) error) LayerAction {
	return LayerAction{Kind: LayerCallback, Callback: fn}
}

type heldLayerEntry struct {
	action  LayerAction
	emitted keycode.Code
}

// Layer implements spec §4.3: a per-key mapping table with an enabled
// flag. Disabled layers are transparent. A press's rewrite is tracked per
// physical code so the matching release produces the same output even if
// the layer is disabled in the meantime.
type Layer struct {
	name    string
	enabled bool
	table   map[keycode.Code]LayerAction
	held    map[keycode.Code]heldLayerEntry
	shift   *ModifierTracker
	send    *SendString
}

// NewLayer builds a Layer named name with the given per-key table. shift
// may be nil if the table contains no LayerShiftAware entries. send is used
// to expand LayerString entries; it may be nil if the table contains none.
func NewLayer(name string, table map[keycode.Code]LayerAction, shift *ModifierTracker, send *SendString) *Layer {
	return &Layer{
		name:  name,
		table: table,
		held:  make(map[keycode.Code]heldLayerEntry),
		shift: shift,
		send:  send,
	}
}

func (l *Layer) Name() string { return l.name }

// Enabled reports whether the layer is currently active.
func (l *Layer) Enabled() bool { return l.enabled }

// SetEnabled enables or disables the layer. Implements LayerController.
func (l *Layer) SetEnabled(enabled bool) { l.enabled = enabled }

// Toggle flips the layer's enabled state. Implements LayerController.
func (l *Layer) Toggle() { l.enabled = !l.enabled }

func (l *Layer) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	if l.send != nil {
		if err := l.send.Flush(q); err != nil {
			return err
		}
	}
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		switch ev.Kind {
		case event.TimeOut:
			q.Mark(idx, handlerIndex, queue.Ignore)
		case event.KeyPress:
			if err := l.handlePress(q, idx, handlerIndex, ev, out); err != nil {
				return err
			}
		case event.KeyRelease:
			if err := l.handleRelease(q, idx, handlerIndex, ev, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Layer) handlePress(q *queue.Queue, idx, handlerIndex int, ev event.Event, out output.Port) error {
	if !l.enabled {
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	action, ok := l.table[ev.Code]
	if !ok {
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}

	switch action.Kind {
	case LayerRemap:
		l.held[ev.Code] = heldLayerEntry{action: action, emitted: action.To}
		return q.Replace(idx, handlerIndex, event.NewKeyPress(action.To, ev.MsSinceLast))
	case LayerShiftAware:
		target := action.Unshifted
		if l.shift != nil && l.shift.ShiftHeld() {
			target = action.Shifted
		}
		l.held[ev.Code] = heldLayerEntry{action: action, emitted: target}
		return q.Replace(idx, handlerIndex, event.NewKeyPress(target, ev.MsSinceLast))
	case LayerString:
		l.held[ev.Code] = heldLayerEntry{action: action}
		q.Mark(idx, handlerIndex, queue.Handle)
		if l.send != nil {
			return l.send.Inject(q, handlerIndex, action.Text, false)
		}
		return nil
	case LayerCallback:
		l.held[ev.Code] = heldLayerEntry{action: action}
		q.Mark(idx, handlerIndex, queue.Handle)
		if action.Callback != nil {
			return action.Callback(out, true)
		}
		return nil
	}
	q.Mark(idx, handlerIndex, queue.Ignore)
	return nil
}

func (l *Layer) handleRelease(q *queue.Queue, idx, handlerIndex int, ev event.Event, out output.Port) error {
	entry, ok := l.held[ev.Code]
	if !ok {
		// No rewrite was ever recorded for this physical code: transparent
		// regardless of enabled state.
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}
	delete(l.held, ev.Code)

	switch entry.action.Kind {
	case LayerRemap, LayerShiftAware:
		return q.Replace(idx, handlerIndex, event.NewKeyRelease(entry.emitted, ev.MsSinceLast))
	case LayerString:
		q.Mark(idx, handlerIndex, queue.Handle)
		return nil
	case LayerCallback:
		q.Mark(idx, handlerIndex, queue.Handle)
		if entry.action.Callback != nil {
			return entry.action.Callback(out, false)
		}
		return nil
	}
	q.Mark(idx, handlerIndex, queue.Ignore)
	return nil
}
