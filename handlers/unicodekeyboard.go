package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// UnicodeKeyboard implements spec §4.10: any event carrying a plain
// Unicode code point (keycode.IsUnicode) is sent through the output port's
// OS-specific entry sequence on press; the matching release is swallowed
// with no further output, since the whole code point already went out.
// It should sit at the tail of the pipeline, after every handler that
// might itself emit a code point (SendString's fallback path, for
// instance) — anything reaching here unconsumed is by construction meant
// for it.
type UnicodeKeyboard struct {
	name string
}

// NewUnicodeKeyboard builds a UnicodeKeyboard.
func NewUnicodeKeyboard(name string) *UnicodeKeyboard {
	return &UnicodeKeyboard{name: name}
}

func (u *UnicodeKeyboard) Name() string { return u.name }

func (u *UnicodeKeyboard) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		if ev.Kind == event.TimeOut || !keycode.IsUnicode(ev.Code) {
			q.Mark(idx, handlerIndex, queue.Ignore)
			continue
		}
		q.Mark(idx, handlerIndex, queue.Handle)
		if ev.Kind != event.KeyPress {
			continue
		}
		if err := out.SendUnicode(ev.Code); err != nil {
			return err
		}
	}
	return nil
}
