package handlers

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// LeaderMapping binds a sequence of key releases to the text Leader types
// out once the sequence completes.
type LeaderMapping struct {
	Sequence []keycode.Code
	Output   string
}

type leaderMatch uint8

const (
	leaderWontMatch leaderMatch = iota
	leaderNeedsMoreInput
	leaderMatched
)

// Leader implements the teacher's Rust source's Leader handler: pressing
// trigger and releasing it arms "leader mode"; the releases that follow are
// collected as a prefix and matched against mappings. A full match or a
// prefix nothing can extend types out its string and disarms; anything in
// between keeps waiting for more input. While armed, every other key press
// and release is swallowed — Leader owns the keyboard until it resolves.
type Leader struct {
	name     string
	trigger  keycode.Code
	mappings []LeaderMapping
	failure  string
	send     *SendString

	active bool
	prefix []keycode.Code
}

// NewLeader builds a Leader bound to trigger. failure is typed out verbatim
// when the accumulated prefix cannot extend to any mapping's sequence.
func NewLeader(name string, trigger keycode.Code, mappings []LeaderMapping, failure string, send *SendString) *Leader {
	return &Leader{name: name, trigger: trigger, mappings: mappings, failure: failure, send: send}
}

func (l *Leader) Name() string { return l.name }

// Active reports whether Leader is currently collecting a sequence.
func (l *Leader) Active() bool { return l.active }

func (l *Leader) matchPrefix() (leaderMatch, string) {
	result := leaderWontMatch
	for _, m := range l.mappings {
		if len(m.Sequence) < len(l.prefix) {
			continue
		}
		matches := true
		for i, code := range l.prefix {
			if m.Sequence[i] != code {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		if len(m.Sequence) == len(l.prefix) {
			return leaderMatched, m.Output
		}
		result = leaderNeedsMoreInput
	}
	return result, ""
}

func (l *Leader) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
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
			if ev.Code == l.trigger || l.active {
				q.Mark(idx, handlerIndex, queue.Handle)
			} else {
				q.Mark(idx, handlerIndex, queue.Ignore)
			}
		case event.KeyRelease:
			if err := l.handleRelease(q, idx, handlerIndex, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Leader) handleRelease(q *queue.Queue, idx, handlerIndex int, ev event.Event) error {
	if !l.active {
		if ev.Code == l.trigger {
			l.active = true
			q.Mark(idx, handlerIndex, queue.Handle)
			return nil
		}
		q.Mark(idx, handlerIndex, queue.Ignore)
		return nil
	}

	q.Mark(idx, handlerIndex, queue.Handle)
	l.prefix = append(l.prefix, ev.Code)
	result, output := l.matchPrefix()
	switch result {
	case leaderMatched:
		l.active = false
		l.prefix = nil
		if l.send != nil {
			return l.send.Inject(q, handlerIndex, output, false)
		}
	case leaderWontMatch:
		l.active = false
		l.prefix = nil
		if l.send != nil && l.failure != "" {
			return l.send.Inject(q, handlerIndex, l.failure, false)
		}
	case leaderNeedsMoreInput:
	}
	return nil
}
