// Package testsupport provides shared test doubles for the handler and
// driver test suites: a recording output.Port (grounded on
// original_source/src/test_helpers.rs's KeyOutCatcher) and a couple of
// small OnOff/Handler doubles mirroring the same file's PressCounter and
// TimeoutLogger, adapted from the teacher's internal/testing/mocks.go
// constructor-function style.
package testsupport

import (
	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// KeyReport is one recorded SendKeys call.
type KeyReport struct {
	Modifiers uint8
	Keys      []uint8
}

// Recorder is an output.Port that appends every call to a slice instead of
// talking to real hardware, the same role as the original's KeyOutCatcher.
type Recorder struct {
	KeyReports      []KeyReport
	ConsumerReports []uint16
	UnicodeSent     []keycode.Code

	BootOnly bool
	OS       output.OS

	// Busy, when true, makes every Send* call return output.ErrBusy without
	// recording anything, for exercising the driver's busy/retry path.
	Busy bool
}

// NewRecorder returns a Recorder targeting osKind, boot-keyboard-only mode
// off.
func NewRecorder(osKind output.OS) *Recorder {
	return &Recorder{OS: osKind}
}

func (r *Recorder) SendKeys(modifiers uint8, keys []uint8) error {
	if r.Busy {
		return output.ErrBusy
	}
	cp := append([]uint8(nil), keys...)
	r.KeyReports = append(r.KeyReports, KeyReport{Modifiers: modifiers, Keys: cp})
	return nil
}

func (r *Recorder) SendConsumer(usage uint16) error {
	if r.Busy {
		return output.ErrBusy
	}
	r.ConsumerReports = append(r.ConsumerReports, usage)
	return nil
}

func (r *Recorder) SendUnicode(cp keycode.Code) error {
	if r.Busy {
		return output.ErrBusy
	}
	r.UnicodeSent = append(r.UnicodeSent, cp)
	return nil
}

func (r *Recorder) BootKeyboardOnly() bool { return r.BootOnly }
func (r *Recorder) GetOS() output.OS       { return r.OS }

var _ output.Port = (*Recorder)(nil)

// Clear discards every recorded call, for reusing one Recorder across
// sub-tests.
func (r *Recorder) Clear() {
	r.KeyReports = nil
	r.ConsumerReports = nil
	r.UnicodeSent = nil
}

// PressCounter is an OnOff double counting activations/deactivations,
// mirroring original_source's PressCounter test helper.
type PressCounter struct {
	DownCount int
	UpCount   int
}

func (p *PressCounter) OnActivate(out output.Port) error {
	p.DownCount++
	return nil
}

func (p *PressCounter) OnDeactivate(out output.Port) error {
	p.UpCount++
	return nil
}

// TimeoutLogger is a minimal pipeline.Handler that records the MsSinceLast
// of every TimeOut event whose delta is at least minTimeoutMs, mirroring
// original_source's TimeoutLogger — useful for asserting a driver loop
// delivers timeout ticks with the expected deltas.
type TimeoutLogger struct {
	name          string
	minTimeoutMs  uint16
	Observed      []uint16
}

func NewTimeoutLogger(name string, minTimeoutMs uint16) *TimeoutLogger {
	return &TimeoutLogger{name: name, minTimeoutMs: minTimeoutMs}
}

func (l *TimeoutLogger) Name() string { return l.name }

func (l *TimeoutLogger) ProcessEvents(q *queue.Queue, handlerIndex int, out output.Port, clock pipeline.Clock) error {
	for _, idx := range q.IterFor(handlerIndex) {
		ev := q.Peek(idx)
		if ev.Kind == event.TimeOut && ev.MsSinceLast >= l.minTimeoutMs {
			l.Observed = append(l.Observed, ev.MsSinceLast)
		}
		q.Mark(idx, handlerIndex, queue.Ignore)
	}
	return nil
}

var _ pipeline.Handler = (*TimeoutLogger)(nil)
