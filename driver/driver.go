// Package driver wires a frozen pipeline.Pipeline, a queue.Queue, and an
// output.Port into the entry points a host integration calls from its
// interrupt or poll loop (spec §5): one call per physical key transition,
// plus a periodic timeout tick for handlers with time-based state
// machines.
package driver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
	"github.com/keytokey/keytokey/queue"
)

// Counters tallies the non-fatal conditions the driver loop can hit, per
// spec §7. All are monotonically increasing. They are plain fields updated
// by the driver's entry points; Driver.Counters copies them without any
// synchronization, so it must not run concurrently with those entry points.
type Counters struct {
	QueueFull        uint64
	OutputBusy       uint64
	OutputError      uint64
	DispatchDiverged uint64
	UnroutedUnicode  uint64
	UnroutedOther    uint64
}

// UnroutedReporter is implemented by a pipeline's terminal handler (typically
// handlers.USBKeyboard) to expose codes it received but had no further
// handler to route them to.
type UnroutedReporter interface {
	UnroutedUnicode() uint64
	UnroutedOther() uint64
}

// Driver runs one frozen pipeline against one queue and output port.
type Driver struct {
	pipeline *pipeline.Pipeline
	queue    *queue.Queue
	out      output.Port
	log      *slog.Logger

	clock    pipeline.Clock
	counters Counters
	unrouted UnroutedReporter
}

// New builds a Driver. queueCapacity bounds how many events the queue holds
// at once: an incoming event that finds it full is dropped and counted in
// Counters.QueueFull (the entry point returns nil), while a handler that
// overflows it mid-dispatch makes the entry point return the wrapped
// queue.ErrQueueFull. DefaultQueueCapacity is a reasonable default for a
// handful of chained handlers.
func New(p *pipeline.Pipeline, queueCapacity int, out output.Port, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		pipeline: p,
		queue:    p.NewQueue(queueCapacity),
		out:      out,
		log:      log,
	}
}

// DefaultQueueCapacity is used when a caller doesn't have a more specific
// bound in mind.
const DefaultQueueCapacity = 32

// Counters returns a snapshot of the driver's running counters, including
// the terminal handler's unrouted-code totals if WatchUnrouted was called.
func (d *Driver) Counters() Counters {
	c := d.counters
	if d.unrouted != nil {
		c.UnroutedUnicode = d.unrouted.UnroutedUnicode()
		c.UnroutedOther = d.unrouted.UnroutedOther()
	}
	return c
}

// WatchUnrouted points the driver at reporter so Counters reflects its
// running totals. Typically called once after New with the pipeline's
// terminal handler (e.g. pipelinecfg.Built.Terminal).
func (d *Driver) WatchUnrouted(reporter UnroutedReporter) {
	d.unrouted = reporter
}

// HandlePress delivers a physical key-down for code, msSinceLast
// milliseconds after the previous event the driver observed.
func (d *Driver) HandlePress(ctx context.Context, code keycode.Code, msSinceLast uint16) error {
	return d.handle(ctx, event.NewKeyPress(code, msSinceLast))
}

// HandleRelease delivers a physical key-up for code, msSinceLast
// milliseconds after the previous event the driver observed.
func (d *Driver) HandleRelease(ctx context.Context, code keycode.Code, msSinceLast uint16) error {
	return d.handle(ctx, event.NewKeyRelease(code, msSinceLast))
}

// AddTimeout delivers a timer tick, msSinceLast milliseconds after the
// previous event the driver observed. Host integrations typically call
// this on a fixed schedule (e.g. every 1ms from a hardware timer, or once
// per poll-loop iteration) whenever no physical transition occurred, so
// time-based handlers (OneShot, SpaceCadet, TapDance, ...) can resolve
// their pending state without waiting for another keypress.
func (d *Driver) AddTimeout(ctx context.Context, msSinceLast uint16) error {
	return d.handle(ctx, event.NewTimeOut(msSinceLast))
}

func (d *Driver) handle(ctx context.Context, ev event.Event) error {
	d.clock.UptimeMs += uint64(ev.MsSinceLast)

	if err := d.queue.Push(ev); err != nil {
		d.counters.QueueFull++
		d.log.WarnContext(ctx, "queue full, dropping event", "kind", ev.Kind.String(), "code", ev.Code)
		return nil
	}

	err := d.pipeline.Dispatch(d.queue, d.out, d.clock)
	switch {
	case err == nil:
		return nil
	case isDiverged(err):
		d.counters.DispatchDiverged++
		d.log.ErrorContext(ctx, "dispatch diverged, queue cleared", "error", err)
		return nil
	default:
		return d.recordOutputError(ctx, err)
	}
}

func isDiverged(err error) bool {
	for err != nil {
		if err == pipeline.ErrDiverged {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (d *Driver) recordOutputError(ctx context.Context, err error) error {
	if errors.Is(err, output.ErrBusy) {
		d.counters.OutputBusy++
		d.log.WarnContext(ctx, "output busy, state preserved for retry", "error", err)
		return nil
	}
	var outErr *output.Error
	for e := err; e != nil; {
		if oe, ok := e.(*output.Error); ok {
			outErr = oe
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if outErr != nil {
		d.counters.OutputError++
		d.log.ErrorContext(ctx, "output error", "op", outErr.Op, "error", outErr.Err)
		return nil
	}
	return err
}
