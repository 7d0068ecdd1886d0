package handlers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/handlers"
	"github.com/keytokey/keytokey/internal/testsupport"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
)

func TestSpaceCadetShortTapEmitsTapCode(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	tap := keycode.HIDUsage(keycode.Usage9)
	sc := handlers.NewSpaceCadet("shiftParen", trigger, tap, keycode.LeftShift, 200)
	collector := &testsupport.EventCollector{}
	chain := []pipeline.Handler{sc, collector}

	require.NoError(t, testsupport.RunPipeline(chain, nil, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipeline(chain, nil, event.NewKeyRelease(trigger, 50)))

	require.Len(t, collector.Seen, 2, "a tap emits a complete press+release burst of the tap code")
	assert.True(t, collector.Seen[0].IsKeyPress(tap))
	assert.True(t, collector.Seen[1].IsKeyRelease(tap))
}

func TestSpaceCadetHoldPastTimeoutEmitsHoldCode(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	sc := handlers.NewSpaceCadet("shiftParen", trigger, keycode.HIDUsage(keycode.Usage9), keycode.LeftShift, 200)
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{sc, usb}

	require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: 250}, event.NewTimeOut(250)))
	require.Len(t, rec.KeyReports, 1, "crossing the timeout while pending activates the held modifier immediately")
	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[0].Modifiers)

	require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: 550}, event.NewKeyRelease(trigger, 300)))
	require.Len(t, rec.KeyReports, 2)
	assert.Equal(t, uint8(0), rec.KeyReports[1].Modifiers)
}

// TestSpaceCadetHoldPastTimeoutAcrossFineGrainedTicks drives the same
// pending-to-held transition through a run of small ticks, the way a real
// driver loop calling AddTimeout every 1-10ms would, rather than one
// oversized tick that happens to exceed the threshold by itself.
func TestSpaceCadetHoldPastTimeoutAcrossFineGrainedTicks(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	sc := handlers.NewSpaceCadet("shiftParen", trigger, keycode.HIDUsage(keycode.Usage9), keycode.LeftShift, 50)
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{sc, usb}

	require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	for ms := uint64(5); ms <= 45; ms += 5 {
		require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: ms}, event.NewTimeOut(5)))
	}
	require.Empty(t, rec.KeyReports, "45ms of 5ms ticks hasn't crossed the 50ms threshold yet")

	require.NoError(t, testsupport.RunPipelineWithClock(chain, rec, pipeline.Clock{UptimeMs: 55}, event.NewTimeOut(10)))
	require.Len(t, rec.KeyReports, 1, "the cumulative 55ms crosses the 50ms threshold")
	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[0].Modifiers)
}

// TestSpaceCadetShortTapProducesTwoDistinctReports is the regression the
// deferred release burst exists for: USBKeyboard assembles at most one
// report per pass, so if the tap's press and release both became visible
// together the keystroke would net to no change and never reach the wire.
func TestSpaceCadetShortTapProducesTwoDistinctReports(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	tap := keycode.HIDUsage(keycode.Usage9)
	sc := handlers.NewSpaceCadet("shiftParen", trigger, tap, keycode.LeftShift, 200)
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{sc, usb}

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyRelease(trigger, 50)))

	require.Len(t, rec.KeyReports, 2, "a tap reaches the wire as a press report then a release report")
	assert.Equal(t, []uint8{keycode.Usage9}, rec.KeyReports[0].Keys)
	assert.Empty(t, rec.KeyReports[1].Keys)
}

func TestSpaceCadetOtherKeyPressPromotesToHeld(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	other := keycode.A
	sc := handlers.NewSpaceCadet("shiftParen", trigger, keycode.HIDUsage(keycode.Usage9), keycode.LeftShift, 200)
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{sc, usb}

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(other, 20)))

	require.NotEmpty(t, rec.KeyReports)
	last := rec.KeyReports[len(rec.KeyReports)-1]
	assert.Equal(t, keycode.ModLeftShift, last.Modifiers, "a second key pressed before resolution promotes the trigger straight to held")
}
