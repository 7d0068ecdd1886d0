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

// TestOneShotShiftedTapProducesFourReports is the tap-shift-then-a scenario:
// a tapped OneShot trigger holds its action across exactly one following
// key, producing four distinct keyboard reports rather than collapsing into
// one — shift-down, shift+a, a-alone (shift auto-released), then empty.
func TestOneShotShiftedTapProducesFourReports(t *testing.T) {
	mods := handlers.NewModifierTracker()
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	a := keycode.A
	oneShot := handlers.NewOneShot("oneShotShift", trigger, keycode.LeftShift, 200, 1000)
	usb := handlers.NewUSBKeyboard("usb", mods)
	rec := testsupport.NewRecorder(output.OSLinux)
	handlersChain := []pipeline.Handler{oneShot, usb}

	require.NoError(t, testsupport.RunPipeline(handlersChain, rec, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipeline(handlersChain, rec, event.NewKeyRelease(trigger, 30)))
	require.NoError(t, testsupport.RunPipeline(handlersChain, rec, event.NewKeyPress(a, 40)))
	require.NoError(t, testsupport.RunPipeline(handlersChain, rec, event.NewKeyRelease(a, 50)))

	require.Len(t, rec.KeyReports, 4)
	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[0].Modifiers)
	assert.Empty(t, rec.KeyReports[0].Keys)

	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[1].Modifiers)
	assert.Equal(t, []uint8{keycode.UsageA}, rec.KeyReports[1].Keys)

	assert.Equal(t, uint8(0), rec.KeyReports[2].Modifiers, "the one-shot modifier releases as soon as the consuming key is seen")
	assert.Equal(t, []uint8{keycode.UsageA}, rec.KeyReports[2].Keys)

	assert.Equal(t, uint8(0), rec.KeyReports[3].Modifiers)
	assert.Empty(t, rec.KeyReports[3].Keys)
}

func TestOneShotHoldTimeoutConvertsToHeldModifier(t *testing.T) {
	mods := handlers.NewModifierTracker()
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	oneShot := handlers.NewOneShot("oneShotShift", trigger, keycode.LeftShift, 100, 1000)
	usb := handlers.NewUSBKeyboard("usb", mods)
	rec := testsupport.NewRecorder(output.OSLinux)
	handlersChain := []pipeline.Handler{oneShot, usb}

	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 150}, event.NewTimeOut(150)))
	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 160}, event.NewKeyRelease(trigger, 10)))

	require.Len(t, rec.KeyReports, 2)
	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[0].Modifiers, "trigger held past the hold timeout: acts as a plain modifier")
	assert.Equal(t, uint8(0), rec.KeyReports[1].Modifiers, "releasing the trigger while held-modifier releases the action")
}

// TestOneShotHoldTimeoutAcrossFineGrainedTicks feeds a run of small ticks,
// as a real driver loop calling AddTimeout every 1-10ms would, instead of
// one oversized tick that alone exceeds the threshold. The ticks stop at
// 45ms, short of the 50ms hold timeout; the release at 55ms is judged by
// the time elapsed since the press.
func TestOneShotHoldTimeoutAcrossFineGrainedTicks(t *testing.T) {
	mods := handlers.NewModifierTracker()
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	oneShot := handlers.NewOneShot("oneShotShift", trigger, keycode.LeftShift, 50, 1000)
	usb := handlers.NewUSBKeyboard("usb", mods)
	rec := testsupport.NewRecorder(output.OSLinux)
	handlersChain := []pipeline.Handler{oneShot, usb}

	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	for ms := uint64(5); ms <= 45; ms += 5 {
		require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: ms}, event.NewTimeOut(5)))
	}
	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 55}, event.NewKeyRelease(trigger, 10)))

	require.Len(t, rec.KeyReports, 2, "the cumulative 55ms crosses the 50ms hold threshold, so the release emits the action release")
	assert.Equal(t, uint8(0), rec.KeyReports[1].Modifiers)
}

func TestOneShotReleaseTimeoutSelfCancelsWhenArmed(t *testing.T) {
	mods := handlers.NewModifierTracker()
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	oneShot := handlers.NewOneShot("oneShotShift", trigger, keycode.LeftShift, 200, 500)
	usb := handlers.NewUSBKeyboard("usb", mods)
	rec := testsupport.NewRecorder(output.OSLinux)
	handlersChain := []pipeline.Handler{oneShot, usb}

	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 20}, event.NewKeyRelease(trigger, 20)))
	require.NoError(t, testsupport.RunPipelineWithClock(handlersChain, rec, pipeline.Clock{UptimeMs: 620}, event.NewTimeOut(600)))

	require.Len(t, rec.KeyReports, 2)
	assert.Equal(t, uint8(0), rec.KeyReports[1].Modifiers, "armed one-shot gives up and releases its own action past the release timeout")
}
