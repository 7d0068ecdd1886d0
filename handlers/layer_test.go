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

func newTestUSBKeyboard(mods *handlers.ModifierTracker) *handlers.USBKeyboard {
	return handlers.NewUSBKeyboard("usb", mods)
}

func TestLayerRemapWhenEnabled(t *testing.T) {
	mods := handlers.NewModifierTracker()
	l := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		keycode.A: handlers.Remap(keycode.B),
	}, mods, nil)
	l.SetEnabled(true)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyPress(keycode.A, 0)))
	err := testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyRelease(keycode.A, 5))
	require.NoError(t, err)

	require.Len(t, rec.KeyReports, 2)
	assert.Equal(t, []uint8{keycode.UsageB}, rec.KeyReports[0].Keys)
	assert.Empty(t, rec.KeyReports[1].Keys)
}

func TestLayerTransparentWhenDisabled(t *testing.T) {
	mods := handlers.NewModifierTracker()
	l := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		keycode.A: handlers.Remap(keycode.B),
	}, mods, nil)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	err := testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyPress(keycode.A, 0))
	require.NoError(t, err)

	require.Len(t, rec.KeyReports, 1)
	assert.Equal(t, []uint8{keycode.UsageA}, rec.KeyReports[0].Keys)
}

func TestLayerReleaseSurvivesDisableWhileHeld(t *testing.T) {
	mods := handlers.NewModifierTracker()
	l := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		keycode.A: handlers.Remap(keycode.B),
	}, mods, nil)
	l.SetEnabled(true)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyPress(keycode.A, 0)))
	require.Len(t, rec.KeyReports, 1)
	assert.Equal(t, []uint8{keycode.UsageB}, rec.KeyReports[0].Keys)

	l.SetEnabled(false)
	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyRelease(keycode.A, 5)))
	require.Len(t, rec.KeyReports, 2)
	assert.Empty(t, rec.KeyReports[1].Keys, "the release must clear the same code the press emitted, not the raw physical code")
}

func TestLayerShiftAwareRespectsCurrentShiftState(t *testing.T) {
	number1 := keycode.HIDUsage(keycode.Usage1)
	shiftedSymbol := keycode.HIDUsage(keycode.UsageMinus)
	mods := handlers.NewModifierTracker()
	l := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		number1: handlers.ShiftAware(number1, shiftedSymbol),
	}, mods, nil)
	l.SetEnabled(true)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyPress(keycode.LeftShift, 0)))
	err := testsupport.RunPipeline([]pipeline.Handler{l, usb}, rec, event.NewKeyPress(number1, 0))
	require.NoError(t, err)

	last := rec.KeyReports[len(rec.KeyReports)-1]
	assert.Equal(t, []uint8{keycode.UsageMinus}, last.Keys)
	assert.NotZero(t, last.Modifiers&keycode.ModLeftShift)
}

func TestLayerStringEmitsSendStringBurst(t *testing.T) {
	s := keycode.HIDUsage(keycode.UsageS)
	mods := handlers.NewModifierTracker()
	send := handlers.NewSendString(keycode.LeftShift)
	l := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		s: handlers.EmitString("hi"),
	}, mods, send)
	l.SetEnabled(true)
	collector := &testsupport.EventCollector{}

	err := testsupport.RunPipeline([]pipeline.Handler{l, collector}, nil,
		event.NewKeyPress(s, 0),
		event.NewKeyRelease(s, 5),
	)
	require.NoError(t, err)
	assert.True(t, containsPress(collector.Seen, keycode.HIDUsage(keycode.UsageH)))
	assert.True(t, containsPress(collector.Seen, keycode.HIDUsage(keycode.UsageI)))
}

func TestRewriteLayerRemapsAndTransparent(t *testing.T) {
	c := keycode.HIDUsage(keycode.UsageC)
	rl := handlers.NewRewriteLayer("compact", map[keycode.Code]keycode.Code{keycode.A: c})
	usb := newTestUSBKeyboard(handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{rl, usb}, rec, event.NewKeyPress(keycode.B, 0)))
	require.Len(t, rec.KeyReports, 1)
	assert.Equal(t, []uint8{keycode.UsageB}, rec.KeyReports[0].Keys, "no table entry: transparent even while disabled")

	rl.SetEnabled(true)
	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{rl, usb}, rec, event.NewKeyPress(keycode.A, 0)))
	last := rec.KeyReports[len(rec.KeyReports)-1]
	assert.Contains(t, last.Keys, uint8(keycode.UsageC))
}

func TestLayerToggleMomentaryEnablesOnPressDisablesOnRelease(t *testing.T) {
	mods := handlers.NewModifierTracker()
	layer := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{
		keycode.A: handlers.Remap(keycode.B),
	}, mods, nil)
	toggle := handlers.NewLayerToggle("toggle")
	toggle.Bind(keycode.Tab, layer, handlers.ToggleMomentary)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{toggle, layer, usb}, rec, event.NewKeyPress(keycode.Tab, 0)))
	assert.True(t, layer.Enabled())

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{toggle, layer, usb}, rec, event.NewKeyRelease(keycode.Tab, 0)))
	assert.False(t, layer.Enabled())
}

func TestLayerToggleFlipIgnoresRelease(t *testing.T) {
	mods := handlers.NewModifierTracker()
	layer := handlers.NewLayer("symbols", map[keycode.Code]handlers.LayerAction{}, mods, nil)
	toggle := handlers.NewLayerToggle("toggle")
	toggle.Bind(keycode.Tab, layer, handlers.ToggleFlip)
	usb := newTestUSBKeyboard(mods)
	rec := testsupport.NewRecorder(output.OSLinux)

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{toggle, layer, usb}, rec,
		event.NewKeyPress(keycode.Tab, 0), event.NewKeyRelease(keycode.Tab, 0)))
	assert.True(t, layer.Enabled(), "flip toggles once on press; release is a no-op")
}
