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

func TestUSBKeyboardCoalescesMultipleKeysIntoOneReport(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)

	err := testsupport.RunPipeline([]pipeline.Handler{usb}, rec,
		event.NewKeyPress(keycode.A, 0),
		event.NewKeyPress(keycode.B, 0),
	)
	require.NoError(t, err)

	require.Len(t, rec.KeyReports, 1, "both presses land in the same dispatch pass and coalesce into one report")
	assert.ElementsMatch(t, []uint8{keycode.UsageA, keycode.UsageB}, rec.KeyReports[0].Keys)
}

func TestUSBKeyboardModifierPressSetsBitsWithoutOccupyingAKeySlot(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)

	err := testsupport.RunPipeline([]pipeline.Handler{usb}, rec,
		event.NewKeyPress(keycode.LeftShift, 0),
		event.NewKeyPress(keycode.A, 0),
	)
	require.NoError(t, err)

	require.Len(t, rec.KeyReports, 1)
	assert.Equal(t, keycode.ModLeftShift, rec.KeyReports[0].Modifiers)
	assert.Equal(t, []uint8{keycode.UsageA}, rec.KeyReports[0].Keys)
}

func TestUSBKeyboardRepeatedPressOfActiveKeySendsNoNewReport(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{usb}

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(keycode.A, 0)))
	require.Len(t, rec.KeyReports, 1)

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(keycode.A, 0)))
	require.Len(t, rec.KeyReports, 1, "re-observing an already-active key is not a state change")
}

func TestUSBKeyboardBootModeTruncatesToSixKeys(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	rec.BootOnly = true

	codes := []keycode.Code{
		keycode.HIDUsage(keycode.UsageA), keycode.HIDUsage(keycode.UsageB),
		keycode.HIDUsage(keycode.UsageC), keycode.HIDUsage(keycode.UsageD),
		keycode.HIDUsage(keycode.UsageE), keycode.HIDUsage(keycode.UsageF),
		keycode.HIDUsage(keycode.UsageG),
	}
	evs := make([]event.Event, len(codes))
	for i, c := range codes {
		evs[i] = event.NewKeyPress(c, 0)
	}

	require.NoError(t, testsupport.RunPipeline([]pipeline.Handler{usb}, rec, evs...))
	require.Len(t, rec.KeyReports, 1)
	assert.Len(t, rec.KeyReports[0].Keys, 6, "boot-keyboard mode reports at most six simultaneous keys")
	assert.NotContains(t, rec.KeyReports[0].Keys, uint8(keycode.UsageA), "the oldest key is the one dropped to make room")
}

func TestUSBKeyboardConsumerUsagePressAndRelease(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	volumeUp := keycode.ConsumerUsage(0xE9)
	chain := []pipeline.Handler{usb}

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(volumeUp, 0)))
	require.Len(t, rec.ConsumerReports, 1)
	assert.Equal(t, uint16(0xE9), rec.ConsumerReports[0])

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyRelease(volumeUp, 10)))
	require.Len(t, rec.ConsumerReports, 2)
	assert.Equal(t, uint16(0), rec.ConsumerReports[1])
}

func TestUSBKeyboardCountsUnroutedCodes(t *testing.T) {
	usb := handlers.NewUSBKeyboard("usb", handlers.NewModifierTracker())
	rec := testsupport.NewRecorder(output.OSLinux)
	chain := []pipeline.Handler{usb}

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(keycode.Code(0x1F600), 0)))
	assert.Equal(t, uint64(1), usb.UnroutedUnicode())
	assert.Equal(t, uint64(0), usb.UnroutedOther())

	require.NoError(t, testsupport.RunPipeline(chain, rec, event.NewKeyPress(keycode.Action(0), 0)))
	assert.Equal(t, uint64(1), usb.UnroutedOther())
}
