package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keytokey/keytokey/report"
)

func TestKeyboardEqualIgnoresOrder(t *testing.T) {
	a := report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x04, 0x05}}
	b := report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x05, 0x04}}
	assert.True(t, a.Equal(b))
}

func TestKeyboardEqualDetectsDifference(t *testing.T) {
	a := report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x04}}
	assert.False(t, a.Equal(report.Keyboard{Modifiers: 0x00, Keys: []uint8{0x04}}))
	assert.False(t, a.Equal(report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x05}}))
	assert.False(t, a.Equal(report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x04, 0x05}}))
}

func TestKeyboardBuildReport(t *testing.T) {
	k := report.Keyboard{Modifiers: 0x02, Keys: []uint8{0x04, 0x05}}
	b := k.BuildReport()
	assert.Equal(t, []byte{0x02, 0x00, 0x04, 0x05, 0x00, 0x00, 0x00, 0x00}, b)
}

func TestKeyboardBuildReportTruncatesToBootLimit(t *testing.T) {
	keys := make([]uint8, 10)
	for i := range keys {
		keys[i] = uint8(i + 1)
	}
	k := report.Keyboard{Keys: keys}
	b := k.BuildReport()
	assert.Len(t, b, 8)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, b[2:])
}

func TestConsumerEqualAndBuildReport(t *testing.T) {
	c := report.Consumer{Usage: 0x00E9}
	assert.True(t, c.Equal(report.Consumer{Usage: 0xE9}))
	assert.False(t, c.Equal(report.Consumer{Usage: 0xEA}))
	assert.Equal(t, []byte{0xE9, 0x00}, c.BuildReport())
}
