package keycode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keytokey/keytokey/keycode"
)

func TestHIDUsageRoundTrip(t *testing.T) {
	for _, usage := range []uint8{keycode.UsageA, keycode.UsageZ, keycode.Usage0, 0xE1} {
		c := keycode.HIDUsage(usage)
		assert.True(t, keycode.IsHIDUsage(c))
		assert.Equal(t, usage, keycode.UsageID(c))
		assert.False(t, keycode.IsUnicode(c))
		assert.False(t, keycode.IsConsumerUsage(c))
		assert.False(t, keycode.IsAction(c))
	}
}

func TestConsumerUsageRoundTrip(t *testing.T) {
	c := keycode.ConsumerUsage(0xE9) // volume up
	assert.True(t, keycode.IsConsumerUsage(c))
	assert.Equal(t, uint16(0xE9), keycode.ConsumerUsageID(c))
	assert.False(t, keycode.IsHIDUsage(c))
	assert.False(t, keycode.IsAction(c))
}

func TestUsageIDPanicsOutsideHIDRange(t *testing.T) {
	assert.Panics(t, func() { keycode.UsageID(keycode.ConsumerUsage(1)) })
}

func TestConsumerUsageIDPanicsOutsideConsumerRange(t *testing.T) {
	assert.Panics(t, func() { keycode.ConsumerUsageID(keycode.HIDUsage(keycode.UsageA)) })
}

func TestActionCodes(t *testing.T) {
	a0 := keycode.Action(0)
	a5 := keycode.Action(5)
	assert.True(t, keycode.IsAction(a0))
	assert.True(t, keycode.IsAction(a5))
	assert.NotEqual(t, a0, a5)
	assert.False(t, keycode.IsHIDUsage(a0))
	assert.False(t, keycode.IsConsumerUsage(a0))
}

func TestUserPrivateCodes(t *testing.T) {
	u := keycode.UserCode(3)
	assert.True(t, keycode.IsUserPrivate(u))
	assert.False(t, keycode.IsAction(u))
	assert.False(t, keycode.IsHIDUsage(u))
}

func TestIsUnicode(t *testing.T) {
	assert.True(t, keycode.IsUnicode(keycode.Code('a')))
	assert.True(t, keycode.IsUnicode(keycode.Code(0x1F600)))
	assert.False(t, keycode.IsUnicode(keycode.UnicodePrivateA))
}

func TestModifierBit(t *testing.T) {
	assert.Equal(t, keycode.ModLeftShift, keycode.ModifierBit(keycode.UsageLeftShift))
	assert.Equal(t, keycode.ModRightGUI, keycode.ModifierBit(keycode.UsageRightGUI))
	assert.Equal(t, uint8(0), keycode.ModifierBit(keycode.UsageA))
}

func TestIsModifierUsage(t *testing.T) {
	assert.True(t, keycode.IsModifierUsage(keycode.UsageLeftCtrl))
	assert.True(t, keycode.IsModifierUsage(keycode.UsageRightGUI))
	assert.False(t, keycode.IsModifierUsage(keycode.UsageA))
}

func TestRegionsDoNotOverlap(t *testing.T) {
	assert.Less(t, keycode.UnicodePrivateA, keycode.ActionBase)
	assert.Less(t, keycode.ActionBase, keycode.UnicodePrivateAEnd)
	assert.Equal(t, keycode.UnicodePrivateAEnd, keycode.UnicodePrivateB)
	assert.Equal(t, keycode.UnicodePrivateBEnd, keycode.HandlerPrivate)
}
