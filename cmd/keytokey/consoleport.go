package main

import (
	"log/slog"

	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
)

// consolePort is the demonstration output.Port: it has no real USB
// transport to write to, so it just logs every report it's handed. A real
// integration swaps this for a HID gadget/report-descriptor writer.
type consolePort struct {
	os       output.OS
	bootOnly bool
	logger   *slog.Logger
}

func (c *consolePort) SendKeys(modifiers uint8, keys []uint8) error {
	c.logger.Info("hid keys", "modifiers", modifiers, "keys", keys)
	return nil
}

func (c *consolePort) SendConsumer(usage uint16) error {
	c.logger.Info("hid consumer", "usage", usage)
	return nil
}

func (c *consolePort) SendUnicode(cp keycode.Code) error {
	c.logger.Info("unicode", "codepoint", cp)
	return nil
}

func (c *consolePort) BootKeyboardOnly() bool { return c.bootOnly }
func (c *consolePort) GetOS() output.OS       { return c.os }

var _ output.Port = (*consolePort)(nil)
