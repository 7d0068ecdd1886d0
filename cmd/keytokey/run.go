package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/keytokey/keytokey/driver"
	"github.com/keytokey/keytokey/internal/pipelinecfg"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
)

// Run drives a configured pipeline from the controlling terminal: with
// stdin in raw mode, every byte read is a stand-in for a matrix-scanner
// keypress (spec §1's "external collaborators" boundary — this is the
// harness a real board's scan loop would occupy), and a background ticker
// feeds TimeOut events so OneShot/SpaceCadet/TapAndLongTap/TapDance can
// resolve their pending state without another keystroke.
type Run struct {
	Config string `arg:"" optional:"" help:"Pipeline configuration file (.json/.yaml/.toml); omitted uses the built-in example pipeline"`
	OS     string `help:"Host OS, controls Unicode entry sequences" enum:"linux,windows,mac" default:"linux"`
	Boot   bool   `help:"Restrict active keys to the 6-key boot keyboard protocol"`
	Tick   time.Duration `help:"Timeout-tick interval fed to time-based handlers" default:"10ms"`
}

func (r *Run) Run(logger *slog.Logger, reportLogger output.ReportLogger) error {
	built, err := r.loadPipeline()
	if err != nil {
		return fmt.Errorf("keytokey run: %w", err)
	}

	port := &consolePort{os: parseOS(r.OS), bootOnly: r.Boot, logger: logger}
	tracing := output.NewTracingPort(port, reportLogger)
	drv := driver.New(built.Pipeline, driver.DefaultQueueCapacity, tracing, logger)
	if built.Terminal != nil {
		drv.WatchUnrouted(built.Terminal)
	}

	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("keytokey run: put terminal in raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, state) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("keytokey running; press Ctrl+C to exit", "tick", r.Tick)

	events := make(chan byte, 32)
	go readBytes(os.Stdin, events)

	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-events:
			if !ok {
				return nil
			}
			if b == 0x03 { // Ctrl+C, in case the signal doesn't arrive first
				return nil
			}
			now := time.Now()
			delta := clampMs(now.Sub(last))
			last = now
			if err := deliverByte(ctx, drv, b, delta); err != nil {
				return err
			}
		case <-ticker.C:
			now := time.Now()
			delta := clampMs(now.Sub(last))
			last = now
			if err := drv.AddTimeout(ctx, delta); err != nil {
				return err
			}
		}
	}
}

func readBytes(f *os.File, out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

func clampMs(d time.Duration) uint16 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > 0xFFFF {
		return 0xFFFF
	}
	return uint16(ms)
}

// deliverByte translates one raw terminal byte into the physical HID
// key-press/release burst a keyboard would have produced to type it,
// wrapping shifted characters in a synthesized Shift press/release the same
// way handlers.SendString does for pipeline-internal string emission.
func deliverByte(ctx context.Context, drv *driver.Driver, b byte, delta uint16) error {
	entry, ok := terminalByteTable[b]
	if !ok {
		return nil
	}
	if entry.shift {
		if err := drv.HandlePress(ctx, keycode.LeftShift, delta); err != nil {
			return err
		}
		delta = 0
	}
	if err := drv.HandlePress(ctx, entry.code, delta); err != nil {
		return err
	}
	if err := drv.HandleRelease(ctx, entry.code, 0); err != nil {
		return err
	}
	if entry.shift {
		if err := drv.HandleRelease(ctx, keycode.LeftShift, 0); err != nil {
			return err
		}
	}
	return nil
}

type terminalKey struct {
	code  keycode.Code
	shift bool
}

var terminalByteTable = buildTerminalByteTable()

func buildTerminalByteTable() map[byte]terminalKey {
	t := make(map[byte]terminalKey, 96)
	for i := 0; i < 26; i++ {
		code := keycode.HIDUsage(uint8(keycode.UsageA + i))
		t[byte('a'+i)] = terminalKey{code: code}
		t[byte('A'+i)] = terminalKey{code: code, shift: true}
	}
	digits := []uint8{
		keycode.Usage1, keycode.Usage2, keycode.Usage3, keycode.Usage4, keycode.Usage5,
		keycode.Usage6, keycode.Usage7, keycode.Usage8, keycode.Usage9, keycode.Usage0,
	}
	for i, usage := range digits[:9] {
		t[byte('1'+i)] = terminalKey{code: keycode.HIDUsage(usage)}
	}
	t['0'] = terminalKey{code: keycode.HIDUsage(keycode.Usage0)}
	t[' '] = terminalKey{code: keycode.Space}
	t['\r'] = terminalKey{code: keycode.Enter}
	t['\n'] = terminalKey{code: keycode.Enter}
	t['\t'] = terminalKey{code: keycode.Tab}
	t[0x7f] = terminalKey{code: keycode.Backspace}
	t[0x1b] = terminalKey{code: keycode.HIDUsage(keycode.UsageEscape)}
	return t
}

func parseOS(s string) output.OS {
	switch s {
	case "windows":
		return output.OSWindows
	case "mac":
		return output.OSMac
	default:
		return output.OSLinux
	}
}

func (r *Run) loadPipeline() (*pipelinecfg.Built, error) {
	if r.Config == "" {
		return pipelinecfg.Build(&pipelinecfg.PipelineConfig{Handlers: examplePipelineConfig().Handlers})
	}
	data, err := os.ReadFile(r.Config)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg *pipelinecfg.PipelineConfig
	switch {
	case hasSuffix(r.Config, ".json"):
		cfg, err = pipelinecfg.DecodeJSON(data)
	case hasSuffix(r.Config, ".yaml"), hasSuffix(r.Config, ".yml"):
		cfg, err = pipelinecfg.DecodeYAML(data)
	case hasSuffix(r.Config, ".toml"):
		cfg, err = pipelinecfg.DecodeTOML(data)
	default:
		cfg, err = pipelinecfg.DecodeTOML(data)
	}
	if err != nil {
		return nil, err
	}
	return pipelinecfg.Build(cfg)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
