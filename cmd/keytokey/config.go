package main

import (
	"encoding/json"
	"errors"
	"os"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/keytokey/keytokey/internal/pipelinecfg"
)

// ConfigCommand groups configuration-related subcommands, mirroring the
// teacher's internal/cmd.ConfigCommand grouping.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write an example pipeline configuration file"`
}

// ConfigInit scaffolds a pipeline configuration file. Unlike the teacher's
// reflection-based scaffolder (its config describes a handful of scalar
// server settings), a pipeline configuration's substance is a dynamically
// sized handler list — there's no meaningful "zero value" for it to
// reflect over, so this writes a real, working example pipeline instead:
// a symbol layer (one remap entry, one string entry) toggled by a momentary
// layer key, a OneShot left-shift, an AutoShift, and the
// UnicodeKeyboard/USBKeyboard tail every pipeline needs.
type ConfigInit struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"toml"`
	Output string `help:"Destination file path" default:"keytokey-pipeline.toml"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

func (c *ConfigInit) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}

	cfg := examplePipelineConfig()

	var data []byte
	var err error
	switch c.Format {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return errors.New("unsupported format: " + c.Format)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(c.Output, data, 0o644)
}

func examplePipelineConfig() pipelinecfg.PipelineConfig {
	return pipelinecfg.PipelineConfig{
		MaxPasses:  10,
		ShiftUsage: "hid:leftshift",
		Handlers: []pipelinecfg.HandlerConfig{
			{
				Type: "layerToggle",
				Name: "symbolsToggle",
				Bindings: []pipelinecfg.ToggleBindingConfig{
					{Trigger: "hid:tab", Target: "symbols", Op: "momentary"},
				},
			},
			{
				Type: "layer",
				Name: "symbols",
				Table: []pipelinecfg.LayerEntryConfig{
					{From: "hid:a", Kind: "remap", To: "unicode:U+0040"},
					{From: "hid:s", Kind: "string", Text: "->"},
				},
			},
			{
				Type:             "oneShot",
				Name:             "oneShotShift",
				Trigger:          "hid:capslock",
				Action:           "hid:leftshift",
				HoldTimeoutMs:    200,
				ReleaseTimeoutMs: 1000,
			},
			{
				Type:        "autoShift",
				Name:        "autoShift",
				ShiftUsage:  "hid:leftshift",
				ThresholdMs: 150,
			},
			{Type: "unicodeKeyboard", Name: "unicode"},
			{Type: "usbKeyboard", Name: "usb"},
		},
	}
}
