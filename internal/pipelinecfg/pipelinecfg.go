// Package pipelinecfg decodes a declarative pipeline layout (spec §6,
// "Configuration") from JSON, YAML, or TOML and builds it once into a
// frozen pipeline.Pipeline, mirroring the teacher's config-decode-then-
// freeze split between internal/cmd/config.go (the reflection-based
// template scaffolder) and cmd/viiper/viiper.go (kong's own decode step).
//
// Handlers whose behaviour is a Go closure — Layer's LayerCallback action,
// PressReleaseMacro, TapDance's TapDanceAction — have no data representation
// and so aren't buildable from config; a pipeline that needs them is
// assembled by calling the handlers package directly and never touches this
// package. Everything else in the catalogue round-trips through here.
package pipelinecfg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/keytokey/keytokey/handlers"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/pipeline"
)

// PipelineConfig is the top-level decoded document.
type PipelineConfig struct {
	MaxPasses  int             `json:"maxPasses,omitempty" yaml:"maxPasses,omitempty" toml:"maxPasses,omitempty"`
	ShiftUsage string          `json:"shiftUsage,omitempty" yaml:"shiftUsage,omitempty" toml:"shiftUsage,omitempty"`
	Handlers   []HandlerConfig `json:"handlers" yaml:"handlers" toml:"handlers"`
}

// LayerEntryConfig is one row of a Layer or RewriteLayer table.
type LayerEntryConfig struct {
	From      string `json:"from" yaml:"from" toml:"from"`
	Kind      string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"` // "remap" (default), "shiftAware", "string"
	To        string `json:"to,omitempty" yaml:"to,omitempty" toml:"to,omitempty"`
	Unshifted string `json:"unshifted,omitempty" yaml:"unshifted,omitempty" toml:"unshifted,omitempty"`
	Shifted   string `json:"shifted,omitempty" yaml:"shifted,omitempty" toml:"shifted,omitempty"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
}

// ToggleBindingConfig is one row of a LayerToggle's binding table.
type ToggleBindingConfig struct {
	Trigger string `json:"trigger" yaml:"trigger" toml:"trigger"`
	Target  string `json:"target" yaml:"target" toml:"target"` // name of a Layer/RewriteLayer defined elsewhere in Handlers
	Op      string `json:"op" yaml:"op" toml:"op"`             // "enable", "disable", "flip", "momentary"
}

// LeaderMappingConfig is one row of a Leader's sequence table.
type LeaderMappingConfig struct {
	Sequence []string `json:"sequence" yaml:"sequence" toml:"sequence"`
	Output   string   `json:"output" yaml:"output" toml:"output"`
}

// HandlerConfig is a tagged union of every data-representable catalogue
// handler; Type selects which fields apply. Unused fields for a given Type
// are ignored.
type HandlerConfig struct {
	Type string `json:"type" yaml:"type" toml:"type"`
	Name string `json:"name" yaml:"name" toml:"name"`

	// Layer, RewriteLayer
	Table []LayerEntryConfig `json:"table,omitempty" yaml:"table,omitempty" toml:"table,omitempty"`

	// LayerToggle
	Bindings []ToggleBindingConfig `json:"bindings,omitempty" yaml:"bindings,omitempty" toml:"bindings,omitempty"`

	// OneShot, StickyMacro, SpaceCadet, TapAndLongTap, Sequence
	Trigger          string   `json:"trigger,omitempty" yaml:"trigger,omitempty" toml:"trigger,omitempty"`
	Action           string   `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
	HoldTimeoutMs    uint16   `json:"holdTimeoutMs,omitempty" yaml:"holdTimeoutMs,omitempty" toml:"holdTimeoutMs,omitempty"`
	ReleaseTimeoutMs uint16   `json:"releaseTimeoutMs,omitempty" yaml:"releaseTimeoutMs,omitempty" toml:"releaseTimeoutMs,omitempty"`
	Tap              string   `json:"tap,omitempty" yaml:"tap,omitempty" toml:"tap,omitempty"`
	Hold             string   `json:"hold,omitempty" yaml:"hold,omitempty" toml:"hold,omitempty"`
	TapTimeoutMs     uint16   `json:"tapTimeoutMs,omitempty" yaml:"tapTimeoutMs,omitempty" toml:"tapTimeoutMs,omitempty"`
	Short            string   `json:"short,omitempty" yaml:"short,omitempty" toml:"short,omitempty"`
	Long             string   `json:"long,omitempty" yaml:"long,omitempty" toml:"long,omitempty"`
	LongTimeoutMs    uint16   `json:"longTimeoutMs,omitempty" yaml:"longTimeoutMs,omitempty" toml:"longTimeoutMs,omitempty"`
	Codes            []string `json:"codes,omitempty" yaml:"codes,omitempty" toml:"codes,omitempty"`

	// AutoShift
	ShiftUsage  string `json:"shiftUsage,omitempty" yaml:"shiftUsage,omitempty" toml:"shiftUsage,omitempty"`
	ThresholdMs uint16 `json:"thresholdMs,omitempty" yaml:"thresholdMs,omitempty" toml:"thresholdMs,omitempty"`
	Letters     *bool  `json:"letters,omitempty" yaml:"letters,omitempty" toml:"letters,omitempty"`
	Numbers     *bool  `json:"numbers,omitempty" yaml:"numbers,omitempty" toml:"numbers,omitempty"`
	Special     *bool  `json:"special,omitempty" yaml:"special,omitempty" toml:"special,omitempty"`

	// Leader
	Mappings []LeaderMappingConfig `json:"mappings,omitempty" yaml:"mappings,omitempty" toml:"mappings,omitempty"`
	Failure  string                `json:"failure,omitempty" yaml:"failure,omitempty" toml:"failure,omitempty"`
}

// DecodeJSON decodes a PipelineConfig from JSON.
func DecodeJSON(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pipelinecfg: decode json: %w", err)
	}
	return &cfg, nil
}

// DecodeYAML decodes a PipelineConfig from YAML.
func DecodeYAML(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pipelinecfg: decode yaml: %w", err)
	}
	return &cfg, nil
}

// DecodeTOML decodes a PipelineConfig from TOML.
func DecodeTOML(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pipelinecfg: decode toml: %w", err)
	}
	return &cfg, nil
}

// Built is the result of Build: the frozen pipeline plus the shared state a
// caller (typically cmd/keytokey) needs a handle on to drive the pipeline or
// inject config-driven Unicode/string bursts itself.
type Built struct {
	Pipeline  *pipeline.Pipeline
	Modifiers *handlers.ModifierTracker
	SendStr   *handlers.SendString
	// Layers indexes every Layer/RewriteLayer by its configured name, for a
	// caller that wants to drive one directly (tests, a REPL command)
	// outside of a configured LayerToggle binding.
	Layers map[string]handlers.LayerController
	// Terminal is the pipeline's USBKeyboard handler, if one was configured,
	// for a caller that wants to feed its unrouted-code counters into
	// driver.Driver.WatchUnrouted.
	Terminal *handlers.USBKeyboard
}

// Build decodes nothing itself; it turns an already-decoded PipelineConfig
// into a frozen pipeline.Pipeline. Handler order in cfg.Handlers is the
// pipeline order. LayerToggle bindings may reference a target defined
// anywhere in cfg.Handlers, not just earlier entries, since targets are
// resolved in a pass over the whole list before the pipeline is assembled.
func Build(cfg *PipelineConfig) (*Built, error) {
	shiftUsage := keycode.LeftShift
	if cfg.ShiftUsage != "" {
		c, err := ParseCode(cfg.ShiftUsage)
		if err != nil {
			return nil, fmt.Errorf("pipelinecfg: shiftUsage: %w", err)
		}
		shiftUsage = c
	}

	modifiers := handlers.NewModifierTracker()
	send := handlers.NewSendString(shiftUsage)
	layers := make(map[string]handlers.LayerController)

	var terminal *handlers.USBKeyboard
	built := make([]pipeline.Handler, 0, len(cfg.Handlers))
	for i, hc := range cfg.Handlers {
		h, err := buildOne(hc, modifiers, send, layers)
		if err != nil {
			return nil, fmt.Errorf("pipelinecfg: handler %d (%s): %w", i, hc.Type, err)
		}
		if usb, ok := h.(*handlers.USBKeyboard); ok {
			terminal = usb
		}
		built = append(built, h)
	}

	// Second pass: wire LayerToggle bindings now that every named
	// Layer/RewriteLayer exists, regardless of declaration order.
	for i, hc := range cfg.Handlers {
		if hc.Type != "layerToggle" {
			continue
		}
		toggle := built[i].(*handlers.LayerToggle)
		for _, b := range hc.Bindings {
			target, ok := layers[b.Target]
			if !ok {
				return nil, fmt.Errorf("pipelinecfg: handler %d: layerToggle binding references unknown target %q", i, b.Target)
			}
			trigger, err := ParseCode(b.Trigger)
			if err != nil {
				return nil, fmt.Errorf("pipelinecfg: handler %d: binding trigger: %w", i, err)
			}
			op, err := parseToggleOp(b.Op)
			if err != nil {
				return nil, fmt.Errorf("pipelinecfg: handler %d: %w", i, err)
			}
			toggle.Bind(trigger, target, op)
		}
	}

	return &Built{
		Pipeline:  pipeline.New(built, cfg.MaxPasses),
		Modifiers: modifiers,
		SendStr:   send,
		Layers:    layers,
		Terminal:  terminal,
	}, nil
}

func buildOne(hc HandlerConfig, modifiers *handlers.ModifierTracker, send *handlers.SendString, layers map[string]handlers.LayerController) (pipeline.Handler, error) {
	switch hc.Type {
	case "layer":
		table, err := buildLayerTable(hc.Table)
		if err != nil {
			return nil, err
		}
		l := handlers.NewLayer(hc.Name, table, modifiers, send)
		layers[hc.Name] = l
		return l, nil

	case "rewriteLayer":
		table, err := buildRewriteTable(hc.Table)
		if err != nil {
			return nil, err
		}
		rl := handlers.NewRewriteLayer(hc.Name, table)
		layers[hc.Name] = rl
		return rl, nil

	case "layerToggle":
		return handlers.NewLayerToggle(hc.Name), nil

	case "oneShot":
		trigger, action, err := parsePair(hc.Trigger, hc.Action)
		if err != nil {
			return nil, err
		}
		return handlers.NewOneShot(hc.Name, trigger, action, hc.HoldTimeoutMs, hc.ReleaseTimeoutMs), nil

	case "stickyMacro":
		trigger, action, err := parsePair(hc.Trigger, hc.Action)
		if err != nil {
			return nil, err
		}
		return handlers.NewStickyMacro(hc.Name, trigger, action), nil

	case "spaceCadet":
		trigger, err := ParseCode(hc.Trigger)
		if err != nil {
			return nil, fmt.Errorf("trigger: %w", err)
		}
		tap, err := ParseCode(hc.Tap)
		if err != nil {
			return nil, fmt.Errorf("tap: %w", err)
		}
		hold, err := ParseCode(hc.Hold)
		if err != nil {
			return nil, fmt.Errorf("hold: %w", err)
		}
		return handlers.NewSpaceCadet(hc.Name, trigger, tap, hold, hc.TapTimeoutMs), nil

	case "tapAndLongTap":
		trigger, err := ParseCode(hc.Trigger)
		if err != nil {
			return nil, fmt.Errorf("trigger: %w", err)
		}
		short, err := ParseCode(hc.Short)
		if err != nil {
			return nil, fmt.Errorf("short: %w", err)
		}
		long, err := ParseCode(hc.Long)
		if err != nil {
			return nil, fmt.Errorf("long: %w", err)
		}
		return handlers.NewTapAndLongTap(hc.Name, trigger, short, long, hc.LongTimeoutMs), nil

	case "sequence":
		trigger, err := ParseCode(hc.Trigger)
		if err != nil {
			return nil, fmt.Errorf("trigger: %w", err)
		}
		codes, err := parseCodes(hc.Codes)
		if err != nil {
			return nil, err
		}
		return handlers.NewSequence(hc.Name, trigger, codes), nil

	case "autoShift":
		usage := keycode.LeftShift
		if hc.ShiftUsage != "" {
			c, err := ParseCode(hc.ShiftUsage)
			if err != nil {
				return nil, fmt.Errorf("shiftUsage: %w", err)
			}
			usage = c
		}
		a := handlers.NewAutoShift(hc.Name, usage, hc.ThresholdMs)
		a.SetRanges(boolOr(hc.Letters, true), boolOr(hc.Numbers, true), boolOr(hc.Special, true))
		return a, nil

	case "leader":
		mappings, err := buildLeaderMappings(hc.Mappings)
		if err != nil {
			return nil, err
		}
		trigger, err := ParseCode(hc.Trigger)
		if err != nil {
			return nil, fmt.Errorf("trigger: %w", err)
		}
		return handlers.NewLeader(hc.Name, trigger, mappings, hc.Failure, send), nil

	case "unicodeKeyboard":
		return handlers.NewUnicodeKeyboard(hc.Name), nil

	case "usbKeyboard":
		return handlers.NewUSBKeyboard(hc.Name, modifiers), nil

	default:
		return nil, fmt.Errorf("unknown handler type %q", hc.Type)
	}
}

func parsePair(triggerStr, actionStr string) (trigger, action keycode.Code, err error) {
	trigger, err = ParseCode(triggerStr)
	if err != nil {
		return 0, 0, fmt.Errorf("trigger: %w", err)
	}
	action, err = ParseCode(actionStr)
	if err != nil {
		return 0, 0, fmt.Errorf("action: %w", err)
	}
	return trigger, action, nil
}

func parseCodes(ss []string) ([]keycode.Code, error) {
	out := make([]keycode.Code, len(ss))
	for i, s := range ss {
		c, err := ParseCode(s)
		if err != nil {
			return nil, fmt.Errorf("codes[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func buildLayerTable(entries []LayerEntryConfig) (map[keycode.Code]handlers.LayerAction, error) {
	table := make(map[keycode.Code]handlers.LayerAction, len(entries))
	for i, e := range entries {
		from, err := ParseCode(e.From)
		if err != nil {
			return nil, fmt.Errorf("table[%d].from: %w", i, err)
		}
		switch e.Kind {
		case "", "remap":
			to, err := ParseCode(e.To)
			if err != nil {
				return nil, fmt.Errorf("table[%d].to: %w", i, err)
			}
			table[from] = handlers.Remap(to)
		case "shiftAware":
			unshifted, err := ParseCode(e.Unshifted)
			if err != nil {
				return nil, fmt.Errorf("table[%d].unshifted: %w", i, err)
			}
			shifted, err := ParseCode(e.Shifted)
			if err != nil {
				return nil, fmt.Errorf("table[%d].shifted: %w", i, err)
			}
			table[from] = handlers.ShiftAware(unshifted, shifted)
		case "string":
			table[from] = handlers.EmitString(e.Text)
		default:
			return nil, fmt.Errorf("table[%d]: unknown kind %q", i, e.Kind)
		}
	}
	return table, nil
}

func buildRewriteTable(entries []LayerEntryConfig) (map[keycode.Code]keycode.Code, error) {
	table := make(map[keycode.Code]keycode.Code, len(entries))
	for i, e := range entries {
		from, err := ParseCode(e.From)
		if err != nil {
			return nil, fmt.Errorf("table[%d].from: %w", i, err)
		}
		to, err := ParseCode(e.To)
		if err != nil {
			return nil, fmt.Errorf("table[%d].to: %w", i, err)
		}
		table[from] = to
	}
	return table, nil
}

func buildLeaderMappings(entries []LeaderMappingConfig) ([]handlers.LeaderMapping, error) {
	out := make([]handlers.LeaderMapping, len(entries))
	for i, e := range entries {
		seq, err := parseCodes(e.Sequence)
		if err != nil {
			return nil, fmt.Errorf("mappings[%d].sequence: %w", i, err)
		}
		out[i] = handlers.LeaderMapping{Sequence: seq, Output: e.Output}
	}
	return out, nil
}

func parseToggleOp(s string) (handlers.ToggleOp, error) {
	switch s {
	case "enable":
		return handlers.ToggleEnable, nil
	case "disable":
		return handlers.ToggleDisable, nil
	case "flip":
		return handlers.ToggleFlip, nil
	case "momentary":
		return handlers.ToggleMomentary, nil
	default:
		return 0, fmt.Errorf("unknown toggle op %q", s)
	}
}

// hidUsageNames maps the config-file spelling of a HID usage to its byte
// value, covering every named usage keycode exposes plus the eight
// modifiers.
var hidUsageNames = buildHIDUsageNames()

func buildHIDUsageNames() map[string]uint8 {
	m := map[string]uint8{
		"a": keycode.UsageA, "b": keycode.UsageB, "c": keycode.UsageC, "d": keycode.UsageD,
		"e": keycode.UsageE, "f": keycode.UsageF, "g": keycode.UsageG, "h": keycode.UsageH,
		"i": keycode.UsageI, "j": keycode.UsageJ, "k": keycode.UsageK, "l": keycode.UsageL,
		"m": keycode.UsageM, "n": keycode.UsageN, "o": keycode.UsageO, "p": keycode.UsageP,
		"q": keycode.UsageQ, "r": keycode.UsageR, "s": keycode.UsageS, "t": keycode.UsageT,
		"u": keycode.UsageU, "v": keycode.UsageV, "w": keycode.UsageW, "x": keycode.UsageX,
		"y": keycode.UsageY, "z": keycode.UsageZ,
		"1": keycode.Usage1, "2": keycode.Usage2, "3": keycode.Usage3, "4": keycode.Usage4,
		"5": keycode.Usage5, "6": keycode.Usage6, "7": keycode.Usage7, "8": keycode.Usage8,
		"9": keycode.Usage9, "0": keycode.Usage0,
		"enter": keycode.UsageEnter, "escape": keycode.UsageEscape, "backspace": keycode.UsageBackspace,
		"tab": keycode.UsageTab, "space": keycode.UsageSpace, "minus": keycode.UsageMinus,
		"equal": keycode.UsageEqual, "lbracket": keycode.UsageLBracket, "rbracket": keycode.UsageRBracket,
		"backslash": keycode.UsageBackslash, "semicolon": keycode.UsageSemicolon,
		"apostrophe": keycode.UsageApostophe, "grave": keycode.UsageGrave, "comma": keycode.UsageComma,
		"dot": keycode.UsageDot, "slash": keycode.UsageSlash, "capslock": keycode.UsageCapsLock,
		"leftctrl": keycode.UsageLeftCtrl, "leftshift": keycode.UsageLeftShift,
		"leftalt": keycode.UsageLeftAlt, "leftgui": keycode.UsageLeftGUI,
		"rightctrl": keycode.UsageRightCtrl, "rightshift": keycode.UsageRightShift,
		"rightalt": keycode.UsageRightAlt, "rightgui": keycode.UsageRightGUI,
	}
	return m
}

// ParseCode resolves a config-file code spelling into a keycode.Code. The
// grammar (documented for pipeline authors, not just this parser):
//
//	hid:<name>       a bare HID usage code, e.g. "hid:a", "hid:leftshift"
//	consumer:<0xNN>  a consumer-page usage, e.g. "consumer:0xe9" (volume up);
//	                 only the low byte of the value is kept
//	action:<N>       the Nth action code above keycode.ActionBase
//	user:<N>         the Nth code in Private Use Area B
//	unicode:<U+NNNN> an explicit Unicode code point, e.g. "unicode:U+1F600"
//	<single rune>    shorthand for unicode:<that rune>
//
// A bare name with no prefix is tried as a HID usage name for readability
// at call sites ("a", "leftshift", "space").
func ParseCode(s string) (keycode.Code, error) {
	if s == "" {
		return 0, fmt.Errorf("empty code")
	}
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch prefix {
		case "hid":
			usage, ok := hidUsageNames[strings.ToLower(rest)]
			if !ok {
				return 0, fmt.Errorf("unknown hid usage name %q", rest)
			}
			return keycode.HIDUsage(usage), nil
		case "consumer":
			n, err := strconv.ParseUint(strings.TrimPrefix(rest, "0x"), 16, 16)
			if err != nil {
				return 0, fmt.Errorf("invalid consumer usage %q: %w", rest, err)
			}
			return keycode.ConsumerUsage(uint16(n)), nil
		case "action":
			n, err := strconv.ParseUint(rest, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("invalid action index %q: %w", rest, err)
			}
			return keycode.Action(uint32(n)), nil
		case "user":
			n, err := strconv.ParseUint(rest, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("invalid user code index %q: %w", rest, err)
			}
			return keycode.UserCode(uint32(n)), nil
		case "unicode":
			return parseUnicode(rest)
		default:
			return 0, fmt.Errorf("unknown code prefix %q", prefix)
		}
	}

	if usage, ok := hidUsageNames[strings.ToLower(s)]; ok {
		return keycode.HIDUsage(usage), nil
	}
	runes := []rune(s)
	if len(runes) == 1 {
		return keycode.Code(runes[0]), nil
	}
	return 0, fmt.Errorf("unrecognized code %q", s)
}

func parseUnicode(rest string) (keycode.Code, error) {
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "U+"), "u+")
	n, err := strconv.ParseUint(rest, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode code point %q: %w", rest, err)
	}
	return keycode.Code(n), nil
}
