package handlers

import "github.com/keytokey/keytokey/output"

// OnOff is a pair of callbacks PressReleaseMacro invokes on its trigger's
// press (activation) and release (deactivation). Grounded
// on original_source's OnOff/MacroCallback traits (handlers/macros.rs,
// handlers/oneshot.rs).
type OnOff interface {
	OnActivate(out output.Port) error
	OnDeactivate(out output.Port) error
}

// OnOffFuncs adapts two plain functions to OnOff, for callers who don't
// want to define a named type per trigger.
type OnOffFuncs struct {
	Activate   func(out output.Port) error
	Deactivate func(out output.Port) error
}

func (f OnOffFuncs) OnActivate(out output.Port) error {
	if f.Activate == nil {
		return nil
	}
	return f.Activate(out)
}

func (f OnOffFuncs) OnDeactivate(out output.Port) error {
	if f.Deactivate == nil {
		return nil
	}
	return f.Deactivate(out)
}

// Action is a single callback invoked on activation only — the shape
// PressReleaseMacro's sibling PressMacro used in the teacher's source
// (handlers/macros.rs's Action trait). No handler in this package takes an
// Action: TapDance takes a TapDanceAction and Leader types strings.
type Action interface {
	OnTrigger(out output.Port) error
}

// ActionFunc adapts a plain function to Action.
type ActionFunc func(out output.Port) error

func (f ActionFunc) OnTrigger(out output.Port) error { return f(out) }
