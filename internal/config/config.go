// Package config loads the daemon's ini-style configuration file: a
// default profile, any number of per-window-class profile overrides, and
// a window-class blacklist. The bare `[profile]` section maps to the
// default profile, and every `[profile "class"]` section maps to a
// per-class override, through gcfg's subsection-to-map support.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/Plippo/twofing/internal/action"
	"github.com/Plippo/twofing/internal/profile"
)

// profileSection mirrors profile.Profile field-for-field in the shapes
// gcfg can parse directly (numbers) or that this package post-processes
// (action strings, inherit flags).
type profileSection struct {
	ScrollMinDistance float64
	HScrollStep       int
	VScrollStep       int
	ZoomMinDistance   float64
	ZoomStep          float64
	RotateMinDistance float64
	RotateMinAngle    float64
	RotateStep        float64

	TapAction         string
	ScrollUpAction    string
	ScrollDownAction  string
	ScrollLeftAction  string
	ScrollRightAction string
	ScrollBraceAction string
	ZoomInAction      string
	ZoomOutAction     string
	RotateLeftAction  string
	RotateRightAction string

	TapInherit    bool
	ScrollInherit bool
	ZoomInherit   bool
	RotateInherit bool
}

// file is the gcfg target. Profile["" ] (a bare `[profile]` section) is
// the default profile; every `[profile "class"]` section is a per-class
// override. Blacklist.Class lists window classes the recognizer is never
// activated for.
type file struct {
	Profile map[string]*profileSection
	Blacklist struct {
		Class []string
	}
	Device struct {
		Path string
	}
}

// Result is a fully parsed, resolved configuration: a profile.Set ready
// for the recognizer and easing engine, plus the blacklist and device
// path the outer layers (internal/x11, cmd/twofing) consume directly.
type Result struct {
	Profiles   *profile.Set
	Blacklist  map[string]bool
	DevicePath string
}

// Load reads and resolves path into a Result.
func Load(path string) (*Result, error) {
	var f file
	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	defSec, ok := f.Profile[""]
	if !ok {
		return nil, fmt.Errorf("config: no default [profile] section")
	}
	def, err := resolveProfile(defSec, "")
	if err != nil {
		return nil, fmt.Errorf("config: default profile: %w", err)
	}

	set := profile.NewSet(def)
	for class, sec := range f.Profile {
		if class == "" {
			continue
		}
		p, err := resolveProfile(sec, class)
		if err != nil {
			return nil, fmt.Errorf("config: profile %q: %w", class, err)
		}
		set.Profiles = append(set.Profiles, p)
	}

	blacklist := make(map[string]bool, len(f.Blacklist.Class))
	for _, class := range f.Blacklist.Class {
		blacklist[class] = true
	}

	return &Result{
		Profiles:   set,
		Blacklist:  blacklist,
		DevicePath: f.Device.Path,
	}, nil
}

func resolveProfile(sec *profileSection, class string) (*profile.Profile, error) {
	p := &profile.Profile{
		WindowClass:       class,
		ScrollMinDistance: sec.ScrollMinDistance,
		HScrollStep:       sec.HScrollStep,
		VScrollStep:       sec.VScrollStep,
		ZoomMinDistance:   sec.ZoomMinDistance,
		ZoomStep:          sec.ZoomStep,
		RotateMinDistance: sec.RotateMinDistance,
		RotateMinAngle:    sec.RotateMinAngle,
		RotateStep:        sec.RotateStep,
		TapInherit:        sec.TapInherit,
		ScrollInherit:     sec.ScrollInherit,
		ZoomInherit:       sec.ZoomInherit,
		RotateInherit:     sec.RotateInherit,
	}

	var err error
	if p.TapAction, err = parseAction(sec.TapAction); err != nil {
		return nil, err
	}
	if p.ScrollUpAction, err = parseAction(sec.ScrollUpAction); err != nil {
		return nil, err
	}
	if p.ScrollDownAction, err = parseAction(sec.ScrollDownAction); err != nil {
		return nil, err
	}
	if p.ScrollLeftAction, err = parseAction(sec.ScrollLeftAction); err != nil {
		return nil, err
	}
	if p.ScrollRightAction, err = parseAction(sec.ScrollRightAction); err != nil {
		return nil, err
	}
	if p.ScrollBraceAction, err = parseAction(sec.ScrollBraceAction); err != nil {
		return nil, err
	}
	if p.ZoomInAction, err = parseAction(sec.ZoomInAction); err != nil {
		return nil, err
	}
	if p.ZoomOutAction, err = parseAction(sec.ZoomOutAction); err != nil {
		return nil, err
	}
	if p.RotateLeftAction, err = parseAction(sec.RotateLeftAction); err != nil {
		return nil, err
	}
	if p.RotateRightAction, err = parseAction(sec.RotateRightAction); err != nil {
		return nil, err
	}
	return p, nil
}

// parseAction turns a config action string into an action.Action.
//
// Grammar: "" or "none" -> None. "button:N" -> a button press of code N.
// "key:SYM" -> a key press of keysym SYM (decimal or 0x-prefixed hex).
// Either form may be prefixed with a '+'-joined modifier list, e.g.
// "shift+control:key:0xff52".
func parseAction(s string) (action.Action, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return action.None, nil
	}

	parts := strings.Split(s, ":")
	modPart := ""
	if len(parts) == 3 {
		modPart, parts = parts[0], parts[1:]
	}
	if len(parts) != 2 {
		return action.Action{}, fmt.Errorf("invalid action %q", s)
	}

	kind, codeStr := strings.ToLower(parts[0]), parts[1]
	code, err := strconv.ParseUint(codeStr, 0, 32)
	if err != nil {
		return action.Action{}, fmt.Errorf("invalid action code in %q: %w", s, err)
	}

	var mod action.Modifier
	if modPart != "" {
		for _, m := range strings.Split(modPart, "+") {
			switch strings.ToLower(m) {
			case "shift":
				mod |= action.ModShift
			case "control", "ctrl":
				mod |= action.ModControl
			case "alt":
				mod |= action.ModAlt
			case "super":
				mod |= action.ModSuper
			default:
				return action.Action{}, fmt.Errorf("invalid modifier %q in %q", m, s)
			}
		}
	}

	switch kind {
	case "button":
		return action.Action{Type: action.TypeButtonPress, Code: uint32(code), Modifier: mod}, nil
	case "key":
		return action.Action{Type: action.TypeKeyPress, Code: uint32(code), Modifier: mod}, nil
	default:
		return action.Action{}, fmt.Errorf("invalid action kind %q in %q", kind, s)
	}
}
