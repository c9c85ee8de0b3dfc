// Package profile models per-window-class gesture configuration with
// inheritance from a single default profile.
package profile

import "github.com/Plippo/twofing/internal/action"

// classPrefixLen is the bounded-prefix length used when matching a window's
// WM_CLASS res_name against a profile's WindowClass.
const classPrefixLen = 30

// Profile bundles thresholds, step sizes, and actions for every gesture,
// plus a per-gesture inherit flag that, when set, reads both the threshold
// and the action from the default profile instead of this one.
type Profile struct {
	WindowClass string

	ScrollMinDistance float64
	HScrollStep       int
	VScrollStep       int
	ZoomMinDistance   float64
	ZoomStep          float64
	RotateMinDistance float64
	RotateMinAngle    float64
	RotateStep        float64

	TapAction          action.Action
	ScrollUpAction     action.Action
	ScrollDownAction   action.Action
	ScrollLeftAction   action.Action
	ScrollRightAction  action.Action
	ScrollBraceAction  action.Action
	ZoomInAction       action.Action
	ZoomOutAction      action.Action
	RotateLeftAction   action.Action
	RotateRightAction  action.Action

	TapInherit    bool
	ScrollInherit bool
	ZoomInherit   bool
	RotateInherit bool
}

// Set is a lookup table of per-window-class profiles plus the one
// designated default profile every inherit flag falls back to.
type Set struct {
	Default  *Profile
	Profiles []*Profile
}

// NewSet returns a Set with def as its default profile.
func NewSet(def *Profile) *Set {
	return &Set{Default: def}
}

// Lookup finds the profile matching resName under bounded-prefix equality.
// An empty resName or no match returns the default profile.
func (s *Set) Lookup(resName string) *Profile {
	if resName == "" {
		return s.Default
	}
	for _, p := range s.Profiles {
		if classPrefixEqual(resName, p.WindowClass) {
			return p
		}
	}
	return s.Default
}

func classPrefixEqual(resName, windowClass string) bool {
	a, b := resName, windowClass
	if len(a) > classPrefixLen {
		a = a[:classPrefixLen]
	}
	if len(b) > classPrefixLen {
		b = b[:classPrefixLen]
	}
	return a == b
}

// Field identifies one inheritable gesture parameter group, used by
// Effective to decide whether to read p or s.Default.
type Field int

const (
	FieldTap Field = iota
	FieldScroll
	FieldZoom
	FieldRotate
)

// effective returns p itself, or the set's default profile, according to
// p's inherit flag for field: a single accessor standing in for the
// repeated "if this group is set to inherit, use the default profile
// instead" checks each gesture handler would otherwise need.
func (s *Set) effective(p *Profile, field Field) *Profile {
	switch field {
	case FieldTap:
		if p.TapInherit {
			return s.Default
		}
	case FieldScroll:
		if p.ScrollInherit {
			return s.Default
		}
	case FieldZoom:
		if p.ZoomInherit {
			return s.Default
		}
	case FieldRotate:
		if p.RotateInherit {
			return s.Default
		}
	}
	return p
}

// Effective is the public form of effective, used by the recognizer and
// easing engine to resolve inherited parameters/actions for p.
func (s *Set) Effective(p *Profile, field Field) *Profile {
	return s.effective(p, field)
}
