package profile

import "testing"

func TestLookupBoundedPrefix(t *testing.T) {
	def := &Profile{WindowClass: ""}
	s := NewSet(def)
	firefox := &Profile{WindowClass: "Navigator-123456789012345678901234567890-extra"}
	s.Profiles = append(s.Profiles, firefox)

	got := s.Lookup("Navigator-123456789012345678901234567890-different-tail")
	if got != firefox {
		t.Fatalf("expected bounded-prefix match to firefox profile, got %+v", got)
	}
}

func TestLookupNoMatchFallsBackToDefault(t *testing.T) {
	def := &Profile{WindowClass: ""}
	s := NewSet(def)
	s.Profiles = append(s.Profiles, &Profile{WindowClass: "Gimp"})

	if got := s.Lookup("Konsole"); got != def {
		t.Fatalf("expected default profile, got %+v", got)
	}
	if got := s.Lookup(""); got != def {
		t.Fatalf("expected default profile for empty class hint, got %+v", got)
	}
}

func TestEffectiveInheritance(t *testing.T) {
	def := &Profile{WindowClass: "", ScrollMinDistance: 10}
	s := NewSet(def)
	p := &Profile{WindowClass: "X", ScrollMinDistance: 50, ScrollInherit: true}

	if eff := s.Effective(p, FieldScroll); eff != def {
		t.Fatalf("expected inherited scroll field to resolve to default profile")
	}

	p.ScrollInherit = false
	if eff := s.Effective(p, FieldScroll); eff != p {
		t.Fatalf("expected non-inherited scroll field to resolve to p")
	}
}
