package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Plippo/twofing/internal/action"
)

const sample = `
[device]
path = /dev/twofingtouch

[profile]
scrollmindistance = 15
hscrollstep = 10
vscrollstep = 10
zoomstep = 1.02
scrollupaction = key:0xff52
scrolldownaction = key:0xff54
tapaction = none

[profile "Gimp"]
scrollmindistance = 5
scrollinherit = true
tapaction = button:1

[blacklist]
class = Lock-Screen
class = Splash
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "twofing.conf")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultProfile(t *testing.T) {
	path := writeSample(t)
	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.DevicePath != "/dev/twofingtouch" {
		t.Fatalf("unexpected device path %q", res.DevicePath)
	}
	def := res.Profiles.Default
	if def.ScrollMinDistance != 15 {
		t.Fatalf("unexpected ScrollMinDistance %v", def.ScrollMinDistance)
	}
	if def.ScrollUpAction.Type != action.TypeKeyPress || def.ScrollUpAction.Code != 0xff52 {
		t.Fatalf("unexpected ScrollUpAction %+v", def.ScrollUpAction)
	}
}

func TestLoadClassOverrideInherits(t *testing.T) {
	path := writeSample(t)
	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := res.Profiles.Lookup("Gimp")
	if p.WindowClass != "Gimp" {
		t.Fatalf("expected Gimp override, got %+v", p)
	}
	if p.TapAction.Type != action.TypeButtonPress || p.TapAction.Code != 1 {
		t.Fatalf("unexpected TapAction %+v", p.TapAction)
	}
	if !p.ScrollInherit {
		t.Fatalf("expected ScrollInherit set")
	}
}

func TestLoadBlacklist(t *testing.T) {
	path := writeSample(t)
	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Blacklist["Lock-Screen"] || !res.Blacklist["Splash"] {
		t.Fatalf("unexpected blacklist %+v", res.Blacklist)
	}
}

func TestParseActionNone(t *testing.T) {
	a, err := parseAction("")
	if err != nil || !a.IsNone() {
		t.Fatalf("expected None, got %+v, err %v", a, err)
	}
}

func TestParseActionWithModifiers(t *testing.T) {
	a, err := parseAction("shift+control:key:65")
	if err != nil {
		t.Fatal(err)
	}
	if a.Modifier != action.ModShift|action.ModControl {
		t.Fatalf("unexpected modifier mask %v", a.Modifier)
	}
	if a.Code != 65 || a.Type != action.TypeKeyPress {
		t.Fatalf("unexpected action %+v", a)
	}
}
