// Package x11 is the daemon's only X11-facing code: it owns the
// connection, the active-window/focus lookup, synthetic input via XTest,
// screen-size tracking via RANDR, and per-device calibration property
// reads via XInput2. Every core package (gesture, tracker, calib, action)
// talks to this package only through narrow interfaces; nothing in here
// is imported by the core.
package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinput"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/Plippo/twofing/internal/calib"
	"github.com/Plippo/twofing/internal/profile"
)

// blacklistLookupCap bounds how far the focus controller walks from the
// focused window toward the root looking for WM_CLASS, preventing
// pathological window-tree loops.
const blacklistLookupCap = 5

// Conn wraps the X connection and the state the daemon's three
// collaborators (action.Output, gesture.WindowSource, calib feed) share.
type Conn struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	profiles  *profile.Set
	blacklist map[string]bool

	calibration *calib.Transform

	deviceID uint16

	activeWindowAtom xproto.Atom
}

// Dial opens the X connection, negotiates the RANDR (>=1.3) and XInput2
// (>=2.0) extension versions the daemon requires, and resolves evdevName
// to its XInput2 device id.
func Dial(evdevName string, profiles *profile.Set, blacklist map[string]bool, calibration *calib.Transform) (*Conn, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}

	if err := randr.Init(xu.Conn()); err != nil {
		return nil, fmt.Errorf("x11: randr init: %w", err)
	}
	if _, err := randr.QueryVersion(xu.Conn(), 1, 3).Reply(); err != nil {
		return nil, fmt.Errorf("x11: randr >= 1.3 required: %w", err)
	}

	if err := xinput.Init(xu.Conn()); err != nil {
		return nil, fmt.Errorf("x11: xinput init: %w", err)
	}
	if _, err := xinput.XIQueryVersion(xu.Conn(), 2, 0).Reply(); err != nil {
		return nil, fmt.Errorf("x11: xinput2 required: %w", err)
	}
	if err := xtest.Init(xu.Conn()); err != nil {
		return nil, fmt.Errorf("x11: xtest init: %w", err)
	}

	c := &Conn{
		xu:          xu,
		root:        xu.RootWin(),
		profiles:    profiles,
		blacklist:   blacklist,
		calibration: calibration,
	}

	deviceID, err := c.resolveDeviceID(evdevName)
	if err != nil {
		return nil, err
	}
	c.deviceID = deviceID

	if err := c.readCalibration(); err != nil {
		return nil, fmt.Errorf("x11: reading calibration: %w", err)
	}
	c.SetScreenSize(xu.Screen().WidthInPixels, xu.Screen().HeightInPixels)

	if err := randr.SelectInputChecked(xu.Conn(), c.root, randr.NotifyMaskScreenChange).Check(); err != nil {
		return nil, fmt.Errorf("x11: randr select input: %w", err)
	}

	atom, err := xproto.InternAtom(xu.Conn(), false, uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return nil, fmt.Errorf("x11: intern _NET_ACTIVE_WINDOW: %w", err)
	}
	c.activeWindowAtom = atom.Atom

	if err := xproto.ChangeWindowAttributesChecked(xu.Conn(), c.root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange | xproto.EventMaskSubstructureNotify}).Check(); err != nil {
		return nil, fmt.Errorf("x11: select root window events: %w", err)
	}

	return c, nil
}

// resolveDeviceID matches the evdev device's reported name against the
// XInput2 device list.
func (c *Conn) resolveDeviceID(evdevName string) (uint16, error) {
	reply, err := xinput.XIQueryDevice(c.xu.Conn(), xinput.DeviceAll).Reply()
	if err != nil {
		return 0, fmt.Errorf("x11: query input devices: %w", err)
	}
	needle := strings.ToLower(evdevName)
	for _, info := range reply.Infos {
		if strings.Contains(strings.ToLower(info.Name), needle) {
			return uint16(info.Deviceid), nil
		}
	}
	return 0, fmt.Errorf("x11: no XInput2 device matching evdev name %q", evdevName)
}

// readCalibration reads the "Evdev Axis Calibration", "Evdev Axis
// Inversion" and "Evdev Axes Swap" device properties into calib.Params.
// Devices without these properties (not an evdev-driven touch device)
// leave the calibration at its zero value, which calib.Transform treats
// as "use raw span".
func (c *Conn) readCalibration() error {
	var params calib.Params

	if raw, ok := c.getIntProperty("Evdev Axis Calibration", 4); ok {
		params.MinX, params.MaxX = float64(raw[0]), float64(raw[1])
		params.MinY, params.MaxY = float64(raw[2]), float64(raw[3])
	}
	if raw, ok := c.getIntProperty("Evdev Axis Inversion", 2); ok {
		params.SwapX = raw[0] != 0
		params.SwapY = raw[1] != 0
	}
	if raw, ok := c.getIntProperty("Evdev Axes Swap", 1); ok {
		params.SwapAxes = raw[0] != 0
	}

	c.calibration.SetCalibration(params)
	return nil
}

func (c *Conn) getIntProperty(name string, count int) ([]int32, bool) {
	atom, err := xproto.InternAtom(c.xu.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil || atom.Atom == 0 {
		return nil, false
	}
	reply, err := xinput.XIGetProperty(c.xu.Conn(), c.deviceID, 0, atom.Atom, xproto.AtomInteger, 0, uint32(count)).Reply()
	if err != nil || reply.NumItems == 0 {
		return nil, false
	}
	out := make([]int32, 0, count)
	for i := 0; i < int(reply.NumItems) && i < count; i++ {
		out = append(out, int32(reply.Items[i]))
	}
	if len(out) < count {
		return nil, false
	}
	return out, true
}

// SetScreenSize pushes a new screen size into the shared calibration
// transform; called at startup and on every RANDR screen-change event.
func (c *Conn) SetScreenSize(w, h uint16) {
	c.calibration.SetScreenSize(int(w), int(h))
}

// HandleScreenChange is called by RunEventLoop whenever a
// randr.ScreenChangeNotify event arrives.
func (c *Conn) HandleScreenChange(ev randr.ScreenChangeNotifyEvent) {
	c.SetScreenSize(ev.Width, ev.Height)
}

// RunEventLoop reads X events until stop is closed, dispatching RANDR
// screen-change notifications to its own screen-size bookkeeping and
// _NET_ACTIVE_WINDOW/MapNotify changes to onActiveWindowChanged/onMapped.
// It runs as its own goroutine.
func (c *Conn) RunEventLoop(stop <-chan struct{}, onActiveWindowChanged, onMapped func()) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		ev, err := c.xu.Conn().WaitForEvent()
		if err != nil {
			continue
		}
		switch e := ev.(type) {
		case randr.ScreenChangeNotifyEvent:
			c.HandleScreenChange(e)
		case xproto.PropertyNotifyEvent:
			if e.Atom == c.activeWindowAtom {
				onActiveWindowChanged()
			}
		case xproto.MapNotifyEvent:
			onMapped()
		}
	}
}

// --- action.Output ---

func (c *Conn) keycode(keysym uint32) xproto.Keycode {
	kc, _ := c.xu.Conn().KeysymToKeycode(xproto.Keysym(keysym))
	return kc
}

// PressButton implements action.Output.
func (c *Conn) PressButton(code uint32) {
	xtest.FakeInput(c.xu.Conn(), xproto.ButtonPress, byte(code), 0, c.root, 0, 0, 0)
}

// ReleaseButton implements action.Output.
func (c *Conn) ReleaseButton(code uint32) {
	xtest.FakeInput(c.xu.Conn(), xproto.ButtonRelease, byte(code), 0, c.root, 0, 0, 0)
}

// PressKey implements action.Output.
func (c *Conn) PressKey(keysym uint32) {
	xtest.FakeInput(c.xu.Conn(), xproto.KeyPress, byte(c.keycode(keysym)), 0, c.root, 0, 0, 0)
}

// ReleaseKey implements action.Output.
func (c *Conn) ReleaseKey(keysym uint32) {
	xtest.FakeInput(c.xu.Conn(), xproto.KeyRelease, byte(c.keycode(keysym)), 0, c.root, 0, 0, 0)
}

// FlushOutput implements action.Output.
func (c *Conn) FlushOutput() {
	c.xu.Conn().Sync()
}

// WarpPointer moves the synthetic pointer, matching XTestFakeMotionEvent.
func (c *Conn) WarpPointer(x, y float64) {
	xtest.FakeInput(c.xu.Conn(), xproto.MotionNotify, 1, 0, c.root, int16(x), int16(y), 0)
}

// --- gesture.WindowSource / focus controller ---

// CurrentProfile implements gesture.WindowSource: resolve the active
// window's WM_CLASS, bounded-walk toward the root if it has none set, and
// look it up in the profile set.
func (c *Conn) CurrentProfile() *profile.Profile {
	class, ok := c.activeWindowClass()
	if !ok {
		return c.profiles.Default
	}
	return c.profiles.Lookup(class)
}

// IsActiveWindowBlacklisted reports whether the focus controller should
// deactivate gesture recognition for the current window.
func (c *Conn) IsActiveWindowBlacklisted() bool {
	class, ok := c.activeWindowClass()
	return ok && c.blacklist[class]
}

func (c *Conn) activeWindowClass() (string, bool) {
	win, err := ewmh.ActiveWindowGet(c.xu)
	if err != nil || win == 0 {
		return "", false
	}

	w := win
	for i := 0; i < blacklistLookupCap; i++ {
		class, err := icccm.WmClassGet(c.xu, w)
		if err == nil && class.Class != "" {
			return class.Class, true
		}
		tree, err := xproto.QueryTree(c.xu.Conn(), w).Reply()
		if err != nil || tree.Parent == 0 || tree.Parent == c.root {
			break
		}
		w = tree.Parent
	}
	return "", false
}

// GrabInput and UngrabInput implement the focus controller's enter/leave
// grab switch: grabbing the device is owned by internal/evdevsrc
// (dev.Grab()/dev.Release()), so these are no-ops here, kept only to
// satisfy a uniform controller interface in internal/core.
func (c *Conn) GrabInput()   {}
func (c *Conn) UngrabInput() {}

// Close releases the X connection.
func (c *Conn) Close() {
	c.xu.Conn().Close()
}
