// Package core wires the pure gesture/tracker/easing/continuation
// packages into a single daemon-facing object: it owns the recognizer
// mutex serializing the ingest activity against the continuation
// worker's synthesized end-of-gesture tick, and the focus/activation
// controller that gates when two-finger gesture handling is switched on.
package core

import (
	"sync"

	"github.com/Plippo/twofing/internal/action"
	"github.com/Plippo/twofing/internal/calib"
	"github.com/Plippo/twofing/internal/clock"
	"github.com/Plippo/twofing/internal/continuation"
	"github.com/Plippo/twofing/internal/easing"
	"github.com/Plippo/twofing/internal/gesture"
	"github.com/Plippo/twofing/internal/profile"
	"github.com/Plippo/twofing/internal/tracker"
)

// FocusController is the X-side collaborator the activation controller
// drives: resolving the active window's profile/blacklist status and
// grabbing/ungrabbing the input device.
type FocusController interface {
	gesture.WindowSource
	IsActiveWindowBlacklisted() bool
	GrabInput()
	UngrabInput()
}

// ActivationState is the focus/activation controller's state: whether
// two-finger gesture handling is currently switched on, and whether an
// enter/leave event is waiting for fingers and the button to go idle
// before it takes effect.
type ActivationState struct {
	mu                sync.Mutex
	active            bool
	activateAtRelease bool
}

func (a *ActivationState) isActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// AtRelease reports whether an activation is pending, for the
// recognizer's deferred-activation check.
func (a *ActivationState) AtRelease() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activateAtRelease
}

// Consume clears a pending activation and turns gesture handling on; the
// recognizer calls this only once fingers and the button are both idle.
func (a *ActivationState) Consume() {
	a.mu.Lock()
	a.activateAtRelease = false
	a.active = true
	a.mu.Unlock()
}

// EnterBlacklisted switches gesture handling off immediately, for the
// focused window becoming blacklisted.
func (a *ActivationState) EnterBlacklisted() {
	a.mu.Lock()
	a.activateAtRelease = false
	a.active = false
	a.mu.Unlock()
}

// Leave records that the focus left a blacklisted window while gesture
// handling was off, requesting reactivation once safe to do so.
func (a *ActivationState) Leave() {
	a.mu.Lock()
	if !a.active {
		a.activateAtRelease = true
	}
	a.mu.Unlock()
}

// GestureCore is the single daemon-facing object: it owns RecognizerState
// (via gesture.Recognizer), the easing and continuation workers, the
// activation controller, and the recognizer mutex.
type GestureCore struct {
	mu sync.Mutex // serializes ingest ticks against the continuation worker's callback

	tracker    *tracker.Tracker
	recognizer *gesture.Recognizer
	easer      *easing.Engine
	cont       *continuation.Worker
	activation ActivationState
	focus      FocusController
	clk        clock.Clock
}

// New builds a GestureCore. out is the X Output sink; clk is the clock the
// continuation end-of-gesture tick reads its time from; focus resolves the active
// window's profile and blacklist status; warp moves the synthetic
// pointer.
func New(profiles *profile.Set, out action.Output, clk clock.Clock, focus FocusController, warp func(x, y float64)) *GestureCore {
	c := &GestureCore{
		tracker: tracker.New(nil),
		focus:   focus,
		clk:     clk,
	}

	exec := action.NewExecutor(out)
	c.easer = easing.New(exec, profiles)
	c.cont = continuation.New(func() { c.deliverContinuationTimeout() })
	state := gesture.NewState()
	c.recognizer = gesture.New(state, profiles, out, clk, focus, c.easer, c.cont, warp)

	return c
}

// activateNow performs the deferred activation the recognizer requested:
// turn gesture handling on and (re)grab the input device. Only called
// once fingers and the button are idle.
func (c *GestureCore) activateNow() {
	c.activation.Consume()
	c.focus.GrabInput()
}

// SetCalibration forwards a freshly read calibration to the tracker,
// which applies it to every subsequent raw sample.
func (c *GestureCore) SetCalibration(t *calib.Transform) {
	c.mu.Lock()
	c.tracker.SetCalibration(t)
	c.mu.Unlock()
}

// Feed is the ingest activity's entry point: one raw evdev event. On a
// completed SYN_REPORT it runs exactly one recognizer tick under the
// recognizer mutex.
func (c *GestureCore) Feed(ev tracker.Event, now clock.Millis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Feed(ev, func(snap tracker.Snapshot) {
		c.tick(snap, now)
	})
}

func (c *GestureCore) tick(snap tracker.Snapshot, now clock.Millis) {
	c.recognizer.Tick(snap, now, c.activation.isActive(), c.activation.AtRelease, c.activateNow)
}

// deliverContinuationTimeout is the continuation worker's EndTick
// callback: it synthesizes an all-fingers-up tick, serialized against the
// ingest activity by the same recognizer mutex, exactly once per failed
// re-grip window.
func (c *GestureCore) deliverContinuationTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	empty := tracker.Snapshot{Slots: [2]tracker.Slot{{ID: -1}, {ID: -1}}}
	c.tick(empty, c.clk.Now())
}

// SetClickMode forwards the --click flag to the recognizer.
func (c *GestureCore) SetClickMode(m gesture.ClickMode) {
	c.mu.Lock()
	c.recognizer.SetClickMode(m)
	c.mu.Unlock()
}

// OnActiveWindowChanged re-applies the blacklist/profile decision for
// whatever window is now focused: entering a blacklisted window
// deactivates gesture handling immediately; leaving one (the
// active window is no longer blacklisted, and handling was off) queues a
// reactivation the recognizer only consumes once fingers and the button
// are both idle, so the grab switch never interrupts an ongoing gesture.
func (c *GestureCore) OnActiveWindowChanged() {
	if c.focus.IsActiveWindowBlacklisted() {
		c.activation.EnterBlacklisted()
		c.focus.UngrabInput()
		return
	}
	c.activation.Leave()
}

// OnWindowMapped re-applies the blacklist/profile decision to a newly
// mapped window, in case it appears already focused.
func (c *GestureCore) OnWindowMapped() {
	c.OnActiveWindowChanged()
}

// Bootstrap re-applies the blacklist/profile decision once at startup,
// before the daemon enters its event loop, to whatever window already has
// focus. No other top-level window is examined: only the focused
// window's blacklist status can affect the activation state.
func (c *GestureCore) Bootstrap() {
	c.OnActiveWindowChanged()
}

// Close releases the easing and continuation workers' goroutines.
func (c *GestureCore) Close() {
	c.easer.Close()
	c.cont.Close()
}
