// Package gesture implements the central state machine of the daemon: it
// classifies a two-finger stroke into tap/scroll/zoom/rotate, enforces
// per-profile thresholds, and emits Actions through an executor.
package gesture

import (
	"math"

	"github.com/Plippo/twofing/internal/action"
	"github.com/Plippo/twofing/internal/clock"
	"github.com/Plippo/twofing/internal/profile"
	"github.com/Plippo/twofing/internal/tracker"
)

// Kind is the classified gesture in progress.
type Kind int

const (
	KindNone Kind = iota
	KindUndecided
	KindScroll
	KindZoom
	KindRotate
)

// ClickMode selects which point a tap warps the pointer to before
// executing the tap action.
type ClickMode int

const (
	ClickFirst ClickMode = iota
	ClickSecond
	ClickCenter
)

// Timeouts, in milliseconds, and the tap movement limit, in pixels.
const (
	ClickDelay               clock.Millis = 200
	MaxEasingStartInterval   clock.Millis = 200
	TapMaxMoveDist                        = 10.0
)

// Point is a 2D pixel-space point.
type Point struct{ X, Y float64 }

// WindowSource supplies the focus/activation controller's view of the
// world: which window is focused and which profile it maps to. The
// recognizer consults it only when a new two-finger gesture begins.
type WindowSource interface {
	// CurrentProfile returns the profile of the currently focused window,
	// already resolved through the blacklist/class lookup.
	CurrentProfile() *profile.Profile
}

// Easer is the subset of the easing engine the recognizer drives.
type Easer interface {
	Stop()
	Start(p *profile.Profile, directionX, directionY int, interval clock.Millis)
}

// Continuer is the subset of the extended-continuation engine the
// recognizer drives.
type Continuer interface {
	Start()
	// DontStart reports whether the recognizer is inside a
	// continuation-synthesized end-of-gesture tick, in which case no new
	// continuation should begin.
	DontStart() bool
	// IgnoringFingersUp reports whether the worker is currently inside its
	// grace window and wants an all-fingers-up snapshot treated as if one
	// finger were still down.
	IgnoringFingersUp() bool
	// ClearIfFingerReturned reports that a real finger came back before the
	// grace window elapsed, so the worker should stop pretending.
	ClearIfFingerReturned()
}

// axisScroll tracks the easing bookkeeping for one scroll axis.
type axisScroll struct {
	lastTime     clock.Millis
	lastIntv     clock.Millis
	lastLastIntv clock.Millis
	direction    int // -1, 0, +1
}

// State holds all mutable state the recognizer owns across ticks, created
// once and mutated only by Tick (and, via the Easer/Continuer interfaces,
// by the cooperating workers).
type State struct {
	Gesture        Kind
	HadTwoFingers  bool
	ButtonDown     bool
	MaxMoveDist    float64
	FingerDownTime clock.Millis

	GestureStartCenter Point
	GestureStartDist   float64
	GestureStartAngle  float64
	CurrentCenter      Point

	DragScrolling  bool
	CurrentProfile *profile.Profile

	FingersWereDown int

	ScrollX, ScrollY axisScroll

	// LastSlotPos remembers each slot's last known calibrated position,
	// for ClickFirst/ClickSecond tap placement after the fingers have
	// already lifted and the snapshot no longer reports a position.
	LastSlotPos [2]Point
}

// NewState returns a freshly initialized State.
func NewState() *State {
	return &State{}
}

// Recognizer is the gesture state machine. It holds no I/O of its own: all
// output flows through the Executor, and all external facts (focus,
// windows, time) are injected.
type Recognizer struct {
	state   *State
	profs   *profile.Set
	exec    *action.Executor
	out     action.Output
	clock   clock.Clock
	windows WindowSource
	easing  Easer
	cont    Continuer

	clickMode ClickMode

	// WarpPointer is invoked whenever the recognizer needs to move the
	// synthetic pointer; it is separate from Output since moving the
	// pointer isn't tied to a press/release phase the way a button or key
	// edge is.
	WarpPointer func(x, y float64)
}

// New builds a Recognizer over state, wired to its collaborators. out is
// the raw Output sink, used directly for the single-touch click/drag path
// (which bypasses the Action executor entirely); exec drives the
// profile-defined gesture Actions.
func New(state *State, profs *profile.Set, out action.Output, clk clock.Clock, windows WindowSource, easing Easer, cont Continuer, warp func(x, y float64)) *Recognizer {
	return &Recognizer{
		state:       state,
		profs:       profs,
		exec:        action.NewExecutor(out),
		out:         out,
		clock:       clk,
		windows:     windows,
		easing:      easing,
		cont:        cont,
		clickMode:   ClickCenter,
		WarpPointer: warp,
	}
}

// SetClickMode selects which finger a tap warps to (the --click flag).
func (r *Recognizer) SetClickMode(m ClickMode) { r.clickMode = m }

func dist(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

func angleDeg(dx, dy float64) float64 {
	return math.Atan2(dy, dx) * 180 / math.Pi
}

func normalizeAngle(a float64) float64 {
	for a <= -180 {
		a += 360
	}
	for a > 180 {
		a -= 360
	}
	return a
}

// Tick runs one recognizer step given the latest two-slot snapshot and the
// current time: continuation masking, deferred activation, the
// two-fingers-down/on/up transitions, and the one-finger click logic.
//
// active reports whether two-finger gesture handling is currently
// activated (the focus controller's grab state); when false the
// recognizer does nothing but the deferred-activation bookkeeping.
// activateAtRelease reports (and doActivate consumes) a pending
// enter/leave grab switch once fingers and the button are both idle.
func (r *Recognizer) Tick(snap tracker.Snapshot, now clock.Millis, active bool, activateAtRelease func() bool, doActivate func()) {
	s := r.state
	for i := range snap.Slots {
		if !snap.Slots[i].Empty() {
			s.LastSlotPos[i] = Point{snap.Slots[i].CalX, snap.Slots[i].CalY}
		}
	}
	fingersDown := snap.FingersDown
	fingersOnlyPretended := false

	if r.cont.IgnoringFingersUp() {
		if fingersDown == 0 {
			fingersDown = 1
			fingersOnlyPretended = true
		} else {
			r.cont.ClearIfFingerReturned()
		}
	}

	deferredActivate := func() {
		if !s.ButtonDown && fingersDown == 0 && activateAtRelease() {
			r.releaseButton()
			doActivate()
		}
	}
	deferredActivate()

	if !active {
		return
	}

	hadTwo := 0
	if s.HadTwoFingers {
		hadTwo = 1
	}
	twoDown := fingersDown == 2 && hadTwo == 0
	twoOn := fingersDown > 0 && hadTwo == 1
	twoUp := fingersDown == 0 && hadTwo == 1

	switch {
	case twoDown:
		r.onTwoDown(snap, now)
	case twoOn:
		r.onTwoOn(snap, fingersDown, fingersOnlyPretended, now)
	case twoUp:
		if r.onTwoUp(now) {
			// A continuation window started: keep the gesture alive by
			// counting this tick as one finger down.
			fingersDown = 1
		}
	case fingersDown == 1 && s.FingersWereDown == 0:
		r.onFirstTouch(snap, now)
	case fingersDown == 1:
		r.onOneFingerHold(snap, now, fingersOnlyPretended)
	case fingersDown == 0 && s.FingersWereDown > 0:
		r.onLastRelease()
	}

	if fingersDown == 0 {
		s.HadTwoFingers = false
	}
	s.FingersWereDown = fingersDown

	deferredActivate()
}

func (r *Recognizer) releaseButton() {
	if r.state.ButtonDown {
		r.state.ButtonDown = false
		r.out.ReleaseButton(1)
		r.out.FlushOutput()
	}
}

func singleFinger(snap tracker.Snapshot) (Point, bool) {
	for i := range snap.Slots {
		if !snap.Slots[i].Empty() {
			return Point{snap.Slots[i].CalX, snap.Slots[i].CalY}, true
		}
	}
	return Point{}, false
}

func (r *Recognizer) onTwoDown(snap tracker.Snapshot, now clock.Millis) {
	s := r.state
	r.easing.Stop()

	s.ScrollX = axisScroll{lastTime: now}
	s.ScrollY = axisScroll{lastTime: now}
	s.MaxMoveDist = 0
	s.HadTwoFingers = true
	s.CurrentProfile = r.windows.CurrentProfile()

	r.releaseButton()

	f0, f1 := snap.Slots[0], snap.Slots[1]
	s.GestureStartCenter = Point{(f0.CalX + f1.CalX) / 2, (f0.CalY + f1.CalY) / 2}
	xdiff, ydiff := f1.CalX-f0.CalX, f1.CalY-f0.CalY
	s.GestureStartDist = dist(xdiff, ydiff)
	s.GestureStartAngle = angleDeg(xdiff, ydiff)

	s.Gesture = KindUndecided

	r.WarpPointer(s.GestureStartCenter.X, s.GestureStartCenter.Y)
}

func (r *Recognizer) onTwoOn(snap tracker.Snapshot, fingersDown int, pretended bool, now clock.Millis) {
	s := r.state
	if !pretended {
		if fingersDown == 2 {
			f0, f1 := snap.Slots[0], snap.Slots[1]
			s.CurrentCenter = Point{(f0.CalX + f1.CalX) / 2, (f0.CalY + f1.CalY) / 2}
		} else if p, ok := singleFinger(snap); ok {
			s.CurrentCenter = p
		}

		if s.Gesture == KindScroll && s.DragScrolling {
			r.WarpPointer(s.CurrentCenter.X, s.CurrentCenter.Y)
		}

		for r.checkGesture(snap, fingersDown, now) {
		}
	}
}

// onTwoUp handles the all-fingers-up transition after a two-finger phase.
// It reports whether it started a continuation window.
func (r *Recognizer) onTwoUp(now clock.Millis) bool {
	s := r.state

	if s.Gesture == KindScroll && !r.cont.DontStart() {
		r.startEasingIfIdle(now)
	}

	if s.Gesture != KindNone && s.Gesture != KindUndecided && !r.cont.DontStart() {
		r.cont.Start()
		return true
	}

	if (s.Gesture == KindNone || s.Gesture == KindUndecided) && s.MaxMoveDist < TapMaxMoveDist {
		r.warpForTap()
		tapProfile := r.profs.Effective(s.CurrentProfile, profileFieldTap())
		r.exec.Execute(tapProfile.TapAction, action.PhaseBoth)
	}
	s.Gesture = KindNone
	return false
}

// startEasingIfIdle releases the scroll brace action and computes whether
// easing should begin from the two scroll axes' recent step intervals and
// directions. A continuation-timeout release never re-releases the brace,
// because onTwoUp skips this call while the continuation worker's
// DontStart is set.
func (r *Recognizer) startEasingIfIdle(now clock.Millis) {
	s := r.state

	braceProfile := r.profs.Effective(s.CurrentProfile, profileFieldScroll())
	r.exec.Execute(braceProfile.ScrollBraceAction, action.PhaseRelease)

	if s.ScrollX.lastLastIntv < s.ScrollX.lastIntv && s.ScrollX.lastLastIntv != 0 {
		s.ScrollX.lastIntv = s.ScrollX.lastLastIntv
	}
	if s.ScrollY.lastLastIntv < s.ScrollY.lastIntv && s.ScrollY.lastLastIntv != 0 {
		s.ScrollY.lastIntv = s.ScrollY.lastLastIntv
	}

	dirX, dirY := s.ScrollX.direction, s.ScrollY.direction
	if s.ScrollY.lastIntv == 0 || now-s.ScrollY.lastTime > s.ScrollY.lastIntv*2 || s.ScrollY.lastIntv > MaxEasingStartInterval {
		dirY = 0
	}
	if s.ScrollX.lastIntv == 0 || now-s.ScrollX.lastTime > s.ScrollX.lastIntv*2 || s.ScrollX.lastIntv > MaxEasingStartInterval {
		dirX = 0
	}

	if dirX == 0 && dirY == 0 {
		return
	}

	interval := s.ScrollX.lastIntv
	if dirX != 0 && dirY != 0 {
		if s.ScrollX.lastIntv < s.ScrollY.lastIntv {
			dirY = 0
		} else if s.ScrollY.lastIntv < s.ScrollX.lastIntv {
			dirX = 0
		}
	}
	if dirY == 0 {
		interval = s.ScrollX.lastIntv
	} else if dirX == 0 {
		interval = s.ScrollY.lastIntv
	}

	r.easing.Start(s.CurrentProfile, dirX, dirY, interval)
}

func (r *Recognizer) warpForTap() {
	s := r.state
	switch r.clickMode {
	case ClickFirst:
		r.WarpPointer(s.LastSlotPos[0].X, s.LastSlotPos[0].Y)
	case ClickSecond:
		r.WarpPointer(s.LastSlotPos[1].X, s.LastSlotPos[1].Y)
	default:
		r.WarpPointer(s.GestureStartCenter.X, s.GestureStartCenter.Y)
	}
}

func (r *Recognizer) onFirstTouch(snap tracker.Snapshot, now clock.Millis) {
	s := r.state
	s.FingerDownTime = now
	if p, ok := singleFinger(snap); ok {
		r.WarpPointer(p.X, p.Y)
	}
}

func (r *Recognizer) onOneFingerHold(snap tracker.Snapshot, now clock.Millis, pretended bool) {
	if pretended {
		return
	}
	s := r.state
	if !s.HadTwoFingers && !s.ButtonDown {
		if now > s.FingerDownTime+ClickDelay {
			s.ButtonDown = true
			r.out.PressButton(1)
			r.out.FlushOutput()
		}
	}
	if s.ButtonDown {
		if p, ok := singleFinger(snap); ok {
			r.WarpPointer(p.X, p.Y)
		}
	}
}

func (r *Recognizer) onLastRelease() {
	s := r.state
	if !s.HadTwoFingers && !s.ButtonDown {
		r.out.PressButton(1)
		r.out.FlushOutput()
		r.out.ReleaseButton(1)
		r.out.FlushOutput()
	} else {
		r.releaseButton()
	}
}

// checkGesture is the per-tick classification/progress step. It returns
// true if the caller should invoke it again this tick.
func (r *Recognizer) checkGesture(snap tracker.Snapshot, fingersDown int, now clock.Millis) bool {
	s := r.state
	f0, f1 := snap.Slots[0], snap.Slots[1]

	xdiff, ydiff := f1.CalX-f0.CalX, f1.CalY-f0.CalY
	currentDist := dist(xdiff, ydiff)
	currentAngle := angleDeg(xdiff, ydiff)

	xdist := s.CurrentCenter.X - s.GestureStartCenter.X
	ydist := s.CurrentCenter.Y - s.GestureStartCenter.Y
	moveDist := dist(xdist, ydist)
	if moveDist > s.MaxMoveDist && fingersDown == 2 {
		s.MaxMoveDist = moveDist
	}

	if s.Gesture == KindUndecided && fingersDown == 2 {
		if done, cont := r.classify(currentDist, currentAngle, moveDist); done {
			return cont
		}
	}

	switch s.Gesture {
	case KindScroll:
		return r.stepScroll(now)
	case KindZoom:
		return r.stepZoom(currentDist)
	case KindRotate:
		return r.stepRotate(currentAngle)
	}
	return false
}

// classify implements the fixed scroll>zoom>rotate priority order. The
// first return is true once a gesture has been chosen (meaning the caller
// should stop trying other classifications this call), the second is the
// value checkGesture should return.
func (r *Recognizer) classify(currentDist, currentAngle, moveDist float64) (decided bool, cont bool) {
	s := r.state

	scrollP := r.profs.Effective(s.CurrentProfile, profileFieldScroll())
	if moveDist > scrollP.ScrollMinDistance {
		s.Gesture = KindScroll
		r.exec.Execute(scrollP.ScrollBraceAction, action.PhasePress)
		s.DragScrolling = !scrollP.ScrollBraceAction.IsNone()
		return true, true
	}

	zoomP := r.profs.Effective(s.CurrentProfile, profileFieldZoom())
	if math.Abs(currentDist-s.GestureStartDist) > zoomP.ZoomMinDistance {
		s.Gesture = KindZoom
		return true, true
	}

	rotP := r.profs.Effective(s.CurrentProfile, profileFieldRotate())
	rotatedBy := normalizeAngle(currentAngle - s.GestureStartAngle)
	if math.Abs(rotatedBy) > rotP.RotateMinAngle && currentDist > rotP.RotateMinDistance {
		s.Gesture = KindRotate
		return true, true
	}

	return false, false
}

func (r *Recognizer) stepScroll(now clock.Millis) bool {
	s := r.state
	scrollP := r.profs.Effective(s.CurrentProfile, profileFieldScroll())
	hstep, vstep := float64(scrollP.HScrollStep), float64(scrollP.VScrollStep)
	if hstep == 0 || vstep == 0 {
		return false
	}

	hscrolledBy := s.CurrentCenter.X - s.GestureStartCenter.X
	vscrolledBy := s.CurrentCenter.Y - s.GestureStartCenter.Y

	switch {
	case hscrolledBy > hstep:
		s.ScrollX.lastLastIntv = s.ScrollX.lastIntv
		s.ScrollX.lastIntv = now - s.ScrollX.lastTime
		s.ScrollX.lastTime = now
		s.ScrollX.direction = 1
		r.exec.Execute(scrollP.ScrollRightAction, action.PhaseBoth)
		s.GestureStartCenter.X += hstep
		return true
	case hscrolledBy < -hstep:
		s.ScrollX.lastLastIntv = s.ScrollX.lastIntv
		s.ScrollX.lastIntv = now - s.ScrollX.lastTime
		s.ScrollX.lastTime = now
		s.ScrollX.direction = -1
		r.exec.Execute(scrollP.ScrollLeftAction, action.PhaseBoth)
		s.GestureStartCenter.X -= hstep
		return true
	}

	switch {
	case vscrolledBy > vstep:
		s.ScrollY.lastLastIntv = s.ScrollY.lastIntv
		s.ScrollY.lastIntv = now - s.ScrollY.lastTime
		s.ScrollY.lastTime = now
		s.ScrollY.direction = 1
		r.exec.Execute(scrollP.ScrollDownAction, action.PhaseBoth)
		s.GestureStartCenter.Y += vstep
		return true
	case vscrolledBy < -vstep:
		s.ScrollY.lastLastIntv = s.ScrollY.lastIntv
		s.ScrollY.lastIntv = now - s.ScrollY.lastTime
		s.ScrollY.lastTime = now
		s.ScrollY.direction = -1
		r.exec.Execute(scrollP.ScrollUpAction, action.PhaseBoth)
		s.GestureStartCenter.Y -= vstep
		return true
	}

	return false
}

func (r *Recognizer) stepZoom(currentDist float64) bool {
	s := r.state
	zoomP := r.profs.Effective(s.CurrentProfile, profileFieldZoom())
	if s.GestureStartDist == 0 {
		return false
	}
	zoomedBy := currentDist / s.GestureStartDist
	switch {
	case zoomedBy > zoomP.ZoomStep:
		r.exec.Execute(zoomP.ZoomInAction, action.PhaseBoth)
		s.GestureStartDist *= zoomP.ZoomStep
		return true
	case zoomedBy < 1/zoomP.ZoomStep:
		r.exec.Execute(zoomP.ZoomOutAction, action.PhaseBoth)
		s.GestureStartDist /= zoomP.ZoomStep
		return true
	}
	return false
}

func (r *Recognizer) stepRotate(currentAngle float64) bool {
	s := r.state
	rotP := r.profs.Effective(s.CurrentProfile, profileFieldRotate())
	rotatedBy := normalizeAngle(currentAngle - s.GestureStartAngle)
	switch {
	case rotatedBy > rotP.RotateStep:
		r.exec.Execute(rotP.RotateRightAction, action.PhaseBoth)
		s.GestureStartAngle += rotP.RotateStep
	case rotatedBy < -rotP.RotateStep:
		r.exec.Execute(rotP.RotateLeftAction, action.PhaseBoth)
		s.GestureStartAngle -= rotP.RotateStep
	}
	return false
}

func profileFieldTap() profile.Field    { return profile.FieldTap }
func profileFieldScroll() profile.Field { return profile.FieldScroll }
func profileFieldZoom() profile.Field   { return profile.FieldZoom }
func profileFieldRotate() profile.Field { return profile.FieldRotate }
