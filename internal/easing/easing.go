// Package easing implements the post-release kinetic scroll continuation:
// after a scroll gesture ends, repeat the last directional scroll Action
// with a geometrically growing interval until it exceeds a cutoff or a
// new gesture begins.
package easing

import (
	"time"

	"github.com/Plippo/twofing/internal/action"
	"github.com/Plippo/twofing/internal/clock"
	"github.com/Plippo/twofing/internal/profile"
)

// MaxInterval is the cutoff: once the next interval would exceed this, the
// worker parks instead of emitting another step.
const MaxInterval clock.Millis = 200

// growthFactor is the per-step interval growth rate.
const growthFactor = 1.15

// Engine runs the single easing worker goroutine. All mutable fields are
// guarded by mu; gate is the channel-based park/wake primitive the worker
// blocks on between steps.
type Engine struct {
	exec *action.Executor
	profs *profile.Set

	mu             chan struct{} // binary semaphore guarding the fields below
	gate           *clock.Gate
	started        bool
	stopRequested  bool
	active         bool
	interval       clock.Millis
	directionX     int
	directionY     int
	easingProfile  *profile.Profile
}

// New returns an Engine that executes easing steps through exec.
func New(exec *action.Executor, profs *profile.Set) *Engine {
	e := &Engine{
		exec:  exec,
		profs: profs,
		mu:    make(chan struct{}, 1),
		gate:  clock.NewGate(),
	}
	e.mu <- struct{}{}
	return e
}

func (e *Engine) lock()   { <-e.mu }
func (e *Engine) unlock() { e.mu <- struct{}{} }

// Active reports whether easing is currently emitting steps.
func (e *Engine) Active() bool {
	e.lock()
	defer e.unlock()
	return e.active
}

// Start begins (or resumes) easing with the given profile, per-axis
// directions, and starting interval. directionX/Y are -1, 0, or +1; an
// axis with direction 0 never emits. profile, directions, and interval
// must all be set on every call, since a resumed worker picks them up
// fresh rather than remembering the previous run's values.
func (e *Engine) Start(p *profile.Profile, directionX, directionY int, interval clock.Millis) {
	e.lock()
	e.stopRequested = false
	e.easingProfile = p
	e.directionX = directionX
	e.directionY = directionY
	e.interval = interval
	e.active = true
	started := e.started
	e.started = true
	e.unlock()

	if !started {
		go e.run()
	} else {
		e.gate.Signal()
	}
}

// Stop requests the worker halt emitting steps and park. It has no effect
// if the worker has never been started.
func (e *Engine) Stop() {
	e.lock()
	if e.started {
		e.stopRequested = true
	}
	e.unlock()
}

func (e *Engine) run() {
	e.lock()
	nextInterval := e.interval
	e.active = true
	e.unlock()

	for {
		if !e.gate.Sleep(time.Duration(nextInterval) * time.Millisecond) {
			return
		}

		e.lock()
		stop := e.stopRequested || nextInterval > MaxInterval
		if stop {
			e.stopRequested = false
			e.active = false
		}
		e.unlock()

		if stop {
			if !e.gate.Wait() {
				return
			}
			e.lock()
			e.active = true
			nextInterval = e.interval
			e.unlock()
		}

		e.emitStep()
		nextInterval = clock.Millis(float64(nextInterval) * growthFactor)
	}
}

func (e *Engine) emitStep() {
	e.lock()
	p := e.easingProfile
	dx, dy := e.directionX, e.directionY
	e.unlock()

	if p == nil {
		return
	}
	eff := e.profs.Effective(p, profile.FieldScroll)
	switch dy {
	case -1:
		e.exec.Execute(eff.ScrollUpAction, action.PhaseBoth)
	case 1:
		e.exec.Execute(eff.ScrollDownAction, action.PhaseBoth)
	}
	switch dx {
	case -1:
		e.exec.Execute(eff.ScrollLeftAction, action.PhaseBoth)
	case 1:
		e.exec.Execute(eff.ScrollRightAction, action.PhaseBoth)
	}
}

// Close permanently stops the worker and releases its goroutine; used on
// daemon shutdown.
func (e *Engine) Close() {
	e.gate.Cancel()
}
