// Package continuation implements the extended-continuation grace window:
// a brief all-fingers-up report during an active gesture is treated as a
// re-grip rather than an end-of-gesture, unless no finger returns within
// Time.
package continuation

import (
	"time"

	"github.com/Plippo/twofing/internal/clock"
)

// Time is the grace window after an all-release during which the
// recognizer keeps pretending a finger is still down.
const Time clock.Millis = 500

// EndTick is the callback the worker invokes, exactly once, if no finger
// returns within Time: a synthesized "fingers fully up now" recognizer
// tick, with dontStartContinuation asserted for its duration. The
// recognizer itself is never called directly by this package; the caller
// supplies the glue that also takes whatever lock serializes this
// re-entry against the ingest activity.
type EndTick func()

// Worker runs the single continuation goroutine and owns the
// ignoreFingersUp flag the recognizer consults every tick through
// IgnoringFingersUp/ClearIfFingerReturned.
type Worker struct {
	mu   chan struct{} // binary semaphore guarding the fields below
	gate *clock.Gate

	ignoreFingersUp       bool
	dontStartContinuation bool

	end EndTick
}

// New returns a Worker that invokes end on continuation timeout.
func New(end EndTick) *Worker {
	w := &Worker{
		mu:   make(chan struct{}, 1),
		gate: clock.NewGate(),
		end:  end,
	}
	w.mu <- struct{}{}
	go w.run()
	return w
}

func (w *Worker) lock()   { <-w.mu }
func (w *Worker) unlock() { w.mu <- struct{}{} }

// Start signals the worker to begin a fresh continuation window.
func (w *Worker) Start() {
	w.gate.Signal()
}

// DontStart reports whether the recognizer is currently inside the
// synthesized end-of-gesture tick this worker invoked, in which case the
// recognizer must not start a new continuation for it.
func (w *Worker) DontStart() bool {
	w.lock()
	defer w.unlock()
	return w.dontStartContinuation
}

// IgnoringFingersUp reports whether the recognizer should currently treat
// an all-fingers-up report as a pretended single finger.
// ClearIfFingerReturned is how the recognizer reports a real finger came
// back, ending the re-grip window early.
func (w *Worker) IgnoringFingersUp() bool {
	w.lock()
	defer w.unlock()
	return w.ignoreFingersUp
}

// ClearIfFingerReturned drops ignoreFingersUp once a real finger has come
// back.
func (w *Worker) ClearIfFingerReturned() {
	w.lock()
	w.ignoreFingersUp = false
	w.unlock()
}

// Close permanently stops the worker and releases its goroutine.
func (w *Worker) Close() {
	w.gate.Cancel()
}

func (w *Worker) run() {
	for {
		if !w.gate.Wait() {
			return
		}

		w.lock()
		w.ignoreFingersUp = true
		w.unlock()

		if !w.gate.Sleep(time.Duration(Time) * time.Millisecond) {
			return
		}

		w.lock()
		fired := w.ignoreFingersUp
		if fired {
			w.ignoreFingersUp = false
			w.dontStartContinuation = true
		}
		w.unlock()

		if fired {
			w.end()
			w.lock()
			w.dontStartContinuation = false
			w.unlock()
		}
	}
}
