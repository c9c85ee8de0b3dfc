package continuation

import (
	"sync"
	"testing"
	"time"
)

func TestContinuationFiresEndTickAfterTimeoutWithNoRegrip(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	w := New(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer w.Close()

	w.Start()
	time.Sleep(10 * time.Millisecond)
	if !w.IgnoringFingersUp() {
		t.Fatalf("expected ignoreFingersUp to be set shortly after Start")
	}

	time.Sleep(700 * time.Millisecond)

	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly one end-tick after timeout, got %d", got)
	}
	if w.IgnoringFingersUp() {
		t.Fatalf("expected ignoreFingersUp cleared after the synthesized end-tick")
	}
}

func TestContinuationRegripSuppressesEndTick(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	w := New(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer w.Close()

	w.Start()
	time.Sleep(50 * time.Millisecond)

	// A real finger returns well within Time: the recognizer
	// reports this back via ClearIfFingerReturned.
	w.ClearIfFingerReturned()

	time.Sleep(700 * time.Millisecond)

	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 0 {
		t.Fatalf("expected no end-tick after a successful re-grip, got %d", got)
	}
}

func TestContinuationCanRestartAfterFiring(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	w := New(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer w.Close()

	w.Start()
	time.Sleep(700 * time.Millisecond)

	w.Start()
	time.Sleep(700 * time.Millisecond)

	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 2 {
		t.Fatalf("expected two end-ticks across two independent continuation windows, got %d", got)
	}
}
