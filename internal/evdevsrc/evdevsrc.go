// Package evdevsrc adapts a raw evdev character device into the core
// tracker's {Type, Code, Value} event stream. It discovers and opens the
// device node, grabs it exclusively while reading, and reopens it after a
// delay if the read loop ever stops or the open fails.
package evdevsrc

import (
	"fmt"
	"strings"
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/Plippo/twofing/internal/tracker"
)

// ReopenDelay is how long Run waits before retrying a failed open or a
// closed read loop.
const ReopenDelay = time.Second

// Logf is a printf-style log line, guarded by the caller's --debug flag
// rather than routed through a structured logging framework.
type Logf func(format string, args ...interface{})

// FindByName returns the device node path of the first input device whose
// name contains keyword, case-insensitively. cmd/twofing does not call it;
// it always passes a device path.
func FindByName(keyword string) (string, error) {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return "", fmt.Errorf("evdevsrc: list input devices: %w", err)
	}
	needle := strings.ToLower(keyword)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d.Fn, nil
		}
	}
	return "", fmt.Errorf("evdevsrc: no device matching %q", keyword)
}

// Source reads a multitouch device node and feeds the tracker.
type Source struct {
	path string
	log  Logf
}

// New returns a Source reading the device node at path.
func New(path string, log Logf) *Source {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	return &Source{path: path, log: log}
}

// Run opens the device, grabs it exclusively, and feeds every event to
// onEvent until stop is closed. On open failure or a closed/errored read
// loop it logs and retries after ReopenDelay, forever.
func (s *Source) Run(stop <-chan struct{}, onEvent func(tracker.Event)) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		dev, err := evdev.Open(s.path)
		if err != nil {
			s.log("evdevsrc: open %s: %v, retrying in %s", s.path, err, ReopenDelay)
			if !sleepOrStop(stop, ReopenDelay) {
				return
			}
			continue
		}

		s.log("evdevsrc: reading %s", s.path)
		dev.Grab()
		s.readLoop(dev, stop, onEvent)
		dev.Release()

		s.log("evdevsrc: data stream stopped, retrying in %s", ReopenDelay)
		if !sleepOrStop(stop, ReopenDelay) {
			return
		}
	}
}

func (s *Source) readLoop(dev *evdev.InputDevice, stop <-chan struct{}, onEvent func(tracker.Event)) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		events, err := dev.Read()
		if err != nil {
			return
		}
		for _, ev := range events {
			onEvent(tracker.Event{
				Type:  ev.Type,
				Code:  ev.Code,
				Value: ev.Value,
			})
		}
	}
}

func sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}
