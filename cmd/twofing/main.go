// Command twofing is the gesture daemon: it reads a multi-touch evdev
// device, recognizes two-finger tap/scroll/zoom/rotate gestures, and
// synthesizes the equivalent single-pointer X11 input. main parses flags,
// daemonizes unless running in debug mode, loads the profile/blacklist
// configuration, opens the X connection and the gesture core, then feeds
// evdev events into it until the process is killed.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Plippo/twofing/internal/calib"
	"github.com/Plippo/twofing/internal/clock"
	"github.com/Plippo/twofing/internal/config"
	"github.com/Plippo/twofing/internal/core"
	"github.com/Plippo/twofing/internal/daemon"
	"github.com/Plippo/twofing/internal/evdevsrc"
	"github.com/Plippo/twofing/internal/gesture"
	"github.com/Plippo/twofing/internal/tracker"
	"github.com/Plippo/twofing/internal/x11"
)

func main() {
	debug := flag.Bool("debug", false, "run in the foreground and log verbosely, instead of daemonizing")
	wait := flag.Bool("wait", false, "sleep 10s before connecting, to let the desktop session finish loading")
	click := flag.String("click", "center", "which finger a tap warps to before clicking: first, second, or center")
	configPath := flag.String("config", "/etc/twofing.conf", "profile/blacklist configuration file")
	flag.Parse()

	devicePath := "/dev/twofingtouch"
	if flag.NArg() > 0 {
		devicePath = flag.Arg(0)
	}

	clickMode, err := parseClickMode(*click)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if !*debug {
		if err := daemon.Daemonize(); err != nil {
			fmt.Printf("Error daemonizing: %v\n", err)
			os.Exit(1)
		}
	}

	logf := func(string, ...interface{}) {}
	if *debug {
		logf = func(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
	}

	if *wait {
		logf("waiting 10s before connecting")
		time.Sleep(10 * time.Second)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DevicePath != "" {
		devicePath = cfg.DevicePath
	}

	clk := clock.NewSystem()

	calibration := calib.NewTransform(calib.Params{}, 0, 0)

	xconn, err := x11.Dial(devicePath, cfg.Profiles, cfg.Blacklist, calibration)
	if err != nil {
		fmt.Printf("Error connecting to X: %v\n", err)
		os.Exit(1)
	}
	defer xconn.Close()

	gcore := core.New(cfg.Profiles, xconn, clk, xconn, xconn.WarpPointer)
	defer gcore.Close()
	gcore.SetCalibration(calibration)
	gcore.SetClickMode(clickMode)
	gcore.Bootstrap()

	stop := make(chan struct{})
	go xconn.RunEventLoop(stop, gcore.OnActiveWindowChanged, gcore.OnWindowMapped)

	src := evdevsrc.New(devicePath, logf)
	src.Run(stop, func(ev tracker.Event) {
		gcore.Feed(ev, clk.Now())
	})
}

func parseClickMode(s string) (gesture.ClickMode, error) {
	switch s {
	case "first":
		return gesture.ClickFirst, nil
	case "second":
		return gesture.ClickSecond, nil
	case "center", "":
		return gesture.ClickCenter, nil
	default:
		return 0, fmt.Errorf("invalid --click value %q", s)
	}
}
