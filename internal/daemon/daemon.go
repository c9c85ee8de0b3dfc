// Package daemon re-execs the current process detached from its
// controlling terminal, a fork/setsid/freopen-to-/dev/null daemonize
// step. Go cannot safely fork a multi-goroutine process in place, so Daemonize
// re-execs itself once, in a new session, with stdio redirected to
// /dev/null, and the parent exits immediately.
package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// daemonEnv marks a re-exec'd child so it does not daemonize again.
const daemonEnv = "TWOFING_DAEMONIZED=1"

// Daemonize re-execs the process as a detached daemon and exits the
// caller, unless already running as one. Call before opening any device
// or X connection the child should own itself.
func Daemonize() error {
	if os.Getenv("TWOFING_DAEMONIZED") == "1" {
		return nil
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devNull.Close()

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnv)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
