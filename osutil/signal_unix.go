//go:build !windows
// +build !windows

package osutil

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalNotify asks the OS to send all the signals SignalActionOf knows about to c.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
}

// SignalActionOf maps a signal to the daemon action conventionally associated with it.
func SignalActionOf(s os.Signal) SignalAction {
	switch s {
	case syscall.SIGHUP:
		return SignalReload
	case syscall.SIGUSR1:
		return SignalReport
	case syscall.SIGUSR2:
		return SignalToggle
	case syscall.SIGTERM, os.Interrupt:
		return SignalStop
	}

	return SignalIgnore
}
