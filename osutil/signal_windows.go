package osutil

import (
	"os"
	"os/signal"
)

func SignalNotify(c chan os.Signal) {
	signal.Notify(c, os.Interrupt)
}

// SignalActionOf only knows about os.Interrupt on Windows.
func SignalActionOf(s os.Signal) SignalAction {
	if s == os.Interrupt {
		return SignalStop
	}

	return SignalIgnore
}
