package osutil

// SignalAction is what a daemon does on receipt of a signal.
type SignalAction int

const (
	SignalIgnore SignalAction = iota
	SignalReload              // SIGHUP
	SignalReport              // SIGUSR1
	SignalToggle              // SIGUSR2
	SignalStop                // SIGTERM, SIGINT
)

func (t SignalAction) String() string {
	switch t {
	case SignalReload:
		return "reload"
	case SignalReport:
		return "report"
	case SignalToggle:
		return "toggle"
	case SignalStop:
		return "stop"
	}

	return "ignore"
}
