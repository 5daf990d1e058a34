package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/osutil"
	"github.com/markdingo/authzone/pregen"
)

// Run blocks until a stop signal arrives, handling reloads, stats reports and the query
// logging toggle along the way. On return all servers and transfers have been stopped.
func (t *authzoned) Run() {
	t.startTime = time.Now()
	t.statsTime = t.startTime
	osutil.SignalNotify(t.sig)
	fmt.Fprintln(log.Out(), programName, pregen.Version, "Ready")

	var tick <-chan time.Time // Stays nil, and thus never fires, without --report
	if t.cfg.reportInterval > 0 {
		ticker := time.NewTicker(t.cfg.reportInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var last os.Signal
	for stop := false; !stop; {
		select {
		case <-tick:
			t.statsReport(true)
		case last = <-t.sig:
			stop = t.handleSignal(last)
		}
	}

	log.Majorf("Signal '%s' initiates shutdown", last)
	close(t.done)
	t.stopServers()
	log.Minor("All Listen servers stopped")
	t.stopMetrics()
	t.stopZones()
	log.Minor("All transfers stopped")
}

// handleSignal acts on sig and reports whether it is a request to stop.
func (t *authzoned) handleSignal(sig os.Signal) bool {
	switch osutil.SignalActionOf(sig) {
	case osutil.SignalStop:
		return true
	case osutil.SignalReport:
		t.statsReport(false)
	case osutil.SignalToggle:
		on := !t.cfg.logQueries.Load()
		t.cfg.logQueries.Store(on)
		log.Majorf("--log-queries=%t", on)
	case osutil.SignalReload:
		log.Major("SIGHUP --config reload initiated")
		if err := t.loadZones("Reload"); err != nil {
			warning(err, "Reload abandoned")
		}
	default:
		log.Majorf("Ignoring signal '%s'", sig)
	}

	return false
}

// statsReport logs server totals since the last reset followed by one line per zone. The
// version is included as the format may change between releases.
func (t *authzoned) statsReport(resetCounters bool) {
	var totals serverStats
	for _, srv := range t.servers {
		srv.statsMu.Lock()
		totals.add(&srv.stats)
		if resetCounters {
			srv.stats = serverStats{}
		}
		srv.statsMu.Unlock()
	}

	now := time.Now()
	since := now.Sub(t.statsTime).Round(time.Second)
	if resetCounters {
		t.statsTime = now
	}
	log.Major("Stats: Uptime ", now.Sub(t.startTime).Round(time.Second),
		" Stats Time: ", since, " ", pregen.Version)
	log.Major("Stats: Total ", totals.gen.String())
	log.Major("Stats: Answers ", totals.kinds.String())

	if t.catalog != nil {
		for _, line := range strings.Split(t.catalog.Report(), "\n") {
			if line = strings.TrimSpace(line); len(line) > 0 {
				log.Major("Stats: ", line)
			}
		}
	}
}
