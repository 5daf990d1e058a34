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

// reportError writes "severity: messages: err" directly to the log output regardless of
// the current log level.
func reportError(severity string, err error, messages ...string) {
	parts := []string{severity}
	if len(messages) > 0 {
		parts = append(parts, strings.Join(messages, " "))
	}
	if err != nil {
		parts = append(parts, err.Error())
	}
	fmt.Fprintln(log.Out(), strings.Join(parts, ": "))
}

func fatal(err error, messages ...string) {
	reportError("Fatal", err, messages...)
	os.Exit(1)
}

func warning(err error, messages ...string) {
	reportError("Warning", err, messages...)
}

// logLevelFromOptions picks the most verbose of the boolean --log-* options, unless
// --log-level is given, which wins.
func logLevelFromOptions(cfg *config) (log.Severity, error) {
	if len(cfg.logLevel) > 0 {
		return log.ParseLevel(cfg.logLevel)
	}
	level := log.SilentLevel
	for _, o := range []struct {
		set   bool
		level log.Severity
	}{
		{cfg.logMajorFlag, log.MajorLevel},
		{cfg.logMinorFlag, log.MinorLevel},
		{cfg.logDebugFlag, log.DebugLevel},
	} {
		if o.set {
			level = o.level
		}
	}

	return level, nil
}

func main() {
	az := newAuthzoned(nil, nil)
	switch az.parseOptions(os.Args) {
	case parseStop:
		return
	case parseFailed:
		os.Exit(1)
	}

	if len(az.cfg.logFile) > 0 {
		lf := log.SetFile(az.cfg.logFile)
		defer lf.Close()
	}
	level, err := logLevelFromOptions(az.cfg)
	if err != nil {
		fatal(err, "--log-level")
	}
	log.SetLevel(level)
	fmt.Fprintln(log.Out(), programName, pregen.Version, "Starting with Log Level:", log.Level())

	if err = az.validateOptions(); err != nil {
		fatal(err)
	}
	if err = az.loadZones("Initial load"); err != nil {
		fatal(err)
	}

	az.startServers() // Only returns if listens succeed
	if err = az.startMetrics(); err != nil {
		fatal(err, "--metrics-listen")
	}

	if len(az.cfg.user) > 0 || len(az.cfg.group) > 0 {
		if err = osutil.DropPrivileges(az.cfg.user, az.cfg.group); err != nil {
			fatal(err)
		}
		log.Major("Privileges: ", osutil.PrivilegeReport())
	}

	az.Run()
	az.statsReport(false)

	fmt.Fprintln(log.Out(), programName, pregen.Version, "Exiting after",
		time.Since(az.startTime).Round(time.Second))
}
