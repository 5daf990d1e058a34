package main

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/pregen"
)

// parseResult tells main whether to carry on after option parsing.
type parseResult int

const (
	parseStop     parseResult = iota // An informational option such as --help was handled
	parseContinue                    // Options are good, start serving
	parseFailed                      // An error has been reported
)

// multiOptions may appear more than once. pflag silently keeps the last value of any
// other repeated option, which hides typos in long command lines, so parseOptions rejects
// those.
var multiOptions = map[string]bool{"help": true, "version": true, "manpage": true, "listen": true}

// parseOptions parses args, including the program name, into t.cfg. A usage string
// ending in \n leaves a blank line after that option in --help output.
func (t *authzoned) parseOptions(args []string) parseResult {
	name := programName
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(log.Out())
	fs.Usage = func() { fmt.Fprintln(fs.Output(), "Consider '-h' for command-line usage") }
	fs.SetInterspersed(false)

	var help, manpage, version bool
	fs.BoolVarP(&help, "help", "h", false, "Print command-line usage")
	fs.BoolVar(&manpage, "manpage", false,
		`Print the manual page in mandoc format. Pipe into 'mandoc -a' to read it.
`)
	fs.BoolVarP(&version, "version", "v", false, "Print version and origin URL")
	t.cfg.register(fs)

	seen := make(map[string]bool)
	err := fs.ParseAll(args, func(f *flag.Flag, v string) error {
		if seen[f.Name] && !multiOptions[f.Name] {
			return fmt.Errorf("Duplicate option '--%s %s' not allowed", f.Name, v)
		}
		seen[f.Name] = true
		return fs.Set(f.Name, v)
	})
	switch {
	case err != nil:
		fmt.Fprintln(log.Out(), "Error:", err)
		return parseFailed
	case help:
		printUsage(fs)
		fmt.Fprintln(log.Out())
		t.cfg.printVersion()
		return parseStop
	case version:
		t.cfg.printVersion()
		return parseStop
	case manpage:
		fmt.Fprint(log.Out(), string(pregen.Manpage))
		return parseStop
	case fs.NArg() > 0:
		fmt.Fprintf(log.Out(), "Error: Unexpected goop on command line: '%s'\n",
			strings.Join(fs.Args(), " "))
		return parseFailed
	}

	return t.parseRRLOptions()
}

// register binds every configuration option to its field in t.
func (t *config) register(fs *flag.FlagSet) {
	fs.StringVarP(&t.configFile, "config", "c", "",
		`YAML zone configuration file. Re-read on SIGHUP.
`)
	fs.StringArrayVar(&t.listen, "listen", nil,
		`DNS listen address as host:port, :port, :service, an IPv4 address
with port or a bracketed IPv6 address with port. May be repeated.
The default is ':domain'.
`)
	fs.StringVar(&t.metricsListen, "metrics-listen", "",
		`Serve Prometheus metrics at /metrics on this address.
`)

	fs.BoolVar(&t.chaosFlag, "CHAOS", true,
		`Answer class CHAOS TXT identification queries (version.bind,
version.server, authors.bind, hostname.bind and id.server).`)
	fs.StringVar(&t.nsid, "NSID", "", "String returned in reply to an EDNS NSID option")

	fs.BoolVar(&t.logMajorFlag, "log-major", true, "Log major events")
	fs.BoolVar(&t.logMinorFlag, "log-minor", false, "Also log minor events such as transfers")
	fs.BoolVar(&t.logDebugFlag, "log-debug", false, "Also log debug events")
	fs.StringVar(&t.logLevel, "log-level", "",
		`One of silent, major, minor or debug. Overrides the other
--log-* level options.`)
	fs.BoolVar(&t.logQueriesFlag, "log-queries", false,
		"Log each DNS query. SIGUSR2 toggles this setting.")
	fs.StringVar(&t.logFile, "log-file", "",
		`Log to this file rather than Stdout. The file is rotated at 20MB
with three backups kept.`)
	fs.DurationVar(&t.reportInterval, "report", defaultReportInterval,
		"Time between statistics reports, at least 1s")

	fs.StringVar(&t.user, "user", "", "setuid to this user once listen sockets are open")
	fs.StringVar(&t.group, "group", "",
		`setgid to this group once listen sockets are open
`)

	for ix, o := range rrlOptions {
		fs.StringVar(&t.rrlValues[ix], o.flag, "", o.usage)
	}
	fs.BoolVar(&t.rrlDryRun, "rrl-dryrun", false,
		"Run RRL accounting but always send the response")
}

// parseRRLOptions hands each --rrl-* value to the rrl package. As the rrl config starts
// life as a no-op, setting any --rrl-* option without at least one *psec value is treated
// as an error.
func (t *authzoned) parseRRLOptions() parseResult {
	for ix, o := range rrlOptions {
		value := t.cfg.rrlValues[ix]
		if len(value) == 0 {
			continue
		}
		t.cfg.rrlOptionSet = true
		if err := t.cfg.rrlConfig.SetValue(o.setting, value); err != nil {
			fmt.Fprintln(log.Out(), "Error: --"+o.flag, err.Error())
			return parseFailed
		}
	}

	if (t.cfg.rrlOptionSet || t.cfg.rrlDryRun) && !t.cfg.rrlConfig.IsActive() {
		fmt.Fprintln(log.Out(), "Error: RRL needs at least one --rrl-*-psec option to activate")
		return parseFailed
	}

	return parseContinue
}

func printUsage(fs *flag.FlagSet) {
	o := log.Out()
	fmt.Fprintln(o, "NAME")
	fmt.Fprintln(o, " ", programName, "-- authoritative zone server with secondary zone transfer")
	fmt.Fprintln(o)
	fmt.Fprintln(o, "SYNOPSIS")
	fmt.Fprintln(o, "     authzoned -h | --help | --manpage | -v | --version")
	fmt.Fprintln(o, "     authzoned --config file [--listen listen-address]…")
	fmt.Fprintln(o, `               [--metrics-listen address] [--CHAOS=true] [--NSID hostid]
               [--user name] [--group name]
               [--log-major=true] [--log-minor] [--log-debug] [--log-level level]
               [--log-file path] [--log-queries] [--report time.Duration=1h]
               [--rrl-dryrun]
               [--rrl-ipv4-CIDR length] [--rrl-ipv6-CIDR length]
               [--rrl-max-table-size size] [--rrl-window size] [--rrl-slip-ratio ratio]
               [--rrl-errors-psec seconds] [--rrl-nodata-psec seconds]
               [--rrl-nxdomain-psec seconds] [--rrl-referrals-psec seconds]
               [--rrl-requests-psec seconds] [--rrl-responses-psec seconds]`)

	fmt.Fprintln(o)
	fmt.Fprintln(o, "     Ellipses (…) indicate options which can be specified multiple times.")
	fmt.Fprint(o, `
DESCRIPTION
     authzoned serves DNS zones authoritatively from local zone files or from
     copies kept current by zone transfer from one or more masters. Secondary
     zones are polled with SOA queries at the SOA refresh interval and fetched
     with IXFR or AXFR when the master has a newer serial. A NOTIFY from a
     master triggers an immediate poll.

     Zones are defined in the YAML file named by --config:

           zones:
             example.net:
               masters: [ 192.0.2.1 ]
               zonefile: /var/db/authzoned/example.net
               for-downstream: true
`)
	fmt.Fprintln(o)
	fmt.Fprintln(o, "OPTIONS")
	op := fs.Output()
	fs.SetOutput(o)
	fs.PrintDefaults()
	fs.SetOutput(op)

	fmt.Fprint(o, `
NOTES
  RRL is only active when at least one --rrl-*-psec value is above zero.

SIGNALS
  SIGHUP          re-read --config and apply zone changes
  SIGUSR1         log a stats report now
  SIGUSR2         toggle --log-queries
  SIGINT, SIGTERM shut down
  SIGQUIT         dump goroutine stacks and exit
`)
}
