package main

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/markdingo/rrl"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/pregen"
)

const (
	programName = "authzoned"

	// Uppercase HTTPS implies BuildInfo was empty
	defaultProjectURL = "HTTPS://github.com/markdingo/authzone"

	defaultService = "domain"
	defaultListen  = ":" + defaultService

	defaultReportInterval = time.Hour
	chaosTTL              = 0
)

// rrlOptions lists each --rrl-* option with the rrl.Config setting it feeds. Values are
// kept as strings as the rrl package does all conversion and range checking.
var rrlOptions = []struct{ flag, setting, usage string }{
	{"rrl-window", "window",
		"Seconds during which response rates are tracked (default 15)"},
	{"rrl-slip-ratio", "slip-ratio",
		`Ratio of rate-limited responses given a truncated response over
a dropped response. A ratio of 0 disables slip processing and
thus all rate-limited responses are drop (default 2).`},
	{"rrl-max-table-size", "max-table-size",
		`Maximum number of responses to be tracked at one time. When
exceeded, rrl stops rate limiting new responses (default
100000).`},
	{"rrl-ipv4-CIDR", "ipv4-CIDR",
		"Prefix length identifying an ipv4 client network (default 24)."},
	{"rrl-ipv6-CIDR", "ipv6-CIDR",
		"Prefix length identifying an ipv6 client network (default 56)."},
	{"rrl-responses-psec", "responses-per-second",
		`Answer responses allowed per second. An allowance of 0
disables Answer rate limiting (default 0).`},
	{"rrl-nodata-psec", "nodata-per-second",
		"NoData responses allowed per second (default --rrl-responses-psec)."},
	{"rrl-nxdomain-psec", "nxdomains-per-second",
		"NXDomain responses allowed per second (default --rrl-responses-psec)."},
	{"rrl-referrals-psec", "referrals-per-second",
		"Referral responses allowed per second (default --rrl-responses-psec)."},
	{"rrl-errors-psec", "errors-per-second",
		`Error responses, other than NXDomain, allowed per second
(default --rrl-responses-psec).`},
	{"rrl-requests-psec", "requests-per-second",
		`Requests allowed per second from a client network as masked by
--rrl-*-CIDR (default 0).`},
}

// config holds the command line settings. Once parsed it is shared amongst go-routines
// without lock protection so it must not change, logQueries excepted.
type config struct {
	projectURL string
	configFile string // YAML zone configuration

	chaosFlag bool

	logMajorFlag   bool
	logMinorFlag   bool
	logDebugFlag   bool
	logQueriesFlag bool        // Each DNS Query exchanged
	logQueries     atomic.Bool // Live copy of logQueriesFlag, toggled by SIGUSR2
	logFile        string
	logLevel       string

	reportInterval time.Duration // Zero means never

	nsid      string // Respond to EDNS NSID request with this string
	nsidAsHex string

	listen        []string
	metricsListen string // Prometheus endpoint, if set

	user  string // Switch to this user and group once listening
	group string

	rrlValues    []string    // Parallel to rrlOptions
	rrlOptionSet bool        // True if at least one rrl option was set
	rrlDryRun    bool        // "--rrl-dryrun"
	rrlConfig    *rrl.Config // Populated if RRL is active
}

func newConfig() *config {
	t := &config{projectURL: defaultProjectURL}
	info, ok := debug.ReadBuildInfo()
	if ok && len(info.Main.Path) > 0 {
		t.projectURL = info.Main.Path
	}

	t.rrlConfig = rrl.NewConfig() // This default config is a no-op
	t.rrlValues = make([]string, len(rrlOptions))

	return t
}

func (t *config) printVersion() {
	fmt.Fprintf(log.Out(), "Program:     %s %s (%s)\n",
		programName, pregen.Version, pregen.ReleaseDate)
	fmt.Fprintf(log.Out(), "Project:     %s\n", t.projectURL)
}
