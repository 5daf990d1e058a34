package main

import (
	"strings"
	"testing"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/mock"
)

func TestUsage(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)

	testCases := []struct {
		options string
		expect  string
		result  parseResult
	}{
		{"", "", parseContinue},
		{"-h", "SYNOPSIS", parseStop},
		{"--help", "SYNOPSIS", parseStop},
		{"-v", "Program:", parseStop},
		{"--version", "Program:", parseStop},
		{"--manpage", ".Sh NAME", parseStop},
		{"goop", "goop", parseFailed},
		{"-X", "unknown shorthand flag", parseFailed},
		{"--config a.yaml --config b.yaml", "Duplicate option", parseFailed},
		{"--listen 127.0.0.1 --listen ::1", "", parseContinue}, // This duplicate is ok
		{"--rrl-window 10", "at least one", parseFailed},
		{"--rrl-responses-psec xx", "Error", parseFailed},
		{"--rrl-dryrun", "at least one", parseFailed},
		{"--config zones.yaml -c zones.yaml", "Duplicate option", parseFailed},
		{"-c zones.yaml" +
			" --listen ::1 --listen 127.0.0.1" +
			" --metrics-listen 127.0.0.1:9153 --CHAOS=true" +
			" --NSID myname --user u --group g" +
			" --log-major --log-minor --log-debug=true --log-level minor --log-file /tmp/x.log" +
			" --log-queries=false --report 4h" +
			" --rrl-dryrun --rrl-responses-psec 10 --rrl-nxdomain-psec 5" +
			" --rrl-window 15 --rrl-slip-ratio 2", "", parseContinue}, // Every legit option
	}

	for ix, tc := range testCases {
		out.Reset()
		az := newAuthzoned(newConfig(), nil)
		res := az.parseOptions(append([]string{programName}, strings.Fields(tc.options)...))
		if res != tc.result {
			t.Error(ix, tc.options, "result want", tc.result, "got", res)
		}
		got := out.String()
		switch {
		case len(tc.expect) == 0 && len(got) > 0:
			t.Error(ix, "Unexpected output", got)
		case !strings.Contains(got, tc.expect):
			t.Error(ix, "Output lacks", tc.expect, "got", got)
		}
	}
}

func TestLogLevelFromOptions(t *testing.T) {
	testCases := []struct {
		options string
		level   log.Severity
		ok      bool
	}{
		{"", log.SilentLevel, true},
		{"--log-major", log.MajorLevel, true},
		{"--log-major --log-debug", log.DebugLevel, true},
		{"--log-minor", log.MinorLevel, true},
		{"--log-debug --log-level major", log.MajorLevel, true},
		{"--log-level DEBUG", log.DebugLevel, true},
		{"--log-level loud", log.SilentLevel, false},
	}
	for ix, tc := range testCases {
		az := newAuthzoned(newConfig(), nil)
		if res := az.parseOptions(append([]string{programName}, strings.Fields(tc.options)...)); res != parseContinue {
			t.Fatal(ix, "Setup parse failed", res)
		}
		level, err := logLevelFromOptions(az.cfg)
		if (err == nil) != tc.ok {
			t.Error(ix, "Error expectation wrong", err)
			continue
		}
		if tc.ok && level != tc.level {
			t.Error(ix, "Level want", tc.level, "got", level)
		}
	}
}
