//go:build !windows
// +build !windows

package osutil

import (
	"os"
	"syscall"
	"testing"
)

func TestSignalActionOf(t *testing.T) {
	testCases := []struct {
		sig    os.Signal
		action SignalAction
		str    string
	}{
		{syscall.SIGHUP, SignalReload, "reload"},
		{syscall.SIGUSR1, SignalReport, "report"},
		{syscall.SIGUSR2, SignalToggle, "toggle"},
		{syscall.SIGTERM, SignalStop, "stop"},
		{os.Interrupt, SignalStop, "stop"},
		{syscall.SIGWINCH, SignalIgnore, "ignore"},
	}

	for ix, tc := range testCases {
		got := SignalActionOf(tc.sig)
		if got != tc.action {
			t.Error(ix, "Action mismatch. Exp", tc.action, "Got", got)
		}
		if got.String() != tc.str {
			t.Error(ix, "String mismatch. Exp", tc.str, "Got", got.String())
		}
	}
}

func TestDropPrivilegesNoop(t *testing.T) {
	before := PrivilegeReport()
	err := DropPrivileges("", "")
	if err != nil {
		t.Error("Unexpected error", err)
	}
	if after := PrivilegeReport(); after != before {
		t.Error("Privileges changed. Before", before, "After", after)
	}
}

func TestDropPrivilegesUnknown(t *testing.T) {
	err := DropPrivileges("no-such-user-authzoned-test", "")
	if err == nil {
		t.Error("Expected unknown user to fail")
	}
}
