package main

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/mock"
	mockResolver "github.com/markdingo/authzone/mock/resolver"
)

func TestRun(t *testing.T) {
	testCases := []string{
		"Initial load: 1 zones",
		"Listen on: udp 127.0.0.1:2061",
		programName,
		"Ready",
		"Stats: Uptime",
		"Stats: Total q=0",
		"Stats: Answers error=0",
		"Stats: Zone example. serial=10",
		"Signal",
		"log-queries=true",
		"log-queries=false",
		"--config reload",
		"Reload: 2 zones",
		"Warning: Reload: zone bad.",
		"initiates shutdown",
		"All Listen servers stopped",
		"All transfers stopped",
	}

	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.MinorLevel)

	dir := t.TempDir()
	zonefile := filepath.Join(dir, "example.zone")
	if err := os.WriteFile(zonefile, []byte(testZone), 0644); err != nil {
		t.Fatal(err)
	}
	configFile := filepath.Join(dir, "authzoned.yaml")
	yaml := "zones:\n  example.:\n    zonefile: " + zonefile + "\n    for-downstream: true\n"
	if err := os.WriteFile(configFile, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := newConfig()
	cfg.chaosFlag = true
	cfg.configFile = configFile
	cfg.reportInterval = time.Second * 3
	cfg.listen = []string{"127.0.0.1:2061"}
	az := newAuthzoned(cfg, mockResolver.NewResolver())
	if err := az.loadZones("Initial load"); err != nil {
		t.Fatal(err)
	}
	az.startServers()
	go az.Run()
	time.Sleep(time.Second * 4) // Give stats report time to trigger

	// Add a zone which fails to load for the SIGHUP reload
	yaml += "  bad.:\n    zonefile: " + filepath.Join(dir, "missing.zone") + "\n"
	if err := os.WriteFile(configFile, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	for _, sig := range []os.Signal{syscall.SIGUSR1, syscall.SIGHUP, syscall.SIGUSR2, syscall.SIGUSR2} {
		az.sig <- sig
		time.Sleep(time.Millisecond * 100)
	}

	if az.catalog.Get("bad.", dns.ClassINET) == nil {
		t.Error("Reload did not add bad. zone")
	}

	// Send shutdown and wait for co-routine channel to close
	az.sig <- syscall.SIGTERM
	<-az.Done()
	time.Sleep(time.Second)
	got := out.String()
	for _, s := range testCases {
		if !strings.Contains(got, s) {
			t.Error("Does not contain", s)
			t.Error(got)
		}
	}
}
