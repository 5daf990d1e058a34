package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

// validateOptions checks the options pflag cannot, and fills in derived values.
func (t *authzoned) validateOptions() error {
	cfg := t.cfg
	switch {
	case len(cfg.configFile) == 0:
		return errors.New("Must supply --config")
	case cfg.reportInterval < time.Second:
		return errors.New("--report must be at least 1 second")
	}

	if len(cfg.metricsListen) > 0 {
		if _, _, err := net.SplitHostPort(cfg.metricsListen); err != nil {
			return fmt.Errorf("--metrics-listen %s:%w", cfg.metricsListen, err)
		}
	}

	if len(cfg.listen) == 0 {
		cfg.listen = []string{defaultListen}
	}
	for ix, addr := range cfg.listen {
		cfg.listen[ix] = normalizeHostPort(addr, defaultService)
	}
	cfg.nsidAsHex = hex.EncodeToString([]byte(cfg.nsid))
	cfg.logQueries.Store(cfg.logQueriesFlag)

	return nil
}

// normalizeHostPort adds service to addr unless it already carries a port. A bare IPv6
// address is bracketed.
func normalizeHostPort(addr, service string) string {
	if net.ParseIP(addr) == nil {
		if _, _, err := net.SplitHostPort(addr); err == nil {
			return addr
		}
	}

	return net.JoinHostPort(addr, service)
}
