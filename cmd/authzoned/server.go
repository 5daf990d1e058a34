package main

import (
	"sync"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/catalog"
	"github.com/markdingo/authzone/dnsutil"
)

// server is created for each listen address. All servers share the one catalog, which
// carries its own locking, so unlike the zones it serves a server has no mutable state
// apart from its stats.
type server struct {
	cfg        *config
	catalog    *catalog.Catalog
	rrlHandler *rrl.RRL // May be nil if not configured

	network string // Listen details
	address string

	miekg *dns.Server

	statsMu sync.RWMutex
	stats   serverStats

	cookieSecret cookieSecret
}

func newServer(cfg *config, cat *catalog.Catalog, rrlHandler *rrl.RRL, network, address string) *server {
	if len(network) == 0 {
		network = dnsutil.UDPNetwork
	}
	t := &server{cfg: cfg, catalog: cat, rrlHandler: rrlHandler, network: network, address: address}
	t.miekg = &dns.Server{
		Net:           network,
		Addr:          address,
		ReusePort:     true,
		Handler:       t,
		MsgAcceptFunc: t.customMsgAcceptFunc,
	}

	return t
}

// startServer returns once srv is accepting queries or has failed to listen. The
// listener goroutine is tracked by t.wg until Shutdown.
func (t *authzoned) startServer(srv *server) error {
	started := make(chan error, 1)
	srv.miekg.NotifyStartedFunc = func() { started <- nil }

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := srv.miekg.ListenAndServe(); err != nil {
			select {
			case started <- err:
			default: // Already started, so this is the Shutdown return
			}
		}
	}()

	return <-started
}

func (t *server) stop() {
	t.miekg.Shutdown()
}

func (t *server) addStats(from *serverStats) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.add(from)
}

// addAcceptError counts queries dropped by customMsgAcceptFunc before ServeDNS sees them.
func (t *server) addAcceptError() {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats.gen.badRequest++
}
