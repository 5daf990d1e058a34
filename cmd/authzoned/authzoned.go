package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/markdingo/rrl"

	"github.com/markdingo/authzone/catalog"
	zoneconfig "github.com/markdingo/authzone/config"
	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/resolver"
	"github.com/markdingo/authzone/xfr"
)

// The authzoned container exists so that most of the "main" functionality can be
// delegated to support functions and help keep the flow of main() nice and clean.
type authzoned struct {
	cfg *config

	done chan struct{} // All collaborative go-routines should monitor - see Done()
	sig  chan os.Signal

	resolver   resolver.Resolver
	engine     *xfr.Engine
	catalog    *catalog.Catalog
	rrlHandler *rrl.RRL

	wg            sync.WaitGroup // For all servers started
	servers       []*server
	metricsServer *http.Server

	startTime time.Time
	statsTime time.Time // Last time stats were reset
}

func newAuthzoned(cfg *config, r resolver.Resolver) *authzoned {
	t := &authzoned{
		cfg:      cfg,
		done:     make(chan struct{}),
		sig:      make(chan os.Signal),
		resolver: r,
	}
	if t.cfg == nil {
		t.cfg = newConfig()
	}
	if t.resolver == nil {
		t.resolver = resolver.NewResolver()
	}

	return t
}

// Done is the go idiomatic way to tell collaborative go-routines to exit. All such
// go-routines should include a "case <-authzoned.Done(): return" in their select loop.
func (t *authzoned) Done() <-chan struct{} {
	return t.done
}

// loadZones reads the zone configuration file and applies it to the catalog. The first
// call creates the transfer engine and the catalog from the file's transfer settings,
// later calls leave those settings as they were. A configuration which cannot be read or
// parsed is returned as an error, failures of individual zones are only reported as
// warnings as they should not stop the other zones being served.
func (t *authzoned) loadZones(why string) error {
	zc, err := zoneconfig.Load(t.cfg.configFile)
	if err != nil {
		return err
	}

	if t.catalog == nil {
		opts := xfr.Options{
			Workers:          zc.Transfer.Workers,
			MaxConcurrent:    int64(zc.Transfer.MaxConcurrent),
			ReadTimeout:      zc.Transfer.ReadTimeout,
			RewriteZonefiles: zc.Transfer.RewriteZonefiles,
		}
		t.engine = xfr.NewEngine(opts, t.resolver)
		t.engine.Start()
		t.catalog = catalog.New(t.engine)
	}

	errs := t.catalog.Apply(zc)
	for _, err := range errs {
		warning(err, why)
	}
	log.Majorf("%s: %d zones from %s (%d errors)", why, len(zc.Zones), t.cfg.configFile,
		len(errs))

	return nil
}

// Open Listen sockets and start servers. Does not return until all servers have started
// or an error is detected. All servers share the one cookie secret so a client sees the
// same cookie regardless of transport.
func (t *authzoned) startServers() {
	secret := newCookieSecret()

	if t.cfg.rrlConfig.IsActive() {
		t.rrlHandler = rrl.NewRRL(t.cfg.rrlConfig)
	}

	for _, network := range []string{dnsutil.UDPNetwork, dnsutil.TCPNetwork} {
		for _, addr := range t.cfg.listen {
			srv := newServer(t.cfg, t.catalog, t.rrlHandler, network, addr)
			srv.cookieSecret = secret
			err := t.startServer(srv)
			if err != nil {
				fatal(err)
			}
			t.servers = append(t.servers, srv)
			log.Major("Listen on: ", srv.network, " ", srv.address)
		}
	}
}

// Stop all servers and only return when they have all exited
func (t *authzoned) stopServers() {
	for _, srv := range t.servers {
		srv.stop()
	}
	t.wg.Wait()
}

// startMetrics serves the prometheus registry on --metrics-listen. The listen socket is
// opened synchronously so that errors are reported at start-up.
func (t *authzoned) startMetrics() error {
	if len(t.cfg.metricsListen) == 0 {
		return nil
	}

	ln, err := net.Listen("tcp", t.cfg.metricsListen)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	t.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		err := t.metricsServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Major("Metrics server: ", err)
		}
	}()
	log.Major("Metrics on: ", ln.Addr())

	return nil
}

func (t *authzoned) stopMetrics() {
	if t.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	t.metricsServer.Shutdown(ctx)
}

// stopZones stops all transfers and releases the catalog.
func (t *authzoned) stopZones() {
	if t.catalog != nil {
		t.catalog.Close()
	}
	if t.engine != nil {
		t.engine.Stop()
	}
}
