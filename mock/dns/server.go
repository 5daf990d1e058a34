package dns

import (
	"testing"
	"time"

	"github.com/miekg/dns"
)

// StartServer starts a miekg server on serverAddr and only returns once it is accepting
// requests. The server is shut down when the test completes.
func StartServer(tb testing.TB, net, serverAddr string, h dns.Handler) *dns.Server {
	tb.Helper()
	srv := &dns.Server{Net: net, Addr: serverAddr, Handler: h}
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-started:
	case err := <-errc:
		tb.Fatal("Setup of", net, serverAddr, "failed:", err)
	case <-time.After(5 * time.Second):
		tb.Fatal("Setup of", net, serverAddr, "timed out")
	}
	tb.Cleanup(func() { srv.Shutdown() })

	return srv
}
