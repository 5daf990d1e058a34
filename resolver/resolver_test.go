package resolver

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/mock"
)

func TestLookupIP(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel) // Turns on logging in resolver
	defer log.SetLevel(log.SilentLevel)

	res := NewResolver()
	ips, err := res.LookupIP(context.Background(), "ip4", "localhost")
	if err != nil {
		t.Fatal("localhost did not resolve", err)
	}
	found := false
	for _, ip := range ips {
		if ip.IsLoopback() && ip.To4() != nil {
			found = true
		}
	}
	if !found {
		t.Error("Expected an ipv4 loopback address for localhost", ips)
	}

	got := out.String()
	if !strings.Contains(got, "Dbg:res:ip4#localhost#") {
		t.Error("Expected log to contain localhost lookup", got)
	}
}

func TestLookupIPBadHost(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	res := NewResolver()

	// We just need to make sure it's an error return
	_, err := res.LookupIP(context.Background(), "ip6", "Bad Host Name")
	if err == nil {
		t.Fatal("Expected an error return with a bad host name")
	}
}

// Concurrent lookups of the same host must all see the same answer whether or not they
// were coalesced.
func TestLookupIPConcurrent(t *testing.T) {
	res := NewResolver()
	var wg sync.WaitGroup
	results := make([]int, 10)
	for ix := range results {
		wg.Add(1)
		go func(ix int) {
			defer wg.Done()
			ips, _ := res.LookupIP(context.Background(), "ip4", "localhost")
			results[ix] = len(ips)
		}(ix)
	}
	wg.Wait()
	for ix, n := range results {
		if n != results[0] || n == 0 {
			t.Error(ix, "Inconsistent concurrent result", n, results[0])
		}
	}
}

func TestLookupIPCache(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(log.SilentLevel)

	res := NewResolver()
	first, err := res.LookupIP(context.Background(), "ip4", "localhost")
	if err != nil {
		t.Fatal(err)
	}
	if res.cache.Get("ip4/localhost") == nil {
		t.Fatal("Successful lookup was not cached")
	}
	second, err := res.LookupIP(context.Background(), "ip4", "LocalHost")
	if err != nil || len(second) != len(first) {
		t.Error("Cached lookup differs", first, second, err)
	}
	if !strings.Contains(out.String(), "#cached") {
		t.Error("Expected cache hit to be logged", out.String())
	}

	stale := net.ParseIP("192.0.2.9")
	res.cache.Set("ip4/localhost", cachedIPs{ips: []net.IP{stale}, at: time.Now().Add(-time.Hour)},
		ttlcache.DefaultTTL)
	third, _ := res.LookupIP(context.Background(), "ip4", "localhost")
	for _, ip := range third {
		if ip.Equal(stale) {
			t.Error("Stale cache entry was returned", third)
		}
	}

	res.LookupIP(context.Background(), "ip6", "Bad Host Name")
	if res.cache.Get("ip6/bad host name") != nil {
		t.Error("Failed lookup should not be cached")
	}
}
