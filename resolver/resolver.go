package resolver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/markdingo/authzone/log"
)

type resolver struct {
	netResolver   net.Resolver
	lookupTimeout time.Duration
	sf            singleflight.Group // Coalesces concurrent lookups of the same host
	cache         *ttlcache.Cache[string, cachedIPs]
}

// cachedIPs records when the lookup was made as a cache hit extends the item TTL.
type cachedIPs struct {
	ips []net.IP
	at  time.Time
}

// NewResolver creates a fully formed resolver which is ready to use. Successful lookups
// are cached for defaultCacheTTL; failures are never cached.
func NewResolver() *resolver {
	return &resolver{
		lookupTimeout: defaultLookupTimeout,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, cachedIPs](defaultCacheTTL),
			ttlcache.WithCapacity[string, cachedIPs](defaultCacheSize)),
	}
}

// LookupIP resolves one address family of host. Many zones commonly share the same
// masters so concurrent lookups of the same host and family share one query.
func (t *resolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	key := network + "/" + strings.ToLower(host)
	if item := t.cache.Get(key); item != nil && time.Since(item.Value().at) < defaultCacheTTL {
		ips := item.Value().ips
		if log.IfDebug() {
			LogIP(network, host, ips, "cached", nil)
		}
		return ips, nil
	}

	v, err, _ := t.sf.Do(key, func() (interface{}, error) {
		ctxWithTO, cancel := context.WithDeadline(ctx, time.Now().Add(t.lookupTimeout))
		defer cancel()
		ips, err := t.netResolver.LookupIP(ctxWithTO, network, host)
		if err == nil && len(ips) > 0 {
			t.cache.Set(key, cachedIPs{ips: ips, at: time.Now()}, ttlcache.DefaultTTL)
		}
		return ips, err
	})

	var ips []net.IP
	if err == nil {
		ips = v.([]net.IP)
	}
	if log.IfDebug() {
		LogIP(network, host, ips, "", err)
	}
	if err != nil {
		return []net.IP{}, err
	}

	return ips, nil
}
