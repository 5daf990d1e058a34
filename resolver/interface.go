package resolver

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
)

const (
	defaultLookupTimeout         = 4 * time.Second
	defaultSingleExchangeTimeout = 4 * time.Second
	defaultCacheTTL              = 5 * time.Minute
	defaultCacheSize             = 1024
)

// ExchangeConfig expresses settings which were previously passed to miekg via a
// Client struct. It's defined as an interface rather than a struct to enforce the use of
// NewExchangeConfig which sets defaults.
type ExchangeConfig interface {
	Net() string
	UDPSize() uint16
	Timeout() time.Duration
	SetTimeout(time.Duration)
}

type exchangeConfig struct {
	net     string
	udpSize uint16
	timeout time.Duration
}

func (t *exchangeConfig) Net() string                { return t.net }
func (t *exchangeConfig) UDPSize() uint16            { return t.udpSize }
func (t *exchangeConfig) Timeout() time.Duration     { return t.timeout }
func (t *exchangeConfig) SetTimeout(d time.Duration) { t.timeout = d }

func NewExchangeConfig() *exchangeConfig {
	return &exchangeConfig{net: dnsutil.UDPNetwork, udpSize: dnsutil.MaxUDPSize,
		timeout: defaultSingleExchangeTimeout}
}

// Resolver represents the network functions used by the transfer engine.
//
// Based on the claim that both net.Resolver and miekg.Client are concurrency safe, then
// implementations of this interface must also ensure concurrency safety.
type Resolver interface {

	// LookupIP is similar to net.Resolver.LookupIP. network is "ip4" or "ip6" so
	// that each address family is resolved as a separate sub-lookup.
	//
	// LookupIP derives a WithDeadline context from the supplied context so there is
	// no need for the caller to worry about timeouts.
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)

	// SingleExchange is a shim for the github.com/miekg/dns ExchangeContext function
	// which makes a single exchange attempt with the server; no retries, no fallback
	// to TCP. The exchange is abandoned after c.Timeout(), in which case the
	// returned error is a net.Error with Timeout() true.
	//
	// The dns.Msg must be fully formed with all flags and Id set as needed by the
	// caller.
	//
	// logName is normally the configured name of the master and is only used for
	// logging purposes.
	SingleExchange(ctx context.Context, c ExchangeConfig, q *dns.Msg,
		server, logName string) (r *dns.Msg, rtt time.Duration, err error)
}
