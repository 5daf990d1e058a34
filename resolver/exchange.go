package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/log"
)

// SingleExchange sends q once to server. A truncated UDP reply is retried once over TCP
// with the same timeout, which is the only fallback made.
func (t *resolver) SingleExchange(ctx context.Context, c ExchangeConfig, q *dns.Msg,
	server, logName string) (*dns.Msg, time.Duration, error) {
	if len(q.Question) != 1 {
		return nil, 0, fmt.Errorf("SingleExchange Message contains %d Question(s), expect one",
			len(q.Question))
	}
	if _, _, err := net.SplitHostPort(server); err != nil { // Naked host or address?
		server = net.JoinHostPort(server, "domain")
	}

	r, rtt, err := exchange(ctx, c.Net(), c, q, server, logName)
	if err == nil && r.Truncated && c.Net() == dnsutil.UDPNetwork {
		r, rtt, err = exchange(ctx, dnsutil.TCPNetwork, c, q, server, logName)
	}

	return r, rtt, err
}

func exchange(ctx context.Context, network string, c ExchangeConfig, q *dns.Msg,
	server, logName string) (*dns.Msg, time.Duration, error) {
	client := &dns.Client{Net: network, UDPSize: c.UDPSize(), Timeout: c.Timeout()}
	if log.IfDebug() {
		LogExchangeQ(network, logName, server, q.Question[0])
	}

	r, rtt, err := client.ExchangeContext(ctx, q, server)
	if log.IfDebug() {
		LogExchangeA(server, q.Question[0], r, err)
	}

	return r, rtt, err
}
