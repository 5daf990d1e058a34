package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/resolver"
)

// Response defines how the mock resolver answers SingleExchange calls made to one
// server address.
type Response struct {
	Timeout bool // Every exchange fails with a net.Error timeout
	Rcode   int
	Answer  []dns.RR
	Id      uint16 // If non-zero, replaces the query Id in the reply
}

// Exchange records one SingleExchange call.
type Exchange struct {
	Server  string
	Qtype   uint16
	Timeout time.Duration
}

// mockResolver implements the resolver.Resolver interface from in-memory tables. Hosts
// not in the table fail with "no such host" and servers without a Response fail with a
// connection refused style error.
type mockResolver struct {
	mu        sync.Mutex
	hosts     map[string][]net.IP
	responses map[string]*Response
	exchanges []Exchange
	lookups   int
}

// NewResolver creates an empty mock resolver.
func NewResolver() *mockResolver {
	return &mockResolver{
		hosts:     make(map[string][]net.IP),
		responses: make(map[string]*Response),
	}
}

// AddHost makes host resolve to the supplied addresses. Addresses are sorted into their
// family by LookupIP.
func (t *mockResolver) AddHost(host string, addrs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	host = strings.ToLower(dnsutil.ChompCanonicalName(host))
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			panic("Bogus IP Address:" + a)
		}
		t.hosts[host] = append(t.hosts[host], ip)
	}
}

// SetResponse defines how exchanges with server are answered. server is in
// net.JoinHostPort form.
func (t *mockResolver) SetResponse(server string, r *Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[server] = r
}

// Exchanges returns a copy of all SingleExchange calls made so far.
func (t *mockResolver) Exchanges() []Exchange {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Exchange{}, t.exchanges...)
}

// Lookups returns the number of LookupIP calls made so far.
func (t *mockResolver) Lookups() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookups
}

func (t *mockResolver) LookupIP(ctx context.Context, network, host string) (ips []net.IP, err error) {
	host = strings.ToLower(dnsutil.ChompCanonicalName(host))
	t.mu.Lock()
	t.lookups++
	for _, ip := range t.hosts[host] {
		is4 := ip.To4() != nil
		if (network == "ip4") == is4 {
			ips = append(ips, ip)
		}
	}
	t.mu.Unlock()

	if len(ips) == 0 {
		err = fmt.Errorf("lookup %s: no such host", host)
	}
	if log.IfDebug() {
		resolver.LogIP(network, host, ips, "mock", err)
	}

	return
}

func (t *mockResolver) SingleExchange(ctx context.Context, c resolver.ExchangeConfig, q *dns.Msg,
	server, logName string) (out *dns.Msg, rtt time.Duration, err error) {
	if len(q.Question) != 1 {
		err = fmt.Errorf("SingleExchange Message contains %d Question(s), expect one",
			len(q.Question))
		return
	}

	question := q.Question[0]
	if log.IfDebug() {
		resolver.LogExchangeQ(c.Net(), logName, server, question)
	}

	t.mu.Lock()
	t.exchanges = append(t.exchanges,
		Exchange{Server: server, Qtype: question.Qtype, Timeout: c.Timeout()})
	resp := t.responses[server]
	t.mu.Unlock()

	switch {
	case resp == nil:
		err = &net.OpError{Op: "read", Net: c.Net(), Err: fmt.Errorf("connection refused")}
	case resp.Timeout:
		err = &net.OpError{Op: "read", Net: c.Net(), Err: &timeoutError{}}
	default:
		out = new(dns.Msg)
		out.SetRcode(q, resp.Rcode)
		if resp.Id != 0 {
			out.Id = resp.Id
		}
		for _, rr := range resp.Answer {
			out.Answer = append(out.Answer, dns.Copy(rr))
		}
	}

	if log.IfDebug() {
		resolver.LogExchangeA(server, question, out, err)
	}

	return
}

// timeoutError meets the net.Error interface
type timeoutError struct{}

func (t *timeoutError) Error() string   { return "i/o timeout" }
func (t *timeoutError) Timeout() bool   { return true }
func (t *timeoutError) Temporary() bool { return true }
