package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	real "github.com/markdingo/authzone/resolver"
)

// Make sure the mock meets the interface
var _ real.Resolver = NewResolver()

func TestMockLookupIP(t *testing.T) {
	r := NewResolver()
	r.AddHost("ns1.example.net.", "127.0.0.1", "::1", "192.0.2.1")

	ips, err := r.LookupIP(context.Background(), "ip4", "NS1.example.net")
	if err != nil {
		t.Fatal("Setup error with ns1.example.net", err.Error())
	}
	if len(ips) != 2 {
		t.Error("Expected two ipv4 addresses, not", len(ips))
	}

	ips, err = r.LookupIP(context.Background(), "ip6", "ns1.example.net")
	if err != nil || len(ips) != 1 || ips[0].String() != "::1" {
		t.Error("Expected ::1, not", ips, err)
	}

	_, err = r.LookupIP(context.Background(), "ip4", "unknown.example.net")
	if err == nil {
		t.Error("Expected an error for an unknown host")
	}
	if r.Lookups() != 3 {
		t.Error("Expected three lookups, not", r.Lookups())
	}
}

func TestMockExchange(t *testing.T) {
	r := NewResolver()
	soa, _ := dns.NewRR("example.net. 3600 IN SOA ns1 hostmaster 7 3600 600 86400 60")
	r.SetResponse("192.0.2.1:53", &Response{Answer: []dns.RR{soa}})
	r.SetResponse("192.0.2.2:53", &Response{Timeout: true})

	q := new(dns.Msg)
	q.SetQuestion("example.net.", dns.TypeSOA)
	cfg := real.NewExchangeConfig()
	cfg.SetTimeout(100 * time.Millisecond)

	out, _, err := r.SingleExchange(context.Background(), cfg, q, "192.0.2.1:53", "ns1")
	if err != nil {
		t.Fatal("Unexpected error", err)
	}
	if out.Id != q.Id || len(out.Answer) != 1 || out.Rcode != dns.RcodeSuccess {
		t.Error("Reply wrong", out)
	}

	_, _, err = r.SingleExchange(context.Background(), cfg, q, "192.0.2.2:53", "ns2")
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Error("Expected a timeout error, not", err)
	}

	_, _, err = r.SingleExchange(context.Background(), cfg, q, "192.0.2.3:53", "ns3")
	if err == nil || (errors.As(err, &ne) && ne.Timeout()) {
		t.Error("Expected a non-timeout error, not", err)
	}

	ex := r.Exchanges()
	if len(ex) != 3 || ex[0].Timeout != 100*time.Millisecond || ex[0].Qtype != dns.TypeSOA {
		t.Error("Exchanges not recorded correctly", ex)
	}
}
