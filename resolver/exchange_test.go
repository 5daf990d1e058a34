package resolver

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/mock"
	mockDNS "github.com/markdingo/authzone/mock/dns"
)

const exchangeAddr = "127.0.0.1:6391"

func soaQuery() *dns.Msg {
	q := new(dns.Msg)
	q.SetQuestion("example.net.", dns.TypeSOA)
	q.RecursionDesired = false

	return q
}

func TestExchange(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(log.SilentLevel)

	h := &mockDNS.ExchangeServer{}
	mockDNS.StartServer(t, "udp", exchangeAddr, h)
	mockDNS.StartServer(t, "tcp", exchangeAddr, h)

	soa, _ := dns.NewRR("example.net. IN SOA ns. hostmaster. 2026101701 3600 600 86400 60")
	testCases := []struct {
		resp    mockDNS.ExchangeResponse
		rcode   int
		answers int
		tcp     int
		log     string
	}{
		{mockDNS.ExchangeResponse{Rcode: dns.RcodeServerFailure}, dns.RcodeServerFailure, 0, 0,
			"miekg A:"},
		{mockDNS.ExchangeResponse{Rcode: dns.RcodeNotAuth}, dns.RcodeNotAuth, 0, 0, "NOTAUTH"},
		{mockDNS.ExchangeResponse{Answer: []dns.RR{soa}}, dns.RcodeSuccess, 1, 0,
			"Dbg:miekg Q:udp:TestMaster/" + exchangeAddr + " q=IN/SOA example.net."},
		{mockDNS.ExchangeResponse{Answer: []dns.RR{soa}, Truncated: true}, dns.RcodeSuccess, 1, 1,
			"Dbg:miekg Q:tcp:TestMaster/"},
	}

	res := NewResolver()
	cfg := NewExchangeConfig()
	for ix, tc := range testCases {
		out.Reset()
		resp := tc.resp
		h.SetResponse(&resp)
		r, _, err := res.SingleExchange(context.Background(), cfg, soaQuery(), exchangeAddr,
			"TestMaster")
		if err != nil {
			t.Error(ix, "Unexpected error", err)
			continue
		}
		if r.Rcode != tc.rcode {
			t.Error(ix, "Rcode expected", tc.rcode, "got", r.Rcode)
		}
		if len(r.Answer) != tc.answers {
			t.Error(ix, "Answers expected", tc.answers, "got", len(r.Answer))
		}
		if got := h.GetResponse(); got.TCPQueries != tc.tcp {
			t.Error(ix, "TCP queries expected", tc.tcp, "got", got.TCPQueries)
		}
		if !out.Contains(tc.log) {
			t.Error(ix, "Log does not contain", tc.log, "got", out.String())
		}
	}
}

func TestExchangeTimeout(t *testing.T) {
	h := &mockDNS.ExchangeServer{}
	mockDNS.StartServer(t, "udp", "127.0.0.1:6392", h)
	h.SetResponse(&mockDNS.ExchangeResponse{Ignore: true})

	res := NewResolver()
	cfg := NewExchangeConfig()
	if cfg.Timeout() != defaultSingleExchangeTimeout {
		t.Error("Default timeout not set", cfg.Timeout())
	}
	cfg.SetTimeout(200 * time.Millisecond)
	start := time.Now()
	_, _, err := res.SingleExchange(context.Background(), cfg, soaQuery(), "127.0.0.1:6392", "")
	if err == nil {
		t.Fatal("Expected a timeout error return")
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Error("Expected a net.Error timeout, not", err)
	}
	if diff := time.Since(start); diff > 2*time.Second {
		t.Error("Short timeout not honoured", diff)
	}
	if got := h.GetResponse(); got.QueryCount != 1 {
		t.Error("Expected exactly one query, not", got.QueryCount)
	}
}

func TestExchangeDefaultService(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(log.SilentLevel)

	res := NewResolver()
	cfg := NewExchangeConfig()
	cfg.SetTimeout(100 * time.Millisecond)
	res.SingleExchange(context.Background(), cfg, soaQuery(), "127.0.0.1", "Default")
	exp := "/127.0.0.1:domain q=IN/SOA"
	if !out.Contains(exp) {
		t.Error("Default service not added. Want", exp, "got", out.String())
	}
}

func TestExchangeBadQuestion(t *testing.T) {
	res := NewResolver()
	cfg := NewExchangeConfig()
	q := new(dns.Msg) // No questions
	for ix := 0; ix < 2; ix++ {
		_, _, err := res.SingleExchange(context.Background(), cfg, q, "127.0.0.1", "Default")
		if err == nil {
			t.Fatal(ix, "Expected an error return")
		}
		if !strings.Contains(err.Error(), "expect one") {
			t.Error(ix, "Got an error, but doesn't match", err)
		}
		q = soaQuery()
		q.Question = append(q.Question, q.Question[0]) // Now have two
	}
}
