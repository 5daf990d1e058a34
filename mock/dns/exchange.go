package dns

import (
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ExchangeResponse is what ExchangeServer replies with. Answer, Ns and Extra are only
// populated when Rcode is NOERROR and the reply is not truncated.
type ExchangeResponse struct {
	Ignore       bool          // Never reply, so the client times out
	Truncated    bool          // Set TC on UDP replies, TCP replies are always complete
	Delay        time.Duration // Sleep prior to replying
	Rcode        int
	Answer       []dns.RR
	Ns           []dns.RR
	Extra        []dns.RR
	QueryCount   int // Times ExchangeServer served this ExchangeResponse
	TCPQueries   int // Of QueryCount, those which arrived over TCP
	LastQuestion dns.Question
}

// ExchangeServer is a dumb dns.Handler which copies the current ExchangeResponse into
// every reply without regard to the query. It can serve UDP and TCP at the same time.
type ExchangeServer struct {
	mu   sync.Mutex
	resp *ExchangeResponse
}

func (t *ExchangeServer) SetResponse(r *ExchangeResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resp = r
}

// GetResponse returns a copy of the current response, including its counters.
func (t *ExchangeServer) GetResponse() ExchangeResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.resp
}

func (t *ExchangeServer) ServeDNS(wtr dns.ResponseWriter, q *dns.Msg) {
	_, isTCP := wtr.RemoteAddr().(*net.TCPAddr)

	t.mu.Lock()
	resp := t.resp
	if resp == nil {
		t.mu.Unlock()
		panic("ExchangeServer has no response set")
	}
	resp.QueryCount++
	if isTCP {
		resp.TCPQueries++
	}
	if len(q.Question) > 0 {
		resp.LastQuestion = q.Question[0]
	}
	r := *resp
	t.mu.Unlock()

	if r.Ignore {
		return
	}
	time.Sleep(r.Delay)

	m := new(dns.Msg)
	m.SetRcode(q, r.Rcode)
	m.Authoritative = true
	switch {
	case r.Truncated && !isTCP:
		m.Truncated = true
	case r.Rcode == dns.RcodeSuccess:
		m.Answer = r.Answer
		m.Ns = r.Ns
		m.Extra = r.Extra
	}

	wtr.WriteMsg(m)
}
