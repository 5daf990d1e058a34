package dns

import (
	"strings"
	"sync"

	"github.com/miekg/dns"
)

// XfrResponse defines how the AxfrServer answers. The zone is supplied in presentation
// format with $ORIGIN set or fully qualified names.
type XfrResponse struct {
	Rcode     int    // If not -1 every query is answered with just this rcode
	Zone      string // Served for AXFR, SOA probes and for IXFR when IXFR is empty
	IXFR      string // RRs sent verbatim in reply to IXFR
	IXFRRcode int    // If not -1 IXFR queries are answered with just this rcode
	Split     int    // If > 0, the number of RRs per transfer message
}

// AxfrServer is a mock master which answers SOA probes, AXFR and IXFR from the current
// XfrResponse. It checks as little as possible to do the job.
type AxfrServer struct {
	mu       sync.Mutex
	resp     *XfrResponse
	requests []uint16 // Qtypes seen in arrival order
}

// SetResponse sets a new response for subsequent queries
func (t *AxfrServer) SetResponse(r *XfrResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resp = r
}

// GetResponse returns the current response as set
func (t *AxfrServer) GetResponse() *XfrResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resp
}

// Requests returns the qtypes received so far
func (t *AxfrServer) Requests() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint16{}, t.requests...)
}

// ServeDNS meets the interface definition for dns.Handler
func (t *AxfrServer) ServeDNS(wtr dns.ResponseWriter, q *dns.Msg) {
	resp := t.GetResponse()
	if resp == nil {
		panic("resp == nil in mock axfr server")
	}

	if len(q.Question) != 1 {
		r := new(dns.Msg)
		r.SetRcodeFormatError(q)
		wtr.WriteMsg(r)
		return
	}
	question := q.Question[0]
	t.mu.Lock()
	t.requests = append(t.requests, question.Qtype)
	t.mu.Unlock()

	rcode := resp.Rcode
	if question.Qtype == dns.TypeIXFR && resp.IXFRRcode != -1 {
		rcode = resp.IXFRRcode
	}
	if rcode != -1 { // Is a custom Rcode requested? If so, just reply with that.
		r := new(dns.Msg)
		r.SetRcode(q, rcode)
		wtr.WriteMsg(r)
		return
	}

	zone := parseRRs(resp.Zone)
	if len(zone) == 0 {
		panic("Set up error: No zone RRs")
	}
	soa := zone[0]

	switch question.Qtype {
	case dns.TypeSOA:
		r := new(dns.Msg)
		r.SetReply(q)
		r.Authoritative = true
		r.Answer = append(r.Answer, soa)
		wtr.WriteMsg(r)
		return

	case dns.TypeAXFR:
		t.send(wtr, q, append(zone, soa), resp.Split)

	case dns.TypeIXFR:
		if len(resp.IXFR) == 0 {
			t.send(wtr, q, append(zone, soa), resp.Split)
		} else {
			t.send(wtr, q, parseRRs(resp.IXFR), resp.Split)
		}

	default:
		r := new(dns.Msg)
		r.SetRcode(q, dns.RcodeNotImplemented)
		wtr.WriteMsg(r)
	}
}

func (t *AxfrServer) send(wtr dns.ResponseWriter, q *dns.Msg, rrs []dns.RR, split int) {
	if split <= 0 {
		split = len(rrs)
	}
	ch := make(chan *dns.Envelope)
	tr := new(dns.Transfer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		tr.Out(wtr, q, ch)
		wg.Done()
	}()

	for len(rrs) > 0 {
		n := split
		if n > len(rrs) {
			n = len(rrs)
		}
		ch <- &dns.Envelope{RR: rrs[:n]}
		rrs = rrs[n:]
	}
	close(ch)

	wg.Wait() // wait until everything is written out
	wtr.Close()
}

func parseRRs(s string) (rrs []dns.RR) {
	parser := dns.NewZoneParser(strings.NewReader(s), "", "")
	parser.SetDefaultTTL(60) // ZoneParser needs this in case $TTL is absent
	for rr, ok := parser.Next(); ok; rr, ok = parser.Next() {
		rrs = append(rrs, rr)
	}
	if err := parser.Err(); err != nil {
		panic("Set up error: " + err.Error())
	}

	return
}
