package main

import (
	"testing"

	"github.com/miekg/dns"
)

func TestFindNSID(t *testing.T) {
	query := setQuestion(dns.ClassINET, dns.TypeA, "www.example.")
	query.SetEdns0(1232, false)
	req := newRequest(query, nil, "udp")
	if req.findNSID() != nil {
		t.Error("Found NSID without an OPT")
	}

	req.opt = query.IsEdns0()
	if req.findNSID() != nil {
		t.Error("Found NSID in an OPT without one")
	}
	req.opt.Option = append(req.opt.Option, &dns.EDNS0_NSID{Code: dns.EDNS0NSID})
	if req.findNSID() == nil {
		t.Error("Failed to find NSID opt")
	}
}

func TestGenOpt(t *testing.T) {
	doQuery := setQuestion(dns.ClassINET, dns.TypeA, "www.example.")
	doQuery.SetEdns0(4096, true)

	testCases := []struct {
		opt       *dns.OPT
		maxSize   uint16
		nsid      string
		cookie    []byte
		expectNil bool
		expectDO  bool
		subOpts   int
	}{
		{nil, 0, "", nil, true, false, 0},
		{nil, 800, "", nil, false, false, 0},
		{nil, 800, "abcd", nil, false, false, 1},
		{nil, 800, "abcd", []byte("0123456789abcdef"), false, false, 2},
		{doQuery.IsEdns0(), 0, "", nil, false, true, 0},
		{doQuery.IsEdns0(), 1232, "", []byte("01234567"), false, true, 1},
	}

	for ix, tc := range testCases {
		req := newRequest(doQuery, nil, "udp")
		req.opt = tc.opt
		req.maxSize = tc.maxSize
		req.nsidOut = tc.nsid
		req.cookieOut = tc.cookie
		o := req.genOpt()
		if tc.expectNil {
			if o != nil {
				t.Error(ix, "Did not expect an OPT", o)
			}
			continue
		}
		if o == nil {
			t.Error(ix, "Expected an OPT")
			continue
		}
		if tc.maxSize > 0 && o.UDPSize() != tc.maxSize {
			t.Error(ix, "UDPSize did not make it to OPT", o.UDPSize())
		}
		if o.Do() != tc.expectDO {
			t.Error(ix, "DO mismatch", o.Do())
		}
		if len(o.Option) != tc.subOpts {
			t.Error(ix, "Expected", tc.subOpts, "sub-opts, not", len(o.Option))
		}
	}
}

// The OPT generated for a response must be readable by findNSID and findCookies as that
// is what a client sees.
func TestGenOptRoundTrip(t *testing.T) {
	query := setQuestion(dns.ClassINET, dns.TypeA, "www.example.")
	req := newRequest(query, nil, "udp")
	req.maxSize = 800
	req.nsidOut = "61626364"
	req.cookieOut = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	back := newRequest(query, nil, "udp")
	back.opt = req.genOpt()
	if nsid := back.findNSID(); nsid == nil || nsid.Nsid != "61626364" {
		t.Error("NSID did not transfer", nsid)
	}
	back.findCookies()
	if !back.cookiesPresent || !back.cookieWellFormed {
		t.Fatal("Cookies did not transfer")
	}
	if string(back.clientCookie) != string(req.cookieOut[:8]) ||
		string(back.serverCookie) != string(req.cookieOut[8:]) {
		t.Errorf("Cookie mismatch %x %x", back.clientCookie, back.serverCookie)
	}
}
