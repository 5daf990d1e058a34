package zone

import (
	"testing"

	"github.com/miekg/dns"
)

var cutZone = []string{
	"example. 3600 IN SOA ns.example. hostmaster.example. 10 3600 600 86400 300",
	"example. 3600 IN NS ns.example.",
	"ns.example. 3600 IN A 192.0.2.53",
	"sub.example. 3600 IN NS ns.sub.example.",
	"sub.example. 3600 IN DS 12345 8 2 0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF",
	"ns.sub.example. 3600 IN A 192.0.2.54",
	"a.sub.example. 3600 IN A 192.0.2.55",
	"deep.sub.example. 3600 IN NS ns.deep.sub.example.",
	"dn.example. 3600 IN DNAME example.net.",
	"dn.example. 3600 IN TXT \"owner\"",
	"x.y.example. 3600 IN A 192.0.2.1",
	"h.example. 3600 IN NSEC3 1 0 0 - 2T7B4G4VSA5SMI47K61MV5BV1A22BOJR A",
}

func TestFindClosestEncloser(t *testing.T) {
	tree := newTree("example.", cutZone...)
	testCases := []struct {
		qname  string
		qtype  uint16
		result Result
		name   string
		rrtype uint16 // Of the interrupting RRset
	}{
		{"example.", dns.TypeSOA, Exists, "example.", 0},
		{"ns.example.", dns.TypeA, Exists, "ns.example.", 0},
		{"x.sub.example.", dns.TypeA, Interrupted, "sub.example.", dns.TypeNS},
		{"a.sub.example.", dns.TypeA, Interrupted, "sub.example.", dns.TypeNS},
		{"sub.example.", dns.TypeA, Interrupted, "sub.example.", dns.TypeNS},
		{"sub.example.", dns.TypeDS, Exists, "sub.example.", 0},
		{"x.deep.sub.example.", dns.TypeA, Interrupted, "sub.example.", dns.TypeNS},
		{"deep.sub.example.", dns.TypeDS, Interrupted, "sub.example.", dns.TypeNS},
		{"dn.example.", dns.TypeTXT, Exists, "dn.example.", 0},
		{"a.dn.example.", dns.TypeA, Interrupted, "dn.example.", dns.TypeDNAME},
		{"nope.example.", dns.TypeA, NotExist, "example.", 0},
		{"z.x.y.example.", dns.TypeA, NotExist, "x.y.example.", 0},
		{"q.y.example.", dns.TypeA, NotExist, "y.example.", 0}, // ENT encloser
		{"y.example.", dns.TypeA, NotExist, "example.", 0},
		{"h.example.", dns.TypeA, NotExist, "example.", 0}, // NSEC3 only
	}

	for ix, tc := range testCases {
		ce := tree.FindClosestEncloser(tc.qname, tc.qtype)
		if ce.Result != tc.result || ce.Name != tc.name {
			t.Error(ix, tc.qname, "expected", tc.result, tc.name, "got", ce.Result, ce.Name)
			continue
		}
		if tc.rrtype != 0 && (ce.RRset == nil || ce.RRset.Type != tc.rrtype) {
			t.Error(ix, tc.qname, "wrong interrupting RRset", ce.RRset)
		}
		if tc.result == Exists && ce.Node == nil {
			t.Error(ix, tc.qname, "Exists without a Node")
		}
	}
}

func TestFindClosestEncloserENTNode(t *testing.T) {
	tree := newTree("example.", cutZone...)
	ce := tree.FindClosestEncloser("q.y.example.", dns.TypeA)
	if ce.Node != nil {
		t.Error("Empty non-terminal encloser should have no Node", ce.Node)
	}
}

func TestFindClosestEncloserNoApex(t *testing.T) {
	tree := newTree("example.", "a.example. 300 IN A 192.0.2.1")
	ce := tree.FindClosestEncloser("b.example.", dns.TypeA)
	if ce.Result != NotExist || ce.Name != "example." {
		t.Error("Missing apex should still report NotExist at the apex", ce)
	}
}
