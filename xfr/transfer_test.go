package xfr

import (
	"errors"
	"strings"
	"testing"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/zone"
)

func soa(serial string) string {
	return "example. 300 IN SOA ns.example. hostmaster.example. " + serial + " 3600 600 86400 60\n"
}

const baseRRs = `
example. 300 IN NS ns.example.
ns.example. 300 IN A 192.0.2.53
a.example. 300 IN A 192.0.2.1
`

func parseRRs(t *testing.T, s string) (rrs []dns.RR) {
	t.Helper()
	zp := dns.NewZoneParser(strings.NewReader(s), "", "")
	zp.SetDefaultTTL(60)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		rrs = append(rrs, rr)
	}
	if err := zp.Err(); err != nil {
		t.Fatal("Setup error", err)
	}

	return
}

func currentTree(t *testing.T) *zone.Tree {
	t.Helper()
	tree, err := zone.Parse(strings.NewReader(soa("10")+baseRRs), "example.",
		dns.ClassINET, "current")
	if err != nil {
		t.Fatal("Setup error", err)
	}

	return tree
}

func TestBuildTreeAXFR(t *testing.T) {
	rrs := parseRRs(t, soa("11")+baseRRs+"b.example. 300 IN A 192.0.2.2\n"+soa("11"))
	tree, upToDate, err := buildTree("example.", dns.ClassINET, nil, 10, rrs)
	if err != nil || upToDate {
		t.Fatal("Unexpected", err, upToDate)
	}
	if serial, _ := tree.Serial(); serial != 11 {
		t.Error("Serial wrong", serial)
	}
	if tree.Len() != 5 {
		t.Error("Expected 5 RRs, got", tree.Len())
	}

	// With a current tree and a newer serial an AXFR style reply still replaces
	tree, _, err = buildTree("example.", dns.ClassINET, currentTree(t), 10, rrs)
	if err != nil || tree.Find("b.example.") == nil {
		t.Error("AXFR style reply to IXFR not applied", err)
	}
}

func TestBuildTreeIXFR(t *testing.T) {
	ixfr := soa("12") +
		soa("10") +
		"a.example. 300 IN A 192.0.2.1\n" +
		soa("11") +
		"b.example. 300 IN A 192.0.2.2\n" +
		soa("11") +
		soa("12") +
		"c.example. 300 IN A 192.0.2.3\n" +
		soa("12")

	current := currentTree(t)
	tree, upToDate, err := buildTree("example.", dns.ClassINET, current, 10, parseRRs(t, ixfr))
	if err != nil || upToDate {
		t.Fatal("Unexpected", err, upToDate)
	}
	if serial, _ := tree.Serial(); serial != 12 {
		t.Error("Serial wrong", serial)
	}
	if tree.Find("a.example.") != nil {
		t.Error("a.example. should have been deleted")
	}
	if tree.Find("b.example.") == nil || tree.Find("c.example.") == nil {
		t.Error("b and c should have been added")
	}
	if current.Find("b.example.") != nil {
		t.Error("Current tree was modified")
	}
	if serial, _ := current.Serial(); serial != 10 {
		t.Error("Current serial modified", serial)
	}
}

func TestBuildTreeUpToDate(t *testing.T) {
	for ix, s := range []string{"10", "9"} {
		tree, upToDate, err := buildTree("example.", dns.ClassINET, currentTree(t), 10,
			parseRRs(t, soa(s)))
		if err != nil || !upToDate || tree != nil {
			t.Error(ix, "Expected uptodate", err, upToDate, tree)
		}
	}
}

func TestBuildTreeMalformed(t *testing.T) {
	testCases := []struct {
		why     string
		current bool
		text    string
	}{
		{"empty", false, ""},
		{"no leading SOA", false, "a.example. 300 IN A 192.0.2.1\n" + soa("11")},
		{"no trailing SOA", false, soa("11") + baseRRs},
		{"serial mismatch", false, soa("11") + baseRRs + soa("12")},
		{"lone newer SOA", false, soa("11")},
		{"out of zone", false, soa("11") + "a.example.net. 300 IN A 192.0.2.1\n" + soa("11")},
		{"wrong SOA owner", false, strings.Replace(soa("11"), "example.", "other.", 1) + soa("11")},
		{"chain gap", true, soa("12") + soa("9") + soa("12") + soa("12")},
		{"ends short", true, soa("12") + soa("10") + soa("11") + soa("12")},
	}

	for ix, tc := range testCases {
		var current *zone.Tree
		if tc.current {
			current = currentTree(t)
		}
		var rrs []dns.RR
		if len(tc.text) > 0 {
			rrs = parseRRs(t, tc.text)
		}
		_, _, err := buildTree("example.", dns.ClassINET, current, 10, rrs)
		if !errors.Is(err, ErrMalformed) {
			t.Error(ix, tc.why, "Expected ErrMalformed, got", err)
		}
	}
}

func TestWrapMalformed(t *testing.T) {
	if !errors.Is(wrapMalformed(zone.ErrZoneFull), zone.ErrZoneFull) {
		t.Error("ErrZoneFull should pass through")
	}
	if errors.Is(wrapMalformed(zone.ErrZoneFull), ErrMalformed) {
		t.Error("ErrZoneFull should not be malformed")
	}
	if !errors.Is(wrapMalformed(zone.ErrOutOfZone), ErrMalformed) {
		t.Error("ErrOutOfZone should be wrapped")
	}
}
