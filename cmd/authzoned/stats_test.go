package main

import (
	"strings"
	"testing"

	"github.com/markdingo/authzone/answer"
)

func TestStatsKinds(t *testing.T) {
	var ks1, ks2 kindStats
	ks1.count(answer.KindPositive, 2)
	ks2.count(answer.KindPositive, 1)
	ks2.count(answer.KindNXDomain, 0)
	ks2.count(answer.Kind(99), 5) // Out of range only counts RRs
	ks1.add(&ks2)
	if ks1.answers[answer.KindPositive] != 2 || ks1.answers[answer.KindNXDomain] != 1 ||
		ks1.rrs != 8 {
		t.Errorf("kindStats.add flawed %+v\n", ks1)
	}

	got := ks1.String()
	exp := "error=0 positive=2 cname=0 any=0 nodata=0 referral=0 dname=0 ent=0 wildcard=0 nxdomain=1 rrs=8"
	if got != exp {
		t.Error("kindStats.String \nExp:", exp, "\nGot:", got)
	}
}

func TestStatsGeneral(t *testing.T) {
	gs := generalStats{
		queries: 1, badRequest: 2, chaos: 3, nsid: 4,
		cookie: 5, cookieOnly: 6, wrongCookie: 7, malformedCookie: 8,
		chaosRefused: 9, noZone: 10, notify: 11, notifyRefused: 12,
		truncated: 13, rrlDrop: 14, rrlSlip: 15,
	}
	exp := "q=1/2/3/4 C=5/6/7/8 ref=9/10 notify=11/12 tc=13 rrl=14/15"
	if got := gs.String(); got != exp {
		t.Error("String wrong\nExp:", exp, "\nGot:", got)
	}

	gs.add(&gs) // Doubles every counter
	exp = "q=2/4/6/8 C=10/12/14/16 ref=18/20 notify=22/24 tc=26 rrl=28/30"
	if got := gs.String(); got != exp {
		t.Error("add wrong\nExp:", exp, "\nGot:", got)
	}
}

func TestStatsServer(t *testing.T) {
	var ss1, ss2 serverStats
	ss2.gen.wrongCookie = 2
	ss2.gen.noZone = 3
	ss2.gen.rrlSlip = 4
	ss2.kinds.count(answer.KindReferral, 0)
	ss1.add(&ss2)
	exp := "Gen: q=0/0/0/0 C=0/0/2/0 ref=0/3 notify=0/0 tc=0 rrl=0/4 Answers: error=0 positive=0"
	got := ss1.String()
	if !strings.HasPrefix(got, exp) || !strings.Contains(got, "referral=1") {
		t.Error("serverStats wrong. \nExp:", exp, "\nGot", got)
	}
}
