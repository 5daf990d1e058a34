package main

import (
	"fmt"
	"strings"

	"github.com/markdingo/authzone/answer"
)

const numKinds = int(answer.KindNXDomain) + 1

// kindStats counts answers served from zones by the kind of answer synthesized.
type kindStats struct {
	answers [numKinds]int
	rrs     int // Total RRs in the Answer section of all of them
}

func (t *kindStats) add(from *kindStats) {
	for ix := range t.answers {
		t.answers[ix] += from.answers[ix]
	}
	t.rrs += from.rrs
}

func (t *kindStats) count(kind answer.Kind, rrs int) {
	if int(kind) >= 0 && int(kind) < numKinds {
		t.answers[kind]++
	}
	t.rrs += rrs
}

func (t *kindStats) String() string {
	var sb strings.Builder
	for ix, n := range t.answers {
		fmt.Fprintf(&sb, "%s=%d ", answer.Kind(ix).String(), n)
	}
	fmt.Fprintf(&sb, "rrs=%d", t.rrs)

	return sb.String()
}

type generalStats struct {
	queries    int // Total queries
	badRequest int // No Question, wrong op-code

	chaos int
	nsid  int

	cookie          int
	cookieOnly      int
	wrongCookie     int // Server cookie mismatch
	malformedCookie int

	chaosRefused int // Refused counters
	noZone       int

	notify        int
	notifyRefused int

	truncated int

	rrlDrop int
	rrlSlip int
}

func (t *generalStats) add(from *generalStats) {
	t.queries += from.queries
	t.badRequest += from.badRequest
	t.chaos += from.chaos
	t.nsid += from.nsid
	t.cookie += from.cookie
	t.cookieOnly += from.cookieOnly
	t.wrongCookie += from.wrongCookie
	t.malformedCookie += from.malformedCookie
	t.chaosRefused += from.chaosRefused
	t.noZone += from.noZone
	t.notify += from.notify
	t.notifyRefused += from.notifyRefused
	t.truncated += from.truncated
	t.rrlDrop += from.rrlDrop
	t.rrlSlip += from.rrlSlip
}

func (t *generalStats) String() string {
	return fmt.Sprintf("q=%d/%d/%d/%d C=%d/%d/%d/%d ref=%d/%d notify=%d/%d tc=%d rrl=%d/%d",
		t.queries, t.badRequest, t.chaos, t.nsid,
		t.cookie, t.cookieOnly, t.wrongCookie, t.malformedCookie,
		t.chaosRefused, t.noZone,
		t.notify, t.notifyRefused,
		t.truncated,
		t.rrlDrop, t.rrlSlip)
}

type serverStats struct {
	gen   generalStats
	kinds kindStats
}

func (t *serverStats) add(from *serverStats) {
	t.gen.add(&from.gen)
	t.kinds.add(&from.kinds)
}

func (t *serverStats) String() string {
	return "Gen: " + t.gen.String() + " Answers: " + t.kinds.String()
}
