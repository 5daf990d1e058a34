package dnsutil

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// All Pretty* functions return a compact version of various dns structures for logging.
// The standard String() is designed to be consistent with traditional dig output, which
// is verbose and tab-separated.

// PrettyMsg1 returns a compact string representing the complete message.
func PrettyMsg1(m *dns.Msg) string {
	h := m.MsgHdr
	flags := []string{}
	if h.Response {
		flags = append(flags, "qr")
	}
	if h.Authoritative {
		flags = append(flags, "aa")
	}
	if h.Truncated {
		flags = append(flags, "tc")
	}

	return fmt.Sprintf("%d f=%s %s Q=%d-%s Ans=%d-%s Ns=%d-%s Extra=%d-%s",
		h.Id, strings.Join(flags, "+"), RcodeToString(h.Rcode),
		len(m.Question), questionTypes(m.Question),
		len(m.Answer), rrTypes(m.Answer),
		len(m.Ns), rrTypes(m.Ns),
		len(m.Extra), rrTypes(m.Extra))
}

func questionTypes(qs []dns.Question) string {
	ar := make([]string, 0, len(qs))
	for _, q := range qs {
		ar = append(ar, TypeToString(q.Qtype))
	}

	return strings.Join(ar, ",")
}

func rrTypes(rrs []dns.RR) string {
	ar := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		ar = append(ar, TypeToString(rr.Header().Rrtype))
	}

	return strings.Join(ar, ",")
}

// PrettyQuestion returns a compact representation of the dns.Question
func PrettyQuestion(q dns.Question) string {
	return fmt.Sprintf("%s/%s %s",
		ClassToString(dns.Class(q.Qclass)),
		TypeToString(q.Qtype),
		q.Name)
}

// PrettyRR returns a compact representation of a single RR: optional owner name,
// CLASS/TYPE, TTL and the rdata with single spaces.
func PrettyRR(rr dns.RR, includeName bool) (s string) {
	h := rr.Header()
	if includeName {
		s = h.Name + " "
	}
	rdata := strings.Fields(strings.TrimPrefix(rr.String(), h.String()))

	return s + fmt.Sprintf("%s/%s %d %s",
		ClassToString(dns.Class(h.Class)), TypeToString(h.Rrtype), h.Ttl,
		strings.Join(rdata, " "))
}

// PrettyRRSet returns a compact representation of the slice of RRs separated by ", ".
func PrettyRRSet(rrs []dns.RR, includeName bool) string {
	ar := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		ar = append(ar, PrettyRR(rr, includeName))
	}

	return strings.Join(ar, ", ")
}
