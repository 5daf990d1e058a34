package main

import (
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/pregen"
)

var commonCHAOSPrefix = programName + " " + pregen.Version + " " + pregen.ReleaseDate

// chaosNames maps the identification names recognized in class CHAOS to the TXT string
// each returns.
var chaosNames = map[string]func(*config) string{
	"version.bind.":   chaosVersion,
	"version.server.": chaosVersion,
	"authors.bind.":   chaosVersion,
	"hostname.bind.":  chaosIdentity,
	"id.server.":      chaosIdentity,
}

func chaosVersion(cfg *config) string  { return commonCHAOSPrefix + " " + cfg.projectURL }
func chaosIdentity(cfg *config) string { return cfg.nsid }

// serveCHAOS returns false if qName is not an identification name so that a configured
// CH zone still gets a chance to answer.
func (t *server) serveCHAOS(wtr dns.ResponseWriter, req *request) bool {
	fn, ok := chaosNames[req.qName]
	if !ok {
		return false
	}

	q := req.question
	txt := &dns.TXT{
		Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: q.Qclass, Ttl: chaosTTL},
		Txt: []string{fn(t.cfg)},
	}
	req.response.SetReply(req.query)
	req.response.Authoritative = true
	req.response.Answer = []dns.RR{txt}
	t.writeMsg(wtr, req)

	return true
}
