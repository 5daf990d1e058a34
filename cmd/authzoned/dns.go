package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/answer"
	"github.com/markdingo/authzone/catalog"
	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/xfr"
)

// ServeDNS is called from miekg and handles all DNS messages. Zone data is entirely the
// catalog's business, this function deals with the envelope: cookies, NSID, CHAOS,
// NOTIFY, rrl and the final OPT and truncation.
func (t *server) ServeDNS(wtr dns.ResponseWriter, query *dns.Msg) {
	req := newRequest(query, wtr.RemoteAddr(), t.network)
	req.stats.gen.queries++
	if t.cfg.logQueries.Load() {
		defer req.log()
	}
	defer t.addStats(&req.stats)

	if len(req.query.Question) > 0 {
		req.question = req.query.Question[0]
		req.qName = strings.ToLower(req.question.Name)
		req.logQName = req.qName
	}

	req.opt = req.query.IsEdns0()
	if req.opt != nil {
		req.maxSize = dnsutil.MaxUDPSize
	}

	if (len(t.cfg.nsid) > 0) && (req.findNSID() != nil) {
		req.nsidOut = t.cfg.nsidAsHex
		req.stats.gen.nsid++
	}

	req.findCookies()
	if req.cookiesPresent {
		req.stats.gen.cookie++
		if !req.cookieWellFormed {
			t.serveFormErr(wtr, req)
			req.addNote("Malformed cookie")
			req.stats.gen.malformedCookie++
			return
		}
		if !req.validateOrGenerateCookie(t.cookieSecret, time.Now().Unix()) {
			if len(req.serverCookie) > 0 {
				req.addNote("Server cookie mismatch")
				req.stats.gen.wrongCookie++
			}
		}
	}

	// Cookie-only request (RFC7873 Section 5.4)
	if len(req.clientCookie) > 0 && len(req.serverCookie) == 0 && len(req.query.Question) == 0 {
		req.response.SetReply(query)
		t.writeMsg(wtr, req)
		req.addNote("Cookie-only query")
		req.stats.gen.cookieOnly++
		return
	}

	if req.query.Opcode == dns.OpcodeNotify {
		t.serveNotify(wtr, req)
		return
	}

	if len(req.query.Question) != 1 ||
		len(req.query.Answer) != 0 ||
		len(req.query.Ns) != 0 ||
		req.query.Opcode != dns.OpcodeQuery {
		t.serveFormErr(wtr, req)
		req.addNote("Malformed Query " + dnsutil.OpcodeToString(req.query.Opcode))
		req.stats.gen.badRequest++
		return
	}

	if req.question.Qclass == dns.ClassCHAOS && req.question.Qtype == dns.TypeTXT &&
		t.cfg.chaosFlag {
		if t.serveCHAOS(wtr, req) {
			req.stats.gen.chaos++
			return
		}
	}

	msg, kind, handled := t.catalog.AnswerMsg(req.query, 0)
	if !handled {
		t.serveRefused(wtr, req)
		if req.question.Qclass == dns.ClassCHAOS {
			req.stats.gen.chaosRefused++
		} else {
			req.addNote("no zone")
			req.stats.gen.noZone++
		}
		return
	}
	req.response = msg
	req.kind = kind

	if t.rrlHandler != nil && t.network == dnsutil.UDPNetwork {
		if !t.debit(req) {
			return
		}
	}

	t.writeMsg(wtr, req)
	if req.response.Rcode == dns.RcodeSuccess || req.response.Rcode == dns.RcodeNameError {
		req.stats.kinds.count(req.kind, len(req.response.Answer))
	}
}

// debit charges the response against the rrl tables. It returns false if the response
// was dropped. A slip replaces the response with an empty truncated reply.
func (t *server) debit(req *request) bool {
	tuple := &rrl.ResponseTuple{
		Class:             req.question.Qclass,
		Type:              req.question.Qtype,
		AllowanceCategory: allowanceCategory(req.kind, req.response.Rcode),
		SalientName:       salientName(req.response, req.qName),
	}
	action, _, _ := t.rrlHandler.Debit(req.src, tuple)
	if action == rrl.Send {
		return true
	}
	if t.cfg.rrlDryRun {
		if action == rrl.Drop {
			req.addNote("rrl dryrun D")
		} else {
			req.addNote("rrl dryrun S")
		}
		return true
	}

	req.rrlAction = action
	switch action {
	case rrl.Drop:
		req.stats.gen.rrlDrop++
		req.response = new(dns.Msg) // Logs as "ne"
		return false

	case rrl.Slip:
		req.stats.gen.rrlSlip++
		req.response = new(dns.Msg)
		req.response.SetReply(req.query)
		req.response.Truncated = true
	}

	return true
}

// allowanceCategory maps the synthesized answer to the rrl budget it draws from.
func allowanceCategory(kind answer.Kind, rcode int) rrl.AllowanceCategory {
	switch {
	case rcode == dns.RcodeNameError:
		return rrl.AllowanceNXDomain
	case rcode != dns.RcodeSuccess:
		return rrl.AllowanceError
	}

	switch kind {
	case answer.KindNoData, answer.KindENT:
		return rrl.AllowanceNoData
	case answer.KindReferral:
		return rrl.AllowanceReferral
	case answer.KindError:
		return rrl.AllowanceError
	}

	return rrl.AllowanceAnswer
}

// salientName is the name used to group responses for rate limiting. Negative answers
// use the SOA owner and referrals the delegation point so that a random sub-domain attack
// is limited as one stream.
func salientName(m *dns.Msg, qName string) string {
	if len(m.Answer) > 0 {
		return qName
	}
	for _, rr := range m.Ns {
		switch rr.Header().Rrtype {
		case dns.TypeSOA, dns.TypeNS:
			return strings.ToLower(rr.Header().Name)
		}
	}

	return qName
}

// serveNotify passes a NOTIFY for a secondary zone to the transfer engine. The optional
// SOA in the Answer section supplies the master's serial (RFC1996 Section 3.7).
func (t *server) serveNotify(wtr dns.ResponseWriter, req *request) {
	req.stats.gen.notify++
	if len(req.query.Question) != 1 || req.question.Qtype != dns.TypeSOA {
		t.serveFormErr(wtr, req)
		req.addNote("Malformed NOTIFY")
		req.stats.gen.badRequest++
		return
	}

	var serial uint32
	var hasSerial bool
	for _, rr := range req.query.Answer {
		if soa, ok := rr.(*dns.SOA); ok && strings.EqualFold(soa.Hdr.Name, req.qName) {
			serial = soa.Serial
			hasSerial = true
		}
	}

	err := t.catalog.Notify(req.qName, req.question.Qclass, req.srcIP(), serial, hasSerial)
	if err != nil {
		req.stats.gen.notifyRefused++
		req.logError = err
		switch {
		case errors.Is(err, catalog.ErrUnknownZone), errors.Is(err, catalog.ErrNotSecondary):
			req.response.SetRcode(req.query, dns.RcodeNotAuth)
		case errors.Is(err, xfr.ErrNotifyRefused):
			req.response.SetRcode(req.query, dns.RcodeRefused)
		default:
			req.response.SetRcode(req.query, dns.RcodeServerFailure)
		}
		t.writeMsg(wtr, req)
		return
	}

	req.addNote("NOTIFY")
	if hasSerial {
		req.addNote(fmt.Sprint(serial))
	}
	req.response.SetReply(req.query)
	req.response.Authoritative = true
	t.writeMsg(wtr, req)
}

func (t *server) serveFormErr(wtr dns.ResponseWriter, req *request) {
	req.response.SetRcodeFormatError(req.query)
	t.writeMsg(wtr, req)
}

func (t *server) serveRefused(wtr dns.ResponseWriter, req *request) {
	req.response.SetRcode(req.query, dns.RcodeRefused)
	t.writeMsg(wtr, req)
}

// writeMsg finalizes the output message with all of the common processing then calls
// the response writer to send the message. Any OPT already in the response is replaced
// with our own which carries NSID and cookies. UDP responses are truncated to what the
// client accepts. Any error is recorded in req.logError.
func (t *server) writeMsg(wtr dns.ResponseWriter, req *request) {
	extra := req.response.Extra[:0]
	for _, rr := range req.response.Extra {
		if rr.Header().Rrtype != dns.TypeOPT {
			extra = append(extra, rr)
		}
	}
	req.response.Extra = extra

	opt := req.genOpt()
	if opt != nil {
		req.response.Extra = append(req.response.Extra, opt)
	}

	req.response.Compress = true
	if t.network == dnsutil.UDPNetwork {
		size := catalog.UDPSize(req.query)
		if req.response.Len() > size {
			req.response.Truncate(size)
			req.stats.gen.truncated++
		}
	}

	req.msgSize = req.response.Len()
	req.compressed = req.response.Compress
	req.truncated = req.response.Truncated

	err := wtr.WriteMsg(req.response)
	if err != nil {
		req.logError = fmt.Errorf("WriteMsg failed: %s", dnsutil.ShortenLookupError(err))
	}
}
