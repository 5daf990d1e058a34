package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/answer"
	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/log"
)

// request accumulates everything known about a query and its response as it progresses
// through ServeDNS. Most of it ends up in the query log. A request is only ever accessed
// by a single go-routine and only lives for the life of a DNS query.
type request struct {
	query    *dns.Msg
	response *dns.Msg
	question dns.Question
	qName    string
	opt      *dns.OPT // From query, if present
	kind     answer.Kind

	nsidOut string // Hex NSID to return

	cookiesPresent   bool
	cookieWellFormed bool
	cookieValid      bool
	clientCookie     []byte
	serverCookie     []byte
	cookieOut        []byte // Full cookie, client + server

	rrlAction rrl.Action

	src        net.Addr // From here on down is log data
	network    string
	logQName   string // Can be shortened to keep log entries readable
	logNote    []string
	logError   error
	msgSize    int
	maxSize    uint16 // EDNS0 UDP size advertised in our OPT, if any
	compressed bool
	truncated  bool

	// Stats are accumulated in the request and added to the server's stats once at the
	// end so that most of a query runs lock free.
	stats serverStats
}

func newRequest(query *dns.Msg, src net.Addr, network string) *request {
	return &request{
		query:    query,
		response: new(dns.Msg),
		src:      src,
		network:  network,
	}
}

func (t *request) addNote(note string) {
	t.logNote = append(t.logNote, note)
}

// log prints the single-line query summary. "ne" means no response was emitted, which
// is the case for rrl drops. A trailing /D or /S notes an rrl Drop or Slip.
func (t *request) log() {
	notes := t.logNote
	if t.logError != nil {
		notes = append(notes, t.logError.Error())
	}
	var tail string
	if len(notes) > 0 {
		tail = " " + strings.Join(notes, ":")
	}
	var src string
	if t.src != nil {
		src = t.src.String()
	}

	fmt.Fprintf(log.Out(), "ru=%s q=%s/%s s=%s id=%d h=%s sz=%d/%d C=%d/%d/%d%s\n",
		t.resultCode(), dnsutil.TypeToString(t.question.Qtype), t.logQName, src,
		t.response.Id, t.headerFlags(), t.msgSize, t.maxSize,
		len(t.response.Answer), len(t.response.Ns), len(t.response.Extra), tail)
}

func (t *request) resultCode() string {
	s := "ne"
	if t.response.Response {
		s = "ok"
		if t.response.Rcode != dns.RcodeSuccess {
			s = dnsutil.RcodeToString(t.response.Rcode)
		}
	}
	switch t.rrlAction {
	case rrl.Drop:
		return s + "/D"
	case rrl.Slip:
		return s + "/S"
	}

	return s
}

// headerFlags is the h= field: transport (T or U) followed by a letter for each feature
// present in the exchange.
func (t *request) headerFlags() string {
	flags := []byte{'U'}
	if t.network == dnsutil.TCPNetwork {
		flags[0] = 'T'
	}
	for _, f := range []struct {
		on     bool
		letter byte
	}{
		{len(t.clientCookie) > 0, 'C'},
		{len(t.serverCookie) > 0, 'S'},
		{t.compressed, 'z'},
		{len(t.nsidOut) > 0, 'n'},
		{t.truncated, 't'},
	} {
		if f.on {
			flags = append(flags, f.letter)
		}
	}

	return string(flags)
}

// srcIP extracts the IP address of the query source, if possible.
func (t *request) srcIP() net.IP {
	switch a := t.src.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	case nil:
		return nil
	}
	host, _, err := net.SplitHostPort(t.src.String())
	if err != nil {
		host = t.src.String()
	}

	return net.ParseIP(host)
}
