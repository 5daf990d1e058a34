package main

import (
	"github.com/miekg/dns"
)

// customMsgAcceptFunc is dns.DefaultMsgAcceptFunc without the QDCOUNT == 1 test, as a
// server cookie query (RFC 7873 Section 5.4) carries no question, and with NOTIFY
// accepted alongside QUERY. A NOTIFY may carry one SOA in the answer section (RFC 1996
// Section 3.7). Keep in step with miekg/dns when it is upgraded.
func (t *server) customMsgAcceptFunc(dh dns.Header) dns.MsgAcceptAction {
	action := checkHeader(dh)
	if action != dns.MsgAccept {
		t.addAcceptError()
	}

	return action
}

const headerQR = 1 << 15

func checkHeader(dh dns.Header) dns.MsgAcceptAction {
	if dh.Bits&headerQR != 0 {
		return dns.MsgIgnore
	}
	switch int(dh.Bits>>11) & 0xF {
	case dns.OpcodeQuery, dns.OpcodeNotify:
	default:
		return dns.MsgRejectNotImplemented
	}
	if dh.Ancount > 1 || dh.Nscount > 1 || dh.Arcount > 2 {
		return dns.MsgReject
	}

	return dns.MsgAccept
}
