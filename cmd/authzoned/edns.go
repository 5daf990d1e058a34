package main

import (
	"encoding/hex"

	"github.com/miekg/dns"
)

// findNSID returns the NSID sub-opt of the query OPT, if any.
func (t *request) findNSID() *dns.EDNS0_NSID {
	if t.opt == nil {
		return nil
	}
	for _, o := range t.opt.Option {
		if nsid, ok := o.(*dns.EDNS0_NSID); ok {
			return nsid
		}
	}

	return nil
}

// findCookieOpt returns the COOKIE sub-opt of the query OPT, if any.
func (t *request) findCookieOpt() *dns.EDNS0_COOKIE {
	if t.opt == nil {
		return nil
	}
	for _, o := range t.opt.Option {
		if c, ok := o.(*dns.EDNS0_COOKIE); ok {
			return c
		}
	}

	return nil
}

// genOpt builds the response OPT. It returns nil when there is nothing to say, which is
// always the case if the query had no OPT, as maxSize is only set for EDNS queries.
func (t *request) genOpt() *dns.OPT {
	var subOpts []dns.EDNS0
	if len(t.nsidOut) > 0 {
		subOpts = append(subOpts, &dns.EDNS0_NSID{Code: dns.EDNS0NSID, Nsid: t.nsidOut})
	}
	if len(t.cookieOut) > 0 { // miekg carries cookies as hex
		subOpts = append(subOpts, &dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE,
			Cookie: hex.EncodeToString(t.cookieOut)})
	}
	do := t.opt != nil && t.opt.Do() // RFC3225 echo

	if t.maxSize == 0 && len(subOpts) == 0 && !do {
		return nil
	}

	opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}, Option: subOpts}
	if t.maxSize > 0 {
		opt.SetUDPSize(t.maxSize)
	}
	if do {
		opt.SetDo()
	}

	return opt
}
