package answer

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/nsec3"
	"github.com/markdingo/authzone/zone"
)

// referral hands the client to the child zone. The response is not authoritative.
func (b *builder) referral(ce zone.Encloser) error {
	b.kind = KindReferral
	b.msg.Authoritative = false
	if err := b.addRRset(sectionNs, ce.RRset, ce.Name, ""); err != nil {
		return err
	}
	if ds := ce.Node.Get(dns.TypeDS); ds != nil {
		if err := b.addRRset(sectionNs, ds, ce.Name, ""); err != nil {
			return err
		}
	} else if b.do {
		if ce.Node.Has(dns.TypeNSEC) {
			if err := b.addNSEC(ce.Node); err != nil {
				return err
			}
		} else if err := b.addNSEC3Proof(ce.Name, ce.Name, nsec3.Want{NoData: true, CE: true}); err != nil {
			return err
		}
	}

	for _, rr := range ce.RRset.RRs() {
		if err := b.addGlue(rr.(*dns.NS).Ns); err != nil {
			return err
		}
	}

	return nil
}

// dname adds the DNAME and a CNAME synthesized from it, then chases the new name. If the
// synthesized name is too long the response is YXDOMAIN.
func (b *builder) dname(ce zone.Encloser) error {
	b.kind = KindDNAME
	if err := b.addRRset(sectionAnswer, ce.RRset, ce.Name, ""); err != nil {
		return err
	}
	dname := ce.RRset.RRs()[0].(*dns.DNAME)
	prefix := strings.TrimSuffix(b.qname, ce.Name)
	target := prefix + dns.Fqdn(dname.Target)
	if dname.Target == "." {
		target = prefix
	}
	if _, ok := dns.IsDomainName(target); !ok || dnsLen(target) > dnsutil.MaxNameLength {
		b.msg.Rcode = dns.RcodeYXDomain
		return nil
	}

	cname := &dns.CNAME{
		Hdr: dns.RR_Header{Name: b.q.Name, Rrtype: dns.TypeCNAME, Class: b.tree.Class,
			Ttl: ce.RRset.TTL()},
		Target: target,
	}
	if err := b.addRR(sectionAnswer, cname); err != nil {
		return err
	}
	if b.q.Qtype == dns.TypeCNAME {
		return nil
	}

	return b.chase(target, dnsutil.MaxCNAMEChain)
}

// dnsLen returns the wire length of a presentation format name.
func dnsLen(name string) int {
	buf := make([]byte, 512)
	off, err := dns.PackDomainName(dns.Fqdn(name), buf, 0, nil, false)
	if err != nil {
		return dnsutil.MaxNameLength + 1
	}

	return off
}

// wildcard answers from the *.ce node as if it were qname. The proof shows that qname
// itself doesn't exist, otherwise the wildcard could not have applied.
func (b *builder) wildcard(ce string, wc *zone.Node) error {
	if err := b.fromNode(wc, b.q.Name, ce); err != nil {
		return err
	}
	if b.kind == KindNoData {
		return nil // nodata() already proved non-existence
	}
	b.kind = KindWildcard
	if !b.do {
		return nil
	}
	if cover := b.nsecCover(b.qname); cover != nil {
		return b.addNSEC(cover)
	}

	return b.addNSEC3Proof(ce, b.qname, nsec3.Want{NextCloser: true})
}
