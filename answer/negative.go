package answer

import (
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/nsec3"
	"github.com/markdingo/authzone/zone"
)

// addNegativeSOA adds the apex SOA with its TTL lowered to the SOA minimum as required
// for negative caching.
func (b *builder) addNegativeSOA() error {
	apex := b.tree.Apex()
	if apex == nil {
		return nil
	}
	set := apex.Get(dns.TypeSOA)
	if set == nil || len(set.RRs()) == 0 {
		return nil
	}
	ttl := set.TTL()
	if minttl := set.RRs()[0].(*dns.SOA).Minttl; minttl < ttl {
		ttl = minttl
	}
	rrs := set.Copy("")
	if b.do {
		rrs = append(rrs, set.CopySigs("")...)
	}
	if err := b.scratch.take(len(rrs)); err != nil {
		return err
	}
	for _, rr := range rrs {
		rr.Header().Ttl = ttl
	}
	b.appendRRs(sectionNs, rrs...)

	return nil
}

// nsecCover returns the node whose NSEC owner precedes or equals name, or nil. A zone
// without an apex NSEC has no chain to search.
func (b *builder) nsecCover(name string) *zone.Node {
	if apex := b.tree.Apex(); apex == nil || !apex.Has(dns.TypeNSEC) {
		return nil
	}
	ix, chain := b.tree.ChainLE(dns.TypeNSEC, name)
	if ix < 0 {
		return nil
	}

	return chain[ix]
}

func (b *builder) addNSEC(n *zone.Node) error {
	if n == nil {
		return nil
	}

	return b.addRRset(sectionNs, n.Get(dns.TypeNSEC), n.Name, "")
}

// addNSEC3Proof appends the NSEC3 proof components. Nodes already placed by an earlier
// call are not repeated.
func (b *builder) addNSEC3Proof(ce, qname string, want nsec3.Want) error {
	if _, ok := b.nsec3Params(); !ok {
		return nil
	}
	before := len(b.proof.Nodes())
	b.proof.Add(ce, qname, want)
	for _, n := range b.proof.Nodes()[before:] {
		if err := b.addRRset(sectionNs, n.Get(dns.TypeNSEC3), n.Name, ""); err != nil {
			return err
		}
	}

	return nil
}

// nodata is a NOERROR response with no answer. For a wildcard node the proof also shows
// qname itself doesn't exist.
func (b *builder) nodata(n *zone.Node, owner, wcParent string) error {
	if err := b.addNegativeSOA(); err != nil {
		return err
	}
	if !b.do {
		return nil
	}
	if n.Has(dns.TypeNSEC) {
		if err := b.addNSEC(n); err != nil {
			return err
		}
		if len(owner) > 0 {
			return b.addNSEC(b.nsecCover(b.qname))
		}
		return nil
	}

	if len(owner) > 0 {
		if err := b.addNSEC3Proof(n.Name, n.Name, nsec3.Want{NoData: true}); err != nil {
			return err
		}
		return b.addNSEC3Proof(wcParent, b.qname, nsec3.Want{CE: true, NextCloser: true})
	}

	return b.addNSEC3Proof(n.Name, n.Name, nsec3.Want{NoData: true, CE: true})
}

// ent is NODATA for a name which has no RRs but has descendants.
func (b *builder) ent() error {
	b.kind = KindENT
	if err := b.addNegativeSOA(); err != nil {
		return err
	}
	if !b.do {
		return nil
	}
	if cover := b.nsecCover(b.qname); cover != nil {
		return b.addNSEC(cover)
	}

	return b.addNSEC3Proof(b.qname, b.qname, nsec3.Want{NoData: true, CE: true})
}

// nxdomain proves qname doesn't exist and that no wildcard at the closest encloser
// could have synthesized it.
func (b *builder) nxdomain(ce string) error {
	b.kind = KindNXDomain
	b.msg.Rcode = dns.RcodeNameError
	if err := b.addNegativeSOA(); err != nil {
		return err
	}
	if !b.do {
		return nil
	}
	if cover := b.nsecCover(b.qname); cover != nil {
		if err := b.addNSEC(cover); err != nil {
			return err
		}
		wc := "*." + ce
		if ce == "." {
			wc = "*."
		}
		return b.addNSEC(b.nsecCover(wc))
	}

	return b.addNSEC3Proof(ce, b.qname, nsec3.Want{CE: true, NextCloser: true, Wildcard: true})
}
