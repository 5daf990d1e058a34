package answer

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/zone"
)

func (b *builder) positive(set *zone.RRset, owner string) error {
	if err := b.addRRset(sectionAnswer, set, b.nodeOf(set, owner), owner); err != nil {
		return err
	}

	return b.additional(set)
}

// nodeOf is only used to key the dedupe map so the owner name, if rewritten, or the
// first RR's owner is good enough.
func (b *builder) nodeOf(set *zone.RRset, owner string) string {
	if len(owner) > 0 {
		return owner
	}
	if rrs := set.RRs(); len(rrs) > 0 {
		return rrs[0].Header().Name
	}

	return ""
}

// additional adds in-zone A and AAAA RRsets for the names referenced by MX, SRV and NS
// rdata.
func (b *builder) additional(set *zone.RRset) error {
	for _, rr := range set.RRs() {
		var target string
		switch rrt := rr.(type) {
		case *dns.MX:
			target = rrt.Mx
		case *dns.SRV:
			target = rrt.Target
		case *dns.NS:
			target = rrt.Ns
		default:
			return nil // Whole RRset is the same type
		}
		if err := b.addGlue(target); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) addGlue(target string) error {
	target = strings.ToLower(target)
	if !b.inZone(target) {
		return nil
	}
	n := b.tree.Find(target)
	if n == nil {
		return nil
	}
	for _, t := range []uint16{dns.TypeA, dns.TypeAAAA} {
		if err := b.addRRset(sectionExtra, n.Get(t), n.Name, ""); err != nil {
			return err
		}
	}

	return nil
}

// any adds each of SOA, MX, A and AAAA present at the node. If none are present the first
// RRset is used so the client at least learns that the name has data.
func (b *builder) any(n *zone.Node, owner string) error {
	added := 0
	for _, t := range []uint16{dns.TypeSOA, dns.TypeMX, dns.TypeA, dns.TypeAAAA} {
		if set := n.Get(t); set != nil {
			if err := b.addRRset(sectionAnswer, set, n.Name, owner); err != nil {
				return err
			}
			added++
		}
	}
	if added > 0 {
		return nil
	}
	for _, set := range n.RRsets() {
		if len(set.RRs()) > 0 {
			return b.addRRset(sectionAnswer, set, n.Name, owner)
		}
	}

	return nil
}

// cnameChain adds the CNAME then follows in-zone targets until qtype is found, the chain
// leaves the zone, a target has neither qtype nor CNAME or MaxCNAMEChain hops are done.
// Targets which are only reachable through a cut, a DNAME or a wildcard are not chased
// here; that is the client's job.
func (b *builder) cnameChain(cname *zone.RRset, owner string) error {
	if err := b.addRRset(sectionAnswer, cname, b.nodeOf(cname, owner), owner); err != nil {
		return err
	}
	if b.q.Qtype == dns.TypeCNAME {
		return nil
	}

	return b.chase(cname.RRs()[0].(*dns.CNAME).Target, dnsutil.MaxCNAMEChain)
}

// chase follows target for at most hops CNAME hops.
func (b *builder) chase(target string, hops int) error {
	seen := map[string]bool{b.qname: true}
	for ; hops > 0; hops-- {
		target = strings.ToLower(target)
		if seen[target] || !b.inZone(target) {
			return nil
		}
		seen[target] = true
		ce := b.tree.FindClosestEncloser(target, b.q.Qtype)
		if ce.Result != zone.Exists {
			return nil
		}
		if set := ce.Node.Get(b.q.Qtype); set != nil {
			return b.positive(set, "")
		}
		next := ce.Node.Get(dns.TypeCNAME)
		if next == nil {
			return nil
		}
		if err := b.addRRset(sectionAnswer, next, ce.Node.Name, ""); err != nil {
			return err
		}
		target = next.RRs()[0].(*dns.CNAME).Target
	}

	return nil
}
