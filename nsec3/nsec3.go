/*
Package nsec3 locates the hashed denial-of-existence records in a zone. Hashed owner names
are ordinary nodes in the zone tree directly below the apex so all searches are plain
tree lookups on the hashed name.
*/
package nsec3

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/zone"
)

// Params are the hash parameters the zone is signed with.
type Params struct {
	Origin     string
	Hash       uint8
	Iterations uint16
	Salt       string // Hex, empty for no salt
}

// FindParams returns the parameters from the first apex NSEC3PARAM which uses SHA1, has
// no flag bits set and carries the complete salt. Members which don't qualify are skipped
// so a zone in the middle of a parameter rollover still works. ok is false if the zone
// is not signed with NSEC3.
func FindParams(tree *zone.Tree) (p *Params, ok bool) {
	apex := tree.Apex()
	if apex == nil {
		return nil, false
	}
	s := apex.Get(dns.TypeNSEC3PARAM)
	if s == nil {
		return nil, false
	}
	for _, rr := range s.RRs() {
		param := rr.(*dns.NSEC3PARAM)
		if param.Hash != dns.SHA1 || param.Flags != 0 {
			continue
		}
		if len(param.Salt) != 2*int(param.SaltLength) {
			continue
		}
		return &Params{Origin: tree.Origin, Hash: param.Hash,
			Iterations: param.Iterations, Salt: strings.ToLower(param.Salt)}, true
	}

	return nil, false
}

// HashName returns the owner name of the NSEC3 record for name.
func (t *Params) HashName(name string) string {
	h := dns.HashName(dns.CanonicalName(name), t.Hash, t.Iterations, t.Salt)

	return strings.ToLower(h) + "." + t.Origin
}

// matches returns true if rr was generated with these parameters.
func (t *Params) matches(rr *dns.NSEC3) bool {
	return rr.Hash == t.Hash && rr.Iterations == t.Iterations &&
		strings.EqualFold(rr.Salt, t.Salt)
}

// hasNSEC3 returns true if the node holds an NSEC3 made with these parameters.
func (t *Params) hasNSEC3(n *zone.Node) bool {
	if n == nil {
		return false
	}
	s := n.Get(dns.TypeNSEC3)
	if s == nil {
		return false
	}
	for _, rr := range s.RRs() {
		if t.matches(rr.(*dns.NSEC3)) {
			return true
		}
	}

	return false
}

// FindExact returns the node holding the NSEC3 which matches name, or nil.
func FindExact(tree *zone.Tree, p *Params, name string) *zone.Node {
	n := tree.Find(p.HashName(name))
	if p.hasNSEC3(n) {
		return n
	}

	return nil
}

// FindClosestEncloser starts at name and climbs towards the apex until a name with a
// matching NSEC3 is found. climbed reports whether name itself had no NSEC3, in which case
// a next-closer proof is required. If nothing up to and including the apex matches, node
// is nil.
func FindClosestEncloser(tree *zone.Tree, p *Params, name string) (ce string, node *zone.Node, climbed bool) {
	ce = dns.CanonicalName(name)
	for {
		if node = FindExact(tree, p, ce); node != nil {
			return
		}
		if ce == tree.Origin || !dns.IsSubDomain(tree.Origin, ce) {
			return ce, nil, climbed
		}
		ce = dnsutil.Parent(ce)
		climbed = true
	}
}

// FindCover returns the node whose NSEC3 matches or covers the hash of name. The hash
// space is circular so a hash sorting before the first NSEC3 is covered by the last.
// Only NSEC3 made with other parameters are stepped over.
func FindCover(tree *zone.Tree, p *Params, name string) *zone.Node {
	ix, chain := tree.ChainLE(dns.TypeNSEC3, p.HashName(name))
	for i := ix; i >= 0; i-- {
		if p.hasNSEC3(chain[i]) {
			return chain[i]
		}
	}
	for i := len(chain) - 1; i > ix; i-- {
		if p.hasNSEC3(chain[i]) {
			return chain[i]
		}
	}

	return nil
}

// NextCloser returns the name one label longer than ce on the way down to qname.
func NextCloser(ce, qname string) string {
	strip := dns.CountLabel(qname) - dns.CountLabel(ce) - 1
	if strip < 0 {
		return qname
	}

	return dnsutil.TrimLabels(qname, strip)
}
