package zone

import (
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
)

type Result int

const (
	NotExist    Result = iota // No node at qname. Encloser is the closest existing ancestor
	Exists                    // Answer from the exact node
	Interrupted               // A zone cut or DNAME above qname is authoritative instead
)

func (t Result) String() string {
	switch t {
	case Exists:
		return "Exists"
	case Interrupted:
		return "Interrupted"
	}

	return "NotExist"
}

// Encloser is the outcome of a closest encloser search.
type Encloser struct {
	Result Result

	// Name is the exact name for Exists, the interrupting node's name for Interrupted
	// and the closest encloser for NotExist. A NotExist closest encloser may be an empty
	// non-terminal, in which case Node is nil.
	Name string
	Node *Node

	// RRset is the NS or DNAME RRset which caused an interrupt.
	RRset *RRset
}

// FindClosestEncloser locates where the answer for qname comes from. An exact node which
// is NSEC3 chain glue is treated as absent. Then every ancestor up to, but not including,
// the apex is checked for an NS RRset (a zone cut) and every ancestor, including the
// apex, for a DNAME RRset. The DNAME check excludes the exact node as a DNAME only
// redirects names below it, and a DS query at a cut is answered from this side of the
// cut. When more than one ancestor would interrupt, the one closest to the apex is
// reported as that is the first to take effect on the way down from the apex.
//
// qname must be in the zone.
func (t *Tree) FindClosestEncloser(qname string, qtype uint16) Encloser {
	qname = strings.ToLower(dns.Fqdn(qname))
	exact := true
	name := qname
	n := t.Find(name)
	if n != nil && n.IsNSEC3Only() {
		n = nil
	}

	// Climb to the closest existing (including empty non-terminal) ancestor.
	for n == nil && name != t.Origin {
		exact = false
		name = dnsutil.Parent(name)
		if !dns.IsSubDomain(t.Origin, name) { // qname was not in the zone
			return Encloser{Result: NotExist}
		}
		n = t.Find(name)
		if n != nil && n.IsNSEC3Only() {
			n = nil
		}
		if n == nil && t.HasBelow(name) {
			break // Empty non-terminal
		}
	}
	exact = exact && n != nil

	// Walk up to the apex looking for interrupts. Overwrite as we go so the highest one
	// sticks.
	var ce Encloser
	for walk := name; walk != ""; walk = dnsutil.Parent(walk) {
		wn := t.Find(walk)
		if wn != nil {
			atExact := exact && walk == qname
			if walk != t.Origin {
				if ns := wn.Get(dns.TypeNS); ns != nil && !(atExact && qtype == dns.TypeDS) {
					ce = Encloser{Result: Interrupted, Name: walk, Node: wn, RRset: ns}
				}
			}
			if ce.Name != walk && !atExact {
				if dname := wn.Get(dns.TypeDNAME); dname != nil {
					ce = Encloser{Result: Interrupted, Name: walk, Node: wn, RRset: dname}
				}
			}
		}
		if walk == t.Origin {
			break
		}
	}
	if ce.Result == Interrupted {
		return ce
	}

	if exact {
		return Encloser{Result: Exists, Name: name, Node: n}
	}

	return Encloser{Result: NotExist, Name: name, Node: n}
}
