package nsec3

import (
	"github.com/miekg/dns"

	"github.com/markdingo/authzone/zone"
)

// Want selects the components of a proof.
type Want struct {
	NoData     bool // Exact match for qname which shows the type is absent
	CE         bool // Closest encloser match
	NextCloser bool // Cover of the next closer name
	Wildcard   bool // Cover of the wildcard at the closest encloser
}

// Proof accumulates the NSEC3 nodes needed to deny a name or type. Each node appears at
// most once regardless of how many roles it plays.
type Proof struct {
	tree   *zone.Tree
	params *Params
	seen   map[*zone.Node]bool
	nodes  []*zone.Node
}

func NewProof(tree *zone.Tree, params *Params) *Proof {
	return &Proof{tree: tree, params: params, seen: make(map[*zone.Node]bool)}
}

// Nodes returns the accumulated nodes in insertion order.
func (t *Proof) Nodes() []*zone.Node {
	return t.nodes
}

func (t *Proof) insert(n *zone.Node) {
	if n == nil || t.seen[n] {
		return
	}
	t.seen[n] = true
	t.nodes = append(t.nodes, n)
}

// Add appends the wanted components for qname with candidate closest encloser ce. A
// successful NoData match is a complete proof by itself. If the closest encloser has to
// climb then a next-closer proof is added regardless of want.NextCloser, and the climbed
// name becomes the closest encloser for the remaining components.
func (t *Proof) Add(ce, qname string, want Want) {
	ce = dns.CanonicalName(ce)
	qname = dns.CanonicalName(qname)
	if want.NoData {
		if n := FindExact(t.tree, t.params, qname); n != nil {
			t.insert(n)
			return
		}
	}
	if want.CE {
		var n *zone.Node
		var climbed bool
		ce, n, climbed = FindClosestEncloser(t.tree, t.params, ce)
		if climbed {
			want.NextCloser = true
		}
		t.insert(n)
	}
	if want.NextCloser && ce != qname {
		t.insert(FindCover(t.tree, t.params, NextCloser(ce, qname)))
	}
	if want.Wildcard {
		wc := "*." + ce
		if ce == "." {
			wc = "*."
		}
		t.insert(FindCover(t.tree, t.params, wc))
	}
}
