package zone

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
)

var (
	ErrOutOfZone  = errors.New("RR is not in zone")
	ErrWrongClass = errors.New("RR class does not match zone")
)

// MaxZoneRRs limits the number of RRs a single Tree accepts. Zero means no limit.
var MaxZoneRRs = 0

// compareNames is the canonical ordering used by all tree searches.
var compareNames = dnsutil.CanonicalCompare

// Tree is the canonically ordered set of Nodes in a zone. Nodes are located by exact
// name via a map and by canonical order via a sorted slice. The slice is re-sorted
// lazily after additions. The NSEC and NSEC3 chains are kept as separate ordered slices
// of the nodes holding those types so a cover lookup never walks unrelated nodes.
type Tree struct {
	Origin string // Canonical
	Class  uint16

	nodes     map[string]*Node
	count     int    // Total RRs including signatures
	minTTL    uint32 // Smallest RRset TTL in the tree
	maxRRs    int
	sortMu    sync.Mutex
	dirty     bool // ordered needs sorting
	stale     bool // chains need rebuilding
	minStale  bool // minTTL needs recomputing
	ordered   []*Node
	nsecNodes []*Node
	nsec3s    []*Node
}

// NewTree creates an empty tree for the zone. The origin is canonicalized.
func NewTree(origin string, class uint16) *Tree {
	return &Tree{
		Origin: dns.CanonicalName(origin),
		Class:  class,
		nodes:  make(map[string]*Node),
		maxRRs: MaxZoneRRs,
	}
}

// Len returns the number of RRs, including signatures, in the tree.
func (t *Tree) Len() int {
	return t.count
}

// MinTTL returns the smallest RRset TTL in the tree, or zero if the tree is empty.
func (t *Tree) MinTTL() uint32 {
	t.sorted()

	return t.minTTL
}

// Add inserts a copy of the RR into the tree. A duplicate is ignored and returns false.
func (t *Tree) Add(rr dns.RR) (bool, error) {
	hdr := rr.Header()
	if hdr.Class != t.Class {
		return false, fmt.Errorf("%w: %s", ErrWrongClass, dnsutil.PrettyRR(rr, true))
	}
	name := dns.CanonicalName(hdr.Name)
	if !dns.IsSubDomain(t.Origin, name) {
		return false, fmt.Errorf("%w: %s", ErrOutOfZone, name)
	}
	if t.maxRRs > 0 && t.count >= t.maxRRs {
		return false, ErrZoneFull
	}

	rr = dns.Copy(rr)
	rr.Header().Name = name
	n := t.nodes[name]
	created := false
	if n == nil {
		n = &Node{Name: name}
		created = true
	}
	added, err := n.addRR(rr)
	if err != nil {
		return false, err
	}
	t.sortMu.Lock()
	if created && len(n.sets) > 0 {
		t.nodes[name] = n
		t.ordered = append(t.ordered, n)
		t.dirty = true
	}
	if added {
		t.count++
		t.stale = true
		if !t.minStale && (t.minTTL == 0 || rr.Header().Ttl < t.minTTL) {
			t.minTTL = rr.Header().Ttl
		}
	}
	t.sortMu.Unlock()

	return added, nil
}

// Remove deletes the matching RR from the tree. A Node left with no RRsets is removed
// along with it. This is only used when building a new tree from an incremental
// transfer, never on a published tree.
func (t *Tree) Remove(rr dns.RR) bool {
	name := dns.CanonicalName(rr.Header().Name)
	n := t.nodes[name]
	if n == nil || !n.removeRR(rr) {
		return false
	}
	var ix int
	if len(n.sets) == 0 {
		delete(t.nodes, name)
		ix, _ = t.search(name)
	}

	t.sortMu.Lock()
	defer t.sortMu.Unlock()
	t.count--
	t.stale = true
	if rr.Header().Ttl <= t.minTTL {
		t.minStale = true // Only removing a minimum-TTL RR can raise the minimum
	}
	if len(n.sets) == 0 && ix < len(t.ordered) && t.ordered[ix] == n {
		t.ordered = append(t.ordered[:ix], t.ordered[ix+1:]...)
	}

	return true
}

// Find returns the Node with the exact name or nil.
func (t *Tree) Find(name string) *Node {
	return t.nodes[strings.ToLower(name)]
}

// Apex returns the Node at the zone origin or nil.
func (t *Tree) Apex() *Node {
	return t.nodes[t.Origin]
}

// SOA returns the apex SOA or nil if the zone has none.
func (t *Tree) SOA() *dns.SOA {
	apex := t.Apex()
	if apex == nil {
		return nil
	}
	s := apex.Get(dns.TypeSOA)
	if s == nil || len(s.rrs) == 0 {
		return nil
	}

	return s.rrs[0].(*dns.SOA)
}

// Serial returns the serial of the apex SOA and whether it exists.
func (t *Tree) Serial() (uint32, bool) {
	if soa := t.SOA(); soa != nil {
		return soa.Serial, true
	}

	return 0, false
}

// Nodes returns all nodes in canonical order. The caller must not modify the returned
// slice.
func (t *Tree) Nodes() []*Node {
	return t.sorted()
}

// sorted brings the ordered slice, the chains and minTTL up to date and returns the
// ordered slice. Zone.Replace calls it before publishing so readers never rebuild.
func (t *Tree) sorted() []*Node {
	t.sortMu.Lock()
	defer t.sortMu.Unlock()
	if t.dirty {
		sort.Slice(t.ordered, func(i, j int) bool {
			return compareNames(t.ordered[i].Name, t.ordered[j].Name) < 0
		})
		t.dirty = false
		t.stale = true
	}
	if t.stale {
		t.nsecNodes, t.nsec3s = nil, nil
		for _, n := range t.ordered {
			if n.Has(dns.TypeNSEC) {
				t.nsecNodes = append(t.nsecNodes, n)
			}
			if n.Has(dns.TypeNSEC3) {
				t.nsec3s = append(t.nsec3s, n)
			}
		}
		t.stale = false
	}
	if t.minStale {
		t.minTTL = 0
		for _, n := range t.ordered {
			for _, s := range n.sets {
				if t.minTTL == 0 || s.ttl < t.minTTL {
					t.minTTL = s.ttl
				}
			}
		}
		t.minStale = false
	}

	return t.ordered
}

// searchNodes returns the index of the first node in the ordered slice not less than
// name.
func searchNodes(nodes []*Node, name string) int {
	return sort.Search(len(nodes), func(i int) bool {
		return compareNames(nodes[i].Name, name) >= 0
	})
}

// search returns the index of the first node not less than name in canonical order.
func (t *Tree) search(name string) (int, []*Node) {
	ordered := t.sorted()

	return searchNodes(ordered, name), ordered
}

// Chain returns the nodes holding an RRset of rrtype, which must be NSEC or NSEC3, in
// canonical order. The caller must not modify the returned slice.
func (t *Tree) Chain(rrtype uint16) []*Node {
	t.sorted()
	switch rrtype {
	case dns.TypeNSEC:
		return t.nsecNodes
	case dns.TypeNSEC3:
		return t.nsec3s
	}

	return nil
}

// ChainLE returns the position in Chain(rrtype) of the last node equal to or canonically
// preceding name. It is -1 if name sorts before every member or the chain is empty.
func (t *Tree) ChainLE(rrtype uint16, name string) (int, []*Node) {
	chain := t.Chain(rrtype)
	if len(chain) == 0 {
		return -1, chain
	}
	name = strings.ToLower(name)
	ix := searchNodes(chain, name)
	if ix < len(chain) && chain[ix].Name == name {
		return ix, chain
	}

	return ix - 1, chain
}

// HasBelow returns true if any node is a strict descendant of name. When name itself has
// no node this identifies an empty non-terminal.
func (t *Tree) HasBelow(name string) bool {
	name = strings.ToLower(name)
	ix, ordered := t.search(name)
	for ; ix < len(ordered); ix++ {
		if ordered[ix].Name == name {
			continue
		}
		return dns.IsSubDomain(name, ordered[ix].Name)
	}

	return false
}

// RRs returns every RR in the tree with the apex SOA first. Each RRset's signatures
// follow its plain RRs. The returned RRs are shared and must not be modified.
func (t *Tree) RRs() []dns.RR {
	out := make([]dns.RR, 0, t.count)
	if soa := t.SOA(); soa != nil {
		out = append(out, soa)
	}
	for _, n := range t.sorted() {
		for _, s := range n.sets {
			for _, rr := range s.rrs {
				if rr.Header().Rrtype != dns.TypeSOA || n.Name != t.Origin {
					out = append(out, rr)
				}
			}
			for _, sig := range s.sigs {
				out = append(out, sig)
			}
		}
	}

	return out
}

// Clone returns a deep enough copy of the tree that additions and removals on the copy do
// not affect the original. RRs themselves are shared as they are never mutated in place.
func (t *Tree) Clone() *Tree {
	c := NewTree(t.Origin, t.Class)
	c.maxRRs = t.maxRRs
	for _, n := range t.sorted() {
		nn := &Node{Name: n.Name, sets: make([]*RRset, 0, len(n.sets))}
		for _, s := range n.sets {
			ns := &RRset{Type: s.Type, ttl: s.ttl}
			ns.rrs = append(ns.rrs, s.rrs...)
			ns.sigs = append(ns.sigs, s.sigs...)
			nn.sets = append(nn.sets, ns)
		}
		c.nodes[nn.Name] = nn
		c.ordered = append(c.ordered, nn)
	}
	c.count = t.count
	c.minTTL = t.minTTL
	c.minStale = t.minStale
	c.stale = true

	return c
}

// Validate checks the tree is usable as a zone: an apex SOA must exist.
func (t *Tree) Validate() error {
	if t.SOA() == nil {
		return fmt.Errorf("zone %s has no SOA at the apex", t.Origin)
	}

	return nil
}
