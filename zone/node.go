package zone

import (
	"sort"

	"github.com/miekg/dns"
)

// Node is an owner name with its RRsets sorted by type. Nodes only exist for names which
// own at least one RR. Empty non-terminals have no Node.
type Node struct {
	Name string // Canonical
	sets []*RRset
}

// RRsets returns all RRsets in type order including any generic RRSIG RRset.
func (t *Node) RRsets() []*RRset {
	return t.sets
}

// Get returns the RRset of the given type or nil.
func (t *Node) Get(rrtype uint16) *RRset {
	ix := t.search(rrtype)
	if ix < len(t.sets) && t.sets[ix].Type == rrtype {
		return t.sets[ix]
	}

	return nil
}

// Has is a convenience for Get(rrtype) != nil.
func (t *Node) Has(rrtype uint16) bool {
	return t.Get(rrtype) != nil
}

// IsNSEC3Only returns true if the node holds nothing but NSEC3 and signatures. Such a node
// is chain glue for hashed denial and is never a direct answer.
func (t *Node) IsNSEC3Only() bool {
	nsec3 := false
	for _, s := range t.sets {
		switch s.Type {
		case dns.TypeNSEC3:
			nsec3 = true
		case dns.TypeRRSIG:
		default:
			return false
		}
	}

	return nsec3
}

func (t *Node) search(rrtype uint16) int {
	return sort.Search(len(t.sets), func(i int) bool { return t.sets[i].Type >= rrtype })
}

func (t *Node) insertSet(rrtype uint16) *RRset {
	ix := t.search(rrtype)
	s := &RRset{Type: rrtype}
	t.sets = append(t.sets, nil)
	copy(t.sets[ix+1:], t.sets[ix:])
	t.sets[ix] = s

	return s
}

func (t *Node) removeSet(rrtype uint16) {
	ix := t.search(rrtype)
	if ix < len(t.sets) && t.sets[ix].Type == rrtype {
		t.sets = append(t.sets[:ix], t.sets[ix+1:]...)
	}
}

// addRR stores the RR in the appropriate RRset and demultiplexes signatures. A plain
// RR's arrival pulls any matching signatures out of the generic RRSIG RRset. Returns false
// if the RR was a duplicate.
func (t *Node) addRR(rr dns.RR) (bool, error) {
	if sig, ok := rr.(*dns.RRSIG); ok {
		if s := t.Get(sig.TypeCovered); s != nil && sig.TypeCovered != dns.TypeRRSIG {
			return s.addSig(sig)
		}
		s := t.Get(dns.TypeRRSIG)
		if s == nil {
			s = t.insertSet(dns.TypeRRSIG)
		}
		added, err := s.addSig(sig)
		if s.Len() == 0 {
			t.removeSet(dns.TypeRRSIG)
		}
		return added, err
	}

	rrtype := rr.Header().Rrtype
	s := t.Get(rrtype)
	if s == nil {
		s = t.insertSet(rrtype)
	}
	added, err := s.addRR(rr)
	if err != nil {
		if s.Len() == 0 {
			t.removeSet(rrtype)
		}
		return false, err
	}

	if generic := t.Get(dns.TypeRRSIG); generic != nil {
		_, err = s.moveSigsFrom(generic)
		if generic.Len() == 0 {
			t.removeSet(dns.TypeRRSIG)
		}
	}

	return added, err
}

// removeRR deletes the matching plain RR or signature. Empty RRsets are dropped.
func (t *Node) removeRR(rr dns.RR) bool {
	if sig, ok := rr.(*dns.RRSIG); ok {
		for _, s := range []*RRset{t.Get(sig.TypeCovered), t.Get(dns.TypeRRSIG)} {
			if s == nil {
				continue
			}
			for ix, e := range s.sigs {
				if dns.IsDuplicate(e, sig) {
					s.sigs = append(s.sigs[:ix], s.sigs[ix+1:]...)
					t.tidy(s)
					return true
				}
			}
		}
		return false
	}

	s := t.Get(rr.Header().Rrtype)
	if s == nil {
		return false
	}
	for ix, e := range s.rrs {
		if dns.IsDuplicate(e, rr) {
			s.rrs = append(s.rrs[:ix], s.rrs[ix+1:]...)
			t.tidy(s)
			return true
		}
	}

	return false
}

// tidy drops an RRset once it has no plain RRs left. Orphaned signatures go back to the
// generic RRSIG RRset so a later re-add of the type picks them up again.
func (t *Node) tidy(s *RRset) {
	if s.Len() > 0 && (len(s.rrs) > 0 || s.isGenericSigs()) {
		s.recomputeTTL()
		return
	}
	sigs := s.sigs
	t.removeSet(s.Type)
	if len(sigs) == 0 {
		return
	}
	generic := t.Get(dns.TypeRRSIG)
	if generic == nil {
		generic = t.insertSet(dns.TypeRRSIG)
	}
	for _, sig := range sigs {
		generic.addSig(sig)
	}
}
