package zone

import (
	"errors"

	"github.com/miekg/dns"
)

var (
	ErrZoneFull  = errors.New("zone RR limit reached")
	ErrRRsetFull = errors.New("RRset member limit reached")
)

// MaxRRsetMembers limits the combined plain and signature count of a single RRset. It
// stands in for an allocation failure on absurd inputs.
var MaxRRsetMembers = 65535

// RRset holds all RRs of one type at one owner name. Signatures covering the type are
// held separately from the plain RRs. The generic RRSIG RRset, which holds signatures for
// types not (yet) present at the node, has Type == dns.TypeRRSIG and only signatures.
type RRset struct {
	Type uint16
	rrs  []dns.RR
	sigs []*dns.RRSIG
	ttl  uint32
}

func (t *RRset) RRs() []dns.RR       { return t.rrs }
func (t *RRset) Sigs() []*dns.RRSIG  { return t.sigs }
func (t *RRset) TTL() uint32         { return t.ttl }
func (t *RRset) Len() int            { return len(t.rrs) + len(t.sigs) }
func (t *RRset) isGenericSigs() bool { return t.Type == dns.TypeRRSIG }

// addRR appends a plain RR. Returns false if it's a duplicate.
func (t *RRset) addRR(rr dns.RR) (bool, error) {
	for _, e := range t.rrs {
		if dns.IsDuplicate(e, rr) {
			return false, nil
		}
	}
	if t.Len() >= MaxRRsetMembers {
		return false, ErrRRsetFull
	}
	t.rrs = append(t.rrs, rr)
	t.lowerTTL(rr.Header().Ttl)

	return true, nil
}

// addSig appends a signature. Returns false if it's a duplicate.
func (t *RRset) addSig(sig *dns.RRSIG) (bool, error) {
	for _, e := range t.sigs {
		if dns.IsDuplicate(e, sig) {
			return false, nil
		}
	}
	if t.Len() >= MaxRRsetMembers {
		return false, ErrRRsetFull
	}
	t.sigs = append(t.sigs, sig)
	t.lowerTTL(sig.Hdr.Ttl)

	return true, nil
}

func (t *RRset) lowerTTL(ttl uint32) {
	if t.Len() == 1 || ttl < t.ttl {
		t.ttl = ttl
	}
}

// recomputeTTL is needed after signatures are removed from a donor RRset.
func (t *RRset) recomputeTTL() {
	first := true
	for _, rr := range t.rrs {
		if first || rr.Header().Ttl < t.ttl {
			t.ttl = rr.Header().Ttl
			first = false
		}
	}
	for _, sig := range t.sigs {
		if first || sig.Hdr.Ttl < t.ttl {
			t.ttl = sig.Hdr.Ttl
			first = false
		}
	}
}

// moveSigsFrom transfers every signature in the generic donor which covers this RRset's
// type. The donor is compacted in place. Returns the number moved.
func (t *RRset) moveSigsFrom(donor *RRset) (int, error) {
	moved := 0
	keep := donor.sigs[:0]
	var err error
	for _, sig := range donor.sigs {
		if sig.TypeCovered != t.Type || err != nil {
			keep = append(keep, sig)
			continue
		}
		if t.Len() >= MaxRRsetMembers {
			err = ErrRRsetFull
			keep = append(keep, sig)
			continue
		}
		dupe := false
		for _, e := range t.sigs {
			if dns.IsDuplicate(e, sig) {
				dupe = true
				break
			}
		}
		if !dupe {
			t.sigs = append(t.sigs, sig)
			t.lowerTTL(sig.Hdr.Ttl)
		}
		moved++
	}
	for ix := len(keep); ix < len(donor.sigs); ix++ {
		donor.sigs[ix] = nil // Let the GC have them
	}
	donor.sigs = keep
	if moved > 0 {
		donor.recomputeTTL()
	}

	return moved, err
}

// Copy returns the plain RRs with their TTL set to the RRset TTL and the owner name
// replaced by owner, if owner is not empty. The originals are never modified as they are
// shared by concurrent readers.
func (t *RRset) Copy(owner string) []dns.RR {
	return copyRRs(t.rrs, t.ttl, owner)
}

// CopySigs is the signature equivalent of Copy.
func (t *RRset) CopySigs(owner string) []dns.RR {
	ar := make([]dns.RR, 0, len(t.sigs))
	for _, s := range t.sigs {
		ar = append(ar, s)
	}

	return copyRRs(ar, t.ttl, owner)
}

func copyRRs(in []dns.RR, ttl uint32, owner string) []dns.RR {
	out := make([]dns.RR, 0, len(in))
	for _, rr := range in {
		c := dns.Copy(rr)
		c.Header().Ttl = ttl
		if len(owner) > 0 {
			c.Header().Name = owner
		}
		out = append(out, c)
	}

	return out
}
