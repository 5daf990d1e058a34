package answer

import (
	"errors"
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/nsec3"
	"github.com/markdingo/authzone/zone"
)

var ErrScratchFull = errors.New("answer scratch space exhausted")

// Kind classifies the generated response. Callers use it for rate limiting and
// statistics.
type Kind int

const (
	KindError Kind = iota
	KindPositive
	KindCNAME
	KindANY
	KindNoData
	KindReferral
	KindDNAME
	KindENT
	KindWildcard
	KindNXDomain
)

var kindStrings = map[Kind]string{
	KindError:    "error",
	KindPositive: "positive",
	KindCNAME:    "cname",
	KindANY:      "any",
	KindNoData:   "nodata",
	KindReferral: "referral",
	KindDNAME:    "dname",
	KindENT:      "ent",
	KindWildcard: "wildcard",
	KindNXDomain: "nxdomain",
}

func (t Kind) String() string {
	return kindStrings[t]
}

// DefaultScratchLimit is generous enough for any sane zone. It is the maximum number of
// RRs a single response may accumulate.
const DefaultScratchLimit = 4096

// Scratch bounds the number of RRs one synthesis may place in a response. A Scratch is
// not concurrency safe, each goroutine needs its own, but it can be Reset and reused.
type Scratch struct {
	Limit int
	used  int
}

func NewScratch(limit int) *Scratch {
	return &Scratch{Limit: limit}
}

func (t *Scratch) Reset() {
	t.used = 0
}

func (t *Scratch) Used() int {
	return t.used
}

func (t *Scratch) take(n int) error {
	if t.used+n > t.Limit {
		return ErrScratchFull
	}
	t.used += n

	return nil
}

// builder carries the state of a single synthesis.
type builder struct {
	tree    *zone.Tree
	q       dns.Question
	qname   string // Canonical
	do      bool
	scratch *Scratch
	msg     *dns.Msg
	kind    Kind

	params    *nsec3.Params
	paramsSet bool
	proof     *nsec3.Proof
	added     map[addKey]bool
}

type addKey struct {
	section int
	owner   string
	rrtype  uint16
}

const (
	sectionAnswer = iota
	sectionNs
	sectionExtra
)

// Synthesize produces the authoritative response for q from tree. The returned message
// has Response and Authoritative set (unless it's a referral) and carries the question,
// but has no Id or EDNS, those belong to the caller. The only error is ErrScratchFull
// which the caller should convert to SERVFAIL.
func Synthesize(tree *zone.Tree, q dns.Question, do bool, s *Scratch) (*dns.Msg, Kind, error) {
	b := &builder{
		tree:    tree,
		q:       q,
		qname:   strings.ToLower(dns.Fqdn(q.Name)),
		do:      do,
		scratch: s,
		msg:     new(dns.Msg),
		added:   make(map[addKey]bool),
	}
	b.msg.Response = true
	b.msg.Authoritative = true
	b.msg.Question = []dns.Question{q}

	if err := b.generate(); err != nil {
		return nil, KindError, err
	}

	return b.msg, b.kind, nil
}

func (b *builder) generate() error {
	ce := b.tree.FindClosestEncloser(b.qname, b.q.Qtype)
	switch ce.Result {
	case zone.Interrupted:
		if ce.RRset.Type == dns.TypeNS {
			return b.referral(ce)
		}
		return b.dname(ce)

	case zone.Exists:
		return b.fromNode(ce.Node, "", "")
	}

	if b.tree.HasBelow(b.qname) {
		return b.ent()
	}

	wcName := "*." + ce.Name
	if ce.Name == "." {
		wcName = "*."
	}
	if wc := b.tree.Find(wcName); wc != nil && !wc.IsNSEC3Only() {
		return b.wildcard(ce.Name, wc)
	}

	return b.nxdomain(ce.Name)
}

// fromNode generates a positive, CNAME, ANY or NODATA response from the node. When
// owner is set the answer RRs are rewritten to that name; this is how wildcard answers
// are produced. wcParent is the closest encloser of a wildcard answer.
func (b *builder) fromNode(n *zone.Node, owner, wcParent string) error {
	b.kind = KindPositive
	switch {
	case b.q.Qtype == dns.TypeANY:
		b.kind = KindANY
		return b.any(n, owner)

	case n.Has(b.q.Qtype):
		return b.positive(n.Get(b.q.Qtype), owner)

	case n.Has(dns.TypeCNAME):
		b.kind = KindCNAME
		return b.cnameChain(n.Get(dns.TypeCNAME), owner)
	}

	b.kind = KindNoData
	return b.nodata(n, owner, wcParent)
}

// nsec3Params lazily discovers the NSEC3 parameters. Only needed for DO negative answers.
func (b *builder) nsec3Params() (*nsec3.Params, bool) {
	if !b.paramsSet {
		b.params, _ = nsec3.FindParams(b.tree)
		b.paramsSet = true
		if b.params != nil {
			b.proof = nsec3.NewProof(b.tree, b.params)
		}
	}

	return b.params, b.params != nil
}

// addRRset copies the RRset into the section. Signatures are included when DO is set.
// An RRset is only ever added once per section.
func (b *builder) addRRset(section int, set *zone.RRset, nodeName, owner string) error {
	if set == nil {
		return nil
	}
	key := addKey{section, nodeName, set.Type}
	if len(owner) > 0 {
		key.owner = owner
	}
	if b.added[key] {
		return nil
	}
	n := len(set.RRs())
	if b.do {
		n += len(set.Sigs())
	}
	if err := b.scratch.take(n); err != nil {
		return err
	}
	b.added[key] = true

	rrs := set.Copy(owner)
	if b.do {
		rrs = append(rrs, set.CopySigs(owner)...)
	}
	b.appendRRs(section, rrs...)

	return nil
}

// addRR adds a single synthesized RR.
func (b *builder) addRR(section int, rr dns.RR) error {
	if err := b.scratch.take(1); err != nil {
		return err
	}
	b.appendRRs(section, rr)

	return nil
}

func (b *builder) appendRRs(section int, rrs ...dns.RR) {
	switch section {
	case sectionAnswer:
		b.msg.Answer = append(b.msg.Answer, rrs...)
	case sectionNs:
		b.msg.Ns = append(b.msg.Ns, rrs...)
	default:
		b.msg.Extra = append(b.msg.Extra, rrs...)
	}
}

// inZone returns true if name is at or below the zone origin.
func (b *builder) inZone(name string) bool {
	return dns.IsSubDomain(b.tree.Origin, name)
}
