package zone

import (
	"sync"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/log"
)

// Zone is the published state of one authoritative zone. The embedded RWMutex guards the
// Tree and the expired flag. Readers hold RLock for the duration of their use of Tree();
// a transfer commit or zonefile load swaps the Tree under Lock.
type Zone struct {
	sync.RWMutex

	Name  string // Canonical
	Class uint16

	ForDownstream   bool // Answer queries arriving from clients
	ForUpstream     bool // Answer lookups made by the resolver itself
	IsSecondary     bool // Maintained by zone transfer
	FallbackEnabled bool // Unusable zone hands the query to the recursive path
	Zonefile        string

	Log *log.Zone

	tree    *Tree
	expired bool
}

// New creates a zone with no data.
func New(name string, class uint16) *Zone {
	name = dns.CanonicalName(name)
	return &Zone{
		Name:  name,
		Class: class,
		Log:   log.ForZone(name, dns.ClassToString[class]),
	}
}

// Tree returns the current data, which may be nil. Caller must hold at least RLock.
func (t *Zone) Tree() *Tree {
	return t.tree
}

// Replace publishes a new tree. Any previous expiry is cleared as the new data is fresh.
func (t *Zone) Replace(tree *Tree) {
	if tree != nil {
		tree.sorted() // So readers never sort
	}
	t.Lock()
	defer t.Unlock()
	t.tree = tree
	t.expired = false
}

// SetExpired marks the data as no longer usable.
func (t *Zone) SetExpired(b bool) {
	t.Lock()
	defer t.Unlock()
	t.expired = b
}

// Expired returns the expiry flag. Caller must hold at least RLock.
func (t *Zone) Expired() bool {
	return t.expired
}

// Usable returns true if the zone has data with an apex SOA and has not expired. Caller
// must hold at least RLock.
func (t *Zone) Usable() bool {
	return !t.expired && t.tree != nil && t.tree.SOA() != nil
}

// Key returns the catalog key of the zone.
func (t *Zone) Key() Key {
	return Key{Class: t.Class, Name: t.Name}
}

// Key identifies a zone in a catalog.
type Key struct {
	Class uint16
	Name  string
}

func (t Key) String() string {
	if t.Class == dns.ClassINET {
		return t.Name
	}

	return t.Name + "/" + dns.ClassToString[t.Class]
}
