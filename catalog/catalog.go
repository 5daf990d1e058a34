package catalog

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/answer"
	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/xfr"
	"github.com/markdingo/authzone/zone"
)

var (
	ErrDuplicateZone = errors.New("zone already in catalog")
	ErrUnknownZone   = errors.New("zone not in catalog")
	ErrNotSecondary  = errors.New("zone is not a secondary")
	ErrNoEngine      = errors.New("catalog has no transfer engine")
)

// Catalog is the set of zones keyed by class and name plus the transfer state of each
// secondary zone. Create with New and release with Close.
type Catalog struct {
	engine *xfr.Engine

	mu    sync.RWMutex
	zones map[zone.Key]*zone.Zone
	xfers map[zone.Key]*xfr.Xfer

	scratch      sync.Pool
	scratchLimit int
}

// New creates an empty catalog. engine may be nil if no zone is a secondary.
func New(engine *xfr.Engine) *Catalog {
	t := &Catalog{
		engine:       engine,
		zones:        make(map[zone.Key]*zone.Zone),
		xfers:        make(map[zone.Key]*xfr.Xfer),
		scratchLimit: answer.DefaultScratchLimit,
	}
	t.scratch.New = func() interface{} { return answer.NewScratch(t.scratchLimit) }

	return t
}

// Close removes every zone and stops all transfer activity for them. The engine itself is
// owned by the caller.
func (t *Catalog) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.zones {
		t.removeLocked(key)
	}
}

// AddZone inserts z. ErrDuplicateZone is returned if a zone with the same class and name
// already exists.
func (t *Catalog) AddZone(z *zone.Zone) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := z.Key()
	if _, ok := t.zones[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrDuplicateZone)
	}
	t.zones[key] = z
	metrics.Zones.Set(float64(len(t.zones)))

	return nil
}

// RemoveZone deletes the zone and stops any transfer activity. It returns false if the
// zone was not present.
func (t *Catalog) RemoveZone(name string, class uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := zone.Key{Class: class, Name: dns.CanonicalName(name)}
	if _, ok := t.zones[key]; !ok {
		return false
	}
	t.removeLocked(key)

	return true
}

func (t *Catalog) removeLocked(key zone.Key) {
	if x, ok := t.xfers[key]; ok && t.engine != nil {
		t.engine.Remove(x)
	}
	delete(t.xfers, key)
	delete(t.zones, key)
	metrics.Zones.Set(float64(len(t.zones)))
}

// Get returns the zone with exactly this name and class, or nil.
func (t *Catalog) Get(name string, class uint16) *zone.Zone {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.zones[zone.Key{Class: class, Name: dns.CanonicalName(name)}]
}

// Find returns the most specific zone which contains name, or nil.
func (t *Catalog) Find(name string, class uint16) *zone.Zone {
	name = dns.CanonicalName(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ; len(name) > 0; name = dnsutil.Parent(name) {
		if z, ok := t.zones[zone.Key{Class: class, Name: name}]; ok {
			return z
		}
	}

	return nil
}

// Zones returns all zones in canonical name order.
func (t *Catalog) Zones() []*zone.Zone {
	t.mu.RLock()
	ar := make([]*zone.Zone, 0, len(t.zones))
	for _, z := range t.zones {
		ar = append(ar, z)
	}
	t.mu.RUnlock()
	sort.Slice(ar, func(i, j int) bool {
		if ar[i].Class != ar[j].Class {
			return ar[i].Class < ar[j].Class
		}
		return dnsutil.CanonicalCompare(ar[i].Name, ar[j].Name) < 0
	})

	return ar
}

// Xfer returns the transfer state of a secondary zone, or nil.
func (t *Catalog) Xfer(name string, class uint16) *xfr.Xfer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.xfers[zone.Key{Class: class, Name: dns.CanonicalName(name)}]
}

// Notify passes a NOTIFY for the named zone to the transfer engine.
func (t *Catalog) Notify(name string, class uint16, src net.IP, serial uint32,
	hasSerial bool) error {
	t.mu.RLock()
	key := zone.Key{Class: class, Name: dns.CanonicalName(name)}
	_, haveZone := t.zones[key]
	x := t.xfers[key]
	t.mu.RUnlock()

	switch {
	case !haveZone:
		return fmt.Errorf("%s: %w", key, ErrUnknownZone)
	case x == nil || t.engine == nil:
		return fmt.Errorf("%s: %w", key, ErrNotSecondary)
	}

	return t.engine.Notify(x, src, serial, hasSerial)
}

// Report returns a multi-line summary of every zone, suitable for the stats log.
func (t *Catalog) Report() string {
	var b strings.Builder
	for _, z := range t.Zones() {
		z.RLock()
		serial, haveSOA := uint32(0), false
		count, minTTL := 0, uint32(0)
		if tree := z.Tree(); tree != nil {
			serial, haveSOA = tree.Serial()
			count = tree.Len()
			minTTL = tree.MinTTL()
		}
		expired := z.Expired()
		z.RUnlock()

		fmt.Fprintf(&b, "Zone %s", z.Key())
		if haveSOA {
			fmt.Fprintf(&b, " serial=%d rrs=%d minttl=%d", serial, count, minTTL)
		} else {
			b.WriteString(" no-data")
		}
		if expired {
			b.WriteString(" EXPIRED")
		}
		if x := t.Xfer(z.Name, z.Class); x != nil {
			fmt.Fprintf(&b, " xfer=(%s)", x)
		}
		b.WriteString("\n")
	}

	return b.String()
}
