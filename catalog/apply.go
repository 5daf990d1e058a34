package catalog

import (
	"fmt"

	"github.com/markdingo/authzone/config"
	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/zone"
)

// Apply makes the catalog match cfg. New zones are added, changed zones are updated in
// place and zones absent from cfg are removed. Zonefiles of added and changed zones are
// (re)loaded. An in-flight probe or transfer is never preempted. Each invalid zone entry
// produces an error and is skipped while the rest are applied.
func (t *Catalog) Apply(cfg *config.Config) (errs []error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wanted := make(map[zone.Key]bool)
	for _, zc := range cfg.SortedZones() {
		if err := zc.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		class, _ := zc.ClassValue()
		key := zone.Key{Class: class, Name: zc.Name}
		wanted[key] = true
		if err := t.applyZone(key, zc); err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", key, err))
		}
	}

	for key := range t.zones {
		if !wanted[key] {
			log.Minorf("Removing zone %s", key)
			t.removeLocked(key)
		}
	}
	metrics.Zones.Set(float64(len(t.zones)))

	return
}

// applyZone creates or updates one zone. Caller holds the catalog lock.
func (t *Catalog) applyZone(key zone.Key, zc config.Zone) error {
	if zc.IsSecondary() && t.engine == nil {
		return ErrNoEngine
	}

	z, exists := t.zones[key]
	if !exists {
		z = zone.New(key.Name, key.Class)
	}

	z.Lock()
	z.ForDownstream = zc.ForDownstream
	z.ForUpstream = zc.ForUpstream
	z.FallbackEnabled = zc.FallbackEnabled
	z.IsSecondary = zc.IsSecondary()
	z.Zonefile = zc.Zonefile
	z.Unlock()

	if !exists {
		t.zones[key] = z
		log.Minorf("Added zone %s", key)
	}

	// A held secondary zone is only ever replaced by transfer
	var loadErr error
	if len(zc.Zonefile) > 0 && (!exists || !zc.IsSecondary()) {
		loadErr = z.LoadZonefile()
		if loadErr != nil && zc.IsSecondary() {
			z.Log.Minorf("Zonefile not loaded, waiting for transfer: %s", loadErr)
			loadErr = nil
		}
	}

	x := t.xfers[key]
	switch {
	case zc.IsSecondary() && x == nil:
		nx, err := t.engine.Add(z, zc.Masters, zc.AllowNotify)
		if err != nil {
			return err
		}
		t.xfers[key] = nx

	case zc.IsSecondary():
		if err := t.engine.Update(x, zc.Masters, zc.AllowNotify); err != nil {
			return err
		}

	case x != nil: // No longer a secondary
		t.engine.Remove(x)
		delete(t.xfers, key)
		z.SetExpired(false)
	}

	return loadErr
}
