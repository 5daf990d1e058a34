package xfr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/zone"
)

// transfer fetches the zone from the first master which supplies a valid transfer and
// publishes it. It returns true if the zone was updated or confirmed current.
func (t *Engine) transfer(ctx context.Context, x *Xfer, masters []*Master) bool {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer t.sem.Release(1)

	for _, m := range masters {
		for _, addr := range t.resolve(ctx, x, m) {
			if ctx.Err() != nil {
				return false
			}
			err := t.fetch(x, addr)
			if err == nil {
				return true
			}
			x.log.Minorf("Transfer from %s failed: %s", addr, dnsutil.ShortenLookupError(err))
		}
	}

	return false
}

// fetch runs an IXFR, if a zone is held, otherwise an AXFR against addr. An IXFR which
// fails for any reason other than a network error is retried as an AXFR on the same
// address as the master may not support IXFR.
func (t *Engine) fetch(x *Xfer, addr string) error {
	x.mu.Lock()
	haveZone, serial := x.haveZone, x.serial
	x.mu.Unlock()

	var current *zone.Tree
	if haveZone {
		x.zone.RLock()
		current = x.zone.Tree()
		x.zone.RUnlock()
	}

	if current != nil {
		rrs, err := t.exchange(x, addr, dns.TypeIXFR, serial)
		if err == nil {
			var tree *zone.Tree
			var upToDate bool
			tree, upToDate, err = buildTree(x.zone.Name, x.zone.Class, current, serial, rrs)
			if err == nil {
				return t.commit(x, addr, "ixfr", tree, upToDate)
			}
		}
		metrics.Transfers.WithLabelValues("ixfr", "error").Inc()
		var ne net.Error
		if errors.As(err, &ne) {
			return err
		}
		x.log.Minorf("IXFR from %s failed (%s), trying AXFR", addr, err)
	}

	rrs, err := t.exchange(x, addr, dns.TypeAXFR, 0)
	if err != nil {
		metrics.Transfers.WithLabelValues("axfr", "error").Inc()
		return err
	}
	tree, upToDate, err := buildTree(x.zone.Name, x.zone.Class, nil, serial, rrs)
	if err != nil {
		metrics.Transfers.WithLabelValues("axfr", "error").Inc()
		return err
	}
	if haveZone && dnsutil.CompareSerial(tree.SOA().Serial, serial) <= 0 {
		upToDate = true // Never regress
	}

	return t.commit(x, addr, "axfr", tree, upToDate)
}

// exchange sends one AXFR or IXFR query over TCP and collects every RR of the reply.
func (t *Engine) exchange(x *Xfer, addr string, qtype uint16, serial uint32) ([]dns.RR, error) {
	m := new(dns.Msg)
	if qtype == dns.TypeIXFR {
		m.SetIxfr(x.zone.Name, serial, "", "")
		m.Ns[0].Header().Class = x.zone.Class
	} else {
		m.SetAxfr(x.zone.Name)
	}
	m.Question[0].Qclass = x.zone.Class

	tr := &dns.Transfer{
		DialTimeout:  t.opts.ReadTimeout,
		ReadTimeout:  t.opts.ReadTimeout,
		WriteTimeout: t.opts.ReadTimeout,
	}
	x.log.Debugf("%s to %s", dns.TypeToString[qtype], addr)
	ch, err := tr.In(m, addr)
	if err != nil {
		return nil, err
	}

	var rrs []dns.RR
	for env := range ch {
		if env.Error != nil {
			err = env.Error
			break
		}
		rrs = append(rrs, env.RR...)
	}
	if err != nil {
		return nil, err
	}
	if len(rrs) > 0 {
		x.log.Debugf("%s reply from %s: %d RRs starting %s", dns.TypeToString[qtype], addr,
			len(rrs), dnsutil.PrettyRRSet(rrs[:1], true))
	}

	return rrs, nil
}

// commit publishes tree, renews the lease and optionally rewrites the zonefile. A nil
// tree with upToDate means the master confirmed the held serial.
func (t *Engine) commit(x *Xfer, addr, kind string, tree *zone.Tree, upToDate bool) error {
	if upToDate {
		metrics.Transfers.WithLabelValues(kind, "uptodate").Inc()
		x.log.Minorf("%s from %s: zone is up to date", strings.ToUpper(kind), addr)
		x.renewLease()
		return nil
	}

	soa := tree.SOA()
	x.zone.Replace(tree)
	x.mu.Lock()
	x.setSOA(soa)
	x.mu.Unlock()
	x.renewLease()

	metrics.Transfers.WithLabelValues(kind, "ok").Inc()
	x.log.Minorf("%s from %s: serial %d %d RRs", strings.ToUpper(kind), addr,
		soa.Serial, tree.Len())

	if t.opts.RewriteZonefiles && len(x.zone.Zonefile) > 0 {
		if err := zone.WriteZonefile(tree, x.zone.Zonefile); err != nil {
			x.log.Majorf("Zonefile rewrite failed: %s", err)
		}
	}

	return nil
}

// buildTree interprets a transfer reply. The reply is either AXFR style, which replaces
// the zone, or IXFR style which is applied to a copy of current. A reply of a single SOA
// which is not newer than serial means the zone is up to date, in which case tree is
// nil.
func buildTree(origin string, class uint16, current *zone.Tree, serial uint32,
	rrs []dns.RR) (tree *zone.Tree, upToDate bool, err error) {
	if len(rrs) == 0 {
		return nil, false, fmt.Errorf("%w: empty transfer", ErrMalformed)
	}
	first, ok := rrs[0].(*dns.SOA)
	if !ok || !strings.EqualFold(first.Hdr.Name, origin) {
		return nil, false, fmt.Errorf("%w: transfer does not start with the zone SOA",
			ErrMalformed)
	}

	if current != nil && dnsutil.CompareSerial(first.Serial, serial) <= 0 {
		return nil, true, nil
	}
	if len(rrs) == 1 {
		return nil, false, fmt.Errorf("%w: lone SOA serial %d is newer", ErrMalformed,
			first.Serial)
	}

	last, ok := rrs[len(rrs)-1].(*dns.SOA)
	if !ok || last.Serial != first.Serial {
		return nil, false, fmt.Errorf("%w: transfer does not end with the zone SOA",
			ErrMalformed)
	}

	if _, isSOA := rrs[1].(*dns.SOA); current != nil && isSOA && len(rrs) > 2 {
		tree = current.Clone()
		err = applyIXFR(tree, serial, first.Serial, rrs[1:len(rrs)-1])
	} else {
		tree = zone.NewTree(origin, class)
		for _, rr := range rrs[:len(rrs)-1] {
			if _, err = tree.Add(rr); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, false, wrapMalformed(err)
	}
	if err = tree.Validate(); err != nil {
		return nil, false, wrapMalformed(err)
	}

	return tree, false, nil
}

// applyIXFR applies difference sequences to tree. Each sequence is the old SOA, the RRs
// to delete, the new SOA then the RRs to add. Sequences must chain from serial to final.
func applyIXFR(tree *zone.Tree, serial, final uint32, diffs []dns.RR) error {
	deleting := false
	expect := serial
	for _, rr := range diffs {
		if soa, ok := rr.(*dns.SOA); ok {
			if !deleting {
				if soa.Serial != expect {
					return fmt.Errorf("%w: IXFR sequence starts at serial %d, want %d",
						ErrMalformed, soa.Serial, expect)
				}
				if old := tree.SOA(); old != nil {
					tree.Remove(old)
				}
			} else {
				expect = soa.Serial
				if _, err := tree.Add(soa); err != nil {
					return err
				}
			}
			deleting = !deleting
			continue
		}
		if deleting {
			tree.Remove(rr) // Deleting an absent RR is harmless
		} else if _, err := tree.Add(rr); err != nil {
			return err
		}
	}
	if deleting || expect != final {
		return fmt.Errorf("%w: IXFR ends at serial %d, want %d", ErrMalformed, expect, final)
	}

	return nil
}

// wrapMalformed makes content errors matchable as ErrMalformed while leaving resource
// exhaustion distinct.
func wrapMalformed(err error) error {
	if errors.Is(err, zone.ErrZoneFull) || errors.Is(err, zone.ErrRRsetFull) ||
		errors.Is(err, ErrMalformed) {
		return err
	}

	return fmt.Errorf("%w: %s", ErrMalformed, err)
}
