package xfr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/resolver"
)

const (
	probeTimeoutStart = 100 * time.Millisecond
	probeTimeoutMax   = 1000 * time.Millisecond
)

var errAbandon = errors.New("probe timeout ceiling reached")

// probe sends SOA queries to masters in order until one gives a valid answer. answered is
// false if no master did. newer is true if a transfer is needed, which is always the case
// when no zone is held.
func (t *Engine) probe(ctx context.Context, x *Xfer, masters []*Master, haveZone bool,
	serial uint32) (from *Master, newer, answered bool) {
	for _, m := range masters {
		for _, addr := range t.resolve(ctx, x, m) {
			remote, err := t.probeAddr(ctx, x, m, addr)
			if errors.Is(err, errAbandon) {
				x.log.Minorf("Probe of %s timed out, master abandoned", addr)
				break
			}
			if err != nil {
				x.log.Minorf("Probe of %s failed: %s", addr, dnsutil.ShortenLookupError(err))
				continue
			}

			if !haveZone || dnsutil.CompareSerial(remote, serial) > 0 {
				metrics.Probes.WithLabelValues("newer").Inc()
				x.log.Debugf("Probe of %s serial %d needs transfer", addr, remote)
				return m, true, true
			}
			metrics.Probes.WithLabelValues("current").Inc()
			x.log.Debugf("Probe of %s serial %d is current", addr, remote)
			return m, false, true
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, false, false
}

// probeAddr queries one master address with a UDP timeout which doubles on each timeout
// up to the ceiling, after which errAbandon is returned.
func (t *Engine) probeAddr(ctx context.Context, x *Xfer, m *Master, addr string) (uint32, error) {
	q := new(dns.Msg)
	q.SetQuestion(x.zone.Name, dns.TypeSOA)
	q.Question[0].Qclass = x.zone.Class
	q.RecursionDesired = false

	cfg := resolver.NewExchangeConfig()
	timeout := probeTimeoutStart
	for {
		cfg.SetTimeout(timeout)
		r, _, err := t.resolver.SingleExchange(ctx, cfg, q, addr, m.Host)
		if err == nil {
			serial, err := probeSerial(q, r)
			if err != nil {
				metrics.Probes.WithLabelValues("error").Inc()
			}
			return serial, err
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !isTimeout(err) {
			metrics.Probes.WithLabelValues("error").Inc()
			return 0, err
		}
		metrics.Probes.WithLabelValues("timeout").Inc()
		if timeout >= probeTimeoutMax {
			return 0, errAbandon
		}
		timeout *= 2
		if timeout > probeTimeoutMax {
			timeout = probeTimeoutMax
		}
	}
}

// probeSerial validates a probe reply and extracts the zone serial.
func probeSerial(q, r *dns.Msg) (uint32, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: no message", ErrMalformed)
	}
	if r.Id != q.Id {
		return 0, fmt.Errorf("%w: id mismatch %d != %d", ErrMalformed, r.Id, q.Id)
	}
	if r.Rcode != dns.RcodeSuccess {
		return 0, fmt.Errorf("%w: rcode %s", ErrMalformed, dnsutil.RcodeToString(r.Rcode))
	}
	if r.Truncated {
		return 0, fmt.Errorf("%w: truncated", ErrMalformed)
	}
	qq := q.Question[0]
	if len(r.Question) != 1 || !strings.EqualFold(r.Question[0].Name, qq.Name) ||
		r.Question[0].Qtype != qq.Qtype || r.Question[0].Qclass != qq.Qclass {
		return 0, fmt.Errorf("%w: question mismatch", ErrMalformed)
	}
	for _, rr := range r.Answer {
		if soa, ok := rr.(*dns.SOA); ok && strings.EqualFold(soa.Hdr.Name, qq.Name) {
			return soa.Serial, nil
		}
	}

	return 0, fmt.Errorf("%w: no SOA in answer", ErrMalformed)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
