package xfr

import (
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/log"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/zone"
)

// State is the task an Xfer is currently performing.
type State int

const (
	NextProbe State = iota
	Probe
	Transfer
)

func (t State) String() string {
	switch t {
	case Probe:
		return "Probe"
	case Transfer:
		return "Transfer"
	}

	return "NextProbe"
}

const (
	defaultRetry = time.Minute // Used until a SOA provides the real values
	minInterval  = time.Second
)

// Xfer is the transfer state of one secondary zone. All fields are guarded by mu, which
// is always acquired after the zone lock, never before.
type Xfer struct {
	zone *zone.Zone
	log  *log.Zone

	mu          sync.Mutex
	state       State
	busy        bool // A worker owns Probe/Transfer
	removed     bool
	rerun       bool // NOTIFY arrived while busy
	masters     []*Master
	allowNotify *notifyACL
	specific    *Master // From NOTIFY, tried ahead of list order

	haveZone                bool
	serial                  uint32
	refresh, retry, expiry  time.Duration
	leaseStart              time.Time
	leaseGen                int
	next                    time.Time
	timer, expiryTimer      *time.Timer
	lastSuccess, lastFailed time.Time
}

// Zone returns the zone maintained by this Xfer.
func (t *Xfer) Zone() *zone.Zone {
	return t.zone
}

// State returns the current task.
func (t *Xfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Serial returns the serial of the held zone and whether a zone is held at all.
func (t *Xfer) Serial() (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serial, t.haveZone
}

// NextProbeAt returns when the next probe is scheduled. It's only meaningful in the
// NextProbe state.
func (t *Xfer) NextProbeAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

// String returns a one line summary for stats reports.
func (t *Xfer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.zone.Key().String() + " " + t.state.String()
	if t.haveZone {
		s += fmt.Sprintf(" serial=%d", t.serial)
	} else {
		s += " no-zone"
	}
	if t.allowNotify != nil {
		s += " allow-notify=" + t.allowNotify.String()
	}
	if t.state == NextProbe && !t.next.IsZero() {
		s += " next=" + time.Until(t.next).Round(time.Second).String()
	}

	return s
}

// setSOA copies the zone timers from soa. Caller holds mu.
func (t *Xfer) setSOA(soa *dns.SOA) {
	t.haveZone = true
	t.serial = soa.Serial
	t.refresh = time.Duration(soa.Refresh) * time.Second
	t.retry = time.Duration(soa.Retry) * time.Second
	t.expiry = time.Duration(soa.Expire) * time.Second
}

// order returns the masters in the order they should be tried for this cycle: the
// specific master, if any, first then the rest in configuration order. The specific
// master is consumed. Caller holds mu.
func (t *Xfer) order() []*Master {
	ar := make([]*Master, 0, len(t.masters)+1)
	if t.specific != nil {
		ar = append(ar, t.specific)
	}
	for _, m := range t.masters {
		if m != t.specific {
			ar = append(ar, m)
		}
	}
	t.specific = nil

	return ar
}

// interval returns the delay until the next probe. Caller holds mu.
func (t *Xfer) interval(ok bool) time.Duration {
	d := defaultRetry
	if t.haveZone {
		d = t.retry
		if ok {
			d = t.refresh
		}
		if t.expiry > 0 && !t.leaseStart.IsZero() {
			remaining := time.Until(t.leaseStart.Add(t.expiry))
			if remaining > 0 && remaining < d {
				d = remaining
			}
		}
	}
	if d < minInterval {
		d = minInterval
	}

	return d
}

// schedule arms the NextProbe timer. Caller holds mu.
func (t *Xfer) schedule(eng *Engine, d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.next = time.Now().Add(d)
	t.timer = time.AfterFunc(d, func() { eng.enqueue(t) })
}

// renewLease restarts the expiry lease. The zone is usable again if it had expired.
func (t *Xfer) renewLease() {
	t.mu.Lock()
	t.leaseStart = time.Now()
	t.leaseGen++
	gen := t.leaseGen
	if t.expiryTimer != nil {
		t.expiryTimer.Stop()
	}
	if t.expiry > 0 && !t.removed {
		t.expiryTimer = time.AfterFunc(t.expiry, func() { t.expire(gen) })
	}
	t.mu.Unlock()

	t.zone.SetExpired(false)
}

func (t *Xfer) expire(gen int) {
	t.mu.Lock()
	current := gen == t.leaseGen && !t.removed
	t.mu.Unlock()
	if !current {
		return
	}

	t.zone.SetExpired(true)
	metrics.Expired.Inc()
	t.log.Majorf("Expired: no contact with any master for %s", t.expiry)
}

// stop disarms both timers. Caller holds mu.
func (t *Xfer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.expiryTimer != nil {
		t.expiryTimer.Stop()
	}
}
