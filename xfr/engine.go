package xfr

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/resolver"
	"github.com/markdingo/authzone/zone"
)

var (
	ErrNoMasters     = errors.New("no masters configured")
	ErrMalformed     = errors.New("malformed reply")
	ErrNotifyRefused = errors.New("NOTIFY source is not a master or allowed notifier")
)

const (
	defaultWorkers       = 4
	defaultMaxConcurrent = 10
	defaultReadTimeout   = 10 * time.Second
)

// Options control the Engine. Zero values are replaced with defaults.
type Options struct {
	Workers          int           // Goroutines running probes and transfers
	MaxConcurrent    int64         // Ceiling on simultaneous TCP transfers
	ReadTimeout      time.Duration // Per-read timeout on transfer connections
	RewriteZonefiles bool          // Write transferred zones to their zonefile
}

// Engine drives the Xfers of all secondary zones with a pool of workers fed by per-zone
// timers.
type Engine struct {
	opts     Options
	resolver resolver.Resolver
	sem      *semaphore.Weighted
	work     chan *Xfer
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	xfers   map[*Xfer]struct{}
	started bool
}

// NewEngine creates an Engine. Timers may fire before Start is called but no probe
// runs until then.
func NewEngine(opts Options, r resolver.Resolver) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if r == nil {
		r = resolver.NewResolver()
	}
	t := &Engine{
		opts:     opts,
		resolver: r,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		work:     make(chan *Xfer),
		xfers:    make(map[*Xfer]struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	return t
}

// Start starts the workers. It's a no-op if already started.
func (t *Engine) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	for ix := 0; ix < t.opts.Workers; ix++ {
		t.wg.Add(1)
		go t.worker()
	}
}

// Stop cancels in-flight probes, disarms all timers and waits for the workers to exit.
// An in-flight TCP transfer completes or times out first.
func (t *Engine) Stop() {
	t.cancel()
	t.mu.Lock()
	for x := range t.xfers {
		x.mu.Lock()
		x.stop()
		x.mu.Unlock()
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Engine) worker() {
	defer t.wg.Done()
	for {
		select {
		case x := <-t.work:
			t.cycle(t.ctx, x)
		case <-t.ctx.Done():
			return
		}
	}
}

func (t *Engine) enqueue(x *Xfer) {
	select {
	case t.work <- x:
	case <-t.ctx.Done():
	}
}

// Add creates the Xfer for a secondary zone and schedules an immediate probe. If the
// zone already holds data, from a zonefile say, its SOA seeds the serial and timers and
// the expiry lease starts now.
func (t *Engine) Add(z *zone.Zone, masters, allowNotify []string) (*Xfer, error) {
	x := &Xfer{zone: z, log: z.Log}
	if err := x.configure(masters, allowNotify); err != nil {
		return nil, err
	}

	z.RLock()
	tree := z.Tree()
	if tree != nil {
		if soa := tree.SOA(); soa != nil {
			x.setSOA(soa)
		}
	}
	z.RUnlock()

	if x.haveZone {
		x.renewLease()
	}

	t.mu.Lock()
	t.xfers[x] = struct{}{}
	t.mu.Unlock()

	x.mu.Lock()
	x.schedule(t, 0)
	x.mu.Unlock()

	return x, nil
}

// Update replaces the masters and notifiers of x. An in-flight probe or transfer is not
// preempted; the change takes effect from the next cycle.
func (t *Engine) Update(x *Xfer, masters, allowNotify []string) error {
	return x.configure(masters, allowNotify)
}

func (t *Xfer) configure(masters, allowNotify []string) error {
	if len(masters) == 0 {
		return ErrNoMasters
	}
	var ms []*Master
	for _, s := range masters {
		m, err := NewMaster(s)
		if err != nil {
			return err
		}
		ms = append(ms, m)
	}
	acl, err := newNotifyACL(allowNotify)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.masters = ms
	t.allowNotify = acl
	t.specific = nil
	t.mu.Unlock()

	return nil
}

// Remove stops all activity for x. An in-flight cycle completes but nothing further is
// scheduled.
func (t *Engine) Remove(x *Xfer) {
	x.mu.Lock()
	x.removed = true
	x.stop()
	x.mu.Unlock()

	t.mu.Lock()
	delete(t.xfers, x)
	t.mu.Unlock()
}

// Xfers returns all current Xfers in no particular order.
func (t *Engine) Xfers() []*Xfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	ar := make([]*Xfer, 0, len(t.xfers))
	for x := range t.xfers {
		ar = append(ar, x)
	}

	return ar
}

// Notify handles a NOTIFY from src. If src is a master it becomes the specific master for
// the next probe. If the NOTIFY carries a serial which is not newer than the held serial
// it's acknowledged without probing. ErrNotifyRefused is returned if src is neither a
// master nor listed in allow-notify.
func (t *Engine) Notify(x *Xfer, src net.IP, serial uint32, hasSerial bool) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var from *Master
	for _, m := range x.masters {
		if m.matches(src) {
			from = m
			break
		}
	}
	if from == nil && !x.allowNotify.allows(src) {
		metrics.Notifies.WithLabelValues("refused").Inc()
		return ErrNotifyRefused
	}

	if hasSerial && x.haveZone && dnsutil.CompareSerial(serial, x.serial) <= 0 {
		metrics.Notifies.WithLabelValues("current").Inc()
		x.log.Debugf("NOTIFY from %s serial %d is current", src, serial)
		return nil
	}

	metrics.Notifies.WithLabelValues("probe").Inc()
	x.log.Minorf("NOTIFY from %s triggers probe", src)
	if from != nil {
		x.specific = from
	}
	if x.busy {
		x.rerun = true
	} else if !x.removed {
		x.schedule(t, 0)
	}

	return nil
}

// cycle runs one Probe and, if needed, one Transfer for x. It returns immediately if
// another worker owns x.
func (t *Engine) cycle(ctx context.Context, x *Xfer) {
	x.mu.Lock()
	if x.busy || x.removed {
		x.mu.Unlock()
		return
	}
	x.busy = true
	x.state = Probe
	masters := x.order()
	haveZone, serial := x.haveZone, x.serial
	x.mu.Unlock()

	ok := false
	from, newer, answered := t.probe(ctx, x, masters, haveZone, serial)
	switch {
	case !answered:
		x.log.Minorf("Probe failed for all %d masters", len(masters))

	case !newer:
		ok = true
		x.renewLease()

	default:
		x.mu.Lock()
		x.state = Transfer
		x.mu.Unlock()
		ok = t.transfer(ctx, x, promote(masters, from))
	}

	x.finish(t, ok)
}

// promote moves m to the front of masters, keeping the order of the rest.
func promote(masters []*Master, m *Master) []*Master {
	ar := make([]*Master, 0, len(masters))
	ar = append(ar, m)
	for _, o := range masters {
		if o != m {
			ar = append(ar, o)
		}
	}

	return ar
}

// finish releases ownership and returns the Xfer to NextProbe.
func (t *Xfer) finish(eng *Engine, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	t.state = NextProbe
	if ok {
		t.lastSuccess = time.Now()
	} else {
		t.lastFailed = time.Now()
	}
	if t.removed || eng.ctx.Err() != nil {
		return
	}
	d := t.interval(ok)
	if t.rerun {
		t.rerun = false
		d = 0
	}
	t.schedule(eng, d)
	t.log.Debugf("Next probe in %s", d)
}
