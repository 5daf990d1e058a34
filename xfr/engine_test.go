package xfr

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	mockDNS "github.com/markdingo/authzone/mock/dns"
	mockResolver "github.com/markdingo/authzone/mock/resolver"
	"github.com/markdingo/authzone/zone"
)

const masterAddr = "127.0.0.1:6390"

func soaRR(t *testing.T, serial string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(soa(serial))
	if err != nil {
		t.Fatal("Setup error", err)
	}

	return rr
}

// newTestEngine returns an unstarted Engine and a function which sets the probe reply
// from masterAddr.
func newTestEngine() (*Engine, func(*mockResolver.Response)) {
	res := mockResolver.NewResolver()
	eng := NewEngine(Options{ReadTimeout: 2 * time.Second}, res)

	return eng, func(r *mockResolver.Response) { res.SetResponse(masterAddr, r) }
}

func qtypes(ar []uint16) (s []string) {
	for _, q := range ar {
		s = append(s, dns.TypeToString[q])
	}

	return
}

// Drive complete cycles against a real TCP master: initial AXFR, unchanged serial, IXFR
// then IXFR refused falling back to AXFR.
func TestEngineCycle(t *testing.T) {
	srv := &mockDNS.AxfrServer{}
	srv.SetResponse(&mockDNS.XfrResponse{Rcode: -1, IXFRRcode: -1, Zone: soa("20") + baseRRs})
	mockDNS.StartServer(t, "tcp", masterAddr, srv)

	eng, setProbe := newTestEngine()
	defer eng.Stop()

	z := zone.New("example.", dns.ClassINET)
	x, err := eng.Add(z, []string{masterAddr}, nil)
	if err != nil {
		t.Fatal("Add failed", err)
	}

	// No zone held means transfer regardless of the probed serial
	setProbe(&mockResolver.Response{Answer: []dns.RR{soaRR(t, "1")}})
	eng.cycle(context.Background(), x)
	if serial, ok := x.Serial(); !ok || serial != 20 {
		t.Fatal("Initial AXFR failed", serial, ok)
	}
	if z.Tree() == nil || !z.Usable() {
		t.Fatal("Zone not published")
	}
	if got := qtypes(srv.Requests()); len(got) != 1 || got[0] != "AXFR" {
		t.Error("Expected one AXFR, got", got)
	}

	// Same and older serials do nothing
	for _, s := range []string{"20", "19"} {
		setProbe(&mockResolver.Response{Answer: []dns.RR{soaRR(t, s)}})
		eng.cycle(context.Background(), x)
		if len(srv.Requests()) != 1 {
			t.Error(s, "Unexpected transfer", qtypes(srv.Requests()))
		}
	}

	// Newer serial triggers IXFR
	srv.SetResponse(&mockDNS.XfrResponse{Rcode: -1, IXFRRcode: -1,
		Zone: soa("21") + baseRRs + "b.example. 300 IN A 192.0.2.2\n",
		IXFR: soa("21") + soa("20") + "a.example. 300 IN A 192.0.2.1\n" +
			soa("21") + "b.example. 300 IN A 192.0.2.2\n" + soa("21")})
	setProbe(&mockResolver.Response{Answer: []dns.RR{soaRR(t, "21")}})
	eng.cycle(context.Background(), x)
	if serial, _ := x.Serial(); serial != 21 {
		t.Error("IXFR did not advance serial", serial)
	}
	z.RLock()
	tree := z.Tree()
	z.RUnlock()
	if tree.Find("a.example.") != nil || tree.Find("b.example.") == nil {
		t.Error("IXFR not applied")
	}
	if got := qtypes(srv.Requests()); len(got) != 2 || got[1] != "IXFR" {
		t.Error("Expected IXFR, got", got)
	}

	// Master refuses IXFR so AXFR follows
	srv.SetResponse(&mockDNS.XfrResponse{Rcode: -1, IXFRRcode: dns.RcodeRefused,
		Zone: soa("22") + baseRRs + "c.example. 300 IN A 192.0.2.3\n"})
	setProbe(&mockResolver.Response{Answer: []dns.RR{soaRR(t, "22")}})
	eng.cycle(context.Background(), x)
	if serial, _ := x.Serial(); serial != 22 {
		t.Error("AXFR fallback did not advance serial", serial)
	}
	got := qtypes(srv.Requests())
	if len(got) != 4 || got[2] != "IXFR" || got[3] != "AXFR" {
		t.Error("Expected IXFR then AXFR, got", got)
	}
	if x.State() != NextProbe {
		t.Error("State should return to NextProbe, not", x.State())
	}
}

func TestEngineProbeTimeouts(t *testing.T) {
	res := mockResolver.NewResolver()
	eng := NewEngine(Options{}, res)
	defer eng.Stop()
	res.SetResponse("192.0.2.1:53", &mockResolver.Response{Timeout: true})
	res.SetResponse("192.0.2.2:53", &mockResolver.Response{Rcode: dns.RcodeSuccess,
		Answer: []dns.RR{soaRR(t, "5")}})

	z := zone.New("example.", dns.ClassINET)
	x, err := eng.Add(z, []string{"192.0.2.1", "192.0.2.2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	x.mu.Lock()
	masters := x.order()
	x.mu.Unlock()

	from, newer, answered := eng.probe(context.Background(), x, masters, false, 0)
	if !answered || !newer || from == nil || from.Host != "192.0.2.2" {
		t.Fatal("Second master should have answered", from, newer, answered)
	}

	exp := []time.Duration{100, 200, 400, 800, 1000}
	ex := res.Exchanges()
	if len(ex) != len(exp)+1 {
		t.Fatal("Wrong exchange count", len(ex), ex)
	}
	for ix, d := range exp {
		if ex[ix].Server != "192.0.2.1:53" || ex[ix].Timeout != d*time.Millisecond {
			t.Error(ix, "Timeout sequence wrong", ex[ix])
		}
	}
	if ex[len(exp)].Server != "192.0.2.2:53" {
		t.Error("Second master not tried", ex[len(exp)])
	}
}

func TestEngineProbeRejects(t *testing.T) {
	res := mockResolver.NewResolver()
	eng := NewEngine(Options{}, res)
	defer eng.Stop()

	z := zone.New("example.", dns.ClassINET)
	x, _ := eng.Add(z, []string{"192.0.2.1"}, nil)
	m := x.masters[0]

	good := []dns.RR{soaRR(t, "1")}
	testCases := []*mockResolver.Response{
		{Rcode: dns.RcodeServerFailure, Answer: good},
		{Rcode: dns.RcodeSuccess}, // No SOA
		{Rcode: dns.RcodeSuccess, Answer: good, Id: 1},
		{Rcode: dns.RcodeNameError},
		nil, // Connection refused
	}
	for ix, r := range testCases {
		res.SetResponse("192.0.2.1:53", r)
		_, err := eng.probeAddr(context.Background(), x, m, "192.0.2.1:53")
		if err == nil {
			t.Error(ix, "Expected probe error")
		}
	}
}

func TestEngineResolve(t *testing.T) {
	res := mockResolver.NewResolver()
	res.AddHost("ns1.example.net", "192.0.2.1", "2001:db8::1")
	eng := NewEngine(Options{}, res)
	defer eng.Stop()

	z := zone.New("example.", dns.ClassINET)
	x, _ := eng.Add(z, []string{"ns1.example.net:5353", "ns2.example.net"}, nil)
	addrs := eng.resolve(context.Background(), x, x.masters[0])
	if len(addrs) != 2 || addrs[0] != "192.0.2.1:5353" || addrs[1] != "[2001:db8::1]:5353" {
		t.Error("Resolve wrong", addrs)
	}
	if !x.masters[0].matches(net.ParseIP("2001:db8::1")) {
		t.Error("Resolved addresses not recorded")
	}
	if addrs := eng.resolve(context.Background(), x, x.masters[1]); len(addrs) != 0 {
		t.Error("Unknown host should have no addresses", addrs)
	}
}

func TestEngineNotify(t *testing.T) {
	res := mockResolver.NewResolver()
	eng := NewEngine(Options{}, res)
	defer eng.Stop()

	z := zone.New("example.", dns.ClassINET)
	tree := zone.NewTree("example.", dns.ClassINET)
	tree.Add(soaRR(t, "10"))
	z.Replace(tree)
	x, err := eng.Add(z, []string{"192.0.2.1", "192.0.2.2"},
		[]string{"198.51.100.1", "2001:db8:1::/48"})
	if err != nil {
		t.Fatal(err)
	}

	err = eng.Notify(x, net.ParseIP("203.0.113.1"), 11, true)
	if !errors.Is(err, ErrNotifyRefused) {
		t.Error("Stranger should be refused", err)
	}

	if err = eng.Notify(x, net.ParseIP("192.0.2.2"), 10, true); err != nil {
		t.Error("Current serial should be acked", err)
	}
	if x.specific != nil {
		t.Error("Current serial should not set specific master")
	}

	if err = eng.Notify(x, net.ParseIP("192.0.2.2"), 11, true); err != nil {
		t.Error(err)
	}
	if x.specific == nil || x.specific.Host != "192.0.2.2" {
		t.Error("Specific master not set", x.specific)
	}
	x.mu.Lock()
	ar := x.order()
	x.mu.Unlock()
	if len(ar) != 2 || ar[0].Host != "192.0.2.2" || x.specific != nil {
		t.Error("Specific master should be first and consumed", ar)
	}

	if err = eng.Notify(x, net.ParseIP("198.51.100.1"), 0, false); err != nil {
		t.Error("allow-notify source should be accepted", err)
	}
	if x.specific != nil {
		t.Error("allow-notify source is not a master")
	}
	if err = eng.Notify(x, net.ParseIP("2001:db8:1::53"), 0, false); err != nil {
		t.Error("allow-notify network should be accepted", err)
	}

	x.mu.Lock()
	x.busy = true
	x.mu.Unlock()
	eng.Notify(x, net.ParseIP("192.0.2.1"), 0, false)
	if !x.rerun {
		t.Error("NOTIFY while busy should set rerun")
	}
}

func TestEngineExpiry(t *testing.T) {
	eng := NewEngine(Options{}, mockResolver.NewResolver())
	defer eng.Stop()

	z := zone.New("example.", dns.ClassINET)
	tree := zone.NewTree("example.", dns.ClassINET)
	rr, _ := dns.NewRR("example. 300 IN SOA ns.example. hostmaster.example. 1 3600 600 1 60")
	tree.Add(rr)
	z.Replace(tree)
	_, err := eng.Add(z, []string{"192.0.2.1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	z.RLock()
	usable := z.Usable()
	z.RUnlock()
	if !usable {
		t.Fatal("Zone should be usable before expiry")
	}

	time.Sleep(1500 * time.Millisecond)
	z.RLock()
	expired := z.Expired()
	z.RUnlock()
	if !expired {
		t.Error("Zone should have expired")
	}
}

func TestEngineInterval(t *testing.T) {
	x := &Xfer{}
	if d := x.interval(true); d != defaultRetry {
		t.Error("No zone should use default retry", d)
	}
	rr, _ := dns.NewRR("example. 300 IN SOA ns.example. hostmaster.example. 1 3600 600 86400 60")
	x.setSOA(rr.(*dns.SOA))
	if d := x.interval(true); d != time.Hour {
		t.Error("Success should use refresh", d)
	}
	if d := x.interval(false); d != 10*time.Minute {
		t.Error("Failure should use retry", d)
	}
	x.expiry = 30 * time.Second
	x.leaseStart = time.Now()
	if d := x.interval(false); d > 30*time.Second || d < minInterval {
		t.Error("Interval should be capped by remaining lease", d)
	}
}

func TestEngineAddNoMasters(t *testing.T) {
	eng := NewEngine(Options{}, mockResolver.NewResolver())
	defer eng.Stop()
	_, err := eng.Add(zone.New("example.", dns.ClassINET), nil, nil)
	if !errors.Is(err, ErrNoMasters) {
		t.Error("Expected ErrNoMasters", err)
	}
	_, err = eng.Add(zone.New("example.", dns.ClassINET), []string{"192.0.2.1"},
		[]string{"not-an-ip"})
	if err == nil {
		t.Error("Expected allow-notify error")
	}
}

func TestNotifyACL(t *testing.T) {
	acl, err := newNotifyACL([]string{"192.0.2.1", "198.51.100.0/24", "2001:db8::/32"})
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		ip    string
		allow bool
	}{
		{"192.0.2.1", true},
		{"192.0.2.2", false},
		{"198.51.100.77", true},
		{"::ffff:198.51.100.77", true},
		{"198.51.101.1", false},
		{"2001:db8:ffff::1", true},
		{"2001:db9::1", false},
	}
	for ix, tc := range testCases {
		if got := acl.allows(net.ParseIP(tc.ip)); got != tc.allow {
			t.Error(ix, tc.ip, "Expected", tc.allow, "got", got)
		}
	}

	if acl.String() != "[192.0.2.1 198.51.100.0/24 2001:db8::/32]" {
		t.Error("Unexpected String()", acl.String())
	}

	var none *notifyACL
	if none.allows(net.ParseIP("192.0.2.1")) {
		t.Error("nil ACL should allow nothing")
	}
	if acl, err = newNotifyACL(nil); acl != nil || err != nil {
		t.Error("Empty specs should give a nil ACL", acl, err)
	}
	if _, err = newNotifyACL([]string{"198.51.100.0/99"}); err == nil {
		t.Error("Expected error for bad prefix length")
	}
}
