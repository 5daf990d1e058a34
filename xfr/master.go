package xfr

import (
	"context"
	"net"
	"strconv"

	"github.com/markdingo/authzone/config"
)

// Master is one configured source of zone data. Host is either an IP address literal or
// a host name which is resolved at the start of each probe and transfer.
type Master struct {
	Host string
	Port uint16

	ip    net.IP   // Set if Host is a literal
	addrs []net.IP // Most recent resolution, guarded by the owning Xfer
}

// NewMaster parses a master specification of the form host, host:port, ipv4:port or
// [ipv6]:port.
func NewMaster(spec string) (*Master, error) {
	host, port, err := config.SplitMaster(spec)
	if err != nil {
		return nil, err
	}

	return &Master{Host: host, Port: port, ip: net.ParseIP(host)}, nil
}

func (t *Master) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

func (t *Master) address(ip net.IP) string {
	return net.JoinHostPort(ip.String(), strconv.Itoa(int(t.Port)))
}

// matches returns true if ip is one of the master's addresses. Caller holds the Xfer lock.
func (t *Master) matches(ip net.IP) bool {
	if t.ip != nil {
		return t.ip.Equal(ip)
	}
	for _, a := range t.addrs {
		if a.Equal(ip) {
			return true
		}
	}

	return false
}

// resolve returns the host:port addresses of m. Each address family of a host name is
// looked up separately and a failure of one family does not prevent use of the other.
func (t *Engine) resolve(ctx context.Context, x *Xfer, m *Master) []string {
	if m.ip != nil {
		return []string{m.address(m.ip)}
	}

	var ips []net.IP
	for _, network := range []string{"ip4", "ip6"} {
		ar, err := t.resolver.LookupIP(ctx, network, m.Host)
		if err != nil {
			x.log.Debugf("Master %s %s lookup failed: %s", m.Host, network, err)
			continue
		}
		ips = append(ips, ar...)
	}
	if len(ips) == 0 {
		x.log.Minorf("Master %s has no addresses", m.Host)
	}

	x.mu.Lock()
	m.addrs = ips
	x.mu.Unlock()

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, m.address(ip))
	}

	return addrs
}
