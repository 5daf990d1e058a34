/*
Package config reads the YAML zone configuration. The file has an optional transfer
section and a map of zones keyed by zone name:

    transfer:
      workers: 4
      max-concurrent: 10
      read-timeout: 10s
      rewrite-zonefiles: true
    zones:
      example.net:
        masters: [ 192.0.2.1, "ns1.example.org:5353" ]
        zonefile: /var/lib/authzone/example.net.zone
        for-downstream: true
        for-upstream: true
        fallback-enabled: true
        allow-notify: [ 192.0.2.1, 198.51.100.0/24 ]

A zone with masters is a secondary. A zone with only a zonefile is served from that file.
*/
package config

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorkers       = 4
	defaultMaxConcurrent = 10
	defaultReadTimeout   = 10 * time.Second
)

type Config struct {
	Transfer Transfer        `yaml:"transfer"`
	Zones    map[string]Zone `yaml:"zones"`
}

type Transfer struct {
	Workers          int           `yaml:"workers"`
	MaxConcurrent    int           `yaml:"max-concurrent"`
	ReadTimeout      time.Duration `yaml:"read-timeout"`
	RewriteZonefiles bool          `yaml:"rewrite-zonefiles"`
}

type Zone struct {
	Name            string   `yaml:"-"` // Set from the map key
	Class           string   `yaml:"class"`
	Masters         []string `yaml:"masters"`
	Zonefile        string   `yaml:"zonefile"`
	ForDownstream   bool     `yaml:"for-downstream"`
	ForUpstream     bool     `yaml:"for-upstream"`
	FallbackEnabled bool     `yaml:"fallback-enabled"`
	AllowNotify     []string `yaml:"allow-notify"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(b)
}

// Parse converts YAML into a Config. Zone names are made fully qualified and canonical
// and defaults are applied. Individual zones are not validated here, see Zone.Validate.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.Transfer.Workers <= 0 {
		c.Transfer.Workers = defaultWorkers
	}
	if c.Transfer.MaxConcurrent <= 0 {
		c.Transfer.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Transfer.ReadTimeout <= 0 {
		c.Transfer.ReadTimeout = defaultReadTimeout
	}

	zones := make(map[string]Zone, len(c.Zones))
	for name, z := range c.Zones {
		z.Name = dns.CanonicalName(name)
		if len(z.Class) == 0 {
			z.Class = "IN"
		}
		zones[z.Name] = z
	}
	c.Zones = zones

	return &c, nil
}

// SortedZones returns the zones in name order so that application and logging are
// deterministic.
func (t *Config) SortedZones() []Zone {
	ar := make([]Zone, 0, len(t.Zones))
	for _, z := range t.Zones {
		ar = append(ar, z)
	}
	sort.Slice(ar, func(i, j int) bool { return ar[i].Name < ar[j].Name })

	return ar
}

// ClassValue returns the numeric class.
func (t *Zone) ClassValue() (uint16, error) {
	c, ok := dns.StringToClass[strings.ToUpper(t.Class)]
	if !ok {
		return 0, fmt.Errorf("zone %s: unknown class '%s'", t.Name, t.Class)
	}

	return c, nil
}

// IsSecondary returns true if the zone is maintained by zone transfer.
func (t *Zone) IsSecondary() bool {
	return len(t.Masters) > 0
}

// Validate checks a single zone entry. An invalid zone is skipped by the caller while the
// remaining zones are still applied.
func (t *Zone) Validate() error {
	if _, ok := dns.IsDomainName(t.Name); !ok {
		return fmt.Errorf("zone '%s': invalid name", t.Name)
	}
	if _, err := t.ClassValue(); err != nil {
		return err
	}
	if len(t.Masters) == 0 && len(t.Zonefile) == 0 {
		return fmt.Errorf("zone %s: needs masters or a zonefile", t.Name)
	}
	if !t.ForDownstream && !t.ForUpstream {
		return fmt.Errorf("zone %s: neither for-downstream nor for-upstream is set", t.Name)
	}
	for _, m := range t.Masters {
		if _, _, err := SplitMaster(m); err != nil {
			return fmt.Errorf("zone %s: %w", t.Name, err)
		}
	}
	for _, a := range t.AllowNotify {
		if _, err := ParseNetwork(a); err != nil {
			return fmt.Errorf("zone %s: allow-notify %w", t.Name, err)
		}
	}

	return nil
}

// ParseNetwork accepts either an address prefix in CIDR notation or a plain IP address,
// which is returned as a host prefix.
func ParseNetwork(s string) (*net.IPNet, error) {
	if strings.Contains(s, "/") {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid network", s)
		}
		return n, nil
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("'%s' is not an IP address or network", s)
	}
	if ip4 := ip.To4(); ip4 != nil {
		return &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}, nil
	}

	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
}

// SplitMaster separates a master specification into host and port. The host is either an
// IP address or a host name. Port defaults to 53. IPv6 addresses with a port must be
// bracketed.
func SplitMaster(s string) (host string, port uint16, err error) {
	port = 53
	host = s
	if strings.Count(s, ":") == 1 || strings.HasPrefix(s, "[") {
		var p string
		host, p, err = net.SplitHostPort(s)
		if err != nil {
			return "", 0, fmt.Errorf("master '%s': %w", s, err)
		}
		pv, perr := strconv.ParseUint(p, 10, 16)
		if perr != nil || pv == 0 {
			return "", 0, fmt.Errorf("master '%s': invalid port '%s'", s, p)
		}
		port = uint16(pv)
	}
	if len(host) == 0 {
		return "", 0, fmt.Errorf("master '%s': empty host", s)
	}
	if net.ParseIP(host) == nil {
		if _, ok := dns.IsDomainName(host); !ok {
			return "", 0, fmt.Errorf("master '%s': invalid host name", s)
		}
	}

	return host, port, nil
}
