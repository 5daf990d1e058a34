package xfr

import (
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"

	"github.com/markdingo/authzone/config"
)

// notifyACL holds the allow-notify networks of a zone. A nil *notifyACL allows nothing.
type notifyACL struct {
	ranger cidranger.Ranger
	specs  []string
}

func newNotifyACL(specs []string) (*notifyACL, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	acl := &notifyACL{ranger: cidranger.NewPCTrieRanger()}
	for _, s := range specs {
		n, err := config.ParseNetwork(s)
		if err != nil {
			return nil, fmt.Errorf("allow-notify %w", err)
		}
		if err := acl.ranger.Insert(cidranger.NewBasicRangerEntry(*n)); err != nil {
			return nil, fmt.Errorf("allow-notify '%s': %w", s, err)
		}
		acl.specs = append(acl.specs, s)
	}

	return acl, nil
}

func (t *notifyACL) allows(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}
	ok, err := t.ranger.Contains(ip)

	return err == nil && ok
}

func (t *notifyACL) String() string {
	if t == nil {
		return "none"
	}

	return fmt.Sprint(t.specs)
}
