package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// ChompCanonicalName lower-cases n and removes one trailing dot. Used where names become
// file names or log fields and the root label only gets in the way.
func ChompCanonicalName(n string) string {
	return strings.TrimSuffix(dns.CanonicalName(n), ".")
}
