package dnsutil

import (
	"strconv"

	"github.com/miekg/dns"
)

// The miekg lookup tables return an empty string for unassigned values which is useless
// in logs, so these wrappers substitute a prefixed numeric value.

func ClassToString(c dns.Class) string { return lookup(dns.ClassToString, uint16(c), "C-") }
func TypeToString(t uint16) string     { return lookup(dns.TypeToString, t, "T-") }
func RcodeToString(r int) string       { return lookup(dns.RcodeToString, r, "r-") }
func OpcodeToString(o int) string      { return lookup(dns.OpcodeToString, o, "o-") }

func lookup[K uint16 | int](m map[K]string, k K, prefix string) string {
	if s, ok := m[k]; ok && len(s) > 0 {
		return s
	}

	return prefix + strconv.Itoa(int(k))
}
