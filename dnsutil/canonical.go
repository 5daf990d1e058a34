package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// CanonicalCompare orders two domain names by the RFC4034 section 6.1 canonical
// ordering. Labels are compared right-to-left as case-folded octet strings with the
// absence of a label sorting before any label. Returns <0, 0 or >0 in the manner of
// strings.Compare.
//
// miekg has no exported canonical name ordering (dns.Compare only counts common labels).
func CanonicalCompare(a, b string) int {
	al := canonicalLabels(a)
	bl := canonicalLabels(b)
	for ai, bi := len(al)-1, len(bl)-1; ai >= 0 && bi >= 0; ai, bi = ai-1, bi-1 {
		if c := strings.Compare(al[ai], bl[bi]); c != 0 {
			return c
		}
	}

	return len(al) - len(bl)
}

// canonicalLabels returns the lower-cased, un-escaped labels of a presentation-format
// name. The root returns an empty slice.
func canonicalLabels(name string) []string {
	ls := dns.SplitDomainName(name)
	for ix, l := range ls {
		ls[ix] = unescapeLabel(strings.ToLower(l))
	}

	return ls
}

// unescapeLabel converts \DDD and \X escapes to their octet values so that comparisons
// are done on wire-format label content.
func unescapeLabel(l string) string {
	if strings.IndexByte(l, '\\') == -1 {
		return l
	}
	var sb strings.Builder
	for ix := 0; ix < len(l); ix++ {
		c := l[ix]
		if c != '\\' || ix+1 >= len(l) {
			sb.WriteByte(c)
			continue
		}
		if ix+3 < len(l) && isDigit(l[ix+1]) && isDigit(l[ix+2]) && isDigit(l[ix+3]) {
			v := int(l[ix+1]-'0')*100 + int(l[ix+2]-'0')*10 + int(l[ix+3]-'0')
			c = byte(v)
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			sb.WriteByte(c)
			ix += 3
			continue
		}
		ix++
		sb.WriteByte(l[ix])
	}

	return sb.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// TrimLabels returns name with the leftmost n labels removed. If n equals or exceeds the
// label count, the root is returned.
func TrimLabels(name string, n int) string {
	if n <= 0 {
		return name
	}
	ix, end := dns.NextLabel(name, 0)
	for ; n > 1 && !end; n-- {
		ix, end = dns.NextLabel(name, ix)
	}
	if end || ix >= len(name) {
		return "."
	}

	return name[ix:]
}

// Parent returns the immediate parent of name, or "" if name is the root.
func Parent(name string) string {
	if name == "." || name == "" {
		return ""
	}

	return TrimLabels(name, 1)
}
