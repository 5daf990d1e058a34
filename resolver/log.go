package resolver

import (
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/log"
)

// The Log* functions are exported so the mock resolver logs the same way. Callers should
// test log.IfDebug() first.

// LogIP logs a LookupIP result as "res:network#host#ips#error#note".
func LogIP(network, host string, ips []net.IP, note string, err error) {
	var errStr string
	addrs := make([]string, 0, len(ips))
	if err != nil {
		errStr = dnsutil.ShortenLookupError(err).Error()
	} else {
		for _, ip := range ips {
			addrs = append(addrs, ip.String())
		}
	}
	log.Debug(strings.Join([]string{"res:" + network, host, strings.Join(addrs, ","),
		errStr, note}, "#"))
}

// LogExchangeQ logs a probe query just before it is sent.
func LogExchangeQ(network, logName, server string, q dns.Question) {
	log.Debugf("miekg Q:%s:%s/%s q=%s", network, logName, server, dnsutil.PrettyQuestion(q))
}

// LogExchangeA logs the reply or error of a probe.
func LogExchangeA(server string, q dns.Question, r *dns.Msg, err error) {
	if err != nil {
		log.Debugf("miekg E:%s/%s/%s %s", server, dnsutil.ChompCanonicalName(q.Name),
			dnsutil.TypeToString(q.Qtype), dnsutil.ShortenLookupError(err))
		return
	}
	log.Debug("miekg A:", dnsutil.PrettyMsg1(r))
}
