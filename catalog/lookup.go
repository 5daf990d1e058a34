package catalog

import (
	"errors"

	"github.com/miekg/dns"

	"github.com/markdingo/authzone/answer"
	"github.com/markdingo/authzone/dnsutil"
	"github.com/markdingo/authzone/metrics"
	"github.com/markdingo/authzone/zone"
)

const (
	pathUpstream   = "upstream"
	pathDownstream = "downstream"
)

// Lookup answers q on behalf of the resolver itself from zones marked for-upstream. If
// fallback is true the resolver should use its normal recursive path: no zone contains
// q, the zone is not for-upstream, or the zone is unusable and fallback is enabled. An
// unusable zone without fallback yields a SERVFAIL message. The only error is
// answer.ErrScratchFull which accompanies a SERVFAIL message.
func (t *Catalog) Lookup(q dns.Question, do bool) (msg *dns.Msg, fallback bool, err error) {
	z := t.Find(q.Name, q.Qclass)
	if z == nil {
		return nil, true, nil
	}

	z.RLock()
	defer z.RUnlock()
	if !z.ForUpstream {
		return nil, true, nil
	}

	msg, kind, fallback, err := t.synthesize(z, q, do)
	if msg != nil && err == nil {
		metrics.Answers.WithLabelValues(pathUpstream, kind.String()).Inc()
	}

	return msg, fallback, err
}

// AnswerMsg answers a downstream query from zones marked for-downstream. handled is false
// if the query is not for such a zone, or the zone is unusable and fallback is enabled,
// in which case the caller decides what to do. maxSize is the transport limit; zero means
// no truncation. Otherwise the limit is the larger of 512 and the EDNS0 size of the
// query, capped at dnsutil.MaxUDPSize.
func (t *Catalog) AnswerMsg(query *dns.Msg, maxSize int) (msg *dns.Msg, kind answer.Kind, handled bool) {
	if query.Opcode != dns.OpcodeQuery || len(query.Question) != 1 {
		return nil, answer.KindError, false
	}
	q := query.Question[0]
	z := t.Find(q.Name, q.Qclass)
	if z == nil {
		return nil, answer.KindError, false
	}

	opt := query.IsEdns0()
	do := opt != nil && opt.Do()

	z.RLock()
	if !z.ForDownstream {
		z.RUnlock()
		return nil, answer.KindError, false
	}
	msg, kind, fallback, _ := t.synthesize(z, q, do)
	z.RUnlock()
	if fallback {
		return nil, answer.KindError, false
	}
	if msg == nil {
		msg, kind = servFail(q), answer.KindError
	}
	metrics.Answers.WithLabelValues(pathDownstream, kind.String()).Inc()

	msg.Id = query.Id
	msg.Opcode = query.Opcode
	msg.RecursionDesired = query.RecursionDesired
	msg.CheckingDisabled = query.CheckingDisabled
	if opt != nil {
		msg.SetEdns0(dnsutil.MaxUDPSize, do)
	}

	if maxSize > 0 {
		size := UDPSize(query)
		if size > maxSize {
			size = maxSize
		}
		msg.Truncate(size)
	}

	return msg, kind, true
}

// UDPSize returns the largest UDP reply the sender of query accepts: 512 without EDNS0,
// otherwise the EDNS0 size clamped to the range 512 to dnsutil.MaxUDPSize.
func UDPSize(query *dns.Msg) int {
	size := dns.MinMsgSize
	if opt := query.IsEdns0(); opt != nil && int(opt.UDPSize()) > size {
		size = int(opt.UDPSize())
	}
	if size > int(dnsutil.MaxUDPSize) {
		size = int(dnsutil.MaxUDPSize)
	}

	return size
}

// Answer is AnswerMsg for UDP transport which packs the reply into buf, if large
// enough.
func (t *Catalog) Answer(query *dns.Msg, buf []byte) (out []byte, handled bool) {
	msg, _, handled := t.AnswerMsg(query, dns.MaxMsgSize)
	if !handled {
		return nil, false
	}
	out, err := msg.PackBuffer(buf)
	if err != nil {
		return nil, false
	}

	return out, true
}

// synthesize runs answer.Synthesize with a pooled Scratch. Caller holds the zone RLock.
func (t *Catalog) synthesize(z *zone.Zone, q dns.Question, do bool) (*dns.Msg, answer.Kind, bool, error) {
	if !z.Usable() {
		if z.FallbackEnabled {
			metrics.Fallbacks.Inc()
			return nil, answer.KindError, true, nil
		}
		metrics.ServFails.WithLabelValues("unusable").Inc()
		z.Log.Debugf("SERVFAIL %s: zone unusable", dnsutil.PrettyQuestion(q))
		return servFail(q), answer.KindError, false, nil
	}

	s := t.scratch.Get().(*answer.Scratch)
	s.Reset()
	msg, kind, err := answer.Synthesize(z.Tree(), q, do, s)
	t.scratch.Put(s)
	if errors.Is(err, answer.ErrScratchFull) {
		metrics.ServFails.WithLabelValues("scratch").Inc()
		z.Log.Minorf("SERVFAIL %s: %s", dnsutil.PrettyQuestion(q), err)
		return servFail(q), answer.KindError, false, err
	}

	return msg, kind, false, err
}

func servFail(q dns.Question) *dns.Msg {
	m := new(dns.Msg)
	m.Response = true
	m.Rcode = dns.RcodeServerFailure
	m.Question = []dns.Question{q}

	return m
}
