/*
Package xfr keeps secondary zones synchronized with their masters.

Each secondary zone has an Xfer which cycles through three states:

    NextProbe -> Probe -> Transfer -> NextProbe

NextProbe is idle with a single timer armed. When it fires any Engine worker may take
ownership of the Xfer and run a Probe: a UDP SOA query sent to each master in turn,
specific master first. If the master reports a newer serial, or no zone is held yet, the
Xfer moves to Transfer which fetches the zone over TCP with IXFR (when a zone is held) or
AXFR. Whatever the outcome ownership is released and the Xfer returns to NextProbe with
the refresh or retry interval from the zone SOA.

Independently of the cycle each held zone has a lease which expires after the SOA expire
interval unless renewed by a successful probe or transfer. An expired zone is flagged as
such and callers decide whether to fall back to recursion or return SERVFAIL.
*/
package xfr
