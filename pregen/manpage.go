package pregen

// Manpage is the mandoc source of authzoned.8. It is generated from authzoned.8 in the
// source tree, edit that file rather than this one.
var Manpage = []byte(`.Dd October 17, 2026
.Dt AUTHZONED 8
.Os
.Sh NAME
.Nm authzoned
.Nd authoritative zone server with secondary zone transfer
.Sh SYNOPSIS
.Nm
.Op Fl h | -help | -manpage | v | -version
.Nm
.Fl -config Ar file
.Op Fl -listen Ar address ...
.Op Fl -metrics-listen Ar address
.Op Fl -log-file Ar path
.Op Fl -log-level Ar level
.Op Fl -user Ar name
.Op Fl -group Ar name
.Op Fl -NSID Ar hostid
.Op Fl -report Ar duration
.Sh DESCRIPTION
.Nm
answers DNS queries for locally hosted zones.
A zone is either loaded from a zonefile or maintained as a secondary by zone
transfer from one or more masters.
.Pp
Each secondary zone is probed with a UDP SOA query at the SOA refresh interval,
or the retry interval after a failure.
A probe timeout starts at 100ms and doubles on each retry to 1s after which the
next master is tried.
If a master has a newer serial, or no data is held, the zone is fetched over TCP
with IXFR when data is held, otherwise AXFR.
A master which does not support IXFR is sent an AXFR.
If no master has been reached for the SOA expire interval the zone expires and
queries are either answered with SERVFAIL or, if
.Cm fallback-enabled
is set, are not answered from the zone.
.Pp
A NOTIFY from a master, or from an address listed in
.Cm allow-notify ,
triggers an immediate probe.
.Sh CONFIGURATION
The YAML file named by
.Fl -config
has an optional
.Cm transfer
section with
.Cm workers ,
.Cm max-concurrent ,
.Cm read-timeout
and
.Cm rewrite-zonefiles
and a
.Cm zones
map keyed by zone name.
Each zone may set
.Cm class ,
.Cm masters ,
.Cm zonefile ,
.Cm for-downstream ,
.Cm for-upstream ,
.Cm fallback-enabled
and
.Cm allow-notify .
.Sh SIGNALS
.Bl -tag -width SIGUSR1
.It SIGHUP
Re-read the configuration file and apply zone changes.
.It SIGUSR1
Produce an immediate statistics report.
.It SIGUSR2
Toggle
.Fl -log-queries .
.It SIGTERM, SIGINT
Shut down.
.El
.Sh SEE ALSO
.Xr named 8 ,
.Xr nsd 8
.Sh STANDARDS
RFC 1034, RFC 1035, RFC 1995, RFC 1996, RFC 4034, RFC 5155, RFC 7873
`)
