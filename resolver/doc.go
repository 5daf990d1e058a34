/*
Package resolver defines an interface and provides a concrete implementation of the small
set of network lookups the transfer engine makes: resolving master host names and
exchanging single UDP SOA probes. It is an amalgam of the standard go net package resolver
functions and the github.com/miekg/dns package.

The sole reason this package exists is to present resolving as an interface which can be
mocked for testing purposes. Zone transfers themselves run over TCP streams with
dns.Transfer and are not part of this interface.
*/
package resolver
