/*
Package catalog holds the set of authoritative zones and, for secondary zones, their
transfer state. It is the entry point for queries: Lookup serves the resolver's own
upstream lookups and Answer serves downstream clients.

Locks are always taken in the order catalog, zone, xfer. The catalog lock only guards the
two indices so it is never held while a zone is answering.
*/
package catalog
