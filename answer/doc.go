/*
Package answer synthesizes authoritative responses from a zone.Tree. Synthesize is a pure
function of the tree and the question: it never modifies the tree and may be called
concurrently by any number of readers holding the zone read lock.

The response kind is selected by the first match of:

    Referral    an NS cut above or at qname
    DNAME       a DNAME above qname; synthesizes a CNAME then chases it
    Positive    qtype at the exact node, with A/AAAA glue for MX, SRV and NS targets
    CNAME       a CNAME at the exact node; chased within the zone for up to 8 hops
    ANY         SOA, MX, A and AAAA when present, else the first RRset at the node
    NoData      the exact node lacks qtype
    ENT         qname is an empty non-terminal
    Wildcard    *.<closest encloser> exists; any of the above with the owner rewritten
    NXDomain    none of the above

DNSSEC material, that is signatures and NSEC or NSEC3 denial proofs, is only included
when the DO bit is set. All RRs placed in a response count against a caller supplied
Scratch so that a pathological zone cannot produce an unbounded response.
*/
package answer
