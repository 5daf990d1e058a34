/*
Package zone holds the authoritative data of a single zone. A Tree is a canonically
ordered index of Nodes, each Node holds a type-sorted list of RRsets and each RRset holds
the plain RRs of its type plus the RRSIGs which cover that type.

Trees are built single-threaded, either from a zonefile or from a zone transfer, and are
then published into a Zone with Replace(). Once published a Tree is only read. Zone
maintenance never modifies a published Tree, it builds a new one and swaps it in.

Expected usage is:

    tree := zone.NewTree("example.net.", dns.ClassINET)
    for {
        added, err := tree.Add(rr)
    }
    z.Replace(tree)

    z.RLock()
    ce := z.Tree().FindClosestEncloser(qname, qtype)
    z.RUnlock()
*/
package zone
