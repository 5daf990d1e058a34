// Copyright (c) 2026 Mark Delany. All rights reserved. Use of this source code is
// governed by a BSD-style license that can be found in the LICENSE file.

// This file exists so that "go doc github.com/markdingo/authzone" displays something
// useful.

/*

Package authzone serves DNS zones authoritatively from memory, either to a recursive
resolver as a local source of truth or to downstream clients over the network.

Zones are loaded from zonefiles or kept current from masters with SOA probes and IXFR or
AXFR transfers. Answers are synthesized with full RFC1034 semantics including referrals,
wildcards, CNAME and DNAME, with NSEC3 denial of existence for signed zones.

The authzoned command in cmd/authzoned is the stand-alone server.

Project site: https://github.com/markdingo/authzone

*/
package authzone
