package dnsutil

const (
	TCPNetwork = "tcp" // Yeah, yea, a bit silly, but case is important
	UDPNetwork = "udp" // so having consts here avoids pernickety errors

	MaxUDPSize uint16 = 1232 // Generally suggested as universally safe in edns0

	MaxNameLength = 255 // Wire-format octets including the root label
	MaxCNAMEChain = 8   // Hops followed when chasing in-zone CNAMEs
)
