package mock

import "net"

// Addr is a net.Addr whose String() is returned verbatim. It stands in for the
// addresses which are neither *net.UDPAddr nor *net.TCPAddr, such as those returned by
// proxies or the mock ResponseWriter.
type Addr struct {
	Net, Str string
}

func (t Addr) Network() string { return t.Net }
func (t Addr) String() string  { return t.Str }

// NewNetAddr returns an Addr for network, defaulting to "udp".
func NewNetAddr(network, s string) net.Addr {
	if len(network) == 0 {
		network = "udp"
	}

	return Addr{Net: network, Str: s}
}
