package mock

import (
	"net"

	"github.com/miekg/dns"
)

var (
	local  = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 53}
	remote = &net.UDPAddr{IP: net.ParseIP("127.0.0.2"), Port: 4056}
)

// ResponseWriter captures what a dns.Handler writes. Remote, if set, replaces the
// default client address of 127.0.0.2:4056.
type ResponseWriter struct {
	Remote net.Addr
	Writes int // Count of calls to WriteMsg

	m *dns.Msg // Saved by writeMsg
}

func (t *ResponseWriter) Reset() {
	t.m = nil
}

// Get returns the last response, if any then clears the response
func (t *ResponseWriter) Get() *dns.Msg {
	m := t.m
	t.m = nil
	return m
}

func (t *ResponseWriter) LocalAddr() net.Addr {
	return local
}

func (t *ResponseWriter) RemoteAddr() net.Addr {
	if t.Remote != nil {
		return t.Remote
	}
	return remote
}

func (t *ResponseWriter) WriteMsg(m *dns.Msg) error {
	t.m = m
	t.Writes++

	return nil
}

func (t *ResponseWriter) Write(b []byte) (int, error) {
	panic("Don't expect Write() to be called")
}

func (t *ResponseWriter) Close() error        { return nil }
func (t *ResponseWriter) TsigStatus() error   { return nil }
func (t *ResponseWriter) TsigTimersOnly(bool) {}
func (t *ResponseWriter) Hijack()             {}
