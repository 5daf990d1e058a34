package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"net"

	"github.com/dchest/siphash"
)

// RFC7873 and RFC9018 DNS Cookies.
//
// A version 1 server cookie is 16 bytes:
//
//	[0]     Version, always 1
//	[1:4]   Reserved, zero
//	[4:8]   Timestamp, unix time in serial number arithmetic
//	[8:16]  SipHash-2-4 of client cookie, the first 8 bytes of this cookie and Client-IP

const (
	clientCookieLen    = 8
	serverCookieMinLen = 8
	serverCookieMaxLen = 32
	serverCookieV1Len  = 16

	maxCookieAge    = 60 * 60 // Seconds a timestamp may be behind our clock
	maxCookieFuture = 60 * 5  // and ahead of it
	cookieReissue   = maxCookieFuture / 2
)

// cookieSecret is the SipHash key shared by all listen servers.
type cookieSecret struct {
	k0, k1 uint64
}

// newCookieSecret returns a random secret. Strictly the secret should be configurable so
// that anycast peers issue identical cookies.
func newCookieSecret() cookieSecret {
	var b [16]byte
	rand.Read(b[:])

	return cookieSecret{k0: binary.BigEndian.Uint64(b[:8]), k1: binary.BigEndian.Uint64(b[8:])}
}

// serverCookie returns the version 1 server cookie for the client cookie, timestamp and
// client address. An unknown address hashes as the zero IPv4 address.
func (t cookieSecret) serverCookie(clientCookie []byte, ts uint32, ip net.IP) []byte {
	buf := make([]byte, 0, clientCookieLen+8+net.IPv6len)
	buf = append(buf, clientCookie...)
	buf = append(buf, 1, 0, 0, 0)
	buf = binary.BigEndian.AppendUint32(buf, ts)
	if ip4 := ip.To4(); ip4 != nil || ip == nil {
		if ip4 == nil {
			ip4 = net.IPv4zero.To4()
		}
		buf = append(buf, ip4...)
	} else {
		buf = append(buf, ip.To16()...)
	}

	sum := siphash.Hash(t.k0, t.k1, buf)

	return binary.BigEndian.AppendUint64(buf[clientCookieLen:clientCookieLen+8], sum)
}

// findCookies extracts the client and server cookies from the query OPT. Whatever cookie
// material is present is kept for logging even if it is malformed.
func (t *request) findCookies() {
	opt := t.findCookieOpt()
	if opt == nil {
		return
	}
	t.cookiesPresent = true

	// A decode error leaves a short cookie which fails the length checks
	raw, _ := hex.DecodeString(opt.Cookie)
	if len(raw) < clientCookieLen {
		t.clientCookie = raw
		return
	}
	t.clientCookie = raw[:clientCookieLen]
	t.serverCookie = raw[clientCookieLen:]

	sLen := len(t.serverCookie)
	t.cookieWellFormed = sLen == 0 || (sLen >= serverCookieMinLen && sLen <= serverCookieMaxLen)
}

// cookieAge returns how many seconds ts is behind now, treating both as serial numbers
// (RFC1982) so that the uint32 wrap in 2106 is handled. A negative age means ts is ahead.
func cookieAge(now, ts uint32) int64 {
	return int64(int32(now - ts))
}

// validateOrGenerateCookie checks the client supplied server cookie and sets cookieOut to
// the full cookie to return. A valid cookie is echoed unless it is older than
// cookieReissue, otherwise a fresh cookie is issued.
func (t *request) validateOrGenerateCookie(secret cookieSecret, unixTime int64) bool {
	now := uint32(unixTime)
	ip := t.srcIP()
	sc := t.serverCookie

	var age int64
	if len(sc) == serverCookieV1Len && sc[0] == 1 && sc[1] == 0 && sc[2] == 0 && sc[3] == 0 {
		ts := binary.BigEndian.Uint32(sc[4:8])
		age = cookieAge(now, ts)
		if age < maxCookieAge && age > -maxCookieFuture {
			t.cookieValid = subtle.ConstantTimeCompare(secret.serverCookie(t.clientCookie, ts, ip), sc) == 1
		}
	}

	if t.cookieValid && age <= cookieReissue {
		t.cookieOut = append(append([]byte{}, t.clientCookie...), sc...)
	} else {
		t.cookieOut = append(append([]byte{}, t.clientCookie...),
			secret.serverCookie(t.clientCookie, now, ip)...)
	}

	return t.cookieValid
}
