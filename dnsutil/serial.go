package dnsutil

// CompareSerial compares two SOA serial numbers using RFC 1982 sequence space arithmetic
// for SERIAL_BITS=32. It returns -1 if a precedes b, 1 if a follows b and 0 if they are
// equal. The undefined case, where the two values are exactly 2^31 apart, is reported as
// -1 in both directions so a remote serial in that position is never treated as newer
// and never triggers a transfer.
func CompareSerial(a, b uint32) int {
	if a == b {
		return 0
	}
	if int32(a-b) > 0 { // 2^31 apart is the negative minimum and so falls through
		return 1
	}

	return -1
}
