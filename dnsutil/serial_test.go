package dnsutil

import (
	"testing"
)

func TestCompareSerial(t *testing.T) {
	testCases := []struct {
		a, b   uint32
		expect int
	}{
		{5, 10, -1},
		{10, 5, 1},
		{7, 7, 0},
		{0xFFFFFFFF, 1, -1},
		{1, 0xFFFFFFFF, 1},
		{0, 0x7FFFFFFF, -1},
		{0x7FFFFFFF, 0, 1},
		{0, 0x80000000, -1}, // Undefined in RFC1982
		{0x80000000, 0, -1}, // Neither side is ever newer
		{0x80000005, 5, -1},
		{5, 0x80000005, -1},
	}

	for ix, tc := range testCases {
		got := CompareSerial(tc.a, tc.b)
		if got != tc.expect {
			t.Error(ix, "CompareSerial", tc.a, tc.b, "expected", tc.expect, "got", got)
		}
	}
}
