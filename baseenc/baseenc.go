// Package baseenc implements the custom big-endian base-32 codec used by
// KF8 kindle:pos placeholders and KFX position encodings:
// alphabet "0123456789ABCDEFGHIJKLMNOPQRSTUV", no padding, most
// significant digit first.
package baseenc

import "bookforge/bookerr"

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUV"

var decodeTable [256]int8

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		decodeTable[alphabet[i]] = int8(i)
	}
}

// Encode renders n as exactly width base-32 digits, most significant
// first. The caller must ensure n fits in width digits (32^width); values
// that don't fit are truncated to their low-order digits.
func Encode(n uint64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = alphabet[n&0x1F]
		n >>= 5
	}
	return string(buf)
}

// Decode parses a base-32 string (as produced by Encode) into its integer
// value. Any byte outside the alphabet yields an InvalidHeader error.
func Decode(s string) (uint64, error) {
	var n uint64
	for i := 0; i < len(s); i++ {
		d := decodeTable[s[i]]
		if d < 0 {
			return 0, bookerr.New(bookerr.InvalidHeader, "invalid base-32 digit in kindle position placeholder")
		}
		n = (n << 5) | uint64(d)
	}
	return n, nil
}
