package palmdoc

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello world",
		strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("a", 5000),
		"line one\nline two\nline three\n",
	}
	for _, s := range cases {
		compressed := Compress([]byte(s))
		out, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress(%q): %v", s, err)
		}
		if !bytes.Equal(out, []byte(s)) {
			t.Fatalf("round trip mismatch: got %q, want %q", out, s)
		}
	}
}

func TestRoundTripBinary(t *testing.T) {
	in := make([]byte, 2000)
	for i := range in {
		in[i] = byte(i * 37 % 256)
	}
	out, err := Decompress(Compress(in))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatal("round trip mismatch on pseudo-random binary input")
	}
}

func TestCompressUsesBackReferences(t *testing.T) {
	s := strings.Repeat("abcdefghij", 20)
	compressed := Compress([]byte(s))
	if len(compressed) >= len(s) {
		t.Fatalf("expected repetitive input to shrink: compressed=%d original=%d", len(compressed), len(s))
	}
}

func TestCompressHighBitSpace(t *testing.T) {
	// 0xC0-0xFF tokens decode as a space followed by the byte XORed with
	// 0x80, so " a" should round-trip through that single-byte encoding.
	s := " a space b cee"
	out, err := Decompress(Compress([]byte(s)))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != s {
		t.Fatalf("got %q, want %q", out, s)
	}
}

func TestDecompressLiteralRunTruncated(t *testing.T) {
	// length byte 0x05 claims 5 literal bytes but only 2 follow.
	_, err := Decompress([]byte{0x05, 'a', 'b'})
	if err == nil {
		t.Fatal("expected error for truncated literal run")
	}
}

func TestDecompressBackReferenceTruncated(t *testing.T) {
	_, err := Decompress([]byte{0x80})
	if err == nil {
		t.Fatal("expected error for truncated back-reference token")
	}
}

func TestDecompressBackReferenceOutOfRange(t *testing.T) {
	// A back-reference emitted as the very first token has nothing behind
	// it to copy from.
	word := uint16(0x8000) | uint16(3<<3) | uint16(3-3)
	_, err := Decompress([]byte{byte(word >> 8), byte(word)})
	if err == nil {
		t.Fatal("expected error for out-of-range back-reference distance")
	}
}

func TestDecompressPlainBytes(t *testing.T) {
	in := []byte{0x00, 0x09, 0x41, 0x7F}
	out, err := Decompress(in)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("plain byte range should pass through unchanged: got %v want %v", out, in)
	}
}
