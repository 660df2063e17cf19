package kf8

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPartName(t *testing.T) {
	cases := map[int]string{
		0:  "part0000.html",
		1:  "part0001.html",
		42: "part0042.html",
		999: "part0999.html",
	}
	for n, want := range cases {
		if got := PartName(n); got != want {
			t.Errorf("PartName(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestParseFDST(t *testing.T) {
	rec := make([]byte, 12)
	copy(rec[0:4], "FDST")
	binary.BigEndian.PutUint32(rec[8:12], 2)
	appendEntry := func(start, end uint32) {
		b := make([]byte, 8)
		binary.BigEndian.PutUint32(b[0:4], start)
		binary.BigEndian.PutUint32(b[4:8], end)
		rec = append(rec, b...)
	}
	appendEntry(0, 100)
	appendEntry(100, 250)

	flows, err := ParseFDST(rec)
	if err != nil {
		t.Fatalf("ParseFDST: %v", err)
	}
	want := [][2]int{{0, 100}, {100, 250}}
	for i, w := range want {
		if flows[i] != w {
			t.Errorf("flow %d = %v, want %v", i, flows[i], w)
		}
	}
}

func TestParseFDSTMissingMagic(t *testing.T) {
	if _, err := ParseFDST([]byte("NOPE12345678")); err == nil {
		t.Fatal("expected error for missing FDST magic")
	}
}

func TestParseFDSTTruncatedEntry(t *testing.T) {
	rec := make([]byte, 12)
	copy(rec[0:4], "FDST")
	binary.BigEndian.PutUint32(rec[8:12], 1)
	// numEntries=1 but no entry bytes follow.
	if _, err := ParseFDST(rec); err == nil {
		t.Fatal("expected error for truncated FDST entry")
	}
}

func TestReassembleSpliceAtInsertPos(t *testing.T) {
	base := []byte("<p>A</p><p>B</p>")
	fragText := []byte("<p>X</p>")
	flow0 := append(append([]byte{}, base...), fragText...)

	skels := []Skel{{FileNumber: 0, FragmentCount: 1, Start: 0, Length: len(base)}}
	frags := []Frag{{InsertPos: 8, FileNumber: 0, SequenceNum: 0, Start: len(base), Length: len(fragText)}}

	chapters, err := Reassemble(flow0, skels, frags)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(chapters))
	}
	want := "<p>A</p><p>X</p><p>B</p>"
	if string(chapters[0].HTML) != want {
		t.Errorf("Reassemble = %q, want %q", chapters[0].HTML, want)
	}
	if chapters[0].Name != "part0000.html" {
		t.Errorf("Name = %q, want %q", chapters[0].Name, "part0000.html")
	}
}

func TestReassembleMultipleFragmentsCumulative(t *testing.T) {
	base := []byte("AABBCC")
	frag1 := []byte("[1]")
	frag2 := []byte("[2]")
	flow0 := bytes.Join([][]byte{base, frag1, frag2}, nil)

	skels := []Skel{{FileNumber: 0, FragmentCount: 2, Start: 0, Length: len(base)}}
	frags := []Frag{
		{InsertPos: 2, FileNumber: 0, SequenceNum: 0, Start: len(base), Length: len(frag1)},
		{InsertPos: 7, FileNumber: 0, SequenceNum: 1, Start: len(base) + len(frag1), Length: len(frag2)},
	}

	chapters, err := Reassemble(flow0, skels, frags)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	want := "AA[1]BB[2]CC"
	if string(chapters[0].HTML) != want {
		t.Errorf("Reassemble = %q, want %q", chapters[0].HTML, want)
	}
}

func TestReassembleSkelOutOfBounds(t *testing.T) {
	flow0 := []byte("short")
	skels := []Skel{{FileNumber: 0, Start: 0, Length: 100}}
	if _, err := Reassemble(flow0, skels, nil); err == nil {
		t.Fatal("expected error for SKEL range out of bounds")
	}
}
