package kf8

import "testing"

func TestCNCXRoundTrip(t *testing.T) {
	strs := []string{"Chapter One", "Chapter Two", "Appendix"}
	record, offsets := EncodeCNCX(strs)
	cncx := ParseCNCX([][]byte{record})
	for i, s := range strs {
		got, ok := cncx[offsets[i]]
		if !ok {
			t.Fatalf("string %q not found at offset %d", s, offsets[i])
		}
		if got != s {
			t.Errorf("cncx[%d] = %q, want %q", offsets[i], got, s)
		}
	}
}

func TestSkelIndexRoundTrip(t *testing.T) {
	skels := []Skel{
		{FileNumber: 0, FragmentCount: 1, Start: 0, Length: 100},
		{FileNumber: 1, FragmentCount: 2, Start: 100, Length: 200},
	}
	entries := BuildSkelIndexEntries(skels)
	raw := EncodeIndex(entries, SkelTags)

	idx, err := ParseIndex([][]byte{raw}, nil)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	got := ParseSkelIndex(idx)
	if len(got) != len(skels) {
		t.Fatalf("got %d skeletons, want %d", len(got), len(skels))
	}
	for i, want := range skels {
		if got[i].FragmentCount != want.FragmentCount || got[i].Start != want.Start || got[i].Length != want.Length {
			t.Errorf("skel %d = %+v, want FragmentCount=%d Start=%d Length=%d", i, got[i], want.FragmentCount, want.Start, want.Length)
		}
	}
}

func TestFragIndexRoundTrip(t *testing.T) {
	frags := []Frag{
		{InsertPos: 0, Selector: "sel-a", FileNumber: 0, SequenceNum: 0, Start: 0, Length: 50},
		{InsertPos: 50, Selector: "sel-b", FileNumber: 0, SequenceNum: 1, Start: 50, Length: 75},
	}
	selectors := map[string]uint32{}
	var cncxStrings []string
	selectorOffset := func(sel string) uint32 {
		if off, ok := selectors[sel]; ok {
			return off
		}
		// EncodeCNCX lays strings out as a length byte plus the bytes, so
		// the next string's byte offset is the sum of the earlier ones.
		var off uint32
		for _, s := range cncxStrings {
			off += uint32(1 + len(s))
		}
		selectors[sel] = off
		cncxStrings = append(cncxStrings, sel)
		return off
	}
	entries := BuildFragIndexEntries(frags, selectorOffset)
	cncxRecord, offsets := EncodeCNCX(cncxStrings)
	_ = offsets
	cncx := ParseCNCX([][]byte{cncxRecord})

	raw := EncodeIndex(entries, FragTags)
	idx, err := ParseIndex([][]byte{raw}, cncx)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	got := ParseFragIndex(idx)
	if len(got) != len(frags) {
		t.Fatalf("got %d fragments, want %d", len(got), len(frags))
	}
	for i, want := range frags {
		if got[i].InsertPos != want.InsertPos {
			t.Errorf("frag %d InsertPos = %d, want %d", i, got[i].InsertPos, want.InsertPos)
		}
		if got[i].FileNumber != want.FileNumber || got[i].SequenceNum != want.SequenceNum {
			t.Errorf("frag %d FileNumber/SequenceNum = %d/%d, want %d/%d", i, got[i].FileNumber, got[i].SequenceNum, want.FileNumber, want.SequenceNum)
		}
		if got[i].Start != want.Start || got[i].Length != want.Length {
			t.Errorf("frag %d Start/Length = %d/%d, want %d/%d", i, got[i].Start, got[i].Length, want.Start, want.Length)
		}
		if got[i].Selector != want.Selector {
			t.Errorf("frag %d Selector = %q, want %q", i, got[i].Selector, want.Selector)
		}
	}
}

func TestNCXIndexRoundTrip(t *testing.T) {
	entries := []NCXEntry{
		{Position: 0, Length: 10, Title: "Intro", Level: 0, FragIndex: 0, OffsetInFrag: 0, ParentIndex: -1},
		{Position: 10, Length: 20, Title: "Chapter 1", Level: 1, FragIndex: 0, OffsetInFrag: 10, ParentIndex: 0},
	}
	titles := map[string]uint32{}
	var cncxStrings []string
	titleOffset := func(title string) uint32 {
		if off, ok := titles[title]; ok {
			return off
		}
		var off uint32
		for _, s := range cncxStrings {
			off += uint32(1 + len(s))
		}
		titles[title] = off
		cncxStrings = append(cncxStrings, title)
		return off
	}
	built := BuildNCXIndexEntries(entries, titleOffset)
	cncxRecord, _ := EncodeCNCX(cncxStrings)
	cncx := ParseCNCX([][]byte{cncxRecord})

	raw := EncodeIndex(built, NCXTags)
	idx, err := ParseIndex([][]byte{raw}, cncx)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	got := ParseNCXIndex(idx)
	if len(got) != len(entries) {
		t.Fatalf("got %d NCX entries, want %d", len(got), len(entries))
	}
	if got[0].Title != "Intro" || got[0].ParentIndex != -1 {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Title != "Chapter 1" || got[1].ParentIndex != 0 || got[1].Level != 1 {
		t.Errorf("entry 1 = %+v", got[1])
	}
}

func TestParseIndexMissingMagic(t *testing.T) {
	if _, err := ParseIndex([][]byte{[]byte("NOPE")}, nil); err == nil {
		t.Fatal("expected error for missing INDX magic")
	}
}

func TestParseIndexEmptyRecordGroup(t *testing.T) {
	if _, err := ParseIndex(nil, nil); err == nil {
		t.Fatal("expected error for empty record group")
	}
}
